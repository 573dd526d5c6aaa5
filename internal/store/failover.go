package store

import (
	"context"
	"sync/atomic"
	"time"

	"duetmenu/internal/domain"

	"github.com/rs/zerolog"
)

// FailoverStore fronts a primary store with an in-memory fallback. After a
// primary error it serves from the fallback and retries the primary once
// a minute.
type FailoverStore struct {
	primary  domain.Store
	fallback domain.Store
	logger   *zerolog.Logger
	isDown   atomic.Bool
	// lastCheck is the UnixNano of the last failed primary attempt. Atomic
	// because Get and Set race on it from concurrent requests.
	lastCheck atomic.Int64
}

func NewFailoverStore(primary, fallback domain.Store, logger *zerolog.Logger) *FailoverStore {
	return &FailoverStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (s *FailoverStore) Get(ctx context.Context, key string) ([]byte, error) {
	if !s.isDown.Load() {
		val, err := s.primary.Get(ctx, key)
		if err == nil {
			return val, nil
		}
		s.logger.Error().Err(err).Str("key", key).Msg("Primary store failed, falling back to memory")
		s.isDown.Store(true)
		s.lastCheck.Store(time.Now().UnixNano())
	}

	// Try to recover after 1 minute
	if s.isDown.Load() && time.Now().UnixNano()-s.lastCheck.Load() > int64(time.Minute) {
		val, err := s.primary.Get(ctx, key)
		if err == nil {
			s.isDown.Store(false)
			return val, nil
		}
		s.lastCheck.Store(time.Now().UnixNano())
	}

	return s.fallback.Get(ctx, key)
}

func (s *FailoverStore) Set(ctx context.Context, key string, value []byte) error {
	if !s.isDown.Load() {
		err := s.primary.Set(ctx, key, value)
		if err == nil {
			// Keep the fallback warm so a failover does not lose state.
			_ = s.fallback.Set(ctx, key, value)
			return nil
		}
		s.logger.Error().Err(err).Str("key", key).Msg("Primary store failed, falling back to memory")
		s.isDown.Store(true)
		s.lastCheck.Store(time.Now().UnixNano())
	}

	return s.fallback.Set(ctx, key, value)
}

func (s *FailoverStore) Ping(ctx context.Context) error {
	if err := s.primary.Ping(ctx); err == nil {
		s.isDown.Store(false)
		return nil
	}
	return s.fallback.Ping(ctx)
}

func (s *FailoverStore) Close() error {
	if err := s.primary.Close(); err != nil {
		return err
	}
	return s.fallback.Close()
}
