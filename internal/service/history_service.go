package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"duetmenu/internal/domain"
	"duetmenu/internal/events"
	"duetmenu/internal/models"

	"github.com/rs/zerolog"
)

// HistoryService owns the log of submitted orders, most-recent-first.
// It is role-agnostic: whether a caller may delete records is decided at
// the presentation boundary.
type HistoryService struct {
	store  domain.Store
	logger *zerolog.Logger
	bus    domain.EventPublisher

	mu      sync.RWMutex
	records []models.OrderRecord
}

func NewHistoryService(store domain.Store, bus domain.EventPublisher, logger *zerolog.Logger) *HistoryService {
	return &HistoryService{store: store, logger: logger, bus: bus}
}

// Load restores history from the store. Absent or malformed blobs become an
// empty log; Load never fails the caller.
func (s *HistoryService) Load(ctx context.Context) error {
	raw, err := s.store.Get(ctx, models.KeyHistory)
	if err != nil {
		s.logger.Error().Err(err).Msg("load history from store")
	}

	var records []models.OrderRecord
	if raw != nil {
		if err := json.Unmarshal(raw, &records); err != nil {
			s.logger.Error().Err(err).Msg("history blob is malformed, starting empty")
			records = nil
		}
	}

	s.mu.Lock()
	s.records = records
	s.mu.Unlock()
	return nil
}

// List returns a snapshot copy, most-recent-first.
func (s *HistoryService) List(ctx context.Context) []models.OrderRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.OrderRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Prepend unshifts a record to the front and persists.
func (s *HistoryService) Prepend(ctx context.Context, record models.OrderRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.records
	s.records = append([]models.OrderRecord{record}, s.records...)

	if err := s.persist(ctx); err != nil {
		s.records = prev
		return err
	}
	return nil
}

// Delete removes the matching record when present; unknown ids are a no-op.
func (s *HistoryService) Delete(ctx context.Context, recordID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, r := range s.records {
		if r.ID == recordID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil
	}

	prev := s.records
	filtered := make([]models.OrderRecord, 0, len(s.records)-1)
	filtered = append(filtered, s.records[:idx]...)
	filtered = append(filtered, s.records[idx+1:]...)
	s.records = filtered

	if err := s.persist(ctx); err != nil {
		s.records = prev
		return err
	}

	_ = s.bus.PublishJSON(events.EventOrderDeleted, events.OrderEventPayload{OrderID: recordID})
	s.logger.Info().Str("order_id", recordID).Msg("order record deleted")
	return nil
}

// persist writes the history blob. Callers hold mu.
func (s *HistoryService) persist(ctx context.Context) error {
	raw, err := json.Marshal(s.records)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := s.store.Set(ctx, models.KeyHistory, raw); err != nil {
		return fmt.Errorf("persist history: %w", err)
	}
	return nil
}
