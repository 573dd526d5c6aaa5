package service

import (
	"context"
	"errors"
	"testing"

	"duetmenu/internal/domain"
	"duetmenu/internal/events"
	"duetmenu/internal/models"
	"duetmenu/internal/store"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockNotifier records push attempts and returns a scripted outcome.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, record *models.OrderRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// flakyStore wraps a real store and fails writes to selected keys.
type flakyStore struct {
	domain.Store
	failKeys map[string]bool
}

func (s *flakyStore) Set(ctx context.Context, key string, value []byte) error {
	if s.failKeys[key] {
		return errors.New("store write failed")
	}
	return s.Store.Set(ctx, key, value)
}

type fixture struct {
	store    domain.Store
	catalog  *CatalogService
	history  *HistoryService
	cart     *CartService
	notifier *MockNotifier
	bus      *events.EventBus
}

func newFixture(t *testing.T, st domain.Store) *fixture {
	t.Helper()
	if st == nil {
		st = store.NewMemoryStore()
	}
	logger := zerolog.Nop()
	bus := events.NewEventBus()
	notifier := &MockNotifier{}

	catalog := NewCatalogService(st, nil, bus, &logger)
	require.NoError(t, catalog.Load(context.Background()))

	history := NewHistoryService(st, bus, &logger)
	require.NoError(t, history.Load(context.Background()))

	cart := NewCartService(st, catalog, history, notifier, bus, &logger)
	require.NoError(t, cart.Load(context.Background()))

	return &fixture{store: st, catalog: catalog, history: history, cart: cart, notifier: notifier, bus: bus}
}
