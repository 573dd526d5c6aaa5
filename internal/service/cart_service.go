package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"duetmenu/internal/domain"
	"duetmenu/internal/events"
	"duetmenu/internal/metrics"
	"duetmenu/internal/models"

	"github.com/rs/zerolog"
)

// CartService owns the active, unsubmitted order. Every mutation persists
// synchronously; submission is the only path that clears the cart.
type CartService struct {
	store    domain.Store
	catalog  domain.CatalogService
	history  domain.HistoryService
	notifier domain.NotificationSender
	bus      domain.EventPublisher
	logger   *zerolog.Logger

	mu    sync.RWMutex
	lines []models.CartLine
}

func NewCartService(
	store domain.Store,
	catalog domain.CatalogService,
	history domain.HistoryService,
	notifier domain.NotificationSender,
	bus domain.EventPublisher,
	logger *zerolog.Logger,
) *CartService {
	return &CartService{
		store:    store,
		catalog:  catalog,
		history:  history,
		notifier: notifier,
		bus:      bus,
		logger:   logger,
	}
}

// Load restores the cart from the store, tolerating absent or malformed blobs.
func (s *CartService) Load(ctx context.Context) error {
	raw, err := s.store.Get(ctx, models.KeyCart)
	if err != nil {
		s.logger.Error().Err(err).Msg("load cart from store")
	}

	var lines []models.CartLine
	if raw != nil {
		if err := json.Unmarshal(raw, &lines); err != nil {
			s.logger.Error().Err(err).Msg("cart blob is malformed, starting empty")
			lines = nil
		}
	}

	s.mu.Lock()
	s.lines = lines
	s.mu.Unlock()
	return nil
}

// Lines returns a snapshot copy of the cart.
func (s *CartService) Lines(ctx context.Context) []models.CartLine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.CartLine, len(s.lines))
	copy(out, s.lines)
	return out
}

// AddDish puts one more of the dish into the cart: an existing line for the
// same dish gains quantity, otherwise a new line snapshots the dish's current
// name and price.
func (s *CartService) AddDish(ctx context.Context, dishID string) (*models.CartLine, error) {
	dish, err := s.catalog.Get(ctx, dishID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].DishID == dishID {
			s.lines[i].Quantity++
			if err := s.persist(ctx); err != nil {
				s.lines[i].Quantity--
				return nil, err
			}
			line := s.lines[i]
			s.publishAdded(line)
			return &line, nil
		}
	}

	line := models.CartLine{
		ID:       s.freshLineIDLocked(),
		DishID:   dish.ID,
		DishName: dish.Name,
		Price:    dish.Price,
		Quantity: 1,
	}
	s.lines = append(s.lines, line)

	if err := s.persist(ctx); err != nil {
		s.lines = s.lines[:len(s.lines)-1]
		return nil, err
	}

	s.publishAdded(line)
	return &line, nil
}

// ChangeQuantity adds delta to a line's quantity; a result of zero or less
// removes the line. Unknown line ids are a silent no-op.
func (s *CartService) ChangeQuantity(ctx context.Context, lineID int64, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].ID != lineID {
			continue
		}

		if s.lines[i].Quantity+delta <= 0 {
			return s.removeAtLocked(ctx, i)
		}

		s.lines[i].Quantity += delta
		if err := s.persist(ctx); err != nil {
			s.lines[i].Quantity -= delta
			return err
		}
		return nil
	}
	return nil
}

// Remove deletes the line unconditionally when present.
func (s *CartService) Remove(ctx context.Context, lineID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].ID == lineID {
			return s.removeAtLocked(ctx, i)
		}
	}
	return nil
}

// Total sums price × quantity over all lines. No rounding happens here;
// display formatting is the presentation layer's business.
func (s *CartService) Total() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return totalOf(s.lines)
}

// Submit runs the submission pipeline: snapshot the cart into an immutable
// order record, push the notification (best-effort, exactly one attempt),
// prepend the record to history, clear the cart. Delivery failure never
// fails submission; a store failure rolls state back to before the attempt.
func (s *CartService) Submit(ctx context.Context) (*domain.SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.lines) == 0 {
		return nil, ErrEmptyCart
	}

	items := make([]models.CartLine, len(s.lines))
	copy(items, s.lines)

	record := models.OrderRecord{
		ID:        s.freshOrderID(ctx),
		Items:     items,
		Total:     totalOf(items),
		Timestamp: time.Now().UTC(),
	}

	delivered := true
	if err := s.notifier.Send(ctx, &record); err != nil {
		delivered = false
		metrics.IncNotificationFailed()
		s.logger.Warn().Err(err).Str("order_id", record.ID).
			Msg("notification delivery failed, order will still be saved")
		_ = s.bus.PublishJSON(events.EventNotificationFailed, events.OrderEventPayload{
			OrderID: record.ID, Total: record.Total, LineCount: len(items), Timestamp: record.Timestamp,
		})
	}

	if err := s.history.Prepend(ctx, record); err != nil {
		return nil, fmt.Errorf("record order: %w", err)
	}

	prevLines := s.lines
	s.lines = nil
	if err := s.persist(ctx); err != nil {
		s.lines = prevLines
		// Keep cart and history consistent: take the record back out.
		if derr := s.history.Delete(ctx, record.ID); derr != nil {
			s.logger.Error().Err(derr).Str("order_id", record.ID).Msg("rollback of history record failed")
		}
		return nil, fmt.Errorf("clear cart: %w", err)
	}

	metrics.IncOrderSubmitted()
	_ = s.bus.PublishJSON(events.EventOrderSubmitted, events.OrderEventPayload{
		OrderID: record.ID, Total: record.Total, LineCount: len(items),
		Delivered: delivered, Timestamp: record.Timestamp,
	})
	s.logger.Info().Str("order_id", record.ID).Float64("total", record.Total).
		Bool("delivered", delivered).Msg("order submitted")

	return &domain.SubmitResult{Record: &record, Delivered: delivered}, nil
}

// removeAtLocked deletes the line at index i and persists. Callers hold mu.
func (s *CartService) removeAtLocked(ctx context.Context, i int) error {
	prev := append([]models.CartLine(nil), s.lines...)
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
	if err := s.persist(ctx); err != nil {
		s.lines = prev
		return err
	}
	return nil
}

// persist writes the cart blob. Callers hold mu.
func (s *CartService) persist(ctx context.Context) error {
	raw, err := json.Marshal(s.lines)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.store.Set(ctx, models.KeyCart, raw); err != nil {
		return fmt.Errorf("persist cart: %w", err)
	}
	return nil
}

// freshOrderID derives a time-based id, bumping past any id already in
// history so two submissions within the same millisecond stay distinct.
func (s *CartService) freshOrderID(ctx context.Context) string {
	taken := make(map[string]bool)
	for _, r := range s.history.List(ctx) {
		taken[r.ID] = true
	}

	id := time.Now().UnixMilli()
	for taken[fmt.Sprintf("%d", id)] {
		id++
	}
	return fmt.Sprintf("%d", id)
}

func (s *CartService) freshLineIDLocked() int64 {
	id := time.Now().UnixMilli()
	for {
		taken := false
		for _, l := range s.lines {
			if l.ID == id {
				taken = true
				break
			}
		}
		if !taken {
			return id
		}
		id++
	}
}

func (s *CartService) publishAdded(line models.CartLine) {
	_ = s.bus.PublishJSON(events.EventCartLineAdded, events.DishEventPayload{
		DishID: line.DishID, Name: line.DishName, Price: line.Price,
	})
}

func totalOf(lines []models.CartLine) float64 {
	var total float64
	for _, l := range lines {
		total += l.Subtotal()
	}
	return total
}
