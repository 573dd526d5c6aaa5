package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"duetmenu/internal/domain"
	"duetmenu/internal/events"
	"duetmenu/internal/models"

	"github.com/rs/zerolog"
)

// CatalogService holds the menu in memory and mirrors every mutation into
// the store before returning to the caller.
type CatalogService struct {
	store  domain.Store
	logger *zerolog.Logger
	bus    domain.EventPublisher
	seed   []models.Dish

	mu       sync.RWMutex
	dishes   []models.Dish
	dishesID map[string]int // id -> index into dishes
}

func NewCatalogService(store domain.Store, seed []models.Dish, bus domain.EventPublisher, logger *zerolog.Logger) *CatalogService {
	if seed == nil {
		seed = models.DefaultMenu()
	}
	return &CatalogService{
		store:    store,
		logger:   logger,
		bus:      bus,
		seed:     seed,
		dishesID: make(map[string]int),
	}
}

// Load reads the catalog from the store. An absent or malformed blob falls
// back to the seed menu, which is then persisted. Load never fails the caller.
func (s *CatalogService) Load(ctx context.Context) error {
	raw, err := s.store.Get(ctx, models.KeyMenu)
	if err != nil {
		s.logger.Error().Err(err).Msg("load menu from store")
	}

	var dishes []models.Dish
	switch {
	case err != nil || raw == nil:
		dishes = append([]models.Dish(nil), s.seed...)
	default:
		if err := json.Unmarshal(raw, &dishes); err != nil {
			s.logger.Error().Err(err).Msg("menu blob is malformed, reseeding defaults")
			dishes = append([]models.Dish(nil), s.seed...)
		}
	}

	s.mu.Lock()
	s.setDishes(dishes)
	s.mu.Unlock()

	if raw == nil {
		if err := s.persist(ctx); err != nil {
			s.logger.Error().Err(err).Msg("persist seeded menu")
		}
	}
	return nil
}

// List returns a snapshot copy of the catalog.
func (s *CatalogService) List(ctx context.Context) []models.Dish {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Dish, len(s.dishes))
	copy(out, s.dishes)
	return out
}

func (s *CatalogService) Get(ctx context.Context, id string) (*models.Dish, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.dishesID[id]
	if !ok {
		return nil, fmt.Errorf("dish %s: %w", id, ErrNotFound)
	}
	dish := s.dishes[idx]
	return &dish, nil
}

// Create assigns a fresh time-derived ID, appends the dish and persists.
func (s *CatalogService) Create(ctx context.Context, fields models.DishFields) (*models.Dish, error) {
	if err := validateDishFields(fields, true); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dish := models.Dish{ID: s.freshIDLocked()}
	applyDishFields(&dish, fields)

	s.dishes = append(s.dishes, dish)
	s.dishesID[dish.ID] = len(s.dishes) - 1

	if err := s.persist(ctx); err != nil {
		s.dishes = s.dishes[:len(s.dishes)-1]
		delete(s.dishesID, dish.ID)
		return nil, err
	}

	_ = s.bus.PublishJSON(events.EventDishCreated, events.DishEventPayload{DishID: dish.ID, Name: dish.Name, Price: dish.Price})
	s.logger.Info().Str("dish_id", dish.ID).Str("name", dish.Name).Msg("dish created")
	return &dish, nil
}

// Update merges non-nil fields into the existing dish and persists.
func (s *CatalogService) Update(ctx context.Context, id string, fields models.DishFields) (*models.Dish, error) {
	if err := validateDishFields(fields, false); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.dishesID[id]
	if !ok {
		return nil, fmt.Errorf("dish %s: %w", id, ErrNotFound)
	}

	prev := s.dishes[idx]
	applyDishFields(&s.dishes[idx], fields)

	if err := s.persist(ctx); err != nil {
		s.dishes[idx] = prev
		return nil, err
	}

	dish := s.dishes[idx]
	_ = s.bus.PublishJSON(events.EventDishUpdated, events.DishEventPayload{DishID: dish.ID, Name: dish.Name, Price: dish.Price})
	return &dish, nil
}

// UpdateSteps replaces only the preparation steps of a dish.
func (s *CatalogService) UpdateSteps(ctx context.Context, id string, steps string) error {
	_, err := s.Update(ctx, id, models.DishFields{Steps: &steps})
	return err
}

// Delete removes the dish when present; an unknown id is a no-op, not an error.
func (s *CatalogService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.dishesID[id]
	if !ok {
		return nil
	}

	prev := append([]models.Dish(nil), s.dishes...)
	removed := s.dishes[idx]
	s.setDishes(append(s.dishes[:idx], s.dishes[idx+1:]...))

	if err := s.persist(ctx); err != nil {
		s.setDishes(prev)
		return err
	}

	_ = s.bus.PublishJSON(events.EventDishDeleted, events.DishEventPayload{DishID: removed.ID, Name: removed.Name, Price: removed.Price})
	s.logger.Info().Str("dish_id", id).Msg("dish deleted")
	return nil
}

// setDishes replaces the slice and rebuilds the index. Callers hold mu.
func (s *CatalogService) setDishes(dishes []models.Dish) {
	s.dishes = dishes
	s.dishesID = make(map[string]int, len(dishes))
	for i, d := range dishes {
		s.dishesID[d.ID] = i
	}
}

// persist writes the catalog blob. Callers hold mu (write or read is fine:
// the slice is not mutated here).
func (s *CatalogService) persist(ctx context.Context) error {
	raw, err := json.Marshal(s.dishes)
	if err != nil {
		return fmt.Errorf("encode menu: %w", err)
	}
	if err := s.store.Set(ctx, models.KeyMenu, raw); err != nil {
		return fmt.Errorf("persist menu: %w", err)
	}
	return nil
}

// freshIDLocked derives a unique id from the clock, bumping on collision so
// two creates within the same millisecond stay distinct.
func (s *CatalogService) freshIDLocked() string {
	ms := time.Now().UnixMilli()
	for {
		id := strconv.FormatInt(ms, 10)
		if _, taken := s.dishesID[id]; !taken {
			return id
		}
		ms++
	}
}

func validateDishFields(fields models.DishFields, creating bool) error {
	if creating && (fields.Name == nil || strings.TrimSpace(*fields.Name) == "") {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if fields.Name != nil && strings.TrimSpace(*fields.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if creating && fields.Price == nil {
		return &ValidationError{Field: "price", Reason: "is required"}
	}
	if fields.Price != nil {
		p := *fields.Price
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return &ValidationError{Field: "price", Reason: "must be a finite number"}
		}
		if p < 0 {
			return &ValidationError{Field: "price", Reason: "must not be negative"}
		}
	}
	return nil
}

func applyDishFields(dish *models.Dish, fields models.DishFields) {
	if fields.Name != nil {
		dish.Name = strings.TrimSpace(*fields.Name)
	}
	if fields.Price != nil {
		dish.Price = *fields.Price
	}
	if fields.Description != nil {
		dish.Description = *fields.Description
	}
	if fields.Steps != nil {
		dish.Steps = *fields.Steps
	}
	if fields.Image != nil {
		dish.Image = *fields.Image
	}
}
