package domain

import (
	"context"

	"duetmenu/internal/models"
)

// Store is the keyed blob persistence boundary. Get returns (nil, nil) when
// the key has never been written. Implementations are assumed atomic per key;
// they perform no validation of the payload.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Ping(ctx context.Context) error
	Close() error
}

// CatalogService owns the menu: the list of orderable dishes.
type CatalogService interface {
	Load(ctx context.Context) error
	List(ctx context.Context) []models.Dish
	Get(ctx context.Context, id string) (*models.Dish, error)
	Create(ctx context.Context, fields models.DishFields) (*models.Dish, error)
	Update(ctx context.Context, id string, fields models.DishFields) (*models.Dish, error)
	UpdateSteps(ctx context.Context, id string, steps string) error
	Delete(ctx context.Context, id string) error
}

// CartService owns the active, unsubmitted order.
type CartService interface {
	Load(ctx context.Context) error
	Lines(ctx context.Context) []models.CartLine
	AddDish(ctx context.Context, dishID string) (*models.CartLine, error)
	ChangeQuantity(ctx context.Context, lineID int64, delta int) error
	Remove(ctx context.Context, lineID int64) error
	Total() float64
	Submit(ctx context.Context) (*SubmitResult, error)
}

// SubmitResult reports a completed submission. Delivered tells whether the
// best-effort push notification went out; submission itself succeeded either way.
type SubmitResult struct {
	Record    *models.OrderRecord
	Delivered bool
}

// HistoryService owns the log of submitted orders, most-recent-first.
type HistoryService interface {
	Load(ctx context.Context) error
	List(ctx context.Context) []models.OrderRecord
	Prepend(ctx context.Context, record models.OrderRecord) error
	Delete(ctx context.Context, recordID string) error
}

// NotificationSender pushes an order summary to an external endpoint.
// Exactly one attempt per submission; callers treat any error as non-fatal.
type NotificationSender interface {
	Send(ctx context.Context, record *models.OrderRecord) error
}

// ImageStore accepts uploaded binary content plus a filename hint and
// returns a stable reference URL for the stored image.
type ImageStore interface {
	Save(ctx context.Context, data []byte, filenameHint string) (string, error)
}

// EventPublisher fans domain events out to in-process subscribers.
type EventPublisher interface {
	PublishJSON(eventType string, payload any) error
}
