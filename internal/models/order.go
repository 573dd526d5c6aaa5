package models

import "time"

// CartLine is one dish-and-quantity entry in the active cart. Name and price
// are snapshots taken when the line was created: later menu edits must not
// change what an already-added line displays or costs.
type CartLine struct {
	ID       int64   `json:"id"`
	DishID   string  `json:"dish_id"`
	DishName string  `json:"dish_name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// Subtotal returns price × quantity for this line.
func (l CartLine) Subtotal() float64 {
	return l.Price * float64(l.Quantity)
}

// OrderRecord is the immutable snapshot of a completed submission.
// It is never mutated after creation; it leaves history only by explicit
// manager deletion.
type OrderRecord struct {
	ID        string     `json:"id"`
	Items     []CartLine `json:"items"`
	Total     float64    `json:"total"`
	Timestamp time.Time  `json:"timestamp"`
}

// ShortID returns the first eight characters of the record ID, the form
// used in notification titles and exports.
func (r OrderRecord) ShortID() string {
	if len(r.ID) <= 8 {
		return r.ID
	}
	return r.ID[:8]
}
