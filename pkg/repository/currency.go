package repository

import (
	"time"
)

// Currency is immutable reference data, e.g. "USD".
type Currency struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
