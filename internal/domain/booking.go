package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	BookingStatusConfirmed = "confirmed"
	BookingStatusCanceled  = "canceled"
)

type Booking struct {
	ID         uuid.UUID `db:"id" json:"id"`
	UserID     uuid.UUID `db:"user_id" json:"user_id"`
	EventID    uuid.UUID `db:"event_id" json:"event_id"`
	Quantity   int       `db:"quantity" json:"quantity"`
	TotalPrice float64   `db:"total_price" json:"total_price"`
	Status     string    `db:"status" json:"status"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
