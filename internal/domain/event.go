package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	EventStatusPending  = "pending"
	EventStatusApproved = "approved"
	EventStatusDeclined = "declined"
)

// ValidEventStatus reports whether status is a known event lifecycle state.
func ValidEventStatus(status string) bool {
	switch status {
	case EventStatusPending, EventStatusApproved, EventStatusDeclined:
		return true
	}
	return false
}

type Event struct {
	ID               uuid.UUID      `db:"id" json:"id"`
	OrganizerID      uuid.UUID      `db:"organizer_id" json:"organizer_id"`
	Title            string         `db:"title" json:"title"`
	Description      string         `db:"description" json:"description"`
	Date             time.Time      `db:"event_date" json:"date"`
	Location         string         `db:"location" json:"location"`
	Categories       pq.StringArray `db:"categories" json:"categories,omitempty"`
	PosterURL        *string        `db:"poster_url" json:"poster_url,omitempty"`
	TicketPrice      float64        `db:"ticket_price" json:"ticket_price"`
	TotalTickets     int            `db:"total_tickets" json:"total_tickets"`
	RemainingTickets int            `db:"remaining_tickets" json:"remaining_tickets"`
	Status           string         `db:"status" json:"status"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// BookedTickets is the number of tickets already sold.
func (e *Event) BookedTickets() int {
	return e.TotalTickets - e.RemainingTickets
}

// PercentBooked is the organizer-analytics ratio of sold tickets, in [0,100].
func (e *Event) PercentBooked() float64 {
	if e.TotalTickets <= 0 {
		return 0
	}
	return float64(e.BookedTickets()) / float64(e.TotalTickets) * 100
}
