package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/evently/evently-api/internal/domain"
)

type EventRepository interface {
	Create(ctx context.Context, event *domain.Event) (*domain.Event, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Event, error)
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]domain.Event, error)
	ListAll(ctx context.Context, limit, offset int) ([]domain.Event, error)
	ListByOrganizer(ctx context.Context, organizerID uuid.UUID) ([]domain.Event, error)
	Update(ctx context.Context, event *domain.Event) (*domain.Event, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*domain.Event, error)
	UpdatePosterURL(ctx context.Context, id uuid.UUID, url string) error
	// AdjustRemaining shifts remaining_tickets by delta (negative on
	// booking, positive on cancellation). The update is a plain overwrite
	// guarded only by a non-negative check in SQL; concurrent bookings are
	// not serialized.
	AdjustRemaining(ctx context.Context, id uuid.UUID, delta int) (*domain.Event, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
