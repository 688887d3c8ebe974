package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/evently/evently-api/internal/domain"
)

type BookingRepository interface {
	Create(ctx context.Context, userID, eventID uuid.UUID, quantity int, totalPrice float64) (*domain.Booking, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error)
	CountTicketsForEvent(ctx context.Context, eventID uuid.UUID) (int, error)
	Cancel(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
}
