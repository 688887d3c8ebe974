package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/evently/evently-api/internal/domain"
)

const bookingColumns = `id, user_id, event_id, quantity, total_price, status, created_at, updated_at`

type BookingRepository struct {
	db *sqlx.DB
}

func NewBookingRepo(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) Create(ctx context.Context, userID, eventID uuid.UUID, quantity int, totalPrice float64) (*domain.Booking, error) {
	const query = `
        INSERT INTO booking (user_id, event_id, quantity, total_price, status)
        VALUES ($1, $2, $3, $4, 'confirmed')
        RETURNING ` + bookingColumns
	row := r.db.QueryRowxContext(ctx, query, userID, eventID, quantity, totalPrice)
	var booking domain.Booking
	if err := row.StructScan(&booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const query = `SELECT ` + bookingColumns + ` FROM booking WHERE id = $1`
	var booking domain.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	const query = `
        SELECT ` + bookingColumns + `
        FROM booking
        WHERE user_id = $1
        ORDER BY created_at DESC`
	bookings := []domain.Booking{}
	if err := r.db.SelectContext(ctx, &bookings, query, userID); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *BookingRepository) CountTicketsForEvent(ctx context.Context, eventID uuid.UUID) (int, error) {
	const query = `
        SELECT COALESCE(SUM(quantity), 0)
        FROM booking
        WHERE event_id = $1 AND status = 'confirmed'`
	var count int
	if err := r.db.GetContext(ctx, &count, query, eventID); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *BookingRepository) Cancel(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const query = `
        UPDATE booking
        SET status = 'canceled',
            updated_at = NOW()
        WHERE id = $1
        RETURNING ` + bookingColumns
	row := r.db.QueryRowxContext(ctx, query, id)
	var booking domain.Booking
	if err := row.StructScan(&booking); err != nil {
		return nil, err
	}
	return &booking, nil
}
