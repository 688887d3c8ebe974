package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/evently/evently-api/internal/domain"
)

const eventColumns = `id, organizer_id, title, description, event_date, location, categories, poster_url, ticket_price, total_tickets, remaining_tickets, status, created_at, updated_at`

type EventRepository struct {
	db *sqlx.DB
}

func NewEventRepo(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Create(ctx context.Context, event *domain.Event) (*domain.Event, error) {
	const query = `
        INSERT INTO event (organizer_id, title, description, event_date, location, categories, ticket_price, total_tickets, remaining_tickets, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING ` + eventColumns
	row := r.db.QueryRowxContext(ctx, query,
		event.OrganizerID, event.Title, event.Description, event.Date, event.Location,
		event.Categories, event.TicketPrice, event.TotalTickets, event.RemainingTickets, event.Status)
	var created domain.Event
	if err := row.StructScan(&created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *EventRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	const query = `SELECT ` + eventColumns + ` FROM event WHERE id = $1`
	var event domain.Event
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *EventRepository) ListByStatus(ctx context.Context, status string, limit, offset int) ([]domain.Event, error) {
	const query = `
        SELECT ` + eventColumns + `
        FROM event
        WHERE status = $1
        ORDER BY event_date ASC
        LIMIT $2 OFFSET $3`
	events := []domain.Event{}
	if err := r.db.SelectContext(ctx, &events, query, status, limit, offset); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *EventRepository) ListAll(ctx context.Context, limit, offset int) ([]domain.Event, error) {
	const query = `
        SELECT ` + eventColumns + `
        FROM event
        ORDER BY created_at DESC
        LIMIT $1 OFFSET $2`
	events := []domain.Event{}
	if err := r.db.SelectContext(ctx, &events, query, limit, offset); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *EventRepository) ListByOrganizer(ctx context.Context, organizerID uuid.UUID) ([]domain.Event, error) {
	const query = `
        SELECT ` + eventColumns + `
        FROM event
        WHERE organizer_id = $1
        ORDER BY event_date ASC`
	events := []domain.Event{}
	if err := r.db.SelectContext(ctx, &events, query, organizerID); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *EventRepository) Update(ctx context.Context, event *domain.Event) (*domain.Event, error) {
	const query = `
        UPDATE event
        SET title = $2,
            description = $3,
            event_date = $4,
            location = $5,
            categories = $6,
            ticket_price = $7,
            total_tickets = $8,
            remaining_tickets = $9,
            updated_at = NOW()
        WHERE id = $1
        RETURNING ` + eventColumns
	row := r.db.QueryRowxContext(ctx, query,
		event.ID, event.Title, event.Description, event.Date, event.Location,
		event.Categories, event.TicketPrice, event.TotalTickets, event.RemainingTickets)
	var updated domain.Event
	if err := row.StructScan(&updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *EventRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*domain.Event, error) {
	const query = `
        UPDATE event
        SET status = $2,
            updated_at = NOW()
        WHERE id = $1
        RETURNING ` + eventColumns
	row := r.db.QueryRowxContext(ctx, query, id, status)
	var updated domain.Event
	if err := row.StructScan(&updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *EventRepository) UpdatePosterURL(ctx context.Context, id uuid.UUID, url string) error {
	const query = `
        UPDATE event
        SET poster_url = $2,
            updated_at = NOW()
        WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, url)
	return err
}

func (r *EventRepository) AdjustRemaining(ctx context.Context, id uuid.UUID, delta int) (*domain.Event, error) {
	const query = `
        UPDATE event
        SET remaining_tickets = GREATEST(remaining_tickets + $2, 0),
            updated_at = NOW()
        WHERE id = $1
        RETURNING ` + eventColumns
	row := r.db.QueryRowxContext(ctx, query, id, delta)
	var updated domain.Event
	if err := row.StructScan(&updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *EventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM event WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}
