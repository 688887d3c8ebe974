package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/evently/evently-api/internal/domain"
)

type fakeBookingRepo struct {
	bookingsByID map[uuid.UUID]*domain.Booking
	createErr    error
}

func newFakeBookingRepo(bookings ...*domain.Booking) *fakeBookingRepo {
	repo := &fakeBookingRepo{bookingsByID: map[uuid.UUID]*domain.Booking{}}
	for _, b := range bookings {
		repo.bookingsByID[b.ID] = b
	}
	return repo
}

func (f *fakeBookingRepo) Create(ctx context.Context, userID, eventID uuid.UUID, quantity int, totalPrice float64) (*domain.Booking, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	booking := &domain.Booking{
		ID:         uuid.New(),
		UserID:     userID,
		EventID:    eventID,
		Quantity:   quantity,
		TotalPrice: totalPrice,
		Status:     domain.BookingStatusConfirmed,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	f.bookingsByID[booking.ID] = booking
	return booking, nil
}

func (f *fakeBookingRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	if b, ok := f.bookingsByID[id]; ok {
		copied := *b
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeBookingRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	out := []domain.Booking{}
	for _, b := range f.bookingsByID {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBookingRepo) CountTicketsForEvent(ctx context.Context, eventID uuid.UUID) (int, error) {
	total := 0
	for _, b := range f.bookingsByID {
		if b.EventID == eventID && b.Status == domain.BookingStatusConfirmed {
			total += b.Quantity
		}
	}
	return total, nil
}

func (f *fakeBookingRepo) Cancel(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	b, ok := f.bookingsByID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	b.Status = domain.BookingStatusCanceled
	copied := *b
	return &copied, nil
}

func TestBookComputesPriceAndDecrementsRemaining(t *testing.T) {
	ctx := context.Background()
	event := approvedEvent(uuid.New(), 100, 100)
	event.TicketPrice = 12.5
	events := newFakeEventRepo(event)
	bookings := newFakeBookingRepo()
	svc := NewBookingService(bookings, events)

	userID := uuid.New()
	booking, err := svc.Book(ctx, userID, event.ID, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if booking.TotalPrice != 50 {
		t.Fatalf("expected server-side price 4*12.5=50, got %v", booking.TotalPrice)
	}
	if booking.Status != domain.BookingStatusConfirmed {
		t.Fatalf("expected confirmed booking, got %q", booking.Status)
	}
	if got := events.eventsByID[event.ID].RemainingTickets; got != 96 {
		t.Fatalf("expected 96 tickets remaining, got %d", got)
	}
	if len(events.adjustCalls) != 1 || events.adjustCalls[0] != -4 {
		t.Fatalf("expected a single -4 adjustment, got %v", events.adjustCalls)
	}
}

func TestBookRejectsNonApprovedEvent(t *testing.T) {
	ctx := context.Background()
	event := approvedEvent(uuid.New(), 100, 100)
	event.Status = domain.EventStatusPending
	events := newFakeEventRepo(event)
	svc := NewBookingService(newFakeBookingRepo(), events)

	if _, err := svc.Book(ctx, uuid.New(), event.ID, 1); !errors.Is(err, ErrEventNotBookable) {
		t.Fatalf("expected ErrEventNotBookable, got %v", err)
	}
}

func TestBookRejectsInsufficientTickets(t *testing.T) {
	ctx := context.Background()
	event := approvedEvent(uuid.New(), 100, 3)
	events := newFakeEventRepo(event)
	svc := NewBookingService(newFakeBookingRepo(), events)

	if _, err := svc.Book(ctx, uuid.New(), event.ID, 4); !errors.Is(err, ErrNotEnoughTickets) {
		t.Fatalf("expected ErrNotEnoughTickets, got %v", err)
	}
	// Exactly the remaining count is fine.
	if _, err := svc.Book(ctx, uuid.New(), event.ID, 3); err != nil {
		t.Fatalf("booking the last tickets should succeed, got %v", err)
	}
}

func TestBookRejectsNonPositiveQuantity(t *testing.T) {
	ctx := context.Background()
	event := approvedEvent(uuid.New(), 100, 100)
	events := newFakeEventRepo(event)
	svc := NewBookingService(newFakeBookingRepo(), events)

	if _, err := svc.Book(ctx, uuid.New(), event.ID, 0); !errors.Is(err, ErrInvalidTicketCount) {
		t.Fatalf("expected ErrInvalidTicketCount, got %v", err)
	}
	if _, err := svc.Book(ctx, uuid.New(), event.ID, -2); !errors.Is(err, ErrInvalidTicketCount) {
		t.Fatalf("expected ErrInvalidTicketCount, got %v", err)
	}
}

func TestBookUnknownEvent(t *testing.T) {
	ctx := context.Background()
	svc := NewBookingService(newFakeBookingRepo(), newFakeEventRepo())

	if _, err := svc.Book(ctx, uuid.New(), uuid.New(), 1); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}

func TestGetBookingOwnership(t *testing.T) {
	ctx := context.Background()
	owner := &domain.User{ID: uuid.New(), Role: domain.RoleUser}
	other := &domain.User{ID: uuid.New(), Role: domain.RoleUser}
	admin := &domain.User{ID: uuid.New(), Role: domain.RoleAdmin}

	booking := &domain.Booking{ID: uuid.New(), UserID: owner.ID, EventID: uuid.New(), Quantity: 2, Status: domain.BookingStatusConfirmed}
	svc := NewBookingService(newFakeBookingRepo(booking), newFakeEventRepo())

	if _, err := svc.Get(ctx, booking.ID, owner); err != nil {
		t.Fatalf("owner should see their booking, got %v", err)
	}
	if _, err := svc.Get(ctx, booking.ID, admin); err != nil {
		t.Fatalf("admin should see any booking, got %v", err)
	}
	if _, err := svc.Get(ctx, booking.ID, other); !errors.Is(err, ErrBookingForbidden) {
		t.Fatalf("expected ErrBookingForbidden, got %v", err)
	}
}

func TestCancelRestoresTickets(t *testing.T) {
	ctx := context.Background()
	owner := &domain.User{ID: uuid.New(), Role: domain.RoleUser}
	event := approvedEvent(uuid.New(), 100, 95)
	booking := &domain.Booking{ID: uuid.New(), UserID: owner.ID, EventID: event.ID, Quantity: 5, Status: domain.BookingStatusConfirmed}

	events := newFakeEventRepo(event)
	bookings := newFakeBookingRepo(booking)
	svc := NewBookingService(bookings, events)

	canceled, err := svc.Cancel(ctx, booking.ID, owner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if canceled.Status != domain.BookingStatusCanceled {
		t.Fatalf("expected canceled status, got %q", canceled.Status)
	}
	if got := events.eventsByID[event.ID].RemainingTickets; got != 100 {
		t.Fatalf("expected tickets returned to the pool, got %d remaining", got)
	}
}

func TestCancelTwiceFails(t *testing.T) {
	ctx := context.Background()
	owner := &domain.User{ID: uuid.New(), Role: domain.RoleUser}
	event := approvedEvent(uuid.New(), 100, 95)
	booking := &domain.Booking{ID: uuid.New(), UserID: owner.ID, EventID: event.ID, Quantity: 5, Status: domain.BookingStatusConfirmed}

	events := newFakeEventRepo(event)
	svc := NewBookingService(newFakeBookingRepo(booking), events)

	if _, err := svc.Cancel(ctx, booking.ID, owner); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Cancel(ctx, booking.ID, owner); !errors.Is(err, ErrBookingNotActive) {
		t.Fatalf("a second cancellation must fail, got %v", err)
	}
	if got := events.eventsByID[event.ID].RemainingTickets; got != 100 {
		t.Fatalf("double cancel must not restore tickets twice, got %d remaining", got)
	}
}

func TestCancelForbiddenForStranger(t *testing.T) {
	ctx := context.Background()
	owner := &domain.User{ID: uuid.New(), Role: domain.RoleUser}
	stranger := &domain.User{ID: uuid.New(), Role: domain.RoleUser}
	booking := &domain.Booking{ID: uuid.New(), UserID: owner.ID, EventID: uuid.New(), Quantity: 1, Status: domain.BookingStatusConfirmed}

	svc := NewBookingService(newFakeBookingRepo(booking), newFakeEventRepo())

	if _, err := svc.Cancel(ctx, booking.ID, stranger); !errors.Is(err, ErrBookingForbidden) {
		t.Fatalf("expected ErrBookingForbidden, got %v", err)
	}
}
