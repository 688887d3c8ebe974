package service

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"github.com/evently/evently-api/internal/domain"
	"github.com/evently/evently-api/internal/repository/ports"
)

var (
	ErrBookingNotFound    = errors.New("booking not found")
	ErrBookingForbidden   = errors.New("not allowed to access this booking")
	ErrBookingNotActive   = errors.New("booking is not active")
	ErrEventNotBookable   = errors.New("event is not open for booking")
	ErrNotEnoughTickets   = errors.New("not enough tickets remaining")
	ErrInvalidTicketCount = errors.New("quantity must be positive")
)

type BookingService struct {
	bookings ports.BookingRepository
	events   ports.EventRepository
}

func NewBookingService(bookings ports.BookingRepository, events ports.EventRepository) *BookingService {
	return &BookingService{bookings: bookings, events: events}
}

// Book reserves tickets against an approved event. The price is computed
// server-side from the event's current ticket price. The remaining-ticket
// decrement is a plain overwrite with no locking, so two concurrent
// bookings can both pass the availability check; last write wins.
func (s *BookingService) Book(ctx context.Context, userID, eventID uuid.UUID, quantity int) (*domain.Booking, error) {
	if quantity <= 0 {
		return nil, ErrInvalidTicketCount
	}

	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if notFound(err) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	if event.Status != domain.EventStatusApproved {
		return nil, ErrEventNotBookable
	}
	if event.RemainingTickets < quantity {
		return nil, ErrNotEnoughTickets
	}

	booking, err := s.bookings.Create(ctx, userID, eventID, quantity, float64(quantity)*event.TicketPrice)
	if err != nil {
		return nil, err
	}

	if _, err := s.events.AdjustRemaining(ctx, eventID, -quantity); err != nil {
		// The booking row exists but the counter was not moved. There is
		// no transaction spanning both writes; log and surface the error.
		log.Printf("booking: adjust remaining for event %s failed: %v", eventID, err)
		return nil, err
	}
	return booking, nil
}

// Get returns a booking to its owner (or an admin).
func (s *BookingService) Get(ctx context.Context, id uuid.UUID, actor *domain.User) (*domain.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		if notFound(err) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if booking.UserID != actor.ID && !actor.IsAdmin() {
		return nil, ErrBookingForbidden
	}
	return booking, nil
}

func (s *BookingService) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	return s.bookings.ListByUser(ctx, userID)
}

// Cancel releases a confirmed booking and returns its tickets to the
// event's remaining pool.
func (s *BookingService) Cancel(ctx context.Context, id uuid.UUID, actor *domain.User) (*domain.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		if notFound(err) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if booking.UserID != actor.ID && !actor.IsAdmin() {
		return nil, ErrBookingForbidden
	}
	if booking.Status != domain.BookingStatusConfirmed {
		return nil, ErrBookingNotActive
	}

	canceled, err := s.bookings.Cancel(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.events.AdjustRemaining(ctx, booking.EventID, booking.Quantity); err != nil {
		log.Printf("booking: restore remaining for event %s failed: %v", booking.EventID, err)
		return nil, err
	}
	return canceled, nil
}
