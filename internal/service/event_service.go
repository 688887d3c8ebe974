package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/evently/evently-api/internal/domain"
	"github.com/evently/evently-api/internal/media"
	"github.com/evently/evently-api/internal/repository/ports"
)

var (
	ErrEventNotFound          = errors.New("event not found")
	ErrEventValidation        = errors.New("event validation failed")
	ErrEventForbidden         = errors.New("not allowed to manage this event")
	ErrInvalidEventStatus     = errors.New("invalid event status")
	ErrPosterRequired         = errors.New("poster image required")
	ErrPosterTooLarge         = errors.New("poster image exceeds maximum size")
	ErrPosterUnsupportedType  = errors.New("unsupported poster content type")
	ErrTicketCountBelowBooked = errors.New("total tickets cannot drop below tickets already sold")
)

var supportedPosterTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
}

type EventInput struct {
	Title        string
	Description  string
	Date         time.Time
	Location     string
	Categories   []string
	TicketPrice  float64
	TotalTickets int
}

type PosterUpload struct {
	Reader      io.Reader
	Size        int64
	FileName    string
	ContentType string
}

// EventAnalytics is the per-event booking ratio shown to organizers.
type EventAnalytics struct {
	Event         *domain.Event `json:"event"`
	BookedTickets int           `json:"booked_tickets"`
	PercentBooked float64       `json:"percent_booked"`
}

type EventServiceConfig struct {
	PosterBucket     string
	PosterMaxBytes   int64
	PosterMaxDim     int
	ApprovalRequired bool
	ImageProcessor   media.Processor
}

type EventService struct {
	events  ports.EventRepository
	storage ports.ObjectStorage

	posterBucket     string
	posterMaxBytes   int64
	posterMaxDim     int
	approvalRequired bool
	processor        media.Processor
}

func NewEventService(events ports.EventRepository, storage ports.ObjectStorage, cfg EventServiceConfig) *EventService {
	return &EventService{
		events:           events,
		storage:          storage,
		posterBucket:     cfg.PosterBucket,
		posterMaxBytes:   cfg.PosterMaxBytes,
		posterMaxDim:     cfg.PosterMaxDim,
		approvalRequired: cfg.ApprovalRequired,
		processor:        cfg.ImageProcessor,
	}
}

// Create registers a new event for the organizer. With approval enabled
// the event starts pending and stays invisible to the public listing
// until an admin approves it.
func (s *EventService) Create(ctx context.Context, organizerID uuid.UUID, input EventInput) (*domain.Event, error) {
	if err := validateEventInput(input); err != nil {
		return nil, err
	}

	status := domain.EventStatusApproved
	if s.approvalRequired {
		status = domain.EventStatusPending
	}

	event := &domain.Event{
		OrganizerID:      organizerID,
		Title:            strings.TrimSpace(input.Title),
		Description:      strings.TrimSpace(input.Description),
		Date:             input.Date,
		Location:         strings.TrimSpace(input.Location),
		Categories:       pq.StringArray(normalizeCategories(input.Categories)),
		TicketPrice:      input.TicketPrice,
		TotalTickets:     input.TotalTickets,
		RemainingTickets: input.TotalTickets,
		Status:           status,
	}
	return s.events.Create(ctx, event)
}

// Get returns an event. Non-approved events are visible only to their
// organizer and to admins.
func (s *EventService) Get(ctx context.Context, id uuid.UUID, viewer *domain.User) (*domain.Event, error) {
	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		if notFound(err) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	if event.Status != domain.EventStatusApproved && !canManage(event, viewer) {
		return nil, ErrEventNotFound
	}
	return event, nil
}

// ListApproved is the public browse listing.
func (s *EventService) ListApproved(ctx context.Context, limit, offset int) ([]domain.Event, error) {
	limit, offset = clampPage(limit, offset)
	return s.events.ListByStatus(ctx, domain.EventStatusApproved, limit, offset)
}

// ListAll returns every event regardless of status. Admin only; the
// handler enforces the role.
func (s *EventService) ListAll(ctx context.Context, limit, offset int) ([]domain.Event, error) {
	limit, offset = clampPage(limit, offset)
	return s.events.ListAll(ctx, limit, offset)
}

func (s *EventService) ListByOrganizer(ctx context.Context, organizerID uuid.UUID) ([]domain.Event, error) {
	return s.events.ListByOrganizer(ctx, organizerID)
}

// Analytics reports the booked ratio for each of the organizer's events.
func (s *EventService) Analytics(ctx context.Context, organizerID uuid.UUID) ([]EventAnalytics, error) {
	events, err := s.events.ListByOrganizer(ctx, organizerID)
	if err != nil {
		return nil, err
	}
	out := make([]EventAnalytics, 0, len(events))
	for i := range events {
		e := events[i]
		out = append(out, EventAnalytics{
			Event:         &e,
			BookedTickets: e.BookedTickets(),
			PercentBooked: e.PercentBooked(),
		})
	}
	return out, nil
}

// Update edits an event owned by actor (or any event when actor is an
// admin). Changing the ticket total shifts the remaining count by the
// same delta so already-sold tickets stay sold.
func (s *EventService) Update(ctx context.Context, id uuid.UUID, actor *domain.User, input EventInput) (*domain.Event, error) {
	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		if notFound(err) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	if !canManage(event, actor) {
		return nil, ErrEventForbidden
	}
	if err := validateEventInput(input); err != nil {
		return nil, err
	}

	booked := event.BookedTickets()
	if input.TotalTickets < booked {
		return nil, ErrTicketCountBelowBooked
	}

	event.Title = strings.TrimSpace(input.Title)
	event.Description = strings.TrimSpace(input.Description)
	event.Date = input.Date
	event.Location = strings.TrimSpace(input.Location)
	event.Categories = pq.StringArray(normalizeCategories(input.Categories))
	event.TicketPrice = input.TicketPrice
	event.RemainingTickets = input.TotalTickets - booked
	event.TotalTickets = input.TotalTickets

	return s.events.Update(ctx, event)
}

// SetStatus is the admin approval decision.
func (s *EventService) SetStatus(ctx context.Context, id uuid.UUID, status string) (*domain.Event, error) {
	if !domain.ValidEventStatus(status) {
		return nil, ErrInvalidEventStatus
	}
	event, err := s.events.UpdateStatus(ctx, id, status)
	if err != nil {
		if notFound(err) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return event, nil
}

func (s *EventService) Delete(ctx context.Context, id uuid.UUID, actor *domain.User) error {
	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		if notFound(err) {
			return ErrEventNotFound
		}
		return err
	}
	if !canManage(event, actor) {
		return ErrEventForbidden
	}
	return s.events.Delete(ctx, id)
}

// UploadPoster normalizes the uploaded image, stores it and records the
// public URL on the event.
func (s *EventService) UploadPoster(ctx context.Context, id uuid.UUID, actor *domain.User, upload PosterUpload) (*domain.Event, error) {
	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		if notFound(err) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	if !canManage(event, actor) {
		return nil, ErrEventForbidden
	}

	if upload.Reader == nil || upload.Size <= 0 {
		return nil, ErrPosterRequired
	}
	if s.posterMaxBytes > 0 && upload.Size > s.posterMaxBytes {
		return nil, ErrPosterTooLarge
	}
	if _, ok := supportedPosterTypes[strings.ToLower(strings.TrimSpace(upload.ContentType))]; !ok {
		return nil, ErrPosterUnsupportedType
	}

	result, err := s.processor.Process(ctx, media.Upload{
		Reader:      upload.Reader,
		Size:        upload.Size,
		FileName:    upload.FileName,
		ContentType: upload.ContentType,
	}, s.posterMaxDim)
	if err != nil {
		return nil, fmt.Errorf("process poster: %w", err)
	}

	objectName := fmt.Sprintf("events/%s/poster-%d.jpg", event.ID, time.Now().UnixNano())
	url, err := s.storage.Upload(ctx, s.posterBucket, objectName, result.ContentType,
		bytes.NewReader(result.Bytes), int64(len(result.Bytes)))
	if err != nil {
		return nil, fmt.Errorf("store poster: %w", err)
	}

	if err := s.events.UpdatePosterURL(ctx, event.ID, url); err != nil {
		return nil, err
	}
	event.PosterURL = &url
	return event, nil
}

func canManage(event *domain.Event, actor *domain.User) bool {
	if actor == nil {
		return false
	}
	return actor.IsAdmin() || event.OrganizerID == actor.ID
}

func validateEventInput(input EventInput) error {
	var problems []string
	if strings.TrimSpace(input.Title) == "" {
		problems = append(problems, "title is required")
	}
	if strings.TrimSpace(input.Location) == "" {
		problems = append(problems, "location is required")
	}
	if input.Date.IsZero() {
		problems = append(problems, "date is required")
	}
	if input.TicketPrice < 0 {
		problems = append(problems, "ticket price cannot be negative")
	}
	if input.TotalTickets <= 0 {
		problems = append(problems, "total tickets must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrEventValidation, strings.Join(problems, "; "))
	}
	return nil
}

func normalizeCategories(categories []string) []string {
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		trimmed := strings.ToLower(strings.TrimSpace(c))
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
