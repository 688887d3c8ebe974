package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/evently/evently-api/internal/domain"
	"github.com/evently/evently-api/internal/service"
	"github.com/evently/evently-api/internal/util"
)

type EventHandler struct {
	events *service.EventService
}

func RegisterEvents(e *echo.Echo, auth *service.AuthService, events *service.EventService) {
	handler := &EventHandler{events: events}

	public := e.Group("/api/v1/events")
	public.GET("", handler.listApproved)

	authed := e.Group("/api/v1/events", RequireAuth(auth))
	authed.GET("/all", handler.listAll, RequireRole(domain.RoleAdmin))
	authed.POST("", handler.create, RequireRole(domain.RoleOrganizer, domain.RoleAdmin))
	authed.PUT("/:id", handler.update)
	authed.DELETE("/:id", handler.remove)
	authed.PUT("/:id/status", handler.setStatus, RequireRole(domain.RoleAdmin))
	authed.POST("/:id/poster", handler.uploadPoster)

	// Detail stays public for approved events; an optional bearer token
	// lets organizers and admins see their pending ones.
	public.GET("/:id", handler.get, optionalAuth(auth))

	organizer := e.Group("/api/v1/users/events", RequireAuth(auth), RequireRole(domain.RoleOrganizer, domain.RoleAdmin))
	organizer.GET("", handler.listOwn)
	organizer.GET("/analytics", handler.analytics)
}

// optionalAuth attaches the account when a valid session token is present
// but lets anonymous requests through.
func optionalAuth(auth *service.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token, ok := bearerFromHeader(c); ok {
				if user, err := auth.Authenticate(c.Request().Context(), token); err == nil {
					c.Set(contextUserKey, user)
				}
			}
			return next(c)
		}
	}
}

type eventRequest struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Date         string   `json:"date"`
	Location     string   `json:"location"`
	Categories   []string `json:"categories"`
	TicketPrice  float64  `json:"ticket_price"`
	TotalTickets int      `json:"total_tickets"`
}

func (r *eventRequest) toInput() (service.EventInput, error) {
	date, err := time.Parse(time.RFC3339, r.Date)
	if err != nil {
		return service.EventInput{}, errors.New("date must be RFC3339")
	}
	return service.EventInput{
		Title:        r.Title,
		Description:  r.Description,
		Date:         date,
		Location:     r.Location,
		Categories:   r.Categories,
		TicketPrice:  r.TicketPrice,
		TotalTickets: r.TotalTickets,
	}, nil
}

func (h *EventHandler) create(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok || user == nil {
		return c.JSON(http.StatusUnauthorized, util.Fail("authentication required"))
	}

	var req eventRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Fail("invalid request body"))
	}
	input, err := req.toInput()
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Fail(err.Error()))
	}

	event, err := h.events.Create(c.Request().Context(), user.ID, input)
	if err != nil {
		return h.writeEventError(c, err)
	}
	return c.JSON(http.StatusCreated, util.OK("event", event))
}

func (h *EventHandler) listApproved(c echo.Context) error {
	limit, offset := pageParams(c)
	events, err := h.events.ListApproved(c.Request().Context(), limit, offset)
	if err != nil {
		return h.writeEventError(c, err)
	}
	return c.JSON(http.StatusOK, util.OK("events", events))
}

func (h *EventHandler) listAll(c echo.Context) error {
	limit, offset := pageParams(c)
	events, err := h.events.ListAll(c.Request().Context(), limit, offset)
	if err != nil {
		return h.writeEventError(c, err)
	}
	return c.JSON(http.StatusOK, util.OK("events", events))
}

func (h *EventHandler) listOwn(c echo.Context) error {
	user, _ := CurrentUser(c)
	events, err := h.events.ListByOrganizer(c.Request().Context(), user.ID)
	if err != nil {
		return h.writeEventError(c, err)
	}
	return c.JSON(http.StatusOK, util.OK("events", events))
}

func (h *EventHandler) analytics(c echo.Context) error {
	user, _ := CurrentUser(c)
	analytics, err := h.events.Analytics(c.Request().Context(), user.ID)
	if err != nil {
		return h.writeEventError(c, err)
	}
	return c.JSON(http.StatusOK, util.OK("analytics", analytics))
}

func (h *EventHandler) get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Fail("invalid event id"))
	}
	viewer, _ := CurrentUser(c)
	event, err := h.events.Get(c.Request().Context(), id, viewer)
	if err != nil {
		return h.writeEventError(c, err)
	}
	return c.JSON(http.StatusOK, util.OK("event", event))
}

func (h *EventHandler) update(c echo.Context) error {
	user, _ := CurrentUser(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Fail("invalid event id"))
	}

	var req eventRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Fail("invalid request body"))
	}
	input, err := req.toInput()
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Fail(err.Error()))
	}

	event, err := h.events.Update(c.Request().Context(), id, user, input)
	if err != nil {
		return h.writeEventError(c, err)
	}
	return c.JSON(http.StatusOK, util.OK("event", event))
}

func (h *EventHandler) setStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Fail("invalid event id"))
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Fail("invalid request body"))
	}

	event, err := h.events.SetStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return h.writeEventError(c, err)
	}
	return c.JSON(http.StatusOK, util.OK("event", event))
}

func (h *EventHandler) remove(c echo.Context) error {
	user, _ := CurrentUser(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Fail("invalid event id"))
	}
	if err := h.events.Delete(c.Request().Context(), id, user); err != nil {
		return h.writeEventError(c, err)
	}
	return c.JSON(http.StatusOK, util.OK())
}

func (h *EventHandler) uploadPoster(c echo.Context) error {
	user, _ := CurrentUser(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Fail("invalid event id"))
	}

	fileHeader, err := c.FormFile("poster")
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Fail("poster file is required"))
	}
	file, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Fail("unable to read poster file"))
	}
	defer file.Close()

	event, err := h.events.UploadPoster(c.Request().Context(), id, user, service.PosterUpload{
		Reader:      file,
		Size:        fileHeader.Size,
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get(echo.HeaderContentType),
	})
	if err != nil {
		return h.writeEventError(c, err)
	}
	return c.JSON(http.StatusOK, util.OK("event", event))
}

func (h *EventHandler) writeEventError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrEventNotFound):
		return c.JSON(http.StatusNotFound, util.Fail("Event not found"))
	case errors.Is(err, service.ErrEventForbidden):
		return c.JSON(http.StatusForbidden, util.Fail("Not allowed to manage this event"))
	case errors.Is(err, service.ErrEventValidation),
		errors.Is(err, service.ErrInvalidEventStatus),
		errors.Is(err, service.ErrTicketCountBelowBooked),
		errors.Is(err, service.ErrPosterRequired),
		errors.Is(err, service.ErrPosterTooLarge),
		errors.Is(err, service.ErrPosterUnsupportedType):
		return c.JSON(http.StatusBadRequest, util.Fail(err.Error()))
	default:
		c.Logger().Errorf("events: %v", err)
		return c.JSON(http.StatusInternalServerError, util.Fail(msgServerError))
	}
}

func pageParams(c echo.Context) (int, int) {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	return limit, offset
}
