package http

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/evently/evently-api/internal/service"
	"github.com/evently/evently-api/internal/util"
)

type BookingHandler struct {
	bookings *service.BookingService
}

func RegisterBookings(e *echo.Echo, auth *service.AuthService, bookings *service.BookingService) {
	handler := &BookingHandler{bookings: bookings}

	group := e.Group("/api/v1/bookings", RequireAuth(auth))
	group.POST("", handler.create)
	group.GET("/:id", handler.get)
	group.DELETE("/:id", handler.cancel)

	e.GET("/api/v1/users/bookings", handler.listOwn, RequireAuth(auth))
}

func (h *BookingHandler) create(c echo.Context) error {
	user, _ := CurrentUser(c)

	var req struct {
		EventID  string `json:"eventId"`
		Quantity int    `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Fail("invalid request body"))
	}
	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Fail("eventId must be a valid UUID"))
	}

	booking, err := h.bookings.Book(c.Request().Context(), user.ID, eventID, req.Quantity)
	if err != nil {
		return h.writeBookingError(c, err)
	}
	return c.JSON(http.StatusCreated, util.OK("booking", booking))
}

func (h *BookingHandler) get(c echo.Context) error {
	user, _ := CurrentUser(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Fail("invalid booking id"))
	}

	booking, err := h.bookings.Get(c.Request().Context(), id, user)
	if err != nil {
		return h.writeBookingError(c, err)
	}
	return c.JSON(http.StatusOK, util.OK("booking", booking))
}

func (h *BookingHandler) listOwn(c echo.Context) error {
	user, _ := CurrentUser(c)
	bookings, err := h.bookings.ListByUser(c.Request().Context(), user.ID)
	if err != nil {
		return h.writeBookingError(c, err)
	}
	return c.JSON(http.StatusOK, util.OK("bookings", bookings))
}

func (h *BookingHandler) cancel(c echo.Context) error {
	user, _ := CurrentUser(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Fail("invalid booking id"))
	}

	booking, err := h.bookings.Cancel(c.Request().Context(), id, user)
	if err != nil {
		return h.writeBookingError(c, err)
	}
	return c.JSON(http.StatusOK, util.OK("booking", booking))
}

func (h *BookingHandler) writeBookingError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrBookingNotFound), errors.Is(err, service.ErrEventNotFound):
		return c.JSON(http.StatusNotFound, util.Fail("Booking or event not found"))
	case errors.Is(err, service.ErrBookingForbidden):
		return c.JSON(http.StatusForbidden, util.Fail("Not allowed to access this booking"))
	case errors.Is(err, service.ErrEventNotBookable),
		errors.Is(err, service.ErrNotEnoughTickets),
		errors.Is(err, service.ErrInvalidTicketCount),
		errors.Is(err, service.ErrBookingNotActive):
		return c.JSON(http.StatusBadRequest, util.Fail(err.Error()))
	default:
		c.Logger().Errorf("bookings: %v", err)
		return c.JSON(http.StatusInternalServerError, util.Fail(msgServerError))
	}
}
