package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/evently/evently-api/internal/domain"
	"github.com/evently/evently-api/internal/service"
	"github.com/evently/evently-api/internal/util"
)

type UserHandler struct {
	auth *service.AuthService
}

func RegisterUsers(e *echo.Echo, auth *service.AuthService) {
	handler := &UserHandler{auth: auth}

	group := e.Group("/api/v1/users", RequireAuth(auth))
	group.GET("/profile", handler.profile)
	group.PUT("/profile", handler.updateProfile)

	admin := group.Group("", RequireRole(domain.RoleAdmin))
	admin.GET("", handler.list)
	admin.GET("/:id", handler.get)
	admin.PUT("/:id", handler.updateRole)
	admin.DELETE("/:id", handler.remove)
}

func (h *UserHandler) profile(c echo.Context) error {
	user, _ := CurrentUser(c)
	return c.JSON(http.StatusOK, util.OK("user", buildAuthUser(user)))
}

func (h *UserHandler) updateProfile(c echo.Context) error {
	user, _ := CurrentUser(c)

	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Fail("invalid request body"))
	}

	updated, err := h.auth.UpdateProfile(c.Request().Context(), user.ID, req.Name, req.ImageURL)
	if err != nil {
		return h.writeUserError(c, err)
	}
	return c.JSON(http.StatusOK, util.OK("user", buildAuthUser(updated)))
}

func (h *UserHandler) list(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	users, err := h.auth.ListUsers(c.Request().Context(), limit, offset)
	if err != nil {
		return h.writeUserError(c, err)
	}
	out := make([]AuthUser, 0, len(users))
	for i := range users {
		out = append(out, buildAuthUser(&users[i]))
	}
	return c.JSON(http.StatusOK, util.OK("users", out))
}

func (h *UserHandler) get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Fail("invalid user id"))
	}
	user, err := h.auth.GetUser(c.Request().Context(), id)
	if err != nil {
		return h.writeUserError(c, err)
	}
	return c.JSON(http.StatusOK, util.OK("user", buildAuthUser(user)))
}

func (h *UserHandler) updateRole(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Fail("invalid user id"))
	}

	var req UpdateUserRoleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Fail("invalid request body"))
	}

	user, err := h.auth.UpdateUserRole(c.Request().Context(), id, req.Role)
	if err != nil {
		return h.writeUserError(c, err)
	}
	return c.JSON(http.StatusOK, util.OK("user", buildAuthUser(user)))
}

func (h *UserHandler) remove(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Fail("invalid user id"))
	}
	if err := h.auth.DeleteUser(c.Request().Context(), id); err != nil {
		return h.writeUserError(c, err)
	}
	return c.JSON(http.StatusOK, util.OK())
}

func (h *UserHandler) writeUserError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrAccountNotFound):
		return c.JSON(http.StatusNotFound, util.Fail("User not found"))
	case errors.Is(err, service.ErrInvalidRole):
		return c.JSON(http.StatusBadRequest, util.Fail(err.Error()))
	default:
		c.Logger().Errorf("users: %v", err)
		return c.JSON(http.StatusInternalServerError, util.Fail(msgServerError))
	}
}
