package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/evently/evently-api/internal/service"
	"github.com/evently/evently-api/internal/util"
)

// User-facing messages for the MFA endpoints. Wrong-email and
// wrong-password share one message; malformed and expired challenge
// tokens share another. Both pairs are deliberately indistinguishable.
const (
	msgInvalidCredentials = "Invalid credentials"
	msgChallengeExpired   = "Verification session expired. Please login again."
	msgInvalidChallenge   = "Invalid verification attempt"
	msgInvalidOTP         = "Invalid or expired verification code"
	msgServerError        = "Something went wrong. Please try again."
	msgEmailDelivery      = "Could not send the verification email. Please try again."
)

type AuthHandler struct {
	auth *service.AuthService
}

func RegisterAuth(e *echo.Echo, auth *service.AuthService) {
	handler := &AuthHandler{auth: auth}

	group := e.Group("/api/v1/auth")
	group.POST("/register", handler.register)
	group.POST("/login", handler.login)
	group.POST("/verify-otp", handler.verifyOTP)
	group.POST("/resend-otp", handler.resendOTP)
	group.POST("/google", handler.googleLogin)
	group.POST("/logout", handler.logout, RequireAuth(auth))
	group.PUT("/forgetPassword", handler.forgetPassword)
	group.PUT("/resetPassword/:token", handler.resetPassword)
}

func (h *AuthHandler) register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Fail("invalid request body"))
	}

	result, err := h.auth.Register(c.Request().Context(), req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailAlreadyUsed):
			return c.JSON(http.StatusBadRequest, util.Fail("Email already registered"))
		case errors.Is(err, service.ErrPasswordTooWeak), errors.Is(err, service.ErrInvalidRole):
			return c.JSON(http.StatusBadRequest, util.Fail(err.Error()))
		default:
			return h.serverError(c, err)
		}
	}

	return c.JSON(http.StatusCreated, util.OK(
		"token", result.Token,
		"user", buildAuthUser(result.User),
	))
}

// login runs the password step. A successful response never carries a
// session token, only the MFA challenge.
func (h *AuthHandler) login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Fail("invalid request body"))
	}

	challenge, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			return c.JSON(http.StatusUnauthorized, util.Fail(msgInvalidCredentials))
		case errors.Is(err, service.ErrEmailDelivery):
			return c.JSON(http.StatusInternalServerError, util.Fail(msgEmailDelivery))
		default:
			return h.serverError(c, err)
		}
	}

	return c.JSON(http.StatusOK, util.OK(
		"requireMFA", true,
		"tempToken", challenge.TempToken,
		"email", challenge.Email,
	))
}

func (h *AuthHandler) verifyOTP(c echo.Context) error {
	tempToken, ok := bearerFromHeader(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Fail(msgChallengeExpired))
	}

	var req VerifyOTPRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Fail("invalid request body"))
	}

	result, err := h.auth.VerifyOTP(c.Request().Context(), tempToken, strings.TrimSpace(req.OTP))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrChallengeExpired):
			return c.JSON(http.StatusUnauthorized, util.Fail(msgChallengeExpired))
		case errors.Is(err, service.ErrInvalidChallenge), errors.Is(err, service.ErrAccountNotFound):
			return c.JSON(http.StatusUnauthorized, util.Fail(msgInvalidChallenge))
		case errors.Is(err, service.ErrInvalidOTP):
			return c.JSON(http.StatusUnauthorized, util.Fail(msgInvalidOTP))
		default:
			return h.serverError(c, err)
		}
	}

	return c.JSON(http.StatusOK, util.OK(
		"token", result.Token,
		"user", buildAuthUser(result.User),
	))
}

func (h *AuthHandler) resendOTP(c echo.Context) error {
	tempToken, ok := bearerFromHeader(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Fail(msgChallengeExpired))
	}

	challenge, err := h.auth.ResendOTP(c.Request().Context(), tempToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrChallengeExpired):
			return c.JSON(http.StatusUnauthorized, util.Fail(msgChallengeExpired))
		case errors.Is(err, service.ErrInvalidChallenge), errors.Is(err, service.ErrAccountNotFound):
			return c.JSON(http.StatusUnauthorized, util.Fail(msgInvalidChallenge))
		case errors.Is(err, service.ErrEmailDelivery):
			return c.JSON(http.StatusInternalServerError, util.Fail(msgEmailDelivery))
		default:
			return h.serverError(c, err)
		}
	}

	return c.JSON(http.StatusOK, util.OK(
		"message", "A new verification code has been sent to your email",
		"tempToken", challenge.TempToken,
	))
}

func (h *AuthHandler) googleLogin(c echo.Context) error {
	var req GoogleLoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Fail("invalid request body"))
	}

	result, err := h.auth.LoginWithGoogle(c.Request().Context(), req.IDToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			return c.JSON(http.StatusUnauthorized, util.Fail(msgInvalidCredentials))
		case errors.Is(err, service.ErrGoogleDisabled):
			return c.JSON(http.StatusNotImplemented, util.Fail("Google sign-in is not enabled"))
		default:
			return h.serverError(c, err)
		}
	}

	return c.JSON(http.StatusOK, util.OK(
		"token", result.Token,
		"user", buildAuthUser(result.User),
	))
}

// logout is stateless: tokens are not revocable server-side, the client
// simply discards its copy.
func (h *AuthHandler) logout(c echo.Context) error {
	return c.JSON(http.StatusOK, util.OK())
}

func (h *AuthHandler) forgetPassword(c echo.Context) error {
	var req ForgetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Fail("invalid request body"))
	}

	err := h.auth.RequestPasswordReset(c.Request().Context(), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailNotFound):
			// Unlike login, this endpoint discloses whether the email is
			// registered. Kept for client compatibility.
			return c.JSON(http.StatusNotFound, util.Fail("No account found with that email"))
		case errors.Is(err, service.ErrEmailDelivery):
			return c.JSON(http.StatusInternalServerError, util.Fail(msgEmailDelivery))
		default:
			return h.serverError(c, err)
		}
	}

	return c.JSON(http.StatusOK, util.OK(
		"message", "A password reset link has been sent to your email",
	))
}

func (h *AuthHandler) resetPassword(c echo.Context) error {
	token := strings.TrimSpace(c.Param("token"))

	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Fail("invalid request body"))
	}

	err := h.auth.ResetPassword(c.Request().Context(), token, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidResetToken):
			return c.JSON(http.StatusBadRequest, util.Fail("Invalid or expired reset token"))
		case errors.Is(err, service.ErrPasswordTooWeak):
			return c.JSON(http.StatusBadRequest, util.Fail(err.Error()))
		default:
			return h.serverError(c, err)
		}
	}

	return c.JSON(http.StatusOK, util.OK(
		"message", "Password has been reset successfully",
	))
}

func (h *AuthHandler) serverError(c echo.Context, err error) error {
	c.Logger().Errorf("auth: %v", err)
	return c.JSON(http.StatusInternalServerError, util.Fail(msgServerError))
}
