package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/docuchat/admin-gateway/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrNotAuthorized):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, domain.ErrPolicyViolation):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, domain.ErrSessionNotReady):
		return http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, domain.ErrNoRefreshToken):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, domain.ErrRefreshFailed):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, domain.ErrUpstreamUnreachable):
		return http.StatusBadGateway, err.Error()
	case errors.Is(err, domain.ErrConversationNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrEmptyBody):
		return http.StatusBadGateway, err.Error()
	}

	// Upstream rejections that carry their own status are relayed as 502
	// with the upstream's message, so the SPA can display it.
	var ue *domain.UpstreamStatusError
	if errors.As(err, &ue) {
		return http.StatusBadGateway, ue.Error()
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
