package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/docuchat/admin-gateway/internal/core/domain"
)

func TestHTTPErrorHandler_StatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid credentials", domain.ErrInvalidCredentials, http.StatusBadRequest},
		{"not authorized", domain.ErrNotAuthorized, http.StatusUnauthorized},
		{"policy violation", domain.ErrPolicyViolation, http.StatusForbidden},
		{"session not ready", domain.ErrSessionNotReady, http.StatusServiceUnavailable},
		{"no refresh token", domain.ErrNoRefreshToken, http.StatusUnauthorized},
		{"refresh failed", fmt.Errorf("%w: upstream said no", domain.ErrRefreshFailed), http.StatusUnauthorized},
		{"upstream unreachable", fmt.Errorf("%w: connection refused", domain.ErrUpstreamUnreachable), http.StatusBadGateway},
		{"conversation not found", domain.ErrConversationNotFound, http.StatusNotFound},
		{"empty upstream body", domain.ErrEmptyBody, http.StatusBadGateway},
		{"upstream status error", &domain.UpstreamStatusError{Status: 503, Body: "maintenance"}, http.StatusBadGateway},
		{"echo http error", echo.NewHTTPError(http.StatusNotFound, "not found"), http.StatusNotFound},
		{"unknown error", errors.New("kaboom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			NewHTTPErrorHandler(zerolog.Nop())(tc.err, c)

			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("response is not the error envelope: %s", rec.Body.String())
			}
			if body.Error == "" {
				t.Fatalf("error message missing")
			}
		})
	}
}

func TestHTTPErrorHandler_HidesInternalDetails(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	NewHTTPErrorHandler(zerolog.Nop())(errors.New("pq: relation admin_secrets does not exist"), c)

	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if body.Error != "internal server error" {
		t.Fatalf("internal detail leaked: %q", body.Error)
	}
}

func TestHTTPErrorHandler_SkipsCommittedResponse(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	_ = c.NoContent(http.StatusOK)

	NewHTTPErrorHandler(zerolog.Nop())(errors.New("late failure"), c)

	if rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Fatalf("committed response was rewritten: %d %q", rec.Code, rec.Body.String())
	}
}
