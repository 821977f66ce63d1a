package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/docuchat/admin-gateway/internal/core/domain"
	"github.com/docuchat/admin-gateway/internal/core/ports"
)

// SessionHandler exposes the upstream session to the SPA. Tokens never
// appear in any response; the SPA only sees identity, readiness and the
// last error.
type SessionHandler struct {
	session ports.SessionManager
}

func NewSessionHandler(session ports.SessionManager) *SessionHandler {
	return &SessionHandler{session: session}
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type sessionResponse struct {
	Authenticated bool         `json:"authenticated"`
	Ready         bool         `json:"ready"`
	Loading       bool         `json:"loading"`
	User          *domain.User `json:"user,omitempty"`
	Error         string       `json:"error,omitempty"`
}

type refreshResponse struct {
	Refreshed bool `json:"refreshed"`
}

func toSessionResponse(s domain.Session) sessionResponse {
	return sessionResponse{
		Authenticated: s.Authenticated(),
		Ready:         s.Ready,
		Loading:       s.Loading,
		User:          s.User,
		Error:         s.Error,
	}
}

// State returns the current session snapshot.
//
// @Summary      Current session state
// @Tags         session
// @Produce      json
// @Success      200  {object}  sessionResponse
// @Router       /api/session [get]
func (h *SessionHandler) State(c echo.Context) error {
	return c.JSON(http.StatusOK, toSessionResponse(h.session.Snapshot()))
}

// Login establishes the upstream session.
//
// @Summary      Log in against the upstream
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Credentials"
// @Success      200   {object}  sessionResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/session/login [post]
func (h *SessionHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if _, err := h.session.Login(c.Request().Context(), req.Username, req.Password); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSessionResponse(h.session.Snapshot()))
}

// Logout tears the session down. Safe to call when already logged out.
//
// @Summary      Log out
// @Tags         session
// @Produce      json
// @Success      200  {object}  sessionResponse
// @Router       /api/session [delete]
func (h *SessionHandler) Logout(c echo.Context) error {
	if err := h.session.Logout(c.Request().Context()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSessionResponse(h.session.Snapshot()))
}

// Refresh forces a token renewal. A refresh already in flight reports
// refreshed=false without a second upstream call.
//
// @Summary      Refresh the access token
// @Tags         session
// @Produce      json
// @Success      200  {object}  refreshResponse
// @Failure      401  {object}  map[string]string
// @Router       /api/session/refresh [post]
func (h *SessionHandler) Refresh(c echo.Context) error {
	refreshed, err := h.session.Refresh(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, refreshResponse{Refreshed: refreshed})
}

// Watch streams session snapshots as server-sent events, one event per
// state transition, starting with the current state.
//
// @Summary      Stream session state changes
// @Tags         session
// @Produce      text/event-stream
// @Success      200
// @Router       /api/session/watch [get]
func (h *SessionHandler) Watch(c echo.Context) error {
	ch, cancel := h.session.Subscribe()
	defer cancel()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-ch:
			if !ok {
				return nil
			}
			payload, err := json.Marshal(toSessionResponse(snap))
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}
