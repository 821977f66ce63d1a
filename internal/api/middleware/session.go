package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/docuchat/admin-gateway/internal/core/ports"
)

// RequireReady gates proxied routes on the upstream session.
//
// While the session is initialising the SPA should keep showing its
// preparing indicator, so a loading session answers 503 (retryable); an
// established-but-absent session answers 401 to send the SPA back to the
// login form.
func RequireReady(session ports.SessionManager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			snap := session.Snapshot()
			switch {
			case snap.Ready:
				return next(c)
			case snap.Loading:
				return echo.NewHTTPError(http.StatusServiceUnavailable, "session is initialising")
			default:
				return echo.NewHTTPError(http.StatusUnauthorized, "no active upstream session")
			}
		}
	}
}
