package ports

import (
	"context"
	"time"

	"github.com/docuchat/admin-gateway/internal/core/domain"
)

// TokenStore persists upstream credentials across gateway restarts.
// Implementations confine side effects to the storage medium; they never
// talk to the upstream service.
type TokenStore interface {
	// Load reads the persisted credentials. A corrupt user snapshot is
	// returned as Credentials.User == nil rather than an error; an empty
	// store yields zero-value Credentials.
	Load(ctx context.Context) (domain.Credentials, error)

	// SaveSession persists a full credential set after login. Writes are
	// atomic from the perspective of concurrent readers.
	SaveSession(ctx context.Context, creds domain.Credentials) error

	// SaveAccessToken replaces the access token and its absolute expiry
	// (now + expiresIn) after a refresh, leaving the refresh token and the
	// user snapshot in place.
	SaveAccessToken(ctx context.Context, token string, expiresIn time.Duration) error

	// RefreshToken returns the stored refresh token, or "" when absent.
	RefreshToken(ctx context.Context) (string, error)

	// IsExpiringSoon reports whether the access token is absent, has no
	// recorded expiry, or expires within the store's safety margin.
	IsExpiringSoon(ctx context.Context) (bool, error)

	// Clear removes token, expiry, refresh token and user snapshot as one
	// observable operation. Clearing an empty store is a no-op.
	Clear(ctx context.Context) error
}
