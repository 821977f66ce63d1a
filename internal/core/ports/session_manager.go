package ports

import (
	"context"

	"github.com/docuchat/admin-gateway/internal/core/domain"
)

// SessionManager owns the gateway's single upstream session.
//
// Snapshot and Subscribe expose whole-session values: a consumer never
// observes a token without its user or vice versa. Login, Logout and
// Refresh are the only mutators.
type SessionManager interface {
	// Init restores persisted credentials. It performs no network calls and
	// always leaves the session with Loading == false.
	Init(ctx context.Context) error

	// Login authenticates against the upstream and, when the identity
	// passes the user-type policy, persists credentials and promotes the
	// session to ready. The returned error is also recorded in the
	// session's Error field.
	Login(ctx context.Context, username, password string) (*domain.User, error)

	// Logout clears durable and in-memory state. Idempotent.
	Logout(ctx context.Context) error

	// Refresh renews the access token. A call that finds another refresh
	// in flight returns (false, nil) without touching the network.
	Refresh(ctx context.Context) (bool, error)

	// Snapshot returns the current session state by value.
	Snapshot() domain.Session

	// Subscribe returns a channel of session snapshots, one per state
	// transition, and a cancel function releasing the subscription.
	Subscribe() (<-chan domain.Session, func())

	// Token returns the current access token, or "" when absent.
	Token() string

	// Close disposes the manager: stops the expiry watcher and suppresses
	// state application by any still-running operation.
	Close()
}
