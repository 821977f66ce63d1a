package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/docuchat/admin-gateway/internal/core/domain"
)

// Storage keys for the persisted session. The values mirror what the SPA
// used to keep in browser storage; holding them server-side means the
// upstream session survives gateway restarts and is never exposed to the
// browser.
const (
	keyAccessToken  = "session:access_token"
	keyTokenExpiry  = "session:access_token_expiry"
	keyRefreshToken = "session:refresh_token"
	keyUserData     = "session:user_data"
)

// TokenStore is a Redis-backed durable credential store.
type TokenStore struct {
	client *redis.Client
	margin time.Duration
	now    func() time.Time
}

// NewTokenStore wraps the given client. margin is the expiry safety margin
// used by IsExpiringSoon; it must exceed the refresh-check interval.
func NewTokenStore(client *redis.Client, margin time.Duration) *TokenStore {
	return &TokenStore{client: client, margin: margin, now: time.Now}
}

// Load reads all persisted credentials in a single round-trip. A user
// snapshot that does not decode is reported as absent, not as an error.
func (s *TokenStore) Load(ctx context.Context) (domain.Credentials, error) {
	vals, err := s.client.MGet(ctx, keyAccessToken, keyTokenExpiry, keyRefreshToken, keyUserData).Result()
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("load credentials: %w", err)
	}

	creds := domain.Credentials{
		AccessToken:  asString(vals[0]),
		RefreshToken: asString(vals[2]),
	}
	if raw := asString(vals[1]); raw != "" {
		if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
			creds.ExpiresAt = time.Unix(unix, 0).UTC()
		}
	}
	creds.User = domain.DecodeUser([]byte(asString(vals[3])))

	// A token without a well-formed expiry is unusable; report it absent so
	// the caller takes the corrupt-state path.
	if creds.AccessToken != "" && creds.ExpiresAt.IsZero() {
		creds.AccessToken = ""
	}
	return creds, nil
}

// SaveSession persists a full credential set transactionally.
func (s *TokenStore) SaveSession(ctx context.Context, creds domain.Credentials) error {
	if creds.User == nil {
		return fmt.Errorf("save session: missing user snapshot")
	}
	snapshot, err := creds.User.Encode()
	if err != nil {
		return fmt.Errorf("save session: encode user: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, keyAccessToken, creds.AccessToken, 0)
	pipe.Set(ctx, keyTokenExpiry, strconv.FormatInt(creds.ExpiresAt.Unix(), 10), 0)
	pipe.Set(ctx, keyRefreshToken, creds.RefreshToken, 0)
	pipe.Set(ctx, keyUserData, snapshot, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// SaveAccessToken replaces the access token and its absolute expiry after a
// refresh. Refresh token and user snapshot are left untouched.
func (s *TokenStore) SaveAccessToken(ctx context.Context, token string, expiresIn time.Duration) error {
	expiry := s.now().Add(expiresIn)

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, keyAccessToken, token, 0)
	pipe.Set(ctx, keyTokenExpiry, strconv.FormatInt(expiry.Unix(), 10), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save access token: %w", err)
	}
	return nil
}

// RefreshToken returns the stored refresh token, or "" when absent.
func (s *TokenStore) RefreshToken(ctx context.Context) (string, error) {
	val, err := s.client.Get(ctx, keyRefreshToken).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read refresh token: %w", err)
	}
	return val, nil
}

// IsExpiringSoon reports whether the token is absent or expires within the
// safety margin. Missing or malformed expiry counts as expiring.
func (s *TokenStore) IsExpiringSoon(ctx context.Context) (bool, error) {
	vals, err := s.client.MGet(ctx, keyAccessToken, keyTokenExpiry).Result()
	if err != nil {
		return false, fmt.Errorf("expiry check: %w", err)
	}

	token := asString(vals[0])
	if token == "" {
		return true, nil
	}
	unix, err := strconv.ParseInt(asString(vals[1]), 10, 64)
	if err != nil {
		return true, nil
	}
	return time.Unix(unix, 0).Sub(s.now()) < s.margin, nil
}

// Clear removes the whole credential set in one DEL, so no reader can
// observe a partial clear. Safe to call on an empty store.
func (s *TokenStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, keyAccessToken, keyTokenExpiry, keyRefreshToken, keyUserData).Err(); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
