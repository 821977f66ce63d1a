package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/docuchat/admin-gateway/internal/api/metrics"
	"github.com/docuchat/admin-gateway/internal/core/domain"
	"github.com/docuchat/admin-gateway/internal/core/ports"
)

// ErrManagerClosed is returned by operations that resolve after Close; any
// state they would have applied has been discarded.
var ErrManagerClosed = errors.New("session manager closed")

// SessionService owns the gateway's single upstream session: restore on
// start, login, logout, silent refresh, and the periodic expiry check.
//
// All state transitions are applied under one mutex and published to
// subscribers as whole snapshots. Operations capture the generation counter
// when they start and apply nothing if it has moved (logout and Close bump
// it), so an in-flight login cannot resurrect a session that was torn down
// beneath it.
type SessionService struct {
	store            ports.TokenStore
	api              ports.AuthAPI
	requiredUserType string
	checkInterval    time.Duration
	log              zerolog.Logger

	mu        sync.Mutex
	session   domain.Session
	gen       uint64
	closed    bool
	subs      map[uint64]chan domain.Session
	nextSubID uint64
	stopWatch chan struct{}

	refreshing atomic.Bool
}

// NewSessionService builds a manager in the Initializing state
// (Loading == true, everything else empty). Call Init to restore persisted
// credentials and Close when the gateway shuts down.
func NewSessionService(store ports.TokenStore, api ports.AuthAPI, requiredUserType string, checkInterval time.Duration, log zerolog.Logger) *SessionService {
	return &SessionService{
		store:            store,
		api:              api,
		requiredUserType: requiredUserType,
		checkInterval:    checkInterval,
		log:              log,
		session:          domain.Session{Loading: true},
		subs:             make(map[uint64]chan domain.Session),
	}
}

// Init restores the session from the token store. It never touches the
// network: a stored token plus a parsable user snapshot promotes the
// session straight to ready in a single published transition; a token
// without a usable snapshot is treated as corrupt state and cleared.
func (s *SessionService) Init(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrManagerClosed
	}
	gen := s.gen
	s.session = domain.Session{Loading: true}
	s.publishLocked()
	s.mu.Unlock()

	creds, err := s.store.Load(ctx)
	if err != nil {
		s.apply(gen, func(sess *domain.Session) {
			sess.Loading = false
			sess.Error = "cannot read stored session: " + err.Error()
		})
		return fmt.Errorf("restore session: %w", err)
	}

	switch {
	case creds.AccessToken != "" && creds.User != nil:
		s.apply(gen, func(sess *domain.Session) {
			*sess = domain.Session{User: creds.User, AccessToken: creds.AccessToken, Ready: true}
		})
		s.log.Info().Str("username", creds.User.Username).Msg("session restored from store")

	case creds.AccessToken != "":
		// Token without a parsable user snapshot: corrupt state, clear it.
		s.log.Warn().Msg("stored session has no usable user snapshot, clearing")
		if err := s.Logout(ctx); err != nil {
			return err
		}

	default:
		s.apply(gen, func(sess *domain.Session) {
			*sess = domain.Session{}
		})
	}
	return nil
}

// Login authenticates against the upstream. Only the configured privileged
// user type may hold a session: any other identity is rejected without
// persisting or holding anything, even though the HTTP call succeeded.
// Loading is cleared on every exit path.
func (s *SessionService) Login(ctx context.Context, username, password string) (*domain.User, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrManagerClosed
	}
	gen := s.gen
	s.session.Loading = true
	s.session.Error = ""
	s.publishLocked()
	s.mu.Unlock()

	pair, err := s.api.Login(ctx, username, password)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues(loginResult(err)).Inc()
		s.apply(gen, func(sess *domain.Session) {
			sess.Loading = false
			sess.Error = err.Error()
		})
		return nil, err
	}

	if pair.AccessToken == "" || pair.User == nil {
		err := fmt.Errorf("%w: login response missing token or user", domain.ErrEmptyBody)
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		s.apply(gen, func(sess *domain.Session) {
			sess.Loading = false
			sess.Error = err.Error()
		})
		return nil, err
	}

	if pair.User.UserType != s.requiredUserType {
		metrics.LoginAttemptsTotal.WithLabelValues("policy_rejected").Inc()
		s.log.Warn().
			Str("username", pair.User.Username).
			Str("user_type", pair.User.UserType).
			Msg("login rejected by user-type policy")
		s.apply(gen, func(sess *domain.Session) {
			sess.Loading = false
			sess.Error = domain.ErrPolicyViolation.Error()
		})
		return nil, domain.ErrPolicyViolation
	}

	creds := domain.Credentials{
		AccessToken:  pair.AccessToken,
		ExpiresAt:    time.Now().Add(time.Duration(pair.ExpiresIn) * time.Second),
		RefreshToken: pair.RefreshToken,
		User:         pair.User,
	}

	// Liveness check before the persist as well: a login resolving after
	// logout or Close must leave no trace anywhere.
	if !s.alive(gen) {
		return nil, ErrManagerClosed
	}
	if err := s.store.SaveSession(ctx, creds); err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		s.apply(gen, func(sess *domain.Session) {
			sess.Loading = false
			sess.Error = "cannot persist session: " + err.Error()
		})
		return nil, err
	}

	if !s.apply(gen, func(sess *domain.Session) {
		*sess = domain.Session{User: pair.User, AccessToken: pair.AccessToken, Ready: true}
	}) {
		return nil, ErrManagerClosed
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	s.log.Info().Str("username", pair.User.Username).Msg("session established")
	return pair.User, nil
}

// Logout clears durable and in-memory state and stops the expiry watcher.
// Idempotent: logging out an absent session is a no-op that still returns
// the store to a known-empty state.
func (s *SessionService) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.gen++
	s.stopWatcherLocked()
	closed := s.closed
	s.mu.Unlock()

	err := s.store.Clear(ctx)

	if !closed {
		s.mu.Lock()
		s.session = domain.Session{}
		s.publishLocked()
		s.mu.Unlock()
	}

	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Refresh renews the access token using the stored refresh token. At most
// one refresh is in flight at a time: a concurrent caller gets (false, nil)
// without a network call. Any failure that exhausts the refresh path forces
// a full logout — no silent retry loop.
func (s *SessionService) Refresh(ctx context.Context) (bool, error) {
	if !s.refreshing.CompareAndSwap(false, true) {
		metrics.TokenRefreshTotal.WithLabelValues("skipped").Inc()
		return false, nil
	}
	defer s.refreshing.Store(false)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, ErrManagerClosed
	}
	gen := s.gen
	s.mu.Unlock()

	refreshToken, err := s.store.RefreshToken(ctx)
	if err != nil {
		metrics.TokenRefreshTotal.WithLabelValues("failure").Inc()
		s.setError("cannot read refresh token: " + err.Error())
		return false, err
	}
	if refreshToken == "" {
		metrics.TokenRefreshTotal.WithLabelValues("failure").Inc()
		if err := s.Logout(ctx); err != nil {
			s.log.Error().Err(err).Msg("logout after missing refresh token failed")
		}
		s.setError(domain.ErrNoRefreshToken.Error())
		return false, domain.ErrNoRefreshToken
	}

	pair, err := s.api.Refresh(ctx, refreshToken)
	if err != nil {
		metrics.TokenRefreshTotal.WithLabelValues("failure").Inc()
		s.log.Warn().Err(err).Msg("token refresh failed, ending session")
		if lerr := s.Logout(ctx); lerr != nil {
			s.log.Error().Err(lerr).Msg("logout after failed refresh failed")
		}
		s.setError("session expired: " + err.Error())
		return false, fmt.Errorf("%w: %v", domain.ErrRefreshFailed, err)
	}

	if !s.alive(gen) {
		return false, ErrManagerClosed
	}
	if err := s.store.SaveAccessToken(ctx, pair.AccessToken, time.Duration(pair.ExpiresIn)*time.Second); err != nil {
		metrics.TokenRefreshTotal.WithLabelValues("failure").Inc()
		s.setError("cannot persist refreshed token: " + err.Error())
		return false, err
	}

	if !s.apply(gen, func(sess *domain.Session) {
		sess.AccessToken = pair.AccessToken
		sess.Error = ""
	}) {
		return false, ErrManagerClosed
	}

	metrics.TokenRefreshTotal.WithLabelValues("success").Inc()
	s.log.Debug().Msg("access token refreshed")
	return true, nil
}

// Snapshot returns the current session state by value.
func (s *SessionService) Snapshot() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Token returns the current access token, or "" when absent.
func (s *SessionService) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.AccessToken
}

// Subscribe registers a snapshot channel. The current state is delivered
// immediately; afterwards one snapshot arrives per transition. A slow
// consumer may miss intermediate snapshots but never observes a torn one.
func (s *SessionService) Subscribe() (<-chan domain.Session, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan domain.Session, 16)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = ch
	ch <- s.session

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// Close disposes the manager: the watcher stops, subscriber channels close,
// and any operation still in flight applies nothing when it resolves.
func (s *SessionService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.gen++
	s.stopWatcherLocked()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	metrics.SessionReady.Set(0)
}

// apply runs fn on the session iff the manager is still live and gen is
// current, then reconciles the watcher and publishes. Reports whether the
// mutation was applied.
func (s *SessionService) apply(gen uint64, fn func(*domain.Session)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.gen != gen {
		return false
	}
	fn(&s.session)
	s.syncWatcherLocked()
	s.publishLocked()
	return true
}

func (s *SessionService) alive(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && s.gen == gen
}

// setError records a failure message without touching the rest of the
// session. Used after logout paths, where the reset state should still
// carry the reason the session ended.
func (s *SessionService) setError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.session.Error = msg
	s.publishLocked()
}

// publishLocked fans the current snapshot out to subscribers. Requires mu.
func (s *SessionService) publishLocked() {
	if s.session.Ready {
		metrics.SessionReady.Set(1)
	} else {
		metrics.SessionReady.Set(0)
	}
	for _, ch := range s.subs {
		select {
		case ch <- s.session:
		default:
		}
	}
}

// syncWatcherLocked starts the expiry watcher when a token is present and
// stops it when none is. At most one watcher runs regardless of how many
// transitions request one. Requires mu.
func (s *SessionService) syncWatcherLocked() {
	hasToken := s.session.AccessToken != ""
	switch {
	case hasToken && s.stopWatch == nil && !s.closed:
		stop := make(chan struct{})
		s.stopWatch = stop
		go s.watch(stop)
	case !hasToken && s.stopWatch != nil:
		s.stopWatcherLocked()
	}
}

func (s *SessionService) stopWatcherLocked() {
	if s.stopWatch != nil {
		close(s.stopWatch)
		s.stopWatch = nil
	}
}

// watch asks the store on every tick whether the token is about to expire
// and triggers a refresh when it is.
func (s *SessionService) watch(stop chan struct{}) {
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.checkInterval)
			soon, err := s.store.IsExpiringSoon(ctx)
			if err != nil {
				s.log.Warn().Err(err).Msg("expiry check failed")
				cancel()
				continue
			}
			if soon {
				if _, err := s.Refresh(ctx); err != nil && !errors.Is(err, ErrManagerClosed) {
					s.log.Warn().Err(err).Msg("scheduled refresh failed")
				}
			}
			cancel()
		}
	}
}

func loginResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrUpstreamUnreachable):
		return "upstream_unreachable"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "bad_credentials"
	case errors.Is(err, domain.ErrNotAuthorized):
		return "not_authorized"
	default:
		return "error"
	}
}
