package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/docuchat/admin-gateway/internal/core/domain"
)

const testUserType = "Cán bộ quản lý"

var managerSnapshot = []byte(`{"username":"chi","user_type":"Cán bộ quản lý"}`)

type stubTokenStore struct {
	mu      sync.Mutex
	access  string
	expiry  time.Time
	refresh string
	userRaw []byte
	margin  time.Duration

	saveSessions int
	saveTokens   int
	clears       int
}

func (s *stubTokenStore) Load(_ context.Context) (domain.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	creds := domain.Credentials{
		AccessToken:  s.access,
		ExpiresAt:    s.expiry,
		RefreshToken: s.refresh,
		User:         domain.DecodeUser(s.userRaw),
	}
	if creds.AccessToken != "" && creds.ExpiresAt.IsZero() {
		creds.AccessToken = ""
	}
	return creds, nil
}

func (s *stubTokenStore) SaveSession(_ context.Context, creds domain.Credentials) error {
	raw, err := creds.User.Encode()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = creds.AccessToken
	s.expiry = creds.ExpiresAt
	s.refresh = creds.RefreshToken
	s.userRaw = raw
	s.saveSessions++
	return nil
}

func (s *stubTokenStore) SaveAccessToken(_ context.Context, token string, expiresIn time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = token
	s.expiry = time.Now().Add(expiresIn)
	s.saveTokens++
	return nil
}

func (s *stubTokenStore) RefreshToken(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refresh, nil
}

func (s *stubTokenStore) IsExpiringSoon(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.access == "" {
		return true, nil
	}
	return time.Until(s.expiry) < s.margin, nil
}

func (s *stubTokenStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = ""
	s.expiry = time.Time{}
	s.refresh = ""
	s.userRaw = nil
	s.clears++
	return nil
}

func (s *stubTokenStore) state() (access, refresh string, saves, clears int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access, s.refresh, s.saveSessions, s.clears
}

type stubAuthAPI struct {
	mu           sync.Mutex
	loginCalls   int
	refreshCalls int
	loginFn      func(username, password string) (domain.TokenPair, error)
	refreshFn    func(refreshToken string) (domain.TokenPair, error)
}

func (a *stubAuthAPI) Login(_ context.Context, username, password string) (domain.TokenPair, error) {
	a.mu.Lock()
	a.loginCalls++
	a.mu.Unlock()
	return a.loginFn(username, password)
}

func (a *stubAuthAPI) Refresh(_ context.Context, refreshToken string) (domain.TokenPair, error) {
	a.mu.Lock()
	a.refreshCalls++
	a.mu.Unlock()
	return a.refreshFn(refreshToken)
}

func (a *stubAuthAPI) calls() (login, refresh int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loginCalls, a.refreshCalls
}

func goodLogin(username, password string) (domain.TokenPair, error) {
	return domain.TokenPair{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresIn:    3600,
		User:         &domain.User{Username: username, UserType: testUserType},
	}, nil
}

func newTestService(store *stubTokenStore, api *stubAuthAPI) *SessionService {
	return NewSessionService(store, api, testUserType, time.Minute, zerolog.Nop())
}

func TestInit_RestoresSessionWithoutNetwork(t *testing.T) {
	store := &stubTokenStore{
		access:  "stored-token",
		expiry:  time.Now().Add(time.Hour),
		refresh: "stored-refresh",
		userRaw: managerSnapshot,
		margin:  2 * time.Minute,
	}
	api := &stubAuthAPI{}
	svc := newTestService(store, api)
	defer svc.Close()

	if err := svc.Init(context.Background()); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}

	snap := svc.Snapshot()
	if !snap.Ready || snap.Loading {
		t.Fatalf("expected ready session after restore, got %+v", snap)
	}
	if !snap.Authenticated() {
		t.Fatalf("expected authenticated session")
	}
	if snap.User.Username != "chi" {
		t.Fatalf("unexpected user: %+v", snap.User)
	}
	if login, refresh := api.calls(); login != 0 || refresh != 0 {
		t.Fatalf("restore must not touch the network: login=%d refresh=%d", login, refresh)
	}
}

func TestInit_CorruptSnapshotClearsStore(t *testing.T) {
	store := &stubTokenStore{
		access:  "stored-token",
		expiry:  time.Now().Add(time.Hour),
		userRaw: []byte("{not json"),
		margin:  2 * time.Minute,
	}
	svc := newTestService(store, &stubAuthAPI{})
	defer svc.Close()

	if err := svc.Init(context.Background()); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}

	snap := svc.Snapshot()
	if snap.Authenticated() || snap.Ready || snap.Loading {
		t.Fatalf("expected empty session after corrupt restore, got %+v", snap)
	}
	if access, _, _, clears := store.state(); access != "" || clears == 0 {
		t.Fatalf("expected store cleared, access=%q clears=%d", access, clears)
	}
}

func TestInit_EmptyStoreEndsUnauthenticated(t *testing.T) {
	store := &stubTokenStore{margin: 2 * time.Minute}
	svc := newTestService(store, &stubAuthAPI{})
	defer svc.Close()

	if err := svc.Init(context.Background()); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}
	snap := svc.Snapshot()
	if snap.Loading || snap.Authenticated() {
		t.Fatalf("expected clean unauthenticated state, got %+v", snap)
	}
}

func TestLogin_PublishesAtomicTransition(t *testing.T) {
	store := &stubTokenStore{margin: 2 * time.Minute}
	api := &stubAuthAPI{loginFn: goodLogin}
	svc := newTestService(store, api)
	defer svc.Close()
	_ = svc.Init(context.Background())

	ch, cancel := svc.Subscribe()
	defer cancel()

	user, err := svc.Login(context.Background(), "chi", "s3cret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if user.Username != "chi" {
		t.Fatalf("unexpected user: %+v", user)
	}

	// Drain published snapshots: none may show a token without its user or
	// authenticated-but-not-ready state.
	sawReady := false
	for done := false; !done; {
		select {
		case snap := <-ch:
			tokenOnly := snap.AccessToken != "" && snap.User == nil
			userOnly := snap.AccessToken == "" && snap.User != nil
			if tokenOnly || userOnly {
				t.Fatalf("observed torn snapshot: %+v", snap)
			}
			if snap.Authenticated() != snap.Ready {
				t.Fatalf("observed authenticated != ready: %+v", snap)
			}
			if snap.Ready {
				sawReady = true
				done = true
			}
		case <-time.After(time.Second):
			done = true
		}
	}
	if !sawReady {
		t.Fatalf("never observed the ready snapshot")
	}
}

func TestLogin_PolicyRejectionLeavesStoreUntouched(t *testing.T) {
	store := &stubTokenStore{margin: 2 * time.Minute}
	api := &stubAuthAPI{
		loginFn: func(username, _ string) (domain.TokenPair, error) {
			return domain.TokenPair{
				AccessToken: "access-1",
				ExpiresIn:   3600,
				User:        &domain.User{Username: username, UserType: "Nhân viên"},
			}, nil
		},
	}
	svc := newTestService(store, api)
	defer svc.Close()
	_ = svc.Init(context.Background())

	_, err := svc.Login(context.Background(), "staff", "pw")
	if !errors.Is(err, domain.ErrPolicyViolation) {
		t.Fatalf("expected ErrPolicyViolation, got %v", err)
	}

	if access, refresh, saves, _ := store.state(); access != "" || refresh != "" || saves != 0 {
		t.Fatalf("policy rejection must not persist anything: access=%q refresh=%q saves=%d", access, refresh, saves)
	}
	snap := svc.Snapshot()
	if snap.Authenticated() || snap.Ready || snap.Loading {
		t.Fatalf("policy rejection must not mutate session, got %+v", snap)
	}
	if snap.Error == "" {
		t.Fatalf("expected policy error recorded")
	}
}

func TestLogin_ErrorTaxonomy(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"bad credentials", domain.ErrInvalidCredentials},
		{"not authorized", domain.ErrNotAuthorized},
		{"upstream unreachable", fmt.Errorf("%w: connection refused", domain.ErrUpstreamUnreachable)},
		{"other status", &domain.UpstreamStatusError{Status: 500, Body: "boom"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &stubTokenStore{margin: 2 * time.Minute}
			api := &stubAuthAPI{
				loginFn: func(string, string) (domain.TokenPair, error) { return domain.TokenPair{}, tc.err },
			}
			svc := newTestService(store, api)
			defer svc.Close()
			_ = svc.Init(context.Background())

			_, err := svc.Login(context.Background(), "chi", "pw")
			if !errors.Is(err, tc.err) && err.Error() != tc.err.Error() {
				t.Fatalf("expected %v, got %v", tc.err, err)
			}

			snap := svc.Snapshot()
			if snap.Authenticated() || snap.Loading {
				t.Fatalf("failed login must not mutate token/user state: %+v", snap)
			}
			if snap.Error != tc.err.Error() {
				t.Fatalf("expected error %q recorded, got %q", tc.err.Error(), snap.Error)
			}
			if _, _, saves, _ := store.state(); saves != 0 {
				t.Fatalf("failed login must not persist")
			}
		})
	}
}

func TestRefresh_SingleFlight(t *testing.T) {
	store := &stubTokenStore{
		access:  "old-token",
		expiry:  time.Now().Add(time.Minute),
		refresh: "refresh-1",
		userRaw: managerSnapshot,
		margin:  2 * time.Minute,
	}
	block := make(chan struct{})
	api := &stubAuthAPI{
		refreshFn: func(string) (domain.TokenPair, error) {
			<-block
			return domain.TokenPair{AccessToken: "new-token", ExpiresIn: 3600}, nil
		},
	}
	svc := newTestService(store, api)
	defer svc.Close()
	_ = svc.Init(context.Background())

	first := make(chan struct{})
	var firstOK bool
	var firstErr error
	go func() {
		firstOK, firstErr = svc.Refresh(context.Background())
		close(first)
	}()

	// Wait until the first refresh holds the guard (it is blocked inside
	// the stub network call).
	deadline := time.Now().Add(time.Second)
	for {
		if _, refreshCalls := api.calls(); refreshCalls == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("first refresh never reached the network")
		}
		time.Sleep(time.Millisecond)
	}

	ok, err := svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("concurrent refresh returned error: %v", err)
	}
	if ok {
		t.Fatalf("concurrent refresh must be a no-op")
	}

	close(block)
	<-first
	if firstErr != nil || !firstOK {
		t.Fatalf("first refresh failed: ok=%v err=%v", firstOK, firstErr)
	}

	if _, refreshCalls := api.calls(); refreshCalls != 1 {
		t.Fatalf("expected exactly one refresh call, got %d", refreshCalls)
	}
	if svc.Token() != "new-token" {
		t.Fatalf("token not updated: %q", svc.Token())
	}
}

func TestRefresh_MissingRefreshTokenForcesLogout(t *testing.T) {
	store := &stubTokenStore{
		access:  "old-token",
		expiry:  time.Now().Add(time.Minute),
		userRaw: managerSnapshot,
		margin:  2 * time.Minute,
	}
	svc := newTestService(store, &stubAuthAPI{})
	defer svc.Close()
	_ = svc.Init(context.Background())

	ok, err := svc.Refresh(context.Background())
	if ok || !errors.Is(err, domain.ErrNoRefreshToken) {
		t.Fatalf("expected ErrNoRefreshToken, got ok=%v err=%v", ok, err)
	}

	snap := svc.Snapshot()
	if snap.Authenticated() {
		t.Fatalf("expected logged-out session, got %+v", snap)
	}
	if snap.Error == "" {
		t.Fatalf("expected error recorded")
	}
	if access, _, _, clears := store.state(); access != "" || clears == 0 {
		t.Fatalf("expected store cleared")
	}
}

func TestRefresh_UpstreamFailureForcesLogout(t *testing.T) {
	store := &stubTokenStore{
		access:  "old-token",
		expiry:  time.Now().Add(time.Minute),
		refresh: "refresh-1",
		userRaw: managerSnapshot,
		margin:  2 * time.Minute,
	}
	api := &stubAuthAPI{
		refreshFn: func(string) (domain.TokenPair, error) {
			return domain.TokenPair{}, domain.ErrNotAuthorized
		},
	}
	svc := newTestService(store, api)
	defer svc.Close()
	_ = svc.Init(context.Background())

	ok, err := svc.Refresh(context.Background())
	if ok || !errors.Is(err, domain.ErrRefreshFailed) {
		t.Fatalf("expected ErrRefreshFailed, got ok=%v err=%v", ok, err)
	}
	if svc.Snapshot().Authenticated() {
		t.Fatalf("expected session ended after failed refresh")
	}
	if access, refresh, _, _ := store.state(); access != "" || refresh != "" {
		t.Fatalf("expected store cleared after failed refresh")
	}
}

func TestLogout_Idempotent(t *testing.T) {
	store := &stubTokenStore{margin: 2 * time.Minute}
	api := &stubAuthAPI{loginFn: goodLogin}
	svc := newTestService(store, api)
	defer svc.Close()
	_ = svc.Init(context.Background())

	if _, err := svc.Login(context.Background(), "chi", "pw"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if err := svc.Logout(context.Background()); err != nil {
		t.Fatalf("first logout failed: %v", err)
	}
	after := svc.Snapshot()

	if err := svc.Logout(context.Background()); err != nil {
		t.Fatalf("second logout failed: %v", err)
	}
	if svc.Snapshot() != after {
		t.Fatalf("logout is not idempotent: %+v vs %+v", svc.Snapshot(), after)
	}
	if access, refresh, _, _ := store.state(); access != "" || refresh != "" {
		t.Fatalf("store holds residue after logout")
	}
	if after.Authenticated() || after.Ready || after.Error != "" {
		t.Fatalf("logout must reset the session, got %+v", after)
	}
}

func TestClose_SuppressesInFlightLogin(t *testing.T) {
	store := &stubTokenStore{margin: 2 * time.Minute}
	block := make(chan struct{})
	api := &stubAuthAPI{
		loginFn: func(username, password string) (domain.TokenPair, error) {
			<-block
			return goodLogin(username, password)
		},
	}
	svc := newTestService(store, api)
	_ = svc.Init(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := svc.Login(context.Background(), "chi", "pw")
		done <- err
	}()

	deadline := time.Now().Add(time.Second)
	for {
		if loginCalls, _ := api.calls(); loginCalls == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("login never started")
		}
		time.Sleep(time.Millisecond)
	}

	svc.Close()
	close(block)

	if err := <-done; !errors.Is(err, ErrManagerClosed) {
		t.Fatalf("expected ErrManagerClosed, got %v", err)
	}
	if _, _, saves, _ := store.state(); saves != 0 {
		t.Fatalf("disposed login must not persist anything")
	}
	if snap := svc.Snapshot(); snap.Authenticated() {
		t.Fatalf("disposed login must not mutate state: %+v", snap)
	}
}

func TestWatcher_RefreshesExpiringToken(t *testing.T) {
	store := &stubTokenStore{
		access:  "old-token",
		expiry:  time.Now().Add(30 * time.Second), // inside the safety margin
		refresh: "refresh-1",
		userRaw: managerSnapshot,
		margin:  2 * time.Minute,
	}
	api := &stubAuthAPI{
		refreshFn: func(string) (domain.TokenPair, error) {
			return domain.TokenPair{AccessToken: "new-token", ExpiresIn: 3600}, nil
		},
	}
	svc := NewSessionService(store, api, testUserType, 10*time.Millisecond, zerolog.Nop())
	defer svc.Close()
	_ = svc.Init(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for {
		if svc.Token() == "new-token" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("watcher never refreshed the expiring token")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, refreshCalls := api.calls(); refreshCalls == 0 {
		t.Fatalf("expected at least one refresh call")
	}
}

func TestSubscribe_DeliversCurrentStateFirst(t *testing.T) {
	store := &stubTokenStore{margin: 2 * time.Minute}
	svc := newTestService(store, &stubAuthAPI{})
	defer svc.Close()
	_ = svc.Init(context.Background())

	ch, cancel := svc.Subscribe()
	defer cancel()

	select {
	case snap := <-ch:
		if snap != svc.Snapshot() {
			t.Fatalf("first delivery is not the current state: %+v", snap)
		}
	case <-time.After(time.Second):
		t.Fatalf("no initial snapshot delivered")
	}
}
