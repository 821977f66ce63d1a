package domain

import "time"

// Session is the in-memory session state owned by the session manager.
// It is always handed out by value so observers can never see a
// half-applied transition.
type Session struct {
	User        *User  `json:"user,omitempty"`
	AccessToken string `json:"-"`
	Loading     bool   `json:"loading"`
	Ready       bool   `json:"ready"`
	Error       string `json:"error,omitempty"`
}

// Authenticated reports whether both a token and an identity are present.
// Ready implies Authenticated; the converse does not hold while a restored
// session is still being prepared.
func (s Session) Authenticated() bool {
	return s.AccessToken != "" && s.User != nil
}

// Credentials is the durable counterpart of a session: what the token store
// persists so the session survives gateway restarts.
type Credentials struct {
	AccessToken  string
	ExpiresAt    time.Time
	RefreshToken string
	User         *User
}

// TokenPair is what the upstream auth endpoints return on login and refresh.
// ExpiresIn is in seconds; RefreshToken and User are empty on refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
	User         *User  `json:"user,omitempty"`
}
