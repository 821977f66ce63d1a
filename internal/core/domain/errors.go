package domain

import (
	"errors"
	"fmt"
)

var ErrUpstreamUnreachable = errors.New("upstream service unreachable")
var ErrInvalidCredentials = errors.New("invalid username or password")
var ErrNotAuthorized = errors.New("not authorized to sign in")
var ErrPolicyViolation = errors.New("only management accounts may hold an admin session")
var ErrNoRefreshToken = errors.New("no refresh token stored")
var ErrRefreshFailed = errors.New("token refresh rejected by upstream")
var ErrSessionNotReady = errors.New("upstream session not ready")
var ErrEmptyBody = errors.New("empty or unparsable response body")
var ErrConversationNotFound = errors.New("conversation not found")

// UpstreamStatusError reports a non-2xx upstream response that does not map
// to a more specific sentinel. The status and a body excerpt are preserved
// for the error message the SPA displays.
type UpstreamStatusError struct {
	Status int
	Body   string
}

func (e *UpstreamStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream returned status %d", e.Status)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.Status, e.Body)
}
