package domain

import "encoding/json"

// User models the identity returned by the upstream identity service.
// Fields beyond the ones the gateway inspects are carried opaquely in Extra
// so the SPA sees exactly what the upstream sent.
type User struct {
	Username string `json:"username"`
	UserType string `json:"user_type"`
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// DecodeUser parses a stored or upstream user snapshot. A snapshot that is
// not valid JSON, or that lacks the fields the gateway relies on, decodes to
// nil — callers treat that the same as an absent snapshot.
func DecodeUser(data []byte) *User {
	if len(data) == 0 {
		return nil
	}

	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil
	}
	if u.Username == "" || u.UserType == "" {
		return nil
	}

	var extra map[string]json.RawMessage
	if err := json.Unmarshal(data, &extra); err == nil {
		delete(extra, "username")
		delete(extra, "user_type")
		delete(extra, "full_name")
		delete(extra, "email")
		if len(extra) > 0 {
			u.Extra = extra
		}
	}
	return &u
}

// Encode serialises the user for durable storage, preserving opaque fields.
func (u *User) Encode() ([]byte, error) {
	if len(u.Extra) == 0 {
		return json.Marshal(u)
	}

	merged := make(map[string]json.RawMessage, len(u.Extra)+4)
	for k, v := range u.Extra {
		merged[k] = v
	}
	base, err := json.Marshal(u)
	if err != nil {
		return nil, err
	}
	var own map[string]json.RawMessage
	if err := json.Unmarshal(base, &own); err != nil {
		return nil, err
	}
	for k, v := range own {
		merged[k] = v
	}
	return json.Marshal(merged)
}
