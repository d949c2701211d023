package domain

import "time"

// PendingAuthorization is the server-side half of an in-flight authorization
// request. It is written when the user is redirected to the provider and read
// back exactly once when the provider calls the redirect URI.
//
// The code verifier never leaves this record; only its S256 challenge is sent
// upstream. A user has at most one pending request at a time, so starting a
// new flow invalidates the previous one.
type PendingAuthorization struct {
	UserID        string
	State         string
	Nonce         string
	CodeVerifier  string
	CodeChallenge string
	CreatedAt     time.Time
}
