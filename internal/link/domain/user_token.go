package domain

import "time"

// UserToken is a linked user's credential pair as issued by the provider.
// ExpiresAt is absolute wall-clock time derived from the provider's
// expires_in at the moment the response was received.
type UserToken struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ExpiresWithin reports whether the access token is expired, or will expire
// inside the given skew window. Callers refresh eagerly rather than racing
// the deadline with an API call in flight.
func (t UserToken) ExpiresWithin(skew time.Duration, now time.Time) bool {
	return !now.Add(skew).Before(t.ExpiresAt)
}
