package web

import (
	"net/http"

	"github.com/oklog/ulid/v2"
)

// userCookie identifies the browser across the redirect round-trip. This is
// a demo session, not authentication; an integrator would derive the user id
// from their own logged-in session instead.
const userCookie = "stitchlink_user"

// sessionUserID returns the user id bound to this browser, minting and
// setting one when absent.
func sessionUserID(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(userCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	userID := ulid.Make().String()
	http.SetCookie(w, &http.Cookie{
		Name:     userCookie,
		Value:    userID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return userID
}

// currentUserID returns the user id without minting a new one.
func currentUserID(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(userCookie)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}
