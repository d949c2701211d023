package stitchsdk

import "fmt"

// TokenResponse is the provider's token-endpoint success payload.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
}

// OAuth2 error codes per RFC 6749 that the provider returns on rejected
// grants. InvalidGrant in particular means the code or refresh token itself
// was rejected, as opposed to a transport fault.
const (
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeInvalidClient  = "invalid_client"
	ErrorCodeInvalidGrant   = "invalid_grant"
	ErrorCodeInvalidScope   = "invalid_scope"
	ErrorCodeServerError    = "server_error"
)

// Error is a provider rejection decoded from a non-2xx token response.
type Error struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *Error) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// GrantRejected reports whether the provider definitively rejected the grant
// itself. Callers treat this differently from transient failures: a rejected
// refresh token means stored credentials are dead and must be discarded.
func (e *Error) GrantRejected() bool {
	switch e.Code {
	case ErrorCodeInvalidGrant, ErrorCodeInvalidClient, ErrorCodeInvalidScope:
		return true
	}
	return false
}
