package stitchsdk

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// parseErrorResponse turns a non-2xx token response into a typed error.
// Providers are expected to return the RFC 6749 error shape; anything else
// becomes a generic server_error carrying the HTTP status.
func parseErrorResponse(statusCode int, body []byte) error {
	var errResp Error
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Code != "" {
		errResp.StatusCode = statusCode
		return &errResp
	}

	return &Error{
		StatusCode:  statusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", statusCode, http.StatusText(statusCode)),
	}
}
