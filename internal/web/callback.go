package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ledgerworks/stitchlink/internal/link/service"
	"github.com/ledgerworks/stitchlink/pkg/httpx"
)

// CallbackHandler receives the provider's redirect and completes the flow.
type CallbackHandler struct {
	Links  *service.Manager
	Logger *slog.Logger
}

func (h *CallbackHandler) Handle(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		httpx.WriteJSON(w, http.StatusBadRequest, map[string]string{
			"error": "no session; start at /login",
		})
		return
	}

	query := r.URL.Query()

	// The provider reports consent denials and its own errors as query
	// parameters rather than a code.
	if providerErr := query.Get("error"); providerErr != "" {
		h.Logger.Warn("provider returned error on redirect",
			"user_id", userID, "error", providerErr, "description", query.Get("error_description"))
		httpx.WriteJSON(w, http.StatusBadRequest, map[string]string{
			"error":             providerErr,
			"error_description": query.Get("error_description"),
		})
		return
	}

	state := query.Get("state")
	code := query.Get("code")
	if state == "" || code == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, map[string]string{
			"error": "missing state or code parameter",
		})
		return
	}

	err := h.Links.Complete(r.Context(), userID, state, code)
	switch {
	case errors.Is(err, service.ErrNoPendingRequest):
		httpx.WriteJSON(w, http.StatusConflict, map[string]string{
			"error": "no authorization in progress; start at /login",
		})
	case errors.Is(err, service.ErrStateMismatch):
		httpx.WriteJSON(w, http.StatusForbidden, map[string]string{
			"error": "state mismatch",
		})
	case errors.Is(err, service.ErrTokenExchangeFailed):
		h.Logger.Error("token exchange failed", "user_id", userID, "error", err)
		httpx.WriteJSON(w, http.StatusBadGateway, map[string]string{
			"error": "token exchange failed; retry the redirect",
		})
	case err != nil:
		h.Logger.Error("failed to complete authorization", "user_id", userID, "error", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to complete authorization",
		})
	default:
		http.Redirect(w, r, "/accounts", http.StatusFound)
	}
}
