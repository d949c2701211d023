package web

import (
	"log/slog"
	"net/http"

	"github.com/ledgerworks/stitchlink/internal/link/service"
	"github.com/ledgerworks/stitchlink/pkg/httpx"
)

// LoginHandler starts the authorization flow and redirects the browser to
// the provider's consent screen. Hitting it again before completing simply
// starts a fresh flow.
type LoginHandler struct {
	Links  *service.Manager
	Logger *slog.Logger
}

func (h *LoginHandler) Handle(w http.ResponseWriter, r *http.Request) {
	userID := sessionUserID(w, r)

	redirectURL, err := h.Links.Initiate(r.Context(), userID)
	if err != nil {
		h.Logger.Error("failed to start authorization flow", "error", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to start authorization flow",
		})
		return
	}

	http.Redirect(w, r, redirectURL, http.StatusFound)
}
