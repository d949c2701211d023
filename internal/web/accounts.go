package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ledgerworks/stitchlink/internal/link/resource"
	"github.com/ledgerworks/stitchlink/pkg/httpx"
)

// bankAccountsQuery is the sample data call: the linked user's accounts
// with their current balances.
const bankAccountsQuery = `query BankAccounts {
  user {
    bankAccounts {
      id
      name
      accountNumber
      accountType
      currentBalance
    }
  }
}`

// AccountsHandler fetches the linked user's bank accounts from the data API.
// It doubles as a smoke test for the whole token lifecycle: a stale access
// token gets refreshed on the way through.
type AccountsHandler struct {
	Resources *resource.Client
	Logger    *slog.Logger
}

func (h *AccountsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		httpx.WriteJSON(w, http.StatusUnauthorized, map[string]string{
			"error": "not linked; start at /login",
		})
		return
	}

	data, err := h.Resources.Execute(r.Context(), userID, bankAccountsQuery, nil)
	switch {
	case errors.Is(err, resource.ErrUnauthenticated):
		httpx.WriteJSON(w, http.StatusUnauthorized, map[string]string{
			"error": "not linked; start at /login",
		})
	case err != nil:
		h.Logger.Error("accounts query failed", "user_id", userID, "error", err)
		httpx.WriteJSON(w, http.StatusBadGateway, map[string]string{
			"error": "failed to fetch accounts",
		})
	default:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
