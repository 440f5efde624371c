package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"horizon/internal/domain/accounts"
	"horizon/internal/shared/middleware"
)

// AccountsHandler serves the aggregated account views.
type AccountsHandler struct {
	accounts *accounts.Service
}

func NewAccountsHandler(accountsService *accounts.Service) *AccountsHandler {
	return &AccountsHandler{accounts: accountsService}
}

// HandleList returns every linked account with live balances and rollups.
func (h *AccountsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	list, err := h.accounts.ListAccounts(r.Context(), userID)
	if err != nil {
		log.Printf("Error listing accounts for user %s: %v", userID, err)
		http.Error(w, "Failed to list accounts", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

// HandleDetail returns one account with its merged transaction ledger.
func (h *AccountsHandler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	bankLinkID := r.PathValue("id")
	if bankLinkID == "" {
		http.Error(w, "Account ID is required", http.StatusBadRequest)
		return
	}

	detail, err := h.accounts.GetAccountDetail(r.Context(), bankLinkID, userID)
	if err != nil {
		switch {
		case errors.Is(err, accounts.ErrAccountNotFound):
			http.Error(w, "Account not found", http.StatusNotFound)
		case errors.Is(err, accounts.ErrForbidden):
			http.Error(w, "Forbidden", http.StatusForbidden)
		case errors.Is(err, accounts.ErrAggregatorRead), errors.Is(err, accounts.ErrSyncBudgetExceeded):
			log.Printf("Error reading account %s for user %s: %v", bankLinkID, userID, err)
			http.Error(w, "Bank data temporarily unavailable", http.StatusBadGateway)
		default:
			log.Printf("Error getting account %s for user %s: %v", bankLinkID, userID, err)
			http.Error(w, "Failed to get account", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(detail)
}
