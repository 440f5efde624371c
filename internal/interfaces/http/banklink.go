package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"horizon/internal/domain/banklink"
	"horizon/internal/shared/middleware"
)

// BankLinkHandler serves link-token issuance and public-token exchange.
type BankLinkHandler struct {
	links *banklink.Service
}

func NewBankLinkHandler(links *banklink.Service) *BankLinkHandler {
	return &BankLinkHandler{links: links}
}

type LinkTokenResponse struct {
	LinkToken string `json:"linkToken"`
}

type ExchangeRequest struct {
	PublicToken string `json:"publicToken"`
}

// HandleCreateLinkToken issues a token for the client-side link widget.
func (h *BankLinkHandler) HandleCreateLinkToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	token, err := h.links.CreateLinkToken(r.Context(), userID)
	if err != nil {
		log.Printf("Error creating link token for user %s: %v", userID, err)
		http.Error(w, "Failed to create link token", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(LinkTokenResponse{LinkToken: token})
}

// HandleExchange links every account the user authorized at an institution.
// A partial success is still a 201; the body reports per-account outcomes.
func (h *BankLinkHandler) HandleExchange(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req ExchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.PublicToken == "" {
		http.Error(w, "Public token is required", http.StatusBadRequest)
		return
	}

	result, err := h.links.LinkBank(r.Context(), userID, req.PublicToken)
	if err != nil {
		switch {
		case errors.Is(err, banklink.ErrExchange):
			http.Error(w, "Public token rejected", http.StatusBadRequest)
		case errors.Is(err, banklink.ErrCustomerProvisioning):
			http.Error(w, "Payment customer could not be provisioned", http.StatusUnprocessableEntity)
		case errors.Is(err, banklink.ErrTimeout):
			http.Error(w, "Payment provider timed out", http.StatusGatewayTimeout)
		default:
			log.Printf("Error linking bank for user %s: %v", userID, err)
			http.Error(w, "Failed to link bank", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if result.AllFailed() {
		w.WriteHeader(http.StatusBadGateway)
	} else {
		w.WriteHeader(http.StatusCreated)
	}
	json.NewEncoder(w).Encode(result)
}
