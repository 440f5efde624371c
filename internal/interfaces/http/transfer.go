package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/shopspring/decimal"

	"horizon/internal/domain/transfer"
	"horizon/internal/shared/middleware"
)

// TransferHandler serves transfer initiation between linked banks.
type TransferHandler struct {
	transfers *transfer.Service
}

func NewTransferHandler(transfers *transfer.Service) *TransferHandler {
	return &TransferHandler{transfers: transfers}
}

type CreateTransferRequest struct {
	SourceBankLinkID       string `json:"sourceBankLinkId"`
	DestinationShareableID string `json:"destinationShareableId"`
	Amount                 string `json:"amount"`
	Note                   string `json:"note"`
}

// HandleCreate initiates a transfer to the account behind a shareable id.
func (h *TransferHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req CreateTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		http.Error(w, "Invalid amount", http.StatusBadRequest)
		return
	}

	record, err := h.transfers.Create(r.Context(), userID, transfer.Params{
		SourceBankLinkID:     req.SourceBankLinkID,
		DestinationShareable: req.DestinationShareableID,
		Amount:               amount,
		Note:                 req.Note,
	})
	if err != nil {
		switch {
		case errors.Is(err, transfer.ErrInvalidAmount):
			http.Error(w, "Transfer amount must be positive", http.StatusBadRequest)
		case errors.Is(err, transfer.ErrSourceNotFound):
			http.Error(w, "Source bank not found", http.StatusNotFound)
		case errors.Is(err, transfer.ErrDestinationNotFound):
			http.Error(w, "Destination bank not found", http.StatusNotFound)
		case errors.Is(err, transfer.ErrForbidden):
			http.Error(w, "Forbidden", http.StatusForbidden)
		default:
			log.Printf("Error creating transfer for user %s: %v", userID, err)
			http.Error(w, "Failed to create transfer", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(record)
}
