package transfer

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Domain errors
var (
	ErrSourceNotFound      = errors.New("source bank link not found")
	ErrDestinationNotFound = errors.New("destination bank link not found")
	ErrInvalidAmount       = errors.New("transfer amount must be positive")
	ErrForbidden           = errors.New("access forbidden")
)

// Default classification applied to transfer records in the merged ledger.
const (
	CategoryTransfer = "Transfer"
	ChannelOnline    = "online"
)

// Transaction is a locally recorded transfer between two linked banks.
// Unlike aggregator feed entries, these are persisted when the transfer is
// initiated through the payment rail.
type Transaction struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Amount         float64   `json:"amount"`
	SenderID       string    `json:"senderId"`
	ReceiverID     string    `json:"receiverId"`
	SenderBankID   string    `json:"senderBankId"`
	ReceiverBankID string    `json:"receiverBankId"`
	Category       string    `json:"category"`
	Channel        string    `json:"channel"`
	CreatedAt      time.Time `json:"createdAt"`
}

// CreateParams contains the fields persisted for a new transfer record.
type CreateParams struct {
	Name           string
	Amount         float64
	SenderID       string
	ReceiverID     string
	SenderBankID   string
	ReceiverBankID string
}

// Params describes a transfer a user wants to initiate.
type Params struct {
	SourceBankLinkID     string
	DestinationShareable string
	Amount               decimal.Decimal
	Note                 string
}
