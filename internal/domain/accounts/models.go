package accounts

import (
	"errors"
	"time"
)

// Domain errors
var (
	// ErrAccountNotFound is returned when a bank link id resolves to no
	// record, or the linked account no longer appears at the aggregator.
	ErrAccountNotFound = errors.New("account not found")

	// ErrForbidden is returned when a bank link belongs to another user.
	ErrForbidden = errors.New("access forbidden")

	// ErrAggregatorRead is a transient failure fetching balances or
	// transactions for one link.
	ErrAggregatorRead = errors.New("aggregator read failed")

	// ErrSyncBudgetExceeded is returned when the transaction sync feed keeps
	// reporting more pages past the configured budget.
	ErrSyncBudgetExceeded = errors.New("transaction sync page budget exceeded")
)

// Ledger entry direction.
const (
	TypeDebit  = "debit"
	TypeCredit = "credit"
)

// Account is the ephemeral per-request view of one linked bank account,
// combining the stored bank link with live aggregator balances.
type Account struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	OfficialName     string  `json:"officialName"`
	Mask             string  `json:"mask"`
	Type             string  `json:"type"`
	Subtype          string  `json:"subtype"`
	InstitutionID    string  `json:"institutionId"`
	InstitutionName  string  `json:"institutionName,omitempty"`
	AvailableBalance float64 `json:"availableBalance"`
	CurrentBalance   float64 `json:"currentBalance"`
	BankLinkID       string  `json:"bankLinkId"`
	ShareableID      string  `json:"shareableId"`
}

// AccountList is the flat list of account views plus the rollups. The
// rollups reflect only successfully fetched accounts.
type AccountList struct {
	Accounts            []Account `json:"accounts"`
	TotalBanks          int       `json:"totalBanks"`
	TotalCurrentBalance float64   `json:"totalCurrentBalance"`
}

// Transaction is the normalized ledger entry shape shared by
// aggregator-sourced and transfer-sourced records.
type Transaction struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Amount         float64   `json:"amount"`
	Date           time.Time `json:"date"`
	PaymentChannel string    `json:"paymentChannel"`
	Category       string    `json:"category"`
	Pending        bool      `json:"pending"`
	Type           string    `json:"type"`
}

// AccountDetail is one account view plus its merged, date-descending ledger.
type AccountDetail struct {
	Account      Account       `json:"account"`
	Transactions []Transaction `json:"transactions"`
}
