package banklink

import (
	"errors"
	"time"
)

// Domain errors
var (
	// ErrExchange is returned when the aggregator rejects the one-time
	// public token (expired, already used, or invalid). Nothing has been
	// persisted when this is returned.
	ErrExchange = errors.New("public token exchange failed")

	// ErrCustomerProvisioning is returned when the payment rail rejects
	// customer creation (invalid profile data or rail outage).
	ErrCustomerProvisioning = errors.New("payment customer provisioning failed")

	// ErrFundingSource is returned per account when the payment rail rejects
	// funding source creation. It never aborts sibling accounts.
	ErrFundingSource = errors.New("funding source creation failed")

	// ErrTimeout is returned when an external call exceeds its deadline.
	ErrTimeout = errors.New("external call deadline exceeded")

	// ErrNotFound is returned when a bank link id resolves to no record.
	ErrNotFound = errors.New("bank link not found")

	// ErrDuplicateLink is returned when a (user, account) pair is already linked.
	ErrDuplicateLink = errors.New("account already linked for user")
)

// BankLink is the persisted record tying a user to one account at a linked
// institution. AccessToken is decrypted on read and never serialized.
type BankLink struct {
	ID               string    `json:"id"`
	UserID           string    `json:"userId"`
	ItemID           string    `json:"itemId"`
	AccountID        string    `json:"accountId"`
	AccessToken      string    `json:"-"`
	FundingSourceURL string    `json:"-"`
	ShareableID      string    `json:"shareableId"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Usable reports whether the link carries everything needed for balance and
// transfer queries. A link missing either credential is an inconsistent
// partial state and must not be used.
func (b *BankLink) Usable() bool {
	return b.AccessToken != "" && b.FundingSourceURL != ""
}

// CreateParams contains the fields persisted for a new bank link.
type CreateParams struct {
	UserID           string
	ItemID           string
	AccountID        string
	AccessToken      string
	FundingSourceURL string
	ShareableID      string
}

// LinkedAccount is one successfully linked account within a LinkResult.
type LinkedAccount struct {
	BankLinkID       string `json:"bankLinkId"`
	AccountID        string `json:"accountId"`
	Name             string `json:"name"`
	FundingSourceURL string `json:"-"`
}

// AccountFailure reports one account whose provisioning failed.
type AccountFailure struct {
	AccountID string `json:"accountId"`
	Name      string `json:"name"`
	Reason    string `json:"reason"`
}

// LinkResult is the outcome of linking one institution. An institution may
// expose several accounts; each is provisioned independently, so the result
// can be a full success, a partial success, or a complete failure.
type LinkResult struct {
	ItemID        string           `json:"itemId"`
	InstitutionID string           `json:"institutionId"`
	Linked        []LinkedAccount  `json:"linked"`
	AlreadyLinked []string         `json:"alreadyLinked,omitempty"`
	Failed        []AccountFailure `json:"failed,omitempty"`
}

// Partial reports whether some but not all accounts were linked.
func (r *LinkResult) Partial() bool {
	return len(r.Failed) > 0 && len(r.Linked) > 0
}

// AllFailed reports whether no account could be linked at all.
func (r *LinkResult) AllFailed() bool {
	return len(r.Linked) == 0 && len(r.AlreadyLinked) == 0 && len(r.Failed) > 0
}
