package transfer

import "context"

// Repository is the transfer-transaction data-access contract, implemented
// on the document store in the infrastructure layer.
type Repository interface {
	// Create persists a new transfer record.
	Create(ctx context.Context, params CreateParams) (*Transaction, error)

	// ListByBankID retrieves every transfer in which the given bank link was
	// either the sender or the receiver.
	ListByBankID(ctx context.Context, bankID string) ([]*Transaction, error)
}
