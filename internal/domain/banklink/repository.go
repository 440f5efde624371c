package banklink

import "context"

// Repository is the bank link data-access contract, implemented on the
// document store in the infrastructure layer.
type Repository interface {
	// Create persists a new bank link. Returns ErrDuplicateLink when the
	// (user, account) pair is already linked.
	Create(ctx context.Context, params CreateParams) (*BankLink, error)

	// GetByID retrieves a bank link by record id. Returns ErrNotFound when
	// the id resolves to nothing.
	GetByID(ctx context.Context, id string) (*BankLink, error)

	// GetByAccountID retrieves the bank link for an external account id.
	GetByAccountID(ctx context.Context, accountID string) (*BankLink, error)

	// ListByUserID retrieves all bank links owned by a user.
	ListByUserID(ctx context.Context, userID string) ([]*BankLink, error)

	// ExistsByUserAndAccount reports whether the (user, account) pair is linked.
	ExistsByUserAndAccount(ctx context.Context, userID, accountID string) (bool, error)
}
