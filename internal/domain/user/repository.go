package user

import "context"

// Repository is the user data-access contract, implemented on the document
// store in the infrastructure layer.
type Repository interface {
	// Create persists a new user and returns the stored record.
	Create(ctx context.Context, params CreateParams) (*User, error)

	// GetByID retrieves a user by identity id.
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByEmail retrieves a user by email address.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// SetCustomer records the payment-rail customer id and URL exactly once.
	// Returns ErrCustomerIsSet if a different customer is already recorded;
	// setting the same customer again is a no-op.
	SetCustomer(ctx context.Context, userID, customerID, customerURL string) error
}
