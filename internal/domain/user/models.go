package user

import (
	"errors"
	"time"
)

// Domain errors
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrEmailTaken    = errors.New("email already registered")
	ErrCustomerIsSet = errors.New("payment customer already set for user")
)

// User is the identity record. CustomerID and CustomerURL are populated once
// payment-rail onboarding succeeds and are never overwritten afterwards.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Address1     string    `json:"address1"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	PostalCode   string    `json:"postalCode"`
	DateOfBirth  string    `json:"dateOfBirth"` // YYYY-MM-DD
	SSN          string    `json:"-"`
	PasswordHash string    `json:"-"`
	CustomerID   string    `json:"customerId,omitempty"`
	CustomerURL  string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// FullName returns the display name used for sessions and funding sources.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// CreateParams contains the fields collected at sign-up.
type CreateParams struct {
	Email        string
	FirstName    string
	LastName     string
	Address1     string
	City         string
	State        string
	PostalCode   string
	DateOfBirth  string
	SSN          string
	PasswordHash string
}

// Validate checks the sign-up profile. The payment rail needs the full
// personal profile to provision a customer later, so it is enforced here.
func (p CreateParams) Validate() error {
	switch {
	case p.Email == "":
		return errors.New("email is required")
	case p.FirstName == "" || p.LastName == "":
		return errors.New("first and last name are required")
	case p.Address1 == "" || p.City == "" || p.State == "" || p.PostalCode == "":
		return errors.New("address is required")
	case p.SSN == "":
		return errors.New("ssn is required")
	case p.PasswordHash == "":
		return errors.New("password hash is required")
	}
	if _, err := time.Parse("2006-01-02", p.DateOfBirth); err != nil {
		return errors.New("date of birth must be YYYY-MM-DD")
	}
	return nil
}
