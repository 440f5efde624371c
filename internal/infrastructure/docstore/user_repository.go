package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"horizon/internal/domain/user"
	"horizon/internal/infrastructure/crypto"
)

// UserRepository implements user.Repository on the document store. The SSN
// is encrypted at rest.
type UserRepository struct {
	store     Store
	encryptor *crypto.Encryptor
}

var _ user.Repository = (*UserRepository)(nil)

// NewUserRepository creates a new document-store user repository.
func NewUserRepository(store Store, encryptor *crypto.Encryptor) *UserRepository {
	return &UserRepository{store: store, encryptor: encryptor}
}

func (r *UserRepository) Create(ctx context.Context, params user.CreateParams) (*user.User, error) {
	existing, err := r.store.ListDocuments(ctx, CollectionUsers, Filter{Field: "email", Value: params.Email})
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if existing.Total > 0 {
		return nil, user.ErrEmailTaken
	}

	encryptedSSN, err := r.encryptor.Encrypt(params.SSN)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt ssn: %w", err)
	}

	doc, err := r.store.CreateDocument(ctx, CollectionUsers, uuid.NewString(), map[string]any{
		"email":        params.Email,
		"firstName":    params.FirstName,
		"lastName":     params.LastName,
		"address1":     params.Address1,
		"city":         params.City,
		"state":        params.State,
		"postalCode":   params.PostalCode,
		"dateOfBirth":  params.DateOfBirth,
		"ssn":          encryptedSSN,
		"passwordHash": params.PasswordHash,
		"customerId":   "",
		"customerUrl":  "",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user document: %w", err)
	}

	return r.toUser(doc)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	doc, err := r.store.GetDocument(ctx, CollectionUsers, id)
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			return nil, user.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user document: %w", err)
	}
	return r.toUser(doc)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	list, err := r.store.ListDocuments(ctx, CollectionUsers, Filter{Field: "email", Value: email})
	if err != nil {
		return nil, fmt.Errorf("failed to list user documents: %w", err)
	}
	if list.Total == 0 {
		return nil, user.ErrUserNotFound
	}
	return r.toUser(&list.Documents[0])
}

func (r *UserRepository) SetCustomer(ctx context.Context, userID, customerID, customerURL string) error {
	doc, err := r.store.GetDocument(ctx, CollectionUsers, userID)
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			return user.ErrUserNotFound
		}
		return fmt.Errorf("failed to get user document: %w", err)
	}

	if current := stringField(doc, "customerUrl"); current != "" {
		if current == customerURL {
			return nil
		}
		return user.ErrCustomerIsSet
	}

	if _, err := r.store.UpdateDocument(ctx, CollectionUsers, userID, map[string]any{
		"customerId":  customerID,
		"customerUrl": customerURL,
	}); err != nil {
		return fmt.Errorf("failed to update user document: %w", err)
	}
	return nil
}

func (r *UserRepository) toUser(doc *Document) (*user.User, error) {
	ssn, err := r.encryptor.Decrypt(stringField(doc, "ssn"))
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt ssn for user %s: %w", doc.ID, err)
	}

	return &user.User{
		ID:           doc.ID,
		Email:        stringField(doc, "email"),
		FirstName:    stringField(doc, "firstName"),
		LastName:     stringField(doc, "lastName"),
		Address1:     stringField(doc, "address1"),
		City:         stringField(doc, "city"),
		State:        stringField(doc, "state"),
		PostalCode:   stringField(doc, "postalCode"),
		DateOfBirth:  stringField(doc, "dateOfBirth"),
		SSN:          ssn,
		PasswordHash: stringField(doc, "passwordHash"),
		CustomerID:   stringField(doc, "customerId"),
		CustomerURL:  stringField(doc, "customerUrl"),
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}, nil
}

// stringField reads a string field from a document, tolerating absence.
func stringField(doc *Document, key string) string {
	if v, ok := doc.Fields[key].(string); ok {
		return v
	}
	return ""
}

// floatField reads a numeric field from a document. JSONB numbers decode as
// float64.
func floatField(doc *Document, key string) float64 {
	if v, ok := doc.Fields[key].(float64); ok {
		return v
	}
	return 0
}
