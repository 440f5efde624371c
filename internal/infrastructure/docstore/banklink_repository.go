package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"horizon/internal/domain/banklink"
	"horizon/internal/infrastructure/crypto"
)

// BankLinkRepository implements banklink.Repository on the document store.
// The aggregator access token is encrypted at rest and decrypted on read.
type BankLinkRepository struct {
	store     Store
	encryptor *crypto.Encryptor
}

var _ banklink.Repository = (*BankLinkRepository)(nil)

// NewBankLinkRepository creates a new document-store bank link repository.
func NewBankLinkRepository(store Store, encryptor *crypto.Encryptor) *BankLinkRepository {
	return &BankLinkRepository{store: store, encryptor: encryptor}
}

func (r *BankLinkRepository) Create(ctx context.Context, params banklink.CreateParams) (*banklink.BankLink, error) {
	exists, err := r.ExistsByUserAndAccount(ctx, params.UserID, params.AccountID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, banklink.ErrDuplicateLink
	}

	encryptedToken, err := r.encryptor.Encrypt(params.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt access token: %w", err)
	}

	doc, err := r.store.CreateDocument(ctx, CollectionBankLinks, uuid.NewString(), map[string]any{
		"userId":           params.UserID,
		"itemId":           params.ItemID,
		"accountId":        params.AccountID,
		"accessToken":      encryptedToken,
		"fundingSourceUrl": params.FundingSourceURL,
		"shareableId":      params.ShareableID,
	})
	if err != nil {
		if errors.Is(err, ErrDocumentExists) {
			return nil, banklink.ErrDuplicateLink
		}
		return nil, fmt.Errorf("failed to create bank link document: %w", err)
	}

	return r.toBankLink(doc)
}

func (r *BankLinkRepository) GetByID(ctx context.Context, id string) (*banklink.BankLink, error) {
	doc, err := r.store.GetDocument(ctx, CollectionBankLinks, id)
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			return nil, banklink.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get bank link document: %w", err)
	}
	return r.toBankLink(doc)
}

func (r *BankLinkRepository) GetByAccountID(ctx context.Context, accountID string) (*banklink.BankLink, error) {
	list, err := r.store.ListDocuments(ctx, CollectionBankLinks, Filter{Field: "accountId", Value: accountID})
	if err != nil {
		return nil, fmt.Errorf("failed to list bank link documents: %w", err)
	}
	if list.Total == 0 {
		return nil, banklink.ErrNotFound
	}
	return r.toBankLink(&list.Documents[0])
}

func (r *BankLinkRepository) ListByUserID(ctx context.Context, userID string) ([]*banklink.BankLink, error) {
	list, err := r.store.ListDocuments(ctx, CollectionBankLinks, Filter{Field: "userId", Value: userID})
	if err != nil {
		return nil, fmt.Errorf("failed to list bank link documents: %w", err)
	}

	links := make([]*banklink.BankLink, 0, len(list.Documents))
	for i := range list.Documents {
		link, err := r.toBankLink(&list.Documents[i])
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, nil
}

func (r *BankLinkRepository) ExistsByUserAndAccount(ctx context.Context, userID, accountID string) (bool, error) {
	list, err := r.store.ListDocuments(ctx, CollectionBankLinks,
		Filter{Field: "userId", Value: userID},
		Filter{Field: "accountId", Value: accountID},
	)
	if err != nil {
		return false, fmt.Errorf("failed to check bank link existence: %w", err)
	}
	return list.Total > 0, nil
}

func (r *BankLinkRepository) toBankLink(doc *Document) (*banklink.BankLink, error) {
	token, err := r.encryptor.Decrypt(stringField(doc, "accessToken"))
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt access token for link %s: %w", doc.ID, err)
	}

	return &banklink.BankLink{
		ID:               doc.ID,
		UserID:           stringField(doc, "userId"),
		ItemID:           stringField(doc, "itemId"),
		AccountID:        stringField(doc, "accountId"),
		AccessToken:      token,
		FundingSourceURL: stringField(doc, "fundingSourceUrl"),
		ShareableID:      stringField(doc, "shareableId"),
		CreatedAt:        doc.CreatedAt,
	}, nil
}
