package docstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"horizon/internal/domain/transfer"
)

// TransferRepository implements transfer.Repository on the document store.
type TransferRepository struct {
	store Store
}

var _ transfer.Repository = (*TransferRepository)(nil)

// NewTransferRepository creates a new document-store transfer repository.
func NewTransferRepository(store Store) *TransferRepository {
	return &TransferRepository{store: store}
}

func (r *TransferRepository) Create(ctx context.Context, params transfer.CreateParams) (*transfer.Transaction, error) {
	doc, err := r.store.CreateDocument(ctx, CollectionTransactions, uuid.NewString(), map[string]any{
		"name":           params.Name,
		"amount":         params.Amount,
		"senderId":       params.SenderID,
		"receiverId":     params.ReceiverID,
		"senderBankId":   params.SenderBankID,
		"receiverBankId": params.ReceiverBankID,
		"category":       transfer.CategoryTransfer,
		"channel":        transfer.ChannelOnline,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create transfer document: %w", err)
	}
	return toTransaction(doc), nil
}

// ListByBankID queries both sides of the transfer separately. Equality
// filters cannot express OR, so the two result sets are merged, deduplicated
// by id for the self-transfer case.
func (r *TransferRepository) ListByBankID(ctx context.Context, bankID string) ([]*transfer.Transaction, error) {
	sent, err := r.store.ListDocuments(ctx, CollectionTransactions, Filter{Field: "senderBankId", Value: bankID})
	if err != nil {
		return nil, fmt.Errorf("failed to list sent transfers: %w", err)
	}
	received, err := r.store.ListDocuments(ctx, CollectionTransactions, Filter{Field: "receiverBankId", Value: bankID})
	if err != nil {
		return nil, fmt.Errorf("failed to list received transfers: %w", err)
	}

	seen := make(map[string]bool, len(sent.Documents))
	transactions := make([]*transfer.Transaction, 0, len(sent.Documents)+len(received.Documents))
	for i := range sent.Documents {
		seen[sent.Documents[i].ID] = true
		transactions = append(transactions, toTransaction(&sent.Documents[i]))
	}
	for i := range received.Documents {
		if seen[received.Documents[i].ID] {
			continue
		}
		transactions = append(transactions, toTransaction(&received.Documents[i]))
	}
	return transactions, nil
}

func toTransaction(doc *Document) *transfer.Transaction {
	return &transfer.Transaction{
		ID:             doc.ID,
		Name:           stringField(doc, "name"),
		Amount:         floatField(doc, "amount"),
		SenderID:       stringField(doc, "senderId"),
		ReceiverID:     stringField(doc, "receiverId"),
		SenderBankID:   stringField(doc, "senderBankId"),
		ReceiverBankID: stringField(doc, "receiverBankId"),
		Category:       stringField(doc, "category"),
		Channel:        stringField(doc, "channel"),
		CreatedAt:      doc.CreatedAt,
	}
}
