// Package transfer initiates transfers between linked banks through the
// payment rail and records them locally for the per-account ledger.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"log"

	"horizon/internal/domain/banklink"
	"horizon/internal/infrastructure/paymentrail"
)

// Service moves funds between two funding sources and persists the record.
type Service struct {
	rail      paymentrail.ClientInterface
	links     banklink.Repository
	transfers Repository
}

// NewService creates a new transfer service.
func NewService(rail paymentrail.ClientInterface, links banklink.Repository, transfers Repository) *Service {
	return &Service{rail: rail, links: links, transfers: transfers}
}

// Create initiates a transfer from the user's bank to the destination
// identified by its shareable id, then records the transaction. The remote
// transfer is created first; the local record is the last write.
func (s *Service) Create(ctx context.Context, userID string, params Params) (*Transaction, error) {
	if !params.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	source, err := s.links.GetByID(ctx, params.SourceBankLinkID)
	if err != nil {
		if errors.Is(err, banklink.ErrNotFound) {
			return nil, ErrSourceNotFound
		}
		return nil, fmt.Errorf("failed to resolve source bank: %w", err)
	}
	if source.UserID != userID {
		return nil, ErrForbidden
	}

	destAccountID, err := banklink.DecodeShareableID(params.DestinationShareable)
	if err != nil {
		return nil, ErrDestinationNotFound
	}

	dest, err := s.links.GetByAccountID(ctx, destAccountID)
	if err != nil {
		if errors.Is(err, banklink.ErrNotFound) {
			return nil, ErrDestinationNotFound
		}
		return nil, fmt.Errorf("failed to resolve destination bank: %w", err)
	}

	transferURL, err := s.rail.CreateTransfer(ctx, source.FundingSourceURL, dest.FundingSourceURL, params.Amount)
	if err != nil {
		return nil, fmt.Errorf("failed to create transfer: %w", err)
	}

	name := params.Note
	if name == "" {
		name = CategoryTransfer
	}

	amount, _ := params.Amount.Float64()
	record, err := s.transfers.Create(ctx, CreateParams{
		Name:           name,
		Amount:         amount,
		SenderID:       userID,
		ReceiverID:     dest.UserID,
		SenderBankID:   source.ID,
		ReceiverBankID: dest.ID,
	})
	if err != nil {
		// The rail transfer went through; the record did not. Detectable by
		// absence on the ledger, reconciled against the rail's history.
		log.Printf("User %s: transfer %s created but record failed: %v", userID, transferURL, err)
		return nil, fmt.Errorf("transfer created but failed to record: %w", err)
	}

	log.Printf("User %s: transfer of %s from bank %s to bank %s", userID, params.Amount.StringFixed(2), source.ID, dest.ID)
	return record, nil
}
