package transfer

import (
	"context"
	"errors"
	"testing"

	"horizon/internal/domain/banklink"
	"horizon/internal/infrastructure/paymentrail"

	"github.com/shopspring/decimal"
)

// Mocks

type MockRailClient struct {
	CreateTransferFunc func(ctx context.Context, sourceURL, destinationURL string, amount decimal.Decimal) (string, error)
}

func (m *MockRailClient) CreateCustomer(ctx context.Context, req paymentrail.CustomerRequest) (string, error) {
	return "", nil
}
func (m *MockRailClient) CreateOnDemandAuthorization(ctx context.Context) (paymentrail.AuthorizationLinks, error) {
	return paymentrail.AuthorizationLinks{}, nil
}
func (m *MockRailClient) CreateFundingSource(ctx context.Context, customerID, name, processorToken string, authLinks paymentrail.AuthorizationLinks) (string, error) {
	return "", nil
}
func (m *MockRailClient) RemoveFundingSource(ctx context.Context, fundingSourceURL string) error {
	return nil
}
func (m *MockRailClient) CreateTransfer(ctx context.Context, sourceURL, destinationURL string, amount decimal.Decimal) (string, error) {
	if m.CreateTransferFunc != nil {
		return m.CreateTransferFunc(ctx, sourceURL, destinationURL, amount)
	}
	return "https://rail.example.com/transfers/tr-1", nil
}

type MockLinkRepo struct {
	GetByIDFunc        func(ctx context.Context, id string) (*banklink.BankLink, error)
	GetByAccountIDFunc func(ctx context.Context, accountID string) (*banklink.BankLink, error)
}

func (m *MockLinkRepo) Create(ctx context.Context, params banklink.CreateParams) (*banklink.BankLink, error) {
	return nil, nil
}
func (m *MockLinkRepo) GetByID(ctx context.Context, id string) (*banklink.BankLink, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, banklink.ErrNotFound
}
func (m *MockLinkRepo) GetByAccountID(ctx context.Context, accountID string) (*banklink.BankLink, error) {
	if m.GetByAccountIDFunc != nil {
		return m.GetByAccountIDFunc(ctx, accountID)
	}
	return nil, banklink.ErrNotFound
}
func (m *MockLinkRepo) ListByUserID(ctx context.Context, userID string) ([]*banklink.BankLink, error) {
	return nil, nil
}
func (m *MockLinkRepo) ExistsByUserAndAccount(ctx context.Context, userID, accountID string) (bool, error) {
	return false, nil
}

type MockTransferRepo struct {
	CreateFunc       func(ctx context.Context, params CreateParams) (*Transaction, error)
	ListByBankIDFunc func(ctx context.Context, bankID string) ([]*Transaction, error)
}

func (m *MockTransferRepo) Create(ctx context.Context, params CreateParams) (*Transaction, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, params)
	}
	return &Transaction{
		ID:             "tx-1",
		Name:           params.Name,
		Amount:         params.Amount,
		SenderID:       params.SenderID,
		ReceiverID:     params.ReceiverID,
		SenderBankID:   params.SenderBankID,
		ReceiverBankID: params.ReceiverBankID,
		Category:       CategoryTransfer,
		Channel:        ChannelOnline,
	}, nil
}
func (m *MockTransferRepo) ListByBankID(ctx context.Context, bankID string) ([]*Transaction, error) {
	if m.ListByBankIDFunc != nil {
		return m.ListByBankIDFunc(ctx, bankID)
	}
	return nil, nil
}

func sourceLink() *banklink.BankLink {
	return &banklink.BankLink{
		ID:               "link-src",
		UserID:           "user-1",
		AccountID:        "acc-src",
		AccessToken:      "access-src",
		FundingSourceURL: "https://rail.example.com/funding-sources/fs-src",
	}
}

func destLink() *banklink.BankLink {
	return &banklink.BankLink{
		ID:               "link-dst",
		UserID:           "user-2",
		AccountID:        "acc-dst",
		AccessToken:      "access-dst",
		FundingSourceURL: "https://rail.example.com/funding-sources/fs-dst",
	}
}

func TestCreateTransfer(t *testing.T) {
	ctx := context.Background()

	links := &MockLinkRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*banklink.BankLink, error) {
			return sourceLink(), nil
		},
		GetByAccountIDFunc: func(ctx context.Context, accountID string) (*banklink.BankLink, error) {
			if accountID != "acc-dst" {
				t.Errorf("Expected decoded account id acc-dst, got %q", accountID)
			}
			return destLink(), nil
		},
	}

	var gotSource, gotDest string
	rail := &MockRailClient{
		CreateTransferFunc: func(ctx context.Context, sourceURL, destinationURL string, amount decimal.Decimal) (string, error) {
			gotSource, gotDest = sourceURL, destinationURL
			if amount.StringFixed(2) != "25.50" {
				t.Errorf("Expected amount 25.50, got %s", amount.StringFixed(2))
			}
			return "https://rail.example.com/transfers/tr-1", nil
		},
	}

	svc := NewService(rail, links, &MockTransferRepo{})

	record, err := svc.Create(ctx, "user-1", Params{
		SourceBankLinkID:     "link-src",
		DestinationShareable: banklink.EncodeShareableID("acc-dst"),
		Amount:               decimal.RequireFromString("25.50"),
		Note:                 "Rent split",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if gotSource != sourceLink().FundingSourceURL {
		t.Errorf("Expected source funding URL, got %q", gotSource)
	}
	if gotDest != destLink().FundingSourceURL {
		t.Errorf("Expected destination funding URL, got %q", gotDest)
	}
	if record.Name != "Rent split" {
		t.Errorf("Expected record named after the note, got %q", record.Name)
	}
	if record.SenderBankID != "link-src" || record.ReceiverBankID != "link-dst" {
		t.Errorf("Expected bank ids link-src/link-dst, got %s/%s", record.SenderBankID, record.ReceiverBankID)
	}
}

func TestCreateTransferRejectsNonPositiveAmounts(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&MockRailClient{}, &MockLinkRepo{}, &MockTransferRepo{})

	for _, raw := range []string{"0", "-10.00"} {
		_, err := svc.Create(ctx, "user-1", Params{
			SourceBankLinkID:     "link-src",
			DestinationShareable: banklink.EncodeShareableID("acc-dst"),
			Amount:               decimal.RequireFromString(raw),
		})
		if !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("Amount %s: expected ErrInvalidAmount, got %v", raw, err)
		}
	}
}

func TestCreateTransferForbidsForeignSource(t *testing.T) {
	ctx := context.Background()

	links := &MockLinkRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*banklink.BankLink, error) {
			link := sourceLink()
			link.UserID = "someone-else"
			return link, nil
		},
	}

	svc := NewService(&MockRailClient{}, links, &MockTransferRepo{})

	_, err := svc.Create(ctx, "user-1", Params{
		SourceBankLinkID:     "link-src",
		DestinationShareable: banklink.EncodeShareableID("acc-dst"),
		Amount:               decimal.RequireFromString("5.00"),
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("Expected ErrForbidden, got %v", err)
	}
}

func TestCreateTransferUnknownDestination(t *testing.T) {
	ctx := context.Background()

	links := &MockLinkRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*banklink.BankLink, error) {
			return sourceLink(), nil
		},
	}

	svc := NewService(&MockRailClient{}, links, &MockTransferRepo{})

	tests := []struct {
		name      string
		shareable string
	}{
		{"malformed shareable id", "!!not-base64!!"},
		{"unlinked account", banklink.EncodeShareableID("acc-unknown")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, "user-1", Params{
				SourceBankLinkID:     "link-src",
				DestinationShareable: tt.shareable,
				Amount:               decimal.RequireFromString("5.00"),
			})
			if !errors.Is(err, ErrDestinationNotFound) {
				t.Errorf("Expected ErrDestinationNotFound, got %v", err)
			}
		})
	}
}

func TestCreateTransferRailFailureRecordsNothing(t *testing.T) {
	ctx := context.Background()

	links := &MockLinkRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*banklink.BankLink, error) {
			return sourceLink(), nil
		},
		GetByAccountIDFunc: func(ctx context.Context, accountID string) (*banklink.BankLink, error) {
			return destLink(), nil
		},
	}
	rail := &MockRailClient{
		CreateTransferFunc: func(ctx context.Context, sourceURL, destinationURL string, amount decimal.Decimal) (string, error) {
			return "", errors.New("insufficient funds")
		},
	}

	recorded := false
	transfers := &MockTransferRepo{
		CreateFunc: func(ctx context.Context, params CreateParams) (*Transaction, error) {
			recorded = true
			return nil, nil
		},
	}

	svc := NewService(rail, links, transfers)

	_, err := svc.Create(ctx, "user-1", Params{
		SourceBankLinkID:     "link-src",
		DestinationShareable: banklink.EncodeShareableID("acc-dst"),
		Amount:               decimal.RequireFromString("5.00"),
	})
	if err == nil {
		t.Fatal("Expected an error when the rail rejects the transfer")
	}
	if recorded {
		t.Error("Expected no local record after a rail failure")
	}
}
