package accounts

import (
	"context"
	"errors"
	"testing"
	"time"

	"horizon/internal/domain/banklink"
	"horizon/internal/domain/transfer"
	"horizon/internal/infrastructure/aggregator"
)

// Mocks

type MockAggregatorClient struct {
	AccountsGetFunc         func(ctx context.Context, accessToken string) (*aggregator.AccountsResult, error)
	TransactionsSyncFunc    func(ctx context.Context, accessToken, cursor string) (*aggregator.SyncResult, error)
	InstitutionsGetByIDFunc func(ctx context.Context, institutionID string) (*aggregator.Institution, error)
}

func (m *MockAggregatorClient) LinkTokenCreate(ctx context.Context, userID, userName string) (string, error) {
	return "", nil
}
func (m *MockAggregatorClient) ItemPublicTokenExchange(ctx context.Context, publicToken string) (*aggregator.ExchangeResult, error) {
	return nil, nil
}
func (m *MockAggregatorClient) AccountsGet(ctx context.Context, accessToken string) (*aggregator.AccountsResult, error) {
	if m.AccountsGetFunc != nil {
		return m.AccountsGetFunc(ctx, accessToken)
	}
	return &aggregator.AccountsResult{}, nil
}
func (m *MockAggregatorClient) TransactionsSync(ctx context.Context, accessToken, cursor string) (*aggregator.SyncResult, error) {
	if m.TransactionsSyncFunc != nil {
		return m.TransactionsSyncFunc(ctx, accessToken, cursor)
	}
	return &aggregator.SyncResult{}, nil
}
func (m *MockAggregatorClient) ProcessorTokenCreate(ctx context.Context, accessToken, accountID, processor string) (string, error) {
	return "", nil
}
func (m *MockAggregatorClient) InstitutionsGetByID(ctx context.Context, institutionID string) (*aggregator.Institution, error) {
	if m.InstitutionsGetByIDFunc != nil {
		return m.InstitutionsGetByIDFunc(ctx, institutionID)
	}
	return &aggregator.Institution{InstitutionID: institutionID, Name: "Test Bank"}, nil
}

type MockLinkRepo struct {
	GetByIDFunc      func(ctx context.Context, id string) (*banklink.BankLink, error)
	ListByUserIDFunc func(ctx context.Context, userID string) ([]*banklink.BankLink, error)
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
	return nil, banklink.ErrNotFound
}
func (m *MockLinkRepo) ListByUserID(ctx context.Context, userID string) ([]*banklink.BankLink, error) {
	if m.ListByUserIDFunc != nil {
		return m.ListByUserIDFunc(ctx, userID)
	}
	return nil, nil
}
func (m *MockLinkRepo) ExistsByUserAndAccount(ctx context.Context, userID, accountID string) (bool, error) {
	return false, nil
}

type MockTransferRepo struct {
	ListByBankIDFunc func(ctx context.Context, bankID string) ([]*transfer.Transaction, error)
}

func (m *MockTransferRepo) Create(ctx context.Context, params transfer.CreateParams) (*transfer.Transaction, error) {
	return nil, nil
}
func (m *MockTransferRepo) ListByBankID(ctx context.Context, bankID string) ([]*transfer.Transaction, error) {
	if m.ListByBankIDFunc != nil {
		return m.ListByBankIDFunc(ctx, bankID)
	}
	return nil, nil
}

func floatPtr(f float64) *float64 { return &f }

func linkFor(id, userID, accountID string) *banklink.BankLink {
	return &banklink.BankLink{
		ID:               id,
		UserID:           userID,
		AccountID:        accountID,
		AccessToken:      "access-" + id,
		FundingSourceURL: "https://rail.example.com/funding-sources/fs-" + id,
		ShareableID:      banklink.EncodeShareableID(accountID),
	}
}

func accountsResultFor(accountID string, current float64) *aggregator.AccountsResult {
	return &aggregator.AccountsResult{
		Accounts: []aggregator.Account{
			{
				AccountID: accountID,
				Name:      "Checking " + accountID,
				Mask:      "0000",
				Type:      "depository",
				Subtype:   "checking",
				Balances:  aggregator.Balances{Available: floatPtr(current - 10), Current: floatPtr(current)},
			},
		},
		Item: aggregator.Item{ItemID: "item-" + accountID, InstitutionID: "ins-1"},
	}
}

func TestListAccountsRollups(t *testing.T) {
	ctx := context.Background()

	links := &MockLinkRepo{
		ListByUserIDFunc: func(ctx context.Context, userID string) ([]*banklink.BankLink, error) {
			return []*banklink.BankLink{
				linkFor("link-1", "user-1", "acc-1"),
				linkFor("link-2", "user-1", "acc-2"),
			}, nil
		},
	}
	agg := &MockAggregatorClient{
		AccountsGetFunc: func(ctx context.Context, accessToken string) (*aggregator.AccountsResult, error) {
			switch accessToken {
			case "access-link-1":
				return accountsResultFor("acc-1", 150.25), nil
			case "access-link-2":
				return accountsResultFor("acc-2", 49.75), nil
			}
			return nil, errors.New("unknown token")
		},
	}

	svc := NewService(agg, links, &MockTransferRepo{})

	list, err := svc.ListAccounts(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListAccounts failed: %v", err)
	}

	if list.TotalBanks != 2 {
		t.Errorf("Expected 2 banks, got %d", list.TotalBanks)
	}
	if len(list.Accounts) != list.TotalBanks {
		t.Errorf("TotalBanks %d disagrees with %d accounts", list.TotalBanks, len(list.Accounts))
	}

	var sum float64
	for _, acct := range list.Accounts {
		sum += acct.CurrentBalance
	}
	if list.TotalCurrentBalance != sum {
		t.Errorf("TotalCurrentBalance %v disagrees with sum %v", list.TotalCurrentBalance, sum)
	}
	if sum != 200.00 {
		t.Errorf("Expected total 200.00, got %v", sum)
	}

	if list.Accounts[0].ShareableID != banklink.EncodeShareableID("acc-1") {
		t.Errorf("Expected shareable id carried onto the view, got %q", list.Accounts[0].ShareableID)
	}
}

func TestListAccountsEmpty(t *testing.T) {
	ctx := context.Background()

	svc := NewService(&MockAggregatorClient{}, &MockLinkRepo{}, &MockTransferRepo{})

	list, err := svc.ListAccounts(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListAccounts failed: %v", err)
	}
	if list.TotalBanks != 0 || list.TotalCurrentBalance != 0 {
		t.Errorf("Expected zero rollups, got banks=%d total=%v", list.TotalBanks, list.TotalCurrentBalance)
	}
	if list.Accounts == nil {
		t.Error("Expected an empty slice, not nil")
	}
}

func TestListAccountsSkipsFailingLink(t *testing.T) {
	ctx := context.Background()

	links := &MockLinkRepo{
		ListByUserIDFunc: func(ctx context.Context, userID string) ([]*banklink.BankLink, error) {
			return []*banklink.BankLink{
				linkFor("link-1", "user-1", "acc-1"),
				linkFor("link-2", "user-1", "acc-2"),
			}, nil
		},
	}
	agg := &MockAggregatorClient{
		AccountsGetFunc: func(ctx context.Context, accessToken string) (*aggregator.AccountsResult, error) {
			if accessToken == "access-link-1" {
				return nil, errors.New("ITEM_LOGIN_REQUIRED")
			}
			return accountsResultFor("acc-2", 80), nil
		},
	}

	svc := NewService(agg, links, &MockTransferRepo{})

	list, err := svc.ListAccounts(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListAccounts failed: %v", err)
	}

	if list.TotalBanks != 1 {
		t.Fatalf("Expected the failing link to be skipped, got %d banks", list.TotalBanks)
	}
	if list.Accounts[0].ID != "acc-2" {
		t.Errorf("Expected acc-2, got %s", list.Accounts[0].ID)
	}
	if list.TotalCurrentBalance != 80 {
		t.Errorf("Rollup must only cover fetched accounts, got %v", list.TotalCurrentBalance)
	}
}

func TestGetAccountDetailOwnership(t *testing.T) {
	ctx := context.Background()

	links := &MockLinkRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*banklink.BankLink, error) {
			return linkFor("link-1", "user-2", "acc-1"), nil
		},
	}

	svc := NewService(&MockAggregatorClient{}, links, &MockTransferRepo{})

	_, err := svc.GetAccountDetail(ctx, "link-1", "user-1")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("Expected ErrForbidden, got %v", err)
	}
}

func TestGetAccountDetailUnknownLink(t *testing.T) {
	ctx := context.Background()

	svc := NewService(&MockAggregatorClient{}, &MockLinkRepo{}, &MockTransferRepo{})

	_, err := svc.GetAccountDetail(ctx, "link-missing", "user-1")
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("Expected ErrAccountNotFound, got %v", err)
	}
}

func TestGetAccountDetailMergesAndSortsLedger(t *testing.T) {
	ctx := context.Background()

	links := &MockLinkRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*banklink.BankLink, error) {
			return linkFor("link-1", "user-1", "acc-1"), nil
		},
	}
	agg := &MockAggregatorClient{
		AccountsGetFunc: func(ctx context.Context, accessToken string) (*aggregator.AccountsResult, error) {
			return accountsResultFor("acc-1", 100), nil
		},
		TransactionsSyncFunc: func(ctx context.Context, accessToken, cursor string) (*aggregator.SyncResult, error) {
			return &aggregator.SyncResult{
				Added: []aggregator.Transaction{
					{TransactionID: "feed-1", Name: "Coffee", Amount: 4.50, Date: "2026-08-20", PaymentChannel: "in store", Category: []string{"Food and Drink"}},
					{TransactionID: "feed-2", Name: "Refund", Amount: -12.00, Date: "2026-08-25"},
				},
			}, nil
		},
	}
	transfers := &MockTransferRepo{
		ListByBankIDFunc: func(ctx context.Context, bankID string) ([]*transfer.Transaction, error) {
			return []*transfer.Transaction{
				{
					ID:             "tr-out",
					Name:           "Transfer",
					Amount:         30,
					SenderBankID:   "link-1",
					ReceiverBankID: "link-9",
					Category:       transfer.CategoryTransfer,
					Channel:        transfer.ChannelOnline,
					CreatedAt:      time.Date(2026, 8, 22, 9, 0, 0, 0, time.UTC),
				},
				{
					ID:             "tr-in",
					Name:           "Transfer",
					Amount:         15,
					SenderBankID:   "link-9",
					ReceiverBankID: "link-1",
					Category:       transfer.CategoryTransfer,
					Channel:        transfer.ChannelOnline,
					CreatedAt:      time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC),
				},
			}, nil
		},
	}

	svc := NewService(agg, links, transfers)

	detail, err := svc.GetAccountDetail(ctx, "link-1", "user-1")
	if err != nil {
		t.Fatalf("GetAccountDetail failed: %v", err)
	}

	if detail.Account.InstitutionName != "Test Bank" {
		t.Errorf("Expected institution name resolved, got %q", detail.Account.InstitutionName)
	}

	if len(detail.Transactions) != 4 {
		t.Fatalf("Expected 4 ledger entries, got %d", len(detail.Transactions))
	}
	for i := 1; i < len(detail.Transactions); i++ {
		if detail.Transactions[i].Date.After(detail.Transactions[i-1].Date) {
			t.Fatalf("Ledger not sorted descending at index %d", i)
		}
	}
	if detail.Transactions[0].ID != "tr-in" {
		t.Errorf("Expected newest entry tr-in first, got %s", detail.Transactions[0].ID)
	}

	byID := map[string]Transaction{}
	for _, tx := range detail.Transactions {
		byID[tx.ID] = tx
	}
	if byID["feed-1"].Type != TypeDebit {
		t.Errorf("Positive feed amount must be a debit, got %s", byID["feed-1"].Type)
	}
	if byID["feed-2"].Type != TypeCredit {
		t.Errorf("Negative feed amount must be a credit, got %s", byID["feed-2"].Type)
	}
	if byID["tr-out"].Type != TypeDebit {
		t.Errorf("Transfer sent from the viewed bank must be a debit, got %s", byID["tr-out"].Type)
	}
	if byID["tr-in"].Type != TypeCredit {
		t.Errorf("Transfer received by the viewed bank must be a credit, got %s", byID["tr-in"].Type)
	}
}

func TestGetAccountDetailPagesThroughSync(t *testing.T) {
	ctx := context.Background()

	links := &MockLinkRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*banklink.BankLink, error) {
			return linkFor("link-1", "user-1", "acc-1"), nil
		},
	}

	var cursors []string
	agg := &MockAggregatorClient{
		AccountsGetFunc: func(ctx context.Context, accessToken string) (*aggregator.AccountsResult, error) {
			return accountsResultFor("acc-1", 100), nil
		},
		TransactionsSyncFunc: func(ctx context.Context, accessToken, cursor string) (*aggregator.SyncResult, error) {
			cursors = append(cursors, cursor)
			switch cursor {
			case "":
				return &aggregator.SyncResult{
					Added:      []aggregator.Transaction{{TransactionID: "page1-tx", Name: "First", Amount: 1, Date: "2026-08-01"}},
					NextCursor: "cursor-1",
					HasMore:    true,
				}, nil
			case "cursor-1":
				return &aggregator.SyncResult{
					Added: []aggregator.Transaction{{TransactionID: "page2-tx", Name: "Second", Amount: 2, Date: "2026-08-01"}},
				}, nil
			}
			return nil, errors.New("unexpected cursor " + cursor)
		},
	}

	svc := NewService(agg, links, &MockTransferRepo{})

	detail, err := svc.GetAccountDetail(ctx, "link-1", "user-1")
	if err != nil {
		t.Fatalf("GetAccountDetail failed: %v", err)
	}

	if len(cursors) != 2 || cursors[0] != "" || cursors[1] != "cursor-1" {
		t.Fatalf("Expected cursor to be threaded between pages, got %v", cursors)
	}
	if len(detail.Transactions) != 2 {
		t.Fatalf("Expected entries from both pages, got %d", len(detail.Transactions))
	}
	// Same date, so the stable sort preserves page order.
	if detail.Transactions[0].ID != "page1-tx" || detail.Transactions[1].ID != "page2-tx" {
		t.Errorf("Expected page order preserved for equal dates, got %s then %s",
			detail.Transactions[0].ID, detail.Transactions[1].ID)
	}
}

func TestGetAccountDetailSyncBudget(t *testing.T) {
	ctx := context.Background()

	links := &MockLinkRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*banklink.BankLink, error) {
			return linkFor("link-1", "user-1", "acc-1"), nil
		},
	}
	agg := &MockAggregatorClient{
		AccountsGetFunc: func(ctx context.Context, accessToken string) (*aggregator.AccountsResult, error) {
			return accountsResultFor("acc-1", 100), nil
		},
		TransactionsSyncFunc: func(ctx context.Context, accessToken, cursor string) (*aggregator.SyncResult, error) {
			// Always claims more pages.
			return &aggregator.SyncResult{NextCursor: "again", HasMore: true}, nil
		},
	}

	svc := NewService(agg, links, &MockTransferRepo{}, WithSyncPageBudget(3))

	_, err := svc.GetAccountDetail(ctx, "link-1", "user-1")
	if !errors.Is(err, ErrSyncBudgetExceeded) {
		t.Fatalf("Expected ErrSyncBudgetExceeded, got %v", err)
	}
}

func TestGetAccountDetailAccountMatching(t *testing.T) {
	ctx := context.Background()

	result := &aggregator.AccountsResult{
		Accounts: []aggregator.Account{
			{AccountID: "acc-other", Name: "Other", Balances: aggregator.Balances{Current: floatPtr(10)}},
		},
		Item: aggregator.Item{InstitutionID: "ins-1"},
	}
	links := &MockLinkRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*banklink.BankLink, error) {
			return linkFor("link-1", "user-1", "acc-missing"), nil
		},
	}
	agg := &MockAggregatorClient{
		AccountsGetFunc: func(ctx context.Context, accessToken string) (*aggregator.AccountsResult, error) {
			return result, nil
		},
	}

	fallback := NewService(agg, links, &MockTransferRepo{})
	detail, err := fallback.GetAccountDetail(ctx, "link-1", "user-1")
	if err != nil {
		t.Fatalf("GetAccountDetail with fallback failed: %v", err)
	}
	if detail.Account.ID != "acc-other" {
		t.Errorf("Expected fallback to the first account, got %s", detail.Account.ID)
	}
	if detail.Account.ShareableID != "" {
		t.Errorf("Expected no shareable id for a fallback account, got %q", detail.Account.ShareableID)
	}

	strict := NewService(agg, links, &MockTransferRepo{}, WithFallbackToFirstAccount(false))
	if _, err := strict.GetAccountDetail(ctx, "link-1", "user-1"); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("Expected ErrAccountNotFound without fallback, got %v", err)
	}
}

func TestGetAccountDetailToleratesInstitutionLookupFailure(t *testing.T) {
	ctx := context.Background()

	links := &MockLinkRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*banklink.BankLink, error) {
			return linkFor("link-1", "user-1", "acc-1"), nil
		},
	}
	agg := &MockAggregatorClient{
		AccountsGetFunc: func(ctx context.Context, accessToken string) (*aggregator.AccountsResult, error) {
			return accountsResultFor("acc-1", 100), nil
		},
		InstitutionsGetByIDFunc: func(ctx context.Context, institutionID string) (*aggregator.Institution, error) {
			return nil, errors.New("INSTITUTION_NOT_FOUND")
		},
	}

	svc := NewService(agg, links, &MockTransferRepo{})

	detail, err := svc.GetAccountDetail(ctx, "link-1", "user-1")
	if err != nil {
		t.Fatalf("GetAccountDetail failed: %v", err)
	}
	if detail.Account.InstitutionName != "" {
		t.Errorf("Expected empty institution name, got %q", detail.Account.InstitutionName)
	}
}
