// Package accounts reads linked banks back out: live balances per bank link,
// and a per-account ledger that merges the aggregator's transaction feed
// with locally recorded transfers.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"horizon/internal/domain/banklink"
	"horizon/internal/domain/transfer"
	"horizon/internal/infrastructure/aggregator"
)

const defaultSyncPageBudget = 50

// Service is the account/transaction aggregation reader.
type Service struct {
	aggregator      aggregator.ClientInterface
	links           banklink.Repository
	transfers       transfer.Repository
	syncPageBudget  int
	fallbackToFirst bool
}

// Option configures a Service.
type Option func(*Service)

// WithSyncPageBudget bounds the transaction sync pagination loop.
func WithSyncPageBudget(n int) Option {
	return func(s *Service) { s.syncPageBudget = n }
}

// WithFallbackToFirstAccount controls whether GetAccountDetail falls back to
// the institution's first account when the linked account id is missing from
// the aggregator response.
func WithFallbackToFirstAccount(enabled bool) Option {
	return func(s *Service) { s.fallbackToFirst = enabled }
}

// NewService creates a new aggregation reader.
func NewService(agg aggregator.ClientInterface, links banklink.Repository, transfers transfer.Repository, opts ...Option) *Service {
	s := &Service{
		aggregator:      agg,
		links:           links,
		transfers:       transfers,
		syncPageBudget:  defaultSyncPageBudget,
		fallbackToFirst: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListAccounts returns one account view per usable bank link of the user,
// with live balances, plus the rollups. A link whose aggregator call fails
// is skipped and logged rather than aborting the whole listing; the rollups
// cover only the accounts actually fetched. No links is an empty result,
// not an error.
func (s *Service) ListAccounts(ctx context.Context, userID string) (*AccountList, error) {
	links, err := s.links.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bank links: %w", err)
	}

	list := &AccountList{Accounts: []Account{}}
	for _, link := range links {
		view, err := s.fetchAccountView(ctx, link)
		if err != nil {
			log.Printf("User %s: skipping bank link %s: %v", userID, link.ID, err)
			continue
		}
		list.Accounts = append(list.Accounts, *view)
		list.TotalCurrentBalance += view.CurrentBalance
	}
	list.TotalBanks = len(list.Accounts)

	return list, nil
}

// GetAccountDetail returns one account view plus its merged ledger:
// aggregator feed entries and locally recorded transfers, normalized and
// sorted by date descending.
func (s *Service) GetAccountDetail(ctx context.Context, bankLinkID, userID string) (*AccountDetail, error) {
	link, err := s.links.GetByID(ctx, bankLinkID)
	if err != nil {
		if errors.Is(err, banklink.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to resolve bank link: %w", err)
	}
	if link.UserID != userID {
		return nil, ErrForbidden
	}

	view, err := s.fetchAccountView(ctx, link)
	if err != nil {
		return nil, err
	}

	if view.InstitutionID != "" {
		institution, err := s.aggregator.InstitutionsGetByID(ctx, view.InstitutionID)
		if err != nil {
			// The ledger is still useful without the display name.
			log.Printf("User %s: institution lookup for %s failed: %v", userID, view.InstitutionID, err)
		} else {
			view.InstitutionName = institution.Name
		}
	}

	feed, err := s.syncTransactions(ctx, link.AccessToken)
	if err != nil {
		if errors.Is(err, ErrSyncBudgetExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrAggregatorRead, err)
	}

	transfers, err := s.transfers.ListByBankID(ctx, link.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfer transactions: %w", err)
	}

	merged := mergeLedger(link.ID, feed, transfers)

	return &AccountDetail{Account: *view, Transactions: merged}, nil
}

// fetchAccountView resolves the live view for one bank link. The account is
// matched by external account id; the first-account fallback is a policy,
// not a guarantee.
func (s *Service) fetchAccountView(ctx context.Context, link *banklink.BankLink) (*Account, error) {
	resp, err := s.aggregator.AccountsGet(ctx, link.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAggregatorRead, err)
	}

	var acct *aggregator.Account
	for i := range resp.Accounts {
		if resp.Accounts[i].AccountID == link.AccountID {
			acct = &resp.Accounts[i]
			break
		}
	}
	if acct == nil {
		if !s.fallbackToFirst || len(resp.Accounts) == 0 {
			return nil, ErrAccountNotFound
		}
		acct = &resp.Accounts[0]
	}

	view := &Account{
		ID:            acct.AccountID,
		Name:          acct.Name,
		OfficialName:  acct.OfficialName,
		Mask:          acct.Mask,
		Type:          acct.Type,
		Subtype:       acct.Subtype,
		InstitutionID: resp.Item.InstitutionID,
		BankLinkID:    link.ID,
	}
	// The stored shareable id encodes the linked account. On the fallback
	// path the shown account is a different one, so advertising that id
	// would route transfers to an account the viewer is not looking at.
	if acct.AccountID == link.AccountID {
		view.ShareableID = link.ShareableID
	}
	if acct.Balances.Available != nil {
		view.AvailableBalance = *acct.Balances.Available
	}
	if acct.Balances.Current != nil {
		view.CurrentBalance = *acct.Balances.Current
	}

	return view, nil
}

// syncTransactions drives the cursor-paged sync loop, accumulating added
// transactions in page order. The loop is bounded: an aggregator that keeps
// reporting more pages past the budget surfaces ErrSyncBudgetExceeded
// instead of spinning.
func (s *Service) syncTransactions(ctx context.Context, accessToken string) ([]aggregator.Transaction, error) {
	var all []aggregator.Transaction

	cursor := ""
	for page := 0; ; page++ {
		if page >= s.syncPageBudget {
			return nil, fmt.Errorf("%w: %d pages", ErrSyncBudgetExceeded, s.syncPageBudget)
		}

		resp, err := s.aggregator.TransactionsSync(ctx, accessToken, cursor)
		if err != nil {
			return nil, fmt.Errorf("failed to sync transactions: %w", err)
		}

		all = append(all, resp.Added...)
		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return all, nil
}

// mergeLedger normalizes both transaction sources into one sequence sorted
// by date descending. Transfer records are tagged debit when the viewed bank
// was the sender and credit otherwise; feed entries are tagged by amount
// sign (aggregator convention: positive amounts are outflows).
func mergeLedger(bankLinkID string, feed []aggregator.Transaction, transfers []*transfer.Transaction) []Transaction {
	merged := make([]Transaction, 0, len(feed)+len(transfers))

	for i := range feed {
		tx := &feed[i]
		date, err := tx.ParsedDate()
		if err != nil {
			log.Printf("Skipping feed transaction %s: %v", tx.TransactionID, err)
			continue
		}

		entryType := TypeDebit
		if tx.Amount < 0 {
			entryType = TypeCredit
		}

		merged = append(merged, Transaction{
			ID:             tx.TransactionID,
			Name:           tx.Name,
			Amount:         tx.Amount,
			Date:           date,
			PaymentChannel: tx.PaymentChannel,
			Category:       tx.PrimaryCategory(),
			Pending:        tx.Pending,
			Type:           entryType,
		})
	}

	for _, tr := range transfers {
		entryType := TypeCredit
		if tr.SenderBankID == bankLinkID {
			entryType = TypeDebit
		}

		merged = append(merged, Transaction{
			ID:             tr.ID,
			Name:           tr.Name,
			Amount:         tr.Amount,
			Date:           tr.CreatedAt,
			PaymentChannel: tr.Channel,
			Category:       tr.Category,
			Type:           entryType,
		})
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Date.After(merged[j].Date)
	})

	return merged
}
