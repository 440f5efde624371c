// Package banklink orchestrates the bank-linking flow: exchanging the link
// widget's one-time public token for durable aggregator credentials, minting
// a processor token per authorized account, creating a payment-rail funding
// source, and persisting the local bank link record last.
package banklink

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"horizon/internal/domain/user"
	"horizon/internal/infrastructure/aggregator"
	"horizon/internal/infrastructure/paymentrail"
)

var (
	linkTracer          = otel.Tracer("horizon/banklink")
	linkMeter           = otel.Meter("horizon/banklink")
	accountsLinked, _   = linkMeter.Int64Counter("banklink.accounts.linked", metric.WithDescription("Accounts successfully linked"))
	accountsFailed, _   = linkMeter.Int64Counter("banklink.accounts.failed", metric.WithDescription("Accounts that failed to link"))
	linkDuration, _     = linkMeter.Float64Histogram("banklink.link.duration", metric.WithDescription("LinkBank duration in seconds"), metric.WithUnit("s"))
	customersCreated, _ = linkMeter.Int64Counter("banklink.customers.created", metric.WithDescription("Payment-rail customers provisioned"))
)

const (
	defaultProcessor       = "dwolla"
	defaultCustomerTimeout = 30 * time.Second
	minimumCustomerAge     = 18
)

// Service orchestrates bank linking and payment-rail customer provisioning.
type Service struct {
	aggregator      aggregator.ClientInterface
	rail            paymentrail.ClientInterface
	links           Repository
	users           user.Repository
	processor       string
	customerTimeout time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithCustomerTimeout bounds the payment-rail customer creation call.
func WithCustomerTimeout(d time.Duration) Option {
	return func(s *Service) { s.customerTimeout = d }
}

// WithProcessor overrides the processor name requested from the aggregator.
func WithProcessor(name string) Option {
	return func(s *Service) { s.processor = name }
}

// NewService creates a new bank-link orchestrator.
func NewService(agg aggregator.ClientInterface, rail paymentrail.ClientInterface, links Repository, users user.Repository, opts ...Option) *Service {
	s := &Service{
		aggregator:      agg,
		rail:            rail,
		links:           links,
		users:           users,
		processor:       defaultProcessor,
		customerTimeout: defaultCustomerTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateLinkToken issues a link token for the client-side widget.
func (s *Service) CreateLinkToken(ctx context.Context, userID string) (string, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to get user: %w", err)
	}
	return s.aggregator.LinkTokenCreate(ctx, u.ID, u.FullName())
}

// LinkBank exchanges a one-time public token and provisions every account
// the user authorized at the institution. Accounts are provisioned
// independently and concurrently; a failure on one account never aborts its
// siblings. The bank link record is always the last write for an account,
// so a crash mid-flight leaves no local record rather than a partial one.
func (s *Service) LinkBank(ctx context.Context, userID, publicToken string) (*LinkResult, error) {
	start := time.Now()
	ctx, span := linkTracer.Start(ctx, "banklink.link",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()
	defer func() {
		linkDuration.Record(ctx, time.Since(start).Seconds())
	}()

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	exch, err := s.aggregator.ItemPublicTokenExchange(ctx, publicToken)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrExchange, err)
	}

	accountsResp, err := s.aggregator.AccountsGet(ctx, exch.AccessToken)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list institution accounts: %w", err)
	}

	// The customer must exist before any funding source can be created.
	// Provisioning once up front also keeps the per-account goroutines free
	// of a create-customer race.
	customerURL, err := s.EnsureCustomer(ctx, u)
	if err != nil {
		return nil, err
	}
	customerID := paymentrail.CustomerIDFromURL(customerURL)

	result := &LinkResult{
		ItemID:        exch.ItemID,
		InstitutionID: accountsResp.Item.InstitutionID,
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, acct := range accountsResp.Accounts {
		wg.Add(1)
		go func(acct aggregator.Account) {
			defer wg.Done()

			outcome, already, err := s.linkAccount(ctx, u.ID, exch, customerID, acct)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				accountsFailed.Add(ctx, 1)
				log.Printf("User %s: failed to link account %s (%s): %v", u.ID, acct.AccountID, acct.Name, err)
				result.Failed = append(result.Failed, AccountFailure{
					AccountID: acct.AccountID,
					Name:      acct.Name,
					Reason:    err.Error(),
				})
			case already:
				log.Printf("User %s: account %s already linked, skipping", u.ID, acct.AccountID)
				result.AlreadyLinked = append(result.AlreadyLinked, acct.AccountID)
			default:
				accountsLinked.Add(ctx, 1)
				log.Printf("User %s: linked account %s (%s)", u.ID, acct.AccountID, acct.Name)
				result.Linked = append(result.Linked, *outcome)
			}
		}(acct)
	}
	wg.Wait()

	log.Printf("User %s: link complete for item %s - linked=%d, already=%d, failed=%d",
		u.ID, exch.ItemID, len(result.Linked), len(result.AlreadyLinked), len(result.Failed))

	return result, nil
}

// linkAccount provisions a single account: processor token, funding source,
// then the local record. Returns already=true when the (user, account) pair
// is linked from a previous run.
func (s *Service) linkAccount(ctx context.Context, userID string, exch *aggregator.ExchangeResult, customerID string, acct aggregator.Account) (outcome *LinkedAccount, already bool, err error) {
	exists, err := s.links.ExistsByUserAndAccount(ctx, userID, acct.AccountID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check existing link: %w", err)
	}
	if exists {
		return nil, true, nil
	}

	processorToken, err := s.aggregator.ProcessorTokenCreate(ctx, exch.AccessToken, acct.AccountID, s.processor)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create processor token: %w", err)
	}

	// The rail requires an on-demand transfer authorization before it
	// accepts a new funding source; its links ride along in the creation
	// request.
	authLinks, err := s.rail.CreateOnDemandAuthorization(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrFundingSource, err)
	}

	fundingSourceURL, err := s.rail.CreateFundingSource(ctx, customerID, acct.Name, processorToken, authLinks)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrFundingSource, err)
	}

	link, err := s.links.Create(ctx, CreateParams{
		UserID:           userID,
		ItemID:           exch.ItemID,
		AccountID:        acct.AccountID,
		AccessToken:      exch.AccessToken,
		FundingSourceURL: fundingSourceURL,
		ShareableID:      EncodeShareableID(acct.AccountID),
	})
	if err != nil {
		// The funding source exists remotely but the local record does not.
		// Compensate so no orphaned rail resource is left behind.
		if remErr := s.rail.RemoveFundingSource(ctx, fundingSourceURL); remErr != nil {
			log.Printf("User %s: failed to remove orphaned funding source %s: %v", userID, fundingSourceURL, remErr)
		}
		return nil, false, fmt.Errorf("failed to persist bank link: %w", err)
	}

	return &LinkedAccount{
		BankLinkID:       link.ID,
		AccountID:        acct.AccountID,
		Name:             acct.Name,
		FundingSourceURL: fundingSourceURL,
	}, false, nil
}

// EnsureCustomer provisions a payment-rail customer for the user exactly
// once. A user with a customer URL already recorded is a no-op. The rail
// call is bounded by a hard deadline; expiry surfaces as ErrTimeout.
func (s *Service) EnsureCustomer(ctx context.Context, u *user.User) (string, error) {
	if u.CustomerURL != "" {
		return u.CustomerURL, nil
	}

	if err := validateCustomerProfile(u); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCustomerProvisioning, err)
	}

	railCtx, cancel := context.WithTimeout(ctx, s.customerTimeout)
	defer cancel()

	customerURL, err := s.rail.CreateCustomer(railCtx, paymentrail.CustomerRequest{
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		Type:        "personal",
		Address1:    u.Address1,
		City:        u.City,
		State:       u.State,
		PostalCode:  u.PostalCode,
		DateOfBirth: u.DateOfBirth,
		SSN:         u.SSN,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || railCtx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%w: customer creation exceeded %s", ErrTimeout, s.customerTimeout)
		}
		return "", fmt.Errorf("%w: %v", ErrCustomerProvisioning, err)
	}

	customerID := paymentrail.CustomerIDFromURL(customerURL)
	if err := s.users.SetCustomer(ctx, u.ID, customerID, customerURL); err != nil {
		return "", fmt.Errorf("failed to record payment customer: %w", err)
	}

	customersCreated.Add(ctx, 1)
	log.Printf("User %s: provisioned payment customer %s", u.ID, customerID)

	u.CustomerID = customerID
	u.CustomerURL = customerURL
	return customerURL, nil
}

// validateCustomerProfile rejects profiles the rail would refuse, before any
// remote call is made.
func validateCustomerProfile(u *user.User) error {
	if u.FirstName == "" || u.LastName == "" || u.Email == "" {
		return errors.New("name and email are required")
	}
	if u.Address1 == "" || u.City == "" || u.State == "" || u.PostalCode == "" {
		return errors.New("address is required")
	}
	dob, err := time.Parse("2006-01-02", u.DateOfBirth)
	if err != nil {
		return fmt.Errorf("malformed date of birth %q", u.DateOfBirth)
	}
	if age := yearsSince(dob, time.Now()); age < minimumCustomerAge {
		return fmt.Errorf("customer must be at least %d years old", minimumCustomerAge)
	}
	return nil
}

func yearsSince(t, now time.Time) int {
	years := now.Year() - t.Year()
	if now.YearDay() < t.YearDay() {
		years--
	}
	return years
}
