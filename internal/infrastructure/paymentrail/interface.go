package paymentrail

import (
	"context"

	"github.com/shopspring/decimal"
)

// ClientInterface defines the methods required from the payment-rail client
type ClientInterface interface {
	CreateCustomer(ctx context.Context, req CustomerRequest) (string, error)
	CreateOnDemandAuthorization(ctx context.Context) (AuthorizationLinks, error)
	CreateFundingSource(ctx context.Context, customerID, name, processorToken string, authLinks AuthorizationLinks) (string, error)
	RemoveFundingSource(ctx context.Context, fundingSourceURL string) error
	CreateTransfer(ctx context.Context, sourceURL, destinationURL string, amount decimal.Decimal) (string, error)
}
