package aggregator

import (
	"context"
)

// ClientInterface defines the methods required from the aggregator API client
type ClientInterface interface {
	LinkTokenCreate(ctx context.Context, userID, userName string) (string, error)
	ItemPublicTokenExchange(ctx context.Context, publicToken string) (*ExchangeResult, error)
	AccountsGet(ctx context.Context, accessToken string) (*AccountsResult, error)
	TransactionsSync(ctx context.Context, accessToken, cursor string) (*SyncResult, error)
	ProcessorTokenCreate(ctx context.Context, accessToken, accountID, processor string) (string, error)
	InstitutionsGetByID(ctx context.Context, institutionID string) (*Institution, error)
}
