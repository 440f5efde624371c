// Package aggregator provides the client for the bank-data aggregator API:
// link-token issuance, public-token exchange, account listing, cursor-paged
// transaction sync, processor-token issuance, and institution lookup.
package aggregator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultTimeout = 30 * time.Second

	linkTokenPath      = "/link/token/create"
	exchangePath       = "/item/public_token/exchange"
	accountsPath       = "/accounts/get"
	transactionsPath   = "/transactions/sync"
	processorTokenPath = "/processor/token/create"
	institutionsPath   = "/institutions/get_by_id"
)

// Client handles communication with the aggregator API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	clientID   string
	secret     string
}

// Ensure Client implements ClientInterface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a new aggregator API client.
func NewClient(baseURL, clientID, secret string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		baseURL:  baseURL,
		clientID: clientID,
		secret:   secret,
	}
}

// Balances carries the live balance figures for one account.
type Balances struct {
	Available *float64 `json:"available"`
	Current   *float64 `json:"current"`
}

// Account is one account at a linked institution.
type Account struct {
	AccountID    string   `json:"account_id"`
	Name         string   `json:"name"`
	OfficialName string   `json:"official_name"`
	Mask         string   `json:"mask"`
	Type         string   `json:"type"`
	Subtype      string   `json:"subtype"`
	Balances     Balances `json:"balances"`
}

// Item identifies one institution link.
type Item struct {
	ItemID        string `json:"item_id"`
	InstitutionID string `json:"institution_id"`
}

// Transaction is one entry of the aggregator's sync feed.
type Transaction struct {
	TransactionID  string   `json:"transaction_id"`
	AccountID      string   `json:"account_id"`
	Name           string   `json:"name"`
	Amount         float64  `json:"amount"`
	Date           string   `json:"date"` // YYYY-MM-DD
	PaymentChannel string   `json:"payment_channel"`
	Category       []string `json:"category"`
	Pending        bool     `json:"pending"`
}

// ParsedDate returns the transaction date as a time.Time.
func (t *Transaction) ParsedDate() (time.Time, error) {
	parsed, err := time.Parse("2006-01-02", t.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse date '%s': %w", t.Date, err)
	}
	return parsed, nil
}

// PrimaryCategory returns the first (most generic) category, if any.
func (t *Transaction) PrimaryCategory() string {
	if len(t.Category) == 0 {
		return ""
	}
	return t.Category[0]
}

// ExchangeResult is the durable outcome of a public-token exchange.
type ExchangeResult struct {
	AccessToken string `json:"access_token"`
	ItemID      string `json:"item_id"`
}

// AccountsResult lists every account the user authorized at an institution.
type AccountsResult struct {
	Accounts []Account `json:"accounts"`
	Item     Item      `json:"item"`
}

// SyncResult is one page of the transaction sync feed.
type SyncResult struct {
	Added      []Transaction `json:"added"`
	NextCursor string        `json:"next_cursor"`
	HasMore    bool          `json:"has_more"`
}

// Institution describes a financial institution.
type Institution struct {
	InstitutionID string `json:"institution_id"`
	Name          string `json:"name"`
}

type errorResponse struct {
	ErrorType    string `json:"error_type"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// LinkTokenCreate issues a short-lived token for the client-side link widget.
func (c *Client) LinkTokenCreate(ctx context.Context, userID, userName string) (string, error) {
	req := map[string]any{
		"user":          map[string]string{"client_user_id": userID, "legal_name": userName},
		"client_name":   "Horizon",
		"products":      []string{"auth", "transactions"},
		"language":      "en",
		"country_codes": []string{"US"},
	}

	var resp struct {
		LinkToken string `json:"link_token"`
	}
	if err := c.post(ctx, linkTokenPath, req, &resp); err != nil {
		return "", err
	}
	return resp.LinkToken, nil
}

// ItemPublicTokenExchange swaps the widget's one-time public token for a
// durable access token and an item id.
func (c *Client) ItemPublicTokenExchange(ctx context.Context, publicToken string) (*ExchangeResult, error) {
	req := map[string]string{"public_token": publicToken}

	var resp ExchangeResult
	if err := c.post(ctx, exchangePath, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AccountsGet lists every account authorized under the access token,
// including live balances.
func (c *Client) AccountsGet(ctx context.Context, accessToken string) (*AccountsResult, error) {
	req := map[string]string{"access_token": accessToken}

	var resp AccountsResult
	if err := c.post(ctx, accountsPath, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TransactionsSync fetches one page of the transaction feed. An empty cursor
// starts from the beginning; callers pass NextCursor to continue.
func (c *Client) TransactionsSync(ctx context.Context, accessToken, cursor string) (*SyncResult, error) {
	req := map[string]string{"access_token": accessToken}
	if cursor != "" {
		req["cursor"] = cursor
	}

	var resp SyncResult
	if err := c.post(ctx, transactionsPath, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ProcessorTokenCreate mints a processor token scoped to a single account,
// for handing to the payment rail.
func (c *Client) ProcessorTokenCreate(ctx context.Context, accessToken, accountID, processor string) (string, error) {
	req := map[string]string{
		"access_token": accessToken,
		"account_id":   accountID,
		"processor":    processor,
	}

	var resp struct {
		ProcessorToken string `json:"processor_token"`
	}
	if err := c.post(ctx, processorTokenPath, req, &resp); err != nil {
		return "", err
	}
	return resp.ProcessorToken, nil
}

// InstitutionsGetByID looks up institution metadata.
func (c *Client) InstitutionsGetByID(ctx context.Context, institutionID string) (*Institution, error) {
	req := map[string]any{
		"institution_id": institutionID,
		"country_codes":  []string{"US"},
	}

	var resp struct {
		Institution Institution `json:"institution"`
	}
	if err := c.post(ctx, institutionsPath, req, &resp); err != nil {
		return nil, err
	}
	return &resp.Institution, nil
}

// post sends a JSON request with client credentials and decodes the response
// into out. Non-200 responses are turned into errors carrying the API's
// error code and message when present.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Aggregator-Client-Id", c.clientID)
	req.Header.Set("Aggregator-Secret", c.secret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if err := json.Unmarshal(raw, &errResp); err != nil || errResp.ErrorCode == "" {
			return fmt.Errorf("aggregator request %s failed with status %d: %s", path, resp.StatusCode, string(raw))
		}
		return fmt.Errorf("aggregator error (status %d): %s - %s", resp.StatusCode, errResp.ErrorCode, errResp.ErrorMessage)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}
