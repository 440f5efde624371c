// Package paymentrail provides the client for the payment-rail API:
// customer creation, on-demand transfer authorization, funding sources,
// and transfers between funding sources. Created resources are identified
// by the Location header of the creation response.
package paymentrail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const defaultTimeout = 30 * time.Second

// ErrNoLocation is returned when a creation call succeeds but the rail did
// not return a resource URL.
var ErrNoLocation = errors.New("payment rail returned no resource location")

// Client handles communication with the payment-rail API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	key        string
	secret     string
}

// Ensure Client implements ClientInterface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a new payment-rail API client.
func NewClient(baseURL, key, secret string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		secret:  secret,
	}
}

// CustomerRequest is the profile submitted to provision a personal customer.
type CustomerRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Type        string `json:"type"`
	Address1    string `json:"address1"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `json:"postalCode"`
	DateOfBirth string `json:"dateOfBirth"`
	SSN         string `json:"ssn"`
}

// AuthorizationLinks are the links of an on-demand transfer authorization.
type AuthorizationLinks map[string]struct {
	Href string `json:"href"`
}

type railError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CreateCustomer provisions a customer and returns its canonical URL.
func (c *Client) CreateCustomer(ctx context.Context, req CustomerRequest) (string, error) {
	return c.postForLocation(ctx, c.baseURL+"/customers", req)
}

// CreateOnDemandAuthorization creates the authorization a customer grants
// before funds can be moved on demand.
func (c *Client) CreateOnDemandAuthorization(ctx context.Context) (AuthorizationLinks, error) {
	var resp struct {
		Links AuthorizationLinks `json:"_links"`
	}
	if err := c.post(ctx, c.baseURL+"/on-demand-authorizations", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Links, nil
}

// CreateFundingSource attaches a verified bank account to a customer using a
// processor token, and returns the funding source URL. The authorization
// links come from a prior CreateOnDemandAuthorization call; the rail rejects
// funding sources created without them.
func (c *Client) CreateFundingSource(ctx context.Context, customerID, name, processorToken string, authLinks AuthorizationLinks) (string, error) {
	body := map[string]any{
		"name":       name,
		"plaidToken": processorToken,
	}
	if authLinks != nil {
		body["_links"] = authLinks
	}
	return c.postForLocation(ctx, fmt.Sprintf("%s/customers/%s/funding-sources", c.baseURL, customerID), body)
}

// RemoveFundingSource soft-deletes a funding source by its URL. Used as the
// compensating action when a bank link could not be persisted after the
// funding source was created.
func (c *Client) RemoveFundingSource(ctx context.Context, fundingSourceURL string) error {
	body := map[string]bool{"removed": true}
	return c.post(ctx, fundingSourceURL, body, nil)
}

// CreateTransfer moves funds between two funding sources and returns the
// transfer URL. The amount is serialized as a fixed two-decimal string.
func (c *Client) CreateTransfer(ctx context.Context, sourceURL, destinationURL string, amount decimal.Decimal) (string, error) {
	body := map[string]any{
		"_links": map[string]any{
			"source":      map[string]string{"href": sourceURL},
			"destination": map[string]string{"href": destinationURL},
		},
		"amount": map[string]string{
			"currency": "USD",
			"value":    amount.StringFixed(2),
		},
	}
	return c.postForLocation(ctx, c.baseURL+"/transfers", body)
}

// postForLocation issues a creation request and returns the Location header.
func (c *Client) postForLocation(ctx context.Context, url string, body any) (string, error) {
	resp, err := c.do(ctx, url, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	location := resp.Header.Get("Location")
	if location == "" {
		return "", ErrNoLocation
	}
	return location, nil
}

// post issues a request and decodes the response body into out when out is
// non-nil.
func (c *Client) post(ctx context.Context, url string, body, out any) error {
	resp, err := c.do(ctx, url, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, url string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/vnd.dwolla.v1.hal+json")
	req.Header.Set("Accept", "application/vnd.dwolla.v1.hal+json")
	req.SetBasicAuth(c.key, c.secret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)

		var railErr railError
		if err := json.Unmarshal(raw, &railErr); err == nil && railErr.Code != "" {
			return nil, fmt.Errorf("payment rail error (status %d): %s - %s", resp.StatusCode, railErr.Code, railErr.Message)
		}
		return nil, fmt.Errorf("payment rail request failed with status %d: %s", resp.StatusCode, string(raw))
	}

	return resp, nil
}

// CustomerIDFromURL extracts the customer id from a canonical customer URL.
func CustomerIDFromURL(customerURL string) string {
	parts := strings.Split(strings.TrimRight(customerURL, "/"), "/")
	return parts[len(parts)-1]
}
