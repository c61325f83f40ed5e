package aggregator

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/marminbh/aggregation-connector/internal/httpx"
)

// API is the aggregator surface consumed by the dispatcher workflows
type API interface {
	ExchangeCode(ctx context.Context, creds Credentials, code string) (string, error)
	GetJWT(ctx context.Context, creds Credentials) (*JWTResponse, error)
	CreateAnonymousUser(ctx context.Context, creds Credentials) (*AnonymousUser, error)
	GetConnections(ctx context.Context, creds Credentials, token string) ([]Connection, error)
	GetAccounts(ctx context.Context, creds Credentials, token string) ([]Account, error)
	GetTransactions(ctx context.Context, creds Credentials, token string, accountID int64, since time.Time) ([]Transaction, error)
	GetCategory(ctx context.Context, creds Credentials, token string, categoryID int64) (*Category, error)
	GetConnectionOwner(ctx context.Context, creds Credentials, token string, connectionID int64) (*OwnerInfo, error)
	RedirectURL(creds Credentials, callbackURL string) string
}

// Client wraps the aggregator's REST API. Stateless per call; base URL and
// auth headers are derived from the credentials passed to each method.
type Client struct {
	http   *httpx.Client
	logger *zap.Logger
}

// NewClient creates an aggregator client
func NewClient(httpClient *httpx.Client, logger *zap.Logger) *Client {
	return &Client{http: httpClient, logger: logger}
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// ExchangeCode exchanges a temporary authorization code for a permanent
// access token. Client id/secret travel in the body, not a header.
func (c *Client) ExchangeCode(ctx context.Context, creds Credentials, code string) (string, error) {
	body := map[string]string{
		"client_id":     creds.ClientID,
		"client_secret": creds.ClientSecret,
		"code":          code,
	}

	var token AccessToken
	if err := c.http.DoJSON(ctx, http.MethodPost, creds.BaseURL+"auth/token/access", body, nil, &token); err != nil {
		return "", fmt.Errorf("failed to exchange temporary code: %w", err)
	}

	c.logger.Debug("Exchanged temporary code for permanent token",
		zap.String("client_id", creds.ClientID),
	)
	return token.AccessToken, nil
}

// GetJWT requests a JWT for API-mode aggregation; no user code is needed
func (c *Client) GetJWT(ctx context.Context, creds Credentials) (*JWTResponse, error) {
	body := map[string]string{
		"client_id":     creds.ClientID,
		"client_secret": creds.ClientSecret,
	}

	var resp JWTResponse
	if err := c.http.DoJSON(ctx, http.MethodPost, creds.BaseURL+"auth/jwt", body, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get JWT: %w", err)
	}
	return &resp, nil
}

// CreateAnonymousUser creates a fresh aggregator user session
func (c *Client) CreateAnonymousUser(ctx context.Context, creds Credentials) (*AnonymousUser, error) {
	body := map[string]string{
		"client_id":     creds.ClientID,
		"client_secret": creds.ClientSecret,
	}

	var user AnonymousUser
	if err := c.http.DoJSON(ctx, http.MethodPost, creds.BaseURL+"auth/init", body, nil, &user); err != nil {
		return nil, fmt.Errorf("failed to create anonymous user: %w", err)
	}
	return &user, nil
}

// GetConnections lists the user's active connections
func (c *Client) GetConnections(ctx context.Context, creds Credentials, token string) ([]Connection, error) {
	var resp connectionsResponse
	if err := c.http.DoJSON(ctx, http.MethodGet, creds.BaseURL+"users/me/connections?expand=bank", nil, bearer(token), &resp); err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}

	active := make([]Connection, 0, len(resp.Connections))
	for _, conn := range resp.Connections {
		if conn.Active {
			active = append(active, conn)
		}
	}
	return active, nil
}

// GetAccounts lists the user's bank accounts
func (c *Client) GetAccounts(ctx context.Context, creds Credentials, token string) ([]Account, error) {
	var resp accountsResponse
	if err := c.http.DoJSON(ctx, http.MethodGet, creds.BaseURL+"users/me/accounts", nil, bearer(token), &resp); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return resp.Accounts, nil
}

// GetTransactions lists one account's transactions back to the since date
func (c *Client) GetTransactions(ctx context.Context, creds Credentials, token string, accountID int64, since time.Time) ([]Transaction, error) {
	endpoint := fmt.Sprintf("%susers/me/accounts/%d/transactions?limit=1000&min_date=%s",
		creds.BaseURL, accountID, url.QueryEscape(since.Format("2006-01-02")))

	var resp transactionsResponse
	if err := c.http.DoJSON(ctx, http.MethodGet, endpoint, nil, bearer(token), &resp); err != nil {
		return nil, fmt.Errorf("failed to list transactions for account %d: %w", accountID, err)
	}
	return resp.Transactions, nil
}

// GetCategory resolves one transaction category
func (c *Client) GetCategory(ctx context.Context, creds Credentials, token string, categoryID int64) (*Category, error) {
	endpoint := fmt.Sprintf("%sbanks/categories/%d", creds.BaseURL, categoryID)

	var category Category
	if err := c.http.DoJSON(ctx, http.MethodGet, endpoint, nil, bearer(token), &category); err != nil {
		return nil, fmt.Errorf("failed to get category %d: %w", categoryID, err)
	}
	return &category, nil
}

// GetConnectionOwner fetches the identity information of a connection
func (c *Client) GetConnectionOwner(ctx context.Context, creds Credentials, token string, connectionID int64) (*OwnerInfo, error) {
	endpoint := fmt.Sprintf("%susers/me/connections/%d/informations", creds.BaseURL, connectionID)

	var owner OwnerInfo
	if err := c.http.DoJSON(ctx, http.MethodGet, endpoint, nil, bearer(token), &owner); err != nil {
		return nil, fmt.Errorf("failed to get owner info for connection %d: %w", connectionID, err)
	}
	return &owner, nil
}

// RedirectURL computes the hosted-login webview URL for redirect-mode
// aggregation. The callback URL is where the aggregator sends the user
// back with a temporary code.
func (c *Client) RedirectURL(creds Credentials, callbackURL string) string {
	return fmt.Sprintf("%sauth/webview/fr/connect?client_id=%s&redirect_uri=%s&response_type=code&state=&types=banks",
		creds.BaseURL, creds.ClientID, callbackURL)
}
