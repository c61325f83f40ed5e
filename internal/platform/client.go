package platform

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/marminbh/aggregation-connector/internal/httpx"
	"github.com/marminbh/aggregation-connector/internal/models"
)

// ClientCredentials identifies one OAuth2 client against the platform.
// The connector authenticates either with its own credentials (service
// account enumeration) or with a service account's credentials (everything
// else).
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
}

// API is the platform surface consumed by the dispatcher, the registry
// and the subscription bootstrap
type API interface {
	GetServiceAccounts(ctx context.Context) ([]models.ServiceAccount, error)
	GetCustomer(ctx context.Context, creds ClientCredentials, customerID string) (*models.Customer, error)
	PatchCustomer(ctx context.Context, creds ClientCredentials, customerID string, aggregation *models.CustomerAggregation) error
	GetEndUser(ctx context.Context, creds ClientCredentials, userID string) (*models.EndUser, error)
	PatchEndUser(ctx context.Context, creds ClientCredentials, userID string, patch map[string]interface{}) error
	PushAccounts(ctx context.Context, creds ClientCredentials, userID string, accounts []models.CanonicalAccount) error
	PushTransactions(ctx context.Context, creds ClientCredentials, userID, accountReference string, transactions []models.CanonicalTransaction) error
	GetSubscriptions(ctx context.Context, creds ClientCredentials) ([]models.Subscription, error)
	CreateSubscription(ctx context.Context, creds ClientCredentials, sub models.Subscription) (*models.Subscription, error)
	PatchEventStatus(ctx context.Context, creds ClientCredentials, subscriptionID, eventID string, status models.EventStatus) error
}

// Client wraps the platform's REST API
type Client struct {
	baseURL string
	own     ClientCredentials
	http    *httpx.Client
	cache   *tokenCache
	logger  *zap.Logger
}

// NewClient creates a platform client. own is the connector's own OAuth2
// client, used to enumerate service accounts.
func NewClient(baseURL string, own ClientCredentials, httpClient *httpx.Client, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		own:     own,
		http:    httpClient,
		cache:   newTokenCache(),
		logger:  logger,
	}
}

func (c *Client) authed(ctx context.Context, creds ClientCredentials) (map[string]string, error) {
	token, err := c.accessToken(ctx, creds)
	if err != nil {
		return nil, err
	}
	return map[string]string{"Authorization": "Bearer " + token}, nil
}

// GetServiceAccounts lists every service account registered with the
// platform, using the connector's own credentials
func (c *Client) GetServiceAccounts(ctx context.Context) ([]models.ServiceAccount, error) {
	headers, err := c.authed(ctx, c.own)
	if err != nil {
		return nil, err
	}

	var accounts []models.ServiceAccount
	if err := c.http.DoJSON(ctx, http.MethodGet, c.baseURL+"/v1/service-accounts", nil, headers, &accounts); err != nil {
		return nil, fmt.Errorf("failed to list service accounts: %w", err)
	}
	return accounts, nil
}

// GetCustomer fetches one customer record
func (c *Client) GetCustomer(ctx context.Context, creds ClientCredentials, customerID string) (*models.Customer, error) {
	headers, err := c.authed(ctx, creds)
	if err != nil {
		return nil, err
	}

	var customer models.Customer
	if err := c.http.DoJSON(ctx, http.MethodGet, c.baseURL+"/v2/customers/"+customerID, nil, headers, &customer); err != nil {
		return nil, fmt.Errorf("failed to get customer %s: %w", customerID, err)
	}
	return &customer, nil
}

// PatchCustomer updates a customer's aggregation details
func (c *Client) PatchCustomer(ctx context.Context, creds ClientCredentials, customerID string, aggregation *models.CustomerAggregation) error {
	headers, err := c.authed(ctx, creds)
	if err != nil {
		return err
	}

	body := map[string]interface{}{"aggregationDetails": aggregation}
	if err := c.http.DoJSON(ctx, http.MethodPatch, c.baseURL+"/v2/customers/"+customerID, body, headers, nil); err != nil {
		return fmt.Errorf("failed to patch customer %s: %w", customerID, err)
	}
	return nil
}

// GetEndUser fetches one end-user (banks user) record
func (c *Client) GetEndUser(ctx context.Context, creds ClientCredentials, userID string) (*models.EndUser, error) {
	headers, err := c.authed(ctx, creds)
	if err != nil {
		return nil, err
	}

	var user models.EndUser
	if err := c.http.DoJSON(ctx, http.MethodGet, c.baseURL+"/v1/banks-users/"+userID, nil, headers, &user); err != nil {
		return nil, fmt.Errorf("failed to get end user %s: %w", userID, err)
	}
	return &user, nil
}

// PatchEndUser applies a partial update to an end-user record
func (c *Client) PatchEndUser(ctx context.Context, creds ClientCredentials, userID string, patch map[string]interface{}) error {
	headers, err := c.authed(ctx, creds)
	if err != nil {
		return err
	}

	if err := c.http.DoJSON(ctx, http.MethodPatch, c.baseURL+"/v1/banks-users/"+userID, patch, headers, nil); err != nil {
		return fmt.Errorf("failed to patch end user %s: %w", userID, err)
	}
	return nil
}

// PushAccounts uploads canonical accounts to an end-user record. The
// platform overwrites by account reference, so repeated pushes are safe.
func (c *Client) PushAccounts(ctx context.Context, creds ClientCredentials, userID string, accounts []models.CanonicalAccount) error {
	headers, err := c.authed(ctx, creds)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/v1/banks-users/%s/accounts", c.baseURL, userID)
	if err := c.http.DoJSON(ctx, http.MethodPost, endpoint, accounts, headers, nil); err != nil {
		return fmt.Errorf("failed to push accounts for end user %s: %w", userID, err)
	}

	c.logger.Info("Pushed accounts to platform",
		zap.String("user_id", userID),
		zap.Int("account_count", len(accounts)),
	)
	return nil
}

// PushTransactions uploads canonical transactions for one account
func (c *Client) PushTransactions(ctx context.Context, creds ClientCredentials, userID, accountReference string, transactions []models.CanonicalTransaction) error {
	headers, err := c.authed(ctx, creds)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/v1/banks-users/%s/accounts/%s/transactions", c.baseURL, userID, accountReference)
	if err := c.http.DoJSON(ctx, http.MethodPost, endpoint, transactions, headers, nil); err != nil {
		return fmt.Errorf("failed to push transactions for account %s: %w", accountReference, err)
	}

	c.logger.Info("Pushed transactions to platform",
		zap.String("user_id", userID),
		zap.String("account_reference", accountReference),
		zap.Int("transaction_count", len(transactions)),
	)
	return nil
}

// GetSubscriptions lists the subscriptions owned by the credentials
func (c *Client) GetSubscriptions(ctx context.Context, creds ClientCredentials) ([]models.Subscription, error) {
	headers, err := c.authed(ctx, creds)
	if err != nil {
		return nil, err
	}

	var subs []models.Subscription
	if err := c.http.DoJSON(ctx, http.MethodGet, c.baseURL+"/v1/subscriptions", nil, headers, &subs); err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}

// CreateSubscription registers one event subscription
func (c *Client) CreateSubscription(ctx context.Context, creds ClientCredentials, sub models.Subscription) (*models.Subscription, error) {
	headers, err := c.authed(ctx, creds)
	if err != nil {
		return nil, err
	}

	var created models.Subscription
	if err := c.http.DoJSON(ctx, http.MethodPost, c.baseURL+"/v1/subscriptions", sub, headers, &created); err != nil {
		return nil, fmt.Errorf("failed to create subscription for event %s: %w", sub.EventName, err)
	}
	return &created, nil
}

// PatchEventStatus reports the terminal processing status of one delivered
// event back to the platform
func (c *Client) PatchEventStatus(ctx context.Context, creds ClientCredentials, subscriptionID, eventID string, status models.EventStatus) error {
	headers, err := c.authed(ctx, creds)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/v1/subscriptions/%s/events/%s", c.baseURL, subscriptionID, eventID)
	body := map[string]string{"status": string(status)}
	if err := c.http.DoJSON(ctx, http.MethodPatch, endpoint, body, headers, nil); err != nil {
		return fmt.Errorf("failed to patch event %s status: %w", eventID, err)
	}
	return nil
}
