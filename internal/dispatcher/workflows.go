package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/marminbh/aggregation-connector/internal/aggregator"
	"github.com/marminbh/aggregation-connector/internal/mapper"
	"github.com/marminbh/aggregation-connector/internal/metrics"
	"github.com/marminbh/aggregation-connector/internal/models"
	"github.com/marminbh/aggregation-connector/internal/platform"
	"github.com/marminbh/aggregation-connector/internal/store"
)

func accountCreds(account *models.ServiceAccount) platform.ClientCredentials {
	return platform.ClientCredentials{
		ClientID:     account.ClientID,
		ClientSecret: account.ClientSecret,
	}
}

// handleLinkRequired drives the aggregator_link_required workflow: fetch
// the customer, branch on its aggregation mode, and patch the customer
// with either a redirect URL or an API token.
func (d *Dispatcher) handleLinkRequired(ctx context.Context, account *models.ServiceAccount, payload models.LinkRequiredPayload) error {
	creds, err := aggregator.ResolveCredentials(d.aggConfig, account)
	if err != nil {
		return err
	}

	platformCreds := accountCreds(account)
	customer, err := d.platform.GetCustomer(ctx, platformCreds, payload.CustomerID)
	if err != nil {
		return fmt.Errorf("%w: customer %s: %v", ErrNotFound, payload.CustomerID, err)
	}

	mode := ""
	if customer.Aggregation != nil {
		mode = customer.Aggregation.Mode
	}

	switch mode {
	case models.AggregationModeRedirect:
		if customer.Aggregation.CallbackURL == "" {
			return fmt.Errorf("%w: customer %s has no callback URL", ErrNotFound, customer.ID)
		}

		redirectURL := d.aggregator.RedirectURL(creds, customer.Aggregation.CallbackURL)
		patch := &models.CustomerAggregation{
			RedirectURL:    redirectURL,
			AggregatorName: creds.Name,
			APIURL:         creds.BaseURL,
			ClientID:       creds.ClientID,
		}
		if err := d.platform.PatchCustomer(ctx, platformCreds, customer.ID, patch); err != nil {
			return err
		}

		d.logger.Info("Generated redirect URL",
			zap.String("customer_id", customer.ID),
		)
		return nil

	case models.AggregationModeAPI:
		jwt, err := d.aggregator.GetJWT(ctx, creds)
		if err != nil {
			return err
		}

		patch := &models.CustomerAggregation{
			Token:          jwt.Token,
			APIURL:         jwt.Payload.Domain,
			AggregatorName: creds.Name,
			ClientID:       creds.ClientID,
		}
		if err := d.platform.PatchCustomer(ctx, platformCreds, customer.ID, patch); err != nil {
			return err
		}

		d.logger.Info("Issued API-mode token",
			zap.String("customer_id", customer.ID),
		)
		return nil

	default:
		return fmt.Errorf("%w: unrecognized aggregation mode %q for customer %s", ErrInvalidState, mode, customer.ID)
	}
}

// handleBankDetailsRequired drives the bank_details_required workflow:
// resolve the permanent aggregator token, then either register connections
// for the later connection-synced callback (webhook mode) or fetch and
// push the data directly (synchronous mode).
func (d *Dispatcher) handleBankDetailsRequired(ctx context.Context, account *models.ServiceAccount, payload models.BankDetailsRequiredPayload) error {
	creds, err := aggregator.ResolveCredentials(d.aggConfig, account)
	if err != nil {
		return err
	}

	platformCreds := accountCreds(account)
	user, err := d.platform.GetEndUser(ctx, platformCreds, payload.BanksUserID)
	if err != nil {
		return fmt.Errorf("%w: end user %s: %v", ErrNotFound, payload.BanksUserID, err)
	}

	token := user.AccessToken
	if payload.TemporaryCode != "" || token == "" {
		if payload.TemporaryCode != "" {
			token, err = d.aggregator.ExchangeCode(ctx, creds, payload.TemporaryCode)
			if err != nil {
				return err
			}
			// Store the permanent token so later syncs skip the exchange
			if err := d.platform.PatchEndUser(ctx, platformCreds, user.ID, map[string]interface{}{
				"accessToken": token,
			}); err != nil {
				d.logger.Warn("Failed to store permanent token on end user",
					zap.String("user_id", user.ID),
					zap.Error(err),
				)
			}
		}
		// No code and no stored token: the registration call is skipped
		// and the aggregator will reject the calls below
	}

	if creds.WebhookMode {
		return d.registerConnections(ctx, creds, token, user.ID, account.ClientID)
	}

	return d.syncBankDetails(ctx, creds, token, platformCreds, user.ID)
}

// registerConnections persists one correlation record per active
// connection. The account and transaction data will arrive later via the
// aggregator's own connection-synced callback.
func (d *Dispatcher) registerConnections(ctx context.Context, creds aggregator.Credentials, token, userID, clientID string) error {
	connections, err := d.aggregator.GetConnections(ctx, creds, token)
	if err != nil {
		return err
	}

	for _, conn := range connections {
		record := &models.CorrelationRecord{
			ConnectionID: strconv.FormatInt(conn.ID, 10),
			UserID:       userID,
			ClientID:     clientID,
		}
		if err := d.store.Save(ctx, record); err != nil {
			return err
		}
	}

	d.logger.Info("Registered connections for webhook-mode sync",
		zap.String("user_id", userID),
		zap.Int("connection_count", len(connections)),
	)
	return nil
}

// syncBankDetails waits for the aggregator's background sync, then fetches
// accounts and transactions and pushes them to the platform. The fixed
// delay is a best-effort workaround for the missing sync-completion signal;
// data may still be partial when the aggregator is slow.
func (d *Dispatcher) syncBankDetails(ctx context.Context, creds aggregator.Credentials, token string, platformCreds platform.ClientCredentials, userID string) error {
	time.Sleep(d.syncConfig.Delay)

	connections, err := d.aggregator.GetConnections(ctx, creds, token)
	if err != nil {
		return err
	}

	accounts, err := d.aggregator.GetAccounts(ctx, creds, token)
	if err != nil {
		return err
	}

	canonical := mapper.ToCanonicalAccounts(connections, accounts)
	if err := d.platform.PushAccounts(ctx, platformCreds, userID, canonical); err != nil {
		return err
	}

	since := time.Now().Add(-d.syncConfig.TransactionLookback)
	lookup := d.categoryLookup(ctx, creds, token)

	for _, account := range accounts {
		transactions, err := d.aggregator.GetTransactions(ctx, creds, token, account.ID, since)
		if err != nil {
			return err
		}

		mapped := mapper.ToCanonicalTransactions(transactions, lookup)
		if err := d.platform.PushTransactions(ctx, platformCreds, userID, mapper.AccountReference(account), mapped); err != nil {
			return err
		}
	}

	d.patchConnectionDetails(ctx, creds, token, platformCreds, userID, connections)
	return nil
}

// patchConnectionDetails stores per-connection state and owner identity on
// the end user. Best effort: the accounts and transactions are already
// pushed, so failures here only cost display metadata.
func (d *Dispatcher) patchConnectionDetails(ctx context.Context, creds aggregator.Credentials, token string, platformCreds platform.ClientCredentials, userID string, connections []aggregator.Connection) {
	if len(connections) == 0 {
		return
	}

	details := make([]models.AggregationDetails, 0, len(connections))
	for _, conn := range connections {
		owner, err := d.aggregator.GetConnectionOwner(ctx, creds, token, conn.ID)
		if err != nil {
			d.logger.Debug("Connection owner lookup failed",
				zap.Int64("connection_id", conn.ID),
				zap.Error(err),
			)
			owner = nil
		}
		details = append(details, mapper.ToAggregationDetails(conn, owner))
	}

	if err := d.platform.PatchEndUser(ctx, platformCreds, userID, map[string]interface{}{
		"connections": details,
	}); err != nil {
		d.logger.Warn("Failed to store connection details on end user",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}

// categoryLookup memoizes category resolution for one sync run. Lookup
// failures leave the transaction uncategorized rather than failing the
// whole workflow.
func (d *Dispatcher) categoryLookup(ctx context.Context, creds aggregator.Credentials, token string) mapper.CategoryLookup {
	cache := make(map[int64]string)
	return func(categoryID int64) string {
		if name, ok := cache[categoryID]; ok {
			return name
		}

		name := ""
		if category, err := d.aggregator.GetCategory(ctx, creds, token, categoryID); err == nil {
			name = category.Name
		} else {
			d.logger.Debug("Category lookup failed",
				zap.Int64("category_id", categoryID),
				zap.Error(err),
			)
		}
		cache[categoryID] = name
		return name
	}
}

// handleServiceAccountCreated re-runs the subscription bootstrap so the
// new account receives the same subscription set without a restart
func (d *Dispatcher) handleServiceAccountCreated(ctx context.Context) error {
	return d.bootstrap.Run(ctx)
}

// ConnectionSyncedPayload is the aggregator-originated callback body. The
// connection carries its accounts and transactions embedded, so no further
// aggregator calls are needed.
type ConnectionSyncedPayload struct {
	Connection aggregator.Connection `json:"connection"`
}

// HandleConnectionSynced processes the aggregator's connection-synced
// callback. This path is outside the platform event flow: there is no
// platform signature to validate, and the owning client id comes from the
// stored correlation record.
func (d *Dispatcher) HandleConnectionSynced(ctx context.Context, payload *ConnectionSyncedPayload) error {
	if payload.Connection.ID == 0 {
		metrics.ConnectionCallbacks.WithLabelValues("invalid_payload").Inc()
		return fmt.Errorf("%w: connection id is missing", ErrValidation)
	}

	connectionID := strconv.FormatInt(payload.Connection.ID, 10)
	record, err := d.store.FindByConnectionID(ctx, connectionID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			metrics.ConnectionCallbacks.WithLabelValues("unknown_connection").Inc()
			return fmt.Errorf("%w: no correlation record for connection %s", ErrNotFound, connectionID)
		}
		return err
	}

	// The owning client id comes from the record alone; this path never
	// consults the loaded service account list
	platformCreds := platform.ClientCredentials{ClientID: record.ClientID}

	connections := []aggregator.Connection{payload.Connection}
	canonical := mapper.ToCanonicalAccounts(connections, payload.Connection.Accounts)
	if err := d.platform.PushAccounts(ctx, platformCreds, record.UserID, canonical); err != nil {
		metrics.ConnectionCallbacks.WithLabelValues("push_failed").Inc()
		return err
	}

	for _, account := range payload.Connection.Accounts {
		mapped := mapper.ToCanonicalTransactions(account.Transactions, nil)
		if err := d.platform.PushTransactions(ctx, platformCreds, record.UserID, mapper.AccountReference(account), mapped); err != nil {
			metrics.ConnectionCallbacks.WithLabelValues("push_failed").Inc()
			return err
		}
	}

	metrics.ConnectionCallbacks.WithLabelValues("processed").Inc()
	d.logger.Info("Processed connection-synced callback",
		zap.String("connection_id", connectionID),
		zap.String("user_id", record.UserID),
	)
	return nil
}
