package accounts

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/marminbh/aggregation-connector/internal/config"
	"github.com/marminbh/aggregation-connector/internal/models"
	"github.com/marminbh/aggregation-connector/internal/platform"
)

// fakePlatform implements the subset of the platform API that the registry
// and bootstrap exercise; the remaining methods are stubs
type fakePlatform struct {
	mu       sync.Mutex
	accounts []models.ServiceAccount
	subs     map[string][]models.Subscription
	creates  int
}

func newFakePlatform(accounts ...models.ServiceAccount) *fakePlatform {
	return &fakePlatform{
		accounts: accounts,
		subs:     make(map[string][]models.Subscription),
	}
}

func (f *fakePlatform) GetServiceAccounts(ctx context.Context) ([]models.ServiceAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ServiceAccount(nil), f.accounts...), nil
}

func (f *fakePlatform) GetSubscriptions(ctx context.Context, creds platform.ClientCredentials) ([]models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Subscription(nil), f.subs[creds.ClientID]...), nil
}

func (f *fakePlatform) CreateSubscription(ctx context.Context, creds platform.ClientCredentials, sub models.Subscription) (*models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub.ID = "sub-" + creds.ClientID + "-" + sub.EventName
	f.subs[creds.ClientID] = append(f.subs[creds.ClientID], sub)
	f.creates++
	return &sub, nil
}

func (f *fakePlatform) GetCustomer(ctx context.Context, creds platform.ClientCredentials, customerID string) (*models.Customer, error) {
	return nil, nil
}

func (f *fakePlatform) PatchCustomer(ctx context.Context, creds platform.ClientCredentials, customerID string, aggregation *models.CustomerAggregation) error {
	return nil
}

func (f *fakePlatform) GetEndUser(ctx context.Context, creds platform.ClientCredentials, userID string) (*models.EndUser, error) {
	return nil, nil
}

func (f *fakePlatform) PatchEndUser(ctx context.Context, creds platform.ClientCredentials, userID string, patch map[string]interface{}) error {
	return nil
}

func (f *fakePlatform) PushAccounts(ctx context.Context, creds platform.ClientCredentials, userID string, accounts []models.CanonicalAccount) error {
	return nil
}

func (f *fakePlatform) PushTransactions(ctx context.Context, creds platform.ClientCredentials, userID, accountReference string, transactions []models.CanonicalTransaction) error {
	return nil
}

func (f *fakePlatform) PatchEventStatus(ctx context.Context, creds platform.ClientCredentials, subscriptionID, eventID string, status models.EventStatus) error {
	return nil
}

func subscriptionConfig() config.SubscriptionConfig {
	return config.SubscriptionConfig{
		TargetURL:  "https://connector.example.com/v1/hooks",
		Secret:     "shared-secret",
		EventNames: config.DefaultEventNames,
	}
}

func TestBootstrapCreatesMissingSubscriptions(t *testing.T) {
	fp := newFakePlatform(
		models.ServiceAccount{ID: "sa-1", ClientID: "client-1"},
		models.ServiceAccount{ID: "sa-2", ClientID: "client-2"},
	)
	logger := zap.NewNop()
	registry := NewRegistry(fp, logger)
	bootstrap := NewBootstrap(fp, registry, subscriptionConfig(), logger)

	require.NoError(t, bootstrap.Run(context.Background()))

	assert.Equal(t, 2*len(config.DefaultEventNames), fp.creates)
	assert.Len(t, fp.subs["client-1"], len(config.DefaultEventNames))
	assert.Len(t, fp.subs["client-2"], len(config.DefaultEventNames))
}

func TestBootstrapIsIdempotent(t *testing.T) {
	fp := newFakePlatform(models.ServiceAccount{ID: "sa-1", ClientID: "client-1"})
	logger := zap.NewNop()
	registry := NewRegistry(fp, logger)
	bootstrap := NewBootstrap(fp, registry, subscriptionConfig(), logger)

	require.NoError(t, bootstrap.Run(context.Background()))
	firstRun := fp.creates

	require.NoError(t, bootstrap.Run(context.Background()))
	assert.Equal(t, firstRun, fp.creates, "second run must perform zero creations")
}

func TestBootstrapPartialCoverage(t *testing.T) {
	fp := newFakePlatform(models.ServiceAccount{ID: "sa-1", ClientID: "client-1"})
	fp.subs["client-1"] = []models.Subscription{
		{ID: "existing", EventName: "bank_details_required"},
	}
	logger := zap.NewNop()
	registry := NewRegistry(fp, logger)
	bootstrap := NewBootstrap(fp, registry, subscriptionConfig(), logger)

	require.NoError(t, bootstrap.Run(context.Background()))

	assert.Equal(t, len(config.DefaultEventNames)-1, fp.creates,
		"covered events are reused, not duplicated")
}

func TestBootstrapNoAccounts(t *testing.T) {
	fp := newFakePlatform()
	logger := zap.NewNop()
	registry := NewRegistry(fp, logger)
	bootstrap := NewBootstrap(fp, registry, subscriptionConfig(), logger)

	require.NoError(t, bootstrap.Run(context.Background()))
	assert.Zero(t, fp.creates)
}

func TestRegistrySnapshotOperations(t *testing.T) {
	fp := newFakePlatform(models.ServiceAccount{
		ID:       "sa-1",
		ClientID: "client-1",
		Subscriptions: []models.Subscription{
			{ID: "sub-1", EventName: "bank_details_required"},
		},
	})
	registry := NewRegistry(fp, zap.NewNop())
	require.NoError(t, registry.Refresh(context.Background()))

	require.NotNil(t, registry.FindBySubscriptionID("sub-1"))
	assert.Nil(t, registry.FindBySubscriptionID("sub-404"))
	require.NotNil(t, registry.FindByClientID("client-1"))
	assert.Nil(t, registry.FindByClientID("client-404"))

	registry.Add(models.ServiceAccount{ID: "sa-2", ClientID: "client-2"})
	assert.Len(t, registry.All(), 2)

	registry.UpdateConfig("sa-2", json.RawMessage(`{"webhookMode":true}`))
	found := registry.FindByClientID("client-2")
	require.NotNil(t, found)
	assert.JSONEq(t, `{"webhookMode":true}`, string(found.Config))

	registry.Remove("sa-1")
	assert.Nil(t, registry.FindBySubscriptionID("sub-1"))
	assert.Len(t, registry.All(), 1)
}
