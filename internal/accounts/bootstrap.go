package accounts

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/marminbh/aggregation-connector/internal/config"
	"github.com/marminbh/aggregation-connector/internal/models"
	"github.com/marminbh/aggregation-connector/internal/platform"
)

// Bootstrap ensures every service account carries the required event
// subscriptions. It runs once at startup and again whenever a new service
// account appears mid-flight.
type Bootstrap struct {
	platform platform.API
	registry *Registry
	cfg      config.SubscriptionConfig
	logger   *zap.Logger
}

// NewBootstrap creates a subscription bootstrap
func NewBootstrap(api platform.API, registry *Registry, cfg config.SubscriptionConfig, logger *zap.Logger) *Bootstrap {
	return &Bootstrap{
		platform: api,
		registry: registry,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run refreshes the registry and ensures subscriptions for every known
// account. No accounts means nothing to manage.
func (b *Bootstrap) Run(ctx context.Context) error {
	if err := b.registry.Refresh(ctx); err != nil {
		return err
	}

	accounts := b.registry.All()
	if len(accounts) == 0 {
		b.logger.Info("No service accounts registered, skipping subscription bootstrap")
		return nil
	}

	for i := range accounts {
		if err := b.EnsureSubscriptions(ctx, &accounts[i]); err != nil {
			return fmt.Errorf("failed to bootstrap subscriptions for account %s: %w", accounts[i].ID, err)
		}
	}

	// Reload so the snapshot carries the subscription ids just created
	if err := b.registry.Refresh(ctx); err != nil {
		return err
	}

	b.logger.Info("Subscription bootstrap complete",
		zap.Int("account_count", len(accounts)),
	)
	return nil
}

// EnsureSubscriptions creates any missing subscription for the configured
// event names. Idempotent: an existing subscription for an event is reused,
// never duplicated.
func (b *Bootstrap) EnsureSubscriptions(ctx context.Context, account *models.ServiceAccount) error {
	creds := platform.ClientCredentials{
		ClientID:     account.ClientID,
		ClientSecret: account.ClientSecret,
	}

	existing, err := b.platform.GetSubscriptions(ctx, creds)
	if err != nil {
		return fmt.Errorf("failed to list subscriptions: %w", err)
	}

	covered := make(map[string]bool, len(existing))
	for _, sub := range existing {
		covered[sub.EventName] = true
	}

	created := 0
	for _, eventName := range b.cfg.EventNames {
		if covered[eventName] {
			continue
		}

		sub := models.Subscription{
			EventName: eventName,
			Target:    b.cfg.TargetURL,
			Secret:    b.cfg.Secret,
		}
		if _, err := b.platform.CreateSubscription(ctx, creds, sub); err != nil {
			return fmt.Errorf("failed to create subscription for event %s: %w", eventName, err)
		}
		created++
	}

	if created > 0 {
		b.logger.Info("Created subscriptions",
			zap.String("service_account_id", account.ID),
			zap.Int("created_count", created),
		)
	}
	return nil
}
