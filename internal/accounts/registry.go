// Package accounts owns the in-memory service account snapshot and the
// subscription bootstrap.
package accounts

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/marminbh/aggregation-connector/internal/models"
	"github.com/marminbh/aggregation-connector/internal/platform"
)

// Registry holds the current service account list as a replaceable
// snapshot. Refreshes swap the whole slice; readers always observe a
// consistent list, either the old one or the new one.
type Registry struct {
	platform platform.API
	logger   *zap.Logger
	snapshot atomic.Pointer[[]models.ServiceAccount]
}

// NewRegistry creates an empty registry
func NewRegistry(api platform.API, logger *zap.Logger) *Registry {
	r := &Registry{platform: api, logger: logger}
	empty := []models.ServiceAccount{}
	r.snapshot.Store(&empty)
	return r
}

// All returns the current snapshot. Callers must not mutate it.
func (r *Registry) All() []models.ServiceAccount {
	return *r.snapshot.Load()
}

// Refresh replaces the snapshot with the platform's current account list
func (r *Registry) Refresh(ctx context.Context) error {
	accounts, err := r.platform.GetServiceAccounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh service accounts: %w", err)
	}

	r.snapshot.Store(&accounts)
	r.logger.Info("Refreshed service accounts",
		zap.Int("account_count", len(accounts)),
	)
	return nil
}

// FindBySubscriptionID returns the account owning the given subscription,
// or nil when no account matches
func (r *Registry) FindBySubscriptionID(subscriptionID string) *models.ServiceAccount {
	for _, account := range r.All() {
		if account.FindSubscription(subscriptionID) != nil {
			copied := account
			return &copied
		}
	}
	return nil
}

// FindByClientID returns the account with the given OAuth client id
func (r *Registry) FindByClientID(clientID string) *models.ServiceAccount {
	for _, account := range r.All() {
		if account.ClientID == clientID {
			copied := account
			return &copied
		}
	}
	return nil
}

// Add appends one account to the snapshot (copy-on-write)
func (r *Registry) Add(account models.ServiceAccount) {
	current := r.All()
	next := make([]models.ServiceAccount, 0, len(current)+1)
	next = append(next, current...)
	next = append(next, account)
	r.snapshot.Store(&next)
}

// UpdateConfig patches one account's config blob in place. Best-effort
// cache invalidation; the platform remains the source of truth across
// restarts.
func (r *Registry) UpdateConfig(accountID string, config json.RawMessage) {
	current := r.All()
	next := make([]models.ServiceAccount, len(current))
	copy(next, current)
	for i := range next {
		if next[i].ID == accountID {
			next[i].Config = config
		}
	}
	r.snapshot.Store(&next)
}

// Remove drops one account from the snapshot
func (r *Registry) Remove(accountID string) {
	current := r.All()
	next := make([]models.ServiceAccount, 0, len(current))
	for _, account := range current {
		if account.ID != accountID {
			next = append(next, account)
		}
	}
	r.snapshot.Store(&next)
}
