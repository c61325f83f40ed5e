package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/marminbh/aggregation-connector/internal/accounts"
	"github.com/marminbh/aggregation-connector/internal/aggregator"
	"github.com/marminbh/aggregation-connector/internal/config"
	"github.com/marminbh/aggregation-connector/internal/metrics"
	"github.com/marminbh/aggregation-connector/internal/models"
	"github.com/marminbh/aggregation-connector/internal/platform"
	"github.com/marminbh/aggregation-connector/internal/store"
)

// Dispatcher is the single entry point for all inbound platform webhooks.
// It validates signatures, routes events to workflows, runs each workflow
// detached from the HTTP response, and reports the terminal status back to
// the platform.
type Dispatcher struct {
	registry   *accounts.Registry
	bootstrap  *accounts.Bootstrap
	platform   platform.API
	aggregator aggregator.API
	store      store.CorrelationStore
	aggConfig  config.AggregatorConfig
	syncConfig config.SyncConfig
	logger     *zap.Logger
	wg         sync.WaitGroup
}

// NewDispatcher creates the event dispatch engine
func NewDispatcher(
	registry *accounts.Registry,
	bootstrap *accounts.Bootstrap,
	platformAPI platform.API,
	aggregatorAPI aggregator.API,
	correlations store.CorrelationStore,
	aggConfig config.AggregatorConfig,
	syncConfig config.SyncConfig,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		registry:   registry,
		bootstrap:  bootstrap,
		platform:   platformAPI,
		aggregator: aggregatorAPI,
		store:      correlations,
		aggConfig:  aggConfig,
		syncConfig: syncConfig,
		logger:     logger,
	}
}

// Dispatch validates an inbound event and, if accepted, schedules its
// workflow to run detached from the caller. A nil return means the event
// was acknowledged (or deliberately dropped); the terminal status arrives
// later via the status callback.
func (d *Dispatcher) Dispatch(rawBody []byte, signature string, event *models.InboundEvent) error {
	metrics.EventsReceived.WithLabelValues(event.Subscription.EventName).Inc()

	// An unmatched subscription is treated as an authentication failure,
	// not a routing miss
	account := d.registry.FindBySubscriptionID(event.Subscription.ID)
	if account == nil {
		metrics.EventsRejected.WithLabelValues("unknown_subscription").Inc()
		return fmt.Errorf("%w: no service account matches subscription %s", ErrAuthentication, event.Subscription.ID)
	}

	subscription := account.FindSubscription(event.Subscription.ID)
	if subscription == nil {
		// Stale or foreign webhook: drop without any status callback
		d.logger.Warn("Subscription not present on resolved account, dropping event",
			zap.String("event_id", event.ID),
			zap.String("subscription_id", event.Subscription.ID),
		)
		return nil
	}

	if !VerifySignature(rawBody, subscription.Secret, signature) {
		metrics.EventsRejected.WithLabelValues("signature_mismatch").Inc()
		return fmt.Errorf("%w: signature mismatch for event %s", ErrAuthentication, event.ID)
	}

	d.wg.Add(1)
	go d.run(*account, *subscription, event)

	return nil
}

// Wait blocks until all in-flight workflows have reported their status
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// run drives one event's workflow to completion and patches the terminal
// status. Errors never escape: the HTTP response has already been sent.
func (d *Dispatcher) run(account models.ServiceAccount, subscription models.Subscription, event *models.InboundEvent) {
	defer d.wg.Done()

	startTime := time.Now()
	eventName := event.Subscription.EventName
	var status models.EventStatus

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Workflow panicked",
				zap.String("event_id", event.ID),
				zap.String("event_name", eventName),
				zap.Any("panic", r),
			)
			d.patchStatus(account, subscription, event, models.EventStatusError)
		}
	}()

	ctx := context.Background()

	err := d.route(ctx, &account, event)
	switch {
	case err == nil:
		status = models.EventStatusProcessed
	case isUnknownEvent(err):
		// "Not our concern" rather than "we tried and broke"
		status = models.EventStatusFailed
	default:
		d.logger.Error("Workflow failed",
			zap.String("event_id", event.ID),
			zap.String("event_name", eventName),
			zap.Error(err),
		)
		status = models.EventStatusError
	}

	metrics.WorkflowDuration.Observe(float64(time.Since(startTime).Milliseconds()))
	d.patchStatus(account, subscription, event, status)
}

// patchStatus reports the terminal status to the platform. Failures here
// are logged and dropped, never retried.
func (d *Dispatcher) patchStatus(account models.ServiceAccount, subscription models.Subscription, event *models.InboundEvent, status models.EventStatus) {
	metrics.WorkflowOutcomes.WithLabelValues(event.Subscription.EventName, string(status)).Inc()

	creds := platform.ClientCredentials{
		ClientID:     account.ClientID,
		ClientSecret: account.ClientSecret,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := d.platform.PatchEventStatus(ctx, creds, subscription.ID, event.ID, status); err != nil {
		d.logger.Error("Failed to patch event status",
			zap.String("event_id", event.ID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return
	}

	d.logger.Info("Event processed",
		zap.String("event_id", event.ID),
		zap.String("event_name", event.Subscription.EventName),
		zap.String("status", string(status)),
	)
}

type unknownEventError struct {
	name string
}

func (e *unknownEventError) Error() string {
	return fmt.Sprintf("unknown event name: %s", e.name)
}

func isUnknownEvent(err error) bool {
	_, ok := err.(*unknownEventError)
	return ok
}

// route decodes the payload for the matched event name and runs the
// corresponding workflow. Decoding happens after the routing decision, one
// concrete payload shape per event name.
func (d *Dispatcher) route(ctx context.Context, account *models.ServiceAccount, event *models.InboundEvent) error {
	switch models.EventName(event.Subscription.EventName) {
	case models.EventAggregatorLinkRequired:
		var payload models.LinkRequiredPayload
		if err := decodePayload(event, &payload); err != nil {
			return err
		}
		return d.handleLinkRequired(ctx, account, payload)

	case models.EventBankDetailsRequired:
		var payload models.BankDetailsRequiredPayload
		if err := decodePayload(event, &payload); err != nil {
			return err
		}
		return d.handleBankDetailsRequired(ctx, account, payload)

	case models.EventServiceAccountCreated:
		return d.handleServiceAccountCreated(ctx)

	case models.EventServiceAccountUpdated:
		var payload models.ServiceAccountPayload
		if err := decodePayload(event, &payload); err != nil {
			return err
		}
		d.registry.UpdateConfig(payload.ServiceAccountID, payload.Config)
		return nil

	case models.EventServiceAccountDeleted:
		var payload models.ServiceAccountPayload
		if err := decodePayload(event, &payload); err != nil {
			return err
		}
		d.registry.Remove(payload.ServiceAccountID)
		return nil

	default:
		return &unknownEventError{name: event.Subscription.EventName}
	}
}

func decodePayload(event *models.InboundEvent, out interface{}) error {
	if err := json.Unmarshal(event.Payload, out); err != nil {
		return fmt.Errorf("%w: malformed payload for event %s: %v", ErrValidation, event.ID, err)
	}
	return nil
}
