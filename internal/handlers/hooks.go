package handlers

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/marminbh/aggregation-connector/internal/dispatcher"
	"github.com/marminbh/aggregation-connector/internal/models"
)

// SignatureHeader carries the platform's HMAC over the raw JSON body
const SignatureHeader = "X-Hub-Signature"

// HooksHandler receives platform webhooks and aggregator callbacks
type HooksHandler struct {
	Dispatcher *dispatcher.Dispatcher
	Logger     *zap.Logger
}

// NewHooksHandler creates a hooks handler with dependencies
func NewHooksHandler(d *dispatcher.Dispatcher, logger *zap.Logger) *HooksHandler {
	return &HooksHandler{
		Dispatcher: d,
		Logger:     logger,
	}
}

// HandleEvent handles POST /v1/hooks, the single delivery path for all
// platform events. Validation and authentication failures are synchronous;
// accepted events return 204 immediately while the workflow runs detached.
func (h *HooksHandler) HandleEvent(c *fiber.Ctx) error {
	rawBody := c.Body()

	var event models.InboundEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid JSON body",
		})
	}

	// Schema validation happens before any service account resolution
	if event.ID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "id is required",
		})
	}
	if event.Subscription.ID == "" || event.Subscription.EventName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "subscription is required",
		})
	}

	signature := c.Get(SignatureHeader)
	if err := h.Dispatcher.Dispatch(rawBody, signature, &event); err != nil {
		if errors.Is(err, dispatcher.ErrAuthentication) {
			h.Logger.Warn("Rejected inbound event",
				zap.String("event_id", event.ID),
				zap.Error(err),
			)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthorized",
			})
		}
		h.Logger.Error("Failed to dispatch inbound event",
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to process event",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// HandleConnectionSynced handles POST /v1/hooks/connection-synced, the
// aggregator's own callback. The payload is pass-through, not
// platform-validated, and there is no signature to check.
func (h *HooksHandler) HandleConnectionSynced(c *fiber.Ctx) error {
	var payload dispatcher.ConnectionSyncedPayload
	if err := json.Unmarshal(c.Body(), &payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid JSON body",
		})
	}

	if err := h.Dispatcher.HandleConnectionSynced(c.Context(), &payload); err != nil {
		switch {
		case errors.Is(err, dispatcher.ErrValidation):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "connection id is required",
			})
		case errors.Is(err, dispatcher.ErrNotFound):
			h.Logger.Warn("Connection-synced callback for untracked connection",
				zap.Error(err),
			)
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "unknown connection",
			})
		default:
			h.Logger.Error("Failed to process connection-synced callback",
				zap.Error(err),
			)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to process callback",
			})
		}
	}

	return c.SendStatus(fiber.StatusNoContent)
}
