package models

import "encoding/json"

// EventName identifies a platform webhook event type
type EventName string

const (
	EventAggregatorLinkRequired EventName = "aggregator_link_required"
	EventBankDetailsRequired    EventName = "bank_details_required"
	EventServiceAccountCreated  EventName = "service_account_created"
	EventServiceAccountUpdated  EventName = "service_account_updated"
	EventServiceAccountDeleted  EventName = "service_account_deleted"
)

// EventStatus is the terminal processing status reported back to the
// platform for one delivered event
type EventStatus string

const (
	EventStatusProcessed EventStatus = "PROCESSED"
	EventStatusFailed    EventStatus = "FAILED"
	EventStatusError     EventStatus = "ERROR"
)

// InboundEvent is a webhook payload received from the platform. The payload
// is kept raw and decoded after the routing decision, one concrete shape per
// event name.
type InboundEvent struct {
	ID           string          `json:"id"`
	Subscription EventSub        `json:"subscription"`
	Payload      json.RawMessage `json:"payload"`
	Index        int             `json:"index"`
	Time         int64           `json:"time,omitempty"`
}

// EventSub is the subscription stub embedded in an inbound event
type EventSub struct {
	ID        string `json:"id"`
	Target    string `json:"target"`
	EventName string `json:"eventName"`
	Status    string `json:"status"`
}

// LinkRequiredPayload is the payload of aggregator_link_required
type LinkRequiredPayload struct {
	CustomerID string `json:"customerId"`
}

// BankDetailsRequiredPayload is the payload of bank_details_required.
// TemporaryCode is optional; when present it is exchanged for a permanent
// aggregator token.
type BankDetailsRequiredPayload struct {
	BanksUserID   string `json:"banksUserId"`
	TemporaryCode string `json:"temporaryCode,omitempty"`
}

// ServiceAccountPayload is the payload of the service_account_* events
type ServiceAccountPayload struct {
	ServiceAccountID string          `json:"serviceAccountId"`
	ClientID         string          `json:"clientId,omitempty"`
	ClientSecret     string          `json:"clientSecret,omitempty"`
	Config           json.RawMessage `json:"config,omitempty"`
}

// Customer aggregation modes
const (
	AggregationModeRedirect = "REDIRECT"
	AggregationModeAPI      = "API"
)

// Customer is the platform customer record touched by the link workflow
type Customer struct {
	ID          string               `json:"id"`
	Aggregation *CustomerAggregation `json:"aggregationDetails,omitempty"`
}

// CustomerAggregation carries the customer's aggregation mode and the
// fields patched by the link-generation workflow
type CustomerAggregation struct {
	Mode           string `json:"mode,omitempty"`
	CallbackURL    string `json:"callbackUrl,omitempty"`
	RedirectURL    string `json:"redirectUrl,omitempty"`
	Token          string `json:"token,omitempty"`
	APIURL         string `json:"apiUrl,omitempty"`
	ClientID       string `json:"clientId,omitempty"`
	AggregatorName string `json:"aggregator,omitempty"`
}

// EndUser is the platform end-user (banks user) record
type EndUser struct {
	ID     string `json:"id"`
	Status string `json:"status,omitempty"`
	// AccessToken is the stored permanent aggregator token, if any
	AccessToken string `json:"accessToken,omitempty"`
	CallbackURL string `json:"callbackUrl,omitempty"`
}
