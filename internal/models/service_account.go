package models

import "encoding/json"

// ServiceAccount is a tenant credential/config bundle shared between this
// connector and the platform. The platform is the source of truth; the
// connector only holds an in-memory snapshot refreshed from the API.
type ServiceAccount struct {
	ID            string          `json:"id"`
	ClientID      string          `json:"clientId"`
	ClientSecret  string          `json:"clientSecret"`
	Config        json.RawMessage `json:"config,omitempty"`
	Subscriptions []Subscription  `json:"subscriptions,omitempty"`
}

// FindSubscription returns the subscription with the given id, or nil
func (sa *ServiceAccount) FindSubscription(id string) *Subscription {
	for i := range sa.Subscriptions {
		if sa.Subscriptions[i].ID == id {
			return &sa.Subscriptions[i]
		}
	}
	return nil
}

// Subscription binds a service account to one platform event name, a
// delivery target and a shared secret for signature validation
type Subscription struct {
	ID        string `json:"id"`
	EventName string `json:"eventName"`
	Target    string `json:"target"`
	Secret    string `json:"secret,omitempty"`
	Status    string `json:"status,omitempty"`
}

// Subscription lifecycle statuses
const (
	SubscriptionStatusActive   = "ACTIVE"
	SubscriptionStatusInactive = "INACTIVE"
)
