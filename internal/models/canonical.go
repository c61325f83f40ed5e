package models

import "time"

// CanonicalAccount is the platform-shape account record produced by the
// data mapper. Reference carries the source system's account id so repeated
// pushes are overwrite-idempotent on the platform side.
type CanonicalAccount struct {
	Reference string  `json:"reference"`
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	Usage     string  `json:"usage,omitempty"`
	Balance   float64 `json:"balance"`
	Currency  string  `json:"currency"`
	IBAN      string  `json:"iban,omitempty"`
	BIC       string  `json:"bic,omitempty"`
	BankName  string  `json:"bank,omitempty"`
	Status    string  `json:"status,omitempty"`
}

// CanonicalTransaction is the platform-shape transaction record
type CanonicalTransaction struct {
	Reference   string    `json:"reference"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	Type        string    `json:"type,omitempty"`
	Category    string    `json:"category,omitempty"`
	Date        time.Time `json:"date"`
	Simplified  string    `json:"simplifiedDescription,omitempty"`
	UserNote    string    `json:"userDescription,omitempty"`
	Banked      bool      `json:"banked"`
}

// AggregationDetails summarizes a connection and its owner for the
// platform customer record
type AggregationDetails struct {
	ConnectionID string `json:"connectionId"`
	BankName     string `json:"bank,omitempty"`
	OwnerName    string `json:"ownerName,omitempty"`
	State        string `json:"state,omitempty"`
}
