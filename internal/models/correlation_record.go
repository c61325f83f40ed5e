package models

import (
	"time"

	"github.com/google/uuid"
)

// CorrelationRecord maps one aggregator connection id to the platform
// end user it belongs to. Created when a webhook-mode aggregation flow
// registers a connection; read when the aggregator later reports that
// connection synced. Never updated, never deleted.
type CorrelationRecord struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ConnectionID string    `gorm:"not null;uniqueIndex" json:"connection_id"`
	UserID       string    `gorm:"not null" json:"user_id"`
	ClientID     string    `gorm:"not null" json:"client_id"`
	CreatedAt    time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (CorrelationRecord) TableName() string {
	return "correlation_records"
}
