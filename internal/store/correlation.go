package store

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/marminbh/aggregation-connector/internal/models"
)

// ErrRecordNotFound signals a lookup for a connection id the connector
// never registered
var ErrRecordNotFound = errors.New("correlation record not found")

// CorrelationStore persists the linkage between aggregator connection ids
// and platform end users
type CorrelationStore interface {
	Save(ctx context.Context, record *models.CorrelationRecord) error
	FindByConnectionID(ctx context.Context, connectionID string) (*models.CorrelationRecord, error)
}

// Store is the gorm-backed correlation store
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewStore creates a correlation store
func NewStore(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Save inserts a correlation record. An existing record for the same
// connection id is left untouched; records are write-once.
func (s *Store) Save(ctx context.Context, record *models.CorrelationRecord) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "connection_id"}},
			DoNothing: true,
		}).
		Create(record).Error
	if err != nil {
		return fmt.Errorf("failed to save correlation record: %w", err)
	}

	s.logger.Debug("Saved correlation record",
		zap.String("connection_id", record.ConnectionID),
		zap.String("user_id", record.UserID),
	)
	return nil
}

// FindByConnectionID looks up the record for one connection id
func (s *Store) FindByConnectionID(ctx context.Context, connectionID string) (*models.CorrelationRecord, error) {
	var record models.CorrelationRecord
	err := s.db.WithContext(ctx).
		Where("connection_id = ?", connectionID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query correlation record: %w", err)
	}
	return &record, nil
}
