package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/KejDhruv-Pharbit/Pharbit/internal/models"
)

// ShipmentLogRepository defines the interface for the append-only custody
// audit trail. Entries are never updated or deleted; the only mutation is
// the Indexed flag consumed by the search reconcile worker.
type ShipmentLogRepository interface {
	Append(ctx context.Context, entry *models.ShipmentLog) (*models.ShipmentLog, error)
	FindByShipment(ctx context.Context, shipmentID uuid.UUID) ([]*models.ShipmentLog, error)
	FindUnindexed(ctx context.Context, limit int) ([]*models.ShipmentLog, error)
	MarkIndexed(ctx context.Context, id uuid.UUID) error
}

// shipmentLogRepository implements ShipmentLogRepository
type shipmentLogRepository struct {
	db *gorm.DB
}

// NewShipmentLogRepository creates a new shipment log repository
func NewShipmentLogRepository(db *gorm.DB) ShipmentLogRepository {
	return &shipmentLogRepository{db: db}
}

// Append writes one custody event record
func (r *shipmentLogRepository) Append(ctx context.Context, entry *models.ShipmentLog) (*models.ShipmentLog, error) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// FindByShipment returns the audit trail for one shipment, oldest first
func (r *shipmentLogRepository) FindByShipment(ctx context.Context, shipmentID uuid.UUID) ([]*models.ShipmentLog, error) {
	var entries []*models.ShipmentLog
	err := r.db.WithContext(ctx).
		Where("shipment_id = ?", shipmentID).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// FindUnindexed returns log entries not yet indexed in Elasticsearch
func (r *shipmentLogRepository) FindUnindexed(ctx context.Context, limit int) ([]*models.ShipmentLog, error) {
	var entries []*models.ShipmentLog
	err := r.db.WithContext(ctx).
		Where("indexed = ?", false).
		Order("created_at ASC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// MarkIndexed flags a log entry as indexed
func (r *shipmentLogRepository) MarkIndexed(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.ShipmentLog{}).
		Where("id = ?", id).
		Update("indexed", true).Error
}
