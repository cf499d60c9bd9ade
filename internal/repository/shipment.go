package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/KejDhruv-Pharbit/Pharbit/internal/db"
	"github.com/KejDhruv-Pharbit/Pharbit/internal/models"
)

// ShipmentRepository defines the interface for shipment storage
type ShipmentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, shipment *models.Shipment) (*models.Shipment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Shipment, error)
	GetByTrackingCode(ctx context.Context, code string) (*models.Shipment, error)
	GetByIdempotencyKey(ctx context.Context, key uuid.UUID) (*models.Shipment, error)
	UpdateCustody(ctx context.Context, id uuid.UUID, guard map[string]interface{}, patch map[string]interface{}) (*models.Shipment, error)
	FindByHolder(ctx context.Context, orgID uuid.UUID) ([]*models.Shipment, error)
	FindBySource(ctx context.Context, orgID uuid.UUID) ([]*models.Shipment, error)
	FindByDestination(ctx context.Context, orgID uuid.UUID) ([]*models.Shipment, error)
}

// shipmentRepository implements ShipmentRepository
type shipmentRepository struct {
	db *gorm.DB
}

// NewShipmentRepository creates a new shipment repository
func NewShipmentRepository(db *gorm.DB) ShipmentRepository {
	return &shipmentRepository{db: db}
}

// Create inserts a new shipment. When tx is non-nil the insert joins the
// caller's transaction so it commits atomically with the batch reservation.
func (r *shipmentRepository) Create(ctx context.Context, tx *gorm.DB, shipment *models.Shipment) (*models.Shipment, error) {
	conn := r.db
	if tx != nil {
		conn = tx
	}
	if err := conn.WithContext(ctx).Create(shipment).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateKey
		}
		return nil, err
	}
	return shipment, nil
}

// GetByID gets a shipment by ID
func (r *shipmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Shipment, error) {
	var shipment models.Shipment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&shipment).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &shipment, nil
}

// GetByTrackingCode gets a shipment by its current tracking code
func (r *shipmentRepository) GetByTrackingCode(ctx context.Context, code string) (*models.Shipment, error) {
	var shipment models.Shipment
	err := r.db.WithContext(ctx).Where("tracking_code = ?", code).First(&shipment).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &shipment, nil
}

// GetByIdempotencyKey gets a shipment by the client-supplied idempotency key
func (r *shipmentRepository) GetByIdempotencyKey(ctx context.Context, key uuid.UUID) (*models.Shipment, error) {
	var shipment models.Shipment
	err := r.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&shipment).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &shipment, nil
}

// UpdateCustody applies a partial custody update to a shipment, but only
// while the row still matches guard. The guard carries the status and holder
// values the caller validated against, so two concurrent transitions on the
// same shipment cannot both win; the loser gets ErrStaleRecord.
func (r *shipmentRepository) UpdateCustody(ctx context.Context, id uuid.UUID, guard map[string]interface{}, patch map[string]interface{}) (*models.Shipment, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Shipment{}).
		Where("id = ?", id)
	for column, value := range guard {
		query = query.Where(column+" = ?", value)
	}

	res := query.Updates(patch)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrStaleRecord
	}

	return r.GetByID(ctx, id)
}

// FindByHolder finds active shipments currently held by an organization,
// newest first
func (r *shipmentRepository) FindByHolder(ctx context.Context, orgID uuid.UUID) ([]*models.Shipment, error) {
	return r.findByOrgColumn(ctx, "current_holder_org_id", orgID)
}

// FindBySource finds active shipments originated by an organization
func (r *shipmentRepository) FindBySource(ctx context.Context, orgID uuid.UUID) ([]*models.Shipment, error) {
	return r.findByOrgColumn(ctx, "source_org_id", orgID)
}

// FindByDestination finds active shipments destined for an organization
func (r *shipmentRepository) FindByDestination(ctx context.Context, orgID uuid.UUID) ([]*models.Shipment, error) {
	return r.findByOrgColumn(ctx, "destination_org_id", orgID)
}

func (r *shipmentRepository) findByOrgColumn(ctx context.Context, column string, orgID uuid.UUID) ([]*models.Shipment, error) {
	var shipments []*models.Shipment
	err := r.db.WithContext(ctx).
		Preload("Batch").
		Preload("Batch.Medicine").
		Where(column+" = ?", orgID).
		Where("is_active = ?", true).
		Order("created_at DESC").
		Find(&shipments).Error
	if err != nil {
		return nil, err
	}
	return shipments, nil
}
