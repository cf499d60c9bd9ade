package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/KejDhruv-Pharbit/Pharbit/internal/db"
	"github.com/KejDhruv-Pharbit/Pharbit/internal/models"
)

// BatchRepository defines the interface for batch storage and the
// remaining-quantity ledger
type BatchRepository interface {
	Create(ctx context.Context, batch *models.Batch) (*models.Batch, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Batch, error)
	GetByMintID(ctx context.Context, mintID string) (*models.Batch, error)
	FindActive(ctx context.Context) ([]*models.Batch, error)
	FindByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.Batch, error)
	Reserve(ctx context.Context, tx *gorm.DB, batchID uuid.UUID, amount int64) (*models.Batch, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// batchRepository implements BatchRepository
type batchRepository struct {
	db *gorm.DB
}

// NewBatchRepository creates a new batch repository
func NewBatchRepository(db *gorm.DB) BatchRepository {
	return &batchRepository{db: db}
}

// Create inserts a new batch. Duplicate mint ids or tx hashes surface as
// ErrDuplicateKey.
func (r *batchRepository) Create(ctx context.Context, batch *models.Batch) (*models.Batch, error) {
	if err := r.db.WithContext(ctx).Create(batch).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateKey
		}
		return nil, err
	}
	return batch, nil
}

// GetByID gets a batch by ID
func (r *batchRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Batch, error) {
	var batch models.Batch
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&batch).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

// GetByMintID gets a batch by its blockchain mint identifier
func (r *batchRepository) GetByMintID(ctx context.Context, mintID string) (*models.Batch, error) {
	var batch models.Batch
	err := r.db.WithContext(ctx).Where("blockchain_mint_id = ?", mintID).First(&batch).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

// FindActive finds all active batches, newest first
func (r *batchRepository) FindActive(ctx context.Context) ([]*models.Batch, error) {
	var batches []*models.Batch
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at DESC").
		Find(&batches).Error
	if err != nil {
		return nil, err
	}
	return batches, nil
}

// FindByOrganization finds all active batches owned by an organization
func (r *batchRepository) FindByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.Batch, error) {
	var batches []*models.Batch
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Where("is_active = ?", true).
		Order("created_at DESC").
		Find(&batches).Error
	if err != nil {
		return nil, err
	}
	return batches, nil
}

// Reserve atomically deducts amount from the batch's remaining quantity.
// It must be called inside a transaction; the batch row is locked for the
// duration so concurrent reservations against the same batch serialize and
// cannot overshoot the remaining quantity.
func (r *batchRepository) Reserve(ctx context.Context, tx *gorm.DB, batchID uuid.UUID, amount int64) (*models.Batch, error) {
	var batch models.Batch
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", batchID).
		First(&batch).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if !batch.IsActive {
		return nil, ErrBatchInactive
	}
	if batch.Expired(time.Now()) {
		return nil, ErrBatchExpired
	}
	if batch.RemainingQuantity < amount {
		return nil, ErrInsufficientQuantity
	}

	// Guarded decrement; the WHERE clause is a second line of defense in
	// case the row changed between the locked read and the update.
	res := tx.WithContext(ctx).
		Model(&models.Batch{}).
		Where("id = ? AND remaining_quantity >= ?", batchID, amount).
		Update("remaining_quantity", gorm.Expr("remaining_quantity - ?", amount))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrInsufficientQuantity
	}

	batch.RemainingQuantity -= amount
	return &batch, nil
}

// Deactivate marks a batch inactive. Batches are never deleted.
func (r *batchRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&models.Batch{}).
		Where("id = ?", id).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// isUniqueViolation checks for a Postgres unique constraint violation
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "23505") ||
		strings.Contains(err.Error(), "duplicate key")
}
