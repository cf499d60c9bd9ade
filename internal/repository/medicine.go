package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/KejDhruv-Pharbit/Pharbit/internal/db"
	"github.com/KejDhruv-Pharbit/Pharbit/internal/models"
)

// MedicineRepository defines the interface for medicine storage
type MedicineRepository interface {
	Create(ctx context.Context, medicine *models.Medicine) (*models.Medicine, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Medicine, error)
	FindByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.Medicine, error)
	FindVerified(ctx context.Context) ([]*models.Medicine, error)
	Verify(ctx context.Context, id uuid.UUID) error
}

// medicineRepository implements MedicineRepository
type medicineRepository struct {
	db *gorm.DB
}

// NewMedicineRepository creates a new medicine repository
func NewMedicineRepository(db *gorm.DB) MedicineRepository {
	return &medicineRepository{db: db}
}

// Create inserts a new medicine
func (r *medicineRepository) Create(ctx context.Context, medicine *models.Medicine) (*models.Medicine, error) {
	if medicine.ID == uuid.Nil {
		medicine.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(medicine).Error; err != nil {
		return nil, err
	}
	return medicine, nil
}

// GetByID gets a medicine by ID
func (r *medicineRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Medicine, error) {
	var medicine models.Medicine
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&medicine).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &medicine, nil
}

// FindByOrganization finds all medicines registered by an organization
func (r *medicineRepository) FindByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.Medicine, error) {
	var medicines []*models.Medicine
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at DESC").
		Find(&medicines).Error
	if err != nil {
		return nil, err
	}
	return medicines, nil
}

// FindVerified finds all admin-verified medicines
func (r *medicineRepository) FindVerified(ctx context.Context) ([]*models.Medicine, error) {
	var medicines []*models.Medicine
	err := r.db.WithContext(ctx).
		Where("verified = ?", true).
		Order("created_at DESC").
		Find(&medicines).Error
	if err != nil {
		return nil, err
	}
	return medicines, nil
}

// Verify marks a medicine as admin-verified
func (r *medicineRepository) Verify(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&models.Medicine{}).
		Where("id = ?", id).
		Update("verified", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
