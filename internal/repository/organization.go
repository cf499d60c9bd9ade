package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/KejDhruv-Pharbit/Pharbit/internal/db"
	"github.com/KejDhruv-Pharbit/Pharbit/internal/models"
)

// OrganizationRepository defines the interface for organization lookup.
// It is the identity resolution surface: an API key maps to exactly one
// active organization and its role.
type OrganizationRepository interface {
	Create(ctx context.Context, org *models.Organization) (*models.Organization, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	GetByAPIKey(ctx context.Context, apiKey string) (*models.Organization, error)
}

// organizationRepository implements OrganizationRepository
type organizationRepository struct {
	db *gorm.DB
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(db *gorm.DB) OrganizationRepository {
	return &organizationRepository{db: db}
}

// Create inserts a new organization
func (r *organizationRepository) Create(ctx context.Context, org *models.Organization) (*models.Organization, error) {
	if org.ID == uuid.Nil {
		org.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(org).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateKey
		}
		return nil, err
	}
	return org, nil
}

// GetByID gets an organization by ID
func (r *organizationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	var org models.Organization
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&org).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &org, nil
}

// GetByAPIKey gets an active organization by its API key
func (r *organizationRepository) GetByAPIKey(ctx context.Context, apiKey string) (*models.Organization, error) {
	var org models.Organization
	err := r.db.WithContext(ctx).
		Where("api_key = ?", apiKey).
		Where("active = ?", true).
		First(&org).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &org, nil
}
