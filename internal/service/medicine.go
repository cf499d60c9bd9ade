package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/KejDhruv-Pharbit/Pharbit/internal/models"
	"github.com/KejDhruv-Pharbit/Pharbit/internal/repository"
)

// RegisterMedicineRequest defines the request to register a medicine
type RegisterMedicineRequest struct {
	Name              string
	BrandName         string
	Composition       string
	DosageForm        string
	Strength          string
	DrugCode          string
	HSNCode           string
	Category          string
	StorageConditions string
	CallerOrgID       uuid.UUID
}

// MedicineService manages medicine registration and admin verification
type MedicineService interface {
	RegisterMedicine(ctx context.Context, req *RegisterMedicineRequest) (*models.Medicine, error)
	GetMedicine(ctx context.Context, id uuid.UUID) (*models.Medicine, error)
	ListMedicines(ctx context.Context, orgID uuid.UUID) ([]*models.Medicine, error)
	VerifyMedicine(ctx context.Context, id uuid.UUID, caller *models.Organization) (*models.Medicine, error)
}

// medicineService implements MedicineService
type medicineService struct {
	medicineRepo repository.MedicineRepository
}

// NewMedicineService creates a new medicine service
func NewMedicineService(medicineRepo repository.MedicineRepository) MedicineService {
	return &medicineService{medicineRepo: medicineRepo}
}

// RegisterMedicine registers a medicine pending admin verification
func (s *medicineService) RegisterMedicine(ctx context.Context, req *RegisterMedicineRequest) (*models.Medicine, error) {
	if req.Name == "" {
		return nil, NewMissingFieldError("Medicine name is required")
	}

	medicine := &models.Medicine{
		ID:                uuid.New(),
		OrganizationID:    req.CallerOrgID,
		Name:              req.Name,
		BrandName:         req.BrandName,
		Composition:       req.Composition,
		DosageForm:        req.DosageForm,
		Strength:          req.Strength,
		DrugCode:          req.DrugCode,
		HSNCode:           req.HSNCode,
		Category:          req.Category,
		StorageConditions: req.StorageConditions,
		Verified:          false,
	}

	created, err := s.medicineRepo.Create(ctx, medicine)
	if err != nil {
		return nil, NewInternalError(err.Error())
	}

	log.Info().
		Str("medicine_id", created.ID.String()).
		Str("name", created.Name).
		Msg("Medicine registered")

	return created, nil
}

// GetMedicine gets a medicine by ID
func (s *medicineService) GetMedicine(ctx context.Context, id uuid.UUID) (*models.Medicine, error) {
	medicine, err := s.medicineRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("Medicine not found")
		}
		return nil, NewInternalError(err.Error())
	}
	return medicine, nil
}

// ListMedicines lists medicines registered by an organization
func (s *medicineService) ListMedicines(ctx context.Context, orgID uuid.UUID) ([]*models.Medicine, error) {
	medicines, err := s.medicineRepo.FindByOrganization(ctx, orgID)
	if err != nil {
		return nil, NewInternalError(err.Error())
	}
	return medicines, nil
}

// VerifyMedicine marks a medicine as verified. Admin only.
func (s *medicineService) VerifyMedicine(ctx context.Context, id uuid.UUID, caller *models.Organization) (*models.Medicine, error) {
	if caller == nil || caller.Role != models.AdminRole {
		return nil, NewForbiddenError("Only an administrator can verify medicines")
	}

	if err := s.medicineRepo.Verify(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("Medicine not found")
		}
		return nil, NewInternalError(err.Error())
	}

	medicine, err := s.medicineRepo.GetByID(ctx, id)
	if err != nil {
		return nil, NewInternalError(err.Error())
	}

	log.Info().Str("medicine_id", id.String()).Msg("Medicine verified")
	return medicine, nil
}
