package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/KejDhruv-Pharbit/Pharbit/internal/models"
	"github.com/KejDhruv-Pharbit/Pharbit/internal/repository"
)

// RegisterOrganizationRequest defines the request to register an organization
type RegisterOrganizationRequest struct {
	Name    string
	Role    models.OrganizationRole
	Address json.RawMessage
}

// OrganizationService manages supply-chain participant onboarding
type OrganizationService interface {
	RegisterOrganization(ctx context.Context, req *RegisterOrganizationRequest, caller *models.Organization) (*models.Organization, error)
	GetOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error)
}

// organizationService implements OrganizationService
type organizationService struct {
	orgRepo repository.OrganizationRepository
}

// NewOrganizationService creates a new organization service
func NewOrganizationService(orgRepo repository.OrganizationRepository) OrganizationService {
	return &organizationService{orgRepo: orgRepo}
}

// RegisterOrganization onboards a participant with a fresh API key. Admin
// only; the address snapshot is stored verbatim and later copied into
// custody log entries.
func (s *organizationService) RegisterOrganization(ctx context.Context, req *RegisterOrganizationRequest, caller *models.Organization) (*models.Organization, error) {
	if caller == nil || caller.Role != models.AdminRole {
		return nil, NewForbiddenError("Only an administrator can register organizations")
	}
	if req.Name == "" {
		return nil, NewMissingFieldError("Organization name is required")
	}

	switch req.Role {
	case models.ManufacturerRole, models.DistributorRole, models.PharmacyRole:
	default:
		return nil, NewInvalidStateError("Role must be manufacturer, distributor, or pharmacy")
	}

	org := &models.Organization{
		ID:      uuid.New(),
		Name:    req.Name,
		Role:    req.Role,
		APIKey:  uuid.New().String(),
		Address: req.Address,
		Active:  true,
	}

	created, err := s.orgRepo.Create(ctx, org)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, NewConflictError("Organization already exists")
		}
		return nil, NewInternalError(err.Error())
	}

	log.Info().
		Str("organization_id", created.ID.String()).
		Str("role", string(created.Role)).
		Msg("Organization registered")

	return created, nil
}

// GetOrganization gets an organization by ID
func (s *organizationService) GetOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	org, err := s.orgRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("Organization not found")
		}
		return nil, NewInternalError(err.Error())
	}
	return org, nil
}
