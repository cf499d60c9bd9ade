package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/KejDhruv-Pharbit/Pharbit/internal/metrics"
	"github.com/KejDhruv-Pharbit/Pharbit/internal/models"
	"github.com/KejDhruv-Pharbit/Pharbit/internal/repository"
)

// MintBatchRequest defines the request to mint a batch
type MintBatchRequest struct {
	MedicineID        uuid.UUID
	BlockchainMintID  string
	BlockchainTxHash  *string
	BlockchainNetwork string
	BatchQuantity     int64
	ManufacturingDate time.Time
	ExpiryDate        time.Time
	WarehouseLocation *string
	CallerOrgID       uuid.UUID
}

// BatchService manages minted batches and their quantity ledger
type BatchService interface {
	MintBatch(ctx context.Context, req *MintBatchRequest) (*models.Batch, error)
	GetBatch(ctx context.Context, id uuid.UUID) (*models.Batch, error)
	ListBatches(ctx context.Context, orgID uuid.UUID) ([]*models.Batch, error)
	DeactivateBatch(ctx context.Context, id uuid.UUID, callerOrgID uuid.UUID) error
}

// batchService implements BatchService
type batchService struct {
	batchRepo    repository.BatchRepository
	medicineRepo repository.MedicineRepository
	collector    *metrics.Metrics
}

// NewBatchService creates a new batch service
func NewBatchService(batchRepo repository.BatchRepository, medicineRepo repository.MedicineRepository, collector *metrics.Metrics) BatchService {
	return &batchService{
		batchRepo:    batchRepo,
		medicineRepo: medicineRepo,
		collector:    collector,
	}
}

// MintBatch registers a production lot. The remaining quantity starts equal
// to the batch quantity; a replayed mint id or tx hash is rejected as a
// conflict rather than creating a second ledger.
func (s *batchService) MintBatch(ctx context.Context, req *MintBatchRequest) (*models.Batch, error) {
	if req.MedicineID == uuid.Nil || req.BlockchainMintID == "" || req.BatchQuantity <= 0 {
		return nil, NewMissingFieldError("Medicine ID, mint ID, and a positive batch quantity are required")
	}
	if req.ExpiryDate.Before(req.ManufacturingDate) {
		return nil, NewInvalidStateError("Expiry date cannot precede manufacturing date")
	}

	medicine, err := s.medicineRepo.GetByID(ctx, req.MedicineID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("Medicine not found")
		}
		return nil, NewInternalError(err.Error())
	}
	if medicine.OrganizationID != req.CallerOrgID {
		return nil, NewForbiddenError("Medicine belongs to a different organization")
	}
	if !medicine.Verified {
		return nil, NewInvalidStateError("Medicine has not been verified")
	}

	network := req.BlockchainNetwork
	if network == "" {
		network = "mainnet"
	}

	batch := &models.Batch{
		ID:                uuid.New(),
		MedicineID:        req.MedicineID,
		OrganizationID:    req.CallerOrgID,
		BlockchainMintID:  req.BlockchainMintID,
		BlockchainTxHash:  req.BlockchainTxHash,
		BlockchainNetwork: network,
		BatchQuantity:     req.BatchQuantity,
		RemainingQuantity: req.BatchQuantity,
		IsActive:          true,
		IsQualityVerified: true,
		ManufacturingDate: req.ManufacturingDate,
		ExpiryDate:        req.ExpiryDate,
		WarehouseLocation: req.WarehouseLocation,
	}

	created, err := s.batchRepo.Create(ctx, batch)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, NewConflictError("A batch with this mint ID or transaction hash already exists")
		}
		return nil, NewInternalError(err.Error())
	}

	s.collector.IncrementCounter(metrics.CounterBatchesMinted)

	log.Info().
		Str("batch_id", created.ID.String()).
		Str("mint_id", created.BlockchainMintID).
		Int64("quantity", created.BatchQuantity).
		Msg("Batch minted successfully")

	return created, nil
}

// GetBatch gets a batch by ID
func (s *batchService) GetBatch(ctx context.Context, id uuid.UUID) (*models.Batch, error) {
	batch, err := s.batchRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("Batch not found")
		}
		return nil, NewInternalError(err.Error())
	}
	return batch, nil
}

// ListBatches lists active batches owned by an organization
func (s *batchService) ListBatches(ctx context.Context, orgID uuid.UUID) ([]*models.Batch, error) {
	batches, err := s.batchRepo.FindByOrganization(ctx, orgID)
	if err != nil {
		return nil, NewInternalError(err.Error())
	}
	return batches, nil
}

// DeactivateBatch retires a batch from further reservations. Existing
// shipments are unaffected.
func (s *batchService) DeactivateBatch(ctx context.Context, id uuid.UUID, callerOrgID uuid.UUID) error {
	batch, err := s.batchRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewNotFoundError("Batch not found")
		}
		return NewInternalError(err.Error())
	}
	if batch.OrganizationID != callerOrgID {
		return NewForbiddenError("Batch belongs to a different organization")
	}

	if err := s.batchRepo.Deactivate(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewNotFoundError("Batch not found")
		}
		return NewInternalError(err.Error())
	}

	log.Info().Str("batch_id", id.String()).Msg("Batch deactivated")
	return nil
}
