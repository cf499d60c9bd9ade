package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/KejDhruv-Pharbit/Pharbit/internal/metrics"
	"github.com/KejDhruv-Pharbit/Pharbit/internal/models"
	"github.com/KejDhruv-Pharbit/Pharbit/internal/repository"
)

func newTestBatchService() (BatchService, *MockBatchRepository, *MockMedicineRepository) {
	batchRepo := new(MockBatchRepository)
	medicineRepo := new(MockMedicineRepository)
	svc := NewBatchService(batchRepo, medicineRepo, metrics.NewMetrics())
	return svc, batchRepo, medicineRepo
}

func TestMintBatch(t *testing.T) {
	svc, batchRepo, medicineRepo := newTestBatchService()

	orgID := uuid.New()
	medicineID := uuid.New()

	medicineRepo.On("GetByID", mock.Anything, medicineID).Return(&models.Medicine{
		ID:             medicineID,
		OrganizationID: orgID,
		Verified:       true,
	}, nil)
	var stored *models.Batch
	batchRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Batch")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*models.Batch) }).
		Return(&models.Batch{}, nil)

	_, err := svc.MintBatch(context.Background(), &MintBatchRequest{
		MedicineID:        medicineID,
		BlockchainMintID:  "BATCH-2026-001",
		BatchQuantity:     1000,
		ManufacturingDate: time.Now().Add(-24 * time.Hour),
		ExpiryDate:        time.Now().Add(365 * 24 * time.Hour),
		CallerOrgID:       orgID,
	})

	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, int64(1000), stored.BatchQuantity)
	// The ledger starts full
	require.Equal(t, int64(1000), stored.RemainingQuantity)
	require.True(t, stored.IsActive)
	require.Equal(t, "mainnet", stored.BlockchainNetwork)
	require.Equal(t, orgID, stored.OrganizationID)

	batchRepo.AssertExpectations(t)
}

func TestMintBatchDuplicateMintID(t *testing.T) {
	svc, batchRepo, medicineRepo := newTestBatchService()

	orgID := uuid.New()
	medicineID := uuid.New()

	medicineRepo.On("GetByID", mock.Anything, medicineID).Return(&models.Medicine{
		ID:             medicineID,
		OrganizationID: orgID,
		Verified:       true,
	}, nil)
	batchRepo.On("Create", mock.Anything, mock.Anything).Return(nil, repository.ErrDuplicateKey)

	_, err := svc.MintBatch(context.Background(), &MintBatchRequest{
		MedicineID:        medicineID,
		BlockchainMintID:  "BATCH-2026-001",
		BatchQuantity:     1000,
		ManufacturingDate: time.Now().Add(-24 * time.Hour),
		ExpiryDate:        time.Now().Add(365 * 24 * time.Hour),
		CallerOrgID:       orgID,
	})

	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, "CONFLICT", svcErr.Code)
	require.Equal(t, 409, svcErr.StatusCode)
}

func TestMintBatchUnverifiedMedicine(t *testing.T) {
	svc, batchRepo, medicineRepo := newTestBatchService()

	orgID := uuid.New()
	medicineID := uuid.New()

	medicineRepo.On("GetByID", mock.Anything, medicineID).Return(&models.Medicine{
		ID:             medicineID,
		OrganizationID: orgID,
		Verified:       false,
	}, nil)

	_, err := svc.MintBatch(context.Background(), &MintBatchRequest{
		MedicineID:        medicineID,
		BlockchainMintID:  "BATCH-2026-002",
		BatchQuantity:     500,
		ManufacturingDate: time.Now().Add(-24 * time.Hour),
		ExpiryDate:        time.Now().Add(365 * 24 * time.Hour),
		CallerOrgID:       orgID,
	})

	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, "INVALID_STATE", svcErr.Code)
	batchRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestMintBatchForeignMedicine(t *testing.T) {
	svc, _, medicineRepo := newTestBatchService()

	medicineID := uuid.New()
	medicineRepo.On("GetByID", mock.Anything, medicineID).Return(&models.Medicine{
		ID:             medicineID,
		OrganizationID: uuid.New(),
		Verified:       true,
	}, nil)

	_, err := svc.MintBatch(context.Background(), &MintBatchRequest{
		MedicineID:        medicineID,
		BlockchainMintID:  "BATCH-2026-003",
		BatchQuantity:     500,
		ManufacturingDate: time.Now().Add(-24 * time.Hour),
		ExpiryDate:        time.Now().Add(365 * 24 * time.Hour),
		CallerOrgID:       uuid.New(),
	})

	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, "FORBIDDEN", svcErr.Code)
}

func TestDeactivateBatch(t *testing.T) {
	svc, batchRepo, _ := newTestBatchService()

	orgID := uuid.New()
	batchID := uuid.New()

	batchRepo.On("GetByID", mock.Anything, batchID).Return(&models.Batch{
		ID:             batchID,
		OrganizationID: orgID,
		IsActive:       true,
	}, nil)
	batchRepo.On("Deactivate", mock.Anything, batchID).Return(nil)

	err := svc.DeactivateBatch(context.Background(), batchID, orgID)
	require.NoError(t, err)
	batchRepo.AssertExpectations(t)
}
