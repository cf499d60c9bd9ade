package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/KejDhruv-Pharbit/Pharbit/internal/service"
)

// BatchHandler handles batch HTTP requests
type BatchHandler struct {
	batchService service.BatchService
}

// NewBatchHandler creates a new batch handler
func NewBatchHandler(batchService service.BatchService) *BatchHandler {
	return &BatchHandler{batchService: batchService}
}

// MintBatchRequest represents an incoming batch mint request
type MintBatchRequest struct {
	MedicineID        uuid.UUID `json:"medicine_id" binding:"required"`
	BlockchainMintID  string    `json:"blockchain_mint_id" binding:"required"`
	BlockchainTxHash  *string   `json:"blockchain_tx_hash"`
	BlockchainNetwork string    `json:"blockchain_network"`
	BatchQuantity     int64     `json:"batch_quantity" binding:"required"`
	ManufacturingDate time.Time `json:"manufacturing_date" binding:"required"`
	ExpiryDate        time.Time `json:"expiry_date" binding:"required"`
	WarehouseLocation *string   `json:"warehouse_location"`
}

// MintBatch handles POST /api/v1/batches
func (h *BatchHandler) MintBatch(c *gin.Context) {
	org, err := GetOrganizationFromContext(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req MintBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Invalid batch mint request")
		respondError(c, service.NewMissingFieldError(err.Error()))
		return
	}

	batch, err := h.batchService.MintBatch(c.Request.Context(), &service.MintBatchRequest{
		MedicineID:        req.MedicineID,
		BlockchainMintID:  req.BlockchainMintID,
		BlockchainTxHash:  req.BlockchainTxHash,
		BlockchainNetwork: req.BlockchainNetwork,
		BatchQuantity:     req.BatchQuantity,
		ManufacturingDate: req.ManufacturingDate,
		ExpiryDate:        req.ExpiryDate,
		WarehouseLocation: req.WarehouseLocation,
		CallerOrgID:       org.ID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    batch,
	})
}

// GetBatch handles GET /api/v1/batches/:id
func (h *BatchHandler) GetBatch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, service.NewMissingFieldError("Invalid batch ID"))
		return
	}

	batch, err := h.batchService.GetBatch(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    batch,
	})
}

// ListBatches handles GET /api/v1/batches
func (h *BatchHandler) ListBatches(c *gin.Context) {
	org, err := GetOrganizationFromContext(c)
	if err != nil {
		respondError(c, err)
		return
	}

	batches, err := h.batchService.ListBatches(c.Request.Context(), org.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    batches,
	})
}

// DeactivateBatch handles DELETE /api/v1/batches/:id
func (h *BatchHandler) DeactivateBatch(c *gin.Context) {
	org, err := GetOrganizationFromContext(c)
	if err != nil {
		respondError(c, err)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, service.NewMissingFieldError("Invalid batch ID"))
		return
	}

	if err := h.batchService.DeactivateBatch(c.Request.Context(), id, org.ID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
	})
}

// RegisterRoutes registers the handler's routes
func (h *BatchHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/batches", h.MintBatch)
	group.GET("/batches", h.ListBatches)
	group.GET("/batches/:id", h.GetBatch)
	group.DELETE("/batches/:id", h.DeactivateBatch)
}
