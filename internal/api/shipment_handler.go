package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog/log"

	"github.com/KejDhruv-Pharbit/Pharbit/internal/service"
	"github.com/KejDhruv-Pharbit/Pharbit/internal/tracing"
)

// ShipmentHandler handles shipment custody HTTP requests
type ShipmentHandler struct {
	custodyService service.CustodyService
	tracer         tracing.Tracer
}

// NewShipmentHandler creates a new shipment handler
func NewShipmentHandler(custodyService service.CustodyService, tracer tracing.Tracer) *ShipmentHandler {
	return &ShipmentHandler{
		custodyService: custodyService,
		tracer:         tracer,
	}
}

// CreateShipmentRequest represents an incoming shipment creation request
type CreateShipmentRequest struct {
	BatchID          uuid.UUID  `json:"batch_id" binding:"required"`
	DestinationOrgID uuid.UUID  `json:"destination_org_id" binding:"required"`
	MedicinesAmount  int64      `json:"medicines_amount" binding:"required"`
	IntermediateID   *uuid.UUID `json:"intermediate_id"`
	DepositTxHash    *string    `json:"deposit_tx_hash"`
	IdempotencyKey   *uuid.UUID `json:"idempotency_key"`
}

// ForwardShipmentRequest represents an incoming forward request
type ForwardShipmentRequest struct {
	ShipmentID      uuid.UUID `json:"shipment_id" binding:"required"`
	NextHolderOrgID uuid.UUID `json:"next_holder_org_id" binding:"required"`
	Temperature     *float64  `json:"temperature"`
}

// RedeemShipmentRequest represents an incoming redeem request
type RedeemShipmentRequest struct {
	ShipmentID   uuid.UUID `json:"shipment_id" binding:"required"`
	RedeemTxHash *string   `json:"redeem_tx_hash"`
}

// CreateShipment handles POST /api/v1/shipments
func (h *ShipmentHandler) CreateShipment(c *gin.Context) {
	txn := h.startTransaction(c, "api-create-shipment")
	defer h.tracer.EndTransaction(txn)

	org, err := GetOrganizationFromContext(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req CreateShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Invalid shipment creation request")
		respondError(c, service.NewMissingFieldError(err.Error()))
		h.tracer.RecordError(txn, err)
		return
	}

	h.tracer.AddAttribute(txn, "batch_id", req.BatchID.String())
	h.tracer.AddAttribute(txn, "amount", req.MedicinesAmount)

	shipment, err := h.custodyService.CreateShipment(c.Request.Context(), &service.CreateShipmentRequest{
		BatchID:          req.BatchID,
		DestinationOrgID: req.DestinationOrgID,
		MedicinesAmount:  req.MedicinesAmount,
		IntermediateID:   req.IntermediateID,
		DepositTxHash:    req.DepositTxHash,
		IdempotencyKey:   req.IdempotencyKey,
		CallerOrgID:      org.ID,
	})
	if err != nil {
		respondError(c, err)
		h.tracer.RecordError(txn, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":       true,
		"tracking_code": shipment.TrackingCode,
		"data":          shipment,
	})
}

// ForwardShipment handles POST /api/v1/shipments/forward
func (h *ShipmentHandler) ForwardShipment(c *gin.Context) {
	txn := h.startTransaction(c, "api-forward-shipment")
	defer h.tracer.EndTransaction(txn)

	org, err := GetOrganizationFromContext(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req ForwardShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Invalid shipment forward request")
		respondError(c, service.NewMissingFieldError(err.Error()))
		h.tracer.RecordError(txn, err)
		return
	}

	h.tracer.AddAttribute(txn, "shipment_id", req.ShipmentID.String())

	shipment, err := h.custodyService.ForwardShipment(c.Request.Context(), &service.ForwardShipmentRequest{
		ShipmentID:      req.ShipmentID,
		NextHolderOrgID: req.NextHolderOrgID,
		Temperature:     req.Temperature,
		CallerOrgID:     org.ID,
	})
	if err != nil {
		respondError(c, err)
		h.tracer.RecordError(txn, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"new_tracking_code": shipment.TrackingCode,
		"data":              shipment,
	})
}

// ScanShipment handles GET /api/v1/shipments/scan/:tracking_code
func (h *ShipmentHandler) ScanShipment(c *gin.Context) {
	txn := h.startTransaction(c, "api-scan-shipment")
	defer h.tracer.EndTransaction(txn)

	org, err := GetOrganizationFromContext(c)
	if err != nil {
		respondError(c, err)
		return
	}

	trackingCode := c.Param("tracking_code")

	result, err := h.custodyService.ReceiveShipment(c.Request.Context(), trackingCode, org.ID)
	if err != nil {
		respondError(c, err)
		h.tracer.RecordError(txn, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"action":  result.Action,
		"data":    result.Shipment,
	})
}

// RedeemShipment handles POST /api/v1/shipments/redeem
func (h *ShipmentHandler) RedeemShipment(c *gin.Context) {
	txn := h.startTransaction(c, "api-redeem-shipment")
	defer h.tracer.EndTransaction(txn)

	org, err := GetOrganizationFromContext(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req RedeemShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Invalid shipment redeem request")
		respondError(c, service.NewMissingFieldError(err.Error()))
		h.tracer.RecordError(txn, err)
		return
	}

	shipment, err := h.custodyService.RedeemShipment(c.Request.Context(), &service.RedeemShipmentRequest{
		ShipmentID:   req.ShipmentID,
		RedeemTxHash: req.RedeemTxHash,
		CallerOrgID:  org.ID,
	})
	if err != nil {
		respondError(c, err)
		h.tracer.RecordError(txn, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    shipment,
	})
}

// GetShipment handles GET /api/v1/shipments/:id
func (h *ShipmentHandler) GetShipment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, service.NewMissingFieldError("Invalid shipment ID"))
		return
	}

	shipment, err := h.custodyService.GetShipment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    shipment,
	})
}

// ListShipments handles GET /api/v1/shipments?view=holder|source|destination
func (h *ShipmentHandler) ListShipments(c *gin.Context) {
	org, err := GetOrganizationFromContext(c)
	if err != nil {
		respondError(c, err)
		return
	}

	view := service.ShipmentView(c.DefaultQuery("view", string(service.ViewHolder)))

	shipments, err := h.custodyService.ListShipments(c.Request.Context(), view, org.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    shipments,
	})
}

// GetShipmentLogs handles GET /api/v1/shipments/:id/logs
func (h *ShipmentHandler) GetShipmentLogs(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, service.NewMissingFieldError("Invalid shipment ID"))
		return
	}

	logs, err := h.custodyService.GetShipmentLogs(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    logs,
	})
}

// RegisterRoutes registers the handler's routes
func (h *ShipmentHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/shipments", h.CreateShipment)
	group.GET("/shipments", h.ListShipments)
	group.POST("/shipments/forward", h.ForwardShipment)
	group.POST("/shipments/redeem", h.RedeemShipment)
	group.GET("/shipments/scan/:tracking_code", h.ScanShipment)
	group.GET("/shipments/:id", h.GetShipment)
	group.GET("/shipments/:id/logs", h.GetShipmentLogs)
}

// startTransaction reuses the transaction nrgin put on the context when the
// middleware is installed, otherwise starts a standalone one
func (h *ShipmentHandler) startTransaction(c *gin.Context, name string) *newrelic.Transaction {
	if txn := nrgin.Transaction(c); txn != nil {
		txn.SetName(name)
		return txn
	}
	return h.tracer.StartTransaction(name)
}
