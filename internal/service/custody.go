package service

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/KejDhruv-Pharbit/Pharbit/internal/cache"
	"github.com/KejDhruv-Pharbit/Pharbit/internal/messaging"
	"github.com/KejDhruv-Pharbit/Pharbit/internal/metrics"
	"github.com/KejDhruv-Pharbit/Pharbit/internal/models"
	"github.com/KejDhruv-Pharbit/Pharbit/internal/repository"
	"github.com/KejDhruv-Pharbit/Pharbit/internal/search"
)

// ScanAction is the outcome of a receive-on-scan call
type ScanAction string

const (
	// ScanActionReceived means custody passed to the scanning organization
	ScanActionReceived ScanAction = "RECEIVED"
	// ScanActionRedeem means the scanner is the final destination and should
	// proceed to redeem
	ScanActionRedeem ScanAction = "REDEEM"
)

// ShipmentView selects one of the shipment listing projections
type ShipmentView string

const (
	// ViewHolder lists shipments currently held by the organization
	ViewHolder ShipmentView = "holder"
	// ViewSource lists shipments originated by the organization
	ViewSource ShipmentView = "source"
	// ViewDestination lists shipments destined for the organization
	ViewDestination ShipmentView = "destination"
)

// CreateShipmentRequest defines the request to create a shipment
type CreateShipmentRequest struct {
	BatchID          uuid.UUID
	DestinationOrgID uuid.UUID
	MedicinesAmount  int64
	IntermediateID   *uuid.UUID
	DepositTxHash    *string
	IdempotencyKey   *uuid.UUID
	CallerOrgID      uuid.UUID
}

// ForwardShipmentRequest defines the request to forward a shipment
type ForwardShipmentRequest struct {
	ShipmentID      uuid.UUID
	NextHolderOrgID uuid.UUID
	Temperature     *float64
	CallerOrgID     uuid.UUID
}

// RedeemShipmentRequest defines the request to redeem a shipment at its
// destination
type RedeemShipmentRequest struct {
	ShipmentID   uuid.UUID
	RedeemTxHash *string
	CallerOrgID  uuid.UUID
}

// ScanResult is the outcome of a receive-on-scan call
type ScanResult struct {
	Action   ScanAction       `json:"action"`
	Shipment *models.Shipment `json:"data"`
}

// CustodyEvent is the message published to the ERP queue after each
// committed custody transition
type CustodyEvent struct {
	ShipmentID   uuid.UUID        `json:"shipment_id"`
	BatchID      uuid.UUID        `json:"batch_id"`
	Action       models.LogAction `json:"action"`
	ActorOrgID   uuid.UUID        `json:"actor_org_id"`
	TrackingCode string           `json:"tracking_code"`
	Timestamp    time.Time        `json:"timestamp"`
}

// CustodyService implements the shipment custody state machine. It is the
// sole writer of batch remaining quantities, shipment custody fields and
// the shipment log.
type CustodyService interface {
	CreateShipment(ctx context.Context, req *CreateShipmentRequest) (*models.Shipment, error)
	ForwardShipment(ctx context.Context, req *ForwardShipmentRequest) (*models.Shipment, error)
	ReceiveShipment(ctx context.Context, trackingCode string, callerOrgID uuid.UUID) (*ScanResult, error)
	RedeemShipment(ctx context.Context, req *RedeemShipmentRequest) (*models.Shipment, error)
	GetShipment(ctx context.Context, id uuid.UUID) (*models.Shipment, error)
	ListShipments(ctx context.Context, view ShipmentView, orgID uuid.UUID) ([]*models.Shipment, error)
	GetShipmentLogs(ctx context.Context, shipmentID uuid.UUID) ([]*models.ShipmentLog, error)
	ReconcileLogIndex(ctx context.Context, limit int) (int, error)
}

// custodyService implements CustodyService
type custodyService struct {
	db           *gorm.DB
	inTx         func(ctx context.Context, fn func(tx *gorm.DB) error) error
	batchRepo    repository.BatchRepository
	shipmentRepo repository.ShipmentRepository
	logRepo      repository.ShipmentLogRepository
	orgRepo      repository.OrganizationRepository
	cache        cache.CacheClient
	search       *search.ElasticClient
	messageBus   messaging.Client
	collector    *metrics.Metrics
	custodyQueue string
}

// NewCustodyService creates a new custody service
func NewCustodyService(
	db *gorm.DB,
	batchRepo repository.BatchRepository,
	shipmentRepo repository.ShipmentRepository,
	logRepo repository.ShipmentLogRepository,
	orgRepo repository.OrganizationRepository,
	cacheClient cache.CacheClient,
	searchClient *search.ElasticClient,
	messageBus messaging.Client,
	collector *metrics.Metrics,
	custodyQueue string,
) CustodyService {
	return &custodyService{
		db: db,
		inTx: func(ctx context.Context, fn func(tx *gorm.DB) error) error {
			return db.WithContext(ctx).Transaction(fn)
		},
		batchRepo:    batchRepo,
		shipmentRepo: shipmentRepo,
		logRepo:      logRepo,
		orgRepo:      orgRepo,
		cache:        cacheClient,
		search:       searchClient,
		messageBus:   messageBus,
		collector:    collector,
		custodyQueue: custodyQueue,
	}
}

// CreateShipment reserves quantity from the batch and creates the shipment
// as one unit of work. Either both the ledger decrement and the shipment row
// commit, or neither does.
func (s *custodyService) CreateShipment(ctx context.Context, req *CreateShipmentRequest) (*models.Shipment, error) {
	if req.BatchID == uuid.Nil || req.DestinationOrgID == uuid.Nil || req.MedicinesAmount <= 0 {
		return nil, NewMissingFieldError("Batch ID, destination org, and medicines_amount are required")
	}

	// Replay of an already-created shipment returns it unchanged, so a
	// caller retrying after a network failure cannot double-deduct.
	if req.IdempotencyKey != nil {
		existing, err := s.shipmentRepo.GetByIdempotencyKey(ctx, *req.IdempotencyKey)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, NewInternalError(err.Error())
		}
	}

	shipment := &models.Shipment{
		ID:                      uuid.New(),
		BatchID:                 req.BatchID,
		TrackingCode:            uuid.New().String(),
		SourceOrgID:             req.CallerOrgID,
		DestinationOrgID:        req.DestinationOrgID,
		CurrentHolderOrgID:      req.CallerOrgID,
		NextExpectedHolderOrgID: req.IntermediateID,
		Status:                  models.ShipmentCreated,
		Escrowed:                true,
		Redeemed:                false,
		IsActive:                true,
		MedicinesAmount:         req.MedicinesAmount,
		IdempotencyKey:          req.IdempotencyKey,
		DepositTxHash:           req.DepositTxHash,
	}

	err := s.inTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.batchRepo.Reserve(ctx, tx, req.BatchID, req.MedicinesAmount); err != nil {
			return err
		}
		if _, err := s.shipmentRepo.Create(ctx, tx, shipment); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		// A concurrent replay may have won the idempotency-key race.
		if errors.Is(err, repository.ErrDuplicateKey) && req.IdempotencyKey != nil {
			if existing, ferr := s.shipmentRepo.GetByIdempotencyKey(ctx, *req.IdempotencyKey); ferr == nil {
				return existing, nil
			}
		}
		return nil, mapReserveError(err)
	}

	s.collector.IncrementCounter(metrics.CounterShipmentsCreated)

	if err := s.cache.SetShipment(ctx, shipment); err != nil {
		log.Warn().Err(err).Msg("Failed to cache shipment")
	}

	s.appendLog(ctx, &models.ShipmentLog{
		ShipmentID:     shipment.ID,
		OrganizationID: req.CallerOrgID,
		Action:         models.LogActionCreated,
		Location:       s.orgAddress(ctx, req.CallerOrgID),
		Notes:          "Shipment created and escrow initiated",
	})
	s.publishEvent(shipment, models.LogActionCreated, req.CallerOrgID)

	log.Info().
		Str("shipment_id", shipment.ID.String()).
		Str("batch_id", req.BatchID.String()).
		Int64("amount", req.MedicinesAmount).
		Msg("Shipment created successfully")

	return shipment, nil
}

// ForwardShipment hands a shipment off to the next holder. The tracking
// code rotates; the current holder keeps custody until the receiver scans
// it in.
func (s *custodyService) ForwardShipment(ctx context.Context, req *ForwardShipmentRequest) (*models.Shipment, error) {
	if req.ShipmentID == uuid.Nil || req.NextHolderOrgID == uuid.Nil {
		return nil, NewMissingFieldError("Shipment ID and next holder are required")
	}

	shipment, err := s.shipmentRepo.GetByID(ctx, req.ShipmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("Shipment not found")
		}
		return nil, NewInternalError(err.Error())
	}

	if shipment.Terminal() {
		return nil, NewInvalidStateError("Shipment is inactive or already redeemed")
	}
	if shipment.CurrentHolderOrgID != req.CallerOrgID {
		return nil, NewForbiddenError("You are not authorized to forward this shipment")
	}

	oldTrackingCode := shipment.TrackingCode
	newTrackingCode := uuid.New().String()

	// Guard on the state just validated; a concurrent transition on the
	// same shipment makes the update a no-op instead of clobbering it.
	guard := map[string]interface{}{
		"status":                shipment.Status,
		"current_holder_org_id": req.CallerOrgID,
		"is_active":             true,
		"redeemed":              false,
	}
	patch := map[string]interface{}{
		"tracking_code":               newTrackingCode,
		"next_expected_holder_org_id": req.NextHolderOrgID,
		"status":                      models.ShipmentForwarded,
	}

	updated, err := s.shipmentRepo.UpdateCustody(ctx, shipment.ID, guard, patch)
	if err != nil {
		if errors.Is(err, repository.ErrStaleRecord) {
			return nil, NewConflictError("Shipment was modified concurrently, please retry")
		}
		return nil, NewInternalError(err.Error())
	}

	s.collector.IncrementCounter(metrics.CounterShipmentsForwarded)
	s.invalidateTracking(ctx, oldTrackingCode, updated)

	s.appendLog(ctx, &models.ShipmentLog{
		ShipmentID:     updated.ID,
		OrganizationID: req.CallerOrgID,
		Action:         models.LogActionForwarded,
		Location:       s.orgAddress(ctx, req.CallerOrgID),
		Temperature:    req.Temperature,
		Notes:          "Forwarded to organization " + req.NextHolderOrgID.String(),
	})
	s.publishEvent(updated, models.LogActionForwarded, req.CallerOrgID)

	log.Info().
		Str("shipment_id", updated.ID.String()).
		Str("next_holder", req.NextHolderOrgID.String()).
		Msg("Shipment forwarded successfully")

	return updated, nil
}

// ReceiveShipment resolves a tracking-code scan. A scan by the final
// destination wins over the next-expected-holder check and returns a REDEEM
// signal without mutating the shipment; a scan by the designated next holder
// transfers custody; anyone else is rejected.
func (s *custodyService) ReceiveShipment(ctx context.Context, trackingCode string, callerOrgID uuid.UUID) (*ScanResult, error) {
	if trackingCode == "" {
		return nil, NewMissingFieldError("Tracking code is required")
	}

	shipment, err := s.lookupByTrackingCode(ctx, trackingCode)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("Shipment not found")
		}
		return nil, NewInternalError(err.Error())
	}

	if shipment.DestinationOrgID == callerOrgID {
		return &ScanResult{Action: ScanActionRedeem, Shipment: shipment}, nil
	}

	if shipment.NextExpectedHolderOrgID == nil || *shipment.NextExpectedHolderOrgID != callerOrgID {
		return nil, NewForbiddenError("You are not authorized to receive this shipment")
	}

	if shipment.Terminal() {
		return nil, NewInvalidStateError("Shipment is inactive or already redeemed")
	}

	guard := map[string]interface{}{
		"next_expected_holder_org_id": callerOrgID,
		"is_active":                   true,
		"redeemed":                    false,
	}
	patch := map[string]interface{}{
		"current_holder_org_id":       callerOrgID,
		"next_expected_holder_org_id": nil,
		"status":                      models.ShipmentReceived,
	}

	updated, err := s.shipmentRepo.UpdateCustody(ctx, shipment.ID, guard, patch)
	if err != nil {
		if errors.Is(err, repository.ErrStaleRecord) {
			return nil, NewConflictError("Shipment was modified concurrently, please retry")
		}
		return nil, NewInternalError(err.Error())
	}

	s.collector.IncrementCounter(metrics.CounterShipmentsReceived)
	s.invalidateTracking(ctx, trackingCode, updated)

	s.appendLog(ctx, &models.ShipmentLog{
		ShipmentID:     updated.ID,
		OrganizationID: callerOrgID,
		Action:         models.LogActionReceived,
		Location:       s.orgAddress(ctx, callerOrgID),
		Notes:          "Shipment received by intermediate organization",
	})
	s.publishEvent(updated, models.LogActionReceived, callerOrgID)

	log.Info().
		Str("shipment_id", updated.ID.String()).
		Str("receiver", callerOrgID.String()).
		Msg("Shipment received successfully")

	return &ScanResult{Action: ScanActionReceived, Shipment: updated}, nil
}

// RedeemShipment is the terminal transition: the destination organization
// takes final custody and the shipment leaves escrow for good.
func (s *custodyService) RedeemShipment(ctx context.Context, req *RedeemShipmentRequest) (*models.Shipment, error) {
	if req.ShipmentID == uuid.Nil {
		return nil, NewMissingFieldError("Shipment ID is required")
	}

	shipment, err := s.shipmentRepo.GetByID(ctx, req.ShipmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("Shipment not found")
		}
		return nil, NewInternalError(err.Error())
	}

	if shipment.Terminal() {
		return nil, NewInvalidStateError("Shipment is inactive or already redeemed")
	}
	if shipment.DestinationOrgID != req.CallerOrgID {
		return nil, NewForbiddenError("Only the destination organization can redeem this shipment")
	}

	guard := map[string]interface{}{
		"is_active": true,
		"redeemed":  false,
	}
	patch := map[string]interface{}{
		"status":                      models.ShipmentRedeemed,
		"redeemed":                    true,
		"escrowed":                    false,
		"current_holder_org_id":       req.CallerOrgID,
		"next_expected_holder_org_id": nil,
	}
	if req.RedeemTxHash != nil {
		patch["redeem_tx_hash"] = *req.RedeemTxHash
	}

	updated, err := s.shipmentRepo.UpdateCustody(ctx, shipment.ID, guard, patch)
	if err != nil {
		if errors.Is(err, repository.ErrStaleRecord) {
			return nil, NewInvalidStateError("Shipment is inactive or already redeemed")
		}
		return nil, NewInternalError(err.Error())
	}

	s.collector.IncrementCounter(metrics.CounterShipmentsRedeemed)
	s.invalidateTracking(ctx, shipment.TrackingCode, updated)

	s.appendLog(ctx, &models.ShipmentLog{
		ShipmentID:     updated.ID,
		OrganizationID: req.CallerOrgID,
		Action:         models.LogActionRedeemed,
		Location:       s.orgAddress(ctx, req.CallerOrgID),
		Notes:          "Shipment redeemed at destination",
	})
	s.publishEvent(updated, models.LogActionRedeemed, req.CallerOrgID)

	log.Info().
		Str("shipment_id", updated.ID.String()).
		Msg("Shipment redeemed successfully")

	return updated, nil
}

// GetShipment gets a shipment by ID
func (s *custodyService) GetShipment(ctx context.Context, id uuid.UUID) (*models.Shipment, error) {
	shipment, err := s.shipmentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("Shipment not found")
		}
		return nil, NewInternalError(err.Error())
	}
	return shipment, nil
}

// ListShipments returns one of the active-shipment projections for an
// organization, newest first
func (s *custodyService) ListShipments(ctx context.Context, view ShipmentView, orgID uuid.UUID) ([]*models.Shipment, error) {
	var (
		shipments []*models.Shipment
		err       error
	)

	switch view {
	case ViewSource:
		shipments, err = s.shipmentRepo.FindBySource(ctx, orgID)
	case ViewDestination:
		shipments, err = s.shipmentRepo.FindByDestination(ctx, orgID)
	default:
		shipments, err = s.shipmentRepo.FindByHolder(ctx, orgID)
	}
	if err != nil {
		return nil, NewInternalError(err.Error())
	}
	return shipments, nil
}

// GetShipmentLogs returns the audit trail for one shipment
func (s *custodyService) GetShipmentLogs(ctx context.Context, shipmentID uuid.UUID) ([]*models.ShipmentLog, error) {
	if _, err := s.shipmentRepo.GetByID(ctx, shipmentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("Shipment not found")
		}
		return nil, NewInternalError(err.Error())
	}

	entries, err := s.logRepo.FindByShipment(ctx, shipmentID)
	if err != nil {
		return nil, NewInternalError(err.Error())
	}
	return entries, nil
}

// ReconcileLogIndex indexes shipment log entries that earlier failed to
// reach Elasticsearch. Returns the number of entries indexed.
func (s *custodyService) ReconcileLogIndex(ctx context.Context, limit int) (int, error) {
	if s.search == nil || !s.search.Enabled() {
		return 0, nil
	}

	entries, err := s.logRepo.FindUnindexed(ctx, limit)
	if err != nil {
		return 0, errors.Wrap(err, "failed to load unindexed shipment logs")
	}

	indexed := 0
	for _, entry := range entries {
		if err := s.search.IndexShipmentLog(ctx, entry); err != nil {
			log.Warn().Err(err).Str("log_id", entry.ID.String()).Msg("Failed to index shipment log")
			continue
		}
		if err := s.logRepo.MarkIndexed(ctx, entry.ID); err != nil {
			log.Warn().Err(err).Str("log_id", entry.ID.String()).Msg("Failed to mark shipment log indexed")
			continue
		}
		indexed++
	}

	return indexed, nil
}

// lookupByTrackingCode tries the cache before the database
func (s *custodyService) lookupByTrackingCode(ctx context.Context, code string) (*models.Shipment, error) {
	shipment, err := s.cache.GetShipmentByTrackingCode(ctx, code)
	if err == nil {
		return shipment, nil
	}
	if err != redis.Nil {
		log.Warn().Err(err).Msg("Failed to get shipment from cache")
	}

	shipment, err = s.shipmentRepo.GetByTrackingCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetShipment(ctx, shipment); err != nil {
		log.Warn().Err(err).Msg("Failed to cache shipment")
	}

	return shipment, nil
}

// invalidateTracking drops the stale tracking-code entry and caches the
// updated shipment
func (s *custodyService) invalidateTracking(ctx context.Context, oldCode string, updated *models.Shipment) {
	if err := s.cache.DeleteShipmentTrackingCode(ctx, oldCode); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate shipment cache entry")
	}
	if err := s.cache.SetShipment(ctx, updated); err != nil {
		log.Warn().Err(err).Msg("Failed to cache shipment")
	}
}

// appendLog writes one custody audit record and pushes it to the search
// index. The custody transition is already committed; failures here are
// surfaced as warnings only.
func (s *custodyService) appendLog(ctx context.Context, entry *models.ShipmentLog) {
	saved, err := s.logRepo.Append(ctx, entry)
	if err != nil {
		s.collector.IncrementCounter(metrics.CounterLogAppendFailures)
		log.Warn().
			Err(err).
			Str("shipment_id", entry.ShipmentID.String()).
			Str("action", string(entry.Action)).
			Msg("Failed to append shipment log")
		return
	}

	if s.search == nil || !s.search.Enabled() {
		return
	}

	if err := s.search.IndexShipmentLog(ctx, saved); err != nil {
		// The reconcile worker picks the entry up later.
		log.Warn().Err(err).Str("log_id", saved.ID.String()).Msg("Failed to index shipment log")
		return
	}
	if err := s.logRepo.MarkIndexed(ctx, saved.ID); err != nil {
		log.Warn().Err(err).Str("log_id", saved.ID.String()).Msg("Failed to mark shipment log indexed")
	}
}

// orgAddress resolves the acting organization's address snapshot, going
// through the cache first. A missing address is recorded as null, matching
// the audit trail's treatment of unknown locations.
func (s *custodyService) orgAddress(ctx context.Context, orgID uuid.UUID) []byte {
	org, err := s.cache.GetOrganization(ctx, orgID.String())
	if err == nil {
		return org.Address
	}
	if err != redis.Nil {
		log.Warn().Err(err).Msg("Failed to get organization from cache")
	}

	org, err = s.orgRepo.GetByID(ctx, orgID)
	if err != nil {
		log.Warn().Err(err).Str("org_id", orgID.String()).Msg("Failed to resolve organization address")
		return nil
	}

	if err := s.cache.SetOrganization(ctx, org); err != nil {
		log.Warn().Err(err).Msg("Failed to cache organization")
	}

	return org.Address
}

// publishEvent pushes a custody event to the ERP queue, best-effort with
// retry, off the request path
func (s *custodyService) publishEvent(shipment *models.Shipment, action models.LogAction, actorOrgID uuid.UUID) {
	if s.messageBus == nil {
		return
	}

	event := CustodyEvent{
		ShipmentID:   shipment.ID,
		BatchID:      shipment.BatchID,
		Action:       action,
		ActorOrgID:   actorOrgID,
		TrackingCode: shipment.TrackingCode,
		Timestamp:    time.Now(),
	}

	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := messaging.RetryWithBackoff(pubCtx, func() error {
			return s.messageBus.PublishMessage(pubCtx, event, s.custodyQueue)
		}, 3)
		if err != nil {
			log.Error().
				Err(err).
				Str("shipment_id", shipment.ID.String()).
				Str("action", string(action)).
				Msg("Failed to publish custody event")
		}
	}()
}

// mapReserveError converts batch ledger errors to the domain taxonomy
func mapReserveError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return NewNotFoundError("Batch not found")
	case errors.Is(err, repository.ErrBatchInactive):
		return NewInvalidStateError("Batch is inactive")
	case errors.Is(err, repository.ErrBatchExpired):
		return NewInvalidStateError("Batch has expired")
	case errors.Is(err, repository.ErrInsufficientQuantity):
		return NewInsufficientQuantityError("Insufficient remaining quantity in batch")
	case errors.Is(err, repository.ErrDuplicateKey):
		return NewConflictError("Shipment already exists")
	default:
		return NewInternalError(err.Error())
	}
}
