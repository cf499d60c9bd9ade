package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/KejDhruv-Pharbit/Pharbit/config"
	"github.com/KejDhruv-Pharbit/Pharbit/internal/models"
	"github.com/KejDhruv-Pharbit/Pharbit/internal/service"
	"github.com/KejDhruv-Pharbit/Pharbit/internal/tracing"
)

// MockCustodyService mocks the custody service for handler tests
type MockCustodyService struct {
	mock.Mock
}

func (m *MockCustodyService) CreateShipment(ctx context.Context, req *service.CreateShipmentRequest) (*models.Shipment, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Shipment), args.Error(1)
}

func (m *MockCustodyService) ForwardShipment(ctx context.Context, req *service.ForwardShipmentRequest) (*models.Shipment, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Shipment), args.Error(1)
}

func (m *MockCustodyService) ReceiveShipment(ctx context.Context, trackingCode string, callerOrgID uuid.UUID) (*service.ScanResult, error) {
	args := m.Called(ctx, trackingCode, callerOrgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ScanResult), args.Error(1)
}

func (m *MockCustodyService) RedeemShipment(ctx context.Context, req *service.RedeemShipmentRequest) (*models.Shipment, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Shipment), args.Error(1)
}

func (m *MockCustodyService) GetShipment(ctx context.Context, id uuid.UUID) (*models.Shipment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Shipment), args.Error(1)
}

func (m *MockCustodyService) ListShipments(ctx context.Context, view service.ShipmentView, orgID uuid.UUID) ([]*models.Shipment, error) {
	args := m.Called(ctx, view, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Shipment), args.Error(1)
}

func (m *MockCustodyService) GetShipmentLogs(ctx context.Context, shipmentID uuid.UUID) ([]*models.ShipmentLog, error) {
	args := m.Called(ctx, shipmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ShipmentLog), args.Error(1)
}

func (m *MockCustodyService) ReconcileLogIndex(ctx context.Context, limit int) (int, error) {
	args := m.Called(ctx, limit)
	return args.Int(0), args.Error(1)
}

func setupShipmentRouter(svc service.CustodyService, org *models.Organization) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	group := router.Group("/api/v1")
	group.Use(func(c *gin.Context) {
		c.Set(OrganizationContextKey, org)
		c.Next()
	})

	tracer, _ := tracing.NewTracer(config.TracingConfig{Enabled: false})
	NewShipmentHandler(svc, tracer).RegisterRoutes(group)
	return router
}

func TestCreateShipmentHandler(t *testing.T) {
	org := &models.Organization{ID: uuid.New(), Role: models.ManufacturerRole, Active: true}
	mockSvc := new(MockCustodyService)

	created := &models.Shipment{
		ID:           uuid.New(),
		TrackingCode: uuid.New().String(),
		Status:       models.ShipmentCreated,
	}
	mockSvc.On("CreateShipment", mock.Anything, mock.AnythingOfType("*service.CreateShipmentRequest")).
		Return(created, nil)

	router := setupShipmentRouter(mockSvc, org)

	body, _ := json.Marshal(gin.H{
		"batch_id":           uuid.New().String(),
		"destination_org_id": uuid.New().String(),
		"medicines_amount":   300,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/shipments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Success      bool            `json:"success"`
		TrackingCode string          `json:"tracking_code"`
		Data         models.Shipment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, created.ID, resp.Data.ID)
	require.Equal(t, created.TrackingCode, resp.TrackingCode)

	// The caller's identity comes from the middleware, never the body
	captured := mockSvc.Calls[0].Arguments.Get(1).(*service.CreateShipmentRequest)
	require.Equal(t, org.ID, captured.CallerOrgID)
}

func TestCreateShipmentHandlerMissingBody(t *testing.T) {
	org := &models.Organization{ID: uuid.New(), Active: true}
	mockSvc := new(MockCustodyService)
	router := setupShipmentRouter(mockSvc, org)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/shipments", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	mockSvc.AssertNotCalled(t, "CreateShipment", mock.Anything, mock.Anything)
}

func TestScanShipmentHandlerRedeemSignal(t *testing.T) {
	org := &models.Organization{ID: uuid.New(), Role: models.PharmacyRole, Active: true}
	mockSvc := new(MockCustodyService)

	code := uuid.New().String()
	mockSvc.On("ReceiveShipment", mock.Anything, code, org.ID).Return(&service.ScanResult{
		Action:   service.ScanActionRedeem,
		Shipment: &models.Shipment{ID: uuid.New(), TrackingCode: code},
	}, nil)

	router := setupShipmentRouter(mockSvc, org)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/shipments/scan/"+code, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool   `json:"success"`
		Action  string `json:"action"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, "REDEEM", resp.Action)
}

func TestForwardShipmentHandler(t *testing.T) {
	org := &models.Organization{ID: uuid.New(), Role: models.DistributorRole, Active: true}
	mockSvc := new(MockCustodyService)

	rotated := uuid.New().String()
	next := uuid.New()
	mockSvc.On("ForwardShipment", mock.Anything, mock.AnythingOfType("*service.ForwardShipmentRequest")).
		Return(&models.Shipment{
			ID:                      uuid.New(),
			TrackingCode:            rotated,
			NextExpectedHolderOrgID: &next,
			Status:                  models.ShipmentForwarded,
		}, nil)

	router := setupShipmentRouter(mockSvc, org)

	body, _ := json.Marshal(gin.H{
		"shipment_id":        uuid.New().String(),
		"next_holder_org_id": next.String(),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/shipments/forward", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success         bool   `json:"success"`
		NewTrackingCode string `json:"new_tracking_code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, rotated, resp.NewTrackingCode)
}

func TestForwardShipmentHandlerForbidden(t *testing.T) {
	org := &models.Organization{ID: uuid.New(), Active: true}
	mockSvc := new(MockCustodyService)
	mockSvc.On("ForwardShipment", mock.Anything, mock.Anything).
		Return(nil, service.NewForbiddenError("You are not authorized to forward this shipment"))

	router := setupShipmentRouter(mockSvc, org)

	body, _ := json.Marshal(gin.H{
		"shipment_id":        uuid.New().String(),
		"next_holder_org_id": uuid.New().String(),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/shipments/forward", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Success)
	require.Equal(t, "FORBIDDEN", resp.Code)
}

func TestGetShipmentHandlerInvalidID(t *testing.T) {
	org := &models.Organization{ID: uuid.New(), Active: true}
	mockSvc := new(MockCustodyService)
	router := setupShipmentRouter(mockSvc, org)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/shipments/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
