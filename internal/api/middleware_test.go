package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/KejDhruv-Pharbit/Pharbit/internal/models"
	"github.com/KejDhruv-Pharbit/Pharbit/internal/repository"
)

type MockOrganizationRepository struct {
	mock.Mock
}

func (m *MockOrganizationRepository) Create(ctx context.Context, org *models.Organization) (*models.Organization, error) {
	args := m.Called(ctx, org)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Organization), args.Error(1)
}

func (m *MockOrganizationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Organization), args.Error(1)
}

func (m *MockOrganizationRepository) GetByAPIKey(ctx context.Context, apiKey string) (*models.Organization, error) {
	args := m.Called(ctx, apiKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Organization), args.Error(1)
}

func setupAuthRouter(orgRepo repository.OrganizationRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(APIKeyAuth(orgRepo))
	router.GET("/whoami", func(c *gin.Context) {
		org, err := GetOrganizationFromContext(c)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": org.ID})
	})
	return router
}

func TestAPIKeyAuthMissingKey(t *testing.T) {
	router := setupAuthRouter(new(MockOrganizationRepository))

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIKeyAuthUnknownKey(t *testing.T) {
	orgRepo := new(MockOrganizationRepository)
	orgRepo.On("GetByAPIKey", mock.Anything, "bad-key").Return(nil, repository.ErrNotFound)

	router := setupAuthRouter(orgRepo)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-API-Key", "bad-key")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIKeyAuthValidKey(t *testing.T) {
	org := &models.Organization{ID: uuid.New(), Role: models.DistributorRole, Active: true}
	orgRepo := new(MockOrganizationRepository)
	orgRepo.On("GetByAPIKey", mock.Anything, "good-key").Return(org, nil)

	router := setupAuthRouter(orgRepo)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-API-Key", "good-key")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	orgRepo.AssertExpectations(t)
}
