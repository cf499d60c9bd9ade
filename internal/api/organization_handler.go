package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/KejDhruv-Pharbit/Pharbit/internal/models"
	"github.com/KejDhruv-Pharbit/Pharbit/internal/service"
)

// OrganizationHandler handles organization HTTP requests
type OrganizationHandler struct {
	orgService service.OrganizationService
}

// NewOrganizationHandler creates a new organization handler
func NewOrganizationHandler(orgService service.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{orgService: orgService}
}

// RegisterOrganizationRequest represents an incoming organization registration
type RegisterOrganizationRequest struct {
	Name    string          `json:"name" binding:"required"`
	Role    string          `json:"role" binding:"required"`
	Address json.RawMessage `json:"address"`
}

// RegisterOrganization handles POST /api/v1/organizations. The generated
// API key appears only in this response.
func (h *OrganizationHandler) RegisterOrganization(c *gin.Context) {
	caller, err := GetOrganizationFromContext(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req RegisterOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Invalid organization registration request")
		respondError(c, service.NewMissingFieldError(err.Error()))
		return
	}

	org, err := h.orgService.RegisterOrganization(c.Request.Context(), &service.RegisterOrganizationRequest{
		Name:    req.Name,
		Role:    models.OrganizationRole(req.Role),
		Address: req.Address,
	}, caller)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"api_key": org.APIKey,
		"data":    org,
	})
}

// GetOrganization handles GET /api/v1/organizations/:id
func (h *OrganizationHandler) GetOrganization(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, service.NewMissingFieldError("Invalid organization ID"))
		return
	}

	org, err := h.orgService.GetOrganization(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    org,
	})
}

// RegisterRoutes registers the handler's routes
func (h *OrganizationHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/organizations", h.RegisterOrganization)
	group.GET("/organizations/:id", h.GetOrganization)
}
