package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/KejDhruv-Pharbit/Pharbit/internal/service"
)

// MedicineHandler handles medicine HTTP requests
type MedicineHandler struct {
	medicineService service.MedicineService
}

// NewMedicineHandler creates a new medicine handler
func NewMedicineHandler(medicineService service.MedicineService) *MedicineHandler {
	return &MedicineHandler{medicineService: medicineService}
}

// RegisterMedicineRequest represents an incoming medicine registration
type RegisterMedicineRequest struct {
	Name              string `json:"name" binding:"required"`
	BrandName         string `json:"brand_name"`
	Composition       string `json:"composition"`
	DosageForm        string `json:"dosage_form"`
	Strength          string `json:"strength"`
	DrugCode          string `json:"drug_code"`
	HSNCode           string `json:"hsn_code"`
	Category          string `json:"category"`
	StorageConditions string `json:"storage_conditions"`
}

// RegisterMedicine handles POST /api/v1/medicines
func (h *MedicineHandler) RegisterMedicine(c *gin.Context) {
	org, err := GetOrganizationFromContext(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req RegisterMedicineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Invalid medicine registration request")
		respondError(c, service.NewMissingFieldError(err.Error()))
		return
	}

	medicine, err := h.medicineService.RegisterMedicine(c.Request.Context(), &service.RegisterMedicineRequest{
		Name:              req.Name,
		BrandName:         req.BrandName,
		Composition:       req.Composition,
		DosageForm:        req.DosageForm,
		Strength:          req.Strength,
		DrugCode:          req.DrugCode,
		HSNCode:           req.HSNCode,
		Category:          req.Category,
		StorageConditions: req.StorageConditions,
		CallerOrgID:       org.ID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    medicine,
	})
}

// GetMedicine handles GET /api/v1/medicines/:id
func (h *MedicineHandler) GetMedicine(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, service.NewMissingFieldError("Invalid medicine ID"))
		return
	}

	medicine, err := h.medicineService.GetMedicine(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    medicine,
	})
}

// ListMedicines handles GET /api/v1/medicines
func (h *MedicineHandler) ListMedicines(c *gin.Context) {
	org, err := GetOrganizationFromContext(c)
	if err != nil {
		respondError(c, err)
		return
	}

	medicines, err := h.medicineService.ListMedicines(c.Request.Context(), org.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    medicines,
	})
}

// VerifyMedicine handles POST /api/v1/medicines/:id/verify
func (h *MedicineHandler) VerifyMedicine(c *gin.Context) {
	org, err := GetOrganizationFromContext(c)
	if err != nil {
		respondError(c, err)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, service.NewMissingFieldError("Invalid medicine ID"))
		return
	}

	medicine, err := h.medicineService.VerifyMedicine(c.Request.Context(), id, org)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    medicine,
	})
}

// RegisterRoutes registers the handler's routes
func (h *MedicineHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/medicines", h.RegisterMedicine)
	group.GET("/medicines", h.ListMedicines)
	group.GET("/medicines/:id", h.GetMedicine)
	group.POST("/medicines/:id/verify", h.VerifyMedicine)
}
