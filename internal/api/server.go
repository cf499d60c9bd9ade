package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/KejDhruv-Pharbit/Pharbit/config"
	"github.com/KejDhruv-Pharbit/Pharbit/internal/metrics"
	"github.com/KejDhruv-Pharbit/Pharbit/internal/repository"
	"github.com/KejDhruv-Pharbit/Pharbit/internal/service"
	"github.com/KejDhruv-Pharbit/Pharbit/internal/tracing"
)

// Server represents the HTTP server
type Server struct {
	config          *config.Config
	router          *gin.Engine
	httpServer      *http.Server
	custodyService  service.CustodyService
	batchService    service.BatchService
	medicineService service.MedicineService
	orgService      service.OrganizationService
	orgRepo         repository.OrganizationRepository
	collector       *metrics.Metrics
	tracer          tracing.Tracer
}

// NewServer creates a new HTTP server
func NewServer(
	cfg *config.Config,
	custodyService service.CustodyService,
	batchService service.BatchService,
	medicineService service.MedicineService,
	orgService service.OrganizationService,
	orgRepo repository.OrganizationRepository,
	collector *metrics.Metrics,
	tracer tracing.Tracer,
) *Server {
	server := &Server{
		config:          cfg,
		custodyService:  custodyService,
		batchService:    batchService,
		medicineService: medicineService,
		orgService:      orgService,
		orgRepo:         orgRepo,
		collector:       collector,
		tracer:          tracer,
	}

	server.router = server.setupRouter()

	server.httpServer = &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      server.router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	return server
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter() *gin.Engine {
	if s.config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger())

	if app := s.tracer.Application(); app != nil {
		router.Use(nrgin.Middleware(app))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.collector.GetSnapshot())
	})

	v1 := router.Group("/api/v1")
	v1.Use(APIKeyAuth(s.orgRepo))

	NewShipmentHandler(s.custodyService, s.tracer).RegisterRoutes(v1)
	NewBatchHandler(s.batchService).RegisterRoutes(v1)
	NewMedicineHandler(s.medicineService).RegisterRoutes(v1)
	NewOrganizationHandler(s.orgService).RegisterRoutes(v1)

	return router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("address", s.config.Server.Address).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server error")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}

	log.Info().Msg("HTTP server shut down successfully")
	return nil
}
