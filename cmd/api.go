package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/KejDhruv-Pharbit/Pharbit/internal/api"
	"github.com/KejDhruv-Pharbit/Pharbit/internal/cache"
	"github.com/KejDhruv-Pharbit/Pharbit/internal/db"
	"github.com/KejDhruv-Pharbit/Pharbit/internal/messaging"
	"github.com/KejDhruv-Pharbit/Pharbit/internal/metrics"
	"github.com/KejDhruv-Pharbit/Pharbit/internal/repository"
	"github.com/KejDhruv-Pharbit/Pharbit/internal/search"
	"github.com/KejDhruv-Pharbit/Pharbit/internal/service"
	"github.com/KejDhruv-Pharbit/Pharbit/internal/tracing"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long:  `Start the HTTP API server handling batch, medicine, and shipment custody requests`,
	RunE:  runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	database, err := db.Connect(&cfg.DB)
	if err != nil {
		return err
	}
	if err := db.Migrate(database); err != nil {
		return err
	}

	redisCache, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
		disabled := cfg.Redis
		disabled.Enabled = false
		redisCache, _ = cache.NewRedisClient(&disabled)
	}

	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		noTracing := cfg.Tracing
		noTracing.Enabled = false
		tracer, _ = tracing.NewTracer(noTracing)
	}

	elasticClient, err := search.NewElasticClient(cfg.Elastic)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search functionality")
	}

	messageBus, err := messaging.NewClient(&cfg.Azure)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize message bus, continuing without event publishing")
	}

	collector := metrics.NewMetrics()

	batchRepo := repository.NewBatchRepository(database)
	shipmentRepo := repository.NewShipmentRepository(database)
	logRepo := repository.NewShipmentLogRepository(database)
	orgRepo := repository.NewOrganizationRepository(database)
	medicineRepo := repository.NewMedicineRepository(database)

	custodyService := service.NewCustodyService(
		database, batchRepo, shipmentRepo, logRepo, orgRepo,
		redisCache, elasticClient, messageBus, collector, cfg.Azure.CustodyQueue,
	)
	batchService := service.NewBatchService(batchRepo, medicineRepo, collector)
	medicineService := service.NewMedicineService(medicineRepo)
	orgService := service.NewOrganizationService(orgRepo)

	server := api.NewServer(&cfg, custodyService, batchService, medicineService, orgService, orgRepo, collector, tracer)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start()
	})
	g.Go(func() error {
		<-gCtx.Done()
		if err := server.Shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
		if messageBus != nil {
			if err := messageBus.Close(context.Background()); err != nil {
				log.Error().Err(err).Msg("Message bus close error")
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info().Msg("API server stopped")
	return nil
}
