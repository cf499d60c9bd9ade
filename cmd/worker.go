package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/KejDhruv-Pharbit/Pharbit/internal/cache"
	"github.com/KejDhruv-Pharbit/Pharbit/internal/db"
	"github.com/KejDhruv-Pharbit/Pharbit/internal/metrics"
	"github.com/KejDhruv-Pharbit/Pharbit/internal/repository"
	"github.com/KejDhruv-Pharbit/Pharbit/internal/search"
	"github.com/KejDhruv-Pharbit/Pharbit/internal/service"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the background worker that reconciles the shipment-log search index and refreshes shipment gauges`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
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

	elasticClient, err := search.NewElasticClient(cfg.Elastic)
	if err != nil {
		return errors.Wrap(err, "failed to initialize Elasticsearch client")
	}

	disabledRedis := cfg.Redis
	disabledRedis.Enabled = false
	noCache, _ := cache.NewRedisClient(&disabledRedis)

	collector := metrics.NewMetrics()

	batchRepo := repository.NewBatchRepository(database)
	shipmentRepo := repository.NewShipmentRepository(database)
	logRepo := repository.NewShipmentLogRepository(database)
	orgRepo := repository.NewOrganizationRepository(database)

	custodyService := service.NewCustodyService(
		database, batchRepo, shipmentRepo, logRepo, orgRepo,
		noCache, elasticClient, nil, collector, cfg.Azure.CustodyQueue,
	)

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return errors.Wrap(err, "failed to create scheduler")
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(cfg.Worker.ReconcileInterval),
		gocron.NewTask(func() {
			indexed, err := custodyService.ReconcileLogIndex(ctx, cfg.Worker.ReconcileBatch)
			if err != nil {
				log.Error().Err(err).Msg("Shipment log reconciliation failed")
				return
			}
			if indexed > 0 {
				log.Info().Int("indexed", indexed).Msg("Reconciled shipment log index")
			}
		}),
	)
	if err != nil {
		return errors.Wrap(err, "failed to schedule reconciliation job")
	}

	scheduler.Start()
	log.Info().
		Dur("interval", cfg.Worker.ReconcileInterval).
		Msg("Worker started")

	<-ctx.Done()

	if err := scheduler.Shutdown(); err != nil {
		log.Error().Err(err).Msg("Scheduler shutdown error")
	}

	log.Info().Msg("Worker stopped")
	return nil
}
