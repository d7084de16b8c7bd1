package cmd

import (
	"fmt"

	"github.com/jjenkins/lawtrack/internal/scheduler"
	"github.com/jjenkins/lawtrack/internal/service"
	"github.com/jjenkins/lawtrack/internal/store"
	"github.com/spf13/cobra"
)

var scheduleRunNow bool

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the daily ingest and enrichment schedule",
	Long: `Schedule runs in the foreground and, at every tick of schedule.cron,
ingests yesterday's changes and then enriches one batch of pending events.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()

		ctx, cancel := signalContext(log)
		defer cancel()

		db, err := openDB(cfg, log)
		if err != nil {
			return err
		}
		defer db.Close()

		repo := store.NewPostgresStore(db)
		importer := service.NewImporter(service.NewRegistryClient(cfg.Registry, log), repo, cfg.Registry.PageSize, log)
		enricher := service.NewEnricher(repo, service.NewGenerationClient(cfg.Generation, log), cfg.Enrichment.BatchSize, log)
		metrics := service.NewMetricsService(repo)

		sched, err := scheduler.New(cfg.Schedule.Cron, importer, enricher, cfg.Enrichment.BatchSize, log)
		if err != nil {
			return fmt.Errorf("failed to create scheduler: %w", err)
		}

		if scheduleRunNow {
			if _, err := sched.RunOnce(ctx); err != nil {
				log.Errorf("Immediate run failed: %v", err)
			}
			if totals, err := metrics.Refresh(ctx); err == nil {
				log.Infof("Stored: %d laws, %d change events (%d enriched, %d pending)",
					totals.Laws, totals.ChangeEvents, totals.EnrichedEvents, totals.PendingEnrichments)
			}
		}

		if !cfg.Schedule.Enabled {
			log.Info("schedule.enabled is false, exiting")
			return nil
		}

		sched.Start()
		<-ctx.Done()
		sched.Stop()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.Flags().BoolVar(&scheduleRunNow, "now", false, "Run once immediately before waiting for the schedule")
}
