package cmd

import (
	"errors"

	"github.com/jjenkins/lawtrack/internal/service"
	"github.com/jjenkins/lawtrack/internal/store"
	"github.com/spf13/cobra"
)

var enrichLimit int

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Generate AI summaries for pending change events",
	Long: `Enrich selects change events that have comparable old/new article content
and no summary yet, newest collection date first, and asks the configured
Ollama model for an importance rating, a summary and an action checklist.
Each record is saved on its own; a bad model answer only skips that record.`,
	RunE: runEnrich,
}

func init() {
	rootCmd.AddCommand(enrichCmd)
	enrichCmd.Flags().IntVarP(&enrichLimit, "limit", "n", 0, "Maximum records to process (default enrichment.batch_size)")
}

func runEnrich(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	if enrichLimit < 0 {
		return errors.New("--limit must not be negative")
	}

	ctx, cancel := signalContext(log)
	defer cancel()

	db, err := openDB(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := store.NewPostgresStore(db)
	generator := service.NewGenerationClient(cfg.Generation, log)
	enricher := service.NewEnricher(repo, generator, cfg.Enrichment.BatchSize, log)

	report, err := enricher.EnrichBatch(ctx, enrichLimit)
	if err != nil {
		if ctx.Err() != nil {
			log.Error("Enrichment cancelled")
			return ctx.Err()
		}
		log.Errorf("Enrichment failed: %v", err)
		return err
	}

	log.Info("")
	log.Info("=== Enrichment Summary ===")
	log.Infof("Selected:        %d", report.Selected)
	log.Infof("Enriched:        %d", report.Enriched)
	log.Infof("Skipped:         %d", report.Skipped)
	log.Infof("Failed:          %d", report.Failed)
	log.Infof("Elapsed:         %.2fs (%.2fs per record)", report.ElapsedSeconds, report.AverageSeconds)
	return nil
}
