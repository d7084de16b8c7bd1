package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jjenkins/lawtrack/internal/service"
	"github.com/jjenkins/lawtrack/internal/store"
	"github.com/spf13/cobra"
)

var (
	ingestDate      string
	ingestStart     string
	ingestEnd       string
	ingestYesterday bool
	ingestInitial   bool
	ingestDryRun    bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest law changes from the NLIC registry",
	Long: `Ingest downloads the change history the NLIC registry recorded for one or
more collection dates and stores laws, change events and old/new article
content in PostgreSQL. Each date is committed as a single transaction and
re-running a date is a no-op for changes already stored.

Examples:
  # Ingest yesterday (the default)
  ./lawtrack ingest

  # Ingest a specific date
  ./lawtrack ingest --date 2024-03-01

  # Ingest an inclusive date range
  ./lawtrack ingest --start 2024-03-01 --end 2024-03-31

  # Backfill everything from 1990-01-01 (or --start) through yesterday
  ./lawtrack ingest --initial

  # Fetch from the registry without touching the database
  ./lawtrack ingest --date 2024-03-01 --dry-run`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVarP(&ingestDate, "date", "d", "", "Collection date to ingest (YYYY-MM-DD)")
	ingestCmd.Flags().StringVar(&ingestStart, "start", "", "First date of a range (YYYY-MM-DD)")
	ingestCmd.Flags().StringVar(&ingestEnd, "end", "", "Last date of a range, inclusive (YYYY-MM-DD)")
	ingestCmd.Flags().BoolVar(&ingestYesterday, "yesterday", false, "Ingest the previous calendar day")
	ingestCmd.Flags().BoolVar(&ingestInitial, "initial", false, "Backfill from --start (default 1990-01-01) through yesterday")
	ingestCmd.Flags().BoolVar(&ingestDryRun, "dry-run", false, "Store results in memory only and print the counts")
	ingestCmd.MarkFlagsMutuallyExclusive("date", "start")
	ingestCmd.MarkFlagsMutuallyExclusive("date", "yesterday")
	ingestCmd.MarkFlagsMutuallyExclusive("date", "initial")
	ingestCmd.MarkFlagsMutuallyExclusive("yesterday", "initial")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	run, err := ingestRun()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(log)
	defer cancel()

	var repo store.Repository
	if ingestDryRun {
		log.Info("Dry run: results are kept in memory")
		repo = store.NewMemoryStore()
	} else {
		db, err := openDB(cfg, log)
		if err != nil {
			return err
		}
		defer db.Close()
		repo = store.NewPostgresStore(db)
	}

	client := service.NewRegistryClient(cfg.Registry, log)
	importer := service.NewImporter(client, repo, cfg.Registry.PageSize, log)

	stats, err := run(ctx, importer)
	importer.PrintSummary(stats)

	if ingestDryRun {
		if totals, terr := repo.Totals(ctx); terr == nil {
			log.Infof("Dry run stored %d laws, %d change events, %d old/new infos, %d article diffs",
				totals.Laws, totals.ChangeEvents, totals.OldNewInfos, totals.ArticleDiffs)
		}
	}

	if err != nil {
		if ctx.Err() != nil {
			log.Error("Ingest cancelled")
			return ctx.Err()
		}
		log.Errorf("Ingest failed: %v", err)
		return err
	}
	return nil
}

type ingestFunc func(ctx context.Context, importer *service.Importer) (*service.IngestStats, error)

// ingestRun validates the date flags and picks the ingestion mode
func ingestRun() (ingestFunc, error) {
	parse := func(flag, value string) (time.Time, error) {
		d, err := service.ParseDate(value)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --%s: %w", flag, err)
		}
		return d, nil
	}

	switch {
	case ingestInitial:
		var start time.Time
		if ingestStart != "" {
			d, err := parse("start", ingestStart)
			if err != nil {
				return nil, err
			}
			start = d
		}
		return func(ctx context.Context, importer *service.Importer) (*service.IngestStats, error) {
			return importer.IngestInitial(ctx, start)
		}, nil
	case ingestStart != "" || ingestEnd != "":
		if ingestStart == "" || ingestEnd == "" {
			return nil, errors.New("--start and --end must be given together")
		}
		start, err := parse("start", ingestStart)
		if err != nil {
			return nil, err
		}
		end, err := parse("end", ingestEnd)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, importer *service.Importer) (*service.IngestStats, error) {
			return importer.IngestRange(ctx, start, end)
		}, nil
	case ingestDate != "":
		date, err := parse("date", ingestDate)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, importer *service.Importer) (*service.IngestStats, error) {
			return importer.IngestDate(ctx, date)
		}, nil
	default:
		return func(ctx context.Context, importer *service.Importer) (*service.IngestStats, error) {
			return importer.IngestYesterday(ctx)
		}, nil
	}
}
