package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/jjenkins/lawtrack/internal/handlers"
	"github.com/jjenkins/lawtrack/internal/scheduler"
	"github.com/jjenkins/lawtrack/internal/service"
	"github.com/jjenkins/lawtrack/internal/store"
	"github.com/spf13/cobra"
)

var (
	port          string
	withScheduler bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the lawtrack admin server",
	Long: `Start the HTTP server exposing the admin triggers (fetch-date,
fetch-yesterday, init-changes, enrich), stored totals, /healthz and
Prometheus /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()

		if port == "" {
			port = cfg.Server.Port
		}

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

		if withScheduler && cfg.Schedule.Enabled {
			sched, err := scheduler.New(cfg.Schedule.Cron, importer, enricher, cfg.Enrichment.BatchSize, log)
			if err != nil {
				return fmt.Errorf("failed to create scheduler: %w", err)
			}
			sched.Start()
			defer sched.Stop()
		}

		app := fiber.New(fiber.Config{
			AppName:      "lawtrack",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 0,
		})

		app.Use(logger.New())

		handlers.Register(app, handlers.Deps{
			Ingester: importer,
			Enricher: enricher,
			Totals:   service.NewMetricsService(repo),
			Logger:   log,
		})

		go func() {
			<-ctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
			defer done()
			app.ShutdownWithContext(shutdownCtx)
		}()

		log.Infof("Starting server on :%s", port)
		if err := app.Listen(":" + port); err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&port, "port", "p", "", "Port to run the server on (default server.port)")
	serveCmd.Flags().BoolVar(&withScheduler, "with-scheduler", false, "Also run the daily schedule inside the server")
}
