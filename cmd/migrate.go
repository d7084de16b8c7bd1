package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jjenkins/lawtrack/internal/store"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the lawtrack tables if they do not exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()

		db, err := openDB(cfg, log)
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if err := store.EnsureSchema(ctx, db); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		log.Info("Schema is up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
