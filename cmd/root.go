package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "lawtrack",
	// Failures are logged by the commands; usage is only for flag errors.
	SilenceUsage: true,
	Short: "Track Korean law changes and enrich them with AI guidance",
	Long: `lawtrack ingests the daily change history of the National Law Information
Center registry into PostgreSQL and enriches each change with an importance
rating, a summary and an action checklist generated by a local LLM.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Path to a YAML config file")
}
