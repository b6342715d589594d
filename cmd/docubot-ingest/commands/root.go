// Package commands implements the ingest CLI commands.
package commands

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "docubot-ingest",
	Short: "Docubot ingest - digest PDF documents and chat about them",
	Long: `Docubot ingest partitions PDF documents into typed content elements,
recovers table text from exported table images, and opens an interactive
question-answering session over the assembled document context.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Credentials come from the environment; .env covers local runs.
		_ = godotenv.Load()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
