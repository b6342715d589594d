package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/docubot-ai/docubot/cmd/docubot-ingest/ui"
	"github.com/docubot-ai/docubot/internal/config"
)

var (
	tablesImageDir  string
	tablesOutputDir string
	tablesShowText  bool
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Extract table text from a directory of table images",
	Long: `Run the table-image processor on its own: send each image in a
directory to the document-understanding API, keep the table elements,
and write one JSON file per image next to the combined table text.`,
	RunE: runTables,
}

func init() {
	tablesCmd.Flags().StringVarP(&tablesImageDir, "images", "i", "", "Directory of table images (required)")
	tablesCmd.Flags().StringVarP(&tablesOutputDir, "output", "o", "", "Directory for table JSON files (defaults to config)")
	tablesCmd.Flags().BoolVar(&tablesShowText, "show-text", false, "Print the combined table text")
	tablesCmd.MarkFlagRequired("images")
	rootCmd.AddCommand(tablesCmd)
}

func runTables(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ui.InitUI(noColor, verbose)
	logger := newCLILogger(cfg)

	if !cfg.TableProcessingEnabled() {
		return fmt.Errorf("UNSTRUCTURED_API_KEY is required for table processing")
	}

	if tablesOutputDir != "" {
		cfg.Ingest.TablesDir = tablesOutputDir
	}

	ui.Section("Table Extraction")
	ui.Info("Image directory: %s", tablesImageDir)
	ui.Info("Output directory: %s", cfg.Ingest.TablesDir)
	ui.Newline()

	processor, err := buildTableExtractor(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
	defer cancel()

	start := time.Now()
	text, stats, err := processor.Process(ctx, tablesImageDir)
	if err != nil {
		return fmt.Errorf("table processing failed: %w", err)
	}

	ui.Success("Finished in %s", ui.FormatDuration(time.Since(start)))
	ui.Table([]string{"Metric", "Value"}, [][]string{
		{"Images processed", fmt.Sprintf("%d", stats.ImagesProcessed)},
		{"Images failed", fmt.Sprintf("%d", stats.ImagesFailed)},
		{"Tables found", fmt.Sprintf("%d", stats.TablesFound)},
	})

	if stats.ImagesFailed > 0 {
		ui.Warning("%d image(s) skipped after API failures", stats.ImagesFailed)
	}

	if tablesShowText {
		ui.Newline()
		if text == "" {
			ui.Message("No table text found.")
		} else {
			ui.Message("%s", text)
		}
	}

	return nil
}
