package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/docubot-ai/docubot/cmd/docubot-ingest/ui"
	"github.com/docubot-ai/docubot/internal/config"
	"github.com/docubot-ai/docubot/internal/docapi"
	"github.com/docubot-ai/docubot/internal/ingest"
	"github.com/docubot-ai/docubot/internal/llm"
	"github.com/docubot-ai/docubot/internal/observability"
	"github.com/docubot-ai/docubot/internal/partition"
)

var (
	digestPDFPath  string
	digestImageDir string
	digestNoTables bool
)

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Digest a PDF and chat about its contents",
	Long: `Partition a PDF into typed content elements, enrich the text with
tables recovered from exported table images, and open an interactive
question-answering session over the result.`,
	RunE: runDigest,
}

func init() {
	digestCmd.Flags().StringVarP(&digestPDFPath, "pdf", "p", "", "Path to PDF file (required)")
	digestCmd.Flags().StringVar(&digestImageDir, "image-dir", "", "Directory for exported table images (defaults to config)")
	digestCmd.Flags().BoolVar(&digestNoTables, "no-tables", false, "Skip table-image enrichment even when a credential is set")
	digestCmd.MarkFlagRequired("pdf")
	rootCmd.AddCommand(digestCmd)
}

func runDigest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ui.InitUI(noColor, verbose)
	logger := newCLILogger(cfg)

	if cfg.LLM.APIKey == "" {
		return fmt.Errorf("OPENROUTER_API_KEY is required for the question-answering session")
	}

	if digestImageDir != "" {
		cfg.Ingest.ImageDir = digestImageDir
	}

	ui.Section("Document Digest")
	ui.Info("PDF file: %s", digestPDFPath)

	tables, err := buildTableExtractor(cfg, logger)
	if err != nil {
		return err
	}
	if digestNoTables {
		tables = nil
	}
	if tables == nil {
		ui.Warning("Table-image enrichment disabled, using prose text only")
	}

	digester := ingest.NewDigester(partition.NewPartitioner(), tables, ingest.DigestConfig{
		ImageDir:        cfg.Ingest.ImageDir,
		MaxContextChars: cfg.Ingest.MaxContextChars,
		Languages:       cfg.Ingest.Languages,
	}, logger)

	spin := ui.NewSpinner("Partitioning document...")
	spin.Start()
	start := time.Now()

	digestCtx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
	digest, err := digester.Digest(digestCtx, digestPDFPath)
	cancel()
	spin.Stop()

	if err != nil {
		return fmt.Errorf("digest failed: %w", err)
	}

	ui.Success("Document digested in %s", ui.FormatDuration(time.Since(start)))
	ui.Table([]string{"Metric", "Value"}, [][]string{
		{"Text blocks", fmt.Sprintf("%d", digest.TextBlockCount)},
		{"Tables", fmt.Sprintf("%d", digest.TableCount)},
		{"Context length", fmt.Sprintf("%d chars", len([]rune(digest.CombinedText)))},
		{"Truncated", fmt.Sprintf("%t", digest.Truncated)},
	})

	llmClient, err := llm.NewClient(llm.Config{
		APIKey:    cfg.LLM.APIKey,
		BaseURL:   cfg.LLM.BaseURL,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
		Timeout:   cfg.LLM.Timeout,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("create language-model client: %w", err)
	}

	ui.Newline()
	ui.Message("Model: %s", llmClient.Model())

	loop := ingest.NewQALoop(llmClient, llm.NewPromptBuilder(cfg.LLM.SystemRole), digest, os.Stdin, os.Stdout, logger)
	return loop.Run(cmd.Context())
}

// buildTableExtractor wires the table processor when the
// document-understanding credential is configured. A missing
// credential returns nil, which disables enrichment.
func buildTableExtractor(cfg *config.Config, logger *observability.Logger) (ingest.TableTextExtractor, error) {
	if !cfg.TableProcessingEnabled() {
		return nil, nil
	}

	client, err := docapi.NewClient(docapi.Config{
		APIKey:    cfg.DocAPI.APIKey,
		BaseURL:   cfg.DocAPI.BaseURL,
		Timeout:   cfg.DocAPI.Timeout,
		Languages: cfg.Ingest.Languages,
	})
	if err != nil {
		return nil, fmt.Errorf("create document-understanding client: %w", err)
	}

	var bar *ui.ProgressBar
	return ingest.NewTableProcessor(client, ingest.TableProcessorConfig{
		OutputDir: cfg.Ingest.TablesDir,
		Logger:    logger,
		OnProgress: func(done, total int) {
			if total == 0 {
				return
			}
			if bar == nil {
				bar = ui.NewProgressBar(int64(total), "Processing table images")
			}
			bar.Set(int64(done))
			if done >= total {
				bar.Finish()
			}
		},
	}), nil
}

// newCLILogger builds the logger for CLI runs. Verbose mode force
// enables debug output.
func newCLILogger(cfg *config.Config) *observability.Logger {
	level := cfg.Observability.LogLevel
	if verbose {
		level = "debug"
	}
	return observability.NewLogger(observability.LogConfig{
		Level:       level,
		Format:      cfg.Observability.LogFormat,
		ServiceName: "docubot-ingest",
	})
}
