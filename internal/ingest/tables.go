// Package ingest implements the PDF digest pipeline: partitioning,
// table-image enrichment, context assembly, and the interactive
// question-answering loop.
package ingest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/docubot-ai/docubot/internal/domain"
	"github.com/docubot-ai/docubot/internal/observability"
	"github.com/docubot-ai/docubot/internal/partition"
)

// tableJSONSuffix is appended to the image stem for per-image output files.
const tableJSONSuffix = "_tables.json"

// ImagePartitioner converts one image into structured content elements.
// Satisfied by docapi.Client.
type ImagePartitioner interface {
	PartitionImage(ctx context.Context, imagePath string) ([]partition.Element, error)
}

// TableProcessor extracts table text from a directory of table images.
// Each image is one blocking external call; a failing image is logged
// and skipped so the remaining images still process.
type TableProcessor struct {
	client     ImagePartitioner
	outputDir  string
	logger     *observability.Logger
	onProgress func(done, total int)
}

// TableProcessorConfig holds table processor settings.
type TableProcessorConfig struct {
	OutputDir string
	Logger    *observability.Logger
	// OnProgress, when set, is called after each directory entry is
	// handled. Used by the CLI to drive a progress bar.
	OnProgress func(done, total int)
}

// TableRunStats summarizes one processing run.
type TableRunStats struct {
	ImagesProcessed int
	ImagesFailed    int
	TablesFound     int
}

// NewTableProcessor creates a new TableProcessor.
func NewTableProcessor(client ImagePartitioner, cfg TableProcessorConfig) *TableProcessor {
	logger := cfg.Logger
	if logger == nil {
		logger = observability.DefaultLogger()
	}
	return &TableProcessor{
		client:     client,
		outputDir:  cfg.OutputDir,
		logger:     logger.WithComponent("tables"),
		onProgress: cfg.OnProgress,
	}
}

// Process handles every image in imageDir in directory-listing order
// and returns the newline-joined text of all tables found. Non-image
// files are skipped silently. No images and no tables are both
// non-error conditions yielding an empty string.
//
// For each successfully processed image the kept Table elements are
// written as a JSON array to <image-stem>_tables.json in the output
// directory, overwriting any prior file. Unchanged input produces
// byte-identical output.
func (p *TableProcessor) Process(ctx context.Context, imageDir string) (string, *TableRunStats, error) {
	entries, err := os.ReadDir(imageDir)
	if err != nil {
		return "", nil, domain.IOError("Failed to read image directory", err)
	}

	if err := os.MkdirAll(p.outputDir, 0o755); err != nil {
		return "", nil, domain.IOError("Failed to create tables output directory", err)
	}

	stats := &TableRunStats{}
	var tableTexts []string

	total := len(entries)
	for i, entry := range entries {
		if p.onProgress != nil {
			p.onProgress(i, total)
		}
		if entry.IsDir() || !isImageFile(entry.Name()) {
			continue
		}

		imagePath := filepath.Join(imageDir, entry.Name())

		elements, err := p.client.PartitionImage(ctx, imagePath)
		if err != nil {
			// Per-item isolation: one bad image never aborts the run.
			p.logger.Warn().Str("image", entry.Name()).Err(err).Msg("Skipping image after API failure")
			stats.ImagesFailed++
			continue
		}

		tables := filterTables(elements)
		if err := p.writeTableJSON(entry.Name(), tables); err != nil {
			p.logger.Warn().Str("image", entry.Name()).Err(err).Msg("Failed to write table JSON")
			stats.ImagesFailed++
			continue
		}

		stats.ImagesProcessed++
		stats.TablesFound += len(tables)

		for _, table := range tables {
			if table.Text != "" {
				tableTexts = append(tableTexts, table.Text)
			}
		}
	}

	if p.onProgress != nil {
		p.onProgress(total, total)
	}

	if stats.ImagesProcessed == 0 && stats.ImagesFailed == 0 {
		p.logger.Info().Str("dir", imageDir).Msg("No table images found")
	}

	return strings.Join(tableTexts, "\n"), stats, nil
}

// writeTableJSON serializes the kept table elements for one image.
func (p *TableProcessor) writeTableJSON(imageName string, tables []partition.Element) error {
	stem := strings.TrimSuffix(imageName, filepath.Ext(imageName))
	outputPath := filepath.Join(p.outputDir, stem+tableJSONSuffix)

	data, err := json.MarshalIndent(tables, "", "  ")
	if err != nil {
		return domain.IOError("Failed to marshal table elements", err)
	}

	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return domain.IOError("Failed to write table JSON file", err)
	}
	return nil
}

// filterTables keeps only elements whose category is Table.
func filterTables(elements []partition.Element) []partition.Element {
	tables := make([]partition.Element, 0, len(elements))
	for _, el := range elements {
		if el.Category == partition.CategoryTable {
			tables = append(tables, el)
		}
	}
	return tables
}

// isImageFile reports whether a filename carries a recognized table
// image extension.
func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return true
	default:
		return false
	}
}
