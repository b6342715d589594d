package ingest

import (
	"context"
	"strings"

	"github.com/docubot-ai/docubot/internal/domain"
	"github.com/docubot-ai/docubot/internal/observability"
	"github.com/docubot-ai/docubot/internal/partition"
)

const (
	// DefaultMaxContextChars bounds the assembled document context.
	DefaultMaxContextChars = 12000

	// tableSectionHeading introduces enriched table text in the
	// combined context.
	tableSectionHeading = "TABLES FROM DOCUMENT IMAGES:"
)

// Partitioner splits a PDF into typed content elements.
// Satisfied by partition.Partitioner.
type Partitioner interface {
	Partition(ctx context.Context, pdfPath string, opts partition.Options) ([]partition.Element, error)
}

// TableTextExtractor enriches a digest with text recovered from table
// images. Satisfied by TableProcessor.
type TableTextExtractor interface {
	Process(ctx context.Context, imageDir string) (string, *TableRunStats, error)
}

// DigestConfig holds digest pipeline settings.
type DigestConfig struct {
	ImageDir        string
	MaxContextChars int
	Languages       []string
}

// Digest is the assembled question-answering context for one document.
type Digest struct {
	SourceID       string
	CombinedText   string
	TextBlockCount int
	TableCount     int
	Truncated      bool
}

// Digester runs the digest pipeline: partition the PDF, collect prose
// text, optionally fold in table text recovered from exported images,
// and truncate the result to the context bound.
type Digester struct {
	partitioner Partitioner
	tables      TableTextExtractor
	logger      *observability.Logger
	cfg         DigestConfig
}

// NewDigester creates a Digester. A nil tables extractor disables the
// enrichment stage; the digest then carries prose text only.
func NewDigester(partitioner Partitioner, tables TableTextExtractor, cfg DigestConfig, logger *observability.Logger) *Digester {
	if logger == nil {
		logger = observability.DefaultLogger()
	}
	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = DefaultMaxContextChars
	}
	return &Digester{
		partitioner: partitioner,
		tables:      tables,
		logger:      logger.WithComponent("digest"),
		cfg:         cfg,
	}
}

// Digest builds the combined document context for pdfPath.
// Partitioning failure is fatal; table enrichment failure only
// degrades the digest to prose text.
func (d *Digester) Digest(ctx context.Context, pdfPath string) (*Digest, error) {
	opts := partition.Options{
		Strategy:            partition.StrategyHiRes,
		InferTableStructure: true,
		Languages:           d.cfg.Languages,
		ExtractImages:       d.tables != nil,
		ImageOutputDir:      d.cfg.ImageDir,
	}

	elements, err := d.partitioner.Partition(ctx, pdfPath, opts)
	if err != nil {
		return nil, domain.PartitionError("Failed to partition document", err)
	}

	var blocks []string
	tableCount := 0
	for _, el := range elements {
		if el.Category == partition.CategoryTable {
			tableCount++
		}
		if !partition.TextCategories[el.Category] {
			continue
		}
		if el.Text != "" {
			blocks = append(blocks, el.Text)
		}
	}
	combined := strings.Join(blocks, "\n")

	digest := &Digest{
		SourceID:       pdfPath,
		TextBlockCount: len(blocks),
		TableCount:     tableCount,
	}

	if d.tables != nil {
		tableText, stats, err := d.tables.Process(ctx, d.cfg.ImageDir)
		if err != nil {
			d.logger.Warn().Err(err).Msg("Table enrichment failed, continuing with prose text only")
		} else {
			// The image pass reads table structure directly and is the
			// more accurate count, but only when it saw any images.
			if stats != nil && stats.ImagesProcessed > 0 {
				digest.TableCount = stats.TablesFound
			}
			if tableText != "" {
				combined = combined + "\n\n" + tableSectionHeading + "\n" + tableText
			}
		}
	}

	if runes := []rune(combined); len(runes) > d.cfg.MaxContextChars {
		d.logger.Warn().
			Int("length", len(runes)).
			Int("limit", d.cfg.MaxContextChars).
			Msg("Document context exceeds limit, truncating")
		combined = string(runes[:d.cfg.MaxContextChars])
		digest.Truncated = true
	}

	digest.CombinedText = combined

	d.logger.Info().
		Str("source", pdfPath).
		Int("text_blocks", digest.TextBlockCount).
		Int("tables", digest.TableCount).
		Bool("truncated", digest.Truncated).
		Msg("Document digest assembled")

	return digest, nil
}
