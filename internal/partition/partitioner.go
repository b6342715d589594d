package partition

import (
	"context"
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/docubot-ai/docubot/internal/domain"
)

// Options mirror the partitioning call of the ingestion pipeline:
// high-resolution strategy, table-structure inference, language hints,
// and table-image extraction into an output directory.
type Options struct {
	Strategy            string
	InferTableStructure bool
	Languages           []string
	ExtractImages       bool
	ImageOutputDir      string
}

// StrategyHiRes renders table pages at high JPEG quality.
const StrategyHiRes = "hi_res"

// Partitioner splits a PDF into typed content elements.
type Partitioner struct{}

// NewPartitioner creates a new Partitioner.
func NewPartitioner() *Partitioner {
	return &Partitioner{}
}

// Partition opens the PDF at pdfPath and returns its content elements
// in document reading order. Tables detected on a page are exported as
// JPEG images named by page and table ordinal when ExtractImages is
// set. Any failure here is fatal to the caller's run: a malformed or
// missing PDF has no partial-document fallback.
func (p *Partitioner) Partition(ctx context.Context, pdfPath string, opts Options) ([]Element, error) {
	if _, err := os.Stat(pdfPath); err != nil {
		return nil, domain.ValidationError("PDF file not found", err)
	}

	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, domain.PartitionError("Failed to open PDF", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount == 0 {
		return nil, domain.ValidationError("PDF has no pages", nil)
	}

	if opts.ExtractImages && opts.ImageOutputDir != "" {
		if err := os.MkdirAll(opts.ImageOutputDir, 0o755); err != nil {
			return nil, domain.IOError("Failed to create image output directory", err)
		}
	}

	filename := filepath.Base(pdfPath)
	var elements []Element

	for pageNum := 0; pageNum < pageCount; pageNum++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		text, err := doc.Text(pageNum)
		if err != nil {
			return nil, domain.PartitionError(fmt.Sprintf("Failed to read page %d", pageNum+1), err)
		}

		tableOrdinal := 0
		for i, block := range splitBlocks(text) {
			category := classifyBlock(block)
			el := Element{
				Category:  category,
				ElementID: elementID(filename, pageNum+1, i, block),
				Text:      block,
				Metadata: Metadata{
					Filetype:   "application/pdf",
					PageNumber: pageNum + 1,
					Filename:   filename,
				},
			}
			elements = append(elements, el)

			if category == CategoryTable && opts.ExtractImages && opts.ImageOutputDir != "" {
				tableOrdinal++
				if err := p.exportTableImage(doc, pageNum, tableOrdinal, opts); err != nil {
					return nil, err
				}
			}
		}
	}

	return elements, nil
}

// exportTableImage renders the page containing a detected table and
// writes it as a JPEG named by page and table ordinal.
func (p *Partitioner) exportTableImage(doc *fitz.Document, pageNum, ordinal int, opts Options) error {
	img, err := doc.Image(pageNum)
	if err != nil {
		return domain.PartitionError(fmt.Sprintf("Failed to render page %d", pageNum+1), err)
	}

	quality := 80
	if opts.Strategy == StrategyHiRes {
		quality = 95
	}

	outputPath := filepath.Join(opts.ImageOutputDir, fmt.Sprintf("table-page%d-%d.jpg", pageNum+1, ordinal))
	outputFile, err := os.Create(outputPath)
	if err != nil {
		return domain.IOError("Failed to create table image file", err)
	}
	defer outputFile.Close()

	if err := jpeg.Encode(outputFile, img, &jpeg.Options{Quality: quality}); err != nil {
		return domain.IOError("Failed to encode table image", err)
	}

	return nil
}

// splitBlocks segments page text into blocks on blank lines. Runs of
// consecutive non-blank lines stay together so multi-line tables and
// paragraphs survive as single elements.
func splitBlocks(text string) []string {
	var blocks []string
	var current []string

	flush := func() {
		if len(current) > 0 {
			blocks = append(blocks, strings.Join(current, "\n"))
			current = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		current = append(current, strings.TrimRight(line, " \t"))
	}
	flush()

	return blocks
}
