package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docubot-ai/docubot/internal/partition"
)

type fakeImagePartitioner struct {
	results map[string][]partition.Element
	errs    map[string]error
	calls   []string
}

func (f *fakeImagePartitioner) PartitionImage(_ context.Context, imagePath string) ([]partition.Element, error) {
	name := filepath.Base(imagePath)
	f.calls = append(f.calls, name)
	if err, ok := f.errs[name]; ok {
		return nil, err
	}
	return f.results[name], nil
}

func writeTestImage(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("jpeg-bytes"), 0o644))
}

func tableElement(text string) partition.Element {
	return partition.Element{
		Category:  partition.CategoryTable,
		ElementID: "abc123",
		Text:      text,
		Metadata:  partition.Metadata{Filetype: "image/jpeg"},
	}
}

func TestProcessJoinsTableText(t *testing.T) {
	imageDir := t.TempDir()
	outputDir := t.TempDir()
	writeTestImage(t, imageDir, "table-page1-0.jpg")
	writeTestImage(t, imageDir, "table-page2-0.jpg")

	client := &fakeImagePartitioner{
		results: map[string][]partition.Element{
			"table-page1-0.jpg": {
				tableElement("Revenue 2023 100"),
				{Category: partition.CategoryNarrativeText, Text: "caption"},
			},
			"table-page2-0.jpg": {tableElement("Costs 2023 40")},
		},
	}

	proc := NewTableProcessor(client, TableProcessorConfig{OutputDir: outputDir})
	text, stats, err := proc.Process(context.Background(), imageDir)

	require.NoError(t, err)
	assert.Equal(t, "Revenue 2023 100\nCosts 2023 40", text)
	assert.Equal(t, 2, stats.ImagesProcessed)
	assert.Equal(t, 0, stats.ImagesFailed)
	assert.Equal(t, 2, stats.TablesFound)

	// Non-table elements never reach the JSON file.
	data, err := os.ReadFile(filepath.Join(outputDir, "table-page1-0_tables.json"))
	require.NoError(t, err)
	var tables []partition.Element
	require.NoError(t, json.Unmarshal(data, &tables))
	require.Len(t, tables, 1)
	assert.Equal(t, partition.CategoryTable, tables[0].Category)
}

func TestProcessSkipsNonImageFiles(t *testing.T) {
	imageDir := t.TempDir()
	writeTestImage(t, imageDir, "table-page1-0.jpg")
	require.NoError(t, os.WriteFile(filepath.Join(imageDir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(imageDir, "diagram.png"), []byte("x"), 0o644))

	client := &fakeImagePartitioner{
		results: map[string][]partition.Element{
			"table-page1-0.jpg": {tableElement("A B")},
		},
	}

	proc := NewTableProcessor(client, TableProcessorConfig{OutputDir: t.TempDir()})
	text, stats, err := proc.Process(context.Background(), imageDir)

	require.NoError(t, err)
	assert.Equal(t, "A B", text)
	assert.Equal(t, []string{"table-page1-0.jpg"}, client.calls)
	assert.Equal(t, 1, stats.ImagesProcessed)
}

func TestProcessIsolatesFailures(t *testing.T) {
	imageDir := t.TempDir()
	outputDir := t.TempDir()
	writeTestImage(t, imageDir, "table-page1-0.jpg")
	writeTestImage(t, imageDir, "table-page2-0.jpg")
	writeTestImage(t, imageDir, "table-page3-0.jpg")

	client := &fakeImagePartitioner{
		results: map[string][]partition.Element{
			"table-page1-0.jpg": {tableElement("first")},
			"table-page3-0.jpg": {tableElement("third")},
		},
		errs: map[string]error{
			"table-page2-0.jpg": errors.New("API returned status 503"),
		},
	}

	proc := NewTableProcessor(client, TableProcessorConfig{OutputDir: outputDir})
	text, stats, err := proc.Process(context.Background(), imageDir)

	require.NoError(t, err)
	assert.Equal(t, "first\nthird", text)
	assert.Equal(t, 2, stats.ImagesProcessed)
	assert.Equal(t, 1, stats.ImagesFailed)

	// The failed image leaves no JSON file behind.
	_, statErr := os.Stat(filepath.Join(outputDir, "table-page2-0_tables.json"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestProcessWritesEmptyArrayForTablelessImage(t *testing.T) {
	imageDir := t.TempDir()
	outputDir := t.TempDir()
	writeTestImage(t, imageDir, "table-page1-0.jpg")

	client := &fakeImagePartitioner{
		results: map[string][]partition.Element{
			"table-page1-0.jpg": {{Category: partition.CategoryNarrativeText, Text: "no tables here"}},
		},
	}

	proc := NewTableProcessor(client, TableProcessorConfig{OutputDir: outputDir})
	text, stats, err := proc.Process(context.Background(), imageDir)

	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Equal(t, 1, stats.ImagesProcessed)
	assert.Equal(t, 0, stats.TablesFound)

	data, err := os.ReadFile(filepath.Join(outputDir, "table-page1-0_tables.json"))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestProcessIsIdempotent(t *testing.T) {
	imageDir := t.TempDir()
	outputDir := t.TempDir()
	writeTestImage(t, imageDir, "table-page1-0.jpg")

	client := &fakeImagePartitioner{
		results: map[string][]partition.Element{
			"table-page1-0.jpg": {tableElement("stable row")},
		},
	}

	proc := NewTableProcessor(client, TableProcessorConfig{OutputDir: outputDir})
	outputPath := filepath.Join(outputDir, "table-page1-0_tables.json")

	_, _, err := proc.Process(context.Background(), imageDir)
	require.NoError(t, err)
	first, err := os.ReadFile(outputPath)
	require.NoError(t, err)

	_, _, err = proc.Process(context.Background(), imageDir)
	require.NoError(t, err)
	second, err := os.ReadFile(outputPath)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestProcessEmptyDirectory(t *testing.T) {
	proc := NewTableProcessor(&fakeImagePartitioner{}, TableProcessorConfig{OutputDir: t.TempDir()})
	text, stats, err := proc.Process(context.Background(), t.TempDir())

	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Equal(t, 0, stats.ImagesProcessed)
}

func TestProcessMissingDirectory(t *testing.T) {
	proc := NewTableProcessor(&fakeImagePartitioner{}, TableProcessorConfig{OutputDir: t.TempDir()})
	_, _, err := proc.Process(context.Background(), filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}
