package importer

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/korjavin/dricalc/internal/dataset"
	"github.com/korjavin/dricalc/internal/store"
)

// Import reads the nutrient sources listed in sourcesFile, reconciles them
// into one dataset, writes it as a Pebble snapshot with a Bleve suggestion
// index inside outputDir, and returns the resulting manifest.
//
// A source that cannot be read, or a dataset without the key columns, fails
// the whole import: a partial snapshot would serve wrong answers.
func Import(sourcesFile, outputDir string) (*store.Manifest, error) {
	startTime := time.Now()

	srcs, err := dataset.LoadSourcesFile(sourcesFile)
	if err != nil {
		return nil, err
	}
	for _, src := range srcs {
		slog.Info("source", "path", src.Path, "sheet", src.Sheet, "header_row", src.HeaderRow, "tag", src.Tag)
	}

	ds, stats, err := dataset.Load(srcs)
	if err != nil {
		return nil, err
	}
	slog.Info("dataset reconciled",
		"records", stats.Records,
		"columns", len(ds.Columns()),
		"nutrients", len(ds.NutrientColumns()),
		"skipped", stats.SkippedTotal(),
	)

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	s, err := store.Create(outputDir)
	if err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}
	defer s.Close()

	if err := s.PutDataset(ds); err != nil {
		return nil, fmt.Errorf("write dataset: %w", err)
	}

	m := &store.Manifest{
		BuildTime:     time.Now().UTC(),
		SourcesFile:   sourcesFile,
		Sources:       ds.Sources(),
		RecordCount:   stats.Records,
		ColumnCount:   len(ds.Columns()),
		SkippedCount:  stats.SkippedTotal(),
		SchemaVersion: store.SchemaVersion(),
		SkipReasons:   stats.Skipped,
	}
	if err := store.WriteManifest(outputDir, m); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	slog.Info("snapshot written", "out", outputDir, "elapsed", time.Since(startTime).Round(time.Millisecond))
	return m, nil
}
