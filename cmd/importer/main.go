package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/korjavin/dricalc/internal/importer"
)

func main() {
	sources := flag.String("sources", "", "path to the YAML sources file (required)")
	out := flag.String("out", "", "output data directory (required)")
	flag.Parse()

	if *sources == "" || *out == "" {
		fmt.Fprintln(os.Stderr, "usage: dricalc-importer -sources <sources.yaml> -out <dir>")
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("starting import", "sources", *sources, "out", *out)

	m, err := importer.Import(*sources, *out)
	if err != nil {
		slog.Error("import failed", "error", err)
		os.Exit(1)
	}

	slog.Info("import complete",
		"records", m.RecordCount,
		"columns", m.ColumnCount,
		"skipped", m.SkippedCount,
		"build_time", m.BuildTime,
	)
	fmt.Printf("Output: %s\n  Sources         : %v\n  Records stored  : %d\n  Columns         : %d\n  Skipped rows    : %d\n",
		*out, m.Sources, m.RecordCount, m.ColumnCount, m.SkippedCount)

	if len(m.SkipReasons) > 0 {
		fmt.Println("  Skip reasons:")
		keys := make([]string, 0, len(m.SkipReasons))
		for k := range m.SkipReasons {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("    %-20s: %d\n", k, m.SkipReasons[k])
		}
	}
}
