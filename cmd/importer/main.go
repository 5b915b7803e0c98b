package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"polygonal-zones/internal/catalog"
	"polygonal-zones/internal/config"
	"polygonal-zones/internal/loader"
	"polygonal-zones/internal/zonefile"
)

// sourceList collects repeated --source flags in order.
type sourceList []string

func (s *sourceList) String() string { return strings.Join(*s, ",") }

func (s *sourceList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

type options struct {
	trackerID  string
	sources    []string
	prioritize bool
	out        string
}

func main() {
	var sources sourceList
	trackerID := flag.String("tracker", "", "Tracker whose configured zone sources are downloaded")
	flag.Var(&sources, "source", "Zone source URL or path (repeatable, overrides --tracker)")
	prioritize := flag.Bool("prioritize", false, "Assign priorities by source position when using --source")
	out := flag.String("out", "", "Path of the GeoJSON file to write")
	configDir := flag.String("config", "configs", "Directory containing app.yaml")
	flag.Parse()

	if *out == "" || (*trackerID == "" && len(sources) == 0) {
		fmt.Println("Error: --out and one of --tracker or --source are required")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	opts, err := resolveOptions(cfg, *trackerID, sources, *prioritize, *out)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Downloading %d zone sources\n", len(opts.sources))

	ld := loader.New(cfg.ConfigDir, cfg.FetchTimeout)
	count, err := download(context.Background(), catalog.NewBuilder(ld), opts)
	if err != nil {
		fmt.Printf("Error downloading zones: %v\n", err)
		os.Exit(1)
	}

	if err := verifyDownload(opts.out, count); err != nil {
		fmt.Printf("Error verifying download: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Successfully wrote %d zones to %s\n", count, opts.out)
}

// resolveOptions picks explicit sources over the tracker's configured ones.
func resolveOptions(cfg config.Config, trackerID string, sources []string, prioritize bool, out string) (options, error) {
	if len(sources) > 0 {
		return options{sources: sources, prioritize: prioritize, out: out}, nil
	}
	for _, t := range cfg.Trackers {
		if t.ID == trackerID {
			return options{trackerID: t.ID, sources: t.Sources(), prioritize: t.Prioritize, out: out}, nil
		}
	}
	return options{}, fmt.Errorf("tracker %q is not configured", trackerID)
}

func download(ctx context.Context, b *catalog.Builder, opts options) (int, error) {
	c, err := b.Build(ctx, opts.sources, opts.prioritize)
	if err != nil {
		return 0, err
	}

	data, err := c.Serialize()
	if err != nil {
		return 0, fmt.Errorf("failed to serialize zones: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(opts.out), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := zonefile.WriteAtomic(opts.out, data); err != nil {
		return 0, err
	}
	return c.Len(), nil
}

func verifyDownload(path string, expectedCount int) error {
	fc, err := zonefile.NewStore().Read(path)
	if err != nil {
		return fmt.Errorf("failed to read back %s: %w", path, err)
	}

	if len(fc.Features) != expectedCount {
		return fmt.Errorf("zone count mismatch: expected %d, got %d", expectedCount, len(fc.Features))
	}
	return nil
}
