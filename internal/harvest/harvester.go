package harvest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/aryankumar/threader/internal/util"
	"golang.org/x/sync/errgroup"
)

// Output file patterns, one per wrapped program
const (
	StructurePattern     = "*_f"
	FastStructurePattern = "*.log"
	MeanQPattern         = "*.meanQ"
	MavericKPattern      = "mav_K*"
)

// ParseFunc turns one output file into a RunRecord
type ParseFunc func(path string) (RunRecord, error)

// Harvester scans an output directory and parses every matching file
type Harvester struct {
	workers int
	logger  *slog.Logger
}

// NewHarvester creates a harvester parsing at most workers files at once
func NewHarvester(workers int, logger *slog.Logger) *Harvester {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Harvester{workers: workers, logger: logger}
}

// Glob lists the files in dir matching pattern in lexical order.
// No match is an input-missing error: an empty set can never be compared.
func Glob(dir, pattern string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("unable to locate any %s files in the results directory %s: %w",
			pattern, dir, util.ErrInputMissing)
	}
	sort.Strings(files)
	return files, nil
}

// Harvest parses every file in dir matching pattern and groups the records by K.
// The first parse failure aborts the whole pass.
func (h *Harvester) Harvest(ctx context.Context, dir, pattern string, parse ParseFunc) (*Dataset, error) {
	files, err := Glob(dir, pattern)
	if err != nil {
		return nil, err
	}

	records, err := parseAll(ctx, h.workers, files, parse)
	if err != nil {
		return nil, err
	}

	ds := NewDataset(records)
	h.logger.Info("harvested results",
		"dir", dir,
		"pattern", pattern,
		"files", len(files),
		"ks", len(ds.SortedKs))

	return ds, nil
}

// HarvestMeanQ parses every ".meanQ" file in dir, in file order
func (h *Harvester) HarvestMeanQ(ctx context.Context, dir string) ([]MeanQ, error) {
	files, err := Glob(dir, MeanQPattern)
	if err != nil {
		return nil, err
	}
	return parseAll(ctx, h.workers, files, ParseMeanQ)
}

// DiscoverEvidenceKs lists the K of every "mav_K<k>" directory in dir, ascending
func DiscoverEvidenceKs(dir string) ([]int, error) {
	dirs, err := Glob(dir, MavericKPattern)
	if err != nil {
		return nil, err
	}

	ks := make([]int, 0, len(dirs))
	for _, d := range dirs {
		k, ok := KFromEvidenceDir(d)
		if !ok {
			return nil, util.NewUnexpectedValue(d, FieldK, filepath.Base(d))
		}
		ks = append(ks, k)
	}
	sort.Ints(ks)
	return ks, nil
}

// parseAll runs fn over every file with bounded concurrency, keeping file order
func parseAll[T any](ctx context.Context, workers int, files []string, fn func(string) (T, error)) ([]T, error) {
	out := make([]T, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, err := fn(f)
			if err != nil {
				return fmt.Errorf("unable to extract results from %s: %w", f, err)
			}
			out[i] = v
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// HarvestStructure parses every STRUCTURE "_f" file in dir
func (h *Harvester) HarvestStructure(ctx context.Context, dir string) (*Dataset, error) {
	return h.Harvest(ctx, dir, StructurePattern, ParseStructureFile)
}

// HarvestFastStructure parses every fastStructure ".log" file in dir
func (h *Harvester) HarvestFastStructure(ctx context.Context, dir string) (*Dataset, error) {
	return h.Harvest(ctx, dir, FastStructurePattern, ParseFastStructureLog)
}
