package program

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"github.com/aryankumar/threader/internal/config"
	"github.com/aryankumar/threader/internal/dispatch"
	"github.com/aryankumar/threader/internal/harvest"
	"github.com/aryankumar/threader/internal/output"
	"github.com/aryankumar/threader/internal/stats"
)

// Structure runs STRUCTURE replicates and picks K with the Evanno method
type Structure struct {
	cfg    config.Run
	logger *slog.Logger
}

// Kind implements Program
func (s *Structure) Kind() Kind { return KindStructure }

// Grid implements dispatch.Planner
func (s *Structure) Grid() []dispatch.Cell {
	return dispatch.Grid(s.cfg.Ks(), s.cfg.ReplicateIndexes())
}

// Job runs STRUCTURE from the input file's directory, where it expects its
// mainparams and extraparams files. STRUCTURE appends "_f" to the output path.
func (s *Structure) Job(cell dispatch.Cell) (dispatch.Job, error) {
	out := filepath.Join(s.cfg.OutputDir, cell.Name())
	return dispatch.Job{
		Cell: cell,
		Argv: []string{
			s.cfg.Binary,
			"-K", strconv.Itoa(cell.K),
			"-i", s.cfg.InputFile,
			"-o", out,
		},
		Dir:        filepath.Dir(s.cfg.InputFile),
		OutputPath: out,
		LogPath:    dispatch.LogPath(s.cfg.OutputDir, cell),
	}, nil
}

// Analyze harvests the "_f" files, writes the raw summary and, unless tests
// are disabled, the Evanno table
func (s *Structure) Analyze(ctx context.Context, h *harvest.Harvester) (*Analysis, error) {
	ds, err := h.HarvestStructure(ctx, s.cfg.OutputDir)
	if err != nil {
		return nil, err
	}

	a := &Analysis{Kind: KindStructure, Dataset: ds}
	bestK := s.cfg.BestKDir()

	summary := filepath.Join(bestK, output.SummaryFile)
	if err := output.WriteReportFile(summary, func(w io.Writer) error {
		return output.WriteRawSummary(w, ds)
	}); err != nil {
		return nil, err
	}
	a.Reports = append(a.Reports, summary)

	if s.cfg.NoTests {
		if err := stats.CalculateMeansAndStdevs(ds); err != nil {
			return nil, err
		}
		s.logger.Info("best K tests disabled, skipping the Evanno method")
		return a, nil
	}

	if err := stats.Evanno(ds); err != nil {
		return nil, err
	}

	table := filepath.Join(bestK, output.EvannoFile)
	if err := output.WriteReportFile(table, func(w io.Writer) error {
		return output.WriteEvannoTable(w, ds, time.Now())
	}); err != nil {
		return nil, err
	}
	a.Reports = append(a.Reports, table)

	if k, ok := stats.BestK(ds); ok {
		a.BestK = k
		s.logger.Info("Evanno method complete", "bestK", k, "deltaK", ds.DeltaK[k])
	} else {
		s.logger.Warn("no Delta K is defined, every interior K has a zero standard deviation")
	}
	return a, nil
}
