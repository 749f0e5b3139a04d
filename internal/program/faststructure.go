package program

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/aryankumar/threader/internal/config"
	"github.com/aryankumar/threader/internal/dispatch"
	"github.com/aryankumar/threader/internal/harvest"
	"github.com/aryankumar/threader/internal/output"
	"github.com/aryankumar/threader/internal/stats"
	"github.com/aryankumar/threader/internal/util"
)

// fastStructure input formats
const (
	FormatBed = "bed"
	FormatStr = "str"
)

// OutputPrefix is passed to fastStructure's --output; it appends ".<K>.*"
const OutputPrefix = "fS_run_K"

var bedExtensions = []string{".bed", ".bim", ".fam"}

// FastStructure runs fastStructure once per K and reads off its model choice
type FastStructure struct {
	cfg    config.Run
	logger *slog.Logger

	linkOnce sync.Once
	linkErr  error
}

// Kind implements Program
func (f *FastStructure) Kind() Kind { return KindFastStructure }

// Grid implements dispatch.Planner; fastStructure is deterministic, so one
// run per K
func (f *FastStructure) Grid() []dispatch.Cell {
	return dispatch.Grid(f.cfg.Ks(), []int{1})
}

// InputFormat returns the --format value and the --input value for path.
// fastStructure adds the extension itself.
func InputFormat(path string) (format, input string) {
	ext := filepath.Ext(path)
	for _, e := range bedExtensions {
		if strings.EqualFold(ext, e) {
			return FormatBed, strings.TrimSuffix(path, ext)
		}
	}
	if ext == "."+FormatStr {
		return FormatStr, strings.TrimSuffix(path, ext)
	}
	return FormatStr, path
}

// Job implements dispatch.Planner
func (f *FastStructure) Job(cell dispatch.Cell) (dispatch.Job, error) {
	format, input := InputFormat(f.cfg.InputFile)
	out := filepath.Join(f.cfg.OutputDir, OutputPrefix)

	var argv []string
	if f.cfg.Interpreter != "" {
		argv = append(argv, f.cfg.Interpreter)
	}
	argv = append(argv,
		f.cfg.Binary,
		"-K", strconv.Itoa(cell.K),
		"--input", input,
		"--output", out,
		"--format", format,
	)

	job := dispatch.Job{
		Cell:       cell,
		Argv:       argv,
		OutputPath: fmt.Sprintf("%s.%d", out, cell.K),
		LogPath:    dispatch.LogPath(f.cfg.OutputDir, cell),
	}
	if format == FormatStr && input == f.cfg.InputFile {
		job.Prepare = f.linkStrInput
	}
	return job, nil
}

// linkStrInput makes "<input>.str" point at the input file, once for all jobs
func (f *FastStructure) linkStrInput() error {
	f.linkOnce.Do(func() {
		link := f.cfg.InputFile + "." + FormatStr
		if _, err := os.Lstat(link); err == nil {
			return
		}
		if err := os.Symlink(f.cfg.InputFile, link); err != nil {
			f.linkErr = fmt.Errorf("failed to link %s to %s: %w", link, f.cfg.InputFile, err)
			return
		}
		f.logger.Info("linked input for fastStructure", "link", link, "target", f.cfg.InputFile)
	})
	return f.linkErr
}

// Analyze harvests the logs and meanQ files and writes chooseK.txt
func (f *FastStructure) Analyze(ctx context.Context, h *harvest.Harvester) (*Analysis, error) {
	ds, err := h.HarvestFastStructure(ctx, f.cfg.OutputDir)
	if err != nil {
		return nil, err
	}

	a := &Analysis{Kind: KindFastStructure, Dataset: ds}
	bestK := f.cfg.BestKDir()

	summary := filepath.Join(bestK, output.SummaryFile)
	if err := output.WriteReportFile(summary, func(w io.Writer) error {
		return output.WriteRawSummary(w, ds)
	}); err != nil {
		return nil, err
	}
	a.Reports = append(a.Reports, summary)

	if f.cfg.NoTests {
		f.logger.Info("best K tests disabled, skipping choose-K")
		return a, nil
	}

	meanQs, err := h.HarvestMeanQ(ctx, f.cfg.OutputDir)
	if err != nil && !errors.Is(err, util.ErrInputMissing) {
		return nil, err
	}
	if len(meanQs) == 0 {
		f.logger.Warn("no meanQ files found, model components will not be reported", "dir", f.cfg.OutputDir)
	}

	res, err := stats.ChooseK(ds, meanQs)
	if err != nil {
		return nil, err
	}
	a.ChooseK = &res
	a.BestK = res.MarginalLikelihoodK

	report := filepath.Join(bestK, output.ChooseKFile)
	if err := output.WriteReportFile(report, func(w io.Writer) error {
		return output.WriteChooseK(w, res)
	}); err != nil {
		return nil, err
	}
	a.Reports = append(a.Reports, report)

	f.logger.Info("choose-K complete",
		"marginalLikelihoodK", res.MarginalLikelihoodK,
		"componentsK", res.ComponentsK)
	return a, nil
}
