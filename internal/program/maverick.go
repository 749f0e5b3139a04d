package program

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/aryankumar/threader/internal/config"
	"github.com/aryankumar/threader/internal/dispatch"
	"github.com/aryankumar/threader/internal/harvest"
	"github.com/aryankumar/threader/internal/output"
	"github.com/aryankumar/threader/internal/stats"
)

// MavericK runs MavericK once per K and compares the per-K log evidence
type MavericK struct {
	cfg    config.Run
	logger *slog.Logger

	// ti is false when the parameter file or --no-tests turned off
	// thermodynamic integration
	ti bool

	alpha       map[int]string
	alphaPropSD map[int]string
}

// NewMavericK reads the parameter file and maps any per-K alpha values onto
// the K range
func NewMavericK(cfg config.Run, logger *slog.Logger) (*MavericK, error) {
	if logger == nil {
		logger = slog.Default()
	}

	params, err := harvest.ParseMavericKParams(cfg.ParamsFile)
	if err != nil {
		return nil, err
	}

	m := &MavericK{
		cfg:    cfg,
		logger: logger,
		ti:     params.TIEnabled && !cfg.NoTests,
	}

	// harvesting alone has no K range and launches nothing
	if ks := cfg.Ks(); len(ks) > 0 {
		if m.alpha, err = harvest.PerK("alpha", params.Alpha, ks); err != nil {
			return nil, err
		}
		if m.alphaPropSD, err = harvest.PerK("alphaPropSD", params.AlphaPropSD, ks); err != nil {
			return nil, err
		}
	}
	if !params.TIEnabled {
		logger.Info("thermodynamic integration is off in the parameter file", "params", cfg.ParamsFile)
	}
	return m, nil
}

// Kind implements Program
func (m *MavericK) Kind() Kind { return KindMavericK }

// TIEnabled reports whether thermodynamic integration runs
func (m *MavericK) TIEnabled() bool { return m.ti }

// Grid implements dispatch.Planner; each K is a single MavericK run
func (m *MavericK) Grid() []dispatch.Cell {
	return dispatch.Grid(m.cfg.Ks(), []int{1})
}

// Job implements dispatch.Planner. MavericK joins outputRoot and file names
// without a separator, so the root keeps its trailing slash.
func (m *MavericK) Job(cell dispatch.Cell) (dispatch.Job, error) {
	k := strconv.Itoa(cell.K)
	dir := filepath.Join(m.cfg.OutputDir, harvest.EvidenceDir(cell.K))

	argv := []string{
		m.cfg.Binary,
		"-Kmin", k,
		"-Kmax", k,
		"-data", m.cfg.InputFile,
		"-outputRoot", dir + string(filepath.Separator),
		"-masterRoot", string(filepath.Separator),
		"-parameters", m.cfg.ParamsFile,
	}
	if m.cfg.NoTests {
		argv = append(argv, "-thermodynamic_on", "f")
	}
	if v, ok := m.alpha[cell.K]; ok {
		argv = append(argv, "-alpha", v)
	}
	if v, ok := m.alphaPropSD[cell.K]; ok {
		argv = append(argv, "-alphaPropSD", v)
	}

	return dispatch.Job{
		Cell:       cell,
		Argv:       argv,
		OutputPath: dir,
		LogPath:    dispatch.LogPath(m.cfg.OutputDir, cell),
		Prepare: func() error {
			return os.MkdirAll(dir, 0755)
		},
	}, nil
}

// evidenceKs returns the configured K range, or the Ks found on disk when
// there is none (harvesting an existing directory)
func (m *MavericK) evidenceKs() ([]int, error) {
	if ks := m.cfg.Ks(); len(ks) > 0 {
		return ks, nil
	}
	return harvest.DiscoverEvidenceKs(m.cfg.OutputDir)
}

// Analyze merges the per-K evidence files, picks the K with the largest log
// evidence and writes the bootstrap normalization
func (m *MavericK) Analyze(ctx context.Context, _ *harvest.Harvester) (*Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ks, err := m.evidenceKs()
	if err != nil {
		return nil, err
	}

	merged, err := stats.MergeEvidence(m.cfg.OutputDir, ks)
	if err != nil {
		return nil, err
	}
	m.logger.Info("merged evidence files", "dir", merged.Dir, "ks", len(ks))

	a := &Analysis{
		Kind: KindMavericK,
		Reports: []string{
			filepath.Join(merged.Dir, harvest.EvidenceFile),
			filepath.Join(merged.Dir, harvest.EvidenceDetailsFile),
		},
	}

	if m.cfg.NoTests {
		m.logger.Info("best K tests disabled, skipping evidence comparison")
		return a, nil
	}

	if !m.ti {
		m.logger.Warn("thermodynamic integration disabled, falling back to the STRUCTURE estimator of log evidence")
	}
	entries, err := stats.EvidenceEntries(merged, m.ti)
	if err != nil {
		return nil, err
	}
	a.Evidence = entries

	bestK := m.cfg.BestKDir()
	if k, ok := stats.BestEvidenceK(entries); ok {
		a.BestK = k
		report := filepath.Join(bestK, output.IntegrationFile)
		if err := output.WriteReportFile(report, func(w io.Writer) error {
			return output.WriteBestEvidenceK(w, k, m.ti)
		}); err != nil {
			return nil, err
		}
		a.Reports = append(a.Reports, report)
		m.logger.Info("evidence comparison complete", "bestK", k)
	}

	draws := m.cfg.Draws
	if draws <= 0 {
		draws = config.DefaultDraws
	}
	a.Normalized = stats.Normalize(entries, draws, m.cfg.Seed)

	report := filepath.Join(bestK, output.NormalizationFile)
	if err := output.WriteReportFile(report, func(w io.Writer) error {
		return output.WriteNormalization(w, a.Normalized)
	}); err != nil {
		return nil, err
	}
	a.Reports = append(a.Reports, report)

	return a, nil
}
