package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aryankumar/threader/internal/executor"
	"github.com/aryankumar/threader/internal/util"
)

// Dispatcher runs every job of a Planner on a bounded worker pool
type Dispatcher struct {
	workers int
	runner  Runner
	logger  *slog.Logger
	logAll  bool
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithRunner replaces the process runner
func WithRunner(r Runner) Option {
	return func(d *Dispatcher) {
		d.runner = r
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithLogs writes the captured output of every job, not only failed ones
func WithLogs(enabled bool) Option {
	return func(d *Dispatcher) {
		d.logAll = enabled
	}
}

// New creates a dispatcher running at most workers jobs at once
func New(workers int, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		workers: workers,
		runner:  ExecRunner{},
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Report summarises a dispatch
type Report struct {
	// Jobs are the dispatched jobs in submission order
	Jobs []Job

	// Results has one entry per job, in the same order. Data holds the job's
	// output path.
	Results []executor.Result

	// Elapsed is the wall time of the whole dispatch
	Elapsed time.Duration
}

// Failures counts the jobs that did not succeed
func (r *Report) Failures() int {
	return executor.CountFailed(r.Results)
}

// FailedOutputs lists the output paths of the failed jobs
func (r *Report) FailedOutputs() []string {
	var out []string
	for i, res := range r.Results {
		if res.Error != nil {
			out = append(out, r.Jobs[i].OutputPath)
		}
	}
	return out
}

// Err is nil when every job succeeded, otherwise it wraps ErrJobFailed
func (r *Report) Err() error {
	n := r.Failures()
	if n == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d jobs failed: %w", n, len(r.Results), util.ErrJobFailed)
}

// Run dispatches every job of p and waits for all of them. A job exiting
// non-zero is recorded in the report; Run itself only fails when the jobs
// cannot be built or ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context, p Planner) (*Report, error) {
	cells := p.Grid()
	report := &Report{Jobs: make([]Job, 0, len(cells))}

	pool := executor.NewPool(d.workers, d.logger)
	for _, cell := range cells {
		job, err := p.Job(cell)
		if err != nil {
			return nil, fmt.Errorf("failed to build job %s: %w", cell.Name(), err)
		}
		report.Jobs = append(report.Jobs, job)

		if err := pool.Submit(executor.Task{
			Name: job.Name(),
			Execute: func(ctx context.Context) (interface{}, error) {
				return job.OutputPath, d.runJob(ctx, job)
			},
		}); err != nil {
			return nil, err
		}
	}

	d.logger.Info("dispatching jobs", "jobs", len(report.Jobs), "workers", pool.Workers())

	start := time.Now()
	report.Results = pool.ExecuteWithProgress(ctx, func(completed, total int) {
		d.logger.Debug("job finished", "completed", completed, "total", total)
	})
	report.Elapsed = time.Since(start)
	d.logger.Info("dispatch finished", "summary", executor.Summarize(report.Results).String(), "elapsed", report.Elapsed.Round(time.Millisecond))

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("dispatch interrupted after %s: %w", report.Elapsed.Round(time.Millisecond), util.ErrCancelled)
	}

	if n := report.Failures(); n > 0 {
		d.logger.Warn("some jobs failed", "failed", n, "outputs", report.FailedOutputs())
	}
	return report, nil
}

func (d *Dispatcher) runJob(ctx context.Context, job Job) error {
	if job.Prepare != nil {
		if err := job.Prepare(); err != nil {
			return util.WrapJobError(job.K, job.Replicate, job.OutputPath, err)
		}
	}

	out, err := d.runner.Run(ctx, job)
	if errors.Is(err, util.ErrCancelled) {
		return util.WrapJobError(job.K, job.Replicate, job.OutputPath, err)
	}

	if job.LogPath != "" && (d.logAll || err != nil) {
		if werr := writeLog(job.LogPath, out); werr != nil {
			d.logger.Warn("failed to write job log", "job", job.Name(), "path", job.LogPath, "error", werr)
		}
	}

	return util.WrapJobError(job.K, job.Replicate, job.OutputPath, err)
}

func writeLog(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
