package dispatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aryankumar/threader/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner succeeds unless the job name is listed in fail
type fakeRunner struct {
	fail  map[string]bool
	block bool

	mu      sync.Mutex
	ran     []string
	running atomic.Int32
	peak    atomic.Int32
}

func (f *fakeRunner) Run(ctx context.Context, job Job) ([]byte, error) {
	n := f.running.Add(1)
	defer f.running.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	f.ran = append(f.ran, job.Name())
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return nil, fmt.Errorf("%w: %v", util.ErrCancelled, ctx.Err())
	}

	time.Sleep(5 * time.Millisecond)
	out := []byte("output of " + job.Name() + "\n")
	if f.fail[job.Name()] {
		return out, fmt.Errorf("%w: exit status 1", util.ErrJobFailed)
	}
	return out, nil
}

// gridPlanner writes every job under dir
type gridPlanner struct {
	dir      string
	ks, reps []int
	jobErr   error
	prepared atomic.Int32
}

func (p *gridPlanner) Grid() []Cell {
	return Grid(p.ks, p.reps)
}

func (p *gridPlanner) Job(cell Cell) (Job, error) {
	if p.jobErr != nil {
		return Job{}, p.jobErr
	}
	return Job{
		Cell:       cell,
		Argv:       []string{"structure", "-K", fmt.Sprint(cell.K)},
		OutputPath: filepath.Join(p.dir, cell.Name()),
		LogPath:    LogPath(p.dir, cell),
		Prepare: func() error {
			p.prepared.Add(1)
			return nil
		},
	}, nil
}

func TestGrid(t *testing.T) {
	cells := Grid([]int{1, 3, 2}, []int{2, 1})
	want := []Cell{
		{3, 1}, {3, 2},
		{2, 1}, {2, 2},
		{1, 1}, {1, 2},
	}
	assert.Equal(t, want, cells)

	assert.Empty(t, Grid(nil, []int{1}))
	assert.Len(t, Grid([]int{5, 6}, []int{1}), 2)
}

func TestGrid_CellsAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range Grid([]int{1, 2, 3, 4}, []int{1, 2, 3, 4, 5}) {
		assert.False(t, seen[c.Name()], "duplicate cell %s", c.Name())
		seen[c.Name()] = true
	}
	assert.Len(t, seen, 20)
}

func TestCellNameAndLogPath(t *testing.T) {
	c := Cell{K: 12, Replicate: 3}
	assert.Equal(t, "K12_rep3", c.Name())
	assert.Equal(t, filepath.Join("/out", "K12_rep3.stlog"), LogPath("/out", c))
}

func TestDispatcher_AllSucceed(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{}
	planner := &gridPlanner{dir: dir, ks: []int{1, 2, 3}, reps: []int{1, 2}}

	report, err := New(2, WithRunner(runner)).Run(context.Background(), planner)
	require.NoError(t, err)

	assert.Len(t, report.Results, 6)
	assert.Zero(t, report.Failures())
	assert.NoError(t, report.Err())
	assert.Empty(t, report.FailedOutputs())
	assert.EqualValues(t, 6, planner.prepared.Load())
	assert.LessOrEqual(t, runner.peak.Load(), int32(2))

	assert.Equal(t, "K3_rep1", report.Results[0].Name)
	assert.Equal(t, filepath.Join(dir, "K3_rep1"), report.Results[0].Data)

	logs, _ := filepath.Glob(filepath.Join(dir, "*"+LogSuffix))
	assert.Empty(t, logs, "logs are only written on failure unless enabled")
}

func TestDispatcher_LogsEnabled(t *testing.T) {
	dir := t.TempDir()
	planner := &gridPlanner{dir: dir, ks: []int{2}, reps: []int{1, 2}}

	_, err := New(1, WithRunner(&fakeRunner{}), WithLogs(true)).Run(context.Background(), planner)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "K2_rep2.stlog"))
	require.NoError(t, err)
	assert.Equal(t, "output of K2_rep2\n", string(data))
}

func TestDispatcher_OneFailure(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{fail: map[string]bool{"K2_rep1": true}}
	planner := &gridPlanner{dir: dir, ks: []int{1, 2, 3}, reps: []int{1, 2, 3}}

	report, err := New(4, WithRunner(runner)).Run(context.Background(), planner)
	require.NoError(t, err, "a failed job is not a dispatch error")

	assert.Equal(t, 1, report.Failures())
	assert.Equal(t, []string{filepath.Join(dir, "K2_rep1")}, report.FailedOutputs())
	assert.True(t, errors.Is(report.Err(), util.ErrJobFailed))

	var failed error
	for _, r := range report.Results {
		if r.Error != nil {
			failed = r.Error
		}
	}
	var jobErr *util.JobError
	require.True(t, errors.As(failed, &jobErr))
	assert.Equal(t, 2, jobErr.K)
	assert.Equal(t, 1, jobErr.Replicate)

	data, err := os.ReadFile(filepath.Join(dir, "K2_rep1.stlog"))
	require.NoError(t, err, "failed jobs always get a log")
	assert.Equal(t, "output of K2_rep1\n", string(data))

	logs, _ := filepath.Glob(filepath.Join(dir, "*"+LogSuffix))
	assert.Len(t, logs, 1)
}

func TestDispatcher_PrepareFailure(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{}
	planner := &prepareFailPlanner{gridPlanner{dir: dir, ks: []int{1}, reps: []int{1}}}

	report, err := New(1, WithRunner(runner)).Run(context.Background(), planner)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failures())
	assert.Empty(t, runner.ran, "the program must not start when preparation fails")
}

type prepareFailPlanner struct{ gridPlanner }

func (p *prepareFailPlanner) Job(cell Cell) (Job, error) {
	job, err := p.gridPlanner.Job(cell)
	job.Prepare = func() error { return errors.New("disk full") }
	return job, err
}

func TestDispatcher_JobBuildError(t *testing.T) {
	planner := &gridPlanner{dir: t.TempDir(), ks: []int{1}, reps: []int{1}, jobErr: util.ErrInvalidConfig}

	_, err := New(1, WithRunner(&fakeRunner{})).Run(context.Background(), planner)
	require.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrInvalidConfig))
}

func TestDispatcher_Cancelled(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{block: true}
	planner := &gridPlanner{dir: dir, ks: []int{1, 2, 3}, reps: []int{1, 2}}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	report, err := New(2, WithRunner(runner)).Run(ctx, planner)
	require.Error(t, err)
	assert.True(t, util.IsCancelled(err))
	require.NotNil(t, report)
	assert.Equal(t, 6, report.Failures())

	logs, _ := filepath.Glob(filepath.Join(dir, "*"+LogSuffix))
	assert.Empty(t, logs, "cancelled jobs leave no logs")
}
