package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aryankumar/threader/internal/util"
)

// ErrPoolRunning is returned by Submit while Execute is in progress
var ErrPoolRunning = errors.New("pool is running")

// Task is one unit of work for the pool
type Task struct {
	// Name identifies the task in logs and results (e.g. "K3_rep7")
	Name string

	// Execute runs the task to completion. A returned error marks the task
	// failed; it never stops the other tasks.
	Execute func(ctx context.Context) (interface{}, error)
}

// Result is the outcome of one task
type Result struct {
	// Name is the name of the task that produced this result
	Name string

	// Data is whatever Execute returned, set even when Error is not nil
	Data interface{}

	// Error is nil when the task succeeded
	Error error

	// Duration is the wall time of Execute; zero for tasks that never started
	Duration time.Duration
}

// Pool runs queued tasks on a fixed number of workers. Each worker runs one
// task to completion before taking the next, in submission order.
type Pool struct {
	workers int
	logger  *slog.Logger

	mu    sync.Mutex
	tasks []Task

	running atomic.Bool
}

// NewPool creates a pool with the given number of workers; values below 1 mean 1
func NewPool(workers int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{workers: workers, logger: logger}
}

// Submit queues a task. Tasks cannot be added while the pool is executing.
func (p *Pool) Submit(task Task) error {
	if task.Name == "" {
		return fmt.Errorf("task must have a name")
	}
	if task.Execute == nil {
		return fmt.Errorf("task %s must have an execute function", task.Name)
	}
	if p.running.Load() {
		return fmt.Errorf("cannot submit %s: %w", task.Name, ErrPoolRunning)
	}

	p.mu.Lock()
	p.tasks = append(p.tasks, task)
	n := len(p.tasks)
	p.mu.Unlock()

	p.logger.Debug("task submitted", "task", task.Name, "queued", n)
	return nil
}

// Len returns the number of queued tasks
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tasks)
}

// Workers returns the worker count
func (p *Pool) Workers() int {
	return p.workers
}

// Execute runs every queued task and returns one result per task
func (p *Pool) Execute(ctx context.Context) []Result {
	return p.ExecuteWithProgress(ctx, nil)
}

// ExecuteWithProgress runs every queued task and returns one result per task,
// in submission order. progressFn, when set, is called after each finished
// task from the worker goroutine that ran it.
//
// Once ctx is done no further task is started; those tasks get a result whose
// error wraps util.ErrCancelled and the context error. The queue is drained
// either way, so the pool can be reused.
func (p *Pool) ExecuteWithProgress(ctx context.Context, progressFn func(completed, total int)) []Result {
	if !p.running.CompareAndSwap(false, true) {
		p.logger.Error("pool is already running")
		return nil
	}
	defer p.running.Store(false)

	p.mu.Lock()
	tasks := p.tasks
	p.tasks = nil
	p.mu.Unlock()

	results := make([]Result, len(tasks))
	if len(tasks) == 0 {
		p.logger.Debug("no tasks to execute")
		return results
	}

	workers := min(p.workers, len(tasks))
	p.logger.Debug("starting workers", "workers", workers, "tasks", len(tasks))

	var (
		next      atomic.Int64
		completed atomic.Int64
		wg        sync.WaitGroup
	)
	start := time.Now()

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for {
				i := int(next.Add(1) - 1)
				if i >= len(tasks) {
					return
				}

				results[i] = p.run(ctx, tasks[i], workerID)

				done := int(completed.Add(1))
				if progressFn != nil {
					progressFn(done, len(tasks))
				}
			}
		}(w)
	}
	wg.Wait()

	failed := CountFailed(results)
	p.logger.Debug("task execution completed",
		"total", len(tasks),
		"successful", len(tasks)-failed,
		"failed", failed,
		"duration", time.Since(start))

	return results
}

// run executes one task unless ctx is already done
func (p *Pool) run(ctx context.Context, task Task, workerID int) Result {
	if err := ctx.Err(); err != nil {
		return Result{
			Name:  task.Name,
			Error: fmt.Errorf("%s not started: %w: %w", task.Name, util.ErrCancelled, err),
		}
	}

	p.logger.Debug("task started", "task", task.Name, "worker", workerID)
	start := time.Now()
	data, err := task.Execute(ctx)
	res := Result{
		Name:     task.Name,
		Data:     data,
		Error:    err,
		Duration: time.Since(start),
	}

	if err != nil {
		p.logger.Warn("task failed", "task", task.Name, "error", err, "duration", res.Duration)
	} else {
		p.logger.Debug("task succeeded", "task", task.Name, "duration", res.Duration)
	}
	return res
}
