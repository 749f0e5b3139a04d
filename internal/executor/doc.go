// Package executor runs independent tasks on a bounded pool of workers.
//
// Each worker takes the next queued task, runs it to completion and takes
// another. A failing task is recorded in its Result and never stops the
// others; callers inspect the results once the pool returns.
//
//	pool := executor.NewPool(4, logger)
//	for _, job := range jobs {
//	    pool.Submit(executor.Task{
//	        Name: job.Name(),
//	        Execute: func(ctx context.Context) (interface{}, error) {
//	            return job.OutputPath, run(ctx, job)
//	        },
//	    })
//	}
//	results := pool.ExecuteWithProgress(ctx, func(completed, total int) {
//	    logger.Debug("job finished", "completed", completed, "total", total)
//	})
//	logger.Info("done", "summary", executor.Summarize(results))
//
// Tasks start in submission order. Results come back in the same order, one
// per task. Cancelling the context stops workers from starting new tasks;
// those tasks get an error wrapping util.ErrCancelled.
package executor
