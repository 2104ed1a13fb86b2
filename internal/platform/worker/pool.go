// Package worker runs batches of independent jobs with bounded
// parallelism.
package worker

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Job is one unit of work in a batch.
type Job struct {
	ID      string
	Execute func(ctx context.Context) error
}

// Result pairs a job with its outcome.
type Result struct {
	JobID string
	Err   error
}

// RunAll executes the jobs with at most parallelism running concurrently
// and returns results in submission order. One job's failure never cancels
// its siblings; callers inspect per-job errors.
func RunAll(ctx context.Context, parallelism int, jobs []Job) []Result {
	if parallelism <= 0 {
		parallelism = 1
	}

	results := make([]Result, len(jobs))

	var group errgroup.Group
	group.SetLimit(parallelism)
	for i, job := range jobs {
		i, job := i, job
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = Result{JobID: job.ID, Err: err}
				return nil
			}
			results[i] = Result{JobID: job.ID, Err: job.Execute(ctx)}
			return nil
		})
	}
	_ = group.Wait()

	return results
}
