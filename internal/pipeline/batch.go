package pipeline

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// Result pairs a job with the error its run ended with.
type Result struct {
	Job *Job
	Err error
}

// RunBatch runs independent jobs with at most limit in flight. A failing job
// does not stop the others. Results are in job order; the returned error joins
// every job failure.
func (p *Pipeline) RunBatch(ctx context.Context, jobs []*Job, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 4
	}
	results := make([]Result, len(jobs))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			results[i] = Result{Job: job, Err: p.Run(ctx, job)}
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return results, errors.Join(errs...)
}
