package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/therealutkarshpriyadarshi/shortforge/pkg/models"
)

// Runner executes a single run
type Runner interface {
	Run(ctx context.Context, req models.RunRequest) (models.PipelineRecord, error)
}

// Result pairs a request with its outcome
type Result struct {
	Request models.RunRequest
	Record  models.PipelineRecord
	Err     error
}

// Pool runs independent requests on a bounded number of workers
type Pool struct {
	runner  Runner
	workers int
}

// NewPool creates a pool with at most workers concurrent runs
func NewPool(runner Runner, workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{runner: runner, workers: workers}
}

// RunAll executes every request and returns results in request order. A
// failed run does not stop the others; cancelling ctx does, and runs that
// never started report the context error.
func (p *Pool) RunAll(ctx context.Context, reqs []models.RunRequest) []Result {
	results := make([]Result, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, req := range reqs {
		results[i].Request = req
		if err := gctx.Err(); err != nil {
			results[i].Err = err
			continue
		}

		g.Go(func() error {
			record, err := p.runner.Run(gctx, req)
			results[i].Record = record
			results[i].Err = err
			return nil
		})
	}

	_ = g.Wait()
	return results
}
