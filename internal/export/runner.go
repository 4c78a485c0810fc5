package export

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/dharsanguruparan/vaultdesk/internal/model"
)

type job struct {
	index int
	doc   model.Document
}

type done struct {
	index int
	res   Result
}

// Runner exports documents on a bounded pool of goroutines.
type Runner struct {
	exporter *Exporter
	workers  int
	logger   *zap.Logger
}

// NewRunner builds a Runner. workers below one means one.
func NewRunner(e *Exporter, workers int, logger *zap.Logger) *Runner {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{exporter: e, workers: workers, logger: logger}
}

// Run plans docs for p and exports the eligible ones. Once ctx is done the
// documents not yet started are reported as failed with ctx's error.
func (r *Runner) Run(ctx context.Context, p model.Principal, docs []model.Document) Report {
	eligible, skipped := Plan(docs, p)

	jobs := make(chan job)
	results := make(chan done, len(eligible))
	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results <- done{index: j.index, res: r.exporter.ExportOne(ctx, p.ID, j.doc)}
			}
		}()
	}

	ordered := make([]Result, len(eligible))
	sent := 0
feed:
	for i, d := range eligible {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- job{index: i, doc: d}:
			sent++
		}
	}
	close(jobs)
	wg.Wait()
	close(results)

	for d := range results {
		ordered[d.index] = d.res
	}
	for i := sent; i < len(eligible); i++ {
		ordered[i] = Result{Document: eligible[i], Outcome: OutcomeFailed, Err: ctx.Err()}
	}

	var report Report
	for _, res := range ordered {
		report.add(res)
	}
	for _, res := range skipped {
		report.add(res)
	}
	r.logger.Info("export finished",
		zap.Int("saved", report.Saved),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Int64("bytes", report.Bytes),
	)
	return report
}
