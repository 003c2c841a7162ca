// Package mapreduce implements the concurrency-bounded map/reduce executor
// used by the per-unit pipeline phases.
package mapreduce

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Progress is a snapshot reported after each unit's result lands.
type Progress struct {
	Phase     string
	Completed int
	Failed    int
	Total     int
}

// Options configures one map/reduce run over a slice of items.
//
// Map runs for each item under the concurrency bound. One item's failure
// never cancels its siblings. Checkpoint is invoked synchronously as soon as
// an item's result is known, success or failure, so partial progress is
// persisted immediately. IsCancelled is polled before dispatching each new
// item; once it reports true nothing further is scheduled, but items already
// dispatched run to natural completion. Reduce, if set, runs exactly once
// over the successful outputs after the map stage drains.
type Options[I, O, R any] struct {
	Phase       string
	Concurrency int
	KeyOf       func(I) string
	Map         func(ctx context.Context, item I) (O, error)
	Checkpoint  func(id string, out O, err error)
	OnProgress  func(Progress)
	IsCancelled func() bool
	Reduce      func(ok []O) ([]R, error)
}

// Result carries the outcome of a run. FailedIDs lists every failing item id
// explicitly (not merely a count) so strict-mode diagnostics and targeted
// re-runs can name them; Failures maps each id to its error description.
type Result[O, R any] struct {
	Outputs   []O
	Reduced   []R
	FailedIDs []string
	Failures  map[string]string
	Duration  time.Duration
}

// Run executes the map stage over items and then the optional reduce stage.
// The only error returned is a reduce failure; per-item failures are data.
func Run[I, O, R any](ctx context.Context, opts Options[I, O, R], items []I) (*Result[O, R], error) {
	start := time.Now()

	res := &Result[O, R]{
		Failures: make(map[string]string),
	}

	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	// A plain errgroup (not WithContext): worker errors are captured as data
	// below, so nothing can cancel the group.
	g := new(errgroup.Group)
	g.SetLimit(concurrency)

	var mu sync.Mutex
	completed, failed := 0, 0

	for _, item := range items {
		if opts.IsCancelled != nil && opts.IsCancelled() {
			break
		}

		g.Go(func() error {
			out, err := opts.Map(ctx, item)
			id := opts.KeyOf(item)

			mu.Lock()
			defer mu.Unlock()

			if opts.Checkpoint != nil {
				opts.Checkpoint(id, out, err)
			}

			if err != nil {
				failed++
				res.FailedIDs = append(res.FailedIDs, id)
				res.Failures[id] = err.Error()
			} else {
				completed++
				res.Outputs = append(res.Outputs, out)
			}

			if opts.OnProgress != nil {
				opts.OnProgress(Progress{
					Phase:     opts.Phase,
					Completed: completed,
					Failed:    failed,
					Total:     len(items),
				})
			}
			return nil
		})
	}

	_ = g.Wait()

	sort.Strings(res.FailedIDs)

	if opts.Reduce != nil {
		reduced, err := opts.Reduce(res.Outputs)
		if err != nil {
			res.Duration = time.Since(start)
			return res, err
		}
		res.Reduced = reduced
	}

	res.Duration = time.Since(start)
	return res, nil
}
