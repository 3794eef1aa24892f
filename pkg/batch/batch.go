// Package batch runs one conversion per file across a bounded pool of
// workers. A failed item is logged and recorded; the rest keep going.
package batch

import (
	"context"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"

	"github.com/yoremi/kotor-go/pkg/codec"
)

// Func converts one named item.
type Func[T any] func(ctx context.Context, name string) (T, error)

// Run applies fn to every name with at most workers in flight. Results
// come back in input order. Once ctx is done, items not yet started are
// recorded with the context error.
func Run[T any](ctx context.Context, workers int, names []string, fn Func[T]) *codec.Report[T] {
	if workers < 1 {
		workers = 1
	}
	results := make([]codec.Result[T], len(names))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			results[i] = run(ctx, name, fn)
			return nil
		})
	}
	g.Wait()

	rp := &codec.Report[T]{Results: results}
	if failed := len(rp.Failed()); failed > 0 {
		glog.Warningf("batch: %d of %d items failed", failed, len(names))
	}
	return rp
}

func run[T any](ctx context.Context, name string, fn Func[T]) codec.Result[T] {
	r := codec.Result[T]{Name: name}
	if err := ctx.Err(); err != nil {
		r.Err = err
		return r
	}
	r.Value, r.Err = fn(ctx, name)
	if r.Err != nil {
		glog.Warningf("%s: %v", name, r.Err)
	}
	return r
}
