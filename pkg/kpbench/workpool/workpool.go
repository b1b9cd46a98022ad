package workpool

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"golang.org/x/sync/errgroup"
)

// DefaultSize is the number of concurrent workers.
const DefaultSize = 8

// ErrPanic wraps a panic recovered from a task.
var ErrPanic = errors.New("task panicked")

// Result is the outcome of one task.
type Result[T any] struct {
	Index int
	Value T
	Err   error
}

// Pool bounds how many tasks run at once. Size 1 runs tasks strictly in
// input order.
type Pool struct {
	size int
}

// New creates a pool; size <= 0 uses DefaultSize.
func New(size int) *Pool {
	if size <= 0 {
		size = DefaultSize
	}
	return &Pool{size: size}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return p.size }

// Map runs fn on every input and returns the results in input order. A task
// error is recorded in its Result and does not stop the other tasks; only
// cancellation of ctx does, in which case the context error is returned and
// unstarted tasks report it.
func Map[I, O any](ctx context.Context, p *Pool, inputs []I, fn func(context.Context, I) (O, error)) ([]Result[O], error) {
	results := make([]Result[O], len(inputs))
	g := new(errgroup.Group)
	g.SetLimit(p.size)

	for i, in := range inputs {
		results[i].Index = i
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		g.Go(func() error {
			results[i].Value, results[i].Err = run(ctx, in, fn)
			return nil
		})
	}
	_ = g.Wait()
	return results, ctx.Err()
}

func run[I, O any](ctx context.Context, in I, fn func(context.Context, I) (O, error)) (out O, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v\n%s", ErrPanic, r, debug.Stack())
		}
	}()
	if err := ctx.Err(); err != nil {
		return out, err
	}
	return fn(ctx, in)
}
