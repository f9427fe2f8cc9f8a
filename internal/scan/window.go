package scan

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Window runs indexed tasks with at most Width of them in flight. A new
// task starts as soon as a slot frees up.
type Window struct {
	Width int
}

// Run calls fn for every index in [0, n) and returns once all started
// tasks have finished. Tasks cannot fail the window; once ctx is done no
// further tasks start and ctx's error is returned.
func (w Window) Run(ctx context.Context, n int, fn func(ctx context.Context, i int)) error {
	width := w.Width
	if width <= 0 {
		width = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(width)

	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			fn(gctx, i)
			return nil
		})
	}

	_ = g.Wait()
	return ctx.Err()
}
