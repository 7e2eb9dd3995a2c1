package grid

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// BuildParallel computes the same surface as Build with rows fanned out
// across workers. Cells are independent pure computations keyed by their
// axis indices, so the result is identical to the sequential sweep.
func BuildParallel(ctx context.Context, axis1, axis2 Axis, fn CellFunc) (*Grid, error) {
	g, err := newGrid(axis1, &axis2)
	if err != nil {
		return nil, err
	}

	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))

	for i, v1 := range g.Axis1Values {
		row, v1 := g.Cells[i], v1
		eg.Go(func() error {
			return fillRow(row, v1, g.Axis2Values, fn)
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return g, nil
}
