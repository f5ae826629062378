package backtest

import (
	"context"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/newthinker/fxlab/internal/core"
	"github.com/newthinker/fxlab/internal/series"
)

// Grid lists the threshold values a sweep combines. An empty SellThresholds
// keeps the base params' sell threshold.
type Grid struct {
	BuyThresholds  []float64
	SellThresholds []float64
}

// Size returns the number of threshold pairs per series.
func (g Grid) Size() int {
	sells := len(g.SellThresholds)
	if sells == 0 {
		sells = 1
	}
	return len(g.BuyThresholds) * sells
}

// SweepResult is the outcome of one grid point
type SweepResult struct {
	Horizon       int
	BuyThreshold  float64
	SellThreshold float64
	Result        *Result
	Err           error
}

// Sweep runs every grid point against every series on up to workers
// goroutines. The series are shared read-only. A failing grid point is
// reported in its SweepResult and does not stop the others; only context
// cancellation aborts the sweep. Results come back best ROI first, failures
// last.
func Sweep(ctx context.Context, all []*series.Series, grid Grid, base Params, workers int) ([]SweepResult, error) {
	if len(all) == 0 {
		return nil, core.Errorf(core.ErrInvalidInput, "no series to sweep")
	}
	if len(grid.BuyThresholds) == 0 {
		return nil, core.Errorf(core.ErrInvalidArgument, "sweep grid has no buy thresholds")
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	sells := grid.SellThresholds
	if len(sells) == 0 {
		sells = []float64{base.SellThreshold}
	}

	results := make([]SweepResult, 0, len(all)*grid.Size())
	for _, s := range all {
		for _, buy := range grid.BuyThresholds {
			for _, sell := range sells {
				results = append(results, SweepResult{Horizon: s.Horizon, BuyThreshold: buy, SellThreshold: sell})
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	perSeries := len(results) / len(all)
	for i := range results {
		s := all[i/perSeries]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p := base
			p.BuyThreshold = results[i].BuyThreshold
			p.SellThreshold = results[i].SellThreshold
			results[i].Result, results[i].Err = Run(s, p)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if (a.Err == nil) != (b.Err == nil) {
			return a.Err == nil
		}
		if a.Err != nil {
			return false
		}
		return a.Result.ROIPercent > b.Result.ROIPercent
	})

	return results, nil
}

// Failures counts the grid points that did not produce a result.
func Failures(results []SweepResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
