package chart

import (
	"context"
	"fmt"
	"path"
	"runtime"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/newthinker/fxlab/internal/core"
	"github.com/newthinker/fxlab/internal/metrics"
	"github.com/newthinker/fxlab/internal/storage/archive"
)

// Labeler renders every window of a series as a candlestick image named
// <index>.<Label>.png, building an image classification dataset.
type Labeler struct {
	Store   archive.Storage
	Prefix  string
	Window  int // candles per image
	Target  int // bars after the window's last bar that decide the label
	BuyPct  float64
	SellPct float64
	Style   Style

	// IndexBase offsets image indices so batches of one series do not collide.
	IndexBase int
	Workers   int
	Metrics   *metrics.Registry
	Logger    *zap.Logger
}

func (l *Labeler) validate() error {
	if l.Store == nil {
		return core.Errorf(core.ErrConfigMissing, "labeler has no archive storage")
	}
	if l.Window <= 0 {
		return core.Errorf(core.ErrInvalidArgument, "window must be positive, got %d", l.Window)
	}
	if l.Target <= 0 {
		return core.Errorf(core.ErrInvalidArgument, "target must be positive, got %d", l.Target)
	}
	if l.BuyPct < 0 || l.SellPct < 0 {
		return core.Errorf(core.ErrInvalidArgument, "label percentages must be non-negative")
	}
	return nil
}

// Windows returns how many labelled images n bars yield.
func (l *Labeler) Windows(n int) int {
	if w := n - l.Window - l.Target + 1; w > 0 {
		return w
	}
	return 0
}

// Run renders and stores every labelled window of bars and returns the
// number of images written per label.
func (l *Labeler) Run(ctx context.Context, bars []core.Bar) (map[Label]int, error) {
	if err := l.validate(); err != nil {
		return nil, err
	}
	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := l.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var mu sync.Mutex
	counts := map[Label]int{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for start := 0; start < l.Windows(len(bars)); start++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			label, err := l.render(gctx, bars, start)
			if err != nil {
				return err
			}
			mu.Lock()
			counts[label]++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Info("labelled charts written",
		zap.String("prefix", l.Prefix),
		zap.Int("buy", counts[Buy]),
		zap.Int("sell", counts[Sell]),
		zap.Int("hold", counts[Hold]),
	)
	return counts, nil
}

func (l *Labeler) render(ctx context.Context, bars []core.Bar, start int) (Label, error) {
	end := start + l.Window
	label, ok := Classify(bars, end, l.Target, l.BuyPct, l.SellPct)
	if !ok {
		return "", core.Errorf(core.ErrInvalidArgument, "window at %d has no target bar", start)
	}

	p, err := Candles(bars[start:end], l.Style)
	if err != nil {
		return "", err
	}
	img, err := RenderPNG(p, l.Style)
	if err != nil {
		return "", err
	}

	name := path.Join(l.Prefix, fmt.Sprintf("%d.%s.png", l.IndexBase+start, label))
	if err := l.Store.Write(ctx, name, img); err != nil {
		return "", err
	}
	if l.Metrics != nil {
		l.Metrics.RecordChart(string(label))
	}
	return label, nil
}
