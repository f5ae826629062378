package chart

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg"

	"github.com/newthinker/fxlab/internal/core"
	"github.com/newthinker/fxlab/internal/metrics"
	"github.com/newthinker/fxlab/internal/storage/archive"
)

var t0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

// barsFromCloses opens each bar at the previous close.
func barsFromCloses(closes ...float64) []core.Bar {
	bars := make([]core.Bar, len(closes))
	prev := closes[0]
	for i, c := range closes {
		bars[i] = core.Bar{
			Time:  t0.Add(time.Duration(i) * time.Hour),
			Open:  prev,
			High:  max(prev, c) + 0.001,
			Low:   min(prev, c) - 0.001,
			Close: c,
		}
		prev = c
	}
	return bars
}

func smallStyle() Style {
	s := DefaultStyle()
	s.Width, s.Height = 64*vg.Inch/96, 48*vg.Inch/96
	return s
}

func TestCandlesticks_DataRange(t *testing.T) {
	cs := NewCandlesticks(barsFromCloses(1.10, 1.12, 1.08), DefaultStyle())
	xmin, xmax, ymin, ymax := cs.DataRange()

	assert.Equal(t, -0.5, xmin)
	assert.Equal(t, 2.5, xmax)
	assert.InDelta(t, 1.079, ymin, 1e-12)
	assert.InDelta(t, 1.121, ymax, 1e-12)
}

func TestCandles_Empty(t *testing.T) {
	_, err := Candles(nil, DefaultStyle())
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestRenderPNG(t *testing.T) {
	style := smallStyle()
	p, err := Candles(barsFromCloses(1.10, 1.12, 1.12, 1.08, 1.09), style)
	require.NoError(t, err)

	data, err := RenderPNG(p, style)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 48, img.Bounds().Dy())
}

func TestClassify(t *testing.T) {
	// Window of two bars ending at index 1 (close 1.00); target opens follow.
	bars := barsFromCloses(1.00, 1.00, 1.05, 0.94, 1.00)

	tests := []struct {
		name   string
		target int
		want   Label
	}{
		{"flat holds", 1, Hold},       // bars[2].Open = 1.00
		{"rise clears buy", 2, Buy},   // bars[3].Open = 1.05
		{"drop clears sell", 3, Sell}, // bars[4].Open = 0.94
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Classify(bars, 2, tt.target, 0.03, 0.03)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := Classify(bars, 2, 4, 0.03, 0.03)
	assert.False(t, ok)
	_, ok = Classify(bars, 0, 1, 0.03, 0.03)
	assert.False(t, ok)
}

func TestLabeler_Run(t *testing.T) {
	store, err := archive.NewLocalFS(t.TempDir())
	require.NoError(t, err)
	reg := metrics.NewRegistry()

	bars := barsFromCloses(1.00, 1.01, 1.00, 1.02, 1.08, 1.07, 0.99, 1.00, 1.00, 1.01)
	l := &Labeler{
		Store:     store,
		Prefix:    "charts/EUR_USD",
		Window:    3,
		Target:    2,
		BuyPct:    0.03,
		SellPct:   0.03,
		Style:     smallStyle(),
		IndexBase: 100,
		Workers:   2,
		Metrics:   reg,
	}
	require.Equal(t, 6, l.Windows(len(bars)))

	counts, err := l.Run(context.Background(), bars)
	require.NoError(t, err)
	assert.Equal(t, 6, counts[Buy]+counts[Sell]+counts[Hold])

	paths, err := store.List(context.Background(), "charts/EUR_USD")
	require.NoError(t, err)
	require.Len(t, paths, 6)

	for start := 0; start < 6; start++ {
		label, ok := Classify(bars, start+3, 2, 0.03, 0.03)
		require.True(t, ok)
		exists, err := store.Exists(context.Background(), fmt.Sprintf("charts/EUR_USD/%d.%s.png", 100+start, label))
		require.NoError(t, err)
		assert.True(t, exists, "window %d", start)
	}
}

func TestLabeler_Invalid(t *testing.T) {
	store, err := archive.NewLocalFS(t.TempDir())
	require.NoError(t, err)

	tests := []struct {
		name string
		l    Labeler
		want error
	}{
		{"no store", Labeler{Window: 3, Target: 1}, core.ErrConfigMissing},
		{"zero window", Labeler{Store: store, Target: 1}, core.ErrInvalidArgument},
		{"zero target", Labeler{Store: store, Window: 3}, core.ErrInvalidArgument},
		{"negative pct", Labeler{Store: store, Window: 3, Target: 1, BuyPct: -0.1}, core.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.l.Run(context.Background(), barsFromCloses(1, 1, 1, 1, 1))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLabeler_TooFewBars(t *testing.T) {
	store, err := archive.NewLocalFS(t.TempDir())
	require.NoError(t, err)

	l := &Labeler{Store: store, Window: 5, Target: 3, Style: smallStyle()}
	counts, err := l.Run(context.Background(), barsFromCloses(1, 1, 1))
	require.NoError(t, err)
	assert.Empty(t, counts)
}
