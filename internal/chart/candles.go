package chart

import (
	"bytes"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/newthinker/fxlab/internal/core"
)

var (
	Green = color.RGBA{R: 0x33, G: 0x99, B: 0x33, A: 0xff}
	Red   = color.RGBA{R: 0xff, G: 0x33, B: 0x00, A: 0xff}
)

// Style controls how a window of candles is drawn
type Style struct {
	Width     vg.Length
	Height    vg.Length
	Up        color.Color
	Down      color.Color
	BodyWidth float64 // fraction of the slot each candle body fills
	Axes      bool
}

// DefaultStyle draws bare 640x480 pixel images, green up and red down.
func DefaultStyle() Style {
	return Style{
		Width:     640 * vg.Inch / 96,
		Height:    480 * vg.Inch / 96,
		Up:        Green,
		Down:      Red,
		BodyWidth: 0.6,
	}
}

// Candlesticks implements plot.Plotter for bars laid out at x = 0..n-1
type Candlesticks struct {
	Bars      []core.Bar
	Up        color.Color
	Down      color.Color
	BodyWidth float64
	LineStyle draw.LineStyle
}

// NewCandlesticks returns a plotter for bars in the given style.
func NewCandlesticks(bars []core.Bar, style Style) *Candlesticks {
	return &Candlesticks{
		Bars:      bars,
		Up:        style.Up,
		Down:      style.Down,
		BodyWidth: style.BodyWidth,
		LineStyle: draw.LineStyle{Width: vg.Points(1)},
	}
}

// Plot implements the plot.Plotter interface.
func (cs *Candlesticks) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)
	half := (trX(1) - trX(0)) * vg.Length(cs.BodyWidth) / 2

	for i, b := range cs.Bars {
		col := cs.Down
		if b.IsUp() {
			col = cs.Up
		}
		x := trX(float64(i))

		wick := cs.LineStyle
		wick.Color = col
		c.StrokeLine2(wick, x, trY(b.Low), x, trY(b.High))

		top, bottom := trY(math.Max(b.Open, b.Close)), trY(math.Min(b.Open, b.Close))
		if top-bottom < wick.Width {
			// Doji: draw the body as a flat tick.
			c.StrokeLine2(wick, x-half, top, x+half, top)
			continue
		}
		body := []vg.Point{
			{X: x - half, Y: bottom},
			{X: x - half, Y: top},
			{X: x + half, Y: top},
			{X: x + half, Y: bottom},
		}
		c.FillPolygon(col, c.ClipPolygonXY(body))
	}
}

// DataRange implements the plot.DataRanger interface.
func (cs *Candlesticks) DataRange() (xmin, xmax, ymin, ymax float64) {
	xmin, xmax = -0.5, float64(len(cs.Bars))-0.5
	ymin, ymax = math.Inf(1), math.Inf(-1)
	for _, b := range cs.Bars {
		ymin = math.Min(ymin, b.Low)
		ymax = math.Max(ymax, b.High)
	}
	return xmin, xmax, ymin, ymax
}

// Candles builds a candlestick plot of bars.
func Candles(bars []core.Bar, style Style) (*plot.Plot, error) {
	if len(bars) == 0 {
		return nil, core.Errorf(core.ErrInvalidArgument, "no bars to chart")
	}

	p := plot.New()
	p.Add(NewCandlesticks(bars, style))
	if !style.Axes {
		p.HideAxes()
	} else {
		p.X.Label.Text = "bar"
		p.Y.Label.Text = "price"
	}
	return p, nil
}

// RenderPNG draws p to PNG bytes at the style's size.
func RenderPNG(p *plot.Plot, style Style) ([]byte, error) {
	wt, err := p.WriterTo(style.Width, style.Height, "png")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
