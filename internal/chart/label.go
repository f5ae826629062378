package chart

import "github.com/newthinker/fxlab/internal/core"

// Label classifies what price did after a window
type Label string

const (
	Buy  Label = "Buy"
	Sell Label = "Sell"
	Hold Label = "Hold"
)

// Classify labels the window ending before bars[end] by the open target bars
// after its last bar, relative to that bar's close: Buy at or above
// close*(1+buyPct), Sell at or below close*(1-sellPct), Hold otherwise.
// ok is false when the window or its target falls outside bars.
func Classify(bars []core.Bar, end, target int, buyPct, sellPct float64) (label Label, ok bool) {
	at := end - 1 + target
	if end <= 0 || target < 0 || at >= len(bars) {
		return "", false
	}

	ref := bars[end-1].Close
	next := bars[at].Open
	switch {
	case next >= ref*(1+buyPct):
		return Buy, true
	case next <= ref*(1-sellPct):
		return Sell, true
	default:
		return Hold, true
	}
}
