package core

import "time"

// Granularity is a candle interval in broker notation ("M1", "H1", "D").
type Granularity string

const (
	GranularityM1  Granularity = "M1"
	GranularityM5  Granularity = "M5"
	GranularityM15 Granularity = "M15"
	GranularityH1  Granularity = "H1"
	GranularityH4  Granularity = "H4"
	GranularityD   Granularity = "D"
)

// Duration returns the length of one candle, or zero if unknown.
func (g Granularity) Duration() time.Duration {
	switch g {
	case GranularityM1:
		return time.Minute
	case GranularityM5:
		return 5 * time.Minute
	case GranularityM15:
		return 15 * time.Minute
	case GranularityH1:
		return time.Hour
	case GranularityH4:
		return 4 * time.Hour
	case GranularityD:
		return 24 * time.Hour
	default:
		return 0
	}
}

// Bar represents a candlestick/bar
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Midpoint returns the average of the open and close prices.
func (b Bar) Midpoint() float64 {
	return (b.Open + b.Close) / 2
}

// IsUp reports whether the bar closed at or above its open.
func (b Bar) IsUp() bool {
	return b.Close >= b.Open
}

// Side is the direction of a trade
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)
