package core

import (
	"testing"
	"time"
)

func TestGranularity_Duration(t *testing.T) {
	tests := []struct {
		g    Granularity
		want time.Duration
	}{
		{GranularityM1, time.Minute},
		{GranularityM5, 5 * time.Minute},
		{GranularityM15, 15 * time.Minute},
		{GranularityH1, time.Hour},
		{GranularityH4, 4 * time.Hour},
		{GranularityD, 24 * time.Hour},
		{Granularity("W"), 0},
	}

	for _, tt := range tests {
		if got := tt.g.Duration(); got != tt.want {
			t.Errorf("%s.Duration() = %v, want %v", tt.g, got, tt.want)
		}
	}
}

func TestBar_Midpoint(t *testing.T) {
	b := Bar{Open: 1.2, Close: 1.4}
	if got := b.Midpoint(); got < 1.2999 || got > 1.3001 {
		t.Errorf("Midpoint() = %f, want 1.3", got)
	}
}

func TestBar_IsUp(t *testing.T) {
	if !(Bar{Open: 1, Close: 1.1}).IsUp() {
		t.Error("expected up bar")
	}
	if (Bar{Open: 1.1, Close: 1}).IsUp() {
		t.Error("expected down bar")
	}
}

func TestSide_Constants(t *testing.T) {
	if string(SideBuy) != "buy" || string(SideSell) != "sell" {
		t.Errorf("unexpected side values %q %q", SideBuy, SideSell)
	}
}
