package indicator

import (
	"math"
	"testing"
)

func TestOpenCloseChange_Calculate(t *testing.T) {
	opens := []float64{1.00, 1.02, 1.10, 0.99}
	closes := []float64{1.00, 1.05, 1.08, 1.00}

	change := OpenCloseChange(opens, closes, 2)

	// change[2] = (1.10 - 1.00) / 1.00 = 0.10
	// change[3] = (0.99 - 1.05) / 1.05
	if len(change) != 4 {
		t.Fatalf("expected 4 values, got %d", len(change))
	}
	for i := 0; i < 2; i++ {
		if !math.IsNaN(change[i]) {
			t.Errorf("change[%d] = %f, want NaN", i, change[i])
		}
	}
	if math.Abs(change[2]-0.10) > 1e-12 {
		t.Errorf("change[2] = %f, want 0.10", change[2])
	}
	if math.Abs(change[3]-(0.99-1.05)/1.05) > 1e-12 {
		t.Errorf("change[3] = %f, want %f", change[3], (0.99-1.05)/1.05)
	}
}

func TestOpenCloseChange_HorizonTooLarge(t *testing.T) {
	change := OpenCloseChange([]float64{1, 2}, []float64{1, 2}, 5)

	for i, v := range change {
		if !math.IsNaN(v) {
			t.Errorf("change[%d] = %f, want NaN", i, v)
		}
	}
}

func TestOpenCloseChange_ZeroReference(t *testing.T) {
	change := OpenCloseChange([]float64{1, 2}, []float64{0, 2}, 1)

	if !math.IsNaN(change[1]) {
		t.Errorf("expected NaN for zero reference close, got %f", change[1])
	}
}

func TestChangeTable(t *testing.T) {
	opens := []float64{1, 2, 3, 4, 5}
	closes := []float64{1, 2, 3, 4, 5}

	table := ChangeTable(opens, closes, 3)
	if len(table) != 3 {
		t.Fatalf("expected 3 columns, got %d", len(table))
	}

	// horizon 3 at index 4: (5 - 2) / 2
	if got := table[2][4]; got != 1.5 {
		t.Errorf("table[2][4] = %f, want 1.5", got)
	}
	if !math.IsNaN(table[2][2]) {
		t.Errorf("table[2][2] = %f, want NaN", table[2][2])
	}
}

func TestChangeTable_Empty(t *testing.T) {
	if got := ChangeTable(nil, nil, 0); len(got) != 0 {
		t.Errorf("expected no columns, got %d", len(got))
	}
}
