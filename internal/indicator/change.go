package indicator

import "math"

// OpenCloseChange calculates the rolling percentage change between each
// open and the close horizon bars earlier:
//
//	change[i] = (open[i] - close[i-horizon]) / close[i-horizon]
//
// Returns slice of length len(opens). The first horizon entries, and any entry
// whose reference close is zero, are NaN.
func OpenCloseChange(opens, closes []float64, horizon int) []float64 {
	result := make([]float64, len(opens))
	for i := range result {
		result[i] = math.NaN()
	}
	if horizon <= 0 || len(closes) != len(opens) {
		return result
	}

	for i := horizon; i < len(opens); i++ {
		ref := closes[i-horizon]
		if ref == 0 {
			continue
		}
		result[i] = (opens[i] - ref) / ref
	}

	return result
}

// ChangeTable calculates OpenCloseChange for every horizon in 1..maxHorizon.
// table[h-1] holds the column for horizon h.
func ChangeTable(opens, closes []float64, maxHorizon int) [][]float64 {
	if maxHorizon <= 0 {
		return [][]float64{}
	}

	table := make([][]float64, 0, maxHorizon)
	for h := 1; h <= maxHorizon; h++ {
		table = append(table, OpenCloseChange(opens, closes, h))
	}
	return table
}
