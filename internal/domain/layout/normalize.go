package layout

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// sumTolerance is how far from 100 a vector may sum and still count as valid.
const sumTolerance = 1e-6

// minPaneFloor is the smallest share, in percent, any pane may shrink to.
const minPaneFloor = 0.5

// normalize rescales sizes to sum to 100 and lifts every element to at least
// minPct. Vectors that are already valid come back unchanged. It reports false
// for empty input or input with no positive mass.
func normalize(in []float64, minPct float64) ([]float64, bool) {
	if len(in) == 0 {
		return nil, false
	}

	out := make([]float64, len(in))
	for i, v := range in {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			v = 0
		}
		out[i] = v
	}
	sum := floats.Sum(out)
	if sum <= 0 {
		return nil, false
	}

	if math.Abs(sum-100) > sumTolerance {
		floats.Scale(100/sum, out)
	}
	return clampMin(out, minPct), true
}

// clampMin raises panes below minPct to minPct and takes the difference from
// the other panes in proportion to their room above the minimum. sizes must
// sum to 100; it is modified in place.
func clampMin(sizes []float64, minPct float64) []float64 {
	n := len(sizes)
	if n == 0 {
		return sizes
	}
	if limit := 100 / float64(n); minPct > limit {
		minPct = limit
	}

	fixed := make([]bool, n)
	for round := 0; round < n; round++ {
		deficit := 0.0
		for i, v := range sizes {
			if !fixed[i] && v < minPct {
				deficit += minPct - v
				sizes[i] = minPct
				fixed[i] = true
			}
		}
		if deficit == 0 {
			return sizes
		}

		room := 0.0
		for i, v := range sizes {
			if !fixed[i] {
				room += v - minPct
			}
		}
		if room <= 0 {
			return sizes
		}
		for i, v := range sizes {
			if !fixed[i] {
				sizes[i] = v - deficit*(v-minPct)/room
			}
		}
	}
	return sizes
}

// minPercent converts a pixel floor to a percentage of extent, never below
// minPaneFloor.
func minPercent(floorPx, extentPx float64) float64 {
	if floorPx <= 0 || extentPx <= 0 {
		return minPaneFloor
	}
	return max(floorPx/extentPx*100, minPaneFloor)
}
