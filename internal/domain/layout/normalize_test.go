package layout

import (
	"math"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		in     []float64
		minPct float64
		want   []float64
		ok     bool
	}{
		{name: "empty", in: nil, ok: false},
		{name: "negative mass", in: []float64{-1, -2}, ok: false},
		{name: "valid unchanged", in: []float64{20, 80}, minPct: 10, want: []float64{20, 80}, ok: true},
		{name: "rescaled", in: []float64{1, 3}, want: []float64{25, 75}, ok: true},
		{name: "nan treated as zero", in: []float64{math.NaN(), 50}, minPct: 10, want: []float64{10, 90}, ok: true},
		{name: "minimum capped at equal share", in: []float64{10, 90}, minPct: 80, want: []float64{50, 50}, ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := normalize(tt.in, tt.minPct)
			if ok != tt.ok {
				t.Fatalf("normalize() ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("normalize() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if math.Abs(got[i]-tt.want[i]) > 1e-9 {
					t.Errorf("normalize() = %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestMinPercent(t *testing.T) {
	if got := minPercent(100, 1280); math.Abs(got-7.8125) > 1e-9 {
		t.Errorf("minPercent(100, 1280) = %v", got)
	}
	if got := minPercent(100, 0); got != minPaneFloor {
		t.Errorf("minPercent with zero extent = %v, want %v", got, minPaneFloor)
	}
	if got := minPercent(0, 1280); got != minPaneFloor {
		t.Errorf("minPercent with zero floor = %v, want %v", got, minPaneFloor)
	}
	if got := minPercent(1, 10000); got != minPaneFloor {
		t.Errorf("minPercent with tiny floor = %v, want %v", got, minPaneFloor)
	}
}
