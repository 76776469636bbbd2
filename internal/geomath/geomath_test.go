package geomath

import (
	"math"
	"testing"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
		tol                    float64
	}{
		{"paris to london", 48.8566, 2.3522, 51.5074, -0.1278, 343.5, 1},
		{"same point", 35.6762, 139.6503, 35.6762, 139.6503, 0, 1e-9},
		{"equator quarter turn", 0, 0, 0, 90, math.Pi / 2 * EarthRadiusKM, 1e-6},
		{"antipodes", 10, 20, -10, -160, math.Pi * EarthRadiusKM, 1e-6},
		{"missing guess", 48.8566, 2.3522, math.NaN(), math.NaN(), 0, 0},
		{"missing truth", math.NaN(), 2.3522, 51.5074, -0.1278, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.want) > tt.tol {
				t.Errorf("Distance() = %v, want %v ± %v", got, tt.want, tt.tol)
			}
		})
	}
}

func TestDistanceSymmetric(t *testing.T) {
	pairs := [][4]float64{
		{48.8566, 2.3522, 51.5074, -0.1278},
		{-33.8688, 151.2093, 40.7128, -74.0060},
		{64.1466, -21.9426, -54.8019, -68.3030},
	}
	for _, p := range pairs {
		ab := Distance(p[0], p[1], p[2], p[3])
		ba := Distance(p[2], p[3], p[0], p[1])
		if math.Abs(ab-ba) > 1e-9 {
			t.Errorf("Distance not symmetric for %v: %v vs %v", p, ab, ba)
		}
	}
}

func TestDistanceOpt(t *testing.T) {
	lat, lon := 48.8566, 2.3522
	if got := DistanceOpt(&lat, &lon, nil, nil); got != 0 {
		t.Errorf("DistanceOpt(nil guess) = %v, want 0", got)
	}
	if got := DistanceOpt(&lat, &lon, &lat, &lon); got != 0 {
		t.Errorf("DistanceOpt(same) = %v, want 0", got)
	}
}

func TestScore(t *testing.T) {
	if got := Score(0); got != MaxScore {
		t.Fatalf("Score(0) = %v, want %v", got, MaxScore)
	}

	d := Distance(48.8566, 2.3522, 51.5074, -0.1278)
	want := 5000 * math.Exp(-d/1492.7)
	if got := Score(d); math.Abs(got-want) > 1e-9 || math.Abs(got-3972) > 5 {
		t.Errorf("Score(paris-london) = %v, want ≈ 3972", got)
	}

	prev := Score(0)
	for d := 1.0; d <= 20000; d *= 1.5 {
		s := Score(d)
		if s >= prev {
			t.Fatalf("Score(%v) = %v not below %v", d, s, prev)
		}
		if s <= 0 {
			t.Fatalf("Score(%v) = %v, want > 0", d, s)
		}
		prev = s
	}
}
