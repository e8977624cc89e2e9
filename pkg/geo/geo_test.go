package geo

import (
	"math"
	"testing"
)

func TestHaversineSamePoint(t *testing.T) {
	p := Point{Latitude: 5.56, Longitude: -0.205}
	if d := Haversine(p, p); d != 0 {
		t.Fatalf("expected 0, got %v", d)
	}
}

func TestHaversineSymmetric(t *testing.T) {
	a := Point{Latitude: 5.5600, Longitude: -0.2050}
	b := Point{Latitude: 6.6885, Longitude: -1.6244}
	if Haversine(a, b) != Haversine(b, a) {
		t.Fatal("distance should be symmetric")
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// Accra -> Kumasi，约 200 km
	a := Point{Latitude: 5.6037, Longitude: -0.1870}
	b := Point{Latitude: 6.6885, Longitude: -1.6244}
	d := Haversine(a, b)
	if math.Abs(d-199.8) > 2 {
		t.Fatalf("unexpected distance %v km", d)
	}
}

func TestWithinRadiusBoundary(t *testing.T) {
	tests := []struct {
		km   float64
		want bool
	}{
		{0, true},
		{0.005, true},
		{0.010, true},
		{0.01001, false},
		{1, false},
	}
	for _, tt := range tests {
		if got := WithinRadius(tt.km, ProximityThresholdMeters); got != tt.want {
			t.Errorf("WithinRadius(%v) = %v, want %v", tt.km, got, tt.want)
		}
	}
}

func TestNearby(t *testing.T) {
	origin := Fallback
	// 纬度 1 度约 111.195 km，所以 0.00008 度约 8.9 m，0.0001 度约 11.1 m
	candidates := []Candidate[string]{
		{Item: "far", Point: Point{Latitude: origin.Latitude + 0.0001, Longitude: origin.Longitude}},
		{Item: "near", Point: Point{Latitude: origin.Latitude + 0.00008, Longitude: origin.Longitude}},
		{Item: "same", Point: origin},
	}

	got := Nearby(origin, candidates, ProximityThresholdMeters)
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %+v", got)
	}
	if got[0].Item != "same" || got[1].Item != "near" {
		t.Fatalf("expected sorted by distance, got %+v", got)
	}
}
