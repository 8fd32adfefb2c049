package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance_KnownPairs(t *testing.T) {
	tests := []struct {
		name       string
		a, b       Point
		wantKm     float64
		toleranceK float64
	}{
		{"london to paris", Point{51.5074, -0.1278}, Point{48.8566, 2.3522}, 343.5, 1.5},
		{"new york to los angeles", Point{40.7128, -74.0060}, Point{34.0522, -118.2437}, 3935.7, 5},
		{"one degree of latitude", Point{0, 0}, Point{1, 0}, 111.19, 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.wantKm, tt.a.DistanceTo(tt.b), tt.toleranceK)
		})
	}
}

func TestDistance_SymmetryAndIdentity(t *testing.T) {
	points := []Point{
		{0, 0}, {51.5, -0.12}, {-33.86, 151.2}, {89.9, 179.9}, {-89.9, -179.9}, {35.68, 139.69},
	}
	for _, a := range points {
		assert.Zero(t, a.DistanceTo(a))
		for _, b := range points {
			assert.InDelta(t, a.DistanceTo(b), b.DistanceTo(a), 1e-9)
			assert.GreaterOrEqual(t, a.DistanceTo(b), 0.0)
		}
	}
}

func TestDistance_AntipodalIsHalfCircumference(t *testing.T) {
	d := Distance(0, 0, 0, 180)
	assert.InDelta(t, math.Pi*EarthRadiusKm, d, 1e-6)
	assert.False(t, math.IsNaN(d))
}

func TestPoint_Valid(t *testing.T) {
	assert.True(t, Point{Lat: 90, Lng: -180}.Valid())
	assert.False(t, Point{Lat: 90.1, Lng: 0}.Valid())
	assert.False(t, Point{Lat: 0, Lng: 181}.Valid())
	assert.False(t, Point{Lat: math.NaN(), Lng: 0}.Valid())
}
