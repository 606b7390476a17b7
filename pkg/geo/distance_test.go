package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDistanceIsSymmetric(t *testing.T) {
	points := []Point{
		{Lat: 1.3521, Lon: 103.8198},
		{Lat: 1.2840, Lon: 103.8510},
		{Lat: -33.8688, Lon: 151.2093},
		{Lat: 51.5074, Lon: -0.1278},
		{Lat: 90, Lon: 0},
		{Lat: -90, Lon: 180},
		{Lat: 45, Lon: 0},
		{Lat: -45, Lon: 180},
		{Lat: -86.78, Lon: -179},
		{Lat: 86.78, Lon: 1},
	}
	for _, a := range points {
		for _, b := range points {
			require.InDelta(t, Distance(a, b), Distance(b, a), 1e-6, "a=%v b=%v", a, b)
		}
	}
}

func TestDistanceAntipodalIsFinite(t *testing.T) {
	halfCircumference := EarthRadiusMeters * math.Pi
	for lat := -90.0; lat <= 90; lat += 0.37 {
		for lon := -180.0; lon <= 0; lon += 1.3 {
			a := Point{Lat: lat, Lon: lon}
			b := Point{Lat: -lat, Lon: lon + 180}
			d := Distance(a, b)
			require.False(t, math.IsNaN(d), "a=%v b=%v", a, b)
			require.InDelta(t, halfCircumference, d, 1, "a=%v b=%v", a, b)
			require.Equal(t, d, Distance(b, a), "a=%v b=%v", a, b)
		}
	}
}

func TestDistanceZeroForSamePoint(t *testing.T) {
	for _, p := range []Point{{}, {Lat: 1.3, Lon: 103.8}, {Lat: -45.5, Lon: -170.25}} {
		require.InDelta(t, 0, Distance(p, p), 1e-9)
	}
}

func TestDistanceKnownValues(t *testing.T) {
	// One degree of latitude along a meridian.
	oneDegree := EarthRadiusMeters * math.Pi / 180
	require.InDelta(t, oneDegree, Distance(Point{Lat: 0, Lon: 0}, Point{Lat: 1, Lon: 0}), 1e-6)

	// Antipodal points are half the circumference apart.
	require.InDelta(t, EarthRadiusMeters*math.Pi, Distance(Point{Lat: 0, Lon: 0}, Point{Lat: 0, Lon: 180}), 1e-3)
}

func TestPointValid(t *testing.T) {
	require.True(t, Point{Lat: 90, Lon: -180}.Valid())
	require.False(t, Point{Lat: 90.1, Lon: 0}.Valid())
	require.False(t, Point{Lat: 0, Lon: 180.5}.Valid())
}
