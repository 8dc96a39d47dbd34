// Package trajectory implements the stroke matching engine: curve
// simplification, key-point extraction, normalization, feature extraction and
// a DTW-based similarity metric.
//
// Every function in this package is a pure function of its arguments. Nothing
// here performs I/O, logs, or keeps state between calls, so callers may match
// independent stroke pairs from as many goroutines as they like.
package trajectory

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Point is a single stroke sample in screen or normalized space.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Orb converts p to an orb.Point.
func (p Point) Orb() orb.Point {
	return orb.Point{p.X, p.Y}
}

// FromOrb converts an orb.Point to a Point.
func FromOrb(p orb.Point) Point {
	return Point{X: p[0], Y: p[1]}
}

// LineString converts a stroke to an orb.LineString.
func LineString(points []Point) orb.LineString {
	ls := make(orb.LineString, len(points))
	for i, p := range points {
		ls[i] = p.Orb()
	}
	return ls
}

// Vector is the displacement between two samples.
// Angle is atan2(DY, DX) in (-π, π], or 0 when Distance is 0.
type Vector struct {
	DX       float64
	DY       float64
	Angle    float64
	Distance float64
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return planar.Distance(a.Orb(), b.Orb())
}

// VectorBetween returns the vector from start to end.
func VectorBetween(start, end Point) Vector {
	v := Vector{
		DX:       end.X - start.X,
		DY:       end.Y - start.Y,
		Distance: Distance(start, end),
	}
	if v.Distance > 0 {
		v.Angle = math.Atan2(v.DY, v.DX)
	}
	return v
}

// AngleDifference returns the signed rotation from heading a to heading b,
// wrapped into (-π, π].
func AngleDifference(a, b float64) float64 {
	// math.Mod truncates toward zero; shift negative remainders so this is a
	// floored modulo.
	d := math.Mod(b-a+math.Pi, 2*math.Pi)
	if d < 0 {
		d += 2 * math.Pi
	}
	d -= math.Pi
	if d <= -math.Pi {
		d += 2 * math.Pi
	}
	return d
}

// PathLength returns the summed length of consecutive segments.
func PathLength(points []Point) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += Distance(points[i-1], points[i])
	}
	return total
}

// Centroid returns the arithmetic mean of points, or the zero Point when
// points is empty.
func Centroid(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}
	var sumX, sumY float64
	for _, p := range points {
		sumX += p.X
		sumY += p.Y
	}
	n := float64(len(points))
	return Point{X: sumX / n, Y: sumY / n}
}

// clone returns a copy of points that shares no storage with the input.
func clone(points []Point) []Point {
	if points == nil {
		return nil
	}
	out := make([]Point, len(points))
	copy(out, points)
	return out
}
