package trajectory

import "github.com/paulmach/orb/planar"

// DefaultSimplifyTolerance is the Douglas-Peucker tolerance, in input units,
// used when a caller has no better value.
const DefaultSimplifyTolerance = 10.0

// Simplify reduces a stroke with the Douglas-Peucker algorithm. A span is
// collapsed to its endpoints when no interior point lies farther than
// tolerance from the segment joining them; otherwise it is split at the
// farthest point and both halves are simplified independently.
//
// The result is an order-preserving subsequence that always starts and ends
// with the input's first and last point. Inputs of two points or fewer are
// returned as a copy.
func Simplify(points []Point, tolerance float64) []Point {
	if len(points) <= 2 {
		return clone(points)
	}

	first, last := points[0], points[len(points)-1]

	maxDist := 0.0
	split := 0
	for i := 1; i < len(points)-1; i++ {
		// Distance to the segment, not the infinite line: points beyond
		// either end measure to the nearest endpoint.
		d := planar.DistanceFromSegment(first.Orb(), last.Orb(), points[i].Orb())
		if d > maxDist {
			maxDist = d
			split = i
		}
	}

	// split stays 0 when every interior point lies on the segment, which
	// must collapse even for a negative tolerance.
	if split == 0 || maxDist <= tolerance {
		return []Point{first, last}
	}

	head := Simplify(points[:split+1], tolerance)
	tail := Simplify(points[split:], tolerance)

	// head ends with the split point, which tail starts with.
	out := make([]Point, 0, len(head)-1+len(tail))
	out = append(out, head[:len(head)-1]...)
	return append(out, tail...)
}
