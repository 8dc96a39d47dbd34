package trajectory

import "math"

// minSegmentFloor keeps the segment-length threshold above zero for strokes
// whose samples all sit on one spot.
const minSegmentFloor = 0.001

// ExtractKeyPoints reduces a dense stroke to the samples where it turns or
// has run straight for long enough.
//
// Walking from the third sample, the absolute heading change between the
// reference segment and the current segment is accumulated. The previous
// sample becomes a key point once the accumulated change exceeds
// opts.MinAngleChange, or once it lies farther than
// opts.MinSegmentRatio*PathLength from the last key point. Accumulating the
// change picks up gradual curves no single step would trigger on; the length
// rule picks up long straight runs.
//
// The first and last samples are always key points. The candidate list is
// then thinned by filterKeyPoints.
func ExtractKeyPoints(points []Point, opts KeyPointOptions) []Point {
	if len(points) < 2 {
		return []Point{}
	}
	if len(points) == 2 {
		return []Point{points[0], points[1]}
	}

	minSegment := math.Max(PathLength(points)*opts.MinSegmentRatio, minSegmentFloor)

	keyPoints := []Point{points[0]}
	reference := VectorBetween(points[0], points[1])
	accumulated := 0.0

	for i := 2; i < len(points); i++ {
		current := VectorBetween(points[i-1], points[i])
		accumulated += math.Abs(AngleDifference(reference.Angle, current.Angle))
		segment := Distance(keyPoints[len(keyPoints)-1], points[i])

		if accumulated > opts.MinAngleChange || segment > minSegment {
			keyPoints = append(keyPoints, points[i-1])
			reference = current
			accumulated = 0
		}
	}

	keyPoints = append(keyPoints, points[len(points)-1])
	return filterKeyPoints(keyPoints, minSegment)
}

// filterKeyPoints drops interior key points that sit too close to their
// predecessor for the overall scale of the gesture. The cut-off is
// minDist scaled by min(0.6, 0.3*avgSpacing/minDist), so sparse key-point
// sets prune harder than dense ones.
//
// Each point is compared with the point before it in the input list, not the
// last point kept.
func filterKeyPoints(points []Point, minDist float64) []Point {
	if len(points) <= 2 {
		return clone(points)
	}

	avgSpacing := PathLength(points) / float64(len(points)-1)
	factor := math.Min(0.6, 0.3*(avgSpacing/minDist))
	cutoff := minDist * factor

	last := len(points) - 1
	out := make([]Point, 0, len(points))
	for i, p := range points {
		if i == 0 || i == last || Distance(p, points[i-1]) >= cutoff {
			out = append(out, p)
		}
	}
	return out
}
