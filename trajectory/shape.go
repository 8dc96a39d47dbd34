package trajectory

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Shape score weights.
const (
	shapePathWeight      = 0.5
	shapeDirectionWeight = 0.3
	shapeAngleWeight     = 0.2
)

// directionBins is the number of heading buckets, π/4 wide each.
const directionBins = 8

// CompareShapes scores two normalized polylines on a weighted mix of:
//
//   - path: DTW over the flattened x,y,x,y,... coordinate streams
//   - direction: cosine similarity of 8-bin heading histograms
//   - angle: fraction of indices whose outgoing headings agree within
//     angleThreshold, over the longer polyline's length
func CompareShapes(points1, points2 []Point, angleThreshold float64) float64 {
	path := DTW(flatten(points1), flatten(points2), func(a, b float64) float64 {
		return math.Exp(-math.Abs(a - b))
	})
	direction := cosineSimilarity(directionHistogram(points1), directionHistogram(points2))
	angle := keyPointAngleAgreement(points1, points2, angleThreshold)

	return shapePathWeight*path + shapeDirectionWeight*direction + shapeAngleWeight*angle
}

func flatten(points []Point) []float64 {
	out := make([]float64, 0, 2*len(points))
	for _, p := range points {
		out = append(out, p.X, p.Y)
	}
	return out
}

// directionHistogram buckets segment headings, wrapped into [0, 2π), and
// divides by the segment count.
func directionHistogram(points []Point) []float64 {
	bins := make([]float64, directionBins)
	if len(points) < 2 {
		return bins
	}

	width := 2 * math.Pi / directionBins
	for i := 1; i < len(points); i++ {
		heading := math.Mod(math.Atan2(points[i].Y-points[i-1].Y, points[i].X-points[i-1].X), 2*math.Pi)
		if heading < 0 {
			heading += 2 * math.Pi
		}
		bins[int(heading/width)%directionBins]++
	}

	floats.Scale(1/float64(len(points)-1), bins)
	return bins
}

// cosineSimilarity returns 0 when either vector has zero norm.
func cosineSimilarity(a, b []float64) float64 {
	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	if normA*normB <= 0 {
		return 0
	}
	return floats.Dot(a, b) / (normA * normB)
}

// keyPointAngleAgreement compares the heading leaving each index (the last
// index compares with itself) up to the shorter polyline. Dividing by the
// longer length counts the unmatched tail as disagreement.
func keyPointAngleAgreement(points1, points2 []Point, threshold float64) float64 {
	longest := max(len(points1), len(points2))
	if longest == 0 {
		return 0
	}

	matches := 0
	for i := range min(len(points1), len(points2)) {
		h1 := VectorBetween(points1[i], points1[min(i+1, len(points1)-1)]).Angle
		h2 := VectorBetween(points2[i], points2[min(i+1, len(points2)-1)]).Angle
		if math.Abs(AngleDifference(h1, h2)) <= threshold {
			matches++
		}
	}
	return float64(matches) / float64(longest)
}
