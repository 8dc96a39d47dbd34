package trajectory

import "math"

// Combined score weights.
const (
	directionWeight = 0.4
	angleWeight     = 0.3
	shapeWeight     = 0.3
)

// MatchResult is the verdict for a pair of strokes.
type MatchResult struct {
	Matched    bool    `json:"matched"`
	Similarity float64 `json:"similarity"`
}

// Match compares two strokes and reports their similarity in [0,1] and
// whether it reaches opts.MinSimilarity.
//
// Strokes with fewer than two points never match. Two straight two-point
// strokes are compared on heading alone. Otherwise the score combines DTW
// over segment headings, DTW over turn angles and CompareShapes over the
// normalized key points, scaled down by the difference in turn counts.
//
// A non-positive AngleThreshold or key-point tunable falls back to its
// default, so the zero MatchOptions scores like DefaultMatchOptions with a
// MinSimilarity of 0.
func Match(t1, t2 []Point, opts MatchOptions) MatchResult {
	if len(t1) < 2 || len(t2) < 2 {
		return MatchResult{}
	}
	opts = opts.withDefaults()

	if len(t1) == 2 && len(t2) == 2 {
		h1 := VectorBetween(t1[0], t1[1]).Angle
		h2 := VectorBetween(t2[0], t2[1]).Angle
		similarity := math.Exp(-math.Abs(AngleDifference(h1, h2)) / opts.AngleThreshold)
		return verdict(clamp01(similarity), opts)
	}

	f1 := ExtractFeatures(t1, opts.KeyPoints)
	f2 := ExtractFeatures(t2, opts.KeyPoints)

	turnDiff := math.Abs(float64(f1.TurnCount - f2.TurnCount))
	turnPenalty := math.Exp(-turnDiff * opts.TurnCountPenalty)

	direction := DTW(f1.Directions, f2.Directions, func(a, b float64) float64 {
		return math.Exp(-math.Abs(AngleDifference(a, b)) / opts.AngleThreshold)
	})

	// Turn angles are held to half the heading tolerance.
	angle := DTW(f1.RelativeAngles, f2.RelativeAngles, func(a, b float64) float64 {
		return math.Exp(-math.Abs(a-b) / (opts.AngleThreshold * 0.5))
	})

	shape := CompareShapes(f1.Normalized, f2.Normalized, opts.AngleThreshold)

	base := directionWeight*direction + angleWeight*angle + shapeWeight*shape
	return verdict(clamp01(base*turnPenalty), opts)
}

func verdict(similarity float64, opts MatchOptions) MatchResult {
	return MatchResult{
		Matched:    similarity >= opts.MinSimilarity,
		Similarity: similarity,
	}
}

// clamp01 maps v into [0,1]; NaN maps to 0.
func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
