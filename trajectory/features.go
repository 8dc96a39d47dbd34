package trajectory

import "math"

// Features is the rotation-aware description of a stroke that Match compares.
type Features struct {
	// Directions holds one heading per segment of Normalized.
	Directions []float64 `json:"directions"`

	// RelativeAngles holds the signed turn between consecutive segments.
	RelativeAngles []float64 `json:"relativeAngles"`

	// Normalized is KeyPoints centred and scaled to unit path length.
	Normalized []Point `json:"normalized"`

	KeyPoints []Point `json:"keyPoints"`

	// TurnCount counts relative angles of at least MinAngleChange.
	TurnCount int `json:"turnCount"`
}

// ExtractFeatures computes the Features of a stroke.
//
// Fewer than two points give empty Features. A two-point stroke has a single
// direction, no turns, and skips key-point extraction.
func ExtractFeatures(points []Point, opts KeyPointOptions) Features {
	if len(points) < 2 {
		return Features{
			Directions:     []float64{},
			RelativeAngles: []float64{},
			Normalized:     []Point{},
			KeyPoints:      []Point{},
		}
	}

	if len(points) == 2 {
		return Features{
			Directions:     []float64{VectorBetween(points[0], points[1]).Angle},
			RelativeAngles: []float64{},
			Normalized:     Normalize(points),
			KeyPoints:      clone(points),
		}
	}

	keyPoints := ExtractKeyPoints(points, opts)
	normalized := Normalize(keyPoints)

	f := Features{
		Directions:     make([]float64, 0, len(normalized)),
		RelativeAngles: make([]float64, 0, len(normalized)),
		Normalized:     normalized,
		KeyPoints:      keyPoints,
	}

	for i := 1; i < len(normalized); i++ {
		heading := VectorBetween(normalized[i-1], normalized[i]).Angle
		f.Directions = append(f.Directions, heading)
		if i < 2 {
			continue
		}
		turn := AngleDifference(f.Directions[i-2], heading)
		f.RelativeAngles = append(f.RelativeAngles, turn)
		if math.Abs(turn) >= opts.MinAngleChange {
			f.TurnCount++
		}
	}

	return f
}
