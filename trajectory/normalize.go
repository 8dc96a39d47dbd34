package trajectory

// minNormalizeLength is the path length below which Normalize only centres.
const minNormalizeLength = 0.001

// Normalize centres points on their centroid and scales them so the total
// path length is 1. Strokes shorter than minNormalizeLength are centred but
// not scaled. The result is unchanged by any translation or positive uniform
// scaling of the input. Fewer than two points yield an empty slice.
func Normalize(points []Point) []Point {
	if len(points) < 2 {
		return []Point{}
	}

	c := Centroid(points)
	scale := 1.0
	if length := PathLength(points); length > minNormalizeLength {
		scale = 1 / length
	}

	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = Point{
			X: (p.X - c.X) * scale,
			Y: (p.Y - c.Y) * scale,
		}
	}
	return out
}
