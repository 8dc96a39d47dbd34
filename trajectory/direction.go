package trajectory

import (
	"math"
	"strings"
)

// Direction is a coarse screen-space heading. Screen y grows downward, so a
// heading of +π/2 points Down.
type Direction string

const (
	Right Direction = "Right"
	Down  Direction = "Down"
	Left  Direction = "Left"
	Up    Direction = "Up"
)

// DirectionLabel quantizes a heading (radians) to the nearest of the four
// screen directions. A heading exactly on a boundary takes the next
// direction clockwise on screen (Right, Down, Left, Up).
func DirectionLabel(angle float64) Direction {
	a := math.Mod(angle, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	switch {
	case a < math.Pi/4 || a >= 7*math.Pi/4:
		return Right
	case a < 3*math.Pi/4:
		return Down
	case a < 5*math.Pi/4:
		return Left
	default:
		return Up
	}
}

// Describe names a stroke by the directions of its feature segments with
// consecutive repeats collapsed, e.g. "DownRight" for an L drawn top to
// bottom then left to right. Strokes too short to have a direction describe
// as "".
func Describe(points []Point, opts KeyPointOptions) string {
	f := ExtractFeatures(points, opts)

	var b strings.Builder
	var prev Direction
	for _, heading := range f.Directions {
		d := DirectionLabel(heading)
		if d == prev {
			continue
		}
		b.WriteString(string(d))
		prev = d
	}
	return b.String()
}
