package gesture

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/kwv/strokemesh/trajectory"
)

// ---------------------------------------------------------------------------
// stroke fixtures
// ---------------------------------------------------------------------------

// lStroke draws an L: down the y axis, then along x (mirrored for sign -1).
// Each arm has n segments of size/n units.
func lStroke(sign float64, n int, size float64) []trajectory.Point {
	points := make([]trajectory.Point, 0, 2*n+1)
	for i := 0; i < n; i++ {
		points = append(points, trajectory.Point{X: 0, Y: size * float64(i) / float64(n)})
	}
	for i := 0; i <= n; i++ {
		points = append(points, trajectory.Point{X: sign * size * float64(i) / float64(n), Y: size})
	}
	return points
}

func swipe(n int) []trajectory.Point {
	points := make([]trajectory.Point, n)
	for i := range points {
		points[i] = trajectory.Point{X: 20 * float64(i)}
	}
	return points
}

func spiral(n int) []trajectory.Point {
	points := make([]trajectory.Point, n)
	for i := range points {
		theta := float64(i) * 0.2
		r := 5 + 2*theta
		points[i] = trajectory.Point{X: r * math.Cos(theta), Y: r * math.Sin(theta)}
	}
	return points
}

func jitter(points []trajectory.Point, amp float64) []trajectory.Point {
	out := make([]trajectory.Point, len(points))
	for i, p := range points {
		out[i] = trajectory.Point{
			X: p.X + amp*math.Sin(float64(i)*1.7),
			Y: p.Y + amp*math.Cos(float64(i)*2.3),
		}
	}
	return out
}

func testGestures() []Gesture {
	return []Gesture{
		{Name: "L", Templates: [][]trajectory.Point{lStroke(1, 20, 400)}},
		{Name: "mirror", Templates: [][]trajectory.Point{lStroke(-1, 20, 400)}},
		{Name: "swipe", Templates: [][]trajectory.Point{swipe(41)}},
		{Name: "spiral", Templates: [][]trajectory.Point{spiral(80)}},
	}
}

func floatPtr(v float64) *float64 { return &v }

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}
