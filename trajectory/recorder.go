package trajectory

import "sync"

// Capture defaults: samples closer than 2 units to the previous one are
// dropped and a stroke keeps at most 2048 samples.
const (
	DefaultMinSpacing = 2.0
	DefaultMaxPoints  = 2048
)

// Recorder accumulates the samples of one stroke while it is being drawn.
// Each capture source owns its own Recorder; the matcher only ever sees the
// slice returned by Snapshot.
//
// A Recorder is safe for concurrent use.
type Recorder struct {
	minSpacing float64
	maxPoints  int
	points     []Point
	mu         sync.RWMutex
}

// NewRecorder creates a Recorder. A non-positive minSpacing keeps every
// sample; a non-positive maxPoints means no cap.
func NewRecorder(minSpacing float64, maxPoints int) *Recorder {
	return &Recorder{
		minSpacing: minSpacing,
		maxPoints:  maxPoints,
	}
}

// Add appends p unless it lies within minSpacing of the previous sample.
// When the cap is exceeded the oldest samples are discarded. Add reports
// whether p was kept.
func (r *Recorder) Add(p Point) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n := len(r.points); n > 0 && r.minSpacing > 0 {
		last := r.points[n-1]
		dx := p.X - last.X
		dy := p.Y - last.Y
		if dx*dx+dy*dy <= r.minSpacing*r.minSpacing {
			return false
		}
	}

	r.points = append(r.points, p)
	if r.maxPoints > 0 && len(r.points) > r.maxPoints {
		r.points = append([]Point(nil), r.points[len(r.points)-r.maxPoints:]...)
	}
	return true
}

// RemoveLast drops the most recent sample, if any.
func (r *Recorder) RemoveLast() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.points) > 0 {
		r.points = r.points[:len(r.points)-1]
	}
}

// Clear discards every sample.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.points = nil
}

// Len returns the number of samples held.
func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.points)
}

// Snapshot returns a copy of the samples in capture order.
func (r *Recorder) Snapshot() []Point {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Point, len(r.points))
	copy(out, r.points)
	return out
}
