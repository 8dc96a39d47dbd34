package gesture

import (
	"sort"
	"sync"
	"time"

	"github.com/kwv/strokemesh/trajectory"
)

// StrokeTracker assembles strokes from streamed samples, one recorder per
// capture source.
type StrokeTracker struct {
	mu         sync.Mutex
	recorders  map[string]*trajectory.Recorder
	lastSample map[string]time.Time
	minSpacing float64
	maxPoints  int
}

// NewStrokeTracker creates a tracker whose recorders use the capture
// settings in cfg.
func NewStrokeTracker(cfg CaptureConfig) *StrokeTracker {
	return &StrokeTracker{
		recorders:  make(map[string]*trajectory.Recorder),
		lastSample: make(map[string]time.Time),
		minSpacing: cfg.GetMinSpacing(),
		maxPoints:  cfg.GetMaxPoints(),
	}
}

// AddPoint appends a sample to the source's in-progress stroke and reports
// whether it was kept. The sample lands in the stroke that a concurrent
// Finish either returns or leaves in progress, never in neither.
func (st *StrokeTracker) AddPoint(source string, p trajectory.Point) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	r, ok := st.recorders[source]
	if !ok {
		r = trajectory.NewRecorder(st.minSpacing, st.maxPoints)
		st.recorders[source] = r
	}
	st.lastSample[source] = time.Now()
	return r.Add(p)
}

// Undo drops the source's most recent sample.
func (st *StrokeTracker) Undo(source string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if r, ok := st.recorders[source]; ok {
		r.RemoveLast()
	}
}

// Finish ends the source's stroke and returns its samples. A source with no
// stroke in progress returns nil.
func (st *StrokeTracker) Finish(source string) []trajectory.Point {
	st.mu.Lock()
	r, ok := st.recorders[source]
	delete(st.recorders, source)
	delete(st.lastSample, source)
	st.mu.Unlock()

	if !ok {
		return nil
	}
	return r.Snapshot()
}

// Discard drops the source's stroke without returning it.
func (st *StrokeTracker) Discard(source string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.recorders, source)
	delete(st.lastSample, source)
}

// Pending returns the number of samples in the source's stroke.
func (st *StrokeTracker) Pending(source string) int {
	st.mu.Lock()
	r, ok := st.recorders[source]
	st.mu.Unlock()
	if !ok {
		return 0
	}
	return r.Len()
}

// Sources returns the sources with a stroke in progress, sorted.
func (st *StrokeTracker) Sources() []string {
	st.mu.Lock()
	defer st.mu.Unlock()
	sources := make([]string, 0, len(st.recorders))
	for id := range st.recorders {
		sources = append(sources, id)
	}
	sort.Strings(sources)
	return sources
}

// Expire discards strokes whose last sample is older than maxAge and
// returns the sources dropped.
func (st *StrokeTracker) Expire(maxAge time.Duration) []string {
	cutoff := time.Now().Add(-maxAge)

	st.mu.Lock()
	defer st.mu.Unlock()
	var dropped []string
	for id, last := range st.lastSample {
		if last.Before(cutoff) {
			delete(st.recorders, id)
			delete(st.lastSample, id)
			dropped = append(dropped, id)
		}
	}
	sort.Strings(dropped)
	return dropped
}
