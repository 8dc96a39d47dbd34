package gesture

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"github.com/kwv/strokemesh/trajectory"
	"golang.org/x/sync/errgroup"
)

// entry is a gesture with its templates prepared for matching.
type entry struct {
	gesture  Gesture
	opts     trajectory.MatchOptions
	prepared [][]trajectory.Point
}

// Library holds the gestures a stroke is recognized against.
// It is safe for concurrent use.
type Library struct {
	opts      trajectory.MatchOptions
	tolerance float64
	entries   []*entry
	mu        sync.RWMutex
}

// NewLibrary builds a library. Every stroke and template is reduced with
// trajectory.Simplify at simplifyTolerance before matching; a tolerance of
// zero or less matches the raw samples.
func NewLibrary(gestures []Gesture, opts trajectory.MatchOptions, simplifyTolerance float64) *Library {
	l := &Library{
		opts:      opts,
		tolerance: simplifyTolerance,
	}
	for _, g := range gestures {
		l.Add(g)
	}
	return l
}

// NewLibraryFromConfig builds a library from a loaded configuration.
func NewLibraryFromConfig(config *Config) *Library {
	return NewLibrary(config.Gestures, config.MatchOptions(), config.GetSimplifyTolerance())
}

func (l *Library) prepare(points []trajectory.Point) []trajectory.Point {
	if l.tolerance <= 0 {
		return points
	}
	return trajectory.Simplify(points, l.tolerance)
}

// Add inserts g, replacing any gesture with the same name in place.
func (l *Library) Add(g Gesture) {
	e := &entry{
		gesture:  g,
		opts:     g.Match.Apply(l.opts),
		prepared: make([][]trajectory.Point, len(g.Templates)),
	}
	for i, tmpl := range g.Templates {
		e.prepared[i] = l.prepare(tmpl)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for i, existing := range l.entries {
		if existing.gesture.Name == g.Name {
			l.entries[i] = e
			return
		}
	}
	l.entries = append(l.entries, e)
}

// Remove deletes the named gesture and reports whether it existed.
func (l *Library) Remove(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, e := range l.entries {
		if e.gesture.Name == name {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of gestures.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Names returns gesture names in insertion order.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, len(l.entries))
	for i, e := range l.entries {
		names[i] = e.gesture.Name
	}
	return names
}

// Gestures returns a copy of the gestures as configured.
func (l *Library) Gestures() []Gesture {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Gesture, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.gesture
	}
	return out
}

// Recognize matches points against every gesture, scoring each gesture by
// its best template. Gestures are scored in parallel.
//
// Scores are ranked by similarity, highest first, with ties broken by name.
// The recognized gesture is the highest ranked one that matched under its
// own options.
func (l *Library) Recognize(ctx context.Context, points []trajectory.Point) (Recognition, error) {
	if err := ctx.Err(); err != nil {
		return Recognition{}, err
	}

	l.mu.RLock()
	entries := make([]*entry, len(l.entries))
	copy(entries, l.entries)
	l.mu.RUnlock()

	stroke := l.prepare(points)
	scores := make([]Score, len(entries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, e := range entries {
		g.Go(func() error {
			best := Score{Gesture: e.gesture.Name}
			for _, tmpl := range e.prepared {
				if err := ctx.Err(); err != nil {
					return err
				}
				r := trajectory.Match(stroke, tmpl, e.opts)
				if r.Similarity > best.Similarity || (r.Matched && !best.Matched) {
					best.Similarity = r.Similarity
					best.Matched = r.Matched
				}
			}
			scores[i] = best
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Recognition{}, err
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Similarity != scores[j].Similarity {
			return scores[i].Similarity > scores[j].Similarity
		}
		return scores[i].Gesture < scores[j].Gesture
	})

	rec := Recognition{Scores: scores}
	if len(scores) > 0 {
		rec.Similarity = scores[0].Similarity
	}
	for _, s := range scores {
		if s.Matched {
			rec.Gesture = s.Gesture
			rec.MatchResult = trajectory.MatchResult{Matched: true, Similarity: s.Similarity}
			break
		}
	}
	return rec, nil
}
