package gesture

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/kwv/strokemesh/trajectory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLibrary() *Library {
	return NewLibrary(testGestures(), trajectory.DefaultMatchOptions(), trajectory.DefaultSimplifyTolerance)
}

func TestLibrary_Recognize(t *testing.T) {
	lib := newTestLibrary()

	tests := []struct {
		name   string
		stroke []trajectory.Point
		want   string
	}{
		{"exact L", lStroke(1, 20, 400), "L"},
		{"noisy L", jitter(lStroke(1, 20, 400), 2), "L"},
		{"very noisy L", jitter(lStroke(1, 20, 400), 5), "L"},
		{"noisy mirror", jitter(lStroke(-1, 20, 400), 2), "mirror"},
		{"noisy swipe", jitter(swipe(41), 2), "swipe"},
		{"spiral", spiral(80), "spiral"},
		{"swipe up", []trajectory.Point{{X: 0, Y: 0}, {X: 0, Y: -100}}, ""},
		{"V", []trajectory.Point{{X: 0, Y: 0}, {X: 100, Y: 200}, {X: 200, Y: 0}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := lib.Recognize(context.Background(), tt.stroke)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.Gesture, "scores: %+v", rec.Scores)
			assert.Equal(t, tt.want != "", rec.Matched)
			require.Len(t, rec.Scores, 4)
			assert.Equal(t, rec.Scores[0].Similarity, rec.Similarity)
			for i := 1; i < len(rec.Scores); i++ {
				assert.GreaterOrEqual(t, rec.Scores[i-1].Similarity, rec.Scores[i].Similarity)
			}
		})
	}
}

func TestLibrary_ExactTemplateScoresOne(t *testing.T) {
	rec, err := newTestLibrary().Recognize(context.Background(), lStroke(1, 20, 400))
	require.NoError(t, err)
	assert.InDelta(t, 1, rec.Similarity, 1e-9)
	assert.Equal(t, "L", rec.Scores[0].Gesture)
}

func TestLibrary_NoMatchKeepsBestScore(t *testing.T) {
	rec, err := newTestLibrary().Recognize(context.Background(), []trajectory.Point{{X: 0, Y: 0}, {X: 0, Y: -100}})
	require.NoError(t, err)
	assert.Empty(t, rec.Gesture)
	assert.False(t, rec.Matched)
	assert.Greater(t, rec.Similarity, 0.0)
	assert.Less(t, rec.Similarity, trajectory.DefaultMinSimilarity)
}

func TestLibrary_PreSimplificationRescuesNoisyStroke(t *testing.T) {
	noisy := jitter(lStroke(1, 20, 400), 5)

	raw := NewLibrary(testGestures(), trajectory.DefaultMatchOptions(), 0)
	rec, err := raw.Recognize(context.Background(), noisy)
	require.NoError(t, err)
	assert.Empty(t, rec.Gesture, "raw samples should be too noisy: %+v", rec.Scores)

	simplified := newTestLibrary()
	rec, err = simplified.Recognize(context.Background(), noisy)
	require.NoError(t, err)
	assert.Equal(t, "L", rec.Gesture)
}

func TestLibrary_PerGestureOverride(t *testing.T) {
	v := []trajectory.Point{{X: 0, Y: 0}, {X: 100, Y: 200}, {X: 200, Y: 0}}

	gestures := testGestures()
	gestures[0].Match = trajectory.Overrides{MinSimilarity: floatPtr(0.35)}
	lib := NewLibrary(gestures, trajectory.DefaultMatchOptions(), trajectory.DefaultSimplifyTolerance)

	rec, err := lib.Recognize(context.Background(), v)
	require.NoError(t, err)
	assert.Equal(t, "L", rec.Gesture)
	assert.True(t, rec.Matched)
}

func TestLibrary_BestTemplateWins(t *testing.T) {
	lib := NewLibrary([]Gesture{{
		Name:      "corner",
		Templates: [][]trajectory.Point{lStroke(-1, 20, 400), lStroke(1, 20, 400)},
	}}, trajectory.DefaultMatchOptions(), trajectory.DefaultSimplifyTolerance)

	rec, err := lib.Recognize(context.Background(), lStroke(1, 20, 400))
	require.NoError(t, err)
	assert.Equal(t, "corner", rec.Gesture)
	assert.InDelta(t, 1, rec.Similarity, 1e-9)
}

func TestLibrary_TiesRankByName(t *testing.T) {
	tmpl := [][]trajectory.Point{lStroke(1, 20, 400)}
	lib := NewLibrary([]Gesture{
		{Name: "b", Templates: tmpl},
		{Name: "a", Templates: tmpl},
	}, trajectory.DefaultMatchOptions(), trajectory.DefaultSimplifyTolerance)

	rec, err := lib.Recognize(context.Background(), lStroke(1, 20, 400))
	require.NoError(t, err)
	assert.Equal(t, "a", rec.Gesture)
	assert.Equal(t, []string{"a", "b"}, []string{rec.Scores[0].Gesture, rec.Scores[1].Gesture})
}

func TestLibrary_Empty(t *testing.T) {
	lib := NewLibrary(nil, trajectory.DefaultMatchOptions(), trajectory.DefaultSimplifyTolerance)
	rec, err := lib.Recognize(context.Background(), lStroke(1, 20, 400))
	require.NoError(t, err)
	assert.Empty(t, rec.Gesture)
	assert.False(t, rec.Matched)
	assert.Zero(t, rec.Similarity)
	assert.Empty(t, rec.Scores)
}

func TestLibrary_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestLibrary().Recognize(ctx, lStroke(1, 20, 400))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestLibrary_AddRemove(t *testing.T) {
	lib := newTestLibrary()
	assert.Equal(t, []string{"L", "mirror", "swipe", "spiral"}, lib.Names())

	// Same name replaces in place.
	lib.Add(Gesture{Name: "mirror", Description: "replaced", Templates: [][]trajectory.Point{lStroke(-1, 10, 100)}})
	assert.Equal(t, 4, lib.Len())
	assert.Equal(t, "replaced", lib.Gestures()[1].Description)

	lib.Add(Gesture{Name: "extra", Templates: [][]trajectory.Point{swipe(5)}})
	assert.Equal(t, []string{"L", "mirror", "swipe", "spiral", "extra"}, lib.Names())

	assert.True(t, lib.Remove("swipe"))
	assert.False(t, lib.Remove("swipe"))
	assert.Equal(t, []string{"L", "mirror", "spiral", "extra"}, lib.Names())
}

func TestLibrary_FromConfig(t *testing.T) {
	cfg := &Config{
		Match:             trajectory.Overrides{MinSimilarity: floatPtr(0.99)},
		SimplifyTolerance: floatPtr(10),
		Gestures:          testGestures(),
	}
	lib := NewLibraryFromConfig(cfg)
	assert.Equal(t, 4, lib.Len())

	// 0.99 is above the noisy L's score, so nothing matches.
	rec, err := lib.Recognize(context.Background(), jitter(lStroke(1, 20, 400), 2))
	require.NoError(t, err)
	assert.Empty(t, rec.Gesture)
	assert.Equal(t, "L", rec.Scores[0].Gesture)
}

func TestLibrary_ConcurrentUse(t *testing.T) {
	lib := newTestLibrary()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				lib.Add(Gesture{Name: "extra", Templates: [][]trajectory.Point{swipe(5)}})
			}
			_, err := lib.Recognize(context.Background(), lStroke(1, 20, 400))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 5, lib.Len())
}
