package trajectory

import (
	"fmt"
	"math"
)

// Default tunables.
const (
	DefaultMinAngleChange   = math.Pi / 9
	DefaultMinSegmentRatio  = 0.15
	DefaultAngleThreshold   = math.Pi / 4
	DefaultLengthTolerance  = 0.3
	DefaultMinSimilarity    = 0.75
	DefaultTurnCountPenalty = 0.1
)

// KeyPointOptions tunes key-point detection.
type KeyPointOptions struct {
	// MinAngleChange is the accumulated heading change (radians) that makes
	// the previous sample a key point. It is also the turn-count threshold.
	MinAngleChange float64 `json:"minAngleChange" yaml:"minAngleChange"`

	// MinSegmentRatio is the fraction of total path length a straight run
	// may cover before a key point is forced.
	MinSegmentRatio float64 `json:"minSegmentRatio" yaml:"minSegmentRatio"`
}

// DefaultKeyPointOptions returns the default key-point tunables.
func DefaultKeyPointOptions() KeyPointOptions {
	return KeyPointOptions{
		MinAngleChange:  DefaultMinAngleChange,
		MinSegmentRatio: DefaultMinSegmentRatio,
	}
}

// MatchOptions holds the thresholds and weights used by Match.
type MatchOptions struct {
	// AngleThreshold is the heading tolerance (radians) for direction and
	// key-point angle agreement.
	AngleThreshold float64 `json:"angleThreshold" yaml:"angleThreshold"`

	// LengthTolerance is reserved. It is carried through configuration but
	// no score reads it.
	LengthTolerance float64 `json:"lengthTolerance" yaml:"lengthTolerance"`

	// MinSimilarity is the score at or above which two strokes match.
	MinSimilarity float64 `json:"minSimilarity" yaml:"minSimilarity"`

	// TurnCountPenalty scales the exponential penalty applied per turn of
	// difference between the two strokes.
	TurnCountPenalty float64 `json:"turnCountPenalty" yaml:"turnCountPenalty"`

	KeyPoints KeyPointOptions `json:"keyPoints" yaml:"keyPoints"`
}

// DefaultMatchOptions returns the documented defaults.
func DefaultMatchOptions() MatchOptions {
	return MatchOptions{
		AngleThreshold:   DefaultAngleThreshold,
		LengthTolerance:  DefaultLengthTolerance,
		MinSimilarity:    DefaultMinSimilarity,
		TurnCountPenalty: DefaultTurnCountPenalty,
		KeyPoints:        DefaultKeyPointOptions(),
	}
}

// withDefaults fills the fields Match cannot score with from the defaults:
// a non-positive AngleThreshold and non-positive key-point tunables.
func (o MatchOptions) withDefaults() MatchOptions {
	if o.AngleThreshold <= 0 || math.IsNaN(o.AngleThreshold) {
		o.AngleThreshold = DefaultAngleThreshold
	}
	if o.KeyPoints.MinAngleChange <= 0 || math.IsNaN(o.KeyPoints.MinAngleChange) {
		o.KeyPoints.MinAngleChange = DefaultMinAngleChange
	}
	if o.KeyPoints.MinSegmentRatio <= 0 || math.IsNaN(o.KeyPoints.MinSegmentRatio) {
		o.KeyPoints.MinSegmentRatio = DefaultMinSegmentRatio
	}
	return o
}

// Overrides is a partial MatchOptions. Nil fields keep the base value, so a
// zero threshold can still be requested explicitly.
type Overrides struct {
	AngleThreshold   *float64 `json:"angleThreshold,omitempty" yaml:"angleThreshold,omitempty"`
	LengthTolerance  *float64 `json:"lengthTolerance,omitempty" yaml:"lengthTolerance,omitempty"`
	MinSimilarity    *float64 `json:"minSimilarity,omitempty" yaml:"minSimilarity,omitempty"`
	TurnCountPenalty *float64 `json:"turnCountPenalty,omitempty" yaml:"turnCountPenalty,omitempty"`
	MinAngleChange   *float64 `json:"minAngleChange,omitempty" yaml:"minAngleChange,omitempty"`
	MinSegmentRatio  *float64 `json:"minSegmentRatio,omitempty" yaml:"minSegmentRatio,omitempty"`
}

// Apply returns base with every non-nil override applied.
func (o Overrides) Apply(base MatchOptions) MatchOptions {
	if o.AngleThreshold != nil {
		base.AngleThreshold = *o.AngleThreshold
	}
	if o.LengthTolerance != nil {
		base.LengthTolerance = *o.LengthTolerance
	}
	if o.MinSimilarity != nil {
		base.MinSimilarity = *o.MinSimilarity
	}
	if o.TurnCountPenalty != nil {
		base.TurnCountPenalty = *o.TurnCountPenalty
	}
	if o.MinAngleChange != nil {
		base.KeyPoints.MinAngleChange = *o.MinAngleChange
	}
	if o.MinSegmentRatio != nil {
		base.KeyPoints.MinSegmentRatio = *o.MinSegmentRatio
	}
	return base
}

// IsZero reports whether no override is set.
func (o Overrides) IsZero() bool {
	return o.AngleThreshold == nil && o.LengthTolerance == nil &&
		o.MinSimilarity == nil && o.TurnCountPenalty == nil &&
		o.MinAngleChange == nil && o.MinSegmentRatio == nil
}

// Validate rejects overrides that would make the scoring formulas divide by
// zero or produce an unreachable verdict.
func (o Overrides) Validate() error {
	if o.AngleThreshold != nil && *o.AngleThreshold <= 0 {
		return fmt.Errorf("angleThreshold must be positive, got %g", *o.AngleThreshold)
	}
	if o.LengthTolerance != nil && *o.LengthTolerance < 0 {
		return fmt.Errorf("lengthTolerance must not be negative, got %g", *o.LengthTolerance)
	}
	if o.MinSimilarity != nil && (*o.MinSimilarity < 0 || *o.MinSimilarity > 1) {
		return fmt.Errorf("minSimilarity must be between 0 and 1, got %g", *o.MinSimilarity)
	}
	if o.TurnCountPenalty != nil && *o.TurnCountPenalty < 0 {
		return fmt.Errorf("turnCountPenalty must not be negative, got %g", *o.TurnCountPenalty)
	}
	if o.MinAngleChange != nil && *o.MinAngleChange <= 0 {
		return fmt.Errorf("minAngleChange must be positive, got %g", *o.MinAngleChange)
	}
	if o.MinSegmentRatio != nil && *o.MinSegmentRatio <= 0 {
		return fmt.Errorf("minSegmentRatio must be positive, got %g", *o.MinSegmentRatio)
	}
	return nil
}
