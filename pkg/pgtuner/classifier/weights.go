package classifier

import (
	"errors"
	"fmt"
	"math"

	"github.com/jamesainslie/pgtuner/pkg/pgtuner/types"
)

// Term is one weighted metric in an archetype's score.
type Term struct {
	Metric string
	Weight float64
}

// Weights maps each primary archetype to its ordered terms. Terms are
// summed in slice order so that scores are bit-for-bit reproducible.
type Weights map[types.Archetype][]Term

// Primary lists the archetypes that are scored directly from metrics.
// Mixed is derived from OLTP and OLAP.
var Primary = []types.Archetype{types.OLTP, types.OLAP, types.Web, types.Desktop}

// Mixed is the weighted average of the OLTP and OLAP scores.
const (
	mixedOLTPShare = 0.5
	mixedOLAPShare = 0.5
)

// DefaultWeights returns the built-in weight table.
func DefaultWeights() Weights {
	return Weights{
		types.OLTP: {
			{types.MetricWriteRatio, 0.9},
			{types.MetricTPS, 0.8},
			{types.MetricComplexityScore, -0.7},
			{types.MetricCacheHitRatio, 0.6},
			{types.MetricLockRatio, 0.3},
		},
		types.OLAP: {
			{types.MetricComplexityScore, 0.7},
			{types.MetricTempUsage, 0.8},
			{types.MetricReadRatio, 0.6},
			{types.MetricWriteRatio, -0.5},
			{types.MetricTPS, -0.3},
		},
		types.Web: {
			{types.MetricTPS, 0.7},
			{types.MetricActiveRatio, 0.9},
			{types.MetricCacheHitRatio, 0.8},
			{types.MetricComplexityScore, -0.4},
			{types.MetricConnLongevity, -0.3},
		},
		types.Desktop: {
			{types.MetricTempUsage, 0.6},
			{types.MetricComplexityScore, 0.5},
			{types.MetricActiveRatio, -0.7},
			{types.MetricTPS, 0.4},
		},
	}
}

// Errors returned when validating a weight table.
var (
	ErrMissingArchetype = errors.New("weight table missing archetype")
	ErrDerivedArchetype = errors.New("derived archetype cannot be weighted")
	ErrInvalidWeight    = errors.New("invalid weight")
)

// Validate checks that every primary archetype has terms, that Mixed has
// none, and that every term names a known metric with a finite weight.
func (w Weights) Validate() error {
	for _, a := range Primary {
		if _, ok := w[a]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingArchetype, a)
		}
	}

	for a, terms := range w {
		if a == types.Mixed {
			return fmt.Errorf("%w: %s", ErrDerivedArchetype, a)
		}
		if !a.Valid() {
			return fmt.Errorf("%w: %d", types.ErrUnknownArchetype, int(a))
		}
		for _, term := range terms {
			if !types.IsMetric(term.Metric) {
				return fmt.Errorf("%s: %w: %q", a, types.ErrUnknownMetric, term.Metric)
			}
			if math.IsNaN(term.Weight) || math.IsInf(term.Weight, 0) {
				return fmt.Errorf("%w: %s.%s = %v", ErrInvalidWeight, a, term.Metric, term.Weight)
			}
		}
	}

	return nil
}

// clone returns a deep copy so callers cannot mutate an engine's table.
func (w Weights) clone() Weights {
	out := make(Weights, len(w))
	for a, terms := range w {
		out[a] = append([]Term(nil), terms...)
	}
	return out
}
