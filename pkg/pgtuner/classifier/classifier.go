// Package classifier scores workload archetypes from a metric sample.
//
// Each primary archetype (OLTP, OLAP, Web, Desktop) has a fixed table of
// metric weights. A metric is normalized, multiplied by its weight and
// summed into the archetype's score; a missing metric counts as zero.
// Mixed is derived as the average of OLTP and OLAP.
//
// The winner is the archetype with the strictly highest score. Ties go to
// the earlier archetype in the order OLTP, OLAP, Web, Desktop, Mixed.
// Because Mixed is an average of two other candidates it can at most tie
// with them, so it is never selected by raw scoring alone.
package classifier

import (
	"fmt"

	"github.com/jamesainslie/pgtuner/pkg/pgtuner/logging"
	"github.com/jamesainslie/pgtuner/pkg/pgtuner/types"
)

var logger = logging.Get("classifier")

// Scores holds one score per archetype, indexed by types.Archetype.
type Scores [types.NumArchetypes]float64

// Get returns the score of a.
func (s Scores) Get(a types.Archetype) float64 {
	if !a.Valid() {
		return 0
	}
	return s[a]
}

// Best returns the archetype with the strictly maximal score, breaking
// ties by archetype order.
func (s Scores) Best() types.Archetype {
	best := types.Archetypes()[0]
	for _, a := range types.Archetypes()[1:] {
		if s[a] > s[best] {
			best = a
		}
	}
	return best
}

// Map returns the scores keyed by archetype name.
func (s Scores) Map() map[string]float64 {
	out := make(map[string]float64, len(s))
	for _, a := range types.Archetypes() {
		out[a.String()] = s[a]
	}
	return out
}

// Engine scores metric samples. An Engine is immutable and safe for
// concurrent use.
type Engine struct {
	weights     Weights
	normalizers map[string]Normalizer
}

// Option configures an Engine.
type Option func(*Engine)

// WithWeights replaces the weight table.
func WithWeights(w Weights) Option {
	return func(e *Engine) {
		e.weights = w.clone()
	}
}

// WithNormalizer overrides the normalizer for one metric. A nil
// normalizer makes the metric raw.
func WithNormalizer(metric string, n Normalizer) Option {
	return func(e *Engine) {
		if n == nil {
			delete(e.normalizers, metric)
			return
		}
		e.normalizers[metric] = n
	}
}

// New creates an Engine with the default table, modified by opts.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		weights:     DefaultWeights(),
		normalizers: DefaultNormalizers(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := e.weights.Validate(); err != nil {
		return nil, fmt.Errorf("invalid weight table: %w", err)
	}
	for metric := range e.normalizers {
		if !types.IsMetric(metric) {
			return nil, fmt.Errorf("normalizer: %w: %q", types.ErrUnknownMetric, metric)
		}
	}

	return e, nil
}

// Default is the engine with the built-in weights and normalizers.
var Default = &Engine{
	weights:     DefaultWeights(),
	normalizers: DefaultNormalizers(),
}

// Normalize returns the normalized value of metric in sample.
func (e *Engine) Normalize(sample types.MetricSample, metric string) float64 {
	v := sample.Value(metric)
	if n, ok := e.normalizers[metric]; ok {
		return n(v)
	}
	return v
}

// Score computes the score of every archetype.
func (e *Engine) Score(sample types.MetricSample) Scores {
	var scores Scores
	for _, a := range Primary {
		var sum float64
		for _, term := range e.weights[a] {
			sum += e.Normalize(sample, term.Metric) * term.Weight
		}
		scores[a] = sum
	}
	scores[types.Mixed] = mixedOLTPShare*scores[types.OLTP] + mixedOLAPShare*scores[types.OLAP]
	return scores
}

// Classify returns the winning archetype for sample.
func (e *Engine) Classify(sample types.MetricSample) types.Archetype {
	scores := e.Score(sample)
	best := scores.Best()

	logger.Debug("workload classified",
		"archetype", best,
		"oltp", scores[types.OLTP],
		"olap", scores[types.OLAP],
		"web", scores[types.Web],
		"desktop", scores[types.Desktop],
		"mixed", scores[types.Mixed])

	return best
}

// Score scores sample with the Default engine.
func Score(sample types.MetricSample) Scores {
	return Default.Score(sample)
}

// Classify classifies sample with the Default engine.
func Classify(sample types.MetricSample) types.Archetype {
	return Default.Classify(sample)
}
