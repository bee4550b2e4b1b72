package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/pgtuner/pkg/pgtuner/types"
)

func sample(t *testing.T, values map[string]float64) types.MetricSample {
	t.Helper()
	s, err := types.NewMetricSample(values)
	require.NoError(t, err)
	return s
}

func TestNormalizers(t *testing.T) {
	n := DefaultNormalizers()

	tests := []struct {
		metric string
		in     float64
		want   float64
	}{
		{types.MetricTPS, 500, 0.5},
		{types.MetricTPS, 5000, 2},
		{types.MetricTempUsage, 512, 0.5},
		{types.MetricTempUsage, 4096, 1},
		{types.MetricComplexityScore, 25, 0.25},
		{types.MetricComplexityScore, 1e6, 1},
		{types.MetricActiveRatio, 0.2, 0.3},
		{types.MetricActiveRatio, 0.9, 0.75},
		{types.MetricConnLongevity, 43200, 0.5},
		{types.MetricConnLongevity, 1e7, 1},
		{types.MetricTPS, -10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.metric, func(t *testing.T) {
			fn, ok := n[tt.metric]
			require.True(t, ok)
			assert.InDelta(t, tt.want, fn(tt.in), 1e-9)
		})
	}

	_, ok := n[types.MetricWriteRatio]
	assert.False(t, ok, "ratios are used raw")
}

func TestScoreEmptySample(t *testing.T) {
	scores := Score(sample(t, nil))

	for _, a := range types.Archetypes() {
		assert.Zero(t, scores.Get(a), a.String())
	}
	assert.Equal(t, types.OLTP, scores.Best(), "all-zero scores tie and OLTP comes first")
}

func TestScoreKnownValues(t *testing.T) {
	s := sample(t, map[string]float64{
		types.MetricWriteRatio:      0.5,
		types.MetricReadRatio:       0.5,
		types.MetricTPS:             1000,
		types.MetricCacheHitRatio:   1,
		types.MetricComplexityScore: 50,
	})

	scores := Score(s)

	// 0.9*0.5 + 0.8*1 - 0.7*0.5 + 0.6*1
	assert.InDelta(t, 1.5, scores.Get(types.OLTP), 1e-9)
	// 0.7*0.5 + 0.6*0.5 - 0.5*0.5 - 0.3*1
	assert.InDelta(t, 0.1, scores.Get(types.OLAP), 1e-9)
	assert.InDelta(t, (1.5+0.1)/2, scores.Get(types.Mixed), 1e-9)
	assert.Equal(t, types.OLTP, scores.Best())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]float64
		want   types.Archetype
	}{
		{
			name: "write heavy transactional",
			values: map[string]float64{
				types.MetricWriteRatio:      0.8,
				types.MetricReadRatio:       0.2,
				types.MetricTPS:             1500,
				types.MetricCacheHitRatio:   0.95,
				types.MetricComplexityScore: 1,
				types.MetricActiveRatio:     0.2,
			},
			want: types.OLTP,
		},
		{
			name: "analytical",
			values: map[string]float64{
				types.MetricReadRatio:       1,
				types.MetricTempUsage:       4096,
				types.MetricComplexityScore: 500,
				types.MetricTPS:             2,
			},
			want: types.OLAP,
		},
		{
			name: "many short web sessions",
			values: map[string]float64{
				types.MetricReadRatio:     0.9,
				types.MetricWriteRatio:    0.1,
				types.MetricActiveRatio:   0.5,
				types.MetricCacheHitRatio: 0.99,
				types.MetricTPS:           300,
			},
			want: types.Web,
		},
		{
			name: "single user with large sorts",
			values: map[string]float64{
				types.MetricTempUsage:       1024,
				types.MetricComplexityScore: 100,
				types.MetricTPS:             2000,
				types.MetricWriteRatio:      1,
			},
			want: types.Desktop,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(sample(t, tt.values)))
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	s := sample(t, map[string]float64{
		types.MetricWriteRatio:    0.3,
		types.MetricReadRatio:     0.7,
		types.MetricTPS:           250,
		types.MetricActiveRatio:   0.4,
		types.MetricTempUsage:     20,
		types.MetricLockRatio:     0.05,
		types.MetricConnLongevity: 3600,
	})

	first := Score(s)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Score(s))
		assert.Equal(t, first.Best(), Classify(s))
	}
}

func TestBestTieBreak(t *testing.T) {
	tests := []struct {
		name   string
		scores Scores
		want   types.Archetype
	}{
		{"strict max wins", Scores{0.1, 0.2, 0.9, 0.3, 0.15}, types.Web},
		{"tie goes to earlier", Scores{0.5, 0.5, 0.1, 0.1, 0.5}, types.OLTP},
		{"web and desktop tie", Scores{0, 0, 0.7, 0.7, 0}, types.Web},
		{"mixed only on strict max", Scores{0, 0, 0, 0, 0.1}, types.Mixed},
		{"negative scores", Scores{-1, -0.5, -2, -3, -0.75}, types.OLAP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.scores.Best())
		})
	}
}

func TestMixedNeverStrictlyWins(t *testing.T) {
	samples := []map[string]float64{
		{types.MetricWriteRatio: 1},
		{types.MetricReadRatio: 1, types.MetricTempUsage: 2048},
		{types.MetricWriteRatio: 0.5, types.MetricReadRatio: 0.5, types.MetricComplexityScore: 40},
		{types.MetricTPS: 10000, types.MetricComplexityScore: 100, types.MetricTempUsage: 1024},
	}

	for _, values := range samples {
		assert.NotEqual(t, types.Mixed, Classify(sample(t, values)))
	}
}

func TestNewWithWeights(t *testing.T) {
	weights := Weights{
		types.OLTP:    {{Metric: types.MetricLockRatio, Weight: 1}},
		types.OLAP:    {},
		types.Web:     {},
		types.Desktop: {{Metric: types.MetricLockRatio, Weight: 2}},
	}

	engine, err := New(WithWeights(weights))
	require.NoError(t, err)

	s := sample(t, map[string]float64{types.MetricLockRatio: 0.5})
	scores := engine.Score(s)
	assert.InDelta(t, 0.5, scores.Get(types.OLTP), 1e-9)
	assert.InDelta(t, 1.0, scores.Get(types.Desktop), 1e-9)
	assert.InDelta(t, 0.25, scores.Get(types.Mixed), 1e-9)
	assert.Equal(t, types.Desktop, engine.Classify(s))

	// The engine keeps its own copy.
	weights[types.OLTP][0].Weight = 100
	assert.InDelta(t, 0.5, engine.Score(s).Get(types.OLTP), 1e-9)
}

func TestNewWithNormalizer(t *testing.T) {
	engine, err := New(WithNormalizer(types.MetricTPS, nil))
	require.NoError(t, err)

	s := sample(t, map[string]float64{types.MetricTPS: 10})
	assert.InDelta(t, 10, engine.Normalize(s, types.MetricTPS), 1e-9)
	assert.InDelta(t, 0.01, Default.Normalize(s, types.MetricTPS), 1e-9)

	_, err = New(WithNormalizer("qps", func(v float64) float64 { return v }))
	assert.ErrorIs(t, err, types.ErrUnknownMetric)
}

func TestWeightsValidate(t *testing.T) {
	valid := DefaultWeights()
	require.NoError(t, valid.Validate())

	tests := []struct {
		name    string
		mutate  func(Weights)
		wantErr error
	}{
		{"missing archetype", func(w Weights) { delete(w, types.Web) }, ErrMissingArchetype},
		{"mixed weighted", func(w Weights) { w[types.Mixed] = nil }, ErrDerivedArchetype},
		{"unknown metric", func(w Weights) { w[types.OLTP] = []Term{{Metric: "qps", Weight: 1}} }, types.ErrUnknownMetric},
		{"out of range archetype", func(w Weights) { w[types.Archetype(9)] = nil }, types.ErrUnknownArchetype},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := DefaultWeights()
			tt.mutate(w)
			_, err := New(WithWeights(w))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestScoresMap(t *testing.T) {
	m := Scores{1, 2, 3, 4, 1.5}.Map()
	assert.Equal(t, map[string]float64{
		"OLTP": 1, "OLAP": 2, "Web": 3, "Desktop": 4, "Mixed": 1.5,
	}, m)
}
