package classifier

import (
	"math"

	"github.com/jamesainslie/pgtuner/pkg/pgtuner/types"
)

// Normalizer maps a raw metric value onto the scale its weight expects.
type Normalizer func(float64) float64

// Reference points for the built-in normalizers.
const (
	// ReferenceTPS is the throughput that counts as "busy".
	ReferenceTPS = 1000.0
	// MaxTPSFactor caps normalized throughput.
	MaxTPSFactor = 2.0

	// TempUsageScaleMB maps temp usage in MB onto [0, 1].
	TempUsageScaleMB = 1024.0

	// ComplexityScale maps the complexity score onto [0, 1].
	ComplexityScale = 100.0

	// ActiveMidpoint is where the active-ratio boost stops.
	ActiveMidpoint = 0.5
	// ActiveBoost multiplies active ratios below the midpoint.
	ActiveBoost = 1.5

	// SecondsPerDay maps connection longevity onto days.
	SecondsPerDay = 86400.0
)

func scaleCap(scale, upper float64) Normalizer {
	return func(v float64) float64 {
		return clamp(v/scale, 0, upper)
	}
}

func boostActive(v float64) float64 {
	if v < ActiveMidpoint {
		return math.Max(v, 0) * ActiveBoost
	}
	return ActiveMidpoint * ActiveBoost
}

func clamp(v, lower, upper float64) float64 {
	return math.Min(math.Max(v, lower), upper)
}

// DefaultNormalizers returns the built-in normalizers. Metrics without an
// entry are used raw.
func DefaultNormalizers() map[string]Normalizer {
	return map[string]Normalizer{
		types.MetricTPS:             scaleCap(ReferenceTPS, MaxTPSFactor),
		types.MetricTempUsage:       scaleCap(TempUsageScaleMB, 1),
		types.MetricComplexityScore: scaleCap(ComplexityScale, 1),
		types.MetricActiveRatio:     boostActive,
		types.MetricConnLongevity:   scaleCap(SecondsPerDay, 1),
	}
}
