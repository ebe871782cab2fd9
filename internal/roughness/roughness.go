// Package roughness implements the standard-deviation and
// IRI-approximation primitives used by the event detector and the
// statistics aggregator.
package roughness

import "math"

// IriThresholds configures the category boundaries and the empirical
// constants used by EstimateIri. Zero-value thresholds fall back to
// DefaultIriThresholds.
type IriThresholds struct {
	Good, Fair, Poor  float64
	K                 float64
	SpeedBaselineKmh  float64
}

// DefaultIriThresholds holds the out-of-the-box calibration constants.
var DefaultIriThresholds = IriThresholds{
	Good:             2.5,
	Fair:             4,
	Poor:             6,
	K:                15.0,
	SpeedBaselineKmh: 30,
}

// StdDev returns the population standard deviation (divisor n) of xs,
// rounded to 2 decimals. Returns 0 for fewer than 2 samples. Using the
// deviation from the mean cancels the ~1000 milli-g gravity bias shared
// by every axisZ reading.
func StdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}

	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	var sumSq float64
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}

	return round2(math.Sqrt(sumSq / float64(len(xs))))
}

// IriResult is the outcome of EstimateIri.
type IriResult struct {
	Iri      float64
	Category string
}

// EstimateIri derives an empirical IRI approximation (m/km) from the
// vertical-axis sample variance and the vehicle speed at which the
// samples were captured. It is not a physical IRI measurement and
// should not be compared to laser-profilometer readings.
func EstimateIri(xs []float64, speedKmh float64, cfg IriThresholds) IriResult {
	if cfg == (IriThresholds{}) {
		cfg = DefaultIriThresholds
	}

	if speedKmh < 5 {
		return IriResult{Iri: 0, Category: "good"}
	}

	r := StdDev(xs)
	speedFactor := cfg.SpeedBaselineKmh / speedKmh
	iri := clamp(r/1000*cfg.K*speedFactor, 0, 20)

	return IriResult{Iri: round2(iri), Category: categorize(iri, cfg)}
}

func categorize(iri float64, cfg IriThresholds) string {
	switch {
	case iri < cfg.Good:
		return "good"
	case iri < cfg.Fair:
		return "fair"
	case iri < cfg.Poor:
		return "poor"
	default:
		return "very_poor"
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
