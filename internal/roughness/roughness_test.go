package roughness

import "testing"

func TestStdDevShortSeries(t *testing.T) {
	if got := StdDev(nil); got != 0 {
		t.Errorf("StdDev(nil) = %v, want 0", got)
	}
	if got := StdDev([]float64{1000}); got != 0 {
		t.Errorf("StdDev(single) = %v, want 0", got)
	}
}

func TestStdDevBiasInvariance(t *testing.T) {
	xs := []float64{900, 1000, 1100, 1050, 950}
	base := StdDev(xs)

	offset := make([]float64, len(xs))
	for i, x := range xs {
		offset[i] = x + 1000
	}

	if got := StdDev(offset); got != base {
		t.Errorf("StdDev with constant offset = %v, want %v", got, base)
	}
}

func TestEstimateIriLowSpeed(t *testing.T) {
	res := EstimateIri([]float64{100, 2000, 3000}, 4, DefaultIriThresholds)
	if res.Iri != 0 || res.Category != "good" {
		t.Errorf("EstimateIri at low speed = %+v, want {0 good}", res)
	}
}

func TestEstimateIriMonotoneInStdDev(t *testing.T) {
	low := EstimateIri([]float64{990, 1000, 1010}, 40, DefaultIriThresholds)
	high := EstimateIri([]float64{200, 1000, 2800}, 40, DefaultIriThresholds)

	if !(high.Iri >= low.Iri) {
		t.Errorf("EstimateIri not monotone: low=%v high=%v", low.Iri, high.Iri)
	}
}

func TestEstimateIriCategoryBoundaries(t *testing.T) {
	cases := []struct {
		iri  float64
		want string
	}{
		{0, "good"},
		{2.4, "good"},
		{2.5, "fair"},
		{3.9, "fair"},
		{4, "poor"},
		{5.9, "poor"},
		{6, "very_poor"},
	}
	for _, c := range cases {
		if got := categorize(c.iri, DefaultIriThresholds); got != c.want {
			t.Errorf("categorize(%v) = %q, want %q", c.iri, got, c.want)
		}
	}
}
