// Package features reduces a waveform series to summary statistics.
package features

import "codeberg.org/mutker/dcrmctl/internal/waveform"

// Summary holds descriptive statistics over the value column of a series.
// Every field is nil when the series is empty.
type Summary struct {
	Max     *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Min     *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Mean    *float64 `json:"mean,omitempty" yaml:"mean,omitempty"`
	Samples *int     `json:"samples,omitempty" yaml:"samples,omitempty"`
}

// Extract computes max, min, mean and sample count over series values.
// Summation runs left to right, so equal input yields bit-identical output.
func Extract(series waveform.Series) Summary {
	if len(series) == 0 {
		return Summary{}
	}

	hi, lo := series[0].Value, series[0].Value
	sum := 0.0
	for _, sample := range series {
		hi = max(hi, sample.Value)
		lo = min(lo, sample.Value)
		sum += sample.Value
	}

	count := len(series)
	mean := sum / float64(count)

	return Summary{
		Max:     &hi,
		Min:     &lo,
		Mean:    &mean,
		Samples: &count,
	}
}

// IsEmpty reports whether no statistic is present
func (s Summary) IsEmpty() bool {
	return s.Max == nil && s.Min == nil && s.Mean == nil && s.Samples == nil
}

// Fields returns the present statistics keyed by name
func (s Summary) Fields() map[string]any {
	fields := make(map[string]any, 4)
	if s.Max != nil {
		fields["max"] = *s.Max
	}
	if s.Min != nil {
		fields["min"] = *s.Min
	}
	if s.Mean != nil {
		fields["mean"] = *s.Mean
	}
	if s.Samples != nil {
		fields["samples"] = *s.Samples
	}

	return fields
}
