package waveform

// Sample is one (time, value) point of a DCRM trace
type Sample struct {
	Time  float64 `json:"time" yaml:"time"`
	Value float64 `json:"value" yaml:"value"`
}

// Series is an ordered sequence of samples in acquisition order.
// Duplicate times are kept as-is.
type Series []Sample

// Len returns the number of samples
func (s Series) Len() int {
	return len(s)
}

// Values returns the value column in series order
func (s Series) Values() []float64 {
	values := make([]float64, len(s))
	for i, sample := range s {
		values[i] = sample.Value
	}

	return values
}

// TimeSpan returns the distance between the smallest and largest time
func (s Series) TimeSpan() float64 {
	if len(s) == 0 {
		return 0
	}

	lo, hi := s[0].Time, s[0].Time
	for _, sample := range s[1:] {
		lo = min(lo, sample.Time)
		hi = max(hi, sample.Time)
	}

	return hi - lo
}
