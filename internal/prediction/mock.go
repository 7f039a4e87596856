package prediction

import (
	"context"
	"time"

	"codeberg.org/mutker/dcrmctl/internal/features"
	"codeberg.org/mutker/dcrmctl/internal/waveform"
)

const (
	MockClassification    = "Healthy"
	MockConfidence        = 0.94
	MockRecommendedAction = "No immediate maintenance required. Re-test at next scheduled interval."
)

// Mock returns a fixed classification after an artificial delay.
// It never fails and does not observe ctx.
type Mock struct {
	delay time.Duration
}

func NewMock(delay time.Duration) *Mock {
	return &Mock{delay: delay}
}

func (m *Mock) Predict(_ context.Context, series waveform.Series) (Record, error) {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	return Record{
		Classification:    MockClassification,
		Confidence:        MockConfidence,
		RecommendedAction: MockRecommendedAction,
		Features:          features.Extract(series),
	}, nil
}
