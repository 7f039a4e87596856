package prediction

import (
	"context"

	"codeberg.org/mutker/dcrmctl/internal/features"
	"codeberg.org/mutker/dcrmctl/internal/waveform"
)

// Predictor classifies a breaker trace. Implementations may block.
type Predictor interface {
	Predict(ctx context.Context, series waveform.Series) (Record, error)
}

// Record is the outcome of a prediction
type Record struct {
	Classification    string           `json:"classification" yaml:"classification"`
	Confidence        float64          `json:"confidence" yaml:"confidence"`
	RecommendedAction string           `json:"recommended_action" yaml:"recommended_action"`
	Features          features.Summary `json:"features" yaml:"features"`
}
