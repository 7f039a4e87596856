// Package analysis bundles one evaluated trace with its metadata.
package analysis

import (
	"time"

	"codeberg.org/mutker/dcrmctl/internal/features"
	"codeberg.org/mutker/dcrmctl/internal/metadata"
	"codeberg.org/mutker/dcrmctl/internal/prediction"
	"codeberg.org/mutker/dcrmctl/internal/waveform"
	"github.com/google/uuid"
)

// Analysis is the unit rendered by reports and kept in history
type Analysis struct {
	ID         uuid.UUID          `json:"id" yaml:"id"`
	CreatedAt  time.Time          `json:"created_at" yaml:"created_at"`
	Source     string             `json:"source,omitempty" yaml:"source,omitempty"`
	Metadata   metadata.Metadata  `json:"metadata" yaml:"metadata"`
	Summary    features.Summary   `json:"features" yaml:"features"`
	Parse      waveform.Report    `json:"parse" yaml:"parse"`
	Prediction *prediction.Record `json:"prediction,omitempty" yaml:"prediction,omitempty"`
}

// New summarizes series and stamps the result with a fresh ID
func New(source string, meta metadata.Metadata, series waveform.Series, report waveform.Report) Analysis {
	return Analysis{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		Source:    source,
		Metadata:  meta,
		Summary:   features.Extract(series),
		Parse:     report,
	}
}

// WithPrediction returns a copy carrying record
func (a Analysis) WithPrediction(record prediction.Record) Analysis {
	a.Prediction = &record
	return a
}
