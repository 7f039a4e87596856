package analysis_test

import (
	"testing"

	"codeberg.org/mutker/dcrmctl/internal/analysis"
	"codeberg.org/mutker/dcrmctl/internal/metadata"
	"codeberg.org/mutker/dcrmctl/internal/prediction"
	"codeberg.org/mutker/dcrmctl/internal/waveform"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	series, report := waveform.ParseWithReport("t,v\n0,1\n1,3")
	a := analysis.New("trace.csv", metadata.Metadata{BreakerID: "CB-1"}, series, report)

	assert.NotEqual(t, uuid.Nil, a.ID)
	assert.False(t, a.CreatedAt.IsZero())
	assert.Equal(t, "trace.csv", a.Source)
	assert.Equal(t, "CB-1", a.Metadata.BreakerID)
	require.NotNil(t, a.Summary.Mean)
	assert.Equal(t, 2.0, *a.Summary.Mean)
	assert.Len(t, a.Parse.Dropped, 1)
	assert.Nil(t, a.Prediction)

	other := analysis.New("trace.csv", metadata.Metadata{}, series, report)
	assert.NotEqual(t, a.ID, other.ID)
}

func TestWithPrediction(t *testing.T) {
	a := analysis.New("", metadata.Metadata{}, nil, waveform.Report{})
	b := a.WithPrediction(prediction.Record{Classification: "Healthy"})

	assert.Nil(t, a.Prediction)
	require.NotNil(t, b.Prediction)
	assert.Equal(t, "Healthy", b.Prediction.Classification)
	assert.Equal(t, a.ID, b.ID)
}
