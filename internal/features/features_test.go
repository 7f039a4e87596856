package features_test

import (
	"encoding/json"
	"math/rand"
	"testing"

	"codeberg.org/mutker/dcrmctl/internal/features"
	"codeberg.org/mutker/dcrmctl/internal/waveform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractEmpty(t *testing.T) {
	summary := features.Extract(waveform.Series{})
	assert.Nil(t, summary.Max)
	assert.Nil(t, summary.Min)
	assert.Nil(t, summary.Mean)
	assert.Nil(t, summary.Samples)
	assert.True(t, summary.IsEmpty())
	assert.Empty(t, summary.Fields())

	assert.True(t, features.Extract(nil).IsEmpty())

	data, err := json.Marshal(summary)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))
}

func TestExtractScenario(t *testing.T) {
	summary := features.Extract(waveform.Parse("0,1\n1,2\nfoo,bar\n2,3"))
	require.False(t, summary.IsEmpty())

	assert.Equal(t, 3.0, *summary.Max)
	assert.Equal(t, 1.0, *summary.Min)
	assert.Equal(t, 2.0, *summary.Mean)
	assert.Equal(t, 3, *summary.Samples)

	data, err := json.Marshal(summary)
	require.NoError(t, err)
	assert.JSONEq(t, `{"max":3,"min":1,"mean":2,"samples":3}`, string(data))
}

func TestExtractWhitespaceOnly(t *testing.T) {
	assert.True(t, features.Extract(waveform.Parse("  ")).IsEmpty())
}

func TestExtractSingleSample(t *testing.T) {
	summary := features.Extract(waveform.Series{{Time: 4, Value: -7.5}})
	assert.Equal(t, -7.5, *summary.Max)
	assert.Equal(t, -7.5, *summary.Min)
	assert.Equal(t, -7.5, *summary.Mean)
	assert.Equal(t, 1, *summary.Samples)
}

func TestExtractIgnoresTime(t *testing.T) {
	summary := features.Extract(waveform.Series{{Time: 1000, Value: 1}, {Time: -1000, Value: 2}})
	assert.Equal(t, 2.0, *summary.Max)
	assert.Equal(t, 1.0, *summary.Min)
}

func TestExtractBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 50; run++ {
		n := 1 + rng.Intn(200)
		series := make(waveform.Series, n)
		sum := 0.0
		for i := range series {
			v := rng.NormFloat64() * 100
			series[i] = waveform.Sample{Time: float64(i), Value: v}
			sum += v
		}

		summary := features.Extract(series)
		require.Equal(t, n, *summary.Samples)
		for _, sample := range series {
			assert.GreaterOrEqual(t, *summary.Max, sample.Value)
			assert.LessOrEqual(t, *summary.Min, sample.Value)
		}
		assert.InDelta(t, sum/float64(n), *summary.Mean, 1e-9)
	}
}

func TestExtractIdempotent(t *testing.T) {
	series := waveform.Series{{Time: 0, Value: 0.1}, {Time: 1, Value: 0.2}, {Time: 2, Value: 0.3}, {Time: 3, Value: 1e16}, {Time: 4, Value: -1e16}}

	first := features.Extract(series)
	second := features.Extract(series)
	assert.Equal(t, first, second)
	assert.Equal(t, *first.Mean, *second.Mean)
}

func TestSummaryFields(t *testing.T) {
	fields := features.Extract(waveform.Series{{Time: 0, Value: 2}, {Time: 1, Value: 4}}).Fields()
	assert.Equal(t, map[string]any{"max": 4.0, "min": 2.0, "mean": 3.0, "samples": 2}, fields)
}
