package report_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"codeberg.org/mutker/dcrmctl/internal/analysis"
	"codeberg.org/mutker/dcrmctl/internal/errors"
	"codeberg.org/mutker/dcrmctl/internal/metadata"
	"codeberg.org/mutker/dcrmctl/internal/prediction"
	"codeberg.org/mutker/dcrmctl/internal/report"
	"codeberg.org/mutker/dcrmctl/internal/waveform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sample(t *testing.T) analysis.Analysis {
	t.Helper()
	series, parsed := waveform.ParseWithReport("0,1\n1,2\nfoo,bar\n2,3")
	a := analysis.New("trace.csv", metadata.Metadata{BreakerID: "CB-1", Operation: metadata.OperationOpen}, series, parsed)
	return a.WithPrediction(prediction.Record{
		Classification:    prediction.MockClassification,
		Confidence:        prediction.MockConfidence,
		RecommendedAction: prediction.MockRecommendedAction,
		Features:          a.Summary,
	})
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf, "json", sample(t)))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "trace.csv", got["source"])
	assert.Equal(t, map[string]any{"max": 3.0, "min": 1.0, "mean": 2.0, "samples": 3.0}, got["features"])

	p, ok := got["prediction"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, prediction.MockClassification, p["classification"])
	assert.Equal(t, prediction.MockRecommendedAction, p["recommended_action"])
}

func TestRenderJSONList(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf, "json", sample(t), sample(t)))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Len(t, got, 2)

	buf.Reset()
	require.NoError(t, report.Render(&buf, "json"))
	assert.JSONEq(t, `[]`, buf.String())
}

func TestRenderYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf, "YAML", sample(t)))

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "trace.csv", got["source"])

	f, ok := got["features"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 3, f["samples"])
	assert.EqualValues(t, 2, f["mean"])
}

func TestRenderText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf, "text", sample(t)))

	out := buf.String()
	assert.Contains(t, out, "trace.csv")
	assert.Contains(t, out, "CB-1")
	assert.Contains(t, out, "4 read, 1 dropped")
	assert.Contains(t, out, `line 3: time is not a finite number ("foo,bar")`)
	assert.Regexp(t, `Mean\s+2\n`, out)
	assert.Contains(t, out, "Healthy (94.0% confidence)")
}

func TestRenderTextEmpty(t *testing.T) {
	a := analysis.New("", metadata.Metadata{}, waveform.Parse(""), waveform.Report{})

	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf, "", a))
	assert.Contains(t, buf.String(), "none (no samples)")
	assert.NotContains(t, buf.String(), "Classification")
}

func TestRenderUnknownFormat(t *testing.T) {
	err := report.Render(&bytes.Buffer{}, "xml", sample(t))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, report.ErrUnknownFormat))
}
