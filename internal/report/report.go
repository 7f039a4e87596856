// Package report renders analyses for the terminal or for other tools.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"codeberg.org/mutker/dcrmctl/internal/analysis"
	"codeberg.org/mutker/dcrmctl/internal/errors"
	"gopkg.in/yaml.v3"
)

const ErrUnknownFormat = errors.ErrInvalidFormat

// Render writes analyses to w in the given format (text, json or yaml).
// A single analysis is rendered as an object, several as a list.
func Render(w io.Writer, format string, analyses ...analysis.Analysis) error {
	errFactory := errors.New()

	var err error
	switch strings.ToLower(format) {
	case "json":
		err = renderJSON(w, analyses)
	case "yaml":
		err = renderYAML(w, analyses)
	case "text", "":
		err = renderText(w, analyses)
	default:
		return errFactory.WithData(ErrUnknownFormat, format)
	}
	if err != nil {
		return errFactory.Wrap(errors.ErrRenderReport, err)
	}

	return nil
}

func payload(analyses []analysis.Analysis) any {
	if len(analyses) == 1 {
		return analyses[0]
	}
	if analyses == nil {
		return []analysis.Analysis{}
	}
	return analyses
}

func renderJSON(w io.Writer, analyses []analysis.Analysis) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload(analyses))
}

func renderYAML(w io.Writer, analyses []analysis.Analysis) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(payload(analyses)); err != nil {
		return err
	}
	return enc.Close()
}

func renderText(w io.Writer, analyses []analysis.Analysis) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	for i, a := range analyses {
		if i > 0 {
			fmt.Fprintln(tw)
		}

		title := a.ID.String()
		if a.Source != "" {
			title = a.Source + " (" + title + ")"
		}
		fmt.Fprintf(tw, "Analysis\t%s\n", title)
		fmt.Fprintf(tw, "Created\t%s\n", a.CreatedAt.Format("2006-01-02 15:04:05 MST"))

		m := a.Metadata
		for _, field := range [][2]string{
			{"Breaker", m.BreakerID},
			{"Substation", m.Substation},
			{"Manufacturer", m.Manufacturer},
			{"Operation", m.Operation.String()},
			{"Test date", m.TestDate},
			{"Operator", m.Operator},
			{"Notes", m.Notes},
		} {
			if field[1] != "" {
				fmt.Fprintf(tw, "%s\t%s\n", field[0], field[1])
			}
		}

		fmt.Fprintf(tw, "Lines\t%d read, %d dropped\n", a.Parse.Lines, len(a.Parse.Dropped))
		for _, d := range a.Parse.Dropped {
			fmt.Fprintf(tw, "\tline %d: %s (%q)\n", d.Line, d.Reason, d.Text)
		}

		s := a.Summary
		if s.IsEmpty() {
			fmt.Fprintf(tw, "Features\tnone (no samples)\n")
		} else {
			fmt.Fprintf(tw, "Samples\t%d\n", *s.Samples)
			fmt.Fprintf(tw, "Max\t%s\n", formatFloat(*s.Max))
			fmt.Fprintf(tw, "Min\t%s\n", formatFloat(*s.Min))
			fmt.Fprintf(tw, "Mean\t%s\n", formatFloat(*s.Mean))
		}

		if p := a.Prediction; p != nil {
			fmt.Fprintf(tw, "Classification\t%s (%.1f%% confidence)\n", p.Classification, p.Confidence*100)
			fmt.Fprintf(tw, "Recommended action\t%s\n", p.RecommendedAction)
		}
	}

	return tw.Flush()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
