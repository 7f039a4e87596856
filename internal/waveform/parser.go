package waveform

import (
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"codeberg.org/mutker/dcrmctl/internal/errors"
)

const (
	reasonMissingToken = "fewer than two tokens"
	reasonInvalidTime  = "time is not a finite number"
	reasonInvalidValue = "value is not a finite number"
)

var (
	lineSplit = regexp.MustCompile(`\r?\n`)
	// a comma, or a run of any Unicode space separator (\s alone is ASCII only)
	tokenSplit = regexp.MustCompile(`,|[\s\v\p{Zs}\x{2028}\x{2029}\x{feff}]+`)
)

// DroppedLine describes an input line that produced no sample
type DroppedLine struct {
	Line   int    `json:"line" yaml:"line"`
	Text   string `json:"text" yaml:"text"`
	Reason string `json:"reason" yaml:"reason"`
}

// Report lists the lines Parse silently dropped
type Report struct {
	Lines   int           `json:"lines" yaml:"lines"`
	Dropped []DroppedLine `json:"dropped,omitempty" yaml:"dropped,omitempty"`
}

func (r Report) String() string {
	if len(r.Dropped) == 0 {
		return fmt.Sprintf("%d lines, none dropped", r.Lines)
	}

	first := r.Dropped[0]
	return fmt.Sprintf("%d of %d lines dropped (first at line %d: %s)",
		len(r.Dropped), r.Lines, first.Line, first.Reason)
}

// Parse converts raw trace text into a series. Lines whose first two
// tokens are not both finite numbers are dropped without notice.
func Parse(text string) Series {
	series, _ := ParseWithReport(text)
	return series
}

// ParseWithReport is Parse that also reports which lines were dropped
// and why. Line numbers refer to the original text.
func ParseWithReport(text string) (Series, Report) {
	trimmed := strings.TrimFunc(text, isSpace)
	if trimmed == "" {
		return Series{}, Report{}
	}

	// line numbers must survive the leading trim
	offset := strings.Count(text[:strings.Index(text, trimmed)], "\n")

	series := Series{}
	report := Report{}

	for i, line := range lineSplit.Split(trimmed, -1) {
		if strings.TrimFunc(line, isSpace) == "" {
			continue
		}
		report.Lines++

		sample, reason := parseLine(line)
		if reason != "" {
			report.Dropped = append(report.Dropped, DroppedLine{
				Line:   offset + i + 1,
				Text:   line,
				Reason: reason,
			})
			continue
		}

		series = append(series, sample)
	}

	return series, report
}

// Err returns a waveform_malformed_line error carrying r when any line
// was dropped, nil otherwise.
func (r Report) Err() error {
	if len(r.Dropped) == 0 {
		return nil
	}

	return errors.New().WithData(ErrMalformedLine, r)
}

// ParseStrict returns the parsed series together with an error when any
// non-empty line was dropped. The error carries the Report as data.
func ParseStrict(text string) (Series, error) {
	series, report := ParseWithReport(text)
	return series, report.Err()
}

// ReadTrace reads r to the end. Failures carry ErrReadFailed and wrap the
// reader's error.
func ReadTrace(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", errors.New().Wrap(ErrReadFailed, err)
	}

	return string(data), nil
}

// ParseReader reads r to the end and parses its contents
func ParseReader(r io.Reader) (Series, Report, error) {
	text, err := ReadTrace(r)
	if err != nil {
		return nil, Report{}, err
	}

	series, report := ParseWithReport(text)
	return series, report, nil
}

func parseLine(line string) (Sample, string) {
	tokens := tokenSplit.Split(line, -1)
	if len(tokens) < 2 {
		return Sample{}, reasonMissingToken
	}

	t, ok := parseFinite(tokens[0])
	if !ok {
		return Sample{}, reasonInvalidTime
	}

	v, ok := parseFinite(tokens[1])
	if !ok {
		return Sample{}, reasonInvalidValue
	}

	return Sample{Time: t, Value: v}, ""
}

// isSpace also treats a byte order mark as space
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\ufeff'
}

func parseFinite(token string) (float64, bool) {
	f, err := strconv.ParseFloat(token, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}

	return f, true
}
