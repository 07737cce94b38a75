package output

import (
	"io"

	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	verbose bool
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(verbose bool) *JSONFormatter {
	return &JSONFormatter{verbose: verbose}
}

// Format renders the report as indented JSON. The latency histogram is only
// included in verbose mode.
func (f *JSONFormatter) Format(report *Report) (string, error) {
	data, err := jsonAPI.MarshalIndent(f.view(report), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Write writes the report as JSON to the writer
func (f *JSONFormatter) Write(w io.Writer, report *Report) error {
	encoder := jsonAPI.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(f.view(report))
}

func (f *JSONFormatter) view(report *Report) *Report {
	if f.verbose || report.Metrics == nil || report.Metrics.Histogram == nil {
		return report
	}
	r := *report
	m := *report.Metrics
	m.Histogram = nil
	r.Metrics = &m
	return &r
}
