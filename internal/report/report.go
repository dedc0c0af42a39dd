// Package report renders a GC log summary for terminals and for machines.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/mabhi256/gcmodel/internal/gc"
)

type Format string

const (
	FormatCLI     Format = "cli"
	FormatCLIMore Format = "cli-more"
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
)

// Formats lists every supported output format.
var Formats = []Format{FormatCLI, FormatCLIMore, FormatJSON, FormatYAML}

var ErrUnknownFormat = errors.New("unknown output format")

func ParseFormat(s string) (Format, error) {
	f := Format(s)
	if !slices.Contains(Formats, f) {
		return "", fmt.Errorf("%w %q, valid options: %v", ErrUnknownFormat, s, Formats)
	}
	return f, nil
}

// Report is everything known about one analyzed GC log.
type Report struct {
	Source  string                `json:"source" yaml:"source"`
	Summary gc.Summary            `json:"summary" yaml:"summary"`
	Issues  []gc.PerformanceIssue `json:"issues" yaml:"issues"`
}

// New summarizes store and runs issue detection on the result.
func New(source string, store *gc.Store, percentiles []float64) Report {
	sum := gc.Summarize(store, percentiles)
	return Report{
		Source:  source,
		Summary: sum,
		Issues:  gc.DetectIssues(sum),
	}
}

func Write(w io.Writer, format Format, rep Report) error {
	switch format {
	case FormatCLI:
		return writeCLI(w, rep, false)
	case FormatCLIMore:
		return writeCLI(w, rep, true)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return fmt.Errorf("encode json report: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return fmt.Errorf("encode yaml report: %w", err)
		}
		return enc.Close()
	}
	return fmt.Errorf("%w %q", ErrUnknownFormat, format)
}
