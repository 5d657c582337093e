// Package cli renders shikibetsu results for the terminal.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/shikibetsu/internal/keyword"
	"github.com/hyperjump/shikibetsu/internal/models"
	"github.com/hyperjump/shikibetsu/internal/storage"
	"github.com/hyperjump/shikibetsu/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat maps a flag value to an OutputFormat.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(OutputText):
		return OutputText, nil
	case string(OutputJSON):
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

const rule = "─────────────────────────────────────────────────────────"

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteScoreReport writes a ranked classification result.
func WriteScoreReport(w io.Writer, report *models.ScoreReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, report)
	}
	fmt.Fprintf(w, "\nScored %d labels (query magnitude %.4f)\n\n", report.Total, report.Magnitude)
	writeScored(w, report.Results, "")
	if report.Target != nil {
		fmt.Fprintf(w, "\n'%s' rank: %d / %d (score %.2f)\n", report.Target.Label, report.Target.Rank, report.Total, report.Target.Score)
	}
	return nil
}

func writeScored(w io.Writer, results []models.ScoredLabel, indent string) {
	for i, r := range results {
		fmt.Fprintf(w, "%s%d. %-40s %7.2f\n", indent, i+1, utils.Truncate(r.Label, 40), r.Score)
	}
}

// WriteNeighbors writes the nearest gallery entries to label.
func WriteNeighbors(w io.Writer, label string, neighbors []models.ScoredLabel, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]interface{}{"label": label, "neighbors": neighbors})
	}
	fmt.Fprintf(w, "\nNearest labels to '%s':\n\n", label)
	writeScored(w, neighbors, "  ")
	return nil
}

// WriteLabelMatches writes label search results, or suggestions when nothing matched.
func WriteLabelMatches(w io.Writer, query string, matches []keyword.LabelMatch, suggestions []string, format OutputFormat) error {
	if format == OutputJSON {
		if matches == nil {
			matches = []keyword.LabelMatch{}
		}
		out := map[string]interface{}{"query": query, "matches": matches}
		if len(suggestions) > 0 {
			out["suggestions"] = suggestions
		}
		return writeJSON(w, out)
	}
	if len(matches) == 0 {
		fmt.Fprintf(w, "No labels match '%s'.\n", query)
		if len(suggestions) > 0 {
			fmt.Fprintf(w, "Did you mean: %s?\n", strings.Join(suggestions, ", "))
		}
		return nil
	}
	fmt.Fprintf(w, "\n%d labels match '%s'\n\n", len(matches), query)
	for i, m := range matches {
		fmt.Fprintf(w, "%d. %-40s %7.3f  (#%d)\n", i+1, utils.Truncate(m.Label, 40), m.Score, m.Index)
	}
	return nil
}

// WriteReportSummaries writes stored verification runs, newest first.
func WriteReportSummaries(w io.Writer, summaries []*storage.ReportSummary, total int64, format OutputFormat) error {
	if format == OutputJSON {
		if summaries == nil {
			summaries = []*storage.ReportSummary{}
		}
		return writeJSON(w, map[string]interface{}{"reports": summaries, "total": total})
	}
	fmt.Fprintf(w, "\n%d of %d reports\n\n", len(summaries), total)
	for _, s := range summaries {
		status := "FAIL"
		if s.Passed {
			status = "PASS"
		}
		fmt.Fprintf(w, "%s  %s  %s  labels=%d warnings=%d backends=%s",
			s.ID, s.CreatedAt.Format("2006-01-02 15:04:05"), status, s.GalleryLabels, s.Warnings, strings.Join(s.Backends, ","))
		if len(s.Backends) > 1 {
			fmt.Fprintf(w, " max_abs_diff=%.6f", s.MaxAbsDiff)
		}
		fmt.Fprintln(w)
	}
	return nil
}
