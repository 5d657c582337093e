package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/shikibetsu/internal/export"
	"github.com/hyperjump/shikibetsu/internal/gallery"
	"github.com/hyperjump/shikibetsu/internal/labels"
	"github.com/hyperjump/shikibetsu/internal/models"
	"github.com/hyperjump/shikibetsu/pkg/utils"
)

// WriteVerificationReport writes the per-backend probe results, stability checks and
// cross-backend comparisons.
func WriteVerificationReport(w io.Writer, report *models.VerificationReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, report)
	}
	fmt.Fprintf(w, "\nVerification %s (%s)\n", report.ID, report.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Gallery: %d labels x %d dims\n", report.GalleryLabels, report.Dimensions)
	for _, warning := range report.Warnings {
		fmt.Fprintf(w, "WARNING: %s\n", warning)
	}
	for i := range report.Backends {
		writeBackend(w, &report.Backends[i], report.GalleryLabels)
	}
	for i := range report.Comparisons {
		writeComparison(w, &report.Comparisons[i])
	}
	fmt.Fprintln(w, rule)
	if report.Passed() {
		fmt.Fprintln(w, "RESULT: PASS")
	} else {
		fmt.Fprintln(w, "RESULT: FAIL")
	}
	return nil
}

func writeBackend(w io.Writer, b *models.BackendReport, total int) {
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Backend: %s\n", b.Variant)
	for _, p := range b.Probes {
		writeProbe(w, &p, total)
	}
	st := b.Stability
	fmt.Fprintf(w, "\nNoise stability over %d pairs: min %.4f  max %.4f  mean %.4f\n",
		st.Pairs, st.MinSimilarity, st.MaxSimilarity, st.MeanSimilarity)
	switch {
	case st.Collapsed:
		fmt.Fprintf(w, "  COLLAPSED: max similarity above %.3f, outputs ignore the input\n", st.CollapseThreshold)
	case st.LowVariance:
		fmt.Fprintf(w, "  low variance: min similarity above %.2f\n", st.VarianceThreshold)
	case st.Pairs > 0:
		fmt.Fprintln(w, "  input-sensitive")
	}
	if b.Errors > 0 {
		fmt.Fprintf(w, "  %d probe errors\n", b.Errors)
	}
}

func writeProbe(w io.Writer, p *models.ProbeResult, total int) {
	fmt.Fprintf(w, "\n[%s] %s", p.Kind, p.Name)
	if p.Expectation != "" {
		fmt.Fprintf(w, " (should be: %s)", p.Expectation)
	}
	fmt.Fprintln(w)
	if p.Error != "" {
		fmt.Fprintf(w, "  error: %s\n", p.Error)
		return
	}
	fmt.Fprintf(w, "  magnitude: %.4f\n", p.Magnitude)
	writeScored(w, p.Top, "  ")
	if p.Target != nil {
		fmt.Fprintf(w, "  '%s' rank: %d / %d\n", p.Target.Label, p.Target.Rank, total)
	}
}

func writeComparison(w io.Writer, c *models.ComparisonReport) {
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Comparison: %s vs %s\n", c.Reference, c.Candidate)
	for _, p := range c.Probes {
		if p.Error != "" {
			fmt.Fprintf(w, "  %-12s error: %s\n", p.Probe, p.Error)
			continue
		}
		line := fmt.Sprintf("  %-12s max abs diff %.6f", p.Probe, p.MaxAbsDiff)
		if p.Kind == models.ProbeSolid {
			agree := "agree"
			if !p.Top1Agrees {
				agree = "DIFFER"
			}
			line += fmt.Sprintf("  top-1 %s / %s (%s)", p.ReferenceTop1, p.CandidateTop1, agree)
			if p.ReferenceTargetRank > 0 {
				line += fmt.Sprintf("  target rank %d / %d", p.ReferenceTargetRank, p.CandidateTargetRank)
			}
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "Overall max abs diff: %.6f, top-1 agreement %d/%d\n", c.MaxAbsDiff, c.Top1Agreements, c.RankedProbes)
}

// WriteDiagnostics writes gallery geometry statistics.
func WriteDiagnostics(w io.Writer, d gallery.Diagnostics, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, d)
	}
	fmt.Fprintf(w, "\nGallery: %d labels x %d dims\n", d.Labels, d.Dimensions)
	fmt.Fprintf(w, "Norms: min %.4f  max %.4f  mean %.4f\n", d.NormMin, d.NormMax, d.NormMean)
	fmt.Fprintf(w, "Mean similarity to centroid: %.4f\n", d.CentroidSimilarity)
	fmt.Fprintf(w, "Pairwise similarity (%d pairs): min %.4f  max %.4f  mean %.4f\n",
		d.Sample.Pairs, d.Sample.Min, d.Sample.Max, d.Sample.Mean)
	return nil
}

// WriteDecision writes the export outcome: every strategy attempt and the acceptance verdict.
func WriteDecision(w io.Writer, attempts []export.Attempt, d *export.Decision, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]interface{}{"attempts": attempts, "decision": d})
	}
	for _, a := range attempts {
		if a.Error != "" {
			fmt.Fprintf(w, "strategy %s failed: %s\n", a.Strategy, a.Error)
		} else {
			fmt.Fprintf(w, "strategy %s succeeded\n", a.Strategy)
		}
	}
	if d == nil {
		fmt.Fprintln(w, "no artifact to verify")
		return nil
	}
	if d.Artifact != nil {
		f := d.Artifact.Files
		fmt.Fprintf(w, "artifact: %s (%s)", f.ModelPath, utils.FormatBytes(f.ModelBytes))
		if f.SidecarPath != "" {
			fmt.Fprintf(w, " + %s (%s)", f.SidecarPath, utils.FormatBytes(f.SidecarBytes))
		}
		fmt.Fprintln(w)
	}
	verdict := "REJECTED"
	if d.Accepted {
		verdict = "ACCEPTED"
	}
	fmt.Fprintf(w, "%s: %s\n", verdict, d.Reason)
	return nil
}

// WriteImportResult writes an imported label list, one label per line.
func WriteImportResult(w io.Writer, res *labels.Result, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	fmt.Fprintln(w, strings.Join(res.Labels, "\n"))
	if len(res.Duplicates) > 0 {
		fmt.Fprintf(w, "\n%d duplicates dropped: %s\n", len(res.Duplicates), strings.Join(res.Duplicates, ", "))
	}
	return nil
}
