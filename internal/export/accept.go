package export

import (
	"context"
	"fmt"

	"github.com/hyperjump/shikibetsu/internal/embedding"
	"github.com/hyperjump/shikibetsu/internal/models"
	"github.com/hyperjump/shikibetsu/internal/verify"
)

// Loader opens an artifact as an inference backend.
type Loader func(art *Artifact) (embedding.Backend, error)

// Decision is the acceptance verdict for an artifact.
type Decision struct {
	Artifact *Artifact                  `json:"artifact"`
	Accepted bool                       `json:"accepted"`
	Reason   string                     `json:"reason"`
	Report   *models.VerificationReport `json:"report"`
}

// Accept loads art and runs the harness with reference first and the artifact second. The
// artifact is accepted when its backend is input-sensitive and answered every probe. The loaded
// backend is closed before returning.
func Accept(ctx context.Context, h *verify.Harness, reference embedding.Backend, art *Artifact, load Loader) (*Decision, error) {
	candidate, err := load(art)
	if err != nil {
		return nil, fmt.Errorf("load artifact %s: %w", art.Path(), err)
	}
	defer candidate.Close()
	if candidate.Variant().Name == reference.Variant().Name {
		return nil, fmt.Errorf("artifact variant %q has the same name as the reference", candidate.Variant().Name)
	}

	report := h.Run(ctx, reference, candidate)
	d := &Decision{Artifact: art, Report: report}
	b := report.Backend(candidate.Variant().Name)
	switch {
	case b == nil:
		d.Reason = "artifact backend missing from report"
	case b.Stability.Collapsed:
		d.Reason = fmt.Sprintf("outputs collapsed (max pairwise similarity %.4f)", b.Stability.MaxSimilarity)
	case b.Errors > 0:
		d.Reason = fmt.Sprintf("%d probes failed", b.Errors)
	case b.Stability.Pairs == 0:
		d.Reason = "no noise outputs to check stability"
	default:
		d.Accepted = true
		d.Reason = fmt.Sprintf("input-sensitive (max pairwise similarity %.4f)", b.Stability.MaxSimilarity)
		if len(report.Comparisons) > 0 {
			d.Reason += fmt.Sprintf(", max abs diff vs %s %.6f", reference.Variant().Name, report.Comparisons[0].MaxAbsDiff)
		}
	}
	return d, nil
}
