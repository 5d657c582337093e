// Package verify runs a synthetic probe battery through inference backends and reports whether
// each backend is input-sensitive and consistent with a reference.
package verify

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/shikibetsu/internal/config"
	"github.com/hyperjump/shikibetsu/internal/embedding"
	"github.com/hyperjump/shikibetsu/internal/models"
	"github.com/hyperjump/shikibetsu/internal/ranking"
	"github.com/hyperjump/shikibetsu/internal/vector"
	"go.uber.org/zap"
)

// Harness runs the probe battery. The gallery is optional; without it ranking is skipped.
type Harness struct {
	gallery *models.Gallery
	cfg     config.VerifyConfig
	ranker  *ranking.Ranker
	logger  *zap.Logger
	now     func() time.Time
}

// HarnessOption configures a Harness.
type HarnessOption func(*Harness)

// WithLogger sets a logger for per-backend summaries.
func WithLogger(l *zap.Logger) HarnessOption {
	return func(h *Harness) { h.logger = l }
}

// WithRanker replaces the default ranker, e.g. to attach label suggestions.
func WithRanker(r *ranking.Ranker) HarnessOption {
	return func(h *Harness) { h.ranker = r }
}

// WithClock sets the time source for report timestamps.
func WithClock(now func() time.Time) HarnessOption {
	return func(h *Harness) { h.now = now }
}

// NewHarness creates a harness ranking against g. A nil cfg uses the defaults.
func NewHarness(g *models.Gallery, cfg *config.VerifyConfig, opts ...HarnessOption) *Harness {
	var c config.Config
	if cfg != nil {
		c.Verify = *cfg
	}
	config.ApplyDefaults(&c)
	h := &Harness{
		gallery: g,
		cfg:     c.Verify,
		ranker:  ranking.NewRanker(),
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Probes builds the probe battery: solid colours, the raw noise probe, then the noise probes.
func (h *Harness) Probes() ([]Probe, error) {
	var probes []Probe
	for _, c := range SolidColors {
		p, err := SolidProbe(c, h.cfg.ImageSize)
		if err != nil {
			return nil, err
		}
		probes = append(probes, p)
	}
	if !h.cfg.SkipRawNoise {
		probes = append(probes, RawNoiseProbe(h.cfg.ImageSize, h.cfg.Seed))
	}
	noise, err := NoiseProbes(h.cfg.NoiseProbes, h.cfg.ImageSize, h.cfg.NoiseScale, h.cfg.Seed)
	if err != nil {
		return nil, err
	}
	return append(probes, noise...), nil
}

// backendRun keeps the raw outputs of one backend, indexed like the probe battery.
type backendRun struct {
	report models.BackendReport
	raw    [][]float32
	byName map[string]*models.ProbeResult
}

// Run feeds every probe through every backend and returns the report. The first backend is the
// reference for cross-backend comparison. Check failures and backend errors are recorded in the
// report; Run itself does not fail.
func (h *Harness) Run(ctx context.Context, backends ...embedding.Backend) *models.VerificationReport {
	report := &models.VerificationReport{
		ID:          uuid.New().String(),
		CreatedAt:   h.now().UTC(),
		TargetLabel: h.cfg.TargetLabel,
	}
	if h.gallery != nil {
		report.GalleryLabels = h.gallery.Len()
		report.Dimensions = h.gallery.Dimensions()
	} else {
		report.Warnings = append(report.Warnings, "no gallery loaded: ranking checks skipped")
	}
	if len(backends) == 0 {
		report.Warnings = append(report.Warnings, "no backends to verify")
		return report
	}

	probes, err := h.Probes()
	if err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("probe construction failed: %v", err))
		return report
	}

	target := h.cfg.TargetLabel
	if target != "" && h.gallery != nil {
		if _, err := h.ranker.Rank(make([]float32, h.gallery.Dimensions()), h.gallery, ranking.Options{TopK: 1, Target: target}); err != nil {
			report.Warnings = append(report.Warnings, fmt.Sprintf("target ranks omitted: %v", err))
			target = ""
		}
	}

	runs := make([]*backendRun, len(backends))
	for i, b := range backends {
		runs[i] = h.runBackend(ctx, b, probes, target)
		report.Backends = append(report.Backends, runs[i].report)
		st := runs[i].report.Stability
		name := runs[i].report.Variant.Name
		if st.Collapsed {
			report.Warnings = append(report.Warnings, fmt.Sprintf(
				"%s: outputs nearly identical regardless of input (max pairwise similarity %.4f > %.4f)",
				name, st.MaxSimilarity, st.CollapseThreshold))
		} else if st.LowVariance {
			report.Warnings = append(report.Warnings, fmt.Sprintf(
				"%s: low output variance (min pairwise similarity %.4f > %.4f)",
				name, st.MinSimilarity, st.VarianceThreshold))
		}
		if st.Pairs == 0 {
			report.Warnings = append(report.Warnings, fmt.Sprintf("%s: too few noise outputs for a stability check", name))
		}
	}

	for i := 1; i < len(runs); i++ {
		report.Comparisons = append(report.Comparisons, compare(probes, runs[0], runs[i]))
	}
	return report
}

func (h *Harness) runBackend(ctx context.Context, b embedding.Backend, probes []Probe, target string) *backendRun {
	run := &backendRun{
		report: models.BackendReport{Variant: b.Variant()},
		raw:    make([][]float32, len(probes)),
		byName: make(map[string]*models.ProbeResult, len(probes)),
	}
	var noise [][]float32
	for i, p := range probes {
		res := models.ProbeResult{Name: p.Name, Kind: p.Kind, Expectation: p.Expectation}
		emb, err := b.Embed(ctx, p.Input)
		if err != nil {
			res.Error = err.Error()
			run.report.Errors++
		} else {
			run.raw[i] = emb
			res.Magnitude = vector.L2Norm(emb)
			if p.Kind == models.ProbeNoise {
				noise = append(noise, emb)
			}
			if h.gallery != nil {
				scores, err := h.ranker.Rank(emb, h.gallery, ranking.Options{TopK: h.cfg.TopK, Target: target})
				if err != nil {
					res.Error = err.Error()
					run.report.Errors++
				} else {
					res.Top = scores.Results
					res.Target = scores.Target
				}
			}
		}
		if p.Kind == models.ProbeNoise {
			run.report.Noise = append(run.report.Noise, res)
		} else {
			run.report.Probes = append(run.report.Probes, res)
		}
	}
	for i := range run.report.Probes {
		run.byName[run.report.Probes[i].Name] = &run.report.Probes[i]
	}
	for i := range run.report.Noise {
		run.byName[run.report.Noise[i].Name] = &run.report.Noise[i]
	}

	stats := vector.Pairwise(noise)
	run.report.Stability = models.StabilityResult{
		Pairs:             stats.Pairs,
		MinSimilarity:     stats.Min,
		MaxSimilarity:     stats.Max,
		MeanSimilarity:    stats.Mean,
		CollapseThreshold: h.cfg.CollapseThreshold,
		VarianceThreshold: h.cfg.VarianceThreshold,
		Collapsed:         stats.Pairs > 0 && stats.Max > h.cfg.CollapseThreshold,
		LowVariance:       stats.Pairs > 0 && stats.Min > h.cfg.VarianceThreshold,
	}

	h.logger.Info("backend verified",
		zap.String("variant", run.report.Variant.String()),
		zap.Int("errors", run.report.Errors),
		zap.Float64("max_pairwise", stats.Max),
		zap.Float64("min_pairwise", stats.Min),
		zap.Bool("collapsed", run.report.Stability.Collapsed))
	return run
}

func compare(probes []Probe, ref, cand *backendRun) models.ComparisonReport {
	out := models.ComparisonReport{
		Reference: ref.report.Variant.Name,
		Candidate: cand.report.Variant.Name,
	}
	for i, p := range probes {
		pc := models.ProbeComparison{Probe: p.Name, Kind: p.Kind}
		a, b := ref.raw[i], cand.raw[i]
		switch {
		case a == nil || b == nil:
			pc.Error = "missing output from one backend"
		case len(a) != len(b):
			pc.Error = fmt.Sprintf("output dimensions differ: %d vs %d", len(a), len(b))
		default:
			pc.MaxAbsDiff = vector.MaxAbsDiff(a, b)
			pc.ReferenceMagnitude = vector.L2Norm(a)
			pc.CandidateMagnitude = vector.L2Norm(b)
			out.MaxAbsDiff = math.Max(out.MaxAbsDiff, pc.MaxAbsDiff)
		}

		if p.Kind == models.ProbeSolid {
			rr, cr := ref.byName[p.Name], cand.byName[p.Name]
			if len(rr.Top) > 0 && len(cr.Top) > 0 {
				pc.ReferenceTop1 = rr.Top[0].Label
				pc.CandidateTop1 = cr.Top[0].Label
				pc.Top1Agrees = pc.ReferenceTop1 == pc.CandidateTop1
				out.RankedProbes++
				if pc.Top1Agrees {
					out.Top1Agreements++
				}
			}
			if rr.Target != nil {
				pc.ReferenceTargetRank = rr.Target.Rank
			}
			if cr.Target != nil {
				pc.CandidateTargetRank = cr.Target.Rank
			}
		}
		out.Probes = append(out.Probes, pc)
	}
	return out
}
