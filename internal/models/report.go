package models

import "time"

// ScoredLabel is one gallery entry scored against a query.
type ScoredLabel struct {
	Index int     `json:"index"`
	Label string  `json:"label"`
	Score float64 `json:"score"` // cosine similarity x 100
}

// TargetRank is the position of a designated label among all gallery entries.
// Rank is 1 + the number of entries with a strictly greater score, so ties share a rank.
type TargetRank struct {
	Label string  `json:"label"`
	Index int     `json:"index"`
	Rank  int     `json:"rank"`
	Score float64 `json:"score"`
}

// ScoreReport is the ranked result for one query.
type ScoreReport struct {
	Results   []ScoredLabel `json:"results"`
	Target    *TargetRank   `json:"target,omitempty"`
	Magnitude float64       `json:"magnitude"` // L2 norm of the raw query
	Total     int           `json:"total"`     // number of gallery entries scored
}

// Top1 returns the best-scoring label, or "" when there are no results.
func (r *ScoreReport) Top1() string {
	if r == nil || len(r.Results) == 0 {
		return ""
	}
	return r.Results[0].Label
}

// Probe kinds.
const (
	ProbeSolid    = "solid"
	ProbeNoise    = "noise"
	ProbeRawNoise = "raw_noise"
)

// ProbeResult is one probe run through one backend.
type ProbeResult struct {
	Name        string        `json:"name"`
	Kind        string        `json:"kind"`
	Expectation string        `json:"expectation,omitempty"`
	Magnitude   float64       `json:"magnitude"`
	Top         []ScoredLabel `json:"top,omitempty"`
	Target      *TargetRank   `json:"target,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// StabilityResult summarizes pairwise cosine similarity across the noise probes.
type StabilityResult struct {
	Pairs             int     `json:"pairs"`
	MinSimilarity     float64 `json:"min_similarity"`
	MaxSimilarity     float64 `json:"max_similarity"`
	MeanSimilarity    float64 `json:"mean_similarity"`
	CollapseThreshold float64 `json:"collapse_threshold"`
	VarianceThreshold float64 `json:"variance_threshold"`
	// Collapsed is set when the maximum pairwise similarity exceeds CollapseThreshold.
	Collapsed bool `json:"collapsed"`
	// LowVariance is a warning: the minimum pairwise similarity exceeds VarianceThreshold.
	LowVariance bool `json:"low_variance"`
}

// BackendReport holds all probe results for one backend.
type BackendReport struct {
	Variant   ModelVariant    `json:"variant"`
	Probes    []ProbeResult   `json:"probes"`
	Noise     []ProbeResult   `json:"noise"`
	Stability StabilityResult `json:"stability"`
	Errors    int             `json:"errors"`
}

// Passed reports whether the backend is input-sensitive and answered every probe.
func (b *BackendReport) Passed() bool {
	return !b.Stability.Collapsed && b.Errors == 0 && b.Stability.Pairs > 0
}

// ProbeComparison compares one probe across a reference and a candidate backend.
type ProbeComparison struct {
	Probe               string  `json:"probe"`
	Kind                string  `json:"kind"`
	MaxAbsDiff          float64 `json:"max_abs_diff"`
	ReferenceMagnitude  float64 `json:"reference_magnitude"`
	CandidateMagnitude  float64 `json:"candidate_magnitude"`
	ReferenceTop1       string  `json:"reference_top1,omitempty"`
	CandidateTop1       string  `json:"candidate_top1,omitempty"`
	Top1Agrees          bool    `json:"top1_agrees"`
	ReferenceTargetRank int     `json:"reference_target_rank,omitempty"`
	CandidateTargetRank int     `json:"candidate_target_rank,omitempty"`
	Error               string  `json:"error,omitempty"`
}

// ComparisonReport is the cross-backend equivalence and ranking-consistency result.
type ComparisonReport struct {
	Reference      string            `json:"reference"`
	Candidate      string            `json:"candidate"`
	Probes         []ProbeComparison `json:"probes"`
	MaxAbsDiff     float64           `json:"max_abs_diff"`
	Top1Agreements int               `json:"top1_agreements"`
	RankedProbes   int               `json:"ranked_probes"`
}

// FullAgreement reports whether every ranked probe had the same top-1 label on both backends.
func (c *ComparisonReport) FullAgreement() bool {
	return c.RankedProbes > 0 && c.Top1Agreements == c.RankedProbes
}

// VerificationReport aggregates the diagnostics from one harness run.
type VerificationReport struct {
	ID            string             `json:"id"`
	CreatedAt     time.Time          `json:"created_at"`
	GalleryLabels int                `json:"gallery_labels"`
	Dimensions    int                `json:"dimensions"`
	TargetLabel   string             `json:"target_label,omitempty"`
	Backends      []BackendReport    `json:"backends"`
	Comparisons   []ComparisonReport `json:"comparisons,omitempty"`
	Warnings      []string           `json:"warnings,omitempty"`
}

// Passed reports whether every backend passed its own checks. Ranking disagreement does not fail a run.
func (r *VerificationReport) Passed() bool {
	if len(r.Backends) == 0 {
		return false
	}
	for i := range r.Backends {
		if !r.Backends[i].Passed() {
			return false
		}
	}
	return true
}

// Backend returns the report for the named backend, or nil.
func (r *VerificationReport) Backend(name string) *BackendReport {
	for i := range r.Backends {
		if r.Backends[i].Variant.Name == name {
			return &r.Backends[i]
		}
	}
	return nil
}
