// Package ranking scores query embeddings against a label gallery.
package ranking

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/hyperjump/shikibetsu/internal/models"
	"github.com/hyperjump/shikibetsu/internal/vector"
)

// Options controls a single Rank call.
type Options struct {
	// TopK limits the returned results; <= 0 returns every gallery entry.
	TopK int
	// Target, when set, is located in the full ranking and reported in ScoreReport.Target.
	Target string
}

// Suggester proposes gallery labels close to a misspelled one.
type Suggester interface {
	Suggest(label string, n int) []string
}

// Ranker scores a query against every gallery entry by cosine similarity.
type Ranker struct {
	suggester      Suggester
	maxSuggestions int
}

// RankerOption configures a Ranker.
type RankerOption func(*Ranker)

// WithSuggester attaches label suggestions to LabelNotFoundError.
func WithSuggester(s Suggester, n int) RankerOption {
	return func(r *Ranker) {
		r.suggester = s
		r.maxSuggestions = n
	}
}

// NewRanker creates a Ranker.
func NewRanker(opts ...RankerOption) *Ranker {
	r := &Ranker{maxSuggestions: 3}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rank normalizes query, scores it against every gallery row as dot product x 100 and sorts by
// score descending. Equal scores keep gallery order. A zero query is not normalized and scores 0
// everywhere.
func (r *Ranker) Rank(query []float32, g *models.Gallery, opts Options) (*models.ScoreReport, error) {
	targetIdx := -1
	if opts.Target != "" {
		targetIdx = g.IndexOf(opts.Target)
		if targetIdx < 0 {
			return nil, r.notFound(opts.Target)
		}
	}
	if g.Len() > 0 && len(query) != g.Dimensions() {
		return nil, &models.ShapeError{
			Context: "query embedding",
			Got:     fmt.Sprintf("%d values", len(query)),
			Want:    fmt.Sprintf("%d values (gallery dimension)", g.Dimensions()),
		}
	}

	unit, mag := vector.Normalize64(query)
	scores := make([]float64, g.Len())
	for i, row := range g.Embeddings {
		var dot float64
		for j, v := range row {
			dot += unit[j] * float64(v)
		}
		scores[i] = dot * 100
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(scores[b], scores[a])
	})

	k := opts.TopK
	if k <= 0 || k > len(order) {
		k = len(order)
	}
	report := &models.ScoreReport{
		Results:   make([]models.ScoredLabel, k),
		Magnitude: mag,
		Total:     len(order),
	}
	for n, i := range order[:k] {
		report.Results[n] = models.ScoredLabel{Index: i, Label: g.Labels[i], Score: scores[i]}
	}
	if targetIdx >= 0 {
		report.Target = targetRank(scores, targetIdx, opts.Target)
	}
	return report, nil
}

// Neighbors returns the k gallery entries most similar to label's own row, excluding that row.
func (r *Ranker) Neighbors(g *models.Gallery, label string, k int) ([]models.ScoredLabel, error) {
	idx := g.IndexOf(label)
	if idx < 0 {
		return nil, r.notFound(label)
	}
	report, err := r.Rank(g.Embeddings[idx], g, Options{})
	if err != nil {
		return nil, err
	}
	out := make([]models.ScoredLabel, 0, len(report.Results))
	for _, s := range report.Results {
		if s.Index == idx {
			continue
		}
		out = append(out, s)
		if k > 0 && len(out) == k {
			break
		}
	}
	return out, nil
}

func targetRank(scores []float64, idx int, label string) *models.TargetRank {
	rank := 1
	for _, s := range scores {
		if s > scores[idx] {
			rank++
		}
	}
	return &models.TargetRank{Label: label, Index: idx, Rank: rank, Score: scores[idx]}
}

func (r *Ranker) notFound(label string) error {
	err := &models.LabelNotFoundError{Label: label}
	if r.suggester != nil {
		err.Suggestions = r.suggester.Suggest(label, r.maxSuggestions)
	}
	return err
}
