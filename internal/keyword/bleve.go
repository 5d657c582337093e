package keyword

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"
)

const (
	labelField = "label"
	// DefaultMaxDistance bounds whole-label edit distance for suggestions found by scanning.
	DefaultMaxDistance = 2
	defaultFuzziness   = 2
	minCandidates      = 20
)

// LabelIndex is an in-memory Bleve index over gallery labels. Document ids are gallery positions.
type LabelIndex struct {
	mu          sync.RWMutex
	index       bleve.Index
	labels      []string
	maxDistance int
	logger      *zap.Logger
}

// LabelIndexOption configures a LabelIndex.
type LabelIndexOption func(*LabelIndex)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) LabelIndexOption {
	return func(x *LabelIndex) {
		x.logger = l
	}
}

// WithMaxDistance sets the whole-label edit distance accepted by the suggestion scan.
func WithMaxDistance(d int) LabelIndexOption {
	return func(x *LabelIndex) {
		if d > 0 {
			x.maxDistance = d
		}
	}
}

// NewLabelIndex builds an index over labels.
func NewLabelIndex(labels []string, opts ...LabelIndexOption) (*LabelIndex, error) {
	x := &LabelIndex{
		maxDistance: DefaultMaxDistance,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(x)
	}
	if err := x.Rebuild(labels); err != nil {
		return nil, err
	}
	return x, nil
}

func newMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()
	// standard analyzer: lowercase + tokenize, no stemming, so "Felis catus" keeps both terms
	field := bleve.NewTextFieldMapping()
	field.Analyzer = standard.Name
	doc.AddFieldMappingsAt(labelField, field)
	im.DefaultMapping = doc
	return im
}

// Rebuild replaces the indexed labels wholesale.
func (x *LabelIndex) Rebuild(labels []string) error {
	idx, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return fmt.Errorf("failed to create label index: %w", err)
	}
	batch := idx.NewBatch()
	for i, label := range labels {
		if err := batch.Index(strconv.Itoa(i), map[string]interface{}{labelField: label}); err != nil {
			_ = idx.Close()
			return fmt.Errorf("failed to index label %q: %w", label, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return fmt.Errorf("failed to index labels: %w", err)
	}

	x.mu.Lock()
	old := x.index
	x.index = idx
	x.labels = slices.Clone(labels)
	x.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	x.logger.Debug("label index rebuilt", zap.Int("labels", len(labels)))
	return nil
}

// Len returns the number of indexed labels.
func (x *LabelIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.labels)
}

// Search returns up to limit labels matching query, best first.
func (x *LabelIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]LabelMatch, error) {
	if limit <= 0 {
		return nil, nil
	}
	var q blevequery.Query
	if opts != nil && opts.Fuzzy {
		fuzziness := opts.Fuzziness
		if fuzziness <= 0 {
			fuzziness = defaultFuzziness
		}
		q = buildFuzzyQuery(query, fuzziness)
	} else {
		mq := bleve.NewMatchQuery(query)
		mq.SetField(labelField)
		q = mq
	}

	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.index == nil {
		return nil, fmt.Errorf("label index is closed")
	}
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	res, err := x.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("label search failed: %w", err)
	}
	out := make([]LabelMatch, 0, len(res.Hits))
	for _, hit := range res.Hits {
		i, err := strconv.Atoi(hit.ID)
		if err != nil || i < 0 || i >= len(x.labels) {
			continue
		}
		out = append(out, LabelMatch{Index: i, Label: x.labels[i], Score: hit.Score})
	}
	return out, nil
}

// Suggest returns up to n distinct labels closest to label. Candidates come from a fuzzy
// search, or from a scan of all labels within the max distance when the search finds none.
// Candidates are ordered by case-insensitive Damerau-Levenshtein distance, then plain
// Levenshtein distance so an edit beats a transposition, then search score.
func (x *LabelIndex) Suggest(label string, n int) []string {
	if n <= 0 || strings.TrimSpace(label) == "" {
		return nil
	}
	matches, err := x.Search(context.Background(), label, max(n*4, minCandidates), &SearchOptions{Fuzzy: true})
	if err != nil {
		x.logger.Debug("suggestion search failed", zap.String("label", label), zap.Error(err))
	}
	if len(matches) == 0 {
		matches = x.scan(label)
	}

	type candidate struct {
		label    string
		distance int
		edits    int
		score    float64
	}
	want := strings.ToLower(label)
	seen := make(map[string]struct{}, len(matches))
	cands := make([]candidate, 0, len(matches))
	for _, m := range matches {
		if m.Label == label {
			continue
		}
		if _, ok := seen[m.Label]; ok {
			continue
		}
		seen[m.Label] = struct{}{}
		got := strings.ToLower(m.Label)
		cands = append(cands, candidate{
			label:    m.Label,
			distance: DamerauLevenshteinDistance(want, got),
			edits:    LevenshteinDistance(want, got),
			score:    m.Score,
		})
	}
	slices.SortStableFunc(cands, func(a, b candidate) int {
		if c := cmp.Compare(a.distance, b.distance); c != 0 {
			return c
		}
		if c := cmp.Compare(a.edits, b.edits); c != 0 {
			return c
		}
		return cmp.Compare(b.score, a.score)
	})

	out := make([]string, 0, min(n, len(cands)))
	for _, c := range cands[:min(n, len(cands))] {
		out = append(out, c.label)
	}
	return out
}

// scan finds labels within maxDistance of label by brute force.
func (x *LabelIndex) scan(label string) []LabelMatch {
	want := strings.ToLower(label)
	x.mu.RLock()
	defer x.mu.RUnlock()
	var out []LabelMatch
	for i, l := range x.labels {
		got := strings.ToLower(l)
		if abs(len([]rune(got))-len([]rune(want))) > x.maxDistance {
			continue
		}
		if DamerauLevenshteinDistance(want, got) <= x.maxDistance {
			out = append(out, LabelMatch{Index: i, Label: l})
		}
	}
	return out
}

// Close releases the index. Search fails afterwards.
func (x *LabelIndex) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.index == nil {
		return nil
	}
	err := x.index.Close()
	x.index = nil
	return err
}

// tokenizeQuery splits query into lowercase terms.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// buildFuzzyQuery ORs one FuzzyQuery per term. Fuzzy terms are not analyzed, hence the lowercasing.
func buildFuzzyQuery(query string, fuzziness int) blevequery.Query {
	terms := tokenizeQuery(query)
	if len(terms) == 0 {
		mq := bleve.NewMatchQuery(query)
		mq.SetField(labelField)
		return mq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		fq.SetField(labelField)
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
