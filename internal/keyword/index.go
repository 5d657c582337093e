// Package keyword provides text lookup over gallery labels: a Bleve index for
// search and edit-distance suggestions for misspelled labels.
package keyword

// SearchOptions are optional parameters for label search. Nil means an exact-term match.
type SearchOptions struct {
	// Fuzzy matches each query term within Fuzziness edits instead of exactly.
	Fuzzy bool
	// Fuzziness is the maximum edit distance per term (1 or 2). Default 2.
	Fuzziness int
}

// LabelMatch is one label search hit.
type LabelMatch struct {
	Index int     `json:"index"` // position in the gallery
	Label string  `json:"label"`
	Score float64 `json:"score"`
}
