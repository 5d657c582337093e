package models

import "fmt"

// Gallery is the ordered set of reference (label, embedding) pairs used for classification.
// Labels[i] corresponds to Embeddings[i]; the two slices are never reordered independently.
// A Gallery is read-only once built: regenerate it wholesale instead of patching rows.
type Gallery struct {
	Labels     []string    `json:"labels"`
	Embeddings [][]float32 `json:"embeddings"`
}

// NewGallery copies labels and embeddings into a Gallery after checking alignment and that every
// row has the same dimension.
func NewGallery(labels []string, embeddings [][]float32) (*Gallery, error) {
	if len(labels) != len(embeddings) {
		return nil, &ShapeError{
			Context: "gallery",
			Got:     fmt.Sprintf("%d embedding rows", len(embeddings)),
			Want:    fmt.Sprintf("%d rows (one per label)", len(labels)),
		}
	}
	g := &Gallery{
		Labels:     make([]string, len(labels)),
		Embeddings: make([][]float32, len(embeddings)),
	}
	copy(g.Labels, labels)
	dim := -1
	for i, row := range embeddings {
		if dim < 0 {
			dim = len(row)
		}
		if len(row) != dim || dim == 0 {
			return nil, &ShapeError{
				Context: fmt.Sprintf("gallery row %d", i),
				Got:     fmt.Sprintf("%d values", len(row)),
				Want:    fmt.Sprintf("%d values", dim),
			}
		}
		g.Embeddings[i] = append([]float32(nil), row...)
	}
	return g, nil
}

// Len returns the number of labels.
func (g *Gallery) Len() int {
	return len(g.Labels)
}

// Dimensions returns the embedding dimension, or 0 for an empty gallery.
func (g *Gallery) Dimensions() int {
	if len(g.Embeddings) == 0 {
		return 0
	}
	return len(g.Embeddings[0])
}

// IndexOf returns the index of the first occurrence of label, or -1.
func (g *Gallery) IndexOf(label string) int {
	for i, l := range g.Labels {
		if l == label {
			return i
		}
	}
	return -1
}

// Row returns a copy of the embedding at index i.
func (g *Gallery) Row(i int) []float32 {
	return append([]float32(nil), g.Embeddings[i]...)
}
