package gallery

import (
	"math"

	"github.com/hyperjump/shikibetsu/internal/models"
	"github.com/hyperjump/shikibetsu/internal/vector"
)

// SampleSize is the number of leading rows used for pairwise statistics.
const SampleSize = 100

// Diagnostics summarizes the geometry of a gallery.
type Diagnostics struct {
	Labels     int     `json:"labels"`
	Dimensions int     `json:"dimensions"`
	NormMin    float64 `json:"norm_min"`
	NormMax    float64 `json:"norm_max"`
	NormMean   float64 `json:"norm_mean"`
	// CentroidSimilarity is the mean cosine similarity of each row to the gallery centroid.
	// Values close to 1 mean the label embeddings are barely distinguishable.
	CentroidSimilarity float64              `json:"centroid_similarity"`
	Sample             vector.PairwiseStats `json:"sample"`
}

// Inspect computes norm, centroid and pairwise statistics for g.
func Inspect(g *models.Gallery) Diagnostics {
	d := Diagnostics{Labels: g.Len(), Dimensions: g.Dimensions()}
	if g.Len() == 0 {
		return d
	}
	d.NormMin = math.Inf(1)
	d.NormMax = math.Inf(-1)
	var sum float64
	for _, row := range g.Embeddings {
		n := vector.L2Norm(row)
		d.NormMin = math.Min(d.NormMin, n)
		d.NormMax = math.Max(d.NormMax, n)
		sum += n
	}
	d.NormMean = sum / float64(g.Len())

	centroid := vector.Centroid(g.Embeddings)
	var csum float64
	for _, row := range g.Embeddings {
		csum += vector.CosineSimilarity(row, centroid)
	}
	d.CentroidSimilarity = csum / float64(g.Len())

	sample := g.Embeddings
	if len(sample) > SampleSize {
		sample = sample[:SampleSize]
	}
	d.Sample = vector.Pairwise(sample)
	return d
}
