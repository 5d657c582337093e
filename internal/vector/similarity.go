// Package vector provides similarity helpers for embedding vectors.
package vector

import "math"

// InnerProduct returns the inner product of two vectors, accumulated in float64.
// Mismatched or empty inputs yield 0.
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// Normalize returns a unit-length copy of x and the original magnitude.
// A zero vector is returned as a zero copy with magnitude 0.
func Normalize(x []float32) ([]float32, float64) {
	out := make([]float32, len(x))
	mag := L2Norm(x)
	if mag == 0 {
		return out, 0
	}
	for i, v := range x {
		out[i] = float32(float64(v) / mag)
	}
	return out, mag
}

// Normalize64 is Normalize with float64 output, used where scores are computed in double precision.
func Normalize64(x []float32) ([]float64, float64) {
	out := make([]float64, len(x))
	mag := L2Norm(x)
	for i, v := range x {
		if mag > 0 {
			out[i] = float64(v) / mag
		} else {
			out[i] = float64(v)
		}
	}
	return out, mag
}

// CosineSimilarity returns the cosine similarity of a and b in [-1, 1].
// It is 0 when either vector has zero magnitude or the lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	na, nb := L2Norm(a), L2Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return InnerProduct(a, b) / (na * nb)
}

// MaxAbsDiff returns max_i |a_i - b_i|. Lengths must match; otherwise +Inf is returned.
func MaxAbsDiff(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var m float64
	for i := range a {
		d := math.Abs(float64(a[i]) - float64(b[i]))
		if d > m {
			m = d
		}
	}
	return m
}

// PairwiseStats summarizes the cosine similarity over all unordered pairs of a set of vectors.
type PairwiseStats struct {
	Pairs int     `json:"pairs"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
}

// Pairwise computes cosine similarity for every pair (i < j) of vectors: n*(n-1)/2 pairs.
// Fewer than two vectors yield a zero PairwiseStats.
func Pairwise(vectors [][]float32) PairwiseStats {
	var st PairwiseStats
	var sum float64
	for i := 0; i < len(vectors); i++ {
		for j := i + 1; j < len(vectors); j++ {
			sim := CosineSimilarity(vectors[i], vectors[j])
			if st.Pairs == 0 || sim < st.Min {
				st.Min = sim
			}
			if st.Pairs == 0 || sim > st.Max {
				st.Max = sim
			}
			sum += sim
			st.Pairs++
		}
	}
	if st.Pairs > 0 {
		st.Mean = sum / float64(st.Pairs)
	}
	return st
}

// Centroid returns the element-wise mean of the given vectors.
func Centroid(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	sum := make([]float64, len(vectors[0]))
	for _, v := range vectors {
		for i := range sum {
			if i < len(v) {
				sum[i] += float64(v[i])
			}
		}
	}
	out := make([]float32, len(sum))
	for i, s := range sum {
		out[i] = float32(s / float64(len(vectors)))
	}
	return out
}
