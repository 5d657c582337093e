package vector

import (
	"math"
	"math/rand/v2"
	"testing"
)

func TestInnerProductAndNorm(t *testing.T) {
	if got := InnerProduct([]float32{1, 2, 3}, []float32{4, 5, 6}); got != 32 {
		t.Errorf("InnerProduct = %v, want 32", got)
	}
	if got := InnerProduct([]float32{1}, []float32{1, 2}); got != 0 {
		t.Errorf("mismatched lengths should yield 0, got %v", got)
	}
	if got := L2Norm([]float32{3, 4}); got != 5 {
		t.Errorf("L2Norm = %v, want 5", got)
	}
}

func TestNormalize_UnitLength(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for trial := 0; trial < 50; trial++ {
		v := make([]float32, 64)
		for i := range v {
			v[i] = float32(r.NormFloat64() * 10)
		}
		n, mag := Normalize(v)
		if mag <= 0 {
			t.Fatalf("trial %d: magnitude %v", trial, mag)
		}
		if d := math.Abs(L2Norm(n) - 1); d >= 1e-5 {
			t.Fatalf("trial %d: | ||v/||v|| || - 1 | = %v", trial, d)
		}
	}
}

func TestNormalize_ZeroVector(t *testing.T) {
	n, mag := Normalize([]float32{0, 0, 0})
	if mag != 0 {
		t.Errorf("magnitude = %v", mag)
	}
	for _, v := range n {
		if v != 0 {
			t.Fatal("zero vector should stay zero")
		}
	}
}

func TestCosineSimilarity_Symmetric(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	for trial := 0; trial < 20; trial++ {
		a := make([]float32, 16)
		b := make([]float32, 16)
		for i := range a {
			a[i] = float32(r.NormFloat64())
			b[i] = float32(r.NormFloat64())
		}
		if CosineSimilarity(a, b) != CosineSimilarity(b, a) {
			t.Fatalf("trial %d: cosine similarity not symmetric", trial)
		}
	}
	if got := CosineSimilarity([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("orthogonal = %v", got)
	}
	if got := CosineSimilarity([]float32{2, 0}, []float32{5, 0}); math.Abs(got-1) > 1e-12 {
		t.Errorf("parallel = %v", got)
	}
	if got := CosineSimilarity([]float32{0, 0}, []float32{1, 0}); got != 0 {
		t.Errorf("zero vector = %v", got)
	}
}

func TestMaxAbsDiff(t *testing.T) {
	if got := MaxAbsDiff([]float32{1, 2, 3}, []float32{1, 2.5, 1}); got != 2 {
		t.Errorf("MaxAbsDiff = %v, want 2", got)
	}
	if got := MaxAbsDiff([]float32{1, 2}, []float32{1, 2}); got != 0 {
		t.Errorf("identical = %v", got)
	}
	if !math.IsInf(MaxAbsDiff([]float32{1}, []float32{1, 2}), 1) {
		t.Error("mismatched lengths should be +Inf")
	}
}

func TestPairwise(t *testing.T) {
	vs := [][]float32{{1, 0}, {0, 1}, {1, 1}}
	st := Pairwise(vs)
	if st.Pairs != 3 {
		t.Fatalf("Pairs = %d, want 3", st.Pairs)
	}
	if st.Min != 0 {
		t.Errorf("Min = %v, want 0", st.Min)
	}
	if math.Abs(st.Max-math.Sqrt2/2) > 1e-9 {
		t.Errorf("Max = %v", st.Max)
	}
	if got := Pairwise([][]float32{{1, 0}}); got.Pairs != 0 {
		t.Errorf("single vector pairs = %d", got.Pairs)
	}
}

func TestCentroid(t *testing.T) {
	c := Centroid([][]float32{{1, 0}, {0, 1}})
	if c[0] != 0.5 || c[1] != 0.5 {
		t.Errorf("Centroid = %v", c)
	}
	if Centroid(nil) != nil {
		t.Error("empty centroid should be nil")
	}
}
