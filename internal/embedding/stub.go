package embedding

import (
	"context"
	"math"
	"sync"

	"github.com/hyperjump/shikibetsu/internal/models"
)

// splitmix64 is a small deterministic mixer used to derive pseudo-random weights and vectors.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// unitFloat maps a hash to [-1, 1).
func unitFloat(h uint64) float32 {
	return float32(h>>11)/float32(1<<52)*2 - 1
}

// ProjectionBackend is a deterministic input-sensitive backend for tests and dry runs.
// Each output is a fixed ±1 projection of the whole input tensor, so different inputs give
// different embeddings while the same input always gives the same one.
type ProjectionBackend struct {
	variant models.ModelVariant
	seed    uint64
}

// NewProjectionBackend returns a projection backend producing dims-dimensional outputs.
func NewProjectionBackend(name string, dims int, seed uint64) *ProjectionBackend {
	if dims <= 0 {
		dims = 32
	}
	return &ProjectionBackend{
		variant: models.NewModelVariant(name, models.PrecisionFP32, models.ImageSize, dims),
		seed:    seed,
	}
}

// Embed projects the tensor data onto the backend's fixed weights.
func (b *ProjectionBackend) Embed(ctx context.Context, t *models.ImageTensor) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	n := len(t.Data)
	scale := 1 / math.Sqrt(float64(n))
	out := make([]float32, b.variant.OutputDim)
	for j := range out {
		base := b.seed ^ uint64(j*n)
		var sum float64
		for i, v := range t.Data {
			if splitmix64(base+uint64(i))&1 == 0 {
				sum += float64(v)
			} else {
				sum -= float64(v)
			}
		}
		out[j] = float32(sum * scale)
	}
	return out, nil
}

// Variant returns the backend's model variant.
func (b *ProjectionBackend) Variant() models.ModelVariant { return b.variant }

// Close is a no-op for ProjectionBackend.
func (b *ProjectionBackend) Close() error { return nil }

// ConstantBackend returns the same vector for every input. It models a collapsed encoder.
type ConstantBackend struct {
	variant models.ModelVariant
	vec     []float32
}

// NewConstantBackend returns a backend that always answers vec.
func NewConstantBackend(name string, vec []float32) *ConstantBackend {
	return &ConstantBackend{
		variant: models.NewModelVariant(name, models.PrecisionFP32, models.ImageSize, len(vec)),
		vec:     append([]float32(nil), vec...),
	}
}

// Embed returns a copy of the constant vector.
func (b *ConstantBackend) Embed(ctx context.Context, t *models.ImageTensor) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]float32(nil), b.vec...), nil
}

// Variant returns the backend's model variant.
func (b *ConstantBackend) Variant() models.ModelVariant { return b.variant }

// Close is a no-op for ConstantBackend.
func (b *ConstantBackend) Close() error { return nil }

// QuantizedBackend wraps another backend and rounds every output to a multiple of Step.
// It stands in for a compressed variant of the wrapped model.
type QuantizedBackend struct {
	inner   Backend
	step    float32
	variant models.ModelVariant
}

// NewQuantizedBackend wraps inner, reporting itself as name with int8 precision.
func NewQuantizedBackend(name string, inner Backend, step float32) *QuantizedBackend {
	v := inner.Variant()
	v.Name = name
	v.Precision = models.PrecisionINT8
	v.InputShape = append([]int64(nil), v.InputShape...)
	return &QuantizedBackend{inner: inner, step: step, variant: v}
}

// Embed runs the wrapped backend and quantizes its output.
func (b *QuantizedBackend) Embed(ctx context.Context, t *models.ImageTensor) ([]float32, error) {
	out, err := b.inner.Embed(ctx, t)
	if err != nil {
		return nil, err
	}
	if b.step <= 0 {
		return out, nil
	}
	for i, v := range out {
		out[i] = float32(math.Round(float64(v/b.step))) * b.step
	}
	return out, nil
}

// Variant returns the quantized variant.
func (b *QuantizedBackend) Variant() models.ModelVariant { return b.variant }

// Close closes the wrapped backend.
func (b *QuantizedBackend) Close() error { return b.inner.Close() }

// HashTextBackend is a deterministic text backend for tests. The same text always gets the same
// unnormalized embedding; distinct texts get nearly orthogonal ones at higher dimensions.
type HashTextBackend struct {
	dimensions int
	zero       map[string]bool

	mu      sync.Mutex
	batches []int
}

// NewHashTextBackend returns a text backend with the given dimensions. Texts listed in zeroFor
// embed to the zero vector.
func NewHashTextBackend(dimensions int, zeroFor ...string) *HashTextBackend {
	if dimensions <= 0 {
		dimensions = 64
	}
	zero := make(map[string]bool, len(zeroFor))
	for _, t := range zeroFor {
		zero[t] = true
	}
	return &HashTextBackend{dimensions: dimensions, zero: zero}
}

// EmbedBatch returns one embedding per text and records the batch size.
func (b *HashTextBackend) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.batches = append(b.batches, len(texts))
	b.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = b.embed(text)
	}
	return out, nil
}

func (b *HashTextBackend) embed(text string) []float32 {
	vec := make([]float32, b.dimensions)
	if b.zero[text] {
		return vec
	}
	h := uint64(HashString(text))
	for i := range vec {
		// Scaled so rows are clearly not unit length before normalization.
		vec[i] = 3 * unitFloat(splitmix64(h+uint64(i)*0x2545f4914f6cdd1d))
	}
	return vec
}

// Batches returns the sizes of the batches seen so far.
func (b *HashTextBackend) Batches() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]int(nil), b.batches...)
}

// Dimensions returns the embedding dimension.
func (b *HashTextBackend) Dimensions() int { return b.dimensions }

// Close is a no-op for HashTextBackend.
func (b *HashTextBackend) Close() error { return nil }
