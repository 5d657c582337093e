package embedding

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/hyperjump/shikibetsu/internal/models"
	"github.com/hyperjump/shikibetsu/internal/vector"
)

func solidTensor(r, g, b float32) *models.ImageTensor {
	t := models.NewImageTensor(models.ImageChannels, models.ImageSize, models.ImageSize)
	t.FillChannel(0, r)
	t.FillChannel(1, g)
	t.FillChannel(2, b)
	return t
}

func TestProjectionBackend_Deterministic(t *testing.T) {
	b := NewProjectionBackend("proj", 16, 7)
	ctx := context.Background()
	in := solidTensor(0.2, 0.6, 0.2)
	a, err := b.Embed(ctx, in)
	if err != nil {
		t.Fatal(err)
	}
	c, err := b.Embed(ctx, in)
	if err != nil {
		t.Fatal(err)
	}
	if vector.MaxAbsDiff(a, c) != 0 {
		t.Error("same input should give the same embedding")
	}
	if len(a) != 16 || b.Variant().OutputDim != 16 {
		t.Errorf("dims = %d, variant = %+v", len(a), b.Variant())
	}
}

func TestProjectionBackend_InputSensitive(t *testing.T) {
	b := NewProjectionBackend("proj", 32, 1)
	ctx := context.Background()
	skin, _ := b.Embed(ctx, solidTensor(0.94, 0.78, 0.67))
	sky, _ := b.Embed(ctx, solidTensor(0.5, 0.7, 0.95))
	if sim := vector.CosineSimilarity(skin, sky); sim > 0.999 {
		t.Errorf("distinct inputs collapsed: similarity %v", sim)
	}
}

func TestProjectionBackend_RejectsBadTensor(t *testing.T) {
	b := NewProjectionBackend("proj", 4, 1)
	bad := &models.ImageTensor{Channels: 3, Height: 2, Width: 2, Data: make([]float32, 5)}
	var shapeErr *models.ShapeError
	if _, err := b.Embed(context.Background(), bad); !errors.As(err, &shapeErr) {
		t.Errorf("expected ShapeError, got %v", err)
	}
}

func TestConstantBackend(t *testing.T) {
	b := NewConstantBackend("flat", []float32{1, 2, 3})
	ctx := context.Background()
	x, _ := b.Embed(ctx, solidTensor(0, 0, 0))
	y, _ := b.Embed(ctx, solidTensor(1, 1, 1))
	if vector.MaxAbsDiff(x, y) != 0 {
		t.Error("constant backend should ignore its input")
	}
	x[0] = 9
	z, _ := b.Embed(ctx, nil)
	if z[0] != 1 {
		t.Error("constant backend should return copies")
	}
}

func TestQuantizedBackend(t *testing.T) {
	ref := NewProjectionBackend("fp32", 16, 3)
	q := NewQuantizedBackend("int8", ref, 0.01)
	ctx := context.Background()
	in := solidTensor(0.9, 0.5, 0.1)
	a, _ := ref.Embed(ctx, in)
	b, err := q.Embed(ctx, in)
	if err != nil {
		t.Fatal(err)
	}
	if d := vector.MaxAbsDiff(a, b); d > 0.005+1e-6 {
		t.Errorf("quantization error %v exceeds half a step", d)
	}
	if q.Variant().Precision != models.PrecisionINT8 || q.Variant().Name != "int8" {
		t.Errorf("variant = %+v", q.Variant())
	}
	if ref.Variant().Name != "fp32" {
		t.Error("wrapping should not mutate the inner variant")
	}
}

func TestHashTextBackend(t *testing.T) {
	b := NewHashTextBackend(8, "blank")
	out, err := b.EmbedBatch(context.Background(), []string{"a photo of Cat", "blank", "a photo of Cat"})
	if err != nil {
		t.Fatal(err)
	}
	if vector.MaxAbsDiff(out[0], out[2]) != 0 {
		t.Error("same text should embed identically")
	}
	if vector.L2Norm(out[1]) != 0 {
		t.Error("zero text should embed to the zero vector")
	}
	if n := vector.L2Norm(out[0]); math.Abs(n-1) < 1e-3 {
		t.Error("hash embeddings should be unnormalized")
	}
}
