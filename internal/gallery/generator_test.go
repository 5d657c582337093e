package gallery

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/hyperjump/shikibetsu/internal/embedding"
	"github.com/hyperjump/shikibetsu/internal/models"
	"github.com/hyperjump/shikibetsu/internal/vector"
)

func makeLabels(n int) []string {
	labels := make([]string, n)
	for i := range labels {
		labels[i] = fmt.Sprintf("species-%03d", i)
	}
	return labels
}

func TestGenerator_BatchesAndOrder(t *testing.T) {
	backend := embedding.NewHashTextBackend(16)
	gen := NewGenerator(backend)
	labels := makeLabels(250)

	g, err := gen.Generate(context.Background(), labels)
	if err != nil {
		t.Fatal(err)
	}
	if got := backend.Batches(); !reflect.DeepEqual(got, []int{100, 100, 50}) {
		t.Errorf("batches = %v, want [100 100 50]", got)
	}
	if g.Len() != 250 || g.Dimensions() != 16 {
		t.Fatalf("gallery %d x %d, want 250 x 16", g.Len(), g.Dimensions())
	}

	// Row i must be the normalized embedding of label i's prompt.
	ref := embedding.NewHashTextBackend(16)
	for _, i := range []int{0, 99, 100, 199, 249} {
		raw, _ := ref.EmbedBatch(context.Background(), []string{"a photo of " + labels[i]})
		want, _ := vector.Normalize(raw[0])
		if d := vector.MaxAbsDiff(g.Embeddings[i], want); d > 1e-6 {
			t.Errorf("row %d differs from its label's embedding by %v", i, d)
		}
		if g.Labels[i] != labels[i] {
			t.Errorf("label %d = %q, want %q", i, g.Labels[i], labels[i])
		}
	}
	for i, row := range g.Embeddings {
		if n := vector.L2Norm(row); math.Abs(n-1) > 1e-5 {
			t.Fatalf("row %d norm = %v, want 1", i, n)
		}
	}
}

func TestGenerator_BatchSizeOption(t *testing.T) {
	backend := embedding.NewHashTextBackend(4)
	gen := NewGenerator(backend, WithBatchSize(2))
	if _, err := gen.Generate(context.Background(), makeLabels(5)); err != nil {
		t.Fatal(err)
	}
	if got := backend.Batches(); !reflect.DeepEqual(got, []int{2, 2, 1}) {
		t.Errorf("batches = %v, want [2 2 1]", got)
	}
}

func TestGenerator_HumanOverride(t *testing.T) {
	gen := NewGenerator(embedding.NewHashTextBackend(16))
	g, err := gen.Generate(context.Background(), []string{"Cat", "Human"})
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := embedding.NewHashTextBackend(16).EmbedBatch(context.Background(), []string{HumanPrompt})
	want, _ := vector.Normalize(raw[0])
	if d := vector.MaxAbsDiff(g.Embeddings[1], want); d > 1e-6 {
		t.Errorf("Human row should come from the override prompt (diff %v)", d)
	}
}

func TestGenerator_DegenerateVector(t *testing.T) {
	gen := NewGenerator(embedding.NewHashTextBackend(8, "a photo of Dog"))
	_, err := gen.Generate(context.Background(), []string{"Cat", "Dog", "Fox"})
	var degErr *models.DegenerateVectorError
	if !errors.As(err, &degErr) {
		t.Fatalf("expected DegenerateVectorError, got %v", err)
	}
	if degErr.Label != "Dog" || degErr.Index != 1 {
		t.Errorf("error = %+v, want Dog at index 1", degErr)
	}
}

type shortBackend struct{ embedding.HashTextBackend }

func (b *shortBackend) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return [][]float32{{1, 0}}, nil
}

type raggedBackend struct{ embedding.HashTextBackend }

func (b *raggedBackend) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = make([]float32, 2+i)
		out[i][0] = 1
	}
	return out, nil
}

func TestGenerator_ShapeErrors(t *testing.T) {
	tests := []struct {
		name    string
		backend embedding.TextBackend
	}{
		{"row count", &shortBackend{}},
		{"ragged rows", &raggedBackend{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGenerator(tt.backend).Generate(context.Background(), []string{"Cat", "Dog"})
			var shapeErr *models.ShapeError
			if !errors.As(err, &shapeErr) {
				t.Errorf("expected ShapeError, got %v", err)
			}
		})
	}
}

func TestGenerator_EmptyLabels(t *testing.T) {
	g, err := NewGenerator(embedding.NewHashTextBackend(4)).Generate(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if g.Len() != 0 {
		t.Errorf("Len() = %d, want 0", g.Len())
	}
}

func TestGenerator_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewGenerator(embedding.NewHashTextBackend(4)).Generate(ctx, []string{"Cat"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
