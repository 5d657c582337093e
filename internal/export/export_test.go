package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/shikibetsu/internal/config"
	"github.com/hyperjump/shikibetsu/internal/embedding"
	"github.com/hyperjump/shikibetsu/internal/models"
	"github.com/hyperjump/shikibetsu/internal/verify"
)

func writeSize(t *testing.T, path string, n int) {
	t.Helper()
	if err := os.WriteFile(path, make([]byte, n), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestChain_FirstSuccessWins(t *testing.T) {
	var calls []string
	strategy := func(name string, err error) Strategy {
		return Strategy{Name: name, Export: func(ctx context.Context) (*Artifact, error) {
			calls = append(calls, name)
			if err != nil {
				return nil, err
			}
			return &Artifact{}, nil
		}}
	}
	chain := NewChain([]Strategy{
		strategy("jit", errors.New("unsupported operator")),
		strategy("legacy", nil),
		strategy("dynamo", nil),
	})
	art, attempts, err := chain.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if art.Strategy != "legacy" {
		t.Errorf("Strategy = %q, want legacy", art.Strategy)
	}
	if strings.Join(calls, ",") != "jit,legacy" {
		t.Errorf("calls = %v, later strategies should not run", calls)
	}
	if len(attempts) != 2 || attempts[0].Error == "" || attempts[1].Err != nil {
		t.Errorf("attempts = %+v", attempts)
	}
}

func TestChain_AllFail(t *testing.T) {
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	chain := NewChain([]Strategy{
		{Name: "a", Export: func(ctx context.Context) (*Artifact, error) { return nil, errA }},
		{Name: "b", Export: func(ctx context.Context) (*Artifact, error) { return nil, errB }},
		{Name: "nil", Export: func(ctx context.Context) (*Artifact, error) { return nil, nil }},
	})
	art, attempts, err := chain.Run(context.Background())
	if art != nil {
		t.Error("expected no artifact")
	}
	if !errors.Is(err, ErrNoArtifact) || !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("error should wrap ErrNoArtifact and every failure: %v", err)
	}
	if len(attempts) != 3 {
		t.Errorf("attempts = %d, want 3", len(attempts))
	}
}

func TestChain_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := NewChain(DefaultStrategies("x.onnx", 1)).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestDefaultStrategies(t *testing.T) {
	tests := []struct {
		name         string
		modelBytes   int
		sidecarBytes int
		wantStrategy string
		wantErr      bool
	}{
		{"self-contained", 2048, 0, "existing_file", false},
		{"small model with sidecar", 100, 4096, "external_data", false},
		{"small model without sidecar", 100, 0, "", true},
		{"model and sidecar too small", 100, 200, "", true},
		{"missing model", -1, 0, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bioclip2_model_int8.onnx")
			if tt.modelBytes >= 0 {
				writeSize(t, path, tt.modelBytes)
			}
			if tt.sidecarBytes > 0 {
				writeSize(t, path+".data", tt.sidecarBytes)
			}
			art, _, err := NewChain(DefaultStrategies(path, 1024)).Run(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Run() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrNoArtifact) {
					t.Errorf("error should wrap ErrNoArtifact: %v", err)
				}
				return
			}
			if art.Strategy != tt.wantStrategy || art.Path() != path {
				t.Errorf("artifact = %+v", art)
			}
		})
	}
}

func TestExistingFile_MissingIsMissingFileError(t *testing.T) {
	_, err := ExistingFile(filepath.Join(t.TempDir(), "absent.onnx"), 1).Export(context.Background())
	var missing *models.MissingFileError
	if !errors.As(err, &missing) || missing.Kind != "model" {
		t.Errorf("expected MissingFileError, got %v", err)
	}
}

func TestAccept(t *testing.T) {
	const dims = 16
	labels := []string{"Cat", "Dog", "Human"}
	g, err := embeddingGallery(labels, dims)
	if err != nil {
		t.Fatal(err)
	}
	h := verify.NewHarness(g, &config.VerifyConfig{ImageSize: 16, Seed: 5})
	reference := embedding.NewProjectionBackend("fp32", dims, 2)
	art := &Artifact{Strategy: "existing_file"}

	t.Run("input-sensitive artifact is accepted", func(t *testing.T) {
		d, err := Accept(context.Background(), h, reference, art, func(*Artifact) (embedding.Backend, error) {
			return embedding.NewQuantizedBackend("int8", reference, 0.01), nil
		})
		if err != nil {
			t.Fatal(err)
		}
		if !d.Accepted {
			t.Errorf("expected acceptance: %s", d.Reason)
		}
		if len(d.Report.Comparisons) != 1 {
			t.Error("report should compare the artifact with the reference")
		}
	})

	t.Run("collapsed artifact is rejected", func(t *testing.T) {
		vec := make([]float32, dims)
		vec[3] = 1
		d, err := Accept(context.Background(), h, reference, art, func(*Artifact) (embedding.Backend, error) {
			return embedding.NewConstantBackend("int8", vec), nil
		})
		if err != nil {
			t.Fatal(err)
		}
		if d.Accepted || !strings.Contains(d.Reason, "collapsed") {
			t.Errorf("expected collapse rejection, got %+v", d)
		}
	})

	t.Run("load failure is an error", func(t *testing.T) {
		_, err := Accept(context.Background(), h, reference, art, func(*Artifact) (embedding.Backend, error) {
			return nil, embedding.ErrONNXUnavailable
		})
		if !errors.Is(err, embedding.ErrONNXUnavailable) {
			t.Errorf("expected wrapped load error, got %v", err)
		}
	})

	t.Run("artifact named like the reference is an error", func(t *testing.T) {
		_, err := Accept(context.Background(), h, reference, art, func(*Artifact) (embedding.Backend, error) {
			return embedding.NewQuantizedBackend("fp32", reference, 0.01), nil
		})
		if err == nil {
			t.Error("expected error for duplicate variant name")
		}
	})
}

func embeddingGallery(labels []string, dims int) (*models.Gallery, error) {
	rows := make([][]float32, len(labels))
	for i := range rows {
		rows[i] = make([]float32, dims)
		rows[i][i%dims] = 1
	}
	return models.NewGallery(labels, rows)
}
