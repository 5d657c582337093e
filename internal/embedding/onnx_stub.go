//go:build !cgo
// +build !cgo

package embedding

import (
	"context"

	"github.com/hyperjump/shikibetsu/internal/models"
	"go.uber.org/zap"
)

// Runtime is a stub when CGO is disabled.
type Runtime struct{}

// NewRuntime returns ErrONNXUnavailable when CGO is disabled.
func NewRuntime(opts RuntimeOptions, logger *zap.Logger) (*Runtime, error) {
	return nil, ErrONNXUnavailable
}

// LoadImageBackend returns ErrONNXUnavailable when CGO is disabled.
func (r *Runtime) LoadImageBackend(path string, variant models.ModelVariant, opts ImageOptions) (*ONNXImageBackend, error) {
	return nil, ErrONNXUnavailable
}

// LoadTextBackend returns ErrONNXUnavailable when CGO is disabled.
func (r *Runtime) LoadTextBackend(path string, opts TextOptions) (*ONNXTextBackend, error) {
	return nil, ErrONNXUnavailable
}

// Close is a no-op.
func (r *Runtime) Close() error { return nil }

// ONNXImageBackend is a stub when CGO is disabled.
type ONNXImageBackend struct {
	variant models.ModelVariant
}

func (b *ONNXImageBackend) Embed(ctx context.Context, t *models.ImageTensor) ([]float32, error) {
	return nil, ErrONNXUnavailable
}

func (b *ONNXImageBackend) Variant() models.ModelVariant { return b.variant }

func (b *ONNXImageBackend) Close() error { return nil }

// ONNXTextBackend is a stub when CGO is disabled.
type ONNXTextBackend struct{}

func (b *ONNXTextBackend) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, ErrONNXUnavailable
}

func (b *ONNXTextBackend) Dimensions() int { return 0 }

func (b *ONNXTextBackend) Close() error { return nil }
