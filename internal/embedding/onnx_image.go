//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"

	"github.com/hyperjump/shikibetsu/internal/models"
	ort "github.com/yalue/onnxruntime_go"
)

// ONNXImageBackend runs a visual encoder through ONNX Runtime. Tensors are allocated once and
// reused for every Run; calls are serialized.
type ONNXImageBackend struct {
	session *ort.AdvancedSession
	variant models.ModelVariant
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	mu      sync.Mutex
}

func newONNXImageBackend(path string, variant models.ModelVariant, opts ImageOptions) (*ONNXImageBackend, error) {
	if len(variant.InputShape) != 4 || variant.OutputDim <= 0 {
		return nil, fmt.Errorf("invalid variant %s: input shape %v, output dim %d", variant.Name, variant.InputShape, variant.OutputDim)
	}
	size := int64(1)
	for _, d := range variant.InputShape {
		size *= d
	}
	input, err := ort.NewTensor(ort.NewShape(variant.InputShape...), make([]float32, size))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s tensor: %w", opts.InputName, err)
	}
	output, err := ort.NewTensor(ort.NewShape(1, int64(variant.OutputDim)), make([]float32, variant.OutputDim))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("failed to create %s tensor: %w", opts.OutputName, err)
	}
	session, err := ort.NewAdvancedSession(
		path,
		[]string{opts.InputName},
		[]string{opts.OutputName},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{output},
		nil,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session for %s: %w", path, err)
	}
	return &ONNXImageBackend{
		session: session,
		variant: variant,
		input:   input,
		output:  output,
	}, nil
}

// Embed runs the encoder on a preprocessed tensor and returns the raw output.
func (b *ONNXImageBackend) Embed(ctx context.Context, t *models.ImageTensor) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := b.variant.CheckInput(t); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil {
		return nil, fmt.Errorf("backend %s is closed", b.variant.Name)
	}

	copy(b.input.GetData(), t.Data)
	if err := b.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed for %s: %w", b.variant.Name, err)
	}
	out := make([]float32, b.variant.OutputDim)
	copy(out, b.output.GetData())
	return out, nil
}

// Variant returns the backend's model variant.
func (b *ONNXImageBackend) Variant() models.ModelVariant {
	return b.variant
}

// Close destroys the session and tensors.
func (b *ONNXImageBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var err error
	if b.session != nil {
		err = b.session.Destroy()
		b.session = nil
	}
	if b.input != nil {
		_ = b.input.Destroy()
		b.input = nil
	}
	if b.output != nil {
		_ = b.output.Destroy()
		b.output = nil
	}
	return err
}
