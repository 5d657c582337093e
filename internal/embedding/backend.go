// Package embedding defines the inference backend capability and its ONNX Runtime implementations.
package embedding

import (
	"context"
	"errors"

	"github.com/hyperjump/shikibetsu/internal/models"
)

// ErrONNXUnavailable is returned when the binary was built without CGO.
var ErrONNXUnavailable = errors.New("ONNX backends require CGO; build with CGO_ENABLED=1 and onnxruntime")

// Backend produces a raw (unnormalized) embedding for a preprocessed image tensor.
// Reference and compressed models are two implementations of this interface.
type Backend interface {
	Embed(ctx context.Context, input *models.ImageTensor) ([]float32, error)
	Variant() models.ModelVariant
	Close() error
}

// TextBackend produces one raw embedding per prompt, in input order.
type TextBackend interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// RuntimeOptions configures the ONNX Runtime environment.
type RuntimeOptions struct {
	// SharedLibraryPath points at libonnxruntime; empty uses the library default lookup.
	SharedLibraryPath string
}

// ImageOptions configures an ONNX visual encoder session.
type ImageOptions struct {
	InputName  string // default "pixel_values"
	OutputName string // default "image_features"
}

func (o ImageOptions) withDefaults() ImageOptions {
	if o.InputName == "" {
		o.InputName = "pixel_values"
	}
	if o.OutputName == "" {
		o.OutputName = "image_features"
	}
	return o
}

// TextOptions configures an ONNX text encoder session.
type TextOptions struct {
	InputName     string // default "input_ids"
	OutputName    string // default "text_features"
	Dimensions    int
	ContextLength int // default 77
	BatchSize     int // rows per session run; default 100
	Tokenizer     Tokenizer
}

func (o TextOptions) withDefaults() TextOptions {
	if o.InputName == "" {
		o.InputName = "input_ids"
	}
	if o.OutputName == "" {
		o.OutputName = "text_features"
	}
	if o.ContextLength <= 0 {
		o.ContextLength = DefaultContextLength
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.Tokenizer == nil {
		o.Tokenizer = &SimpleTokenizer{}
	}
	return o
}
