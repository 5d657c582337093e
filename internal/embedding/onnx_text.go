//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXTextBackend runs a CLIP-style text encoder with a fixed batch dimension.
// A short final batch is padded with empty prompts and the padded rows are discarded.
type ONNXTextBackend struct {
	session       *ort.AdvancedSession
	tokenizer     Tokenizer
	dimensions    int
	contextLength int
	batchSize     int
	input         *ort.Tensor[int64]
	output        *ort.Tensor[float32]
	mu            sync.Mutex
}

func newONNXTextBackend(path string, opts TextOptions) (*ONNXTextBackend, error) {
	batch, ctxLen, dims := int64(opts.BatchSize), int64(opts.ContextLength), int64(opts.Dimensions)
	input, err := ort.NewTensor(ort.NewShape(batch, ctxLen), make([]int64, batch*ctxLen))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s tensor: %w", opts.InputName, err)
	}
	output, err := ort.NewTensor(ort.NewShape(batch, dims), make([]float32, batch*dims))
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
	return &ONNXTextBackend{
		session:       session,
		tokenizer:     opts.Tokenizer,
		dimensions:    opts.Dimensions,
		contextLength: opts.ContextLength,
		batchSize:     opts.BatchSize,
		input:         input,
		output:        output,
	}, nil
}

// EmbedBatch returns one raw embedding per text, in input order.
func (b *ONNXTextBackend) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil {
		return nil, fmt.Errorf("text backend is closed")
	}

	padding := b.tokenizer.Tokenize("", b.contextLength)
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += b.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+b.batchSize, len(texts))
		ids := b.input.GetData()
		for row := 0; row < b.batchSize; row++ {
			tokens := padding
			if start+row < end {
				tokens = b.tokenizer.Tokenize(texts[start+row], b.contextLength)
			}
			copy(ids[row*b.contextLength:(row+1)*b.contextLength], tokens)
		}
		if err := b.session.Run(); err != nil {
			return nil, fmt.Errorf("text inference failed for rows %d-%d: %w", start, end-1, err)
		}
		data := b.output.GetData()
		for row := 0; row < end-start; row++ {
			vec := make([]float32, b.dimensions)
			copy(vec, data[row*b.dimensions:(row+1)*b.dimensions])
			out = append(out, vec)
		}
	}
	return out, nil
}

// Dimensions returns the embedding dimension.
func (b *ONNXTextBackend) Dimensions() int {
	return b.dimensions
}

// Close destroys the session and tensors.
func (b *ONNXTextBackend) Close() error {
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
