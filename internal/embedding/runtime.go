//go:build cgo
// +build cgo

package embedding

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/hyperjump/shikibetsu/internal/models"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

// environment reference count; ONNX Runtime keeps one environment per process.
var (
	envMu   sync.Mutex
	envRefs int
)

// Runtime owns the ONNX Runtime environment and every session created through it.
// It is the only place the environment is initialized or destroyed.
type Runtime struct {
	logger   *zap.Logger
	mu       sync.Mutex
	backends []interface{ Close() error }
	closed   bool
}

// NewRuntime initializes the ONNX Runtime environment.
func NewRuntime(opts RuntimeOptions, logger *zap.Logger) (*Runtime, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	envMu.Lock()
	defer envMu.Unlock()
	if envRefs == 0 {
		if opts.SharedLibraryPath != "" {
			ort.SetSharedLibraryPath(opts.SharedLibraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
		logger.Debug("onnx runtime initialized", zap.String("library", opts.SharedLibraryPath))
	}
	envRefs++
	return &Runtime{logger: logger}, nil
}

// LoadImageBackend opens a visual encoder session for variant.
func (r *Runtime) LoadImageBackend(path string, variant models.ModelVariant, opts ImageOptions) (*ONNXImageBackend, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	if err := checkModelFile(path); err != nil {
		return nil, err
	}
	b, err := newONNXImageBackend(path, variant, opts.withDefaults())
	if err != nil {
		return nil, err
	}
	r.track(b)
	r.logger.Info("image backend loaded",
		zap.String("variant", variant.String()),
		zap.String("path", path),
		zap.Int("output_dim", variant.OutputDim))
	return b, nil
}

// LoadTextBackend opens a text encoder session.
func (r *Runtime) LoadTextBackend(path string, opts TextOptions) (*ONNXTextBackend, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	if err := checkModelFile(path); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	if opts.Dimensions <= 0 {
		return nil, fmt.Errorf("text backend dimensions must be positive, got %d", opts.Dimensions)
	}
	b, err := newONNXTextBackend(path, opts)
	if err != nil {
		return nil, err
	}
	r.track(b)
	r.logger.Info("text backend loaded",
		zap.String("path", path),
		zap.Int("dimensions", opts.Dimensions),
		zap.Int("batch_size", opts.BatchSize))
	return b, nil
}

// Close releases every backend, then the environment. It is safe to call more than once.
func (r *Runtime) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	backends := r.backends
	r.backends = nil
	r.mu.Unlock()

	var errs []error
	for i := len(backends) - 1; i >= 0; i-- {
		if err := backends[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}

	envMu.Lock()
	envRefs--
	if envRefs == 0 {
		if err := ort.DestroyEnvironment(); err != nil {
			errs = append(errs, fmt.Errorf("failed to destroy ONNX runtime: %w", err))
		}
	}
	envMu.Unlock()
	return errors.Join(errs...)
}

func (r *Runtime) checkOpen() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errors.New("onnx runtime is closed")
	}
	return nil
}

func (r *Runtime) track(b interface{ Close() error }) {
	r.mu.Lock()
	r.backends = append(r.backends, b)
	r.mu.Unlock()
}

func checkModelFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return &models.MissingFileError{Kind: "model", Path: path, Err: err}
	}
	return nil
}
