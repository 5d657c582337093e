// Package export locates a usable compressed model artifact through an ordered chain of
// strategies and accepts it only after the verification harness has run against it.
package export

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/shikibetsu/internal/storage"
	"go.uber.org/zap"
)

// ErrNoArtifact is returned when every strategy in the chain failed.
var ErrNoArtifact = errors.New("no export strategy produced an artifact")

// Artifact is a model file produced or located by a strategy.
type Artifact struct {
	Strategy string                `json:"strategy"`
	Files    storage.ArtifactFiles `json:"files"`
}

// Path returns the model file path.
func (a *Artifact) Path() string {
	return a.Files.ModelPath
}

// Strategy is one way of obtaining an artifact. Export returns an error when the strategy
// cannot produce a usable artifact.
type Strategy struct {
	Name   string
	Export func(ctx context.Context) (*Artifact, error)
}

// Attempt records the outcome of one strategy.
type Attempt struct {
	Strategy string `json:"strategy"`
	Err      error  `json:"-"`
	Error    string `json:"error,omitempty"`
}

// Chain runs strategies in order until one succeeds.
type Chain struct {
	strategies []Strategy
	logger     *zap.Logger
}

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithLogger sets a logger for strategy attempts.
func WithLogger(l *zap.Logger) ChainOption {
	return func(c *Chain) { c.logger = l }
}

// NewChain creates a chain over strategies.
func NewChain(strategies []Strategy, opts ...ChainOption) *Chain {
	c := &Chain{strategies: strategies, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run tries each strategy in order and returns the first artifact. Every attempt, failed or not,
// is returned. When all strategies fail the error wraps ErrNoArtifact and each failure.
func (c *Chain) Run(ctx context.Context) (*Artifact, []Attempt, error) {
	var attempts []Attempt
	var errs []error
	for _, s := range c.strategies {
		if err := ctx.Err(); err != nil {
			return nil, attempts, err
		}
		art, err := s.Export(ctx)
		if err == nil && art == nil {
			err = errors.New("strategy returned no artifact")
		}
		if err != nil {
			attempts = append(attempts, Attempt{Strategy: s.Name, Err: err, Error: err.Error()})
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
			c.logger.Warn("export strategy failed", zap.String("strategy", s.Name), zap.Error(err))
			continue
		}
		if art.Strategy == "" {
			art.Strategy = s.Name
		}
		attempts = append(attempts, Attempt{Strategy: s.Name})
		c.logger.Info("export strategy succeeded",
			zap.String("strategy", s.Name),
			zap.String("path", art.Path()),
			zap.Int64("bytes", art.Files.Total()))
		return art, attempts, nil
	}
	return nil, attempts, errors.Join(append([]error{ErrNoArtifact}, errs...)...)
}
