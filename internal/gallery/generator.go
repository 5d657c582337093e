// Package gallery builds, persists and inspects label embedding galleries.
package gallery

import (
	"context"
	"fmt"

	"github.com/hyperjump/shikibetsu/internal/embedding"
	"github.com/hyperjump/shikibetsu/internal/models"
	"github.com/hyperjump/shikibetsu/internal/vector"
	"go.uber.org/zap"
)

// DefaultBatchSize is the number of prompts sent to the text backend per call.
const DefaultBatchSize = 100

// Generator turns a label list into a normalized Gallery using a text backend.
type Generator struct {
	backend   embedding.TextBackend
	template  PromptTemplate
	batchSize int
	logger    *zap.Logger
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithLogger sets a logger for batch progress.
func WithLogger(l *zap.Logger) GeneratorOption {
	return func(g *Generator) { g.logger = l }
}

// WithTemplate sets the prompt template.
func WithTemplate(t PromptTemplate) GeneratorOption {
	return func(g *Generator) { g.template = t }
}

// WithBatchSize sets the number of prompts per backend call. Values <= 0 keep the default.
func WithBatchSize(n int) GeneratorOption {
	return func(g *Generator) {
		if n > 0 {
			g.batchSize = n
		}
	}
}

// NewGenerator creates a generator backed by backend.
func NewGenerator(backend embedding.TextBackend, opts ...GeneratorOption) *Generator {
	g := &Generator{
		backend:   backend,
		template:  DefaultTemplate(),
		batchSize: DefaultBatchSize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate embeds one prompt per label and returns the gallery with every row at unit length.
// Row i of the result always corresponds to labels[i].
func (g *Generator) Generate(ctx context.Context, labels []string) (*models.Gallery, error) {
	prompts := g.template.Prompts(labels)
	rows := make([][]float32, 0, len(labels))
	dim := -1

	for start := 0; start < len(prompts); start += g.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+g.batchSize, len(prompts))
		batch, err := g.backend.EmbedBatch(ctx, prompts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed labels %d-%d: %w", start, end-1, err)
		}
		if len(batch) != end-start {
			return nil, &models.ShapeError{
				Context: fmt.Sprintf("text batch %d-%d", start, end-1),
				Got:     fmt.Sprintf("%d rows", len(batch)),
				Want:    fmt.Sprintf("%d rows", end-start),
			}
		}
		for j, raw := range batch {
			i := start + j
			if dim < 0 {
				dim = len(raw)
			}
			if len(raw) != dim || dim == 0 {
				return nil, &models.ShapeError{
					Context: fmt.Sprintf("embedding for %q", labels[i]),
					Got:     fmt.Sprintf("%d values", len(raw)),
					Want:    fmt.Sprintf("%d values", dim),
				}
			}
			unit, mag := vector.Normalize(raw)
			if mag == 0 {
				return nil, &models.DegenerateVectorError{Index: i, Label: labels[i]}
			}
			rows = append(rows, unit)
		}
		g.logger.Info("embedded label batch",
			zap.Int("processed", end),
			zap.Int("total", len(prompts)))
	}
	return models.NewGallery(labels, rows)
}

// GenerateAndSave generates the gallery and replaces the files at labelsPath and galleryPath.
func (g *Generator) GenerateAndSave(ctx context.Context, labels []string, labelsPath, galleryPath string) (*models.Gallery, error) {
	gal, err := g.Generate(ctx, labels)
	if err != nil {
		return nil, err
	}
	if err := Save(gal, labelsPath, galleryPath); err != nil {
		return nil, err
	}
	g.logger.Info("gallery saved",
		zap.String("labels", labelsPath),
		zap.String("gallery", galleryPath),
		zap.Int("count", gal.Len()),
		zap.Int("dimensions", gal.Dimensions()))
	return gal, nil
}
