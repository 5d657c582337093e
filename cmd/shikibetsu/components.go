package main

import (
	"fmt"

	"github.com/hyperjump/shikibetsu/internal/config"
	"github.com/hyperjump/shikibetsu/internal/embedding"
	"github.com/hyperjump/shikibetsu/internal/gallery"
	"github.com/hyperjump/shikibetsu/internal/keyword"
	"github.com/hyperjump/shikibetsu/internal/models"
	"github.com/hyperjump/shikibetsu/internal/ranking"
	"github.com/hyperjump/shikibetsu/internal/storage"
	"go.uber.org/zap"
)

// Components holds what the commands share. Fields are nil until requested.
type Components struct {
	Config  *config.Config
	Logger  *zap.Logger
	Runtime *embedding.Runtime
	Reports storage.ReportStore
	Gallery *models.Gallery
	Labels  *keyword.LabelIndex
}

// componentSet selects which components initializeComponents opens.
type componentSet struct {
	runtime bool
	reports bool
	gallery bool
}

// Close releases everything that was opened, runtime last.
func (c *Components) Close() {
	if c.Labels != nil {
		_ = c.Labels.Close()
	}
	if c.Reports != nil {
		_ = c.Reports.Close()
	}
	if c.Runtime != nil {
		if err := c.Runtime.Close(); err != nil {
			c.Logger.Warn("runtime close failed", zap.Error(err))
		}
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, set componentSet) (*Components, error) {
	c := &Components{Config: cfg, Logger: logger}
	if set.gallery {
		if err := c.LoadGallery(); err != nil {
			return nil, err
		}
	}
	if set.reports {
		store, err := storage.NewSQLiteReportStore(cfg.Storage.DatabasePath)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize report store: %w", err)
		}
		c.Reports = store
	}
	if set.runtime {
		rt, err := embedding.NewRuntime(embedding.RuntimeOptions{SharedLibraryPath: cfg.Models.ORTLibrary}, logger)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize ONNX Runtime: %w", err)
		}
		c.Runtime = rt
	}
	return c, nil
}

// LoadGallery reads the configured gallery and indexes its labels.
func (c *Components) LoadGallery() error {
	g, err := gallery.Load(c.Config.Gallery.LabelsPath, c.Config.Gallery.GalleryPath)
	if err != nil {
		return err
	}
	idx, err := keyword.NewLabelIndex(g.Labels, keyword.WithLogger(c.Logger))
	if err != nil {
		return err
	}
	c.Gallery, c.Labels = g, idx
	c.Logger.Info("gallery loaded", zap.Int("labels", g.Len()), zap.Int("dimensions", g.Dimensions()))
	return nil
}

// Ranker returns a ranker that suggests close labels when a target is missing.
func (c *Components) Ranker() *ranking.Ranker {
	if c.Labels == nil {
		return ranking.NewRanker()
	}
	return ranking.NewRanker(ranking.WithSuggester(c.Labels, 3))
}

// LoadImage opens the visual encoder described by mc.
func (c *Components) LoadImage(mc config.ModelConfig) (embedding.Backend, error) {
	b, err := c.Runtime.LoadImageBackend(mc.Path, variantFor(mc), imageOptions(mc))
	if err != nil {
		return nil, err
	}
	return b, nil
}

// LoadText opens the text encoder behind an LRU cache.
func (c *Components) LoadText() (embedding.TextBackend, error) {
	tc := c.Config.Models.Text
	backend, err := c.Runtime.LoadTextBackend(tc.Path, embedding.TextOptions{
		InputName:     tc.InputName,
		OutputName:    tc.OutputName,
		Dimensions:    tc.Dimensions,
		ContextLength: tc.ContextLength,
		BatchSize:     tc.BatchSize,
	})
	if err != nil {
		return nil, err
	}
	if tc.CacheSize <= 0 {
		return backend, nil
	}
	cached, err := embedding.NewCachedTextBackend(backend, tc.CacheSize)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return cached, nil
}

func variantFor(mc config.ModelConfig) models.ModelVariant {
	return models.NewModelVariant(mc.Name, models.Precision(mc.Precision), mc.ImageSize, mc.OutputDim)
}

func imageOptions(mc config.ModelConfig) embedding.ImageOptions {
	return embedding.ImageOptions{InputName: mc.InputName, OutputName: mc.OutputName}
}

func promptTemplate(cfg *config.Config) gallery.PromptTemplate {
	return gallery.PromptTemplate{
		Format:    cfg.Gallery.Prompt.Format,
		Overrides: cfg.Gallery.Prompt.Overrides,
	}
}
