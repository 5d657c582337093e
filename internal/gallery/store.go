package gallery

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hyperjump/shikibetsu/internal/models"
)

// LoadLabels reads a JSON array of label strings.
func LoadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, missing("label list", path, err)
	}
	var labels []string
	if err := json.Unmarshal(data, &labels); err != nil {
		return nil, fmt.Errorf("parse label list %s: %w", path, err)
	}
	return labels, nil
}

// Load reads a label list and its gallery matrix and checks that they align.
func Load(labelsPath, galleryPath string) (*models.Gallery, error) {
	labels, err := LoadLabels(labelsPath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(galleryPath)
	if err != nil {
		return nil, missing("gallery", galleryPath, err)
	}
	var rows [][]float32
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse gallery %s: %w", galleryPath, err)
	}
	return models.NewGallery(labels, rows)
}

// Save writes the label list and gallery matrix, replacing any existing files.
// Each file is written to a temporary sibling and renamed into place.
func Save(g *models.Gallery, labelsPath, galleryPath string) error {
	if err := SaveLabels(g.Labels, labelsPath); err != nil {
		return err
	}
	rows := g.Embeddings
	if rows == nil {
		rows = [][]float32{}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode gallery: %w", err)
	}
	return writeAtomic(galleryPath, data)
}

// SaveLabels writes labels as an indented JSON array.
func SaveLabels(labels []string, path string) error {
	if labels == nil {
		labels = []string{}
	}
	data, err := json.MarshalIndent(labels, "", "  ")
	if err != nil {
		return fmt.Errorf("encode labels: %w", err)
	}
	return writeAtomic(path, data)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func missing(kind, path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return &models.MissingFileError{Kind: kind, Path: path, Err: err}
	}
	return fmt.Errorf("read %s %s: %w", kind, path, err)
}
