package models

import (
	"fmt"
	"strings"
)

// MissingFileError reports that a required input file (label list, gallery, model artifact) is absent.
type MissingFileError struct {
	Kind string // "label list", "gallery", "model", ...
	Path string
	Err  error
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("%s file not found: %s", e.Kind, e.Path)
}

func (e *MissingFileError) Unwrap() error {
	return e.Err
}

// ShapeError reports a tensor, vector or gallery dimension mismatch.
type ShapeError struct {
	Context string
	Got     string
	Want    string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("shape mismatch in %s: got %s, want %s", e.Context, e.Got, e.Want)
}

// DegenerateVectorError reports a zero-magnitude embedding produced while building a gallery.
type DegenerateVectorError struct {
	Index int
	Label string
}

func (e *DegenerateVectorError) Error() string {
	if e.Label == "" {
		return fmt.Sprintf("zero-magnitude embedding at index %d", e.Index)
	}
	return fmt.Sprintf("zero-magnitude embedding for label %q (index %d)", e.Label, e.Index)
}

// LabelNotFoundError reports that a requested target label is not present in the gallery.
// Suggestions may be filled by callers that have a label search index.
type LabelNotFoundError struct {
	Label       string
	Suggestions []string
}

func (e *LabelNotFoundError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("label not found in gallery: %q", e.Label)
	}
	return fmt.Sprintf("label not found in gallery: %q (did you mean: %s?)", e.Label, strings.Join(e.Suggestions, ", "))
}
