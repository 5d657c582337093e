// Package labels reads species label lists from plain text, JSON, spreadsheets and documents.
package labels

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Result is the outcome of importing a label list.
type Result struct {
	Labels []string `json:"labels"`
	// Duplicates lists repeated labels that were dropped, in the order they were seen.
	Duplicates []string `json:"duplicates,omitempty"`
}

// Importer turns label files into ordered, de-duplicated label lists.
type Importer struct{}

// NewImporter returns a new Importer.
func NewImporter() *Importer {
	return &Importer{}
}

// Import reads the file at path and returns its labels.
// Supported: .json (array of strings), .txt/.md (one label per line or list item), .csv (first column), .xlsx and .ods (first
// non-empty cell of each row), .docx (one label per paragraph), .pdf (one label per line),
// .odt and .rtf (one label per line).
func (im *Importer) Import(path string) (*Result, error) {
	ext := strings.ToLower(filepath.Ext(path))
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read label file: %w", err)
	}
	return im.ImportBytes(content, ext)
}

// ImportBytes reads labels from content based on the given extension.
// ext should include the leading dot (e.g. ".xlsx").
func (im *Importer) ImportBytes(content []byte, ext string) (*Result, error) {
	var raw []string
	var err error
	switch strings.ToLower(ext) {
	case ".json":
		raw, err = readJSON(content)
	case ".xlsx":
		raw, err = readExcel(content)
	case ".ods":
		raw, err = readODS(content)
	case ".docx":
		raw, err = readDOCX(content)
	case ".pdf":
		raw, err = readPDF(content)
	case ".odt", ".rtf":
		raw, err = readWithCatBytes(content, ext)
	case ".md":
		raw = readMarkdown(content)
	case ".csv":
		raw, err = readCSV(content)
	default:
		raw = readPlain(content)
	}
	if err != nil {
		return nil, err
	}
	return collect(raw), nil
}

// collect cleans raw entries and keeps the first occurrence of each label.
func collect(raw []string) *Result {
	res := &Result{Labels: make([]string, 0, len(raw))}
	seen := make(map[string]bool, len(raw))
	for _, r := range raw {
		label := Clean(r)
		if label == "" {
			continue
		}
		if seen[label] {
			res.Duplicates = append(res.Duplicates, label)
			continue
		}
		seen[label] = true
		res.Labels = append(res.Labels, label)
	}
	return res
}

// Clean trims a label and collapses internal whitespace.
func Clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
