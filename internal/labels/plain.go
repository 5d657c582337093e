package labels

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

func readJSON(content []byte) ([]string, error) {
	var labels []string
	if err := json.Unmarshal(content, &labels); err != nil {
		return nil, fmt.Errorf("parse JSON label list: %w", err)
	}
	return labels, nil
}

// readPlain returns one entry per line. Lines starting with '#' or "//" are comments.
func readPlain(content []byte) []string {
	var out []string
	for _, line := range lines(content) {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		out = append(out, line)
	}
	return out
}

// csvHeaders are first-column names that mark a header row rather than a label.
var csvHeaders = map[string]bool{"label": true, "labels": true, "name": true, "species": true, "class": true}

// readCSV returns the first column of every record. A header row is skipped.
func readCSV(content []byte) ([]string, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.Comment = '#'
	var out []string
	for i := 0; ; i++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse CSV label list: %w", err)
		}
		if len(rec) == 0 {
			continue
		}
		first := strings.TrimSpace(rec[0])
		if i == 0 && csvHeaders[strings.ToLower(first)] {
			continue
		}
		out = append(out, first)
	}
	return out, nil
}

// readMarkdown returns list items. Headings, quotes and other prose are ignored.
func readMarkdown(content []byte) []string {
	var out []string
	for _, line := range lines(content) {
		line = strings.TrimSpace(line)
		item, ok := listItem(line)
		if ok {
			out = append(out, item)
		}
	}
	return out
}

func listItem(line string) (string, bool) {
	for _, marker := range []string{"- ", "* ", "+ "} {
		if strings.HasPrefix(line, marker) {
			return strings.TrimPrefix(line, marker), true
		}
	}
	// Numbered items: "12. Label" or "12) Label".
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i+1 < len(line) && (line[i] == '.' || line[i] == ')') && line[i+1] == ' ' {
		return line[i+2:], true
	}
	return "", false
}

// lines splits content into lines, replacing invalid UTF-8 with the replacement character.
func lines(content []byte) []string {
	s := string(content)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "�")
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Split(s, "\n")
}
