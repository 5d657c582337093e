// Package e2e provides end-to-end tests; this file builds minimal label files for every importable format.
package e2e

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/xuri/excelize/v2"
)

// LabelFileExtensions lists the formats the fixtures can produce.
// PDF is not generated here (no minimal PDF with extractable text); .odt and .rtf go through lu4p/cat.
var LabelFileExtensions = []string{
	".txt", ".md", ".csv", ".json",
	".docx", ".xlsx", ".ods",
}

// WriteLabelFile returns the bytes of a minimal file of the given extension listing labels,
// one per line, row or paragraph.
func WriteLabelFile(ext string, labels []string) ([]byte, error) {
	switch ext {
	case ".txt":
		return []byte(strings.Join(labels, "\n") + "\n"), nil
	case ".md":
		var b strings.Builder
		b.WriteString("# Species\n\nLabels used by the gallery:\n\n")
		for _, l := range labels {
			fmt.Fprintf(&b, "- %s\n", l)
		}
		return []byte(b.String()), nil
	case ".csv":
		var b strings.Builder
		for i, l := range labels {
			fmt.Fprintf(&b, "%q,%d\n", l, i)
		}
		return []byte(b.String()), nil
	case ".json":
		return json.Marshal(labels)
	case ".docx":
		return minimalDocx(labels)
	case ".xlsx":
		return minimalXlsx(labels)
	case ".ods":
		return minimalOds(labels)
	default:
		return nil, fmt.Errorf("no fixture for %s", ext)
	}
}

func zipFile(name, body string) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, err := w.Create(name)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write([]byte(body)); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func minimalDocx(labels []string) ([]byte, error) {
	var b strings.Builder
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, l := range labels {
		b.WriteString(`<w:p><w:r><w:t>` + html.EscapeString(l) + `</w:t></w:r></w:p>`)
	}
	b.WriteString(`</w:body></w:document>`)
	return zipFile("word/document.xml", b.String())
}

func minimalOds(labels []string) ([]byte, error) {
	var b strings.Builder
	b.WriteString(`<office:document-content><office:body><table:table>`)
	for _, l := range labels {
		b.WriteString(`<table:table-row><table:table-cell><text:p>` + html.EscapeString(l) + `</text:p></table:table-cell></table:table-row>`)
	}
	b.WriteString(`</table:table></office:body></office:document-content>`)
	return zipFile("content.xml", b.String())
}

func minimalXlsx(labels []string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	for i, l := range labels {
		if err := f.SetCellValue("Sheet1", fmt.Sprintf("A%d", i+1), l); err != nil {
			return nil, err
		}
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
