package labels

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"
)

const (
	docxDocumentXMLPath = "word/document.xml"
	odsContentPath      = "content.xml"
)

var (
	// wpTag matches one Word paragraph; wtTag matches the text runs inside it.
	wpTag = regexp.MustCompile(`(?s)<w:p[ >].*?</w:p>`)
	wtTag = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

	// odsRow matches a spreadsheet row; odsCellText matches the text paragraphs of its cells.
	odsRow      = regexp.MustCompile(`(?s)<table:table-row[^>]*>.*?</table:table-row>`)
	odsCellText = regexp.MustCompile(`<text:p[^>]*>(.*?)</text:p>`)
	xmlTag      = regexp.MustCompile(`<[^>]+>`)
)

// readDOCX returns one entry per paragraph of word/document.xml.
func readDOCX(content []byte) ([]string, error) {
	docXML, err := zipEntry(content, docxDocumentXMLPath, "DOCX")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, p := range wpTag.FindAllString(docXML, -1) {
		var b strings.Builder
		for _, t := range wtTag.FindAllStringSubmatch(p, -1) {
			b.WriteString(t[1])
		}
		out = append(out, html.UnescapeString(b.String()))
	}
	return out, nil
}

// readODS returns the first non-empty cell of every row of content.xml.
func readODS(content []byte) ([]string, error) {
	contentXML, err := zipEntry(content, odsContentPath, "ODS")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, row := range odsRow.FindAllString(contentXML, -1) {
		var cells []string
		for _, m := range odsCellText.FindAllStringSubmatch(row, -1) {
			cells = append(cells, html.UnescapeString(xmlTag.ReplaceAllString(m[1], "")))
		}
		if cell := firstCell(cells); cell != "" {
			out = append(out, cell)
		}
	}
	return out, nil
}

func zipEntry(content []byte, name, kind string) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("read %s: not a zip: %w", kind, err)
	}
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("read %s: open %s: %w", kind, f.Name, err)
		}
		var buf bytes.Buffer
		_, err = buf.ReadFrom(rc)
		_ = rc.Close()
		if err != nil {
			return "", fmt.Errorf("read %s: read %s: %w", kind, f.Name, err)
		}
		return buf.String(), nil
	}
	return "", fmt.Errorf("read %s: %s not found", kind, name)
}
