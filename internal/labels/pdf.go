package labels

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// readPDF returns one entry per line of text on every page.
func readPDF(content []byte) ([]string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	var out []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i, err)
		}
		for _, row := range rows {
			var b strings.Builder
			for _, word := range row.Content {
				b.WriteString(word.S)
			}
			out = append(out, b.String())
		}
	}
	return out, nil
}
