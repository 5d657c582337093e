package labels

import (
	"fmt"
	"regexp"

	"github.com/lu4p/cat"
)

// rtfPar matches the \par control word (not \pard) and its delimiter. cat renders \par as a
// space, so it is rewritten to \line to keep one label per paragraph.
var rtfPar = regexp.MustCompile(`\\par([^a-zA-Z]|$)`)

// readWithCatBytes extracts the text of an .odt or .rtf document and splits it into lines.
func readWithCatBytes(content []byte, ext string) ([]string, error) {
	if ext == ".rtf" {
		content = rtfPar.ReplaceAll(content, []byte(`\line$1`))
	}
	text, err := cat.FromBytes(content)
	if err != nil {
		return nil, fmt.Errorf("extract %s document: %w", ext, err)
	}
	return readPlain([]byte(text)), nil
}
