// Package pdftext extracts the text layer from PDF documents.
package pdftext

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// Extractor reads PDF text layers. It implements the harvest package's
// PageTextExtractor collaborator.
type Extractor struct{}

// FirstPageText returns the text layer of the first page, or an empty
// string when the page carries no extractable text. A document that cannot
// be opened at all yields an error.
func (Extractor) FirstPageText(data []byte) (text string, err error) {
	// The parser panics on some malformed documents; fold that into the
	// corrupt-document error path.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("pdftext: open document: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdftext: open document: %w", err)
	}
	if reader.NumPage() < 1 {
		return "", nil
	}

	page := reader.Page(1)
	if page.V.IsNull() {
		return "", nil
	}

	content, err := page.GetPlainText(nil)
	if err != nil {
		// Unextractable text is a scanned page, not a corrupt file.
		return "", nil
	}
	return content, nil
}
