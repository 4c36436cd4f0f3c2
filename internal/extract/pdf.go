package extract

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// ExtractPages decodes a PDF into one text string per page. Pages that
// fail to decode individually yield an empty string rather than aborting
// the document; malformed files surface as an error from the reader.
func ExtractPages(data []byte) (pages []string, err error) {
	// The pdf package panics on some malformed inputs; convert that into
	// an extraction error so batch callers can skip the file.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("decode pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	total := reader.NumPage()
	pages = make([]string, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}
