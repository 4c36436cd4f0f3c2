// Package extract decodes office document formats into plain text units:
// paragraphs for word-processor files, pages for PDFs, slides for
// presentations. Dispatch is by the closed domain.Kind enum rather than by
// raw mime strings.
package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/aidalabs/drive-connector/internal/domain"
)

var (
	// ErrUnsupported indicates the document kind has no decoder. Callers
	// degrade to a placeholder message instead of failing the request.
	ErrUnsupported = errors.New("unsupported document format")
)

// ExtractionError wraps a decoder failure for one file. Batch operations
// catch it at the item boundary, log, and skip the file.
type ExtractionError struct {
	FileName string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.FileName, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

var (
	controlChars = regexp.MustCompile(`[\x00-\x1F\x7F-\x9F]`)
	spaceRuns    = regexp.MustCompile(`\s{2,}`)
)

// TruncationNotice is appended when extracted content exceeds the payload
// budget.
const TruncationNotice = "\n\n[Conteúdo truncado para compatibilidade de payload.]"

// NoTextPlaceholder is returned when a file decodes to no readable text.
const NoTextPlaceholder = "O arquivo foi encontrado, mas não contém texto legível."

// Extractor decodes documents with a bounded payload budget.
type Extractor struct {
	// PayloadLimit caps the number of characters of text produced for a
	// single document.
	PayloadLimit int
}

// New returns an Extractor with the given payload budget.
func New(payloadLimit int) *Extractor {
	return &Extractor{PayloadLimit: payloadLimit}
}

// Paragraphs decodes the document into its ordered text units: paragraphs
// for DOCX, one string per page for PDF, one string per slide for
// presentations, buffered lines for plain text. Returns ErrUnsupported for
// kinds without a decoder.
func (e *Extractor) Paragraphs(kind domain.Kind, data []byte) ([]string, error) {
	switch kind {
	case domain.KindDocx:
		return ExtractParagraphs(data)
	case domain.KindPDF:
		return e.extractPagesCapped(data)
	case domain.KindSlides:
		slides, err := ExtractSlides(data)
		if err != nil {
			return nil, err
		}
		texts := make([]string, 0, len(slides))
		for _, s := range slides {
			texts = append(texts, fmt.Sprintf("[Slide %d] %s", s.Number, s.Content))
		}
		return texts, nil
	case domain.KindText:
		return e.extractTextCapped(data), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, kind)
	}
}

// Content decodes the document and flattens it into one sanitized string,
// applying the payload budget and the empty-content placeholder. For
// unsupported kinds it returns a descriptive message instead of an error.
func (e *Extractor) Content(kind domain.Kind, mimeType string, data []byte) (string, error) {
	if !kind.Extractable() {
		return fmt.Sprintf("O tipo de arquivo %s não é suportado para leitura direta.", mimeType), nil
	}

	paragraphs, err := e.Paragraphs(kind, data)
	if err != nil {
		return "", err
	}

	text := Sanitize(strings.Join(paragraphs, "\n"))
	if e.PayloadLimit > 0 && len(text) > e.PayloadLimit {
		text = text[:e.PayloadLimit] + TruncationNotice
	}
	if strings.TrimSpace(text) == "" {
		return NoTextPlaceholder, nil
	}
	return text, nil
}

// Sanitize strips control characters and collapses whitespace runs.
func Sanitize(s string) string {
	s = controlChars.ReplaceAllString(s, " ")
	s = spaceRuns.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// extractPagesCapped extracts PDF pages, stopping early once the
// accumulated text exceeds the payload budget.
func (e *Extractor) extractPagesCapped(data []byte) ([]string, error) {
	pages, err := ExtractPages(data)
	if err != nil {
		return nil, err
	}
	if e.PayloadLimit <= 0 {
		return pages, nil
	}
	var total int
	for i, p := range pages {
		total += len(p)
		if total > e.PayloadLimit {
			return pages[:i+1], nil
		}
	}
	return pages, nil
}

// extractTextCapped reads plain text up to the payload budget, split on
// newlines so downstream chunking sees paragraph-like units.
func (e *Extractor) extractTextCapped(data []byte) []string {
	text := string(data)
	if e.PayloadLimit > 0 && len(text) > e.PayloadLimit {
		text = text[:e.PayloadLimit]
	}
	var paragraphs []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			paragraphs = append(paragraphs, line)
		}
	}
	return paragraphs
}
