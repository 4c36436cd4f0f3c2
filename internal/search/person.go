package search

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jdkato/prose/v2"
)

// EntityRecognizer extracts person names from free text. Implementations
// are loaded per language and reused for the process lifetime.
type EntityRecognizer interface {
	Persons(text string) ([]string, error)
}

// RecognizerFactory builds a recognizer for a language code ("pt" or "en").
type RecognizerFactory func(lang string) (EntityRecognizer, error)

// ptMarkers are language-indicative words used to pick the model for a
// query. Any hit selects Portuguese; otherwise the primary language wins.
var ptMarkers = []string{" de ", " da ", " do ", " para ", " com ", "ção", "çõ", "ã", "é "}

// enMarkers select English over a non-English primary language.
var enMarkers = []string{" the ", " from ", " with ", " for ", " and ", " of "}

// Detector runs best-effort person detection with lazy, memoized model
// loading and one cross-language fallback pass.
type Detector struct {
	primary string
	factory RecognizerFactory

	mu     sync.Mutex
	models map[string]EntityRecognizer
}

// NewDetector creates a detector whose language hint defaults to primary
// ("pt" or "en") when no marker word matches.
func NewDetector(primary string, factory RecognizerFactory) *Detector {
	if factory == nil {
		factory = NewProseRecognizer
	}
	return &Detector{
		primary: primary,
		factory: factory,
		models:  make(map[string]EntityRecognizer),
	}
}

// Detect returns the deduplicated person names found in text. An empty
// result is a valid negative, not an error. At most one fallback pass in
// the other language runs when the hinted model finds nobody.
func (d *Detector) Detect(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	lang := d.hintLanguage(text)
	persons, err := d.detectWith(lang, text)
	if err != nil {
		return nil, err
	}
	if len(persons) > 0 {
		return persons, nil
	}

	fallback := otherLanguage(lang)
	return d.detectWith(fallback, text)
}

// hintLanguage scans the lower-cased text for marker words.
func (d *Detector) hintLanguage(text string) string {
	lower := strings.ToLower(text)
	for _, m := range ptMarkers {
		if strings.Contains(lower, m) {
			return "pt"
		}
	}
	for _, m := range enMarkers {
		if strings.Contains(lower, m) {
			return "en"
		}
	}
	return d.primary
}

// detectWith runs one recognition pass with the model for lang.
func (d *Detector) detectWith(lang, text string) ([]string, error) {
	rec, err := d.model(lang)
	if err != nil {
		return nil, fmt.Errorf("load %s recognizer: %w", lang, err)
	}

	found, err := rec.Persons(text)
	if err != nil {
		return nil, fmt.Errorf("recognize persons (%s): %w", lang, err)
	}

	seen := make(map[string]struct{})
	var persons []string
	for _, p := range found {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		persons = append(persons, p)
	}
	sort.Strings(persons)
	return persons, nil
}

// model returns the memoized recognizer for lang, loading it on first use.
func (d *Detector) model(lang string) (EntityRecognizer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if rec, ok := d.models[lang]; ok {
		return rec, nil
	}
	rec, err := d.factory(lang)
	if err != nil {
		return nil, err
	}
	d.models[lang] = rec
	return rec, nil
}

func otherLanguage(lang string) string {
	if lang == "pt" {
		return "en"
	}
	return "pt"
}

// proseRecognizer backs EntityRecognizer with the prose NLP pipeline. The
// same English-trained model serves both languages; for Portuguese this is
// a best-effort heuristic, consistent with the connector's no-guarantees
// stance on entity accuracy.
type proseRecognizer struct{}

// NewProseRecognizer returns the prose-backed recognizer for lang.
func NewProseRecognizer(lang string) (EntityRecognizer, error) {
	return proseRecognizer{}, nil
}

func (proseRecognizer) Persons(text string) ([]string, error) {
	doc, err := prose.NewDocument(text, prose.WithExtraction(true), prose.WithSegmentation(false))
	if err != nil {
		return nil, err
	}

	var persons []string
	for _, ent := range doc.Entities() {
		if ent.Label == "PERSON" {
			persons = append(persons, ent.Text)
		}
	}
	return persons, nil
}
