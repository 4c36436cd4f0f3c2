package search

import (
	"errors"
	"slices"
	"testing"
)

// fakeRecognizer returns canned persons and counts invocations.
type fakeRecognizer struct {
	persons []string
	err     error
	calls   int
}

func (f *fakeRecognizer) Persons(string) ([]string, error) {
	f.calls++
	return f.persons, f.err
}

// recognizerSet builds a factory serving one fake per language and
// counting how often each language's model was constructed.
type recognizerSet struct {
	byLang map[string]*fakeRecognizer
	loads  map[string]int
}

func newRecognizerSet(pt, en *fakeRecognizer) *recognizerSet {
	return &recognizerSet{
		byLang: map[string]*fakeRecognizer{"pt": pt, "en": en},
		loads:  make(map[string]int),
	}
}

func (s *recognizerSet) factory(lang string) (EntityRecognizer, error) {
	s.loads[lang]++
	rec, ok := s.byLang[lang]
	if !ok {
		return nil, errors.New("unknown language: " + lang)
	}
	return rec, nil
}

func TestDetect_EmptyText(t *testing.T) {
	set := newRecognizerSet(&fakeRecognizer{}, &fakeRecognizer{})
	d := NewDetector("pt", set.factory)

	persons, err := d.Detect("   ")
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if persons != nil {
		t.Errorf("Expected nil for blank text, got %v", persons)
	}
	if set.loads["pt"] != 0 || set.loads["en"] != 0 {
		t.Error("No model should be loaded for blank text")
	}
}

func TestDetect_EnglishMarkersPickEnglishModel(t *testing.T) {
	en := &fakeRecognizer{persons: []string{"Jennifer"}}
	pt := &fakeRecognizer{}
	set := newRecognizerSet(pt, en)
	d := NewDetector("pt", set.factory)

	persons, err := d.Detect("notes from the quarterly review")
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if !slices.Contains(persons, "Jennifer") {
		t.Errorf("Expected Jennifer, got %v", persons)
	}
	if en.calls != 1 {
		t.Errorf("English model calls = %d, want 1", en.calls)
	}
	if pt.calls != 0 {
		t.Errorf("Portuguese model calls = %d, want 0", pt.calls)
	}
}

func TestDetect_PortugueseMarkersPickPortugueseModel(t *testing.T) {
	pt := &fakeRecognizer{persons: []string{"Felipe"}}
	en := &fakeRecognizer{}
	set := newRecognizerSet(pt, en)
	d := NewDetector("en", set.factory)

	persons, err := d.Detect("anotações de reunião")
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if !slices.Contains(persons, "Felipe") {
		t.Errorf("Expected Felipe, got %v", persons)
	}
	if pt.calls != 1 {
		t.Errorf("Portuguese model calls = %d, want 1", pt.calls)
	}
}

func TestDetect_FallbackRunsOnce(t *testing.T) {
	pt := &fakeRecognizer{} // hinted model finds nobody
	en := &fakeRecognizer{persons: []string{"Lisa"}}
	set := newRecognizerSet(pt, en)
	d := NewDetector("pt", set.factory)

	persons, err := d.Detect("relatório de qualidade")
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if !slices.Contains(persons, "Lisa") {
		t.Errorf("Expected fallback to find Lisa, got %v", persons)
	}
	if pt.calls != 1 || en.calls != 1 {
		t.Errorf("Expected exactly one pass per language, got pt=%d en=%d", pt.calls, en.calls)
	}
}

func TestDetect_NegativeResultIsNotAnError(t *testing.T) {
	set := newRecognizerSet(&fakeRecognizer{}, &fakeRecognizer{})
	d := NewDetector("pt", set.factory)

	persons, err := d.Detect("relatório de qualidade")
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(persons) != 0 {
		t.Errorf("Expected empty result, got %v", persons)
	}
}

func TestDetect_ModelsMemoized(t *testing.T) {
	pt := &fakeRecognizer{persons: []string{"Rick"}}
	set := newRecognizerSet(pt, &fakeRecognizer{})
	d := NewDetector("pt", set.factory)

	for range 3 {
		if _, err := d.Detect("relatório de gavin"); err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
	}
	if set.loads["pt"] != 1 {
		t.Errorf("Portuguese model loaded %d times, want 1", set.loads["pt"])
	}
}

func TestDetect_Deduplicates(t *testing.T) {
	pt := &fakeRecognizer{persons: []string{" Rick ", "Rick", "Lisa"}}
	set := newRecognizerSet(pt, &fakeRecognizer{})
	d := NewDetector("pt", set.factory)

	persons, err := d.Detect("ata de reunião")
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	want := []string{"Lisa", "Rick"}
	if !slices.Equal(persons, want) {
		t.Errorf("Detect = %v, want %v", persons, want)
	}
}

func TestDetect_RecognizerError(t *testing.T) {
	pt := &fakeRecognizer{err: errors.New("model blew up")}
	set := newRecognizerSet(pt, &fakeRecognizer{})
	d := NewDetector("pt", set.factory)

	if _, err := d.Detect("ata de reunião"); err == nil {
		t.Error("Expected recognizer error to propagate")
	}
}

func TestHintLanguage_DefaultsToPrimary(t *testing.T) {
	d := NewDetector("en", func(string) (EntityRecognizer, error) { return &fakeRecognizer{}, nil })
	if got := d.hintLanguage("meeting"); got != "en" {
		t.Errorf("hintLanguage = %q, want en", got)
	}

	d = NewDetector("pt", d.factory)
	if got := d.hintLanguage("meeting"); got != "pt" {
		t.Errorf("hintLanguage = %q, want pt", got)
	}
}
