package search

import (
	"strings"

	"github.com/aidalabs/drive-connector/internal/domain"
)

// MaxSlideHits caps the number of matching slides returned by a slide
// search.
const MaxSlideHits = 10

// SlideHits returns the slides whose content contains the query,
// case-insensitively, capped at MaxSlideHits. The match is a literal
// substring, not a pattern.
func SlideHits(slides []domain.Slide, query string) []domain.Slide {
	needle := strings.ToLower(query)

	var hits []domain.Slide
	for _, s := range slides {
		if strings.Contains(strings.ToLower(s.Content), needle) {
			hits = append(hits, s)
			if len(hits) == MaxSlideHits {
				break
			}
		}
	}
	return hits
}
