package search

import (
	"context"
	"log/slog"
	"strings"

	"github.com/aidalabs/drive-connector/internal/domain"
	"github.com/aidalabs/drive-connector/internal/drive"
)

// ContentFetcher produces the extracted text content of a file. The smart
// search confirms term hits against content, not just names.
type ContentFetcher interface {
	Content(ctx context.Context, rec domain.FileRecord) (string, error)
}

// SmartResult is the outcome of a two-tier search. Expanded reports
// whether the person-scoped tier came up empty and the search fell back
// to the expanded tier.
type SmartResult struct {
	Query    string              `json:"query_original"`
	Person   string              `json:"pessoa_detectada,omitempty"`
	Expanded bool                `json:"busca_expandida"`
	Terms    []string            `json:"termos_expandidos"`
	Files    []domain.FileRecord `json:"arquivos_encontrados"`
	Total    int                 `json:"total"`
}

// Orchestrator composes term expansion, person detection and per-file
// content confirmation into the two-tier smart search.
type Orchestrator struct {
	store    drive.Store
	fetch    ContentFetcher
	detector *Detector
	pageSize int64
}

// NewOrchestrator wires the orchestrator's collaborators.
func NewOrchestrator(store drive.Store, fetch ContentFetcher, detector *Detector, pageSize int64) *Orchestrator {
	return &Orchestrator{
		store:    store,
		fetch:    fetch,
		detector: detector,
		pageSize: pageSize,
	}
}

// Search runs the two-tier search. Tier one restricts candidates to files
// whose name or content mentions the detected person; it is entered only
// when the detector finds someone. Tier two drops the person filter and is
// entered either directly (no person) or as the single fallback when tier
// one finds nothing.
func (o *Orchestrator) Search(ctx context.Context, query string) (SmartResult, error) {
	terms := Expand(query)

	persons, err := o.detector.Detect(query)
	if err != nil {
		return SmartResult{}, err
	}
	person := ""
	if len(persons) > 0 {
		person = strings.ToLower(persons[0])
	}

	result := SmartResult{
		Query:  query,
		Person: person,
		Terms:  terms,
	}

	seen := make(map[string]struct{})

	if person != "" {
		result.Files = o.collect(ctx, terms, person, seen)
	}
	if len(result.Files) == 0 {
		result.Files = o.collect(ctx, terms, "", seen)
		result.Expanded = person != ""
	}

	result.Total = len(result.Files)
	return result, nil
}

// collect gathers candidates by name for every term, confirms each against
// its extracted content, and optionally applies the person filter. Fetch
// and extraction failures skip the candidate; they never abort the search.
func (o *Orchestrator) collect(ctx context.Context, terms []string, person string, seen map[string]struct{}) []domain.FileRecord {
	var found []domain.FileRecord
	for _, term := range terms {
		candidates, err := drive.ListAll(ctx, o.store, drive.Query{NameContains: term}, o.pageSize)
		if err != nil {
			slog.Warn("Listing candidates failed", "term", term, "error", err)
			continue
		}

		for _, rec := range candidates {
			if _, ok := seen[rec.ID]; ok {
				continue
			}
			if rec.IsFolder() {
				continue
			}

			content, err := o.fetch.Content(ctx, rec)
			if err != nil {
				slog.Warn("Skipping unreadable candidate", "file", rec.Name, "error", err)
				continue
			}
			content = strings.ToLower(content)

			if person != "" &&
				!strings.Contains(strings.ToLower(rec.Name), person) &&
				!strings.Contains(content, person) {
				continue
			}

			if containsAnyTerm(content, terms) {
				found = append(found, rec)
				seen[rec.ID] = struct{}{}
			}
		}
	}
	return found
}

// containsAnyTerm reports whether any expanded term occurs in the content.
func containsAnyTerm(content string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(content, strings.ToLower(t)) {
			return true
		}
	}
	return false
}
