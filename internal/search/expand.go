// Package search implements the query-side heuristics of the connector:
// bilingual term expansion, best-effort person detection, keyword slide
// search, and the two-tier smart search orchestrator.
package search

import (
	"sort"
	"strings"
)

// synonyms is the static bilingual (pt/en) expansion table. Matching is
// substring-based on the normalized query, so partial-word collisions are
// possible and accepted.
var synonyms = map[string][]string{
	"governança de dados":      {"data governance", "gestão de dados", "política de dados", "data management"},
	"qualidade de dados":       {"data quality", "data cleansing", "data validation"},
	"catálogo de dados":        {"data catalog", "metadata management"},
	"lago de dados":            {"data lake", "data repository"},
	"segurança da informação":  {"information security", "data privacy", "cybersecurity"},
	"arquitetura de dados":     {"data architecture", "data modeling", "data structure"},
	"integração de dados":      {"data integration", "ETL", "data ingestion"},
	"governança":               {"governance", "management", "oversight"},
}

// Expand expands a query into the set of equivalent search terms across
// both languages. The result always contains at least the normalized
// query; it is empty only for an empty query. Terms are returned sorted
// for deterministic output.
func Expand(query string) []string {
	if query == "" {
		return nil
	}

	normalized := strings.ToLower(strings.TrimSpace(query))
	expanded := map[string]struct{}{normalized: {}}

	for canonical, alts := range synonyms {
		if !matchesAny(normalized, canonical, alts) {
			continue
		}
		expanded[canonical] = struct{}{}
		for _, alt := range alts {
			expanded[alt] = struct{}{}
		}
	}

	terms := make([]string, 0, len(expanded))
	for term := range expanded {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

// matchesAny reports whether the canonical term or any synonym occurs as a
// substring of the normalized query.
func matchesAny(normalized, canonical string, alts []string) bool {
	if strings.Contains(normalized, canonical) {
		return true
	}
	for _, alt := range alts {
		if strings.Contains(normalized, strings.ToLower(alt)) {
			return true
		}
	}
	return false
}
