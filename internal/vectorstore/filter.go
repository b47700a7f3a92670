package vectorstore

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// matchesFilter reports whether actual satisfies expected. A string
// expected value containing a glob metacharacter (`*`, `?`, `[`) is matched
// with doublestar glob semantics (e.g. "docs/**/*.md" against a filepath);
// everything else is matched by plain equality. Filters are a conjunction
// (must) of predicates over payload fields, per the VectorIndex contract.
func matchesFilter(actual interface{}, expected interface{}) bool {
	// A []string expected value is an "$in" predicate: actual must match at
	// least one of the alternatives, each evaluated with the same
	// string-equality/glob rules as the scalar case below.
	if expectedList, ok := expected.([]string); ok {
		for _, alt := range expectedList {
			if matchesFilter(actual, alt) {
				return true
			}
		}
		return false
	}

	expectedStr, expectedIsString := expected.(string)
	actualStr, actualIsString := actual.(string)

	if expectedIsString && actualIsString && isGlobPattern(expectedStr) {
		ok, err := doublestar.Match(expectedStr, actualStr)
		return err == nil && ok
	}
	return actual == expected
}

func isGlobPattern(s string) bool {
	for _, r := range s {
		switch r {
		case '*', '?', '[':
			return true
		}
	}
	return false
}

// matchesAllFilters checks a document's metadata against every filter
// predicate, plus the reserved top-level fields "repository" and
// "document_id" which are stored as dedicated Document fields rather than
// generic metadata.
func matchesAllFilters(doc Document, filters map[string]interface{}) bool {
	for key, expected := range filters {
		switch key {
		case "repository":
			if !matchesFilter(repositoryOf(doc), expected) {
				return false
			}
		case "document_id":
			if !matchesFilter(documentIDOf(doc), expected) {
				return false
			}
		default:
			actual, exists := doc.Metadata[key]
			if !exists || !matchesFilter(actual, expected) {
				return false
			}
		}
	}
	return true
}

func repositoryOf(doc Document) string {
	if v, ok := doc.Metadata["repository"].(string); ok {
		return v
	}
	return ""
}

func documentIDOf(doc Document) string {
	if v, ok := doc.Metadata["document_id"].(string); ok {
		return v
	}
	return ""
}

// FilterSummary renders a filter map for logging/error messages without
// leaking full document payloads.
func FilterSummary(filters map[string]interface{}) string {
	return fmt.Sprintf("%d predicate(s)", len(filters))
}
