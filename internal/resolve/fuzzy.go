// Package resolve provides fuzzy name-to-ID matching so commands can take
// a contact name or phone number where a thread id is expected.
package resolve

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Named represents any resource with an identifier and a display name.
type Named struct {
	ID   string
	Name string
}

// Match is a fuzzy match result with score.
type Match struct {
	ID    string
	Name  string
	Score int
}

var (
	ErrEmptyQuery = errors.New("empty search query")
	ErrEmptyItems = errors.New("no items to match against")
)

// AmbiguousError indicates multiple candidates matched equally well.
// Matches are sorted best-first.
type AmbiguousError struct {
	Query   string
	Matches []Match
}

func (e *AmbiguousError) Error() string {
	var b strings.Builder
	_, _ = fmt.Fprintf(&b, "ambiguous match for %q", e.Query)
	if len(e.Matches) > 0 {
		b.WriteString(", candidates:")
		for _, m := range e.Matches {
			_, _ = fmt.Fprintf(&b, "\n  %s: %s", m.ID, m.Name)
		}
	}
	return b.String()
}

type namedSourceLower []Named

func (s namedSourceLower) String(i int) string { return strings.ToLower(s[i].Name) }
func (s namedSourceLower) Len() int            { return len(s) }

const maxAmbiguousCandidates = 5

// FuzzyMatch finds the best matching item by name and returns its ID.
//
// Behavior:
//   - Empty query or empty items are errors.
//   - An exact case-insensitive match always wins over fuzzy results.
//   - Matching is case-insensitive.
//   - If the top two fuzzy results tie on score, returns *AmbiguousError.
func FuzzyMatch(query string, items []Named) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrEmptyQuery
	}
	if len(items) == 0 {
		return "", ErrEmptyItems
	}

	for _, item := range items {
		if strings.EqualFold(item.Name, query) {
			return item.ID, nil
		}
	}

	results := fuzzy.FindFrom(strings.ToLower(query), namedSourceLower(items))
	if len(results) == 0 {
		return "", fmt.Errorf("no match found for %q", query)
	}

	if len(results) > 1 && results[0].Score == results[1].Score {
		matches := make([]Match, 0, maxAmbiguousCandidates)
		for _, r := range results {
			matches = append(matches, Match{
				ID:    items[r.Index].ID,
				Name:  items[r.Index].Name,
				Score: r.Score,
			})
			if len(matches) == maxAmbiguousCandidates {
				break
			}
		}
		return "", &AmbiguousError{Query: query, Matches: matches}
	}

	return items[results[0].Index].ID, nil
}
