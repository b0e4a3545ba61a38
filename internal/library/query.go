package library

import (
	"strings"

	"github.com/chromox/api/internal/model"
)

// Criteria is the declarative input of the query engine: free-text
// search plus exact-match categorical filters, all conjunctive.
type Criteria struct {
	Search  string
	Filters map[string]string
}

// Query returns the subset of items matching the criteria. An empty
// search matches everything; a filter set to the "all" sentinel is
// disabled; a selected value on a filter the descriptor does not
// declare matches nothing rather than failing.
func Query[T any](items []T, d Descriptor[T], c Criteria) []T {
	q := strings.ToLower(strings.TrimSpace(c.Search))

	out := make([]T, 0, len(items))
	for _, item := range items {
		if q != "" && !matchesSearch(item, d, q) {
			continue
		}
		if !matchesFilters(item, d, c.Filters) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func matchesSearch[T any](item T, d Descriptor[T], q string) bool {
	for _, field := range d.SearchText(item) {
		if field == "" {
			continue
		}
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

func matchesFilters[T any](item T, d Descriptor[T], filters map[string]string) bool {
	for name, want := range filters {
		if want == "" || want == model.FilterAll {
			continue
		}
		derive, ok := d.Filters[name]
		if !ok {
			return false
		}
		if derive(item) != want {
			return false
		}
	}
	return true
}
