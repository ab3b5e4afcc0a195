package resourcemanager

import (
	"strings"

	"github.com/evalforge/evalforge/internal/common/apperrors"
	"github.com/evalforge/evalforge/internal/tracksrv/db/models"
)

// parseSearch translates a search expression into SQL LIKE clauses. The
// grammar is whitespace-separated terms combined with AND; each term is either
// `field:pattern` or a bare pattern matched against the primary field. `*` is the
// wildcard; literal `%` and `_` are escaped so they match themselves.
//
// Kinds that declare no searchable fields reject any non-empty expression with
// ErrSearchNotImplemented.
func parseSearch(spec kindSpec, query string) ([]models.SearchClause, apperrors.Error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if len(spec.searchFields) == 0 {
		return nil, ErrSearchNotImplemented
	}

	var clauses []models.SearchClause
	for _, term := range strings.Fields(query) {
		// A bare term searches the kind's primary field.
		field := spec.searchFields[0]
		pattern := term
		if i := strings.Index(term, ":"); i >= 0 {
			field = term[:i]
			pattern = term[i+1:]
		}
		if pattern == "" {
			return nil, ErrInvalidSearch.Msg("empty pattern in term: " + term)
		}
		if !searchableField(spec, field) {
			return nil, ErrInvalidSearch.Msg("field is not searchable: " + field)
		}
		clauses = append(clauses, models.SearchClause{
			Field:   field,
			Pattern: toLikePattern(pattern),
		})
	}
	return clauses, nil
}

// ParseSearchExpression translates a search expression against an explicit
// field list. Collections outside the kind registry (users, groups) use this.
func ParseSearchExpression(fields []string, query string) ([]models.SearchClause, apperrors.Error) {
	return parseSearch(kindSpec{searchFields: fields}, query)
}

func searchableField(spec kindSpec, field string) bool {
	for _, f := range spec.searchFields {
		if f == field {
			return true
		}
	}
	return false
}

// toLikePattern converts the wildcard syntax to SQL LIKE. A pattern without
// any `*` matches as a substring.
func toLikePattern(pattern string) string {
	var b strings.Builder
	hasWildcard := strings.Contains(pattern, "*")
	if !hasWildcard {
		b.WriteByte('%')
	}
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteByte('%')
		case '%', '_', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	if !hasWildcard {
		b.WriteByte('%')
	}
	return b.String()
}
