package resourcemanager

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalforge/evalforge/internal/tracksrv/db/models"
	"github.com/evalforge/evalforge/internal/tracksrv/trackcommon"
)

func TestParseSearch(t *testing.T) {
	spec, apperr := specForKind(trackcommon.ResourceTypeQueue)
	require.Nil(t, apperr)

	tests := []struct {
		name     string
		query    string
		expected []models.SearchClause
		wantErr  error
	}{
		{
			name:     "empty query",
			query:    "",
			expected: nil,
		},
		{
			name:     "whitespace only",
			query:    "   ",
			expected: nil,
		},
		{
			name:  "bare term matches primary field as substring",
			query: "tensorflow",
			expected: []models.SearchClause{
				{Field: "name", Pattern: "%tensorflow%"},
			},
		},
		{
			name:  "field term with wildcard",
			query: "description:gpu*",
			expected: []models.SearchClause{
				{Field: "description", Pattern: "gpu%"},
			},
		},
		{
			name:  "multiple terms combine",
			query: "name:tensorflow* description:cpu",
			expected: []models.SearchClause{
				{Field: "name", Pattern: "tensorflow%"},
				{Field: "description", Pattern: "%cpu%"},
			},
		},
		{
			name:  "literal percent and underscore are escaped",
			query: "name:50%_done",
			expected: []models.SearchClause{
				{Field: "name", Pattern: "%50\\%\\_done%"},
			},
		},
		{
			name:    "unknown field",
			query:   "owner:alice",
			wantErr: ErrInvalidSearch,
		},
		{
			name:    "empty pattern",
			query:   "name:",
			wantErr: ErrInvalidSearch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clauses, err := parseSearch(spec, tt.query)
			if tt.wantErr != nil {
				require.NotNil(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, tt.expected, clauses)
		})
	}
}

func TestParseSearchUnsearchableKind(t *testing.T) {
	spec, apperr := specForKind(trackcommon.ResourceTypePluginFile)
	require.Nil(t, apperr)

	// Plugin files declare no searchable fields.
	clauses, err := parseSearch(spec, "")
	assert.Nil(t, err)
	assert.Nil(t, clauses)

	_, err = parseSearch(spec, "anything")
	require.NotNil(t, err)
	assert.ErrorIs(t, err, ErrSearchNotImplemented)
	assert.Equal(t, http.StatusNotImplemented, err.StatusCode())
}

func TestParseSearchExpression(t *testing.T) {
	clauses, err := ParseSearchExpression([]string{"username", "email"}, "alice email:*@example.com")
	require.Nil(t, err)
	assert.Equal(t, []models.SearchClause{
		{Field: "username", Pattern: "%alice%"},
		{Field: "email", Pattern: "%@example.com"},
	}, clauses)
}

func TestToLikePattern(t *testing.T) {
	tests := []struct {
		pattern  string
		expected string
	}{
		{"plain", "%plain%"},
		{"pre*", "pre%"},
		{"*suf", "%suf"},
		{"a*b*c", "a%b%c"},
		{"100%", "%100\\%%"},
		{"under_score", "%under\\_score%"},
		{"back\\slash", "%back\\\\slash%"},
		{"*", "%"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, toLikePattern(tt.pattern), "pattern %q", tt.pattern)
	}
}
