package api

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePageParams(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected pageParams
		wantErr  bool
	}{
		{
			name:     "defaults",
			url:      "/v1/queues",
			expected: pageParams{Index: 0, PageLength: defaultPageLength},
		},
		{
			name:     "explicit window",
			url:      "/v1/queues?index=20&pageLength=5",
			expected: pageParams{Index: 20, PageLength: 5},
		},
		{
			name:     "page length clamped to maximum",
			url:      "/v1/queues?pageLength=1000",
			expected: pageParams{Index: 0, PageLength: maxPageLength},
		},
		{
			name:    "negative index",
			url:     "/v1/queues?index=-1",
			wantErr: true,
		},
		{
			name:    "zero page length",
			url:     "/v1/queues?pageLength=0",
			wantErr: true,
		},
		{
			name:    "non-numeric index",
			url:     "/v1/queues?index=abc",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.url, nil)
			p, err := parsePageParams(r)
			if tt.wantErr {
				require.NotNil(t, err)
				assert.Equal(t, 400, err.StatusCode())
				return
			}
			require.Nil(t, err)
			assert.Equal(t, tt.expected, p)
		})
	}
}

func TestNewPageEnvelope(t *testing.T) {
	t.Run("single complete page", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/v1/queues?index=0&pageLength=10", nil)
		env := newPageEnvelope(r, pageParams{Index: 0, PageLength: 10}, 3, []string{"a", "b", "c"})
		assert.True(t, env.IsComplete)
		assert.Equal(t, 3, env.TotalNumResults)
		assert.NotEmpty(t, env.First)
		assert.Empty(t, env.Prev)
		assert.Empty(t, env.Next)
	})

	t.Run("middle page has prev and next", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/v1/queues?index=10&pageLength=10", nil)
		env := newPageEnvelope(r, pageParams{Index: 10, PageLength: 10}, 35, nil)
		assert.False(t, env.IsComplete)
		assert.Equal(t, "/v1/queues?index=0&pageLength=10", env.First)
		assert.Equal(t, "/v1/queues?index=0&pageLength=10", env.Prev)
		assert.Equal(t, "/v1/queues?index=20&pageLength=10", env.Next)
	})

	t.Run("last page has prev only", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/v1/queues?index=30&pageLength=10", nil)
		env := newPageEnvelope(r, pageParams{Index: 30, PageLength: 10}, 35, nil)
		assert.True(t, env.IsComplete)
		assert.Equal(t, "/v1/queues?index=20&pageLength=10", env.Prev)
		assert.Empty(t, env.Next)
	})

	t.Run("filter parameters are preserved in links", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/v1/queues?search=tensorflow&index=0&pageLength=2", nil)
		env := newPageEnvelope(r, pageParams{Index: 0, PageLength: 2}, 5, nil)
		assert.Equal(t, "/v1/queues?index=2&pageLength=2&search=tensorflow", env.Next)
	})

	t.Run("short prev window floors at zero", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/v1/queues?index=3&pageLength=10", nil)
		env := newPageEnvelope(r, pageParams{Index: 3, PageLength: 10}, 35, nil)
		assert.Equal(t, "/v1/queues?index=0&pageLength=10", env.Prev)
	})
}
