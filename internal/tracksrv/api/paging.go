package api

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/evalforge/evalforge/internal/common/apperrors"
	"github.com/evalforge/evalforge/internal/common/httpx"
)

const (
	defaultPageLength = 10
	maxPageLength     = 100
)

// pageParams is the paging window requested by a collection GET.
type pageParams struct {
	Index      int
	PageLength int
}

// parsePageParams reads index and pageLength from the query string, applying
// defaults and clamping the page length.
func parsePageParams(r *http.Request) (pageParams, apperrors.Error) {
	p := pageParams{Index: 0, PageLength: defaultPageLength}
	q := r.URL.Query()
	if v := q.Get("index"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, apperrors.New("index must be a non-negative integer").SetStatusCode(http.StatusBadRequest)
		}
		p.Index = n
	}
	if v := q.Get("pageLength"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return p, apperrors.New("pageLength must be a positive integer").SetStatusCode(http.StatusBadRequest)
		}
		p.PageLength = n
	}
	if p.PageLength > maxPageLength {
		p.PageLength = maxPageLength
	}
	return p, nil
}

// pageEnvelope is the standard collection page shape. First always points at
// the initial page; Prev and Next are present only when those pages exist.
type pageEnvelope struct {
	Index           int    `json:"index"`
	PageLength      int    `json:"pageLength"`
	TotalNumResults int    `json:"totalNumResults"`
	IsComplete      bool   `json:"isComplete"`
	First           string `json:"first"`
	Prev            string `json:"prev,omitempty"`
	Next            string `json:"next,omitempty"`
	Data            any    `json:"data"`
}

// newPageEnvelope assembles the paging envelope for a collection response.
// Reference URLs repeat the request's filter parameters with the index
// adjusted.
func newPageEnvelope(r *http.Request, p pageParams, total int, data any) *pageEnvelope {
	env := &pageEnvelope{
		Index:           p.Index,
		PageLength:      p.PageLength,
		TotalNumResults: total,
		IsComplete:      p.Index+p.PageLength >= total,
		First:           pageURL(r, 0, p.PageLength),
		Data:            data,
	}
	if p.Index > 0 {
		prev := p.Index - p.PageLength
		if prev < 0 {
			prev = 0
		}
		env.Prev = pageURL(r, prev, p.PageLength)
	}
	if !env.IsComplete {
		env.Next = pageURL(r, p.Index+p.PageLength, p.PageLength)
	}
	return env
}

func pageURL(r *http.Request, index, pageLength int) string {
	q := url.Values{}
	for k, vs := range r.URL.Query() {
		if k == "index" || k == "pageLength" {
			continue
		}
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("index", strconv.Itoa(index))
	q.Set("pageLength", strconv.Itoa(pageLength))
	return r.URL.Path + "?" + q.Encode()
}

// sendPage is shared by all collection handlers.
func sendPage(r *http.Request, p pageParams, total int, data any) (*httpx.Response, error) {
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   newPageEnvelope(r, p, total, data),
	}, nil
}
