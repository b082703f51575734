package transport

import (
	"net/http"
	"net/url"
	"path"
	"strings"
)

// QueryItem is one query parameter. Order is preserved on the wire and in
// the cache key.
type QueryItem struct {
	Name  string
	Value string
}

// Request describes one HTTP call relative to the transport's base URL.
// It is a value: build it once and do not mutate it afterwards.
type Request struct {
	Method string
	Path   string
	Query  []QueryItem
	// Body is sent as JSON for methods other than GET and HEAD.
	Body map[string]any
}

// Get returns a GET descriptor for p.
func Get(p string, query ...QueryItem) Request {
	return Request{Method: http.MethodGet, Path: p, Query: query}
}

func (r Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(r.Method)
}

// URL resolves the descriptor against base.
func (r Request) URL(base *url.URL) (*url.URL, error) {
	if base == nil {
		return nil, &RequestError{Op: "resolve", Err: errNoBaseURL}
	}
	if strings.ContainsAny(r.Path, "?#") {
		return nil, &RequestError{Op: "resolve", Err: errBadPath}
	}
	u := *base
	u.Path = path.Join("/", u.Path, r.Path)
	u.RawPath = ""
	u.RawQuery = r.rawQuery()
	u.Fragment = ""
	return &u, nil
}

func (r Request) rawQuery() string {
	if len(r.Query) == 0 {
		return ""
	}
	parts := make([]string, 0, len(r.Query))
	for _, q := range r.Query {
		parts = append(parts, url.QueryEscape(q.Name)+"="+url.QueryEscape(q.Value))
	}
	return strings.Join(parts, "&")
}
