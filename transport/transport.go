// Package transport performs one HTTP request per call and hands back the
// raw outcome. Responses are kept in the shared response cache and every
// cached body is revalidated with the origin (If-None-Match /
// If-Modified-Since) before it is trusted; a 304 serves the cached body.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/gregjones/httpcache"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/photofeed/cache"
)

const (
	DefaultRequestTimeout  = 10 * time.Second
	DefaultResourceTimeout = 60 * time.Second
	DefaultUserAgent       = "photofeed/0.1"
)

// Response is a successful HTTP exchange.
type Response struct {
	StatusCode int
	Body       []byte
	// Revalidated is true when the origin answered 304 and Body came from
	// the cache.
	Revalidated bool
}

// Transport issues requests against one base URL.
type Transport struct {
	base *url.URL
	http *http.Client
	hc   httpcache.Cache

	network         http.RoundTripper
	requestTimeout  time.Duration
	resourceTimeout time.Duration
	userAgent       string
	log             zerolog.Logger
}

type Option func(*Transport)

// WithRoundTripper replaces the network round tripper. The request
// timeout is then the round tripper's own business.
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(t *Transport) { t.network = rt }
}

// WithRequestTimeout bounds the time to the first response byte.
func WithRequestTimeout(d time.Duration) Option {
	return func(t *Transport) { t.requestTimeout = d }
}

// WithResourceTimeout bounds the whole exchange including the body.
func WithResourceTimeout(d time.Duration) Option {
	return func(t *Transport) { t.resourceTimeout = d }
}

func WithUserAgent(ua string) Option {
	return func(t *Transport) { t.userAgent = ua }
}

func WithLogger(l zerolog.Logger) Option {
	return func(t *Transport) { t.log = l }
}

// New builds a Transport for baseURL that keeps responses in store.
func New(baseURL string, store cache.Cache, opts ...Option) (*Transport, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("transport: base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("transport: base URL %q is not absolute", baseURL)
	}
	if store == nil {
		return nil, errors.New("transport: cache required")
	}
	t := &Transport{
		base:            u,
		hc:              cache.NewHTTPCache(store),
		requestTimeout:  DefaultRequestTimeout,
		resourceTimeout: DefaultResourceTimeout,
		userAgent:       DefaultUserAgent,
		log:             zerolog.Nop(),
	}
	for _, o := range opts {
		o(t)
	}

	network := t.network
	if network == nil {
		ht := http.DefaultTransport.(*http.Transport).Clone()
		ht.ResponseHeaderTimeout = t.requestTimeout
		network = ht
	}
	ct := httpcache.NewTransport(t.hc)
	ct.Transport = &revalidating{next: network}
	t.http = &http.Client{Transport: ct, Timeout: t.resourceTimeout}
	return t, nil
}

// BaseURL returns a copy of the base URL.
func (t *Transport) BaseURL() *url.URL {
	u := *t.base
	return &u
}

// Do performs r. Any 2xx (or a 304 answered from the cache) is a
// Response; other statuses are a *StatusError. Timeouts wrap ErrTimeout,
// cancellation wraps ErrCanceled, other network errors are returned as is.
func (t *Transport) Do(ctx context.Context, r Request) (*Response, error) {
	req, err := t.newRequest(ctx, r)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	req.Header.Set("X-Request-ID", id)

	start := time.Now()
	resp, err := t.http.Do(req)
	if err != nil {
		err = classify(err)
		t.log.Debug().Err(err).Str("request_id", id).Str("method", req.Method).
			Str("url", req.URL.String()).Dur("duration", time.Since(start)).Msg("request failed")
		return nil, err
	}
	defer resp.Body.Close()

	// reading to EOF is what lets the cache keep the response
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(err)
	}
	revalidated := resp.Header.Get(httpcache.XFromCache) == "1"

	t.log.Debug().Str("request_id", id).Str("method", req.Method).Str("url", req.URL.String()).
		Int("status", resp.StatusCode).Bool("revalidated", revalidated).Int("bytes", len(body)).
		Dur("duration", time.Since(start)).Msg("request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Method: req.Method,
			URL:    req.URL.String(),
			Code:   resp.StatusCode,
			Status: resp.Status,
			Body:   body,
		}
	}
	return &Response{StatusCode: resp.StatusCode, Body: body, Revalidated: revalidated}, nil
}

// Cached returns the body of the last successful response stored for r
// without touching the network.
func (t *Transport) Cached(r Request) ([]byte, bool) {
	req, err := t.newRequest(context.Background(), r)
	if err != nil {
		return nil, false
	}
	resp, err := httpcache.CachedResponse(t.hc, req)
	if err != nil || resp == nil {
		return nil, false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, false
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false
	}
	return body, true
}

// Key returns the cache fingerprint for r.
func (t *Transport) Key(r Request) (string, error) {
	u, err := r.URL(t.base)
	if err != nil {
		return "", err
	}
	return cache.KeyFor(r.method(), u.String()), nil
}

func (t *Transport) newRequest(ctx context.Context, r Request) (*http.Request, error) {
	u, err := r.URL(t.base)
	if err != nil {
		return nil, err
	}
	method := r.method()

	var body io.Reader
	if r.Body != nil && method != http.MethodGet && method != http.MethodHead {
		b, err := json.Marshal(r.Body)
		if err != nil {
			return nil, &RequestError{Op: "encode", Err: err}
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, &RequestError{Op: "build", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", t.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// revalidating sits between the cache and the network. Successful and
// not-modified responses are marked no-cache so the cache always asks the
// origin before reusing them; anything else is marked no-store so an
// error never replaces the last good response.
type revalidating struct {
	next http.RoundTripper
}

func (rt *revalidating) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := rt.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusNotModified,
		resp.StatusCode >= 200 && resp.StatusCode <= 299:
		resp.Header.Set("Cache-Control", "no-cache")
	default:
		resp.Header.Set("Cache-Control", "no-store")
	}
	return resp, nil
}
