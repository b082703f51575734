// Package twin provides a fake photo origin for tests and local runs. It
// serves /photos and /photos/{id} with strong ETags and honours
// If-None-Match with 304, and can be told to fail, stall or serve raw
// bytes.
package twin

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
)

// Photos is the fake origin.
type Photos struct {
	mu     sync.Mutex
	items  []map[string]any
	body   []byte
	status int
	delay  time.Duration
	etags  bool

	hits        atomic.Int64
	notModified atomic.Int64
	router      chi.Router
}

// New returns a twin serving items.
func New(items []map[string]any) *Photos {
	p := &Photos{etags: true}
	p.SetItems(items)

	r := chi.NewRouter()
	r.Get("/photos", p.handleList)
	r.Get("/photos/{id}", p.handleOne)
	p.router = r
	return p
}

// Item builds a well-formed photo object.
func Item(id int) map[string]any {
	return map[string]any{
		"albumId":      1 + (id-1)/50,
		"id":           id,
		"title":        fmt.Sprintf("photo %d", id),
		"url":          fmt.Sprintf("https://via.placeholder.com/600/%06x", id),
		"thumbnailUrl": fmt.Sprintf("https://via.placeholder.com/150/%06x", id),
	}
}

// Items builds n well-formed photo objects with ids 1..n.
func Items(n int) []map[string]any {
	out := make([]map[string]any, n)
	for i := range out {
		out[i] = Item(i + 1)
	}
	return out
}

// SetItems replaces the served collection.
func (p *Photos) SetItems(items []map[string]any) {
	b, _ := json.Marshal(items)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = items
	p.body = b
}

// SetBody serves raw bytes from /photos instead of the item list.
func (p *Photos) SetBody(b []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = nil
	p.body = b
}

// SetStatus forces every response to the given status. Zero restores
// normal behaviour.
func (p *Photos) SetStatus(code int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = code
}

// SetDelay stalls every response before headers are written.
func (p *Photos) SetDelay(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delay = d
}

// SetETags turns ETag emission on or off.
func (p *Photos) SetETags(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.etags = on
}

// Hits is the number of requests served.
func (p *Photos) Hits() int64 { return p.hits.Load() }

// NotModified is the number of 304 responses served.
func (p *Photos) NotModified() int64 { return p.notModified.Load() }

func (p *Photos) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.router.ServeHTTP(w, r)
}

// Serve starts an httptest server for the twin. Callers close it.
func (p *Photos) Serve() *httptest.Server {
	return httptest.NewServer(p)
}

func (p *Photos) handleList(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	body, status, delay, etags := p.body, p.status, p.delay, p.etags
	p.mu.Unlock()
	p.write(w, r, body, status, delay, etags)
}

func (p *Photos) handleOne(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}
	p.mu.Lock()
	var found map[string]any
	for _, it := range p.items {
		if v, ok := it["id"].(int); ok && v == id {
			found = it
			break
		}
	}
	status, delay, etags := p.status, p.delay, p.etags
	p.mu.Unlock()

	if found == nil && status == 0 {
		p.hits.Add(1)
		http.Error(w, "{}", http.StatusNotFound)
		return
	}
	body, _ := json.Marshal(found)
	p.write(w, r, body, status, delay, etags)
}

func (p *Photos) write(w http.ResponseWriter, r *http.Request, body []byte, status int, delay time.Duration, etags bool) {
	p.hits.Add(1)
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if status != 0 {
		http.Error(w, http.StatusText(status), status)
		return
	}
	if etags {
		sum := sha256.Sum256(body)
		etag := `"` + hex.EncodeToString(sum[:8]) + `"`
		w.Header().Set("ETag", etag)
		if r.Header.Get("If-None-Match") == etag {
			p.notModified.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(body)
}
