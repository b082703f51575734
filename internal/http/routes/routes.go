package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/briangreenhill/photofeed/client"
	"github.com/briangreenhill/photofeed/feed"
	"github.com/briangreenhill/photofeed/gettable"
	"github.com/briangreenhill/photofeed/internal/jobs"
	"github.com/briangreenhill/photofeed/internal/store"
)

// StaleNotice is shown when the feed could not be refreshed and the last
// cached copy is served instead.
const StaleNotice = "Could not refresh the feed. Showing the last saved copy."

// FeedSource is the feed capability plus offline access to the last
// stored collection.
type FeedSource = gettable.Cached[feed.Item]

// SnapshotReader reads the persisted feed.
type SnapshotReader interface {
	LatestFeed(ctx context.Context) (store.Snapshot, bool, error)
}

type Server struct {
	Router    *chi.Mux
	Feed      FeedSource
	Queue     jobs.Enqueuer
	Snapshots SnapshotReader
}

type ServerOptions struct {
	Feed FeedSource
	// Queue and Snapshots are optional; their endpoints answer 503 without
	// them.
	Queue     jobs.Enqueuer
	Snapshots SnapshotReader
}

// FeedResponse is the body of the feed endpoints.
type FeedResponse struct {
	Items  []feed.Item `json:"items"`
	Stale  bool        `json:"stale"`
	Notice string      `json:"notice,omitempty"`
	// FetchedAt is set for stored snapshots.
	FetchedAt *time.Time `json:"fetched_at,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func New(opts ServerOptions) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	s := &Server{Router: r, Feed: opts.Feed, Queue: opts.Queue, Snapshots: opts.Snapshots}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("write health check response")
		}
	})

	r.Route("/feed", func(fr chi.Router) {
		fr.Get("/", s.handleFeed)
		fr.Get("/cached", s.handleCached)
		fr.Get("/one", s.handleOne)
		fr.Post("/refresh", s.handleRefresh)
		fr.Get("/snapshot", s.handleSnapshot)
	})

	return s
}

// Handler wraps the router with request logging.
func (s *Server) Handler(logger zerolog.Logger) http.Handler {
	h := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	})(s.Router)
	h = hlog.RequestIDHandler("req_id", "X-Request-Id")(h)
	return hlog.NewHandler(logger)(h)
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	res := <-s.Feed.GetMany(r.Context())
	if res.Err == nil {
		writeJSON(w, r, http.StatusOK, FeedResponse{Items: res.Value})
		return
	}

	hlog.FromRequest(r).Warn().Err(res.Err).Msg("feed fetch failed")
	if items, ok := s.Feed.CachedOnly(); ok {
		writeJSON(w, r, http.StatusOK, FeedResponse{Items: items, Stale: true, Notice: StaleNotice})
		return
	}
	writeJSON(w, r, http.StatusBadGateway, errorResponse{Error: res.Err.Error()})
}

func (s *Server) handleCached(w http.ResponseWriter, r *http.Request) {
	items, ok := s.Feed.CachedOnly()
	if !ok {
		writeJSON(w, r, http.StatusNotFound, errorResponse{Error: "no cached feed"})
		return
	}
	writeJSON(w, r, http.StatusOK, FeedResponse{Items: items, Stale: true})
}

func (s *Server) handleOne(w http.ResponseWriter, r *http.Request) {
	res := <-s.Feed.GetOne(r.Context())
	switch {
	case errors.Is(res.Err, client.ErrUnsupported):
		writeJSON(w, r, http.StatusNotImplemented, errorResponse{Error: res.Err.Error()})
	case res.Err != nil:
		hlog.FromRequest(r).Warn().Err(res.Err).Msg("item fetch failed")
		writeJSON(w, r, http.StatusBadGateway, errorResponse{Error: res.Err.Error()})
	default:
		writeJSON(w, r, http.StatusOK, res.Value)
	}
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.Queue == nil {
		writeJSON(w, r, http.StatusServiceUnavailable, errorResponse{Error: "background refresh not configured"})
		return
	}
	task, err := jobs.NewRefreshTask("api", time.Now())
	if err != nil {
		writeJSON(w, r, http.StatusInternalServerError, errorResponse{Error: "failed to build refresh task"})
		return
	}
	info, err := s.Queue.EnqueueContext(r.Context(), task)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("enqueue refresh")
		writeJSON(w, r, http.StatusInternalServerError, errorResponse{Error: "failed to queue refresh"})
		return
	}
	hlog.FromRequest(r).Info().Str("task_id", info.ID).Msg("refresh queued")
	writeJSON(w, r, http.StatusAccepted, map[string]string{"task_id": info.ID})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.Snapshots == nil {
		writeJSON(w, r, http.StatusServiceUnavailable, errorResponse{Error: "snapshot store not configured"})
		return
	}
	snap, ok, err := s.Snapshots.LatestFeed(r.Context())
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("read snapshot")
		writeJSON(w, r, http.StatusInternalServerError, errorResponse{Error: "failed to read snapshot"})
		return
	}
	if !ok {
		writeJSON(w, r, http.StatusNotFound, errorResponse{Error: "no snapshot stored"})
		return
	}
	at := snap.FetchedAt
	writeJSON(w, r, http.StatusOK, FeedResponse{Items: snap.Items, Stale: true, FetchedAt: &at})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("write response")
	}
}
