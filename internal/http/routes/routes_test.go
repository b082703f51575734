package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/photofeed/client"
	"github.com/briangreenhill/photofeed/feed"
	"github.com/briangreenhill/photofeed/gettable"
	"github.com/briangreenhill/photofeed/gettable/gettabletest"
	"github.com/briangreenhill/photofeed/internal/jobs"
	"github.com/briangreenhill/photofeed/internal/store"
)

var sample = []feed.Item{
	{AlbumID: 1, ID: 1, Title: "one", PhotoURLString: "https://x/1", ThumbnailURLString: "https://x/t1"},
	{AlbumID: 1, ID: 2, Title: "two", PhotoURLString: "https://x/2", ThumbnailURLString: "https://x/t2"},
}

type fakeQueue struct {
	tasks []*asynq.Task
	err   error
}

func (q *fakeQueue) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type()}, nil
}

type fakeSnapshots struct {
	snap store.Snapshot
	ok   bool
	err  error
}

func (f fakeSnapshots) LatestFeed(context.Context) (store.Snapshot, bool, error) {
	return f.snap, f.ok, f.err
}

func do(t *testing.T, s *Server, method, path string) (*httptest.ResponseRecorder, FeedResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	var body FeedResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestHealthz(t *testing.T) {
	s := New(ServerOptions{Feed: gettabletest.NewFake(sample)})
	rec, _ := do(t, s, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestFeedFresh(t *testing.T) {
	fake := gettabletest.NewFake(sample)
	s := New(ServerOptions{Feed: fake})

	rec, body := do(t, s, http.MethodGet, "/feed")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, sample, body.Items)
	assert.False(t, body.Stale)
	assert.Empty(t, body.Notice)
	assert.True(t, fake.GetManyCalled())
}

func TestFeedFallsBackToCache(t *testing.T) {
	fake := gettabletest.NewFake[feed.Item](nil)
	fake.ManyResult = gettable.Failure[[]feed.Item](errors.New("offline"))
	fake.Cached = sample[:1]
	s := New(ServerOptions{Feed: fake})

	rec, body := do(t, s, http.MethodGet, "/feed")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Stale)
	assert.Equal(t, StaleNotice, body.Notice)
	assert.Equal(t, sample[:1], body.Items)
}

func TestFeedFailsWithoutCache(t *testing.T) {
	fake := gettabletest.NewFake[feed.Item](nil)
	fake.ManyResult = gettable.Failure[[]feed.Item](errors.New("offline"))
	s := New(ServerOptions{Feed: fake})

	rec, _ := do(t, s, http.MethodGet, "/feed")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "offline")
}

func TestFeedCached(t *testing.T) {
	fake := gettabletest.NewFake(sample)
	s := New(ServerOptions{Feed: fake})

	rec, _ := do(t, s, http.MethodGet, "/feed/cached")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	fake.Cached = []feed.Item{}
	rec, body := do(t, s, http.MethodGet, "/feed/cached")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body.Items)
	assert.False(t, fake.GetManyCalled(), "cached endpoint never fetches")
}

func TestFeedOne(t *testing.T) {
	fake := gettabletest.NewFake(sample)
	s := New(ServerOptions{Feed: fake})

	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/feed/one", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var item feed.Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	assert.Equal(t, sample[0], item)

	fake.OneResult = gettable.Failure[feed.Item](client.ErrUnsupported)
	rec, _ = do(t, s, http.MethodGet, "/feed/one")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	fake.OneResult = gettable.Failure[feed.Item](errors.New("boom"))
	rec, _ = do(t, s, http.MethodGet, "/feed/one")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestRefresh(t *testing.T) {
	q := &fakeQueue{}
	s := New(ServerOptions{Feed: gettabletest.NewFake(sample), Queue: q})

	rec, _ := do(t, s, http.MethodPost, "/feed/refresh")
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, q.tasks, 1)
	assert.Equal(t, jobs.TaskRefreshFeed, q.tasks[0].Type())
	assert.Contains(t, rec.Body.String(), "task-1")

	q.err = errors.New("redis down")
	rec, _ = do(t, s, http.MethodPost, "/feed/refresh")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	bare := New(ServerOptions{Feed: gettabletest.NewFake(sample)})
	rec, _ = do(t, bare, http.MethodPost, "/feed/refresh")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSnapshot(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	s := New(ServerOptions{
		Feed:      gettabletest.NewFake(sample),
		Snapshots: fakeSnapshots{snap: store.Snapshot{Items: sample, FetchedAt: at}, ok: true},
	})
	rec, body := do(t, s, http.MethodGet, "/feed/snapshot")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, sample, body.Items)
	require.NotNil(t, body.FetchedAt)
	assert.True(t, at.Equal(*body.FetchedAt))

	s.Snapshots = fakeSnapshots{}
	rec, _ = do(t, s, http.MethodGet, "/feed/snapshot")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s.Snapshots = fakeSnapshots{err: errors.New("db")}
	rec, _ = do(t, s, http.MethodGet, "/feed/snapshot")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	s.Snapshots = nil
	rec, _ = do(t, s, http.MethodGet, "/feed/snapshot")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandlerLogsRequests(t *testing.T) {
	var buf bytes.Buffer
	s := New(ServerOptions{Feed: gettabletest.NewFake(sample)})
	h := s.Handler(zerolog.New(&buf))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	assert.Contains(t, buf.String(), `"status":200`)
	assert.Contains(t, buf.String(), `"req_id"`)
}
