package client

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/photofeed/cache"
	"github.com/briangreenhill/photofeed/decode"
	"github.com/briangreenhill/photofeed/internal/twin"
	"github.com/briangreenhill/photofeed/transport"
)

type photo struct {
	ID    int
	Title string
}

var photoSchema = decode.NewSchema(
	decode.IntField("id", func(p *photo, v int) { p.ID = v }),
	decode.StringField("title", func(p *photo, v string) { p.Title = v }),
)

func newClient(t *testing.T, base string, cfg Config) *Client[photo] {
	t.Helper()
	tr, err := transport.New(base, cache.NewMemory(1<<20))
	require.NoError(t, err)
	if cfg.ManyPath == "" {
		cfg.ManyPath = "photos"
	}
	c, err := New(tr, photoSchema, cfg)
	require.NoError(t, err)
	return c
}

func TestNewValidates(t *testing.T) {
	_, err := New[photo](nil, photoSchema, Config{ManyPath: "photos"})
	assert.Error(t, err)

	tr, err := transport.New("http://example.com", cache.NewMemory(1024))
	require.NoError(t, err)
	_, err = New(tr, photoSchema, Config{})
	assert.Error(t, err)
}

func TestGetManyDeliversExactlyOnce(t *testing.T) {
	origin := twin.New(twin.Items(3))
	srv := origin.Serve()
	defer srv.Close()
	c := newClient(t, srv.URL, Config{})

	ch := c.GetMany(context.Background())
	res, ok := <-ch
	require.True(t, ok)
	require.NoError(t, res.Err)
	require.Len(t, res.Value, 3)
	assert.Equal(t, 1, res.Value[0].ID)
	assert.Equal(t, 3, res.Value[2].ID)

	_, ok = <-ch
	assert.False(t, ok)
}

func TestGetManyDropsInvalidElements(t *testing.T) {
	origin := twin.New(nil)
	origin.SetBody([]byte(`[{"id":1,"title":"a"},{"id":"x","title":"b"},7,{"title":"c"},{"id":4,"title":"d"}]`))
	srv := origin.Serve()
	defer srv.Close()
	c := newClient(t, srv.URL, Config{})

	res := <-c.GetMany(context.Background())
	require.NoError(t, res.Err)
	assert.Equal(t, []photo{{1, "a"}, {4, "d"}}, res.Value)
}

func TestGetManyStructuralErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
		want error
	}{
		{"empty", "", decode.ErrMissingData},
		{"not json", "<html>", decode.ErrInvalidData},
		{"object", `{"id":1}`, decode.ErrInvalidShape},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			origin := twin.New(nil)
			origin.SetBody([]byte(tc.body))
			srv := origin.Serve()
			defer srv.Close()
			c := newClient(t, srv.URL, Config{})

			res := <-c.GetMany(context.Background())
			assert.ErrorIs(t, res.Err, tc.want)
		})
	}
}

func TestGetManyEmptyListIsPresent(t *testing.T) {
	origin := twin.New(nil)
	origin.SetBody([]byte(`[]`))
	srv := origin.Serve()
	defer srv.Close()
	c := newClient(t, srv.URL, Config{})

	res := <-c.GetMany(context.Background())
	require.NoError(t, res.Err)
	assert.NotNil(t, res.Value)
	assert.Empty(t, res.Value)

	cached, ok := c.CachedOnly()
	assert.True(t, ok)
	assert.NotNil(t, cached)
}

func TestGetManyStatusError(t *testing.T) {
	origin := twin.New(twin.Items(1))
	origin.SetStatus(http.StatusServiceUnavailable)
	srv := origin.Serve()
	defer srv.Close()
	c := newClient(t, srv.URL, Config{})

	ch := c.GetMany(context.Background())
	res, ok := <-ch
	require.True(t, ok)
	var se *transport.StatusError
	require.ErrorAs(t, res.Err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)

	_, ok = <-ch
	assert.False(t, ok, "failure delivered once, then closed")
}

func TestGetOne(t *testing.T) {
	origin := twin.New(twin.Items(3))
	srv := origin.Serve()
	defer srv.Close()

	c := newClient(t, srv.URL, Config{OnePath: "photos/2"})
	res := <-c.GetOne(context.Background())
	require.NoError(t, res.Err)
	assert.Equal(t, 2, res.Value.ID)

	missing := newClient(t, srv.URL, Config{OnePath: "photos/99"})
	ch := missing.GetOne(context.Background())
	res, ok := <-ch
	require.True(t, ok)
	var se *transport.StatusError
	assert.ErrorAs(t, res.Err, &se)

	_, ok = <-ch
	assert.False(t, ok, "failure delivered once, then closed")
}

func TestGetOneUnsupported(t *testing.T) {
	origin := twin.New(twin.Items(1))
	srv := origin.Serve()
	defer srv.Close()
	c := newClient(t, srv.URL, Config{})

	ch := c.GetOne(context.Background())
	res := <-ch
	assert.ErrorIs(t, res.Err, ErrUnsupported)
	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, int64(0), origin.Hits())
}

func TestCachedOnlyAfterOriginGone(t *testing.T) {
	origin := twin.New(twin.Items(2))
	srv := origin.Serve()
	c := newClient(t, srv.URL, Config{})

	_, ok := c.CachedOnly()
	assert.False(t, ok)

	res := <-c.GetMany(context.Background())
	require.NoError(t, res.Err)
	srv.Close()

	cached, ok := c.CachedOnly()
	require.True(t, ok)
	assert.Equal(t, res.Value, cached)

	failed := <-c.GetMany(context.Background())
	assert.Error(t, failed.Err)
	cached, ok = c.CachedOnly()
	require.True(t, ok)
	assert.Len(t, cached, 2)
}

func TestCanceledStillResolves(t *testing.T) {
	origin := twin.New(twin.Items(1))
	origin.SetDelay(time.Second)
	srv := origin.Serve()
	defer srv.Close()
	c := newClient(t, srv.URL, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	ch := c.GetMany(ctx)
	cancel()

	select {
	case res := <-ch:
		assert.ErrorIs(t, res.Err, transport.ErrCanceled)
	case <-time.After(2 * time.Second):
		t.Fatal("result never delivered")
	}
}

func TestConcurrentCallsAreNotMerged(t *testing.T) {
	origin := twin.New(twin.Items(2))
	origin.SetDelay(50 * time.Millisecond)
	srv := origin.Serve()
	defer srv.Close()
	c := newClient(t, srv.URL, Config{MaxConcurrent: 2})

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := <-c.GetMany(context.Background())
			assert.NoError(t, res.Err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(2), origin.Hits())
}

func TestSemaphoreBoundsInFlight(t *testing.T) {
	origin := twin.New(twin.Items(1))
	origin.SetDelay(100 * time.Millisecond)
	srv := origin.Serve()
	defer srv.Close()
	c := newClient(t, srv.URL, Config{MaxConcurrent: 1})

	first := c.GetMany(context.Background())
	// give the first call time to take the only slot
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	res := <-c.GetMany(ctx)
	assert.ErrorIs(t, res.Err, transport.ErrTimeout)

	assert.NoError(t, (<-first).Err)
}
