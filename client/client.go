// Package client binds a transport, a decode schema and a pair of resource
// paths into a typed Gettable.
package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/briangreenhill/photofeed/decode"
	"github.com/briangreenhill/photofeed/gettable"
	"github.com/briangreenhill/photofeed/transport"
)

// DefaultMaxConcurrent bounds in-flight fetches per client.
const DefaultMaxConcurrent = 4

// ErrUnsupported is returned by GetOne when the client has no single
// resource path.
var ErrUnsupported = errors.New("client: operation not supported")

// Config describes the resources a client reads.
type Config struct {
	// ManyPath is the collection resource, relative to the transport base.
	ManyPath string
	// OnePath is the single-entity resource. Empty disables GetOne.
	OnePath       string
	MaxConcurrent int64
	Logger        zerolog.Logger
}

// Client fetches T values. Each call issues its own request; concurrent
// identical calls are not merged.
type Client[T any] struct {
	tr     *transport.Transport
	schema decode.Schema[T]
	cfg    Config
	sem    *semaphore.Weighted
	log    zerolog.Logger
}

var _ gettable.Gettable[struct{}] = (*Client[struct{}])(nil)

// New builds a Client.
func New[T any](tr *transport.Transport, schema decode.Schema[T], cfg Config) (*Client[T], error) {
	if tr == nil {
		return nil, errors.New("client: transport required")
	}
	if cfg.ManyPath == "" {
		return nil, errors.New("client: collection path required")
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	return &Client[T]{
		tr:     tr,
		schema: schema,
		cfg:    cfg,
		sem:    semaphore.NewWeighted(cfg.MaxConcurrent),
		log:    cfg.Logger.With().Str("component", "client").Str("path", cfg.ManyPath).Logger(),
	}, nil
}

// GetOne fetches the single resource and decodes it strictly.
func (c *Client[T]) GetOne(ctx context.Context) <-chan gettable.Result[T] {
	if c.cfg.OnePath == "" {
		return gettable.Resolve(gettable.Failure[T](ErrUnsupported))
	}
	return run(ctx, c, transport.Get(c.cfg.OnePath), func(body []byte) (T, error) {
		return decode.DecodeOne(body, c.schema)
	})
}

// GetMany fetches the collection. Elements the schema rejects are dropped.
func (c *Client[T]) GetMany(ctx context.Context) <-chan gettable.Result[[]T] {
	return run(ctx, c, transport.Get(c.cfg.ManyPath), c.decodeMany)
}

// CachedOnly decodes the last stored collection response without network
// access. It reports false when nothing is stored or the stored body no
// longer decodes.
func (c *Client[T]) CachedOnly() ([]T, bool) {
	body, ok := c.tr.Cached(transport.Get(c.cfg.ManyPath))
	if !ok {
		return nil, false
	}
	items, err := c.decodeMany(body)
	if err != nil {
		c.log.Warn().Err(err).Msg("cached body no longer decodes")
		return nil, false
	}
	return items, true
}

func (c *Client[T]) decodeMany(body []byte) ([]T, error) {
	items, dropped, err := decode.DecodeManyDropped(body, c.schema)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		c.log.Debug().Int("dropped", dropped).Int("kept", len(items)).Msg("dropped invalid elements")
	}
	return items, nil
}

func run[T, V any](ctx context.Context, c *Client[T], req transport.Request, dec func([]byte) (V, error)) <-chan gettable.Result[V] {
	out := make(chan gettable.Result[V], 1)
	go func() {
		defer close(out)
		out <- fetch(ctx, c, req, dec)
	}()
	return out
}

func fetch[T, V any](ctx context.Context, c *Client[T], req transport.Request, dec func([]byte) (V, error)) gettable.Result[V] {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return gettable.Failure[V](fmt.Errorf("%w: %w", transport.ErrTimeout, err))
		}
		return gettable.Failure[V](fmt.Errorf("%w: %w", transport.ErrCanceled, err))
	}
	defer c.sem.Release(1)

	resp, err := c.tr.Do(ctx, req)
	if err != nil {
		c.log.Debug().Err(err).Str("resource", req.Path).Msg("fetch failed")
		return gettable.Failure[V](err)
	}
	v, err := dec(resp.Body)
	if err != nil {
		return gettable.Failure[V](err)
	}
	return gettable.Success(v)
}
