// Package app wires configuration into the cache, transport and feed
// client shared by the executables.
package app

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/briangreenhill/photofeed/cache"
	"github.com/briangreenhill/photofeed/feed"
	"github.com/briangreenhill/photofeed/internal/config"
	"github.com/briangreenhill/photofeed/transport"
)

// Feed is a configured feed client and the cache behind it.
type Feed struct {
	Client    *feed.Client
	Transport *transport.Transport
	Cache     *cache.Tiered
}

// NewFeed builds the feed stack from cfg.
func NewFeed(cfg *config.Config, logger zerolog.Logger) (*Feed, error) {
	opts := cfg.CacheOptions()
	opts.Logger = &logger
	c, err := cache.New(opts)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	tr, err := transport.New(cfg.Feed.BaseURL, c,
		transport.WithRequestTimeout(cfg.HTTP.RequestTimeout),
		transport.WithResourceTimeout(cfg.HTTP.ResourceTimeout),
		transport.WithLogger(logger),
	)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	fc, err := feed.NewClient(tr, cfg.Feed.OnePath, cfg.HTTP.MaxConcurrent, logger)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	return &Feed{Client: fc, Transport: tr, Cache: c}, nil
}

// Close flushes and closes the cache.
func (f *Feed) Close() error {
	return f.Cache.Close()
}
