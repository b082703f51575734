// Package gettabletest provides a Gettable test double.
package gettabletest

import (
	"context"
	"sync"

	"github.com/briangreenhill/photofeed/gettable"
)

// Fake records which methods were called and replays programmed results.
type Fake[T any] struct {
	mu         sync.Mutex
	OneResult  gettable.Result[T]
	ManyResult gettable.Result[[]T]
	// Cached is what CachedOnly returns; nil means nothing cached.
	Cached []T

	oneCalls  int
	manyCalls int
}

// NewFake returns a Fake that answers GetMany with items and GetOne with
// the first item (or a zero T when items is empty).
func NewFake[T any](items []T) *Fake[T] {
	f := &Fake[T]{ManyResult: gettable.Success(items)}
	if len(items) > 0 {
		f.OneResult = gettable.Success(items[0])
	}
	return f
}

func (f *Fake[T]) GetOne(ctx context.Context) <-chan gettable.Result[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.oneCalls++
	return gettable.Resolve(f.OneResult)
}

func (f *Fake[T]) GetMany(ctx context.Context) <-chan gettable.Result[[]T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.manyCalls++
	return gettable.Resolve(f.ManyResult)
}

// CachedOnly replays Cached.
func (f *Fake[T]) CachedOnly() ([]T, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Cached, f.Cached != nil
}

// GetOneCalled reports whether GetOne was invoked.
func (f *Fake[T]) GetOneCalled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.oneCalls > 0
}

// GetManyCalled reports whether GetMany was invoked.
func (f *Fake[T]) GetManyCalled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.manyCalls > 0
}

// Calls returns the GetOne and GetMany invocation counts.
func (f *Fake[T]) Calls() (one, many int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.oneCalls, f.manyCalls
}

var _ gettable.Gettable[int] = (*Fake[int])(nil)
