// Package gettable defines the capability callers program against to
// fetch one entity or a collection of entities, independent of where the
// data comes from.
package gettable

import (
	"context"
	"sort"
	"sync"
)

// Result is the outcome of an asynchronous fetch: either Value or Err.
type Result[T any] struct {
	Value T
	Err   error
}

// Ok reports whether the result is a success.
func (r Result[T]) Ok() bool { return r.Err == nil }

// Success wraps v.
func Success[T any](v T) Result[T] { return Result[T]{Value: v} }

// Failure wraps err.
func Failure[T any](err error) Result[T] { return Result[T]{Err: err} }

// Gettable fetches a single T or a collection of T. Both methods return
// immediately; the returned channel receives exactly one Result and is
// then closed. A canceled context still resolves, with a failure.
type Gettable[T any] interface {
	GetOne(ctx context.Context) <-chan Result[T]
	GetMany(ctx context.Context) <-chan Result[[]T]
}

// Cached is a Gettable that can also answer from its last stored
// collection without network access.
type Cached[T any] interface {
	Gettable[T]
	CachedOnly() ([]T, bool)
}

// Resolve sends r on a fresh channel that is already closed behind it.
func Resolve[T any](r Result[T]) <-chan Result[T] {
	ch := make(chan Result[T], 1)
	ch <- r
	close(ch)
	return ch
}

// Registry holds named sources of the same entity type.
type Registry[T any] struct {
	mu      sync.RWMutex
	sources map[string]Gettable[T]
}

// NewRegistry creates an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{sources: make(map[string]Gettable[T])}
}

// Register adds or replaces the source under name.
func (r *Registry[T]) Register(name string, g Gettable[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[name] = g
}

// Get retrieves a source by name.
func (r *Registry[T]) Get(name string) (Gettable[T], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.sources[name]
	return g, ok
}

// List returns the registered names, sorted.
func (r *Registry[T]) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
