package gettable_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/photofeed/gettable"
	"github.com/briangreenhill/photofeed/gettable/gettabletest"
)

func TestNewRegistry(t *testing.T) {
	registry := gettable.NewRegistry[string]()
	require.NotNil(t, registry)
	assert.Empty(t, registry.List())
}

func TestRegisterAndGet(t *testing.T) {
	registry := gettable.NewRegistry[string]()
	registry.Register("photos", gettabletest.NewFake([]string{"a"}))
	registry.Register("albums", gettabletest.NewFake([]string{"b"}))

	assert.Equal(t, []string{"albums", "photos"}, registry.List())

	g, ok := registry.Get("photos")
	require.True(t, ok)
	res := <-g.GetMany(context.Background())
	require.True(t, res.Ok())
	assert.Equal(t, []string{"a"}, res.Value)

	_, ok = registry.Get("missing")
	assert.False(t, ok)
}

func TestRegisterReplaces(t *testing.T) {
	registry := gettable.NewRegistry[int]()
	registry.Register("x", gettabletest.NewFake([]int{1}))
	registry.Register("x", gettabletest.NewFake([]int{2}))

	g, _ := registry.Get("x")
	res := <-g.GetOne(context.Background())
	assert.Equal(t, 2, res.Value)
	assert.Len(t, registry.List(), 1)
}

func TestResolveDeliversOnceAndCloses(t *testing.T) {
	ch := gettable.Resolve(gettable.Failure[int](errors.New("boom")))
	res, ok := <-ch
	require.True(t, ok)
	assert.False(t, res.Ok())
	assert.EqualError(t, res.Err, "boom")

	_, ok = <-ch
	assert.False(t, ok, "channel closed after the single result")
}

func TestFakeRecordsCalls(t *testing.T) {
	fake := gettabletest.NewFake([]int{1, 2, 3})
	assert.False(t, fake.GetManyCalled())
	assert.False(t, fake.GetOneCalled())

	res := <-fake.GetMany(context.Background())
	assert.Equal(t, []int{1, 2, 3}, res.Value)
	assert.True(t, fake.GetManyCalled())
	assert.False(t, fake.GetOneCalled())

	fake.OneResult = gettable.Failure[int](errors.New("nope"))
	one := <-fake.GetOne(context.Background())
	assert.Error(t, one.Err)
	o, m := fake.Calls()
	assert.Equal(t, 1, o)
	assert.Equal(t, 1, m)
}
