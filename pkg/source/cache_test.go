package source

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCachedProviderServesFromCache(t *testing.T) {
	inner := &fakeProvider{values: map[string]string{"APP_ENV": "KEY=value"}}
	cached := NewCachedProvider(inner, time.Minute)

	val, err := cached.Get(context.Background(), "APP_ENV")
	require.NoError(t, err)
	require.Equal(t, "KEY=value", val)

	val, err = cached.Get(context.Background(), "APP_ENV")
	require.NoError(t, err)
	require.Equal(t, "KEY=value", val)

	// Only the first call reaches the backend.
	require.Equal(t, []string{"APP_ENV"}, inner.gets)
}

func TestCachedProviderDoesNotCacheErrors(t *testing.T) {
	inner := &fakeProvider{values: map[string]string{}}
	cached := NewCachedProvider(inner, time.Minute)

	_, err := cached.Get(context.Background(), "missing")
	require.Error(t, err)

	_, err = cached.Get(context.Background(), "missing")
	require.Error(t, err)

	require.Equal(t, []string{"missing", "missing"}, inner.gets)
}

func TestCachedProviderFlush(t *testing.T) {
	inner := &fakeProvider{values: map[string]string{"A": "1"}}
	cached := NewCachedProvider(inner, time.Minute)

	_, err := cached.Get(context.Background(), "A")
	require.NoError(t, err)
	cached.Flush()
	_, err = cached.Get(context.Background(), "A")
	require.NoError(t, err)

	require.Equal(t, []string{"A", "A"}, inner.gets)
}

func TestCachedProviderCloseClosesInner(t *testing.T) {
	inner := &fakeProvider{}
	cached := NewCachedProvider(inner, time.Minute)
	require.NoError(t, cached.Close())
	require.True(t, inner.closed)
}
