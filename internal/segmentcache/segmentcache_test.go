package segmentcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	calls int
	id    *int64
}

func (f *fakeResolver) NearestSegmentWithin(lat, lon float64, meters float64) (*int64, error) {
	f.calls++
	return f.id, nil
}

func TestResolveCachesByRoundedCoordinate(t *testing.T) {
	segID := int64(42)
	resolver := &fakeResolver{id: &segID}
	cache := New(resolver, 100, time.Minute, 50)

	id, err := cache.Resolve(1.234567, 103.456789)
	require.NoError(t, err)
	require.NotNil(t, id)
	require.Equal(t, segID, *id)

	// A nearby point rounding to the same 4-decimal key hits the cache.
	id, err = cache.Resolve(1.2345699, 103.4567899)
	require.NoError(t, err)
	require.Equal(t, segID, *id)
	require.Equal(t, 1, resolver.calls)
}

func TestResolveCachesMiss(t *testing.T) {
	resolver := &fakeResolver{id: nil}
	cache := New(resolver, 100, time.Minute, 50)

	id, err := cache.Resolve(10.0, 20.0)
	require.NoError(t, err)
	require.Nil(t, id)

	id, err = cache.Resolve(10.0, 20.0)
	require.NoError(t, err)
	require.Nil(t, id)
	require.Equal(t, 1, resolver.calls, "cached miss should not re-query the resolver")
}
