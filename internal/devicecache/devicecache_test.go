package devicecache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Faryzal2020/road-roughness-monitoring/internal/repository"
	"github.com/Faryzal2020/road-roughness-monitoring/pkg/schema"
)

type fakeRepo struct {
	repository.Repository
	lookups int
	truck   *schema.Truck
}

func (f *fakeRepo) FindTruckByIdentifier(identifier string) (*schema.Truck, error) {
	f.lookups++
	return f.truck, nil
}

func TestResolveCachesPositiveHit(t *testing.T) {
	repo := &fakeRepo{truck: &schema.Truck{ID: 1, Identifier: "123456789012345"}}
	cache := New(repo, 100, time.Minute, time.Second)

	truck, err := cache.Resolve("123456789012345")
	require.NoError(t, err)
	require.NotNil(t, truck)
	require.Equal(t, int64(1), truck.ID)

	_, err = cache.Resolve("123456789012345")
	require.NoError(t, err)
	require.Equal(t, 1, repo.lookups, "second resolve should hit the cache, not the repository")
}

func TestResolveUnregistered(t *testing.T) {
	repo := &fakeRepo{truck: nil}
	cache := New(repo, 100, time.Minute, time.Second)

	truck, err := cache.Resolve("999999999999999")
	require.NoError(t, err)
	require.Nil(t, truck)
	require.Equal(t, 1, repo.lookups)
}
