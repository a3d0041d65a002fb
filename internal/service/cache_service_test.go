package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheServiceGetSet(t *testing.T) {
	repo := &cacheRepoStub{}
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, time.Minute, nil, true)
	ctx := context.Background()

	var dest map[string]int
	hit, err := svc.Get(ctx, "k", &dest)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(ctx, "k", map[string]int{"a": 1}, 0))
	assert.Equal(t, time.Minute, repo.lastTTL)

	hit, err = svc.Get(ctx, "k", &dest)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, dest["a"])

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.CacheHits)
	assert.Equal(t, uint64(1), snapshot.CacheMisses)
	assert.InDelta(t, 0.5, snapshot.CacheHitRatio, 1e-9)
}

func TestCacheServiceTTL(t *testing.T) {
	repo := &cacheRepoStub{}
	svc := NewCacheService(repo, nil, time.Minute, nil, true)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, "forever", 1, KeepForever))
	assert.Equal(t, time.Duration(0), repo.lastTTL)

	require.NoError(t, svc.Set(ctx, "explicit", 1, 5*time.Second))
	assert.Equal(t, 5*time.Second, repo.lastTTL)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := &cacheRepoStub{values: map[string]string{"k": "1"}}
	svc := NewCacheService(repo, nil, 0, nil, false)

	var v int
	hit, err := svc.Get(context.Background(), "k", &v)
	require.NoError(t, err)
	assert.False(t, hit)
	require.NoError(t, svc.Set(context.Background(), "x", 1, 0))
	assert.NotContains(t, repo.values, "x")
}

func TestCacheServiceBackendError(t *testing.T) {
	repo := &cacheRepoStub{getErr: errors.New("dial tcp: refused")}
	svc := NewCacheService(repo, nil, 0, nil, true)

	var v int
	hit, err := svc.Get(context.Background(), "k", &v)
	assert.Error(t, err)
	assert.False(t, hit)
}

func TestCacheServiceDelete(t *testing.T) {
	repo := &cacheRepoStub{values: map[string]string{"a": "1", "b": "2"}}
	svc := NewCacheService(repo, nil, 0, nil, true)

	require.NoError(t, svc.Delete(context.Background(), "a"))
	assert.NotContains(t, repo.values, "a")
	assert.Contains(t, repo.values, "b")
}
