package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ipes-academic-api/internal/models"
)

type brokenCache struct{}

func (brokenCache) Get(ctx context.Context, key string, dest interface{}) error {
	return errors.New("dial tcp: connection refused")
}

func (brokenCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return errors.New("dial tcp: connection refused")
}

func (brokenCache) DeleteByPattern(ctx context.Context, pattern string) error {
	return errors.New("dial tcp: connection refused")
}

func TestCacheServicePrefixesKeysAndCountsLookups(t *testing.T) {
	repo := newMemoryCache()
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, 0, nil, true)
	ctx := context.Background()

	var dest []models.Correlativity
	hit, err := svc.Get(ctx, "correlativities:s1:ENROLL", &dest)
	require.NoError(t, err)
	assert.False(t, hit)

	edges := []models.Correlativity{{ID: "e1", SubjectID: "s1", RequiredSubjectID: "s0"}}
	require.NoError(t, svc.Set(ctx, "correlativities:s1:ENROLL", edges, 0))
	assert.Contains(t, repo.entries, "ipes:correlativities:s1:ENROLL")

	hit, err = svc.Get(ctx, "correlativities:s1:ENROLL", &dest)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, edges, dest)

	require.NoError(t, svc.Invalidate(ctx, "correlativities:s1:*"))
	assert.Empty(t, repo.entries)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheLookups.WithLabelValues("miss")))
}

func TestCacheServiceDisabledAndFailing(t *testing.T) {
	ctx := context.Background()
	disabled := NewCacheService(brokenCache{}, nil, time.Minute, nil, false)
	assert.False(t, disabled.Enabled())
	hit, err := disabled.Get(ctx, "k", &[]models.Correlativity{})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, disabled.Set(ctx, "k", 1, 0))
	assert.NoError(t, disabled.Invalidate(ctx, "k*"))

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())

	failing := NewCacheService(brokenCache{}, nil, time.Minute, nil, true)
	_, err = failing.Get(ctx, "k", &[]models.Correlativity{})
	assert.Error(t, err)
	assert.Error(t, failing.Set(ctx, "k", 1, 0))
	assert.Error(t, failing.Invalidate(ctx, "k*"))
}

func TestCorrelativityServiceSurvivesCacheOutage(t *testing.T) {
	e := newEngine(t)
	e.addEdge(subjPractica, subjDidactica, models.CorrelativityPassedToEnroll)
	e.correlativity.cache = NewCacheService(brokenCache{}, nil, time.Minute, nil, true)

	edges, err := e.correlativity.RequiredEdges(context.Background(), subjPractica, models.PurposeEnroll)
	require.NoError(t, err)
	assert.Len(t, edges, 1)
}
