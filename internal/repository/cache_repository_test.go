package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/claudyne/claudyne-content-api/pkg/errors"
)

type mockCacheMetrics struct {
	hits   int
	misses int
}

func (m *mockCacheMetrics) RecordCacheOperation(hit bool, duration time.Duration) {
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

func TestCacheGetWithoutClientIsARecordedMiss(t *testing.T) {
	metrics := &mockCacheMetrics{}
	repo := NewCacheRepository(nil, metrics, nil)

	var dest []string
	err := repo.Get(context.Background(), "catalog:public", &dest)
	require.ErrorIs(t, err, appErrors.ErrCacheMiss)

	assert.Equal(t, 1, metrics.misses)
	assert.Zero(t, metrics.hits)
}

func TestCacheWritesWithoutClientAreNoOps(t *testing.T) {
	repo := NewCacheRepository(nil, nil, nil)

	require.NoError(t, repo.Set(context.Background(), "catalog:public", []string{"s1"}, time.Minute))
	require.NoError(t, repo.DeleteByPattern(context.Background(), "catalog:*"))
}
