package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/course-progress-api/pkg/errors"
)

func TestMemoryCacheRepositoryRoundTrip(t *testing.T) {
	repo := NewMemoryCacheRepository()
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "enrollments:student:ana@example.com", []string{"enr-1"}, time.Minute))

	var got []string
	require.NoError(t, repo.Get(ctx, "enrollments:student:ana@example.com", &got))
	assert.Equal(t, []string{"enr-1"}, got)

	err := repo.Get(ctx, "enrollments:student:bob@example.com", &got)
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)
}

func TestMemoryCacheRepositoryExpires(t *testing.T) {
	repo := NewMemoryCacheRepository()
	current := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return current }
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "progress:student:ana@example.com", 1, time.Minute))
	current = current.Add(time.Minute)

	var got int
	assert.ErrorIs(t, repo.Get(ctx, "progress:student:ana@example.com", &got), appErrors.ErrCacheMiss)
}

func TestMemoryCacheRepositoryDeleteByPattern(t *testing.T) {
	repo := NewMemoryCacheRepository()
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "progress:course:c-1:ana@example.com", 1, 0))
	require.NoError(t, repo.Set(ctx, "progress:course:a/b:ana@example.com", 1, 0))
	require.NoError(t, repo.Set(ctx, "enrollments:course:c-1", 1, 0))

	require.NoError(t, repo.DeleteByPattern(ctx, "progress:*"))

	var got int
	assert.ErrorIs(t, repo.Get(ctx, "progress:course:c-1:ana@example.com", &got), appErrors.ErrCacheMiss)
	assert.ErrorIs(t, repo.Get(ctx, "progress:course:a/b:ana@example.com", &got), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Get(ctx, "enrollments:course:c-1", &got))
}
