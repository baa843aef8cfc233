package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stetsonscene/scene/backend/internal/domain"
	"github.com/stetsonscene/scene/backend/internal/repo"
	"github.com/stetsonscene/scene/backend/testutil"
)

func TestLocationRepo_PutGet(t *testing.T) {
	r := repo.NewLocationRepo(testutil.NewTx(t))
	ctx := context.Background()
	hall := domain.Coordinates{Latitude: 29.0349, Longitude: -81.3031}

	require.NoError(t, r.Put(ctx, "Elizabeth Hall", hall))

	got, err := r.Get(ctx, "Elizabeth Hall")
	require.NoError(t, err)
	assert.Equal(t, hall, got)
}

func TestLocationRepo_Put_FirstWriteWins(t *testing.T) {
	r := repo.NewLocationRepo(testutil.NewTx(t))
	ctx := context.Background()
	first := domain.Coordinates{Latitude: 1, Longitude: 2}

	require.NoError(t, r.Put(ctx, "Quad", first))
	require.NoError(t, r.Put(ctx, "Quad", domain.Coordinates{Latitude: 3, Longitude: 4}))

	got, err := r.Get(ctx, "Quad")
	require.NoError(t, err)
	assert.Equal(t, first, got)
}

func TestLocationRepo_Get_NotFound(t *testing.T) {
	r := repo.NewLocationRepo(testutil.NewTx(t))

	_, err := r.Get(context.Background(), "Nowhere")

	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLocationRepo_List(t *testing.T) {
	r := repo.NewLocationRepo(testutil.NewTx(t))
	ctx := context.Background()
	require.NoError(t, r.Put(ctx, "A", domain.Coordinates{Latitude: 1, Longitude: 1}))
	require.NoError(t, r.Put(ctx, "B", domain.Coordinates{Latitude: 2, Longitude: 2}))

	got, err := r.List(ctx)

	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, domain.Coordinates{Latitude: 2, Longitude: 2}, got["B"])
}
