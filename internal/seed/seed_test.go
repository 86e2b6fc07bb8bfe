package seed

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railmadad/backend/internal/memstore"
	"github.com/railmadad/backend/internal/models"
	"github.com/railmadad/backend/internal/service"
)

func newSeeder(store *memstore.Store) *Seeder {
	return &Seeder{
		Categories: service.NewCategoryService(store, service.NewValidator()),
		Users:      store,
		Logger:     zerolog.Nop(),
	}
}

func TestDefaultFile(t *testing.T) {
	f, err := Default()
	require.NoError(t, err)
	assert.Len(t, f.Categories, 19)
	assert.NotEmpty(t, f.Workers)
	assert.NotEmpty(t, f.Admins)
	for _, c := range f.Categories {
		assert.True(t, models.Priority(c.Priority).Valid(), c.Name)
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("categories:\n  - name: X\n    priorty: LOW\n"))
	assert.Error(t, err)
}

func TestApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	s := newSeeder(store)
	f, err := Default()
	require.NoError(t, err)

	rep, err := s.Apply(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 19, rep.CategoriesCreated)
	assert.Equal(t, len(f.Workers)+len(f.Admins), rep.UsersCreated)

	cats, err := s.Categories.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, cats, 19)
	assert.Equal(t, "Health Issue or Accident", cats[0].Name)

	workers, err := store.ListWorkers(ctx, models.WorkerFilter{TrainNumber: "12951"})
	require.NoError(t, err)
	assert.Len(t, workers, 2)

	rep, err = s.Apply(ctx, f)
	require.NoError(t, err)
	assert.Zero(t, rep.CategoriesCreated)
	assert.Equal(t, 19, rep.CategoriesSkipped)
	assert.Zero(t, rep.UsersCreated)
}

func TestDryRunWritesNothing(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	s := newSeeder(store)
	s.DryRun = true
	f, err := Default()
	require.NoError(t, err)

	rep, err := s.Apply(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 19, rep.CategoriesCreated)

	cats, err := s.Categories.List(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, cats)
}

func TestApplyRejectsBadPhone(t *testing.T) {
	s := newSeeder(memstore.New())
	_, err := s.Apply(context.Background(), File{Workers: []Person{{Name: "X", Phone: "12"}}})
	assert.Error(t, err)
}
