package repository

import (
	"context"
	"testing"

	"foodgram/internal/models"
	"foodgram/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelationRepository_AddRemove(t *testing.T) {
	for _, kind := range []models.RelationKind{models.RelationFavorite, models.RelationShoppingCart} {
		t.Run(string(kind), func(t *testing.T) {
			db := testutil.NewTestDB(t)
			repo := NewRelationRepository(db)
			ctx := context.Background()
			u := testutil.CreateUser(t, db, "u")
			r := testutil.CreateRecipe(t, db, u, "r", nil, nil)

			created, err := repo.Add(ctx, kind, u.ID, r.ID)
			require.NoError(t, err)
			assert.True(t, created)

			created, err = repo.Add(ctx, kind, u.ID, r.ID)
			require.NoError(t, err)
			assert.False(t, created, "second add is a no-op")

			has, err := repo.Has(ctx, kind, u.ID, r.ID)
			require.NoError(t, err)
			assert.True(t, has)

			removed, err := repo.Remove(ctx, kind, u.ID, r.ID)
			require.NoError(t, err)
			assert.True(t, removed)

			removed, err = repo.Remove(ctx, kind, u.ID, r.ID)
			require.NoError(t, err)
			assert.False(t, removed)
		})
	}
}

func TestRelationRepository_KindsAreIndependent(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewRelationRepository(db)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "u")
	r := testutil.CreateRecipe(t, db, u, "r", nil, nil)

	_, err := repo.Add(ctx, models.RelationFavorite, u.ID, r.ID)
	require.NoError(t, err)

	inCart, err := repo.Has(ctx, models.RelationShoppingCart, u.ID, r.ID)
	require.NoError(t, err)
	assert.False(t, inCart)
}

func TestRelationRepository_MemberRecipeIDs(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewRelationRepository(db)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "u")
	r1 := testutil.CreateRecipe(t, db, u, "r1", nil, nil)
	r2 := testutil.CreateRecipe(t, db, u, "r2", nil, nil)

	_, err := repo.Add(ctx, models.RelationShoppingCart, u.ID, r2.ID)
	require.NoError(t, err)

	got, err := repo.MemberRecipeIDs(ctx, models.RelationShoppingCart, u.ID, []uint{r1.ID, r2.ID})
	require.NoError(t, err)
	assert.Equal(t, map[uint]bool{r2.ID: true}, got)

	anon, err := repo.MemberRecipeIDs(ctx, models.RelationShoppingCart, 0, []uint{r1.ID, r2.ID})
	require.NoError(t, err)
	assert.Empty(t, anon)
}

func TestRelationRepository_UnknownKind(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewRelationRepository(db)
	_, err := repo.Add(context.Background(), models.RelationKind("bogus"), 1, 1)
	assert.Equal(t, models.CodeInternal, models.ErrorCode(err))
}
