package service

import (
	"context"
	"testing"

	"foodgram/internal/models"
	"foodgram/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelationService_AddRemove(t *testing.T) {
	for _, kind := range []models.RelationKind{models.RelationFavorite, models.RelationShoppingCart} {
		t.Run(string(kind), func(t *testing.T) {
			env := newServiceEnv(t)
			ctx := context.Background()
			alice := testutil.CreateUser(t, env.db, "alice")
			recipe := testutil.CreateRecipe(t, env.db, alice, "soup", nil, nil)

			added, err := env.relations.Add(ctx, kind, alice.ID, recipe.ID)
			require.NoError(t, err)
			assert.Equal(t, recipe.ID, added.ID)
			assert.Equal(t, "soup", added.Name)

			_, err = env.relations.Add(ctx, kind, alice.ID, recipe.ID)
			assertValidationError(t, err)

			require.NoError(t, env.relations.Remove(ctx, kind, alice.ID, recipe.ID))
			assertValidationError(t, env.relations.Remove(ctx, kind, alice.ID, recipe.ID))

			_, err = env.relations.Add(ctx, kind, alice.ID, 9999)
			assertNotFoundError(t, err)
			assertNotFoundError(t, env.relations.Remove(ctx, kind, alice.ID, 9999))
		})
	}
}

func TestRelationService_KindsAreIndependent(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, env.db, "alice")
	recipe := testutil.CreateRecipe(t, env.db, alice, "soup", nil, nil)

	_, err := env.relations.Add(ctx, models.RelationFavorite, alice.ID, recipe.ID)
	require.NoError(t, err)
	_, err = env.relations.Add(ctx, models.RelationShoppingCart, alice.ID, recipe.ID)
	require.NoError(t, err)

	require.NoError(t, env.relations.Remove(ctx, models.RelationFavorite, alice.ID, recipe.ID))

	got, err := env.recipes.GetRecipe(ctx, alice.ID, recipe.ID)
	require.NoError(t, err)
	assert.False(t, got.IsFavorited)
	assert.True(t, got.IsInShoppingCart)
}
