package database

import (
	"testing"

	modelspkg "foodgram/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestPersistentModels_IncludesJoinTables(t *testing.T) {
	var favorite, cart, subscription bool
	for _, model := range PersistentModels() {
		switch model.(type) {
		case *modelspkg.Favorite:
			favorite = true
		case *modelspkg.ShoppingCart:
			cart = true
		case *modelspkg.Subscription:
			subscription = true
		}
	}
	require.True(t, favorite, "PersistentModels should include Favorite")
	require.True(t, cart, "PersistentModels should include ShoppingCart")
	require.True(t, subscription, "PersistentModels should include Subscription")
}

func TestPersistentModels_AutoMigrateCreatesUniqueIndexes(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, runAutoMigrate(db))

	m := db.Migrator()
	for _, table := range []string{"users", "ingredients", "tags", "recipes", "recipe_tags", "recipe_ingredients", "favorites", "shopping_carts", "subscriptions"} {
		assert.True(t, m.HasTable(table), "missing table %s", table)
	}
	assert.True(t, m.HasIndex(&modelspkg.RecipeIngredient{}, "idx_recipe_ingredient"))
	assert.True(t, m.HasIndex(&modelspkg.Favorite{}, "idx_favorite_user_recipe"))
	assert.True(t, m.HasIndex(&modelspkg.ShoppingCart{}, "idx_cart_user_recipe"))
	assert.True(t, m.HasIndex(&modelspkg.Subscription{}, "idx_subscription_user_author"))
	assert.True(t, m.HasIndex(&modelspkg.Ingredient{}, "idx_ingredient_name_unit"))
}
