package repository

import (
	"context"
	"testing"

	"foodgram/internal/models"
	"foodgram/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recipeFixture struct {
	db        *gorm.DB
	repo      RecipeRepository
	alice     *models.User
	bob       *models.User
	flour     *models.Ingredient
	sugar     *models.Ingredient
	eggs      *models.Ingredient
	breakfast *models.Tag
	dinner    *models.Tag
}

func newRecipeFixture(t *testing.T) *recipeFixture {
	db := testutil.NewTestDB(t)
	return &recipeFixture{
		db:        db,
		repo:      NewRecipeRepository(db),
		alice:     testutil.CreateUser(t, db, "alice"),
		bob:       testutil.CreateUser(t, db, "bob"),
		flour:     testutil.CreateIngredient(t, db, "flour", "g"),
		sugar:     testutil.CreateIngredient(t, db, "sugar", "g"),
		eggs:      testutil.CreateIngredient(t, db, "eggs", "pcs"),
		breakfast: testutil.CreateTag(t, db, "breakfast"),
		dinner:    testutil.CreateTag(t, db, "dinner"),
	}
}

func TestRecipeRepository_CreateAndGet(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()

	recipe := &models.Recipe{AuthorID: f.alice.ID, Name: "Pancakes", Image: "/media/recipes/p.jpg", Text: "Mix.", CookingTime: 15}
	lines := []models.RecipeIngredient{{IngredientID: f.flour.ID, Amount: 200}, {IngredientID: f.eggs.ID, Amount: 2}}
	require.NoError(t, f.repo.Create(ctx, recipe, []uint{f.dinner.ID, f.breakfast.ID}, lines))
	require.NotZero(t, recipe.ID)

	got, err := f.repo.GetByID(ctx, recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pancakes", got.Name)
	assert.Equal(t, "alice", got.Author.Username)
	require.Len(t, got.Tags, 2)
	assert.Equal(t, "breakfast", got.Tags[0].Slug, "tags are ordered by id")
	require.Len(t, got.Ingredients, 2)
	assert.Equal(t, "flour", got.Ingredients[0].Ingredient.Name)
	assert.Equal(t, 200, got.Ingredients[0].Amount)

	_, err = f.repo.GetByID(ctx, 999)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}

func TestRecipeRepository_CreateDuplicateIngredientRollsBack(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()

	recipe := &models.Recipe{AuthorID: f.alice.ID, Name: "Bad", Image: "x", Text: "x", CookingTime: 1}
	lines := []models.RecipeIngredient{{IngredientID: f.flour.ID, Amount: 1}, {IngredientID: f.flour.ID, Amount: 2}}
	err := f.repo.Create(ctx, recipe, []uint{f.dinner.ID}, lines)
	require.Error(t, err)
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))

	var count int64
	require.NoError(t, f.db.Model(&models.Recipe{}).Count(&count).Error)
	assert.Zero(t, count, "recipe row must not survive a failed transaction")
}

func TestRecipeRepository_UpdateReplacesLines(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()
	r := testutil.CreateRecipe(t, f.db, f.alice, "Soup", []*models.Tag{f.dinner}, map[uint]int{f.flour.ID: 10, f.sugar.ID: 5})

	update := &models.Recipe{ID: r.ID, Name: "Better Soup", Text: "Boil.", CookingTime: 30}
	require.NoError(t, f.repo.Update(ctx, update, []uint{f.breakfast.ID}, []models.RecipeIngredient{{IngredientID: f.eggs.ID, Amount: 3}}))

	got, err := f.repo.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Better Soup", got.Name)
	assert.Equal(t, 30, got.CookingTime)
	assert.Equal(t, r.Image, got.Image, "empty image keeps the stored one")
	require.Len(t, got.Tags, 1)
	assert.Equal(t, f.breakfast.ID, got.Tags[0].ID)
	require.Len(t, got.Ingredients, 1)
	assert.Equal(t, f.eggs.ID, got.Ingredients[0].IngredientID)

	err = f.repo.Update(ctx, &models.Recipe{ID: 999, Name: "x", Text: "x", CookingTime: 1}, nil, nil)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}

func TestRecipeRepository_DeleteCascades(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()
	r := testutil.CreateRecipe(t, f.db, f.alice, "Toast", []*models.Tag{f.breakfast}, map[uint]int{f.flour.ID: 1})

	relations := NewRelationRepository(f.db)
	_, err := relations.Add(ctx, models.RelationFavorite, f.bob.ID, r.ID)
	require.NoError(t, err)
	_, err = relations.Add(ctx, models.RelationShoppingCart, f.bob.ID, r.ID)
	require.NoError(t, err)

	require.NoError(t, f.repo.Delete(ctx, r.ID))

	exists, err := f.repo.Exists(ctx, r.ID)
	require.NoError(t, err)
	assert.False(t, exists)
	for _, table := range []string{"recipe_tags", "recipe_ingredients", "favorites", "shopping_carts"} {
		var n int64
		require.NoError(t, f.db.Table(table).Where("recipe_id = ?", r.ID).Count(&n).Error)
		assert.Zero(t, n, table)
	}

	assert.Equal(t, models.CodeNotFound, models.ErrorCode(f.repo.Delete(ctx, r.ID)))
}

func TestRecipeRepository_ListFilters(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()

	r1 := testutil.CreateRecipe(t, f.db, f.alice, "r1", []*models.Tag{f.breakfast}, nil)
	r2 := testutil.CreateRecipe(t, f.db, f.alice, "r2", []*models.Tag{f.dinner}, nil)
	r3 := testutil.CreateRecipe(t, f.db, f.bob, "r3", []*models.Tag{f.breakfast, f.dinner}, nil)
	r4 := testutil.CreateRecipe(t, f.db, f.bob, "r4", nil, nil)

	relations := NewRelationRepository(f.db)
	_, _ = relations.Add(ctx, models.RelationFavorite, f.alice.ID, r3.ID)
	_, _ = relations.Add(ctx, models.RelationFavorite, f.alice.ID, r4.ID)
	_, _ = relations.Add(ctx, models.RelationShoppingCart, f.bob.ID, r1.ID)

	ids := func(recipes []models.Recipe) []uint {
		out := make([]uint, 0, len(recipes))
		for _, r := range recipes {
			out = append(out, r.ID)
		}
		return out
	}

	tests := []struct {
		name   string
		filter RecipeFilter
		want   []uint
		total  int64
	}{
		{"all newest first", RecipeFilter{}, []uint{r4.ID, r3.ID, r2.ID, r1.ID}, 4},
		{"by author", RecipeFilter{AuthorID: f.alice.ID}, []uint{r2.ID, r1.ID}, 2},
		{"tags are OR-ed without duplicates", RecipeFilter{TagIDs: []uint{f.breakfast.ID, f.dinner.ID}}, []uint{r3.ID, r2.ID, r1.ID}, 3},
		{"favorited", RecipeFilter{FavoritedBy: f.alice.ID}, []uint{r4.ID, r3.ID}, 2},
		{"in cart", RecipeFilter{InCartOf: f.bob.ID}, []uint{r1.ID}, 1},
		{"combined", RecipeFilter{FavoritedBy: f.alice.ID, TagIDs: []uint{f.dinner.ID}}, []uint{r3.ID}, 1},
		{"paged", RecipeFilter{Limit: 2, Offset: 1}, []uint{r3.ID, r2.ID}, 4},
		{"no match", RecipeFilter{InCartOf: f.alice.ID}, []uint{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := f.repo.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.total, total)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestRecipeRepository_AuthorAggregates(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()
	for _, name := range []string{"a", "b", "c"} {
		testutil.CreateRecipe(t, f.db, f.alice, name, nil, nil)
	}
	testutil.CreateRecipe(t, f.db, f.bob, "d", nil, nil)

	counts, err := f.repo.CountByAuthors(ctx, []uint{f.alice.ID, f.bob.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts[f.alice.ID])
	assert.Equal(t, int64(1), counts[f.bob.ID])

	byAuthor, err := f.repo.ListByAuthors(ctx, []uint{f.alice.ID, f.bob.ID}, 2)
	require.NoError(t, err)
	require.Len(t, byAuthor[f.alice.ID], 2)
	assert.Equal(t, "c", byAuthor[f.alice.ID][0].Name)
	assert.Len(t, byAuthor[f.bob.ID], 1)

	all, err := f.repo.ListByAuthors(ctx, []uint{f.alice.ID}, 0)
	require.NoError(t, err)
	assert.Len(t, all[f.alice.ID], 3)
}

func TestRecipeRepository_AggregateShoppingCart(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()
	// Same ingredient name with a different unit must stay a separate line.
	flourKg := testutil.CreateIngredient(t, f.db, "flour", "kg")

	r1 := testutil.CreateRecipe(t, f.db, f.alice, "r1", nil, map[uint]int{f.flour.ID: 100, f.sugar.ID: 20})
	r2 := testutil.CreateRecipe(t, f.db, f.alice, "r2", nil, map[uint]int{f.flour.ID: 50, flourKg.ID: 1})
	r3 := testutil.CreateRecipe(t, f.db, f.alice, "r3", nil, map[uint]int{f.eggs.ID: 6})

	relations := NewRelationRepository(f.db)
	for _, r := range []*models.Recipe{r1, r2} {
		_, err := relations.Add(ctx, models.RelationShoppingCart, f.bob.ID, r.ID)
		require.NoError(t, err)
	}
	_, err := relations.Add(ctx, models.RelationShoppingCart, f.alice.ID, r3.ID)
	require.NoError(t, err)

	items, err := f.repo.AggregateShoppingCart(ctx, f.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.ShoppingListItem{
		{Name: "flour", MeasurementUnit: "g", TotalAmount: 150},
		{Name: "flour", MeasurementUnit: "kg", TotalAmount: 1},
		{Name: "sugar", MeasurementUnit: "g", TotalAmount: 20},
	}, items)

	empty, err := f.repo.AggregateShoppingCart(ctx, 999)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
