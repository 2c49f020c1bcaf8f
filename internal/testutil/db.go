// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"fmt"
	"testing"

	"foodgram/internal/database"
	"foodgram/internal/models"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a private in-memory SQLite database with the full schema.
// The pool is pinned to one connection so every query sees the same memory DB.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

// CreateUser inserts a user with password "pass-word-1".
func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("pass-word-1"), bcrypt.MinCost)
	require.NoError(t, err)

	u := &models.User{
		Email:     username + "@example.com",
		Username:  username,
		FirstName: "First",
		LastName:  "Last",
		Password:  string(hash),
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreateIngredient inserts an ingredient.
func CreateIngredient(t *testing.T, db *gorm.DB, name, unit string) *models.Ingredient {
	t.Helper()
	ing := &models.Ingredient{Name: name, MeasurementUnit: unit}
	require.NoError(t, db.Create(ing).Error)
	return ing
}

// CreateTag inserts a tag whose name is derived from slug.
func CreateTag(t *testing.T, db *gorm.DB, slug string) *models.Tag {
	t.Helper()
	tag := &models.Tag{Name: "Tag " + slug, Slug: slug}
	require.NoError(t, db.Create(tag).Error)
	return tag
}

// CreateRecipe inserts a recipe for author with the given tags and
// ingredient amounts (ingredient id -> amount).
func CreateRecipe(t *testing.T, db *gorm.DB, author *models.User, name string, tags []*models.Tag, amounts map[uint]int) *models.Recipe {
	t.Helper()
	r := &models.Recipe{
		AuthorID:    author.ID,
		Name:        name,
		Image:       fmt.Sprintf("/media/recipes/%s.jpg", name),
		Text:        "Cook it.",
		CookingTime: 10,
	}
	require.NoError(t, db.Omit("Tags", "Ingredients", "Author").Create(r).Error)

	for _, tag := range tags {
		require.NoError(t, db.Exec("INSERT INTO recipe_tags (recipe_id, tag_id) VALUES (?, ?)", r.ID, tag.ID).Error)
	}
	for ingredientID, amount := range amounts {
		require.NoError(t, db.Create(&models.RecipeIngredient{RecipeID: r.ID, IngredientID: ingredientID, Amount: amount}).Error)
	}
	return r
}
