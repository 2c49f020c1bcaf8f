package repository

import (
	"context"
	"errors"
	"time"

	"foodgram/internal/models"
	"foodgram/internal/observability"

	"gorm.io/gorm"
)

// RecipeFilter narrows List. Zero values mean "no constraint".
type RecipeFilter struct {
	AuthorID    uint
	TagIDs      []uint
	FavoritedBy uint
	InCartOf    uint
	Limit       int
	Offset      int
}

// RecipeRepository defines persistence operations for recipes.
type RecipeRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Recipe, error)
	Exists(ctx context.Context, id uint) (bool, error)
	List(ctx context.Context, filter RecipeFilter) ([]models.Recipe, int64, error)
	// ListByAuthors returns up to limit newest recipes per author (limit <= 0: all).
	ListByAuthors(ctx context.Context, authorIDs []uint, limit int) (map[uint][]models.Recipe, error)
	CountByAuthors(ctx context.Context, authorIDs []uint) (map[uint]int64, error)
	Create(ctx context.Context, recipe *models.Recipe, tagIDs []uint, ingredients []models.RecipeIngredient) error
	Update(ctx context.Context, recipe *models.Recipe, tagIDs []uint, ingredients []models.RecipeIngredient) error
	Delete(ctx context.Context, id uint) error
	AggregateShoppingCart(ctx context.Context, userID uint) ([]models.ShoppingListItem, error)
}

type recipeRepository struct {
	db      *gorm.DB
	metrics *observability.DatabaseMetrics
}

// NewRecipeRepository returns a new RecipeRepository implementation.
func NewRecipeRepository(db *gorm.DB) RecipeRepository {
	return &recipeRepository{db: db, metrics: observability.NewDatabaseMetrics("recipes")}
}

type recipeTag struct {
	RecipeID uint
	TagID    uint
}

func (recipeTag) TableName() string { return "recipe_tags" }

func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.id ASC") }).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("recipe_ingredients.id ASC") }).
		Preload("Ingredients.Ingredient")
}

func (r *recipeRepository) GetByID(ctx context.Context, id uint) (*models.Recipe, error) {
	defer r.metrics.TrackQuery("get")()

	var recipe models.Recipe
	if err := withDetails(reader(ctx, r.db)).First(&recipe, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Recipe", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &recipe, nil
}

func (r *recipeRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Recipe{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func applyRecipeFilter(db *gorm.DB, f RecipeFilter) *gorm.DB {
	if f.AuthorID != 0 {
		db = db.Where("recipes.author_id = ?", f.AuthorID)
	}
	if len(f.TagIDs) > 0 {
		db = db.Where("EXISTS (SELECT 1 FROM recipe_tags rt WHERE rt.recipe_id = recipes.id AND rt.tag_id IN ?)", f.TagIDs)
	}
	if f.FavoritedBy != 0 {
		db = db.Where("EXISTS (SELECT 1 FROM favorites f WHERE f.recipe_id = recipes.id AND f.user_id = ?)", f.FavoritedBy)
	}
	if f.InCartOf != 0 {
		db = db.Where("EXISTS (SELECT 1 FROM shopping_carts sc WHERE sc.recipe_id = recipes.id AND sc.user_id = ?)", f.InCartOf)
	}
	return db
}

// List returns one page of recipes, newest first, with the total match count.
func (r *recipeRepository) List(ctx context.Context, f RecipeFilter) ([]models.Recipe, int64, error) {
	ctx, span := observability.TraceRepositoryMethod(ctx, "recipe", "List")
	defer span.End()
	defer r.metrics.TrackQuery("list")()

	var total int64
	if err := applyRecipeFilter(reader(ctx, r.db).Model(&models.Recipe{}), f).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	if total == 0 {
		return []models.Recipe{}, 0, nil
	}

	var recipes []models.Recipe
	q := applyRecipeFilter(withDetails(reader(ctx, r.db)), f).Order("recipes.id DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	if err := q.Find(&recipes).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return recipes, total, nil
}

func (r *recipeRepository) ListByAuthors(ctx context.Context, authorIDs []uint, limit int) (map[uint][]models.Recipe, error) {
	out := make(map[uint][]models.Recipe, len(authorIDs))
	for _, authorID := range uniqueIDs(authorIDs) {
		var recipes []models.Recipe
		q := reader(ctx, r.db).Where("author_id = ?", authorID).Order("id DESC")
		if limit > 0 {
			q = q.Limit(limit)
		}
		if err := q.Find(&recipes).Error; err != nil {
			return nil, models.NewInternalError(err)
		}
		out[authorID] = recipes
	}
	return out, nil
}

func (r *recipeRepository) CountByAuthors(ctx context.Context, authorIDs []uint) (map[uint]int64, error) {
	out := make(map[uint]int64, len(authorIDs))
	if len(authorIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		AuthorID uint
		Total    int64
	}
	err := reader(ctx, r.db).Model(&models.Recipe{}).
		Select("author_id, COUNT(*) AS total").
		Where("author_id IN ?", authorIDs).
		Group("author_id").
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, row := range rows {
		out[row.AuthorID] = row.Total
	}
	return out, nil
}

// Create inserts the recipe with its tags and ingredient lines atomically.
func (r *recipeRepository) Create(ctx context.Context, recipe *models.Recipe, tagIDs []uint, ingredients []models.RecipeIngredient) error {
	defer r.metrics.TrackQuery("create")()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Author", "Tags", "Ingredients").Create(recipe).Error; err != nil {
			return err
		}
		if err := replaceTags(tx, recipe.ID, tagIDs); err != nil {
			return err
		}
		return replaceIngredients(tx, recipe.ID, ingredients)
	})
	if err != nil {
		return translateWriteError(err)
	}
	observability.RecipeWrites.WithLabelValues("create").Inc()
	return nil
}

// Update rewrites scalar fields and replaces tags and ingredient lines
// atomically. An empty Image keeps the stored one.
func (r *recipeRepository) Update(ctx context.Context, recipe *models.Recipe, tagIDs []uint, ingredients []models.RecipeIngredient) error {
	defer r.metrics.TrackQuery("update")()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"name":         recipe.Name,
			"text":         recipe.Text,
			"cooking_time": recipe.CookingTime,
			"updated_at":   time.Now().UTC(),
		}
		if recipe.Image != "" {
			updates["image"] = recipe.Image
		}
		res := tx.Model(&models.Recipe{}).Where("id = ?", recipe.ID).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Recipe", recipe.ID)
		}
		if err := replaceTags(tx, recipe.ID, tagIDs); err != nil {
			return err
		}
		return replaceIngredients(tx, recipe.ID, ingredients)
	})
	if err != nil {
		return translateWriteError(err)
	}
	observability.RecipeWrites.WithLabelValues("update").Inc()
	return nil
}

// Delete removes the recipe and every row that references it.
func (r *recipeRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range []string{"recipe_tags", "recipe_ingredients", "favorites", "shopping_carts"} {
			if err := tx.Exec("DELETE FROM "+table+" WHERE recipe_id = ?", id).Error; err != nil {
				return err
			}
		}
		res := tx.Delete(&models.Recipe{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Recipe", id)
		}
		return nil
	})
	if err != nil {
		return translateWriteError(err)
	}
	observability.RecipeWrites.WithLabelValues("delete").Inc()
	return nil
}

// AggregateShoppingCart sums ingredient amounts over every recipe in the
// user's cart, grouped by ingredient name and unit.
func (r *recipeRepository) AggregateShoppingCart(ctx context.Context, userID uint) ([]models.ShoppingListItem, error) {
	ctx, span := observability.TraceRepositoryMethod(ctx, "recipe", "AggregateShoppingCart")
	defer span.End()
	defer r.metrics.TrackQuery("shopping_cart")()

	var items []models.ShoppingListItem
	err := reader(ctx, r.db).
		Table("recipe_ingredients AS ri").
		Select("i.name AS name, i.measurement_unit AS measurement_unit, SUM(ri.amount) AS total_amount").
		Joins("JOIN ingredients i ON i.id = ri.ingredient_id").
		Joins("JOIN shopping_carts sc ON sc.recipe_id = ri.recipe_id").
		Where("sc.user_id = ?", userID).
		Group("i.name, i.measurement_unit").
		Order("i.name ASC, i.measurement_unit ASC").
		Scan(&items).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return items, nil
}

func replaceTags(tx *gorm.DB, recipeID uint, tagIDs []uint) error {
	if err := tx.Where("recipe_id = ?", recipeID).Delete(&recipeTag{}).Error; err != nil {
		return err
	}
	tagIDs = uniqueIDs(tagIDs)
	if len(tagIDs) == 0 {
		return nil
	}
	rows := make([]recipeTag, 0, len(tagIDs))
	for _, id := range tagIDs {
		rows = append(rows, recipeTag{RecipeID: recipeID, TagID: id})
	}
	return tx.Create(&rows).Error
}

func replaceIngredients(tx *gorm.DB, recipeID uint, lines []models.RecipeIngredient) error {
	if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.RecipeIngredient{}).Error; err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	rows := make([]models.RecipeIngredient, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, models.RecipeIngredient{
			RecipeID:     recipeID,
			IngredientID: line.IngredientID,
			Amount:       line.Amount,
		})
	}
	return tx.Omit("Ingredient").Create(&rows).Error
}

func translateWriteError(err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if isUniqueConstraintError(err) {
		return models.NewValidationError("Ingredients must not repeat")
	}
	return models.NewInternalError(err)
}
