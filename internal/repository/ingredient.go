package repository

import (
	"context"
	"errors"
	"strings"

	"foodgram/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IngredientRepository reads the ingredient catalogue.
type IngredientRepository interface {
	Search(ctx context.Context, namePrefix string) ([]models.Ingredient, error)
	GetByID(ctx context.Context, id uint) (*models.Ingredient, error)
	ExistingIDs(ctx context.Context, ids []uint) ([]uint, error)
	Upsert(ctx context.Context, items []models.Ingredient) (int64, error)
}

type ingredientRepository struct {
	db *gorm.DB
}

// NewIngredientRepository returns a new IngredientRepository implementation.
func NewIngredientRepository(db *gorm.DB) IngredientRepository {
	return &ingredientRepository{db: db}
}

// Search returns ingredients whose name starts with namePrefix, ignoring case.
// An empty prefix returns the whole catalogue.
func (r *ingredientRepository) Search(ctx context.Context, namePrefix string) ([]models.Ingredient, error) {
	var items []models.Ingredient
	q := reader(ctx, r.db).Order("name ASC").Order("id ASC")
	if p := strings.TrimSpace(namePrefix); p != "" {
		q = q.Where("LOWER(name) LIKE ? ESCAPE '\\'", escapeLike(strings.ToLower(p))+"%")
	}
	if err := q.Find(&items).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return items, nil
}

func (r *ingredientRepository) GetByID(ctx context.Context, id uint) (*models.Ingredient, error) {
	var item models.Ingredient
	if err := reader(ctx, r.db).First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Ingredient", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &item, nil
}

func (r *ingredientRepository) ExistingIDs(ctx context.Context, ids []uint) ([]uint, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	var found []uint
	if err := reader(ctx, r.db).Model(&models.Ingredient{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return found, nil
}

// Upsert inserts items, skipping existing (name, unit) pairs, in batches.
func (r *ingredientRepository) Upsert(ctx context.Context, items []models.Ingredient) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}, {Name: "measurement_unit"}},
			DoNothing: true,
		}).
		CreateInBatches(&items, 500)
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
