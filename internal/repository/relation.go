package repository

import (
	"context"
	"fmt"

	"foodgram/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RelationRepository manages the favorite and shopping cart join tables.
type RelationRepository interface {
	// Add inserts the pair and reports whether a row was created.
	Add(ctx context.Context, kind models.RelationKind, userID, recipeID uint) (bool, error)
	// Remove deletes the pair and reports whether a row existed.
	Remove(ctx context.Context, kind models.RelationKind, userID, recipeID uint) (bool, error)
	Has(ctx context.Context, kind models.RelationKind, userID, recipeID uint) (bool, error)
	// MemberRecipeIDs returns which of recipeIDs the user has in the relation.
	MemberRecipeIDs(ctx context.Context, kind models.RelationKind, userID uint, recipeIDs []uint) (map[uint]bool, error)
}

type relationRepository struct {
	db *gorm.DB
}

// NewRelationRepository returns a new RelationRepository implementation.
func NewRelationRepository(db *gorm.DB) RelationRepository {
	return &relationRepository{db: db}
}

func (r *relationRepository) Add(ctx context.Context, kind models.RelationKind, userID, recipeID uint) (bool, error) {
	if !kind.Valid() {
		return false, models.NewInternalError(fmt.Errorf("unknown relation %q", kind))
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(kind.Row(userID, recipeID))
	if res.Error != nil {
		if isUniqueConstraintError(res.Error) {
			return false, nil
		}
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *relationRepository) Remove(ctx context.Context, kind models.RelationKind, userID, recipeID uint) (bool, error) {
	if !kind.Valid() {
		return false, models.NewInternalError(fmt.Errorf("unknown relation %q", kind))
	}
	res := r.db.WithContext(ctx).
		Table(kind.Table()).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(kind.Row(0, 0))
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *relationRepository) Has(ctx context.Context, kind models.RelationKind, userID, recipeID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table(kind.Table()).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *relationRepository) MemberRecipeIDs(ctx context.Context, kind models.RelationKind, userID uint, recipeIDs []uint) (map[uint]bool, error) {
	out := make(map[uint]bool, len(recipeIDs))
	if userID == 0 || len(recipeIDs) == 0 {
		return out, nil
	}
	var ids []uint
	err := reader(ctx, r.db).
		Table(kind.Table()).
		Where("user_id = ? AND recipe_id IN ?", userID, recipeIDs).
		Pluck("recipe_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}
