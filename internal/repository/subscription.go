package repository

import (
	"context"

	"foodgram/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubscriptionRepository manages user -> author follow edges.
type SubscriptionRepository interface {
	Create(ctx context.Context, userID, authorID uint) (bool, error)
	Delete(ctx context.Context, userID, authorID uint) (bool, error)
	Exists(ctx context.Context, userID, authorID uint) (bool, error)
	// SubscribedAuthorIDs returns which of authorIDs userID follows.
	SubscribedAuthorIDs(ctx context.Context, userID uint, authorIDs []uint) (map[uint]bool, error)
	// ListAuthors pages through the authors userID follows, newest follow first.
	ListAuthors(ctx context.Context, userID uint, limit, offset int) ([]models.User, int64, error)
}

type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository returns a new SubscriptionRepository implementation.
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Create(ctx context.Context, userID, authorID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Subscription{UserID: userID, AuthorID: authorID})
	if res.Error != nil {
		if isUniqueConstraintError(res.Error) {
			return false, nil
		}
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *subscriptionRepository) Delete(ctx context.Context, userID, authorID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Delete(&models.Subscription{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *subscriptionRepository) Exists(ctx context.Context, userID, authorID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *subscriptionRepository) SubscribedAuthorIDs(ctx context.Context, userID uint, authorIDs []uint) (map[uint]bool, error) {
	out := make(map[uint]bool, len(authorIDs))
	if userID == 0 || len(authorIDs) == 0 {
		return out, nil
	}
	var ids []uint
	err := reader(ctx, r.db).Model(&models.Subscription{}).
		Where("user_id = ? AND author_id IN ?", userID, authorIDs).
		Pluck("author_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (r *subscriptionRepository) ListAuthors(ctx context.Context, userID uint, limit, offset int) ([]models.User, int64, error) {
	var (
		authors []models.User
		total   int64
	)
	db := reader(ctx, r.db)
	if err := db.Model(&models.Subscription{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	err := db.Model(&models.User{}).
		Joins("JOIN subscriptions ON subscriptions.author_id = users.id").
		Where("subscriptions.user_id = ?", userID).
		Order("subscriptions.id DESC").
		Limit(limit).Offset(offset).
		Find(&authors).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return authors, total, nil
}
