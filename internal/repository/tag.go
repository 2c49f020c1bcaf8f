package repository

import (
	"context"
	"errors"

	"foodgram/internal/cache"
	"foodgram/internal/models"

	lru "github.com/hashicorp/golang-lru"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const tagLRUSize = 256

// TagRepository reads tags. Tags change only through fixtures, so slug and
// id lookups are served from an in-process LRU.
type TagRepository interface {
	List(ctx context.Context) ([]models.Tag, error)
	GetByID(ctx context.Context, id uint) (*models.Tag, error)
	IDsBySlugs(ctx context.Context, slugs []string) ([]uint, error)
	ExistingIDs(ctx context.Context, ids []uint) ([]uint, error)
	Upsert(ctx context.Context, tags []models.Tag) (int64, error)
}

type tagRepository struct {
	db     *gorm.DB
	byID   *lru.Cache
	bySlug *lru.Cache
}

// NewTagRepository returns a new TagRepository implementation.
func NewTagRepository(db *gorm.DB) TagRepository {
	byID, _ := lru.New(tagLRUSize)
	bySlug, _ := lru.New(tagLRUSize)
	return &tagRepository{db: db, byID: byID, bySlug: bySlug}
}

func (r *tagRepository) List(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	err := cache.Aside(ctx, cache.TagListKey, &tags, cache.TagTTL, func() error {
		if err := reader(ctx, r.db).Order("id ASC").Find(&tags).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i := range tags {
		r.remember(tags[i])
	}
	return tags, nil
}

func (r *tagRepository) GetByID(ctx context.Context, id uint) (*models.Tag, error) {
	if v, ok := r.byID.Get(id); ok {
		tag := v.(models.Tag)
		return &tag, nil
	}

	var tag models.Tag
	if err := reader(ctx, r.db).First(&tag, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Tag", id)
		}
		return nil, models.NewInternalError(err)
	}
	r.remember(tag)
	return &tag, nil
}

// IDsBySlugs resolves slugs to ids. Unknown slugs are skipped.
func (r *tagRepository) IDsBySlugs(ctx context.Context, slugs []string) ([]uint, error) {
	ids := make([]uint, 0, len(slugs))
	var missing []string
	for _, slug := range slugs {
		if v, ok := r.bySlug.Get(slug); ok {
			ids = append(ids, v.(uint))
			continue
		}
		missing = append(missing, slug)
	}

	if len(missing) > 0 {
		var found []models.Tag
		if err := reader(ctx, r.db).Where("slug IN ?", missing).Find(&found).Error; err != nil {
			return nil, models.NewInternalError(err)
		}
		for _, tag := range found {
			r.remember(tag)
			ids = append(ids, tag.ID)
		}
	}
	return uniqueIDs(ids), nil
}

func (r *tagRepository) ExistingIDs(ctx context.Context, ids []uint) ([]uint, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	var found []uint
	if err := reader(ctx, r.db).Model(&models.Tag{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return found, nil
}

// Upsert inserts tags, skipping any whose slug already exists, and returns
// the number of rows created.
func (r *tagRepository) Upsert(ctx context.Context, tags []models.Tag) (int64, error) {
	if len(tags) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "slug"}}, DoNothing: true}).
		Create(&tags)
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}

	r.byID.Purge()
	r.bySlug.Purge()
	cache.InvalidateTags(ctx)
	return res.RowsAffected, nil
}

func (r *tagRepository) remember(tag models.Tag) {
	r.byID.Add(tag.ID, tag)
	r.bySlug.Add(tag.Slug, tag.ID)
}
