package service

import (
	"context"
	"strings"

	"foodgram/internal/models"
	"foodgram/internal/repository"
)

// ReferenceService serves the read-only tag and ingredient catalogues.
type ReferenceService struct {
	tagRepo        repository.TagRepository
	ingredientRepo repository.IngredientRepository
}

func NewReferenceService(tagRepo repository.TagRepository, ingredientRepo repository.IngredientRepository) *ReferenceService {
	return &ReferenceService{tagRepo: tagRepo, ingredientRepo: ingredientRepo}
}

func (s *ReferenceService) ListTags(ctx context.Context) ([]models.Tag, error) {
	return s.tagRepo.List(ctx)
}

func (s *ReferenceService) GetTag(ctx context.Context, id uint) (*models.Tag, error) {
	return s.tagRepo.GetByID(ctx, id)
}

// SearchIngredients matches a case-insensitive name prefix. An empty
// prefix lists everything.
func (s *ReferenceService) SearchIngredients(ctx context.Context, name string) ([]models.Ingredient, error) {
	return s.ingredientRepo.Search(ctx, strings.TrimSpace(name))
}

func (s *ReferenceService) GetIngredient(ctx context.Context, id uint) (*models.Ingredient, error) {
	return s.ingredientRepo.GetByID(ctx, id)
}
