package service

import (
	"context"
	"fmt"

	"foodgram/internal/models"
	"foodgram/internal/observability"
	"foodgram/internal/repository"
)

// RelationService toggles favorites and shopping cart membership.
type RelationService struct {
	recipeRepo   repository.RecipeRepository
	relationRepo repository.RelationRepository
}

func NewRelationService(recipeRepo repository.RecipeRepository, relationRepo repository.RelationRepository) *RelationService {
	return &RelationService{recipeRepo: recipeRepo, relationRepo: relationRepo}
}

// Add puts the recipe into the user's list and returns it. A recipe that
// is already there is a validation error.
func (s *RelationService) Add(ctx context.Context, kind models.RelationKind, userID, recipeID uint) (*models.Recipe, error) {
	recipe, err := s.recipeRepo.GetByID(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	exists, err := s.relationRepo.Has(ctx, kind, userID, recipeID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, alreadyInList(kind)
	}
	created, err := s.relationRepo.Add(ctx, kind, userID, recipeID)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, alreadyInList(kind)
	}

	observability.RelationToggles.WithLabelValues(string(kind), "add").Inc()
	return recipe, nil
}

func (s *RelationService) Remove(ctx context.Context, kind models.RelationKind, userID, recipeID uint) error {
	exists, err := s.recipeRepo.Exists(ctx, recipeID)
	if err != nil {
		return err
	}
	if !exists {
		return models.NewNotFoundError("Recipe", recipeID)
	}

	removed, err := s.relationRepo.Remove(ctx, kind, userID, recipeID)
	if err != nil {
		return err
	}
	if !removed {
		return models.NewValidationError(fmt.Sprintf("Recipe is not in %s", kind.Label()))
	}

	observability.RelationToggles.WithLabelValues(string(kind), "remove").Inc()
	return nil
}

func alreadyInList(kind models.RelationKind) error {
	return models.NewValidationError(fmt.Sprintf("Recipe is already in %s", kind.Label()))
}
