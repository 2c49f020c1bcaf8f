package service

import (
	"context"

	"foodgram/internal/models"
	"foodgram/internal/observability"
	"foodgram/internal/repository"
)

// AllRecipes asks for every recipe of each author card.
const AllRecipes = -1

type SubscriptionService struct {
	userRepo   repository.UserRepository
	subRepo    repository.SubscriptionRepository
	recipeRepo repository.RecipeRepository
}

func NewSubscriptionService(userRepo repository.UserRepository, subRepo repository.SubscriptionRepository, recipeRepo repository.RecipeRepository) *SubscriptionService {
	return &SubscriptionService{userRepo: userRepo, subRepo: subRepo, recipeRepo: recipeRepo}
}

// Subscribe makes userID follow authorID and returns the author card.
// A negative recipesLimit (AllRecipes) embeds every recipe; zero embeds none.
func (s *SubscriptionService) Subscribe(ctx context.Context, userID, authorID uint, recipesLimit int) (*models.AuthorCard, error) {
	if userID == authorID {
		return nil, models.NewValidationError("You cannot subscribe to yourself")
	}
	author, err := s.userRepo.GetByID(ctx, authorID)
	if err != nil {
		return nil, err
	}

	exists, err := s.subRepo.Exists(ctx, userID, authorID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.NewValidationError("You are already subscribed to this author")
	}
	created, err := s.subRepo.Create(ctx, userID, authorID)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, models.NewValidationError("You are already subscribed to this author")
	}

	observability.RelationToggles.WithLabelValues("subscription", "add").Inc()

	author.IsSubscribed = true
	cards, err := s.buildCards(ctx, []models.User{*author}, recipesLimit)
	if err != nil {
		return nil, err
	}
	return &cards[0], nil
}

func (s *SubscriptionService) Unsubscribe(ctx context.Context, userID, authorID uint) error {
	if userID == authorID {
		return models.NewValidationError("You cannot unsubscribe from yourself")
	}
	if _, err := s.userRepo.GetByID(ctx, authorID); err != nil {
		return err
	}
	removed, err := s.subRepo.Delete(ctx, userID, authorID)
	if err != nil {
		return err
	}
	if !removed {
		return models.NewValidationError("You are not subscribed to this author")
	}
	observability.RelationToggles.WithLabelValues("subscription", "remove").Inc()
	return nil
}

// ListSubscriptions pages through the authors userID follows.
func (s *SubscriptionService) ListSubscriptions(ctx context.Context, userID uint, limit, offset, recipesLimit int) ([]models.AuthorCard, int64, error) {
	authors, total, err := s.subRepo.ListAuthors(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for i := range authors {
		authors[i].IsSubscribed = true
	}
	cards, err := s.buildCards(ctx, authors, recipesLimit)
	if err != nil {
		return nil, 0, err
	}
	return cards, total, nil
}

func (s *SubscriptionService) buildCards(ctx context.Context, authors []models.User, recipesLimit int) ([]models.AuthorCard, error) {
	cards := make([]models.AuthorCard, 0, len(authors))
	if len(authors) == 0 {
		return cards, nil
	}

	ids := make([]uint, 0, len(authors))
	for _, a := range authors {
		ids = append(ids, a.ID)
	}
	recipes := map[uint][]models.Recipe{}
	if recipesLimit != 0 {
		var err error
		recipes, err = s.recipeRepo.ListByAuthors(ctx, ids, max(recipesLimit, 0))
		if err != nil {
			return nil, err
		}
	}
	counts, err := s.recipeRepo.CountByAuthors(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, a := range authors {
		authorRecipes := recipes[a.ID]
		if authorRecipes == nil {
			authorRecipes = []models.Recipe{}
		}
		cards = append(cards, models.AuthorCard{
			User:         a,
			Recipes:      authorRecipes,
			RecipesCount: counts[a.ID],
		})
	}
	return cards, nil
}
