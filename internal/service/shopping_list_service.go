package service

import (
	"context"
	"fmt"
	"strings"

	"foodgram/internal/models"
	"foodgram/internal/observability"
	"foodgram/internal/repository"
)

const ShoppingListFilename = "shopping_list.txt"

type ShoppingListService struct {
	recipeRepo repository.RecipeRepository
}

func NewShoppingListService(recipeRepo repository.RecipeRepository) *ShoppingListService {
	return &ShoppingListService{recipeRepo: recipeRepo}
}

// Build renders the user's aggregated shopping list as plain text.
func (s *ShoppingListService) Build(ctx context.Context, userID uint) (string, error) {
	items, err := s.recipeRepo.AggregateShoppingCart(ctx, userID)
	if err != nil {
		return "", err
	}
	observability.ShoppingListDownloads.Inc()
	return FormatShoppingList(items), nil
}

// FormatShoppingList writes one line per item: name, unit in parentheses, then the total.
func FormatShoppingList(items []models.ShoppingListItem) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("%s (%s) — %d", item.Name, item.MeasurementUnit, item.TotalAmount))
	}
	return strings.Join(lines, "\n")
}
