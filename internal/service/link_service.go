package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"foodgram/internal/featureflags"
	"foodgram/internal/models"
	"foodgram/internal/repository"
)

// LinkService builds shareable recipe links.
type LinkService struct {
	recipeRepo    repository.RecipeRepository
	flags         *featureflags.Manager
	publicBaseURL string
	frontendURL   string
}

func NewLinkService(recipeRepo repository.RecipeRepository, flags *featureflags.Manager, publicBaseURL, frontendURL string) *LinkService {
	return &LinkService{
		recipeRepo:    recipeRepo,
		flags:         flags,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		frontendURL:   strings.TrimRight(frontendURL, "/"),
	}
}

// RecipeLink returns the link handed out by get-link. With the short_links
// flag on it is PUBLIC_BASE_URL/s/{code}; otherwise the absolute API URL.
func (s *LinkService) RecipeLink(ctx context.Context, viewerID, recipeID uint) (string, error) {
	exists, err := s.recipeRepo.Exists(ctx, recipeID)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", models.NewNotFoundError("Recipe", recipeID)
	}

	if s.flags.Enabled(featureflags.ShortLinks, viewerID) {
		return fmt.Sprintf("%s/s/%s", s.publicBaseURL, EncodeShortCode(recipeID)), nil
	}
	return fmt.Sprintf("%s/api/recipes/%d/", s.publicBaseURL, recipeID), nil
}

// ResolveShortLink maps a short code to the frontend recipe page.
func (s *LinkService) ResolveShortLink(ctx context.Context, code string) (string, error) {
	id, ok := DecodeShortCode(code)
	if !ok {
		return "", models.NewNotFoundError("Short link", code)
	}
	exists, err := s.recipeRepo.Exists(ctx, id)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", models.NewNotFoundError("Recipe", id)
	}
	return fmt.Sprintf("%s/recipes/%d", s.frontendURL, id), nil
}

// EncodeShortCode renders a recipe id in base 36.
func EncodeShortCode(id uint) string {
	return strconv.FormatUint(uint64(id), 36)
}

func DecodeShortCode(code string) (uint, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" || len(code) > 12 {
		return 0, false
	}
	n, err := strconv.ParseUint(code, 36, 64)
	if err != nil || n == 0 || uint64(uint(n)) != n {
		return 0, false
	}
	return uint(n), true
}
