package service

import (
	"context"
	"fmt"
	"strings"

	"foodgram/internal/models"
	"foodgram/internal/repository"
	"foodgram/internal/validation"
)

// RecipeIngredientInput is one ingredient line of a recipe write.
type RecipeIngredientInput struct {
	ID     uint `json:"id" validate:"required"`
	Amount int  `json:"amount" validate:"gte=1,lte=32000"`
}

// RecipeInput is the body of create, PUT and PATCH. Tags and ingredients
// are required on every write; Image may be empty on update.
type RecipeInput struct {
	Ingredients []RecipeIngredientInput `json:"ingredients" validate:"required,min=1,unique=ID,dive"`
	Tags        []uint                  `json:"tags" validate:"required,min=1,unique,dive,gt=0"`
	Image       string                  `json:"image"`
	Name        string                  `json:"name" validate:"required,max=200"`
	Text        string                  `json:"text" validate:"required"`
	CookingTime int                     `json:"cooking_time" validate:"gte=1,lte=32000"`
}

// ListRecipesInput carries the recipe list query. ViewerID 0 is anonymous.
type ListRecipesInput struct {
	ViewerID         uint
	AuthorID         uint
	TagSlugs         []string
	IsFavorited      bool
	IsInShoppingCart bool
	Limit            int
	Offset           int
}

type RecipeService struct {
	recipeRepo     repository.RecipeRepository
	tagRepo        repository.TagRepository
	ingredientRepo repository.IngredientRepository
	relationRepo   repository.RelationRepository
	subRepo        repository.SubscriptionRepository
	media          *MediaService
}

func NewRecipeService(
	recipeRepo repository.RecipeRepository,
	tagRepo repository.TagRepository,
	ingredientRepo repository.IngredientRepository,
	relationRepo repository.RelationRepository,
	subRepo repository.SubscriptionRepository,
	media *MediaService,
) *RecipeService {
	return &RecipeService{
		recipeRepo:     recipeRepo,
		tagRepo:        tagRepo,
		ingredientRepo: ingredientRepo,
		relationRepo:   relationRepo,
		subRepo:        subRepo,
		media:          media,
	}
}

func (s *RecipeService) GetRecipe(ctx context.Context, viewerID, id uint) (*models.Recipe, error) {
	recipe, err := s.recipeRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	recipes := []models.Recipe{*recipe}
	if err := s.annotate(ctx, viewerID, recipes); err != nil {
		return nil, err
	}
	return &recipes[0], nil
}

func (s *RecipeService) ListRecipes(ctx context.Context, in ListRecipesInput) ([]models.Recipe, int64, error) {
	if (in.IsFavorited || in.IsInShoppingCart) && in.ViewerID == 0 {
		return []models.Recipe{}, 0, nil
	}

	filter := repository.RecipeFilter{
		AuthorID: in.AuthorID,
		Limit:    in.Limit,
		Offset:   in.Offset,
	}
	if in.IsFavorited {
		filter.FavoritedBy = in.ViewerID
	}
	if in.IsInShoppingCart {
		filter.InCartOf = in.ViewerID
	}

	slugs := make([]string, 0, len(in.TagSlugs))
	for _, slug := range in.TagSlugs {
		if slug = strings.TrimSpace(slug); slug != "" {
			slugs = append(slugs, slug)
		}
	}
	if len(slugs) > 0 {
		ids, err := s.tagRepo.IDsBySlugs(ctx, slugs)
		if err != nil {
			return nil, 0, err
		}
		if len(ids) == 0 {
			return []models.Recipe{}, 0, nil
		}
		filter.TagIDs = ids
	}

	recipes, total, err := s.recipeRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	if err := s.annotate(ctx, in.ViewerID, recipes); err != nil {
		return nil, 0, err
	}
	return recipes, total, nil
}

func (s *RecipeService) CreateRecipe(ctx context.Context, authorID uint, in RecipeInput) (*models.Recipe, error) {
	if strings.TrimSpace(in.Image) == "" {
		return nil, models.NewValidationError("image is required")
	}
	if err := s.validateInput(ctx, in); err != nil {
		return nil, err
	}

	imageURL, err := s.media.Store(ctx, MediaKindRecipe, in.Image)
	if err != nil {
		return nil, err
	}

	recipe := &models.Recipe{
		AuthorID:    authorID,
		Name:        in.Name,
		Image:       imageURL,
		Text:        in.Text,
		CookingTime: in.CookingTime,
	}
	if err := s.recipeRepo.Create(ctx, recipe, in.Tags, ingredientLines(in.Ingredients)); err != nil {
		s.media.Remove(ctx, imageURL)
		return nil, err
	}
	return s.GetRecipe(ctx, authorID, recipe.ID)
}

// UpdateRecipe replaces a recipe owned by userID. Ownership is checked
// before the body is validated.
func (s *RecipeService) UpdateRecipe(ctx context.Context, userID, id uint, in RecipeInput) (*models.Recipe, error) {
	existing, err := s.ownedRecipe(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.validateInput(ctx, in); err != nil {
		return nil, err
	}

	imageURL := ""
	if strings.TrimSpace(in.Image) != "" {
		imageURL, err = s.media.Store(ctx, MediaKindRecipe, in.Image)
		if err != nil {
			return nil, err
		}
	}

	recipe := &models.Recipe{
		ID:          id,
		AuthorID:    existing.AuthorID,
		Name:        in.Name,
		Image:       imageURL,
		Text:        in.Text,
		CookingTime: in.CookingTime,
	}
	if err := s.recipeRepo.Update(ctx, recipe, in.Tags, ingredientLines(in.Ingredients)); err != nil {
		if imageURL != "" {
			s.media.Remove(ctx, imageURL)
		}
		return nil, err
	}
	if imageURL != "" && imageURL != existing.Image {
		s.media.Remove(ctx, existing.Image)
	}
	return s.GetRecipe(ctx, userID, id)
}

func (s *RecipeService) DeleteRecipe(ctx context.Context, userID, id uint) error {
	existing, err := s.ownedRecipe(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.recipeRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.media.Remove(ctx, existing.Image)
	return nil
}

func (s *RecipeService) ownedRecipe(ctx context.Context, userID, id uint) (*models.Recipe, error) {
	recipe, err := s.recipeRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if recipe.AuthorID != userID {
		return nil, models.NewForbiddenError("You do not have permission to modify this recipe")
	}
	return recipe, nil
}

func (s *RecipeService) validateInput(ctx context.Context, in RecipeInput) error {
	if err := validation.ValidateStruct(in); err != nil {
		return models.NewValidationError(err.Error())
	}

	foundTags, err := s.tagRepo.ExistingIDs(ctx, in.Tags)
	if err != nil {
		return err
	}
	if missing := missingIDs(in.Tags, foundTags); len(missing) > 0 {
		return models.NewValidationError(fmt.Sprintf("Unknown tag id(s): %v", missing))
	}

	ingredientIDs := make([]uint, 0, len(in.Ingredients))
	for _, line := range in.Ingredients {
		ingredientIDs = append(ingredientIDs, line.ID)
	}
	foundIngredients, err := s.ingredientRepo.ExistingIDs(ctx, ingredientIDs)
	if err != nil {
		return err
	}
	if missing := missingIDs(ingredientIDs, foundIngredients); len(missing) > 0 {
		return models.NewValidationError(fmt.Sprintf("Unknown ingredient id(s): %v", missing))
	}
	return nil
}

// annotate fills is_favorited, is_in_shopping_cart and the author's
// is_subscribed for viewerID.
func (s *RecipeService) annotate(ctx context.Context, viewerID uint, recipes []models.Recipe) error {
	if viewerID == 0 || len(recipes) == 0 {
		return nil
	}

	recipeIDs := make([]uint, 0, len(recipes))
	authorIDs := make([]uint, 0, len(recipes))
	for _, r := range recipes {
		recipeIDs = append(recipeIDs, r.ID)
		authorIDs = append(authorIDs, r.AuthorID)
	}

	favorited, err := s.relationRepo.MemberRecipeIDs(ctx, models.RelationFavorite, viewerID, recipeIDs)
	if err != nil {
		return err
	}
	inCart, err := s.relationRepo.MemberRecipeIDs(ctx, models.RelationShoppingCart, viewerID, recipeIDs)
	if err != nil {
		return err
	}
	subscribed, err := s.subRepo.SubscribedAuthorIDs(ctx, viewerID, authorIDs)
	if err != nil {
		return err
	}

	for i := range recipes {
		recipes[i].IsFavorited = favorited[recipes[i].ID]
		recipes[i].IsInShoppingCart = inCart[recipes[i].ID]
		recipes[i].Author.IsSubscribed = subscribed[recipes[i].AuthorID]
	}
	return nil
}

func ingredientLines(in []RecipeIngredientInput) []models.RecipeIngredient {
	lines := make([]models.RecipeIngredient, 0, len(in))
	for _, line := range in {
		lines = append(lines, models.RecipeIngredient{IngredientID: line.ID, Amount: line.Amount})
	}
	return lines
}

func missingIDs(want, found []uint) []uint {
	seen := make(map[uint]struct{}, len(found))
	for _, id := range found {
		seen[id] = struct{}{}
	}
	var missing []uint
	for _, id := range want {
		if _, ok := seen[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
