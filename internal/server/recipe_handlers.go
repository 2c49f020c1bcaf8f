package server

import (
	"strconv"
	"strings"

	"foodgram/internal/models"
	"foodgram/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListRecipes handles GET /api/recipes
// @Summary List recipes
// @Tags recipes
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param tags query []string false "Tag slugs (OR)" collectionFormat(multi)
// @Param author query int false "Author ID"
// @Param is_favorited query int false "Only the viewer's favorites"
// @Param is_in_shopping_cart query int false "Only the viewer's shopping cart"
// @Success 200 {object} Page
// @Router /recipes [get]
func (s *Server) ListRecipes(c *fiber.Ctx) error {
	p, err := parsePagination(c)
	if err != nil {
		return nil
	}

	in := service.ListRecipesInput{
		ViewerID:         userIDFromLocals(c),
		TagSlugs:         tagSlugs(c),
		IsFavorited:      queryFlag(c, "is_favorited"),
		IsInShoppingCart: queryFlag(c, "is_in_shopping_cart"),
		Limit:            p.Limit,
		Offset:           p.Offset,
	}
	if raw := strings.TrimSpace(c.Query("author")); raw != "" {
		authorID, convErr := strconv.ParseUint(raw, 10, 64)
		if convErr != nil || authorID == 0 {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid author"))
		}
		in.AuthorID = uint(authorID)
	}

	recipes, total, err := s.recipeService.ListRecipes(c.UserContext(), in)
	if err != nil {
		return mapServiceError(c, err)
	}
	return respondPage(c, p, total, toRecipeResponses(recipes), len(recipes))
}

// GetRecipe handles GET /api/recipes/:id
// @Summary Get a recipe
// @Tags recipes
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 200 {object} RecipeResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /recipes/{id} [get]
func (s *Server) GetRecipe(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	recipe, err := s.recipeService.GetRecipe(c.UserContext(), userIDFromLocals(c), id)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(toRecipeResponse(*recipe))
}

// CreateRecipe handles POST /api/recipes
// @Summary Create a recipe
// @Tags recipes
// @Security TokenAuth
// @Accept json
// @Produce json
// @Param request body service.RecipeInput true "Recipe"
// @Success 201 {object} RecipeResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /recipes [post]
func (s *Server) CreateRecipe(c *fiber.Ctx) error {
	var req service.RecipeInput
	if err := c.BodyParser(&req); err != nil {
		return badRequestBody(c)
	}

	recipe, err := s.recipeService.CreateRecipe(c.UserContext(), userIDFromLocals(c), req)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toRecipeResponse(*recipe))
}

// UpdateRecipe handles PUT and PATCH /api/recipes/:id. Both verbs take the
// full tag and ingredient lists; the image may be omitted.
// @Summary Update a recipe
// @Tags recipes
// @Security TokenAuth
// @Accept json
// @Produce json
// @Param id path int true "Recipe ID"
// @Param request body service.RecipeInput true "Recipe"
// @Success 200 {object} RecipeResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /recipes/{id} [patch]
func (s *Server) UpdateRecipe(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req service.RecipeInput
	if err := c.BodyParser(&req); err != nil {
		return badRequestBody(c)
	}

	recipe, err := s.recipeService.UpdateRecipe(c.UserContext(), userIDFromLocals(c), id, req)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(toRecipeResponse(*recipe))
}

// DeleteRecipe handles DELETE /api/recipes/:id
// @Summary Delete a recipe
// @Tags recipes
// @Security TokenAuth
// @Param id path int true "Recipe ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /recipes/{id} [delete]
func (s *Server) DeleteRecipe(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.recipeService.DeleteRecipe(c.UserContext(), userIDFromLocals(c), id); err != nil {
		return mapServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetRecipeLink handles GET /api/recipes/:id/get-link
// @Summary Shareable link
// @Tags recipes
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 200 {object} object{short-link=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /recipes/{id}/get-link [get]
func (s *Server) GetRecipeLink(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	link, err := s.linkService.RecipeLink(c.UserContext(), userIDFromLocals(c), id)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"short-link": link})
}

// ResolveShortLink handles GET /s/:code and redirects to the frontend page.
func (s *Server) ResolveShortLink(c *fiber.Ctx) error {
	target, err := s.linkService.ResolveShortLink(c.UserContext(), c.Params("code"))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.Redirect(target, fiber.StatusFound)
}

// AddFavorite handles POST /api/recipes/:id/favorite
// @Summary Add to favorites
// @Tags recipes
// @Security TokenAuth
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 201 {object} ShortRecipeResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /recipes/{id}/favorite [post]
func (s *Server) AddFavorite(c *fiber.Ctx) error {
	return s.addRelation(c, models.RelationFavorite)
}

// RemoveFavorite handles DELETE /api/recipes/:id/favorite
func (s *Server) RemoveFavorite(c *fiber.Ctx) error {
	return s.removeRelation(c, models.RelationFavorite)
}

// AddToShoppingCart handles POST /api/recipes/:id/shopping_cart
// @Summary Add to shopping cart
// @Tags recipes
// @Security TokenAuth
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 201 {object} ShortRecipeResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /recipes/{id}/shopping_cart [post]
func (s *Server) AddToShoppingCart(c *fiber.Ctx) error {
	return s.addRelation(c, models.RelationShoppingCart)
}

// RemoveFromShoppingCart handles DELETE /api/recipes/:id/shopping_cart
func (s *Server) RemoveFromShoppingCart(c *fiber.Ctx) error {
	return s.removeRelation(c, models.RelationShoppingCart)
}

func (s *Server) addRelation(c *fiber.Ctx, kind models.RelationKind) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	recipe, err := s.relationService.Add(c.UserContext(), kind, userIDFromLocals(c), id)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toShortRecipe(*recipe))
}

func (s *Server) removeRelation(c *fiber.Ctx, kind models.RelationKind) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.relationService.Remove(c.UserContext(), kind, userIDFromLocals(c), id); err != nil {
		return mapServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DownloadShoppingCart handles GET /api/recipes/download_shopping_cart
// @Summary Download the shopping list
// @Tags recipes
// @Security TokenAuth
// @Produce plain
// @Success 200 {string} string
// @Router /recipes/download_shopping_cart [get]
func (s *Server) DownloadShoppingCart(c *fiber.Ctx) error {
	list, err := s.shoppingService.Build(c.UserContext(), userIDFromLocals(c))
	if err != nil {
		return mapServiceError(c, err)
	}

	c.Attachment(service.ShoppingListFilename)
	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	return c.SendString(list)
}

// tagSlugs collects every tags=<slug> value; tags=a,b is accepted too.
func tagSlugs(c *fiber.Ctx) []string {
	var out []string
	for _, raw := range c.Context().QueryArgs().PeekMulti("tags") {
		for _, slug := range strings.Split(string(raw), ",") {
			if slug = strings.TrimSpace(slug); slug != "" {
				out = append(out, slug)
			}
		}
	}
	return out
}
