package server

import "github.com/gofiber/fiber/v2"

// ListTags handles GET /api/tags
// @Summary List tags
// @Tags reference
// @Produce json
// @Success 200 {array} TagResponse
// @Router /tags [get]
func (s *Server) ListTags(c *fiber.Ctx) error {
	tags, err := s.referenceService.ListTags(c.UserContext())
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(toTagResponses(tags))
}

// GetTag handles GET /api/tags/:id
func (s *Server) GetTag(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	tag, err := s.referenceService.GetTag(c.UserContext(), id)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(toTagResponse(*tag))
}

// ListIngredients handles GET /api/ingredients
// @Summary Search ingredients
// @Description Case-insensitive name prefix search
// @Tags reference
// @Produce json
// @Param name query string false "Name prefix"
// @Success 200 {array} IngredientResponse
// @Router /ingredients [get]
func (s *Server) ListIngredients(c *fiber.Ctx) error {
	items, err := s.referenceService.SearchIngredients(c.UserContext(), c.Query("name"))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(toIngredientResponses(items))
}

// GetIngredient handles GET /api/ingredients/:id
func (s *Server) GetIngredient(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	item, err := s.referenceService.GetIngredient(c.UserContext(), id)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(toIngredientResponse(*item))
}
