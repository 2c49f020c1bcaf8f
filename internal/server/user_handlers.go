package server

import (
	"strconv"

	"foodgram/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Register handles POST /api/users
// @Summary Register a new user
// @Tags users
// @Accept json
// @Produce json
// @Param request body service.RegisterInput true "Registration"
// @Success 201 {object} RegisteredUserResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /users [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req service.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return badRequestBody(c)
	}

	user, err := s.userService.Register(c.UserContext(), req)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(RegisteredUserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	})
}

// ListUsers handles GET /api/users
// @Summary List users
// @Tags users
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} Page
// @Router /users [get]
func (s *Server) ListUsers(c *fiber.Ctx) error {
	p, err := parsePagination(c)
	if err != nil {
		return nil
	}

	users, total, err := s.userService.ListUsers(c.UserContext(), userIDFromLocals(c), p.Limit, p.Offset)
	if err != nil {
		return mapServiceError(c, err)
	}
	return respondPage(c, p, total, toUserResponses(users), len(users))
}

// GetMe handles GET /api/users/me
// @Summary Current user
// @Tags users
// @Security TokenAuth
// @Produce json
// @Success 200 {object} UserResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /users/me [get]
func (s *Server) GetMe(c *fiber.Ctx) error {
	userID := userIDFromLocals(c)
	user, err := s.userService.GetUser(c.UserContext(), userID, userID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(toUserResponse(*user))
}

// GetUserProfile handles GET /api/users/:id
// @Summary Get a user
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} UserResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	user, err := s.userService.GetUser(c.UserContext(), userIDFromLocals(c), id)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(toUserResponse(*user))
}

// SetPassword handles POST /api/users/set_password
// @Summary Change password
// @Tags users
// @Security TokenAuth
// @Accept json
// @Param request body service.SetPasswordInput true "Passwords"
// @Success 204
// @Failure 400 {object} models.ErrorResponse
// @Router /users/set_password [post]
func (s *Server) SetPassword(c *fiber.Ctx) error {
	var req service.SetPasswordInput
	if err := c.BodyParser(&req); err != nil {
		return badRequestBody(c)
	}
	req.UserID = userIDFromLocals(c)

	if err := s.userService.SetPassword(c.UserContext(), req); err != nil {
		return mapServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SetAvatar handles PUT /api/users/me/avatar
// @Summary Upload avatar
// @Tags users
// @Security TokenAuth
// @Accept json
// @Produce json
// @Param request body object{avatar=string} true "Base64 image"
// @Success 200 {object} object{avatar=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /users/me/avatar [put]
func (s *Server) SetAvatar(c *fiber.Ctx) error {
	var req struct {
		Avatar string `json:"avatar"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequestBody(c)
	}

	url, err := s.userService.SetAvatar(c.UserContext(), userIDFromLocals(c), req.Avatar)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"avatar": url})
}

// DeleteAvatar handles DELETE /api/users/me/avatar
func (s *Server) DeleteAvatar(c *fiber.Ctx) error {
	if err := s.userService.DeleteAvatar(c.UserContext(), userIDFromLocals(c)); err != nil {
		return mapServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListSubscriptions handles GET /api/users/subscriptions
// @Summary Followed authors
// @Tags users
// @Security TokenAuth
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param recipes_limit query int false "Recipes per author"
// @Success 200 {object} Page
// @Router /users/subscriptions [get]
func (s *Server) ListSubscriptions(c *fiber.Ctx) error {
	p, err := parsePagination(c)
	if err != nil {
		return nil
	}

	cards, total, err := s.subscriptionService.ListSubscriptions(
		c.UserContext(), userIDFromLocals(c), p.Limit, p.Offset, recipesLimit(c))
	if err != nil {
		return mapServiceError(c, err)
	}
	return respondPage(c, p, total, toAuthorCards(cards), len(cards))
}

// Subscribe handles POST /api/users/:id/subscribe
// @Summary Follow an author
// @Tags users
// @Security TokenAuth
// @Produce json
// @Param id path int true "Author ID"
// @Param recipes_limit query int false "Recipes in the card"
// @Success 201 {object} AuthorCardResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/subscribe [post]
func (s *Server) Subscribe(c *fiber.Ctx) error {
	authorID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	card, err := s.subscriptionService.Subscribe(c.UserContext(), userIDFromLocals(c), authorID, recipesLimit(c))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toAuthorCard(*card))
}

// Unsubscribe handles DELETE /api/users/:id/subscribe
func (s *Server) Unsubscribe(c *fiber.Ctx) error {
	authorID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.subscriptionService.Unsubscribe(c.UserContext(), userIDFromLocals(c), authorID); err != nil {
		return mapServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// recipesLimit reads recipes_limit. Missing, malformed or negative values
// mean no limit; 0 embeds no recipes.
func recipesLimit(c *fiber.Ctx) int {
	n, err := strconv.Atoi(c.Query("recipes_limit"))
	if err != nil || n < 0 {
		return service.AllRecipes
	}
	return n
}
