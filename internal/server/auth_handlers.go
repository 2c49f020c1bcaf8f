package server

import (
	"time"

	"foodgram/internal/middleware"
	"foodgram/internal/models"

	"github.com/gofiber/fiber/v2"
)

const defaultTokenTTL = 24 * time.Hour

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/token/login
// @Summary Obtain an auth token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body loginRequest true "Login credentials"
// @Success 200 {object} object{auth_token=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/token/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequestBody(c)
	}

	user, err := s.userService.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return mapServiceError(c, err)
	}

	token, _, err := middleware.IssueToken(s.config.JWTSecret, user.ID, s.tokenTTL())
	if err != nil {
		return mapServiceError(c, models.NewInternalError(err))
	}

	middleware.Logger.InfoContext(c.UserContext(), "user logged in", "user_id", user.ID)
	return c.JSON(fiber.Map{"auth_token": token})
}

// Logout handles POST /api/auth/token/logout
// @Summary Revoke the current token
// @Tags auth
// @Security TokenAuth
// @Success 204
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/token/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	claims, ok := c.Locals("tokenClaims").(*middleware.TokenClaims)
	if ok {
		if err := middleware.RevokeToken(c.UserContext(), s.redis, claims); err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "token revocation failed",
				"user_id", claims.UserID, "error", err)
		}
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) tokenTTL() time.Duration {
	if s.config.TokenTTLHours > 0 {
		return time.Duration(s.config.TokenTTLHours) * time.Hour
	}
	return defaultTokenTTL
}
