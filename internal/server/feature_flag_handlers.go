package server

import "github.com/gofiber/fiber/v2"

// GetFeatureFlags returns the configured flags and their state for the
// current viewer, so the frontend knows whether short links are on.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	userID := userIDFromLocals(c)

	if s.featureFlags == nil {
		return c.JSON(fiber.Map{
			"raw":       map[string]string{},
			"evaluated": map[string]bool{},
			"instance":  hostname(),
		})
	}

	return c.JSON(fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(userID),
		"instance":  hostname(),
	})
}
