package middleware

import (
	"crypto/subtle"
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
)

// RequireAdminKey guards the admin-facing bot management routes with the
// shared key from ADMIN_API_KEY.
func RequireAdminKey() fiber.Handler {
	return func(c *fiber.Ctx) error {
		adminKey := os.Getenv("ADMIN_API_KEY")
		if adminKey == "" {
			// Log error but don't expose configuration details to the client
			log.Println("ERROR: ADMIN_API_KEY not set")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Server configuration error",
			})
		}

		provided := c.Get("X-Admin-Key")
		if provided == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing admin key",
			})
		}

		if subtle.ConstantTimeCompare([]byte(provided), []byte(adminKey)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid admin key",
			})
		}

		return c.Next()
	}
}
