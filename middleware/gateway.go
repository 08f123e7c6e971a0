package middleware

import (
	"log"
	"os"
	"strings"

	"flixbits-rewards-service/logging"

	"github.com/gofiber/fiber/v2"
)

// GatewayAuthMiddleware validates the Bearer token from the Gateway. The
// rewards service is never exposed directly; every request must carry the
// shared service token.
func GatewayAuthMiddleware() fiber.Handler {
	expectedToken := os.Getenv("REWARDS_SERVICE_TOKEN")
	if expectedToken == "" {
		log.Fatal("REWARDS_SERVICE_TOKEN is not set — service cannot authenticate Gateway")
	}

	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			logging.Warn("missing gateway token", "path", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "gateway authentication token missing",
			})
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token != expectedToken {
			logging.Warn("invalid gateway token", "path", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid gateway authentication token",
			})
		}

		return c.Next()
	}
}
