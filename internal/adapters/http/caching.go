package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on
// endpoint. Adds sensible defaults if not already set by the handler.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		// Only set on GET requests
		if c.Method() != "GET" {
			return err
		}

		// Don't override if already set
		if existing := c.Get("Cache-Control"); existing != "" {
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10"

		case path == "/metrics":
			ttl = "no-cache"

		case path == "/graphql":
			ttl = "private, max-age=0"

		case strings.HasPrefix(path, "/v1/stop-places"):
			ttl = "public, max-age=3600" // Stop-place registry is near-static

		case strings.HasPrefix(path, "/v1/operators"):
			ttl = "public, max-age=3600" // Scheme config changes with deploys

		case strings.HasPrefix(path, "/v1/journeys"):
			ttl = "private, max-age=30" // Delay evidence moves quickly

		case strings.HasPrefix(path, "/v1/tickets"):
			ttl = "private, max-age=0" // Per-user data, never shared caches

		case strings.HasPrefix(path, "/v1/"):
			ttl = "private, max-age=60"
		}

		if ttl != "" {
			c.Set("Cache-Control", ttl)
		}

		return err
	}
}
