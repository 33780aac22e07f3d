package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

const corsMaxAge = time.Hour

// CORS allows cross-origin GET requests from any origin. Links are created
// server side or from same-origin tools, so only reads are opened up.
func CORS() fiber.Handler {
	maxAge := strconv.Itoa(int(corsMaxAge.Seconds()))
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
		c.Set(fiber.HeaderAccessControlAllowMethods, fiber.MethodGet)
		c.Set(fiber.HeaderAccessControlMaxAge, maxAge)

		if c.Method() == fiber.MethodOptions {
			if h := c.Get(fiber.HeaderAccessControlRequestHeaders); h != "" {
				c.Set(fiber.HeaderAccessControlAllowHeaders, h)
			}
			return c.SendStatus(fiber.StatusNoContent)
		}

		return c.Next()
	}
}
