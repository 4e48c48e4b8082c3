package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/contentpilot/api/pkg/response"
)

// HeaderIdempotencyKey lets clients retry a create safely
const HeaderIdempotencyKey = "Idempotency-Key"

const maxIdempotencyKeyLength = 255

// IdempotencyKey validates the Idempotency-Key header and scopes it to the
// caller, so two users sending the same key never collide
func IdempotencyKey() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := strings.TrimSpace(c.Get(HeaderIdempotencyKey))
		if key == "" {
			return c.Next()
		}
		if len(key) > maxIdempotencyKeyLength {
			return response.ValidationError(c, "Idempotency-Key is too long", fiber.Map{
				"maxLength": maxIdempotencyKeyLength,
			})
		}

		scope := GetUserID(c)
		if scope == "" {
			scope = "anonymous"
		}
		c.Locals("idempotencyKey", scope+":"+key)
		return c.Next()
	}
}

// GetIdempotencyKey returns the scoped idempotency key, or ""
func GetIdempotencyKey(c *fiber.Ctx) string {
	if key, ok := c.Locals("idempotencyKey").(string); ok {
		return key
	}
	return ""
}
