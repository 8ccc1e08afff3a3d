package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/httpx"
)

// RequireRole lets a request through when the token's platform role is one of roles.
// It must run after AuthRequired.
func RequireRole(roles ...string) fiber.Handler {
	permitted := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		permitted[strings.ToLower(strings.TrimSpace(r))] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("role").(string)
		if _, ok := permitted[strings.ToLower(role)]; !ok {
			return httpx.Forbidden(c, "forbidden", "Insufficient permissions")
		}
		return c.Next()
	}
}
