package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/httpx"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/service"
)

const (
	AccessCookie = "sg_access"
	CSRFCookie   = "sg_csrf"
	CSRFHeader   = "X-SG-CSRF"
)

// TokenParser verifies access tokens.
type TokenParser interface {
	ParseToken(raw string) (*service.Claims, error)
}

// AuthRequired accepts a bearer token, falling back to the access cookie.
func AuthRequired(parser TokenParser) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		var tokenString string
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				return httpx.Unauthorized(c, "invalid_authorization", "Invalid authorization format")
			}
			tokenString = parts[1]
		} else {
			tokenString = c.Cookies(AccessCookie)
		}
		return authenticate(c, parser, tokenString)
	}
}

// WebSocketAuth also accepts ?token=, since browsers cannot set headers on upgrade.
func WebSocketAuth(parser TokenParser) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := strings.TrimPrefix(c.Get("Authorization"), "Bearer ")
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			tokenString = c.Cookies(AccessCookie)
		}
		return authenticate(c, parser, tokenString)
	}
}

func authenticate(c *fiber.Ctx, parser TokenParser, tokenString string) error {
	if tokenString == "" {
		return httpx.Unauthorized(c, "missing_access_token", "Missing access token")
	}

	claims, err := parser.ParseToken(tokenString)
	if err != nil {
		return httpx.Unauthorized(c, "invalid_access_token", "Invalid or expired token")
	}

	c.Locals("userID", claims.UserID)
	c.Locals("email", claims.Email)
	c.Locals("role", claims.Role)

	return c.Next()
}
