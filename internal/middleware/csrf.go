package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/httpx"
)

const (
	// CSRFModeToken requires the CSRF header to echo the CSRF cookie (double submit).
	CSRFModeToken = "token"
	// CSRFModeOrigin only checks the Origin allow-list.
	CSRFModeOrigin = "origin"
	CSRFModeOff    = "off"
)

func isSafeMethod(m string) bool {
	return m == fiber.MethodGet || m == fiber.MethodHead || m == fiber.MethodOptions
}

// CSRFRequired protects state-changing requests that authenticate with the
// session cookie. Bearer-token clients and requests without an Origin skip it.
func CSRFRequired(mode string, allowedOrigins []string) fiber.Handler {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		mode = CSRFModeToken
	}
	if mode == CSRFModeOff {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	set := newOriginSet(allowedOrigins)

	return func(c *fiber.Ctx) error {
		if isSafeMethod(c.Method()) || strings.HasPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ") {
			return c.Next()
		}
		origin := strings.TrimSpace(c.Get(fiber.HeaderOrigin))
		if origin == "" {
			return c.Next()
		}
		if !set.allows(origin) {
			return httpx.Forbidden(c, "forbidden_origin", "Origin not allowed")
		}
		if mode == CSRFModeOrigin {
			return c.Next()
		}

		cookie, header := c.Cookies(CSRFCookie), c.Get(CSRFHeader)
		switch {
		case cookie == "" || header == "":
			return httpx.Forbidden(c, "csrf_required", "Missing CSRF token")
		case subtle.ConstantTimeCompare([]byte(cookie), []byte(header)) != 1:
			return httpx.Forbidden(c, "csrf_invalid", "Invalid CSRF token")
		}
		return c.Next()
	}
}
