package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/httpx"
)

// originSet is an allow-list of browser origins. A "*" entry admits everything;
// an empty set enforces nothing.
type originSet struct {
	any     bool
	origins map[string]struct{}
}

func newOriginSet(list []string) originSet {
	s := originSet{origins: make(map[string]struct{}, len(list))}
	for _, o := range list {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			s.any = true
		}
		if o != "" {
			s.origins[o] = struct{}{}
		}
	}
	return s
}

func (s originSet) enforced() bool { return len(s.origins) > 0 }

func (s originSet) allows(origin string) bool {
	if s.any || !s.enforced() {
		return true
	}
	_, ok := s.origins[strings.TrimRight(origin, "/")]
	return ok
}

// OriginAllowed rejects browser requests from origins outside the list.
// Requests without an Origin header are not browser-initiated and pass.
func OriginAllowed(allowedOrigins []string) fiber.Handler {
	set := newOriginSet(allowedOrigins)
	return func(c *fiber.Ctx) error {
		origin := strings.TrimSpace(c.Get(fiber.HeaderOrigin))
		if origin != "" && !set.allows(origin) {
			return httpx.Forbidden(c, "forbidden_origin", "Origin not allowed")
		}
		return c.Next()
	}
}

// SplitCSV turns "a, b,,c" into [a b c]; blank input yields nil.
func SplitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
