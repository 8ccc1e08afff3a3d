package validation

import (
	"html"
	"net/mail"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

const (
	NameMinLength          = 2
	NameMaxLength          = 100
	GroupNameMaxLength     = 100
	DescriptionMaxLength   = 500
	CourseCodeMaxLength    = 20
	CourseNameMaxLength    = 100
	BioMaxLength           = 1000
	defaultPasswordMin     = 6
	defaultMaxMessageChars = 4000
)

// strict strips every tag; it is safe for concurrent use once built.
var strict = bluemonday.StrictPolicy()

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	_, err := mail.ParseAddress(email)
	return err == nil
}

func ValidateName(name string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	return n >= NameMinLength && n <= NameMaxLength
}

func PasswordMinLength() int {
	minStr := os.Getenv("PASSWORD_MIN_LENGTH")
	if minStr == "" {
		return defaultPasswordMin
	}
	min, err := strconv.Atoi(minStr)
	if err != nil || min < defaultPasswordMin {
		return defaultPasswordMin
	}
	return min
}

func ValidatePassword(password string) bool {
	return utf8.RuneCountInString(password) >= PasswordMinLength()
}

func MaxMessageLength() int {
	maxStr := os.Getenv("MAX_MESSAGE_LENGTH")
	if maxStr == "" {
		return defaultMaxMessageChars
	}
	max, err := strconv.Atoi(maxStr)
	if err != nil || max < 1 {
		return defaultMaxMessageChars
	}
	return max
}

// TrimAndLimit trims s and cuts it to at most max runes.
func TrimAndLimit(s string, max int) string {
	s = strings.TrimSpace(s)
	if max > 0 && utf8.RuneCountInString(s) > max {
		return string([]rune(s)[:max])
	}
	return s
}

// WithinLength reports whether s has at most max runes.
func WithinLength(s string, max int) bool {
	return utf8.RuneCountInString(s) <= max
}

// SanitizeText removes markup from free text shown to other users and trims it.
func SanitizeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// NormalizeCourseCode upper-cases a course code and collapses inner whitespace,
// so "cs  101" and "CS 101" collide.
func NormalizeCourseCode(code string) string {
	return strings.ToUpper(strings.Join(strings.Fields(code), " "))
}
