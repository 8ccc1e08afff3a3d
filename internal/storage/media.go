package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// ErrForeignURL is returned when asked to delete a URL this store did not issue.
var ErrForeignURL = errors.New("url does not belong to this media store")

// MediaStore persists uploaded bytes and hands back a URL clients can fetch.
type MediaStore interface {
	Store(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

var extRe = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)

// AvatarKey returns a fresh object key for a user's avatar.
func AvatarKey(userID uint) string {
	return fmt.Sprintf("avatars/%d/%s.jpg", userID, uuid.NewString())
}

// ChatFileKey returns a fresh object key for a file shared in a group chat,
// keeping a readable slug of the original name.
func ChatFileKey(groupID uint, filename string) string {
	filename = filepath.Base(strings.TrimSpace(filename))
	ext := strings.ToLower(filepath.Ext(filename))
	if !extRe.MatchString(ext) {
		ext = ""
	}
	base := slug.Make(strings.TrimSuffix(filename, filepath.Ext(filename)))
	if len(base) > 60 {
		base = strings.Trim(base[:60], "-")
	}
	if base == "" {
		base = "file"
	}
	return fmt.Sprintf("chat/%d/%s-%s%s", groupID, uuid.NewString(), base, ext)
}

// keyFromURL strips base from url, returning the object key.
func keyFromURL(base, url string) (string, error) {
	base = strings.TrimRight(base, "/") + "/"
	if base == "/" || !strings.HasPrefix(url, base) {
		return "", ErrForeignURL
	}
	key := strings.TrimPrefix(url, base)
	if key == "" {
		return "", ErrForeignURL
	}
	return key, nil
}
