package service

import (
	"regexp"
	"strings"

	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/models"
)

// DefaultFileCaption is stored as content when a file is shared without a caption.
const DefaultFileCaption = "Shared a file"

var urlPattern = regexp.MustCompile(`(?i)^(https?://)?([\w-]+\.)+[\w-]+(/[\w- ./?%&=]*)?$`)

// LooksLikeURL reports whether plain content should be shown as a link.
func LooksLikeURL(content string) bool {
	content = strings.TrimSpace(content)
	if content == "" {
		return false
	}
	lower := strings.ToLower(content)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "www.") {
		return true
	}
	return urlPattern.MatchString(content)
}

// ResolveMessageType applies the declared type, defaulting to TEXT, and
// promotes TEXT content that looks like a URL to LINK.
func ResolveMessageType(declared models.MessageType, content string) models.MessageType {
	if declared == "" {
		declared = models.MessageText
	}
	if declared == models.MessageText && LooksLikeURL(content) {
		return models.MessageLink
	}
	return declared
}

// ClassifyMIME maps an uploaded file's MIME type to a message type. Rules are
// checked in order; anything unrecognised is TEXT.
func ClassifyMIME(mime string) models.MessageType {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}

	switch {
	case strings.HasPrefix(mime, "image/"):
		return models.MessageImage
	case mime == "application/pdf":
		return models.MessagePDF
	case mime == "application/msword",
		mime == "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		strings.Contains(mime, "word"):
		return models.MessageDocument
	case mime == "application/vnd.ms-excel",
		mime == "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		strings.Contains(mime, "excel"),
		strings.Contains(mime, "spreadsheet"):
		return models.MessageExcel
	case mime == "application/vnd.ms-powerpoint",
		mime == "application/vnd.openxmlformats-officedocument.presentationml.presentation",
		strings.Contains(mime, "powerpoint"),
		strings.Contains(mime, "presentation"):
		return models.MessagePowerPoint
	}
	return models.MessageText
}
