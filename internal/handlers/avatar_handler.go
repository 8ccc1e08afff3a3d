package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/httpx"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/models"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/service"
	"go.uber.org/zap"
)

// avatarFormField is the multipart field carrying the image.
const avatarFormField = "avatar"

// AvatarHandler manages the caller's own profile picture.
type AvatarHandler struct {
	avatars *service.AvatarService
	log     *zap.Logger
}

func NewAvatarHandler(avatars *service.AvatarService, log *zap.Logger) *AvatarHandler {
	return &AvatarHandler{avatars: avatars, log: log}
}

// UploadMyAvatar handles POST /users/me/avatar (multipart, field "avatar").
func (h *AvatarHandler) UploadMyAvatar(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	upload, err := c.FormFile(avatarFormField)
	if err != nil {
		return httpx.BadRequest(c, "missing_avatar", "avatar file is required")
	}
	if upload.Size == 0 {
		return httpx.BadRequest(c, "invalid_avatar", "avatar file is empty")
	}
	body, err := upload.Open()
	if err != nil {
		return httpx.BadRequest(c, "invalid_avatar", "Invalid avatar upload")
	}
	defer body.Close()

	return h.respond(c, func() (*models.User, error) {
		return h.avatars.UploadAvatar(c.UserContext(), userID, body)
	})
}

// DeleteMyAvatar handles DELETE /users/me/avatar.
func (h *AvatarHandler) DeleteMyAvatar(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	return h.respond(c, func() (*models.User, error) {
		return h.avatars.DeleteAvatar(c.UserContext(), userID)
	})
}

func (h *AvatarHandler) respond(c *fiber.Ctx, op func() (*models.User, error)) error {
	user, err := op()
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"user": user.ToResponse()})
}
