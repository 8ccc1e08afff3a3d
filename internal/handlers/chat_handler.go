package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/apperr"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/httpx"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/service"
	"go.uber.org/zap"
)

type ChatHandler struct {
	chatService    *service.ChatService
	maxUploadBytes int64
	log            *zap.Logger
}

func NewChatHandler(chatService *service.ChatService, maxUploadBytes int64, log *zap.Logger) *ChatHandler {
	return &ChatHandler{chatService: chatService, maxUploadBytes: maxUploadBytes, log: log}
}

// GetMessages returns ?page= (0-based) of ?size= messages, newest first.
func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	userID, groupID, err := h.userAndGroup(c)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}

	page := c.QueryInt("page", 0)
	size := c.QueryInt("size", service.DefaultHistoryPageSize)

	messages, err := h.chatService.GetHistory(groupID, userID, page, size)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.JSON(fiber.Map{
		"messages": messages,
		"count":    len(messages),
		"page":     page,
	})
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	userID, groupID, err := h.userAndGroup(c)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}

	var input service.SendMessageInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	message, err := h.chatService.SendMessage(c.UserContext(), groupID, userID, input)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(message)
}

// ShareFile records a file the client already uploaded elsewhere.
func (h *ChatHandler) ShareFile(c *fiber.Ctx) error {
	userID, groupID, err := h.userAndGroup(c)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}

	var input service.FileShareInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	message, err := h.chatService.ShareFile(c.UserContext(), groupID, userID, input)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(message)
}

func (h *ChatHandler) ShareLink(c *fiber.Ctx) error {
	userID, groupID, err := h.userAndGroup(c)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}

	var input service.LinkShareInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	message, err := h.chatService.ShareLink(c.UserContext(), groupID, userID, input)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(message)
}

// UploadFile accepts multipart field "file" and an optional "caption".
func (h *ChatHandler) UploadFile(c *fiber.Ctx) error {
	userID, groupID, err := h.userAndGroup(c)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return httpx.BadRequest(c, "missing_file", "file is required")
	}
	if fileHeader.Size <= 0 {
		return httpx.FromError(c, h.log, apperr.Validation("File is empty"))
	}
	if h.maxUploadBytes > 0 && fileHeader.Size > h.maxUploadBytes {
		return httpx.FromError(c, h.log, apperr.Validation(
			fmt.Sprintf("File exceeds the %d MB limit", h.maxUploadBytes>>20)))
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	f, err := fileHeader.Open()
	if err != nil {
		return httpx.BadRequest(c, "invalid_file", "Invalid file upload")
	}
	defer f.Close()

	message, err := h.chatService.UploadFile(c.UserContext(), groupID, userID,
		fileHeader.Filename, contentType, fileHeader.Size, f, c.FormValue("caption"))
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(message)
}

// GetOnlineMembers lists active members that currently hold a socket.
func (h *ChatHandler) GetOnlineMembers(c *fiber.Ctx) error {
	userID, groupID, err := h.userAndGroup(c)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}

	online, err := h.chatService.ListOnlineMembers(groupID, userID)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"online": online})
}

func (h *ChatHandler) userAndGroup(c *fiber.Ctx) (uint, uint, error) {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return 0, 0, fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}
	groupID, err := httpx.ParamUint(c, "groupId")
	if err != nil {
		return 0, 0, err
	}
	return userID, groupID, nil
}
