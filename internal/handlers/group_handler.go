package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/apperr"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/httpx"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/models"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/service"
	"go.uber.org/zap"
)

type GroupHandler struct {
	groupService *service.GroupService
	log          *zap.Logger
}

func NewGroupHandler(groupService *service.GroupService, log *zap.Logger) *GroupHandler {
	return &GroupHandler{groupService: groupService, log: log}
}

func (h *GroupHandler) CreateGroup(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	var input service.CreateGroupInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	group, err := h.groupService.CreateGroup(c.UserContext(), userID, input)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(group)
}

// ListGroups supports ?search= and ?course_id=.
func (h *GroupHandler) ListGroups(c *fiber.Ctx) error {
	var courseID *uint
	if raw := c.Query("course_id"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return httpx.FromError(c, h.log, apperr.Validation("Invalid course_id"))
		}
		id := uint(v)
		courseID = &id
	}

	groups, err := h.groupService.ListGroups(c.Query("search"), courseID)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"groups": groups})
}

func (h *GroupHandler) GetGroup(c *fiber.Ctx) error {
	groupID, err := httpx.ParamUint(c, "groupId")
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	group, err := h.groupService.GetGroup(groupID)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.JSON(group)
}

func (h *GroupHandler) GetMyGroups(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	groups, err := h.groupService.GetUserGroups(userID)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"groups": groups})
}

func (h *GroupHandler) GetRecommendedGroups(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	groups, err := h.groupService.GetRecommendedGroups(userID)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"groups": groups})
}

func (h *GroupHandler) UpdateGroup(c *fiber.Ctx) error {
	userID, groupID, err := h.userAndGroup(c)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	var input service.UpdateGroupInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	group, err := h.groupService.UpdateGroup(c.UserContext(), groupID, userID, input)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.JSON(group)
}

func (h *GroupHandler) DeleteGroup(c *fiber.Ctx) error {
	userID, groupID, err := h.userAndGroup(c)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	if err := h.groupService.DeleteGroup(c.UserContext(), groupID, userID); err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *GroupHandler) JoinGroup(c *fiber.Ctx) error {
	userID, groupID, err := h.userAndGroup(c)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	member, err := h.groupService.JoinGroup(c.UserContext(), userID, groupID)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}

	message := "Joined group successfully"
	if member.Status == models.StatusPending {
		message = "Join request sent"
	}
	return c.JSON(fiber.Map{"message": message, "membership": member})
}

func (h *GroupHandler) LeaveGroup(c *fiber.Ctx) error {
	userID, groupID, err := h.userAndGroup(c)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	result, err := h.groupService.LeaveGroup(c.UserContext(), userID, groupID)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"message": "Left group successfully", "group_deleted": result.GroupDeleted})
}

func (h *GroupHandler) GetMembership(c *fiber.Ctx) error {
	userID, groupID, err := h.userAndGroup(c)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	member, err := h.groupService.GetMembership(userID, groupID)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"membership": member})
}

func (h *GroupHandler) GetGroupMembers(c *fiber.Ctx) error {
	groupID, err := httpx.ParamUint(c, "groupId")
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	members, err := h.groupService.ListActiveMembers(groupID)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"members": members})
}

func (h *GroupHandler) GetPendingRequests(c *fiber.Ctx) error {
	userID, groupID, err := h.userAndGroup(c)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	requests, err := h.groupService.ListPendingRequests(groupID, userID)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"requests": requests})
}

type memberStatusRequest struct {
	Status models.MemberStatus `json:"status"`
}

// UpdateMemberStatus approves or rejects a pending join request.
func (h *GroupHandler) UpdateMemberStatus(c *fiber.Ctx) error {
	adminID, groupID, err := h.userAndGroup(c)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	targetID, err := httpx.ParamUint(c, "userId")
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	var req memberStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	member, err := h.groupService.UpdateMemberStatus(c.UserContext(), groupID, targetID, req.Status, adminID)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"membership": member})
}

func (h *GroupHandler) RemoveMember(c *fiber.Ctx) error {
	adminID, groupID, err := h.userAndGroup(c)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	targetID, err := httpx.ParamUint(c, "userId")
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	if err := h.groupService.RemoveMember(c.UserContext(), groupID, targetID, adminID); err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *GroupHandler) userAndGroup(c *fiber.Ctx) (uint, uint, error) {
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
