package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/httpx"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/service"
	"go.uber.org/zap"
)

type CourseHandler struct {
	courseService *service.CourseService
	groupService  *service.GroupService
	log           *zap.Logger
}

func NewCourseHandler(courseService *service.CourseService, groupService *service.GroupService, log *zap.Logger) *CourseHandler {
	return &CourseHandler{courseService: courseService, groupService: groupService, log: log}
}

// ListCourses supports ?q= (code or name) and ?department=.
func (h *CourseHandler) ListCourses(c *fiber.Ctx) error {
	var (
		courses interface{}
		err     error
	)
	if dept := c.Query("department"); dept != "" {
		courses, err = h.courseService.ListByDepartment(dept)
	} else {
		courses, err = h.courseService.ListCourses(c.Query("q"))
	}
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"courses": courses})
}

func (h *CourseHandler) GetCourse(c *fiber.Ctx) error {
	courseID, err := httpx.ParamUint(c, "courseId")
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	course, err := h.courseService.GetCourse(courseID)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.JSON(course)
}

func (h *CourseHandler) CreateCourse(c *fiber.Ctx) error {
	var input service.CourseInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	course, err := h.courseService.CreateCourse(input)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(course)
}

func (h *CourseHandler) UpdateCourse(c *fiber.Ctx) error {
	courseID, err := httpx.ParamUint(c, "courseId")
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	var input service.CourseInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	course, err := h.courseService.UpdateCourse(courseID, input)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.JSON(course)
}

func (h *CourseHandler) DeleteCourse(c *fiber.Ctx) error {
	courseID, err := httpx.ParamUint(c, "courseId")
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	if err := h.courseService.DeleteCourse(courseID); err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CourseHandler) Enroll(c *fiber.Ctx) error {
	userID, courseID, err := h.userAndCourse(c)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	enrollment, err := h.courseService.Enroll(userID, courseID)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(enrollment)
}

func (h *CourseHandler) Unenroll(c *fiber.Ctx) error {
	userID, courseID, err := h.userAndCourse(c)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	if err := h.courseService.Unenroll(userID, courseID); err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CourseHandler) MyCourses(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	courses, err := h.courseService.ListEnrolledCourses(userID)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"courses": courses})
}

// MyPeers lists users sharing at least one course with the caller.
func (h *CourseHandler) MyPeers(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	peers, err := h.courseService.ListPeers(userID)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"peers": peers})
}

func (h *CourseHandler) CoursePeers(c *fiber.Ctx) error {
	userID, courseID, err := h.userAndCourse(c)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	peers, err := h.courseService.ListPeersInCourse(userID, courseID)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"peers": peers})
}

func (h *CourseHandler) CourseGroups(c *fiber.Ctx) error {
	courseID, err := httpx.ParamUint(c, "courseId")
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	groups, err := h.groupService.ListGroupsByCourse(courseID)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"groups": groups})
}

func (h *CourseHandler) userAndCourse(c *fiber.Ctx) (uint, uint, error) {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return 0, 0, fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}
	courseID, err := httpx.ParamUint(c, "courseId")
	if err != nil {
		return 0, 0, err
	}
	return userID, courseID, nil
}
