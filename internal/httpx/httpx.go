package httpx

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/apperr"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error     string              `json:"error"`
	Code      string              `json:"code,omitempty"`
	RequestID string              `json:"request_id,omitempty"`
	Details   []apperr.FieldError `json:"details,omitempty"`
}

func requestID(c *fiber.Ctx) string {
	if v := c.Locals("requestid"); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func Error(c *fiber.Ctx, status int, code string, message string) error {
	if message == "" {
		message = "Request failed"
	}
	return c.Status(status).JSON(ErrorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestID(c),
	})
}

func BadRequest(c *fiber.Ctx, code string, message string) error {
	return Error(c, fiber.StatusBadRequest, code, message)
}

func Unauthorized(c *fiber.Ctx, code string, message string) error {
	return Error(c, fiber.StatusUnauthorized, code, message)
}

func Forbidden(c *fiber.Ctx, code string, message string) error {
	return Error(c, fiber.StatusForbidden, code, message)
}

func Internal(c *fiber.Ctx, code string) error {
	return Error(c, fiber.StatusInternalServerError, code, "Internal server error")
}

// FromError renders a service error. Anything that is not an *apperr.Error,
// and every INTERNAL error, is logged and reported without its cause.
func FromError(c *fiber.Ctx, log *zap.Logger, err error) error {
	ae := apperr.As(err)
	if ae == nil {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return Error(c, fe.Code, "request_failed", fe.Message)
		}
		ae = apperr.Internal(err)
	}
	if ae.Kind == apperr.KindInternal || ae.Kind == apperr.KindTokenGenerationFailed {
		if log != nil {
			log.Error("request failed",
				zap.String("request_id", requestID(c)),
				zap.String("path", c.Path()),
				zap.String("code", ae.Code),
				zap.Error(err),
			)
		}
	}
	return c.Status(ae.HTTPStatus()).JSON(ErrorResponse{
		Error:     ae.Message,
		Code:      ae.Code,
		RequestID: requestID(c),
		Details:   ae.Details,
	})
}

func LocalUint(c *fiber.Ctx, key string) (uint, error) {
	v := c.Locals(key)
	if v == nil {
		return 0, fmt.Errorf("missing local %s", key)
	}
	u, ok := v.(uint)
	if !ok {
		return 0, fmt.Errorf("invalid local %s", key)
	}
	return u, nil
}

// ParamUint parses a positive numeric route parameter.
func ParamUint(c *fiber.Ctx, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || v == 0 {
		return 0, apperr.Validation(fmt.Sprintf("Invalid %s", name))
	}
	return uint(v), nil
}
