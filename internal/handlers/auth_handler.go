package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/httpx"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/middleware"
	"github.com/mohammadsarfarazafzal/Study-Group-Finder-Collaboration-Platform-Group-1/internal/service"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService  *service.AuthService
	secureCookie bool
	log          *zap.Logger
}

func NewAuthHandler(authService *service.AuthService, secureCookie bool, log *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, secureCookie: secureCookie, log: log}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input service.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	result, err := h.authService.Register(input)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}

	h.setSessionCookies(c, result.Token)
	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input service.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	result, err := h.authService.Login(input)
	if err != nil {
		return httpx.FromError(c, h.log, err)
	}

	h.setSessionCookies(c, result.Token)
	return c.JSON(result)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	for _, name := range []string{middleware.AccessCookie, middleware.CSRFCookie} {
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			HTTPOnly: name == middleware.AccessCookie,
			Secure:   h.secureCookie,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req forgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	if err := h.authService.ForgotPassword(c.UserContext(), req.Email); err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"message": "Password reset link sent to your email"})
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	if err := h.authService.ResetPassword(req.Token, req.NewPassword); err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"message": "Password has been reset"})
}

type updatePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *AuthHandler) UpdatePassword(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	var req updatePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	if err := h.authService.UpdatePassword(userID, req.CurrentPassword, req.NewPassword); err != nil {
		return httpx.FromError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"message": "Password updated"})
}

// setSessionCookies issues the HttpOnly access cookie and a readable CSRF
// cookie that browser clients echo back in the CSRF header.
func (h *AuthHandler) setSessionCookies(c *fiber.Ctx, token string) {
	expires := time.Now().Add(h.authService.TokenTTL())
	c.Cookie(&fiber.Cookie{
		Name:     middleware.AccessCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	c.Cookie(&fiber.Cookie{
		Name:     middleware.CSRFCookie,
		Value:    uuid.NewString(),
		Path:     "/",
		Expires:  expires,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
