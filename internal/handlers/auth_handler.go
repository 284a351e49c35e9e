package handlers

import (
	"socialhub/internal/middleware"
	"socialhub/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles HTTP requests for accounts and authentication.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// RegisterRoutes registers the account routes. gate guards the routes that
// act on the caller's own account.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, gate fiber.Handler) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/", h.HandleRegister)
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Get("/basicinfo/:id", h.HandleBasicInfo)
	authRoutes.Get("/auth", gate, h.HandleMe)
	authRoutes.Put("/changepassword", gate, h.HandleChangePassword)
}

// CredentialsRequest is the body of registration and login requests.
// An empty password is accepted.
type CredentialsRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password"`
}

// ChangePasswordRequest is the body of a password change.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// HandleRegister creates a new user.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req CredentialsRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	if _, err := h.authService.RegisterUser(c.UserContext(), req.Username, req.Password); err != nil {
		return fail("Failed to create user", err)
	}

	return c.JSON(fiber.Map{"success": "User created successfully"})
}

// HandleLogin checks credentials and issues a token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req CredentialsRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	result, err := h.authService.LoginUser(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return fail("Login failed", err)
	}

	return c.JSON(result)
}

// HandleMe echoes the identity carried by the caller's token.
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	claims := middleware.ClaimsFrom(c)
	return c.JSON(fiber.Map{
		"username": claims.Username,
		"id":       claims.ID,
	})
}

// HandleBasicInfo returns the public identity of a user.
func (h *AuthHandler) HandleBasicInfo(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid user id")
	}

	info, err := h.authService.BasicInfo(c.UserContext(), uint(id))
	if err != nil {
		return fail("Failed to fetch user info", err)
	}

	return c.JSON(info)
}

// HandleChangePassword replaces the caller's password.
func (h *AuthHandler) HandleChangePassword(c *fiber.Ctx) error {
	var req ChangePasswordRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	claims := middleware.ClaimsFrom(c)
	if err := h.authService.ChangePassword(c.UserContext(), claims, req.OldPassword, req.NewPassword); err != nil {
		return fail("Failed to update password", err)
	}

	return c.JSON(fiber.Map{"success": "Password updated successfully"})
}
