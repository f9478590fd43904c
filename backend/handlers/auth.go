package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"

	"netmon-dashboard/backend/models"
	"netmon-dashboard/backend/services"
	"netmon-dashboard/backend/system"
)

const (
	defaultAdminUser     = "admin"
	defaultAdminPassword = "admin123!"

	maxFailedAttempts = 5
	lockoutDuration   = 5 * time.Minute
)

// LoginRequest struct
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid input"})
	}

	var admin models.Admin
	if err := h.DB.Where("username = ?", req.Username).First(&admin).Error; err != nil {
		// If no users exist, allow the default login once and persist it
		var count int64
		h.DB.Model(&models.Admin{}).Count(&count)
		if count == 0 && req.Username == defaultAdminUser && req.Password == defaultAdminPassword {
			hashed, _ := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
			admin = models.Admin{Username: req.Username, Password: string(hashed)}
			if err := h.DB.Create(&admin).Error; err != nil {
				system.Error("Failed to create default admin user: %v", err)
			} else {
				system.Info("Default admin login - Created persistent 'admin' user")
			}
			return h.issueToken(c, req.Username)
		}
		system.Warn("Failed login attempt for user: %s", req.Username)
		return c.Status(401).JSON(fiber.Map{"error": "Invalid credentials"})
	}

	now := h.now()

	// Check Lock
	if admin.LockedUntil != nil && now.Before(*admin.LockedUntil) {
		minutes := int(admin.LockedUntil.Sub(now).Minutes()) + 1
		return c.Status(403).JSON(fiber.Map{"error": fmt.Sprintf("Account is locked. Try again in %d minutes.", minutes)})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(req.Password)); err != nil {
		admin.FailedAttempts++
		admin.LastFailedAttempt = &now
		msg := "Invalid credentials"
		if admin.FailedAttempts >= maxFailedAttempts {
			lockUntil := now.Add(lockoutDuration)
			admin.LockedUntil = &lockUntil
			msg = "Account locked for 5 minutes"
		}
		h.DB.Save(&admin)

		system.Warn("Failed login attempt for user: %s (attempt %d)", req.Username, admin.FailedAttempts)
		return c.Status(401).JSON(fiber.Map{"error": msg})
	}

	admin.FailedAttempts = 0
	admin.LockedUntil = nil
	h.DB.Save(&admin)

	return h.issueToken(c, req.Username)
}

func (h *Handler) issueToken(c *fiber.Ctx, username string) error {
	// jwt validates exp against the wall clock
	claims := jwt.MapClaims{
		"user": username,
		"exp":  time.Now().Add(h.TokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	t, err := token.SignedString(h.JWTSecret)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Could not login"})
	}

	h.Events.Add(services.EventSuccess, "User logged in: %s", username)
	return c.JSON(fiber.Map{"token": t})
}

// currentUser returns the username stored in the token by JWTAuthMiddleware
func currentUser(c *fiber.Ctx) string {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return ""
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ""
	}
	username, _ := claims["user"].(string)
	return username
}

// ChangePassword handler
func (h *Handler) ChangePassword(c *fiber.Ctx) error {
	username := currentUser(c)

	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid input"})
	}
	if req.NewPassword == "" {
		return c.Status(400).JSON(fiber.Map{"error": "New password required"})
	}

	var admin models.Admin
	if err := h.DB.Where("username = ?", username).First(&admin).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "User not found"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(req.OldPassword)); err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Incorrect old password"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Could not hash password"})
	}
	admin.Password = string(hashed)
	admin.FailedAttempts = 0
	admin.LockedUntil = nil

	h.DB.Save(&admin)
	system.Info("User changed password: %s", username)

	return c.JSON(fiber.Map{"message": "Password updated"})
}

// JWTAuthMiddleware validates JWT token
func JWTAuthMiddleware(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(401).JSON(fiber.Map{"error": "Missing authorization header"})
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid authorization format"})
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(401, "Invalid signing method")
			}
			return secret, nil
		})

		if err != nil || !token.Valid {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid or expired token"})
		}

		c.Locals("user", token)

		return c.Next()
	}
}
