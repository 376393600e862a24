// Package middleware provides HTTP middleware components for the application.
// It includes authentication and authorization middleware for the fiber web
// framework.
package middleware

import (
	"context"
	"strings"

	"tourneypay/internal/models"
	"tourneypay/internal/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// UserChecker confirms that a token's subject is still an active user.
type UserChecker interface {
	UserExists(ctx context.Context, userID uint) (bool, error)
}

// AuthMiddleware handles JWT token validation. Tokens are issued by the
// identity service; the ledger only verifies them.
type AuthMiddleware struct {
	secret string
	users  UserChecker
	log    *zap.Logger
}

func NewAuthMiddleware(secret string, users UserChecker, log *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		secret: secret,
		users:  users,
		log:    log.Named("auth"),
	}
}

// Handler validates JWT tokens and adds claims to the request context.
// It checks for:
// - Presence of Authorization header with Bearer token
// - Valid JWT signature and expiry
// - The subject still being an active user
func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return utils.Unauthorized(c, "missing authorization header")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return utils.Unauthorized(c, "invalid authorization format")
	}

	claims, err := utils.ParseToken(m.secret, strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		m.log.Debug("token rejected", zap.Error(err))
		return utils.Unauthorized(c, "invalid token")
	}

	active, err := m.users.UserExists(c.UserContext(), claims.UserID)
	if err != nil {
		m.log.Error("user lookup failed", zap.Uint("user_id", claims.UserID), zap.Error(err))
		return utils.ServiceUnavailable(c, "user directory unavailable")
	}
	if !active {
		return utils.Unauthorized(c, "invalid token")
	}

	c.Locals("claims", claims)
	c.Locals("userID", claims.UserID)
	return c.Next()
}

// AdminAuthMiddleware verifies that the request has valid admin claims.
func AdminAuthMiddleware(c *fiber.Ctx) error {
	claims, ok := c.Locals("claims").(*models.UserClaims)
	if !ok {
		return utils.Unauthorized(c, "Invalid claims")
	}
	if claims.Role != models.RoleAdmin {
		return utils.Forbidden(c, "Insufficient permissions")
	}
	return c.Next()
}

// HasPermission returns a middleware that checks for a specific permission.
func HasPermission(permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals("claims").(*models.UserClaims)
		if !ok {
			return utils.Unauthorized(c, "Unauthorized")
		}
		if claims.HasPermission(permission) {
			return c.Next()
		}
		return utils.Forbidden(c, "Insufficient permissions")
	}
}
