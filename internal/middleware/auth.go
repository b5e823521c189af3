package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freelafacility/backend/internal/apperr"
	"github.com/freelafacility/backend/internal/models"
	"github.com/freelafacility/backend/internal/utils"
)

const userKey = "currentUser"

// RequireAuth resolves the bearer token to a user row. Signature failure,
// expiry, a malformed subject and an unknown subject all collapse into the
// same 401; the matrix never sees an unresolved actor.
func RequireAuth(db *gorm.DB, secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			return apperr.Unauthenticated()
		}
		tokenStr := strings.TrimSpace(header[len(prefix):])
		if tokenStr == "" {
			return apperr.Unauthenticated()
		}

		claims, err := utils.ParseJWT(secret, tokenStr)
		if err != nil {
			return apperr.Unauthenticated()
		}

		uid, err := uuid.Parse(claims.Subject)
		if err != nil {
			return apperr.Unauthenticated()
		}

		var user models.User
		if err := db.First(&user, "id = ?", uid).Error; err != nil {
			return apperr.Unauthenticated()
		}

		c.Locals(userKey, &user)
		c.Locals("userId", user.ID.String())
		return c.Next()
	}
}

// RequireActive rejects suspended accounts. Authentication itself still
// succeeds for them, so the error is a 400, not a 401.
func RequireActive() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return apperr.Unauthenticated()
		}
		if !user.IsActive {
			return apperr.InactiveAccount()
		}
		return c.Next()
	}
}

func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(userKey).(*models.User)
	return user
}
