package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/freelafacility/backend/internal/apperr"
	"github.com/freelafacility/backend/internal/middleware"
	"github.com/freelafacility/backend/internal/models"
	"github.com/freelafacility/backend/internal/utils"
)

type AuthHandler struct {
	DB        *gorm.DB
	JWTSecret string
	Expires   int
}

type FieldErrors map[string][]string

func (e FieldErrors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

type LoginReq struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// Login exchanges email+password for a bearer token. Unknown email and
// wrong password are indistinguishable to the caller.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginReq
	if err := c.BodyParser(&req); err != nil {
		return apperr.InvalidCredentials()
	}

	email := strings.ToLower(strings.TrimSpace(req.Username))
	password := req.Password
	if email == "" || password == "" {
		return apperr.InvalidCredentials()
	}

	db := middleware.Tx(c, h.DB)

	var u models.User
	if err := db.Where("email = ?", email).First(&u).Error; err != nil {
		return apperr.InvalidCredentials()
	}
	if !utils.CheckPassword(u.Password, password) {
		return apperr.InvalidCredentials()
	}
	if !u.IsActive {
		return apperr.InactiveAccount()
	}

	token, err := utils.SignJWT(h.JWTSecret, u.ID.String(), h.Expires)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"access_token": token,
		"token_type":   "bearer",
	})
}

type RegisterReq struct {
	Email    string      `json:"email"`
	FullName string      `json:"full_name"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"` // client / freelancer; admin accounts come from admins
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterReq
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation(map[string][]string{"body": {"invalid body"}})
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	fullName := strings.TrimSpace(req.FullName)
	role := req.Role
	if role == "" {
		role = models.RoleClient
	}

	errs := FieldErrors{}
	if email == "" {
		errs.Add("email", "Email is required")
	} else if !strings.Contains(email, "@") {
		errs.Add("email", "Invalid email format")
	}
	if req.Password == "" {
		errs.Add("password", "Password is required")
	} else if len(req.Password) < 6 {
		errs.Add("password", "Password must be at least 6 characters")
	}
	if !role.Valid() {
		errs.Add("role", "Unknown role")
	}
	if len(errs) > 0 {
		return apperr.Validation(errs)
	}

	// self-registration never grants admin
	if role == models.RoleAdmin {
		return apperr.Forbidden("Cannot self-register an admin account")
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return err
	}

	u := models.User{
		Email:    email,
		FullName: fullName,
		Password: hashed,
		Role:     role,
		IsActive: true,
	}

	db := middleware.Tx(c, h.DB)
	if err := db.Create(&u).Error; err != nil {
		// the unique index decides concurrent registrations, not a
		// check-then-insert
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Duplicate("A user with this email already exists")
		}
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Registered",
		"data":    u,
	})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return apperr.Unauthenticated()
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    user,
	})
}
