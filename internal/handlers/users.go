package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freelafacility/backend/internal/apperr"
	"github.com/freelafacility/backend/internal/authz"
	"github.com/freelafacility/backend/internal/middleware"
	"github.com/freelafacility/backend/internal/models"
	"github.com/freelafacility/backend/internal/utils"
)

type UsersHandler struct {
	DB *gorm.DB
}

func NewUsersHandler(db *gorm.DB) *UsersHandler {
	return &UsersHandler{DB: db}
}

func pagination(c *fiber.Ctx) (int, int) {
	skip := c.QueryInt("skip", 0)
	limit := c.QueryInt("limit", 100)
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return skip, limit
}

// List returns every user for admins and just the caller for everyone else.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	actor := middleware.CurrentUser(c)
	db := middleware.Tx(c, h.DB)

	if actor.Role != models.RoleAdmin {
		return c.JSON(fiber.Map{
			"success": true,
			"data":    []models.User{*actor},
		})
	}

	skip, limit := pagination(c)
	var users []models.User
	if err := db.Offset(skip).Limit(limit).Find(&users).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    users,
	})
}

func (h *UsersHandler) ListClients(c *fiber.Ctx) error {
	actor := middleware.CurrentUser(c)
	if err := authz.Require(actor, authz.ActionList, authz.Clients{}); err != nil {
		return err
	}

	skip, limit := pagination(c)
	var clients []models.User
	db := middleware.Tx(c, h.DB)
	if err := db.Where("role = ?", models.RoleClient).Offset(skip).Limit(limit).Find(&clients).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    clients,
	})
}

type UserCreateReq struct {
	Email    string      `json:"email"`
	FullName string      `json:"full_name"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
	IsActive *bool       `json:"is_active"`
}

// Create makes an account on someone's behalf. Granting the admin role is
// itself an authorized operation.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	actor := middleware.CurrentUser(c)

	var req UserCreateReq
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation(map[string][]string{"body": {"invalid body"}})
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	role := req.Role
	if role == "" {
		role = models.RoleClient
	}

	errs := FieldErrors{}
	if email == "" || !strings.Contains(email, "@") {
		errs.Add("email", "Invalid email")
	}
	if len(req.Password) < 6 {
		errs.Add("password", "Password must be at least 6 characters")
	}
	if !role.Valid() {
		errs.Add("role", "Unknown role")
	}
	if len(errs) > 0 {
		return apperr.Validation(errs)
	}

	if err := authz.Require(actor, authz.ActionCreate, authz.RoleGrant{Role: role}); err != nil {
		return err
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return err
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	u := models.User{
		Email:    email,
		FullName: strings.TrimSpace(req.FullName),
		Password: hashed,
		Role:     role,
		IsActive: active,
	}

	db := middleware.Tx(c, h.DB)
	if err := db.Create(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Duplicate("A user with this email already exists")
		}
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    u,
	})
}

func (h *UsersHandler) Me(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    middleware.CurrentUser(c),
	})
}

type UserUpdateReq struct {
	Email    *string      `json:"email"`
	FullName *string      `json:"full_name"`
	Password *string      `json:"password"`
	Role     *models.Role `json:"role"`
	IsActive *bool        `json:"is_active"`
}

// UpdateMe is the self-service profile update. Role and active flag are not
// part of the payload on purpose.
func (h *UsersHandler) UpdateMe(c *fiber.Ctx) error {
	actor := middleware.CurrentUser(c)

	var req struct {
		FullName *string `json:"full_name"`
		Password *string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation(map[string][]string{"body": {"invalid body"}})
	}

	db := middleware.Tx(c, h.DB)
	updated, err := applyUserUpdate(db, actor, UserUpdateReq{
		FullName: req.FullName,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    updated,
	})
}

func (h *UsersHandler) Get(c *fiber.Ctx) error {
	actor := middleware.CurrentUser(c)
	db := middleware.Tx(c, h.DB)

	target, err := loadUser(db, c.Params("id"))
	if err != nil {
		return err
	}
	if err := authz.Require(actor, authz.ActionRead, authz.User{Target: target}); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    target,
	})
}

func (h *UsersHandler) Update(c *fiber.Ctx) error {
	actor := middleware.CurrentUser(c)
	db := middleware.Tx(c, h.DB)

	target, err := loadUser(db, c.Params("id"))
	if err != nil {
		return err
	}

	var req UserUpdateReq
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation(map[string][]string{"body": {"invalid body"}})
	}

	if err := authz.Require(actor, authz.ActionUpdate, authz.User{Target: target}); err != nil {
		return err
	}
	if req.Role != nil && *req.Role != target.Role {
		if !req.Role.Valid() {
			return apperr.Validation(map[string][]string{"role": {"Unknown role"}})
		}
		if err := authz.Require(actor, authz.ActionChangeRole, authz.User{Target: target}); err != nil {
			return err
		}
	}

	updated, err := applyUserUpdate(db, target, req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    updated,
	})
}

func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	actor := middleware.CurrentUser(c)
	db := middleware.Tx(c, h.DB)

	target, err := loadUser(db, c.Params("id"))
	if err != nil {
		return err
	}
	if err := authz.Require(actor, authz.ActionDelete, authz.User{Target: target}); err != nil {
		return err
	}

	if err := db.Delete(&models.User{}, "id = ?", target.ID).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "User deleted",
		"data":    target,
	})
}

func loadUser(db *gorm.DB, rawID string) (*models.User, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, apperr.NotFound("User not found")
	}
	var u models.User
	if err := db.First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, err
	}
	return &u, nil
}

// applyUserUpdate writes only the fields present in the payload; an absent
// field and a field set to its zero value are different things.
func applyUserUpdate(db *gorm.DB, target *models.User, req UserUpdateReq) (*models.User, error) {
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email == "" || !strings.Contains(email, "@") {
			return nil, apperr.Validation(map[string][]string{"email": {"Invalid email"}})
		}
		target.Email = email
	}
	if req.FullName != nil {
		target.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Password != nil {
		if len(*req.Password) < 6 {
			return nil, apperr.Validation(map[string][]string{"password": {"Password must be at least 6 characters"}})
		}
		hashed, err := utils.HashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		target.Password = hashed
	}
	if req.Role != nil {
		target.Role = *req.Role
	}
	if req.IsActive != nil {
		target.IsActive = *req.IsActive
	}

	if err := db.Save(target).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Duplicate("A user with this email already exists")
		}
		return nil, err
	}
	return target, nil
}
