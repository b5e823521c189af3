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
	"github.com/freelafacility/backend/internal/realtime"
)

type ProjectsHandler struct {
	DB       *gorm.DB
	Notifier *realtime.Notifier
}

func NewProjectsHandler(db *gorm.DB, notifier *realtime.Notifier) *ProjectsHandler {
	return &ProjectsHandler{DB: db, Notifier: notifier}
}

type ProjectCreateReq struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ClientID    uuid.UUID `json:"client_id"`
}

// Create makes a project owned by the calling freelancer. The owner always
// comes from the token, never from the payload.
func (h *ProjectsHandler) Create(c *fiber.Ctx) error {
	actor := middleware.CurrentUser(c)
	if err := authz.Require(actor, authz.ActionCreate, authz.Project{}); err != nil {
		return err
	}

	var req ProjectCreateReq
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation(map[string][]string{"body": {"invalid body"}})
	}

	errs := FieldErrors{}
	if strings.TrimSpace(req.Name) == "" {
		errs.Add("name", "Name is required")
	}
	if req.ClientID == uuid.Nil {
		errs.Add("client_id", "Client is required")
	}
	if len(errs) > 0 {
		return apperr.Validation(errs)
	}

	db := middleware.Tx(c, h.DB)

	// client_id must reference an actual client account
	var client models.User
	if err := db.First(&client, "id = ?", req.ClientID).Error; err != nil || client.Role != models.RoleClient {
		return apperr.Validation(map[string][]string{"client_id": {"Not a client account"}})
	}

	project := models.Project{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		OwnerID:     actor.ID,
		ClientID:    client.ID,
	}
	if err := db.Create(&project).Error; err != nil {
		return err
	}

	h.Notifier.Publish(c.Context(), realtime.Event{
		Type:      "project.created",
		ProjectID: project.ID,
		ActorID:   actor.ID,
		Detail:    project.Name,
	}, project.OwnerID, project.ClientID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    project,
	})
}

// List is scoped to membership: freelancers see projects they own, clients
// see projects they are the client of. Admins have no project rights.
func (h *ProjectsHandler) List(c *fiber.Ctx) error {
	actor := middleware.CurrentUser(c)
	db := middleware.Tx(c, h.DB)
	skip, limit := pagination(c)

	var projects []models.Project
	q := db.Offset(skip).Limit(limit)
	switch actor.Role {
	case models.RoleFreelancer:
		q = q.Where("owner_id = ?", actor.ID)
	case models.RoleClient:
		q = q.Where("client_id = ?", actor.ID)
	default:
		return c.JSON(fiber.Map{"success": true, "data": []models.Project{}})
	}
	if err := q.Find(&projects).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    projects,
	})
}

func (h *ProjectsHandler) Get(c *fiber.Ctx) error {
	actor := middleware.CurrentUser(c)
	db := middleware.Tx(c, h.DB)

	project, err := loadProject(db, c.Params("id"))
	if err != nil {
		return err
	}
	if err := authz.Require(actor, authz.ActionRead, authz.Project{Model: project}); err != nil {
		return err
	}

	if err := db.Preload("Owner").Preload("Client").First(project, "id = ?", project.ID).Error; err != nil {
		return err
	}
	var fileCount int64
	if err := db.Model(&models.File{}).Where("project_id = ?", project.ID).Count(&fileCount).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"project":    project,
			"file_count": fileCount,
		},
	})
}

type ProjectUpdateReq struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (h *ProjectsHandler) Update(c *fiber.Ctx) error {
	actor := middleware.CurrentUser(c)
	db := middleware.Tx(c, h.DB)

	project, err := loadProject(db, c.Params("id"))
	if err != nil {
		return err
	}
	if err := authz.Require(actor, authz.ActionUpdate, authz.Project{Model: project}); err != nil {
		return err
	}

	var req ProjectUpdateReq
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation(map[string][]string{"body": {"invalid body"}})
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return apperr.Validation(map[string][]string{"name": {"Name is required"}})
		}
		project.Name = name
	}
	if req.Description != nil {
		project.Description = *req.Description
	}

	if err := db.Save(project).Error; err != nil {
		return err
	}

	h.Notifier.Publish(c.Context(), realtime.Event{
		Type:      "project.updated",
		ProjectID: project.ID,
		ActorID:   actor.ID,
		Detail:    project.Name,
	}, project.OwnerID, project.ClientID)

	return c.JSON(fiber.Map{
		"success": true,
		"data":    project,
	})
}

func (h *ProjectsHandler) Delete(c *fiber.Ctx) error {
	actor := middleware.CurrentUser(c)
	db := middleware.Tx(c, h.DB)

	project, err := loadProject(db, c.Params("id"))
	if err != nil {
		return err
	}
	if err := authz.Require(actor, authz.ActionDelete, authz.Project{Model: project}); err != nil {
		return err
	}

	if err := db.Delete(&models.File{}, "project_id = ?", project.ID).Error; err != nil {
		return err
	}
	if err := db.Delete(&models.Project{}, "id = ?", project.ID).Error; err != nil {
		return err
	}

	h.Notifier.Publish(c.Context(), realtime.Event{
		Type:      "project.deleted",
		ProjectID: project.ID,
		ActorID:   actor.ID,
		Detail:    project.Name,
	}, project.OwnerID, project.ClientID)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Project deleted",
		"data":    project,
	})
}

func loadProject(db *gorm.DB, rawID string) (*models.Project, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, apperr.NotFound("Project not found")
	}
	var p models.Project
	if err := db.First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Project not found")
		}
		return nil, err
	}
	return &p, nil
}
