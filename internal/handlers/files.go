package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/freelafacility/backend/internal/apperr"
	"github.com/freelafacility/backend/internal/authz"
	"github.com/freelafacility/backend/internal/middleware"
	"github.com/freelafacility/backend/internal/models"
	"github.com/freelafacility/backend/internal/realtime"
	"github.com/freelafacility/backend/internal/services/fileproc"
)

type FilesHandler struct {
	DB            *gorm.DB
	Processor     *fileproc.Client
	Notifier      *realtime.Notifier
	MaxUploadSize int64
}

func NewFilesHandler(db *gorm.DB, processor *fileproc.Client, notifier *realtime.Notifier, maxUploadSize int64) *FilesHandler {
	return &FilesHandler{
		DB:            db,
		Processor:     processor,
		Notifier:      notifier,
		MaxUploadSize: maxUploadSize,
	}
}

// Upload sends the content to the external processor and records the file
// only after the processor accepted it. Authorization happens before any
// bytes leave the building; a processor failure leaves no local state.
func (h *FilesHandler) Upload(c *fiber.Ctx) error {
	actor := middleware.CurrentUser(c)
	db := middleware.Tx(c, h.DB)

	projectID := c.FormValue("project_id")
	project, err := loadProject(db, projectID)
	if err != nil {
		return err
	}
	if err := authz.Require(actor, authz.ActionUpload, authz.File{Project: project}); err != nil {
		return err
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return apperr.Validation(map[string][]string{"file": {"File is required"}})
	}
	if fh.Size <= 0 {
		return apperr.Validation(map[string][]string{"file": {"Empty file"}})
	}
	if h.MaxUploadSize > 0 && fh.Size > h.MaxUploadSize {
		return apperr.Validation(map[string][]string{
			"file": {fmt.Sprintf("File exceeds the %d byte limit", h.MaxUploadSize)},
		})
	}

	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	content, err := io.ReadAll(src)
	if err != nil {
		return err
	}

	contentType := fh.Header.Get(fiber.HeaderContentType)
	result, err := h.Processor.Upload(c.Context(), fh.Filename, contentType, content)
	if err != nil {
		log.Printf("file processor upload failed: %v", err)
		return apperr.External("Error communicating with the file processor")
	}

	file := models.File{
		Filename:         result.Filename,
		OriginalFilename: fh.Filename,
		FilePath:         result.FilePath,
		ContentType:      contentType,
		FileSize:         fh.Size,
		Metadata:         datatypes.JSON(result.Raw),
		ProjectID:        project.ID,
		UploaderID:       actor.ID,
	}
	if err := db.Create(&file).Error; err != nil {
		return err
	}

	h.Notifier.Publish(c.Context(), realtime.Event{
		Type:      "file.uploaded",
		ProjectID: project.ID,
		ActorID:   actor.ID,
		Detail:    file.Filename,
	}, project.OwnerID, project.ClientID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    file,
	})
}

// List returns a project's files when project_id is given, otherwise every
// file in the projects the actor is a member of.
func (h *FilesHandler) List(c *fiber.Ctx) error {
	actor := middleware.CurrentUser(c)
	db := middleware.Tx(c, h.DB)
	skip, limit := pagination(c)

	var files []models.File

	if rawID := c.Query("project_id"); rawID != "" {
		project, err := loadProject(db, rawID)
		if err != nil {
			return err
		}
		if err := authz.Require(actor, authz.ActionRead, authz.File{Project: project}); err != nil {
			return err
		}
		if err := db.Where("project_id = ?", project.ID).Offset(skip).Limit(limit).Find(&files).Error; err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "data": files})
	}

	member := db.Model(&models.Project{}).Select("id")
	switch actor.Role {
	case models.RoleFreelancer:
		member = member.Where("owner_id = ?", actor.ID)
	case models.RoleClient:
		member = member.Where("client_id = ?", actor.ID)
	default:
		return c.JSON(fiber.Map{"success": true, "data": []models.File{}})
	}

	if err := db.Where("project_id IN (?)", member).Offset(skip).Limit(limit).Find(&files).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": files})
}

func (h *FilesHandler) Get(c *fiber.Ctx) error {
	actor := middleware.CurrentUser(c)
	db := middleware.Tx(c, h.DB)

	file, project, err := loadFile(db, c.Params("id"))
	if err != nil {
		return err
	}
	if err := authz.Require(actor, authz.ActionRead, authz.File{Model: file, Project: project}); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": file})
}

// Delete removes the local record unconditionally; the processor is told
// first but a failure there only gets logged.
func (h *FilesHandler) Delete(c *fiber.Ctx) error {
	actor := middleware.CurrentUser(c)
	db := middleware.Tx(c, h.DB)

	file, project, err := loadFile(db, c.Params("id"))
	if err != nil {
		return err
	}
	if err := authz.Require(actor, authz.ActionDelete, authz.File{Model: file, Project: project}); err != nil {
		return err
	}

	if err := h.Processor.Delete(c.Context(), file.ID.String()); err != nil {
		log.Printf("file processor delete notification failed for %s: %v", file.ID, err)
	}

	if err := db.Delete(&models.File{}, "id = ?", file.ID).Error; err != nil {
		return err
	}

	h.Notifier.Publish(c.Context(), realtime.Event{
		Type:      "file.deleted",
		ProjectID: project.ID,
		ActorID:   actor.ID,
		Detail:    file.Filename,
	}, project.OwnerID, project.ClientID)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "File deleted",
		"data":    file,
	})
}

func loadFile(db *gorm.DB, rawID string) (*models.File, *models.Project, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, nil, apperr.NotFound("File not found")
	}
	var f models.File
	if err := db.First(&f, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.NotFound("File not found")
		}
		return nil, nil, err
	}

	var p models.Project
	if err := db.First(&p, "id = ?", f.ProjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.NotFound("Project not found")
		}
		return nil, nil, err
	}
	return &f, &p, nil
}
