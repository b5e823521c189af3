package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/freelafacility/backend/internal/apperr"
	"github.com/freelafacility/backend/internal/handlers"
	"github.com/freelafacility/backend/internal/middleware"
	"github.com/freelafacility/backend/internal/models"
	"github.com/freelafacility/backend/internal/realtime"
	"github.com/freelafacility/backend/internal/services/fileproc"
	"github.com/freelafacility/backend/internal/utils"
)

const (
	testSecret   = "handler-test-secret-key"
	testPassword = "secret123"
)

// newTestApp wires the same route table as cmd/api against an in-memory
// sqlite database and a stub processor URL.
func newTestApp(t *testing.T, procURL string) (*fiber.App, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Project{}, &models.File{}))

	notifier := realtime.NewNotifier(nil, nil)
	processor := fileproc.New(procURL)

	app := fiber.New(fiber.Config{ErrorHandler: apperr.Handler})

	authH := &handlers.AuthHandler{DB: db, JWTSecret: testSecret, Expires: 30}
	usersH := handlers.NewUsersHandler(db)
	projectsH := handlers.NewProjectsHandler(db, notifier)
	filesH := handlers.NewFilesHandler(db, processor, notifier, 1<<20)

	api := app.Group("/api/v1", middleware.Transaction(db))

	api.Post("/auth/login", authH.Login)
	api.Post("/auth/register", authH.Register)
	api.Get("/auth/me", middleware.RequireAuth(db, testSecret), authH.Me)

	protected := api.Group("/",
		middleware.RequireAuth(db, testSecret),
		middleware.RequireActive(),
	)

	protected.Get("/users/", usersH.List)
	protected.Get("/users/clients", usersH.ListClients)
	protected.Post("/users/", usersH.Create)
	protected.Get("/users/me", usersH.Me)
	protected.Put("/users/me", usersH.UpdateMe)
	protected.Get("/users/:id", usersH.Get)
	protected.Put("/users/:id", usersH.Update)
	protected.Delete("/users/:id", usersH.Delete)

	protected.Post("/projects/", projectsH.Create)
	protected.Get("/projects/", projectsH.List)
	protected.Get("/projects/:id", projectsH.Get)
	protected.Put("/projects/:id", projectsH.Update)
	protected.Delete("/projects/:id", projectsH.Delete)

	protected.Post("/files/upload/", filesH.Upload)
	protected.Get("/files/", filesH.List)
	protected.Get("/files/:id", filesH.Get)
	protected.Delete("/files/:id", filesH.Delete)

	return app, db
}

func seedUser(t *testing.T, db *gorm.DB, email string, role models.Role, active bool) *models.User {
	t.Helper()
	hashed, err := utils.HashPassword(testPassword)
	require.NoError(t, err)
	u := &models.User{
		Email:    email,
		FullName: "Test " + string(role),
		Password: hashed,
		Role:     role,
		IsActive: active,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedProject(t *testing.T, db *gorm.DB, owner, client *models.User) *models.Project {
	t.Helper()
	p := &models.Project{
		Name:     "Website redesign",
		OwnerID:  owner.ID,
		ClientID: client.ID,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func tokenFor(t *testing.T, u *models.User) string {
	t.Helper()
	token, err := utils.SignJWT(testSecret, u.ID.String(), 30)
	require.NoError(t, err)
	return token
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func uploadRequest(t *testing.T, token, projectID, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("project_id", projectID))
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/files/upload/", &buf)
	req.Header.Set(fiber.HeaderContentType, mw.FormDataContentType())
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	return req
}
