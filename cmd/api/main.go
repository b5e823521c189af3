package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"

	"github.com/freelafacility/backend/internal/apperr"
	"github.com/freelafacility/backend/internal/config"
	"github.com/freelafacility/backend/internal/db"
	"github.com/freelafacility/backend/internal/handlers"
	"github.com/freelafacility/backend/internal/middleware"
	"github.com/freelafacility/backend/internal/models"
	"github.com/freelafacility/backend/internal/realtime"
	"github.com/freelafacility/backend/internal/services/fileproc"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	if err := gdb.AutoMigrate(&models.User{}, &models.Project{}, &models.File{}); err != nil {
		log.Fatal(err)
	}

	rdb := realtime.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Printf("redis unreachable, activity fan-out limited to this instance: %v", err)
	}

	hub := realtime.NewHub()
	go hub.Run()
	notifier := realtime.NewNotifier(hub, rdb)

	processor := fileproc.New(cfg.FileProcessorURL)

	app := fiber.New(fiber.Config{
		ErrorHandler: apperr.Handler,
		BodyLimit:    int(cfg.MaxUploadSize),
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Content-Length",
		AllowCredentials: true,
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	authH := &handlers.AuthHandler{
		DB:        gdb,
		JWTSecret: cfg.JWTSecret,
		Expires:   cfg.JWTExpiresMin,
	}
	googleH := &handlers.GoogleOAuthHandler{
		DB:              gdb,
		JWTSecret:       cfg.JWTSecret,
		Expires:         cfg.JWTExpiresMin,
		GoogleClientID:  cfg.GoogleClientID,
		GoogleSecret:    cfg.GoogleSecret,
		GoogleRedirect:  cfg.GoogleRedirect,
		FrontendBaseURL: cfg.FrontendBaseURL,
	}
	usersH := handlers.NewUsersHandler(gdb)
	projectsH := handlers.NewProjectsHandler(gdb, notifier)
	filesH := handlers.NewFilesHandler(gdb, processor, notifier, cfg.MaxUploadSize)
	wsH := handlers.NewActivityWSHandler(gdb, hub, cfg.JWTSecret)

	api := app.Group("/api/v1", middleware.Transaction(gdb))

	// public
	api.Post("/auth/login", authH.Login)
	api.Post("/auth/register", authH.Register)
	api.Get("/auth/google/start", googleH.GoogleStart)
	api.Get("/auth/google/callback", googleH.GoogleCallback)

	// token only, no active check: a suspended user can still see who they are
	api.Get("/auth/me", middleware.RequireAuth(gdb, cfg.JWTSecret), authH.Me)

	protected := api.Group("/",
		middleware.RequireAuth(gdb, cfg.JWTSecret),
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

	// websocket auth happens inside the handler via query param token
	app.Get("/ws/activity", websocket.New(wsH.Handle))

	log.Fatal(app.Listen(":" + cfg.AppPort))
}
