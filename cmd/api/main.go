package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/Windi-Fikriyansyah/freelance_hub/internal/config"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/db"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/handlers"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/middleware"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/realtime"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/repositories"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/services/account"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/services/chat"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/services/job"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/services/profile"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/services/project"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	config.InitLogger(cfg.Debug)

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		fatal("database connect failed", err)
	}
	if err := db.Migrate(gdb); err != nil {
		fatal("migration failed", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := realtime.NewRedis(cfg)
	if err := rdb.Ping(ctx).Err(); err != nil {
		fatal("redis is not reachable", err)
	}
	defer rdb.Close()

	hub := realtime.NewHub()
	go hub.Run(ctx)
	broker := realtime.NewBroker(rdb, hub)
	go func() {
		if err := broker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("redis subscriber stopped", "err", err)
		}
	}()

	users := repositories.NewUserRepository(gdb)
	projectRepo := repositories.NewProjectRepository(gdb)
	extras := repositories.NewProfileRepository(gdb)

	projects := project.NewService(projectRepo, users, extras)
	chats := chat.NewService(repositories.NewChatRepository(gdb), projectRepo, projects, broker)
	accounts := account.NewService(users, broker, account.Options{
		JWTSecret:     cfg.JWTSecret,
		JWTExpiresMin: cfg.JWTExpiresMin,
		VerifyCodeTTL: cfg.VerifyCodeTTL,
	})
	jobs := job.NewService(repositories.NewJobRepository(gdb))
	profiles := profile.NewService(extras, users, cfg.UploadDir, cfg.AppBaseURL)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    8 * 1024 * 1024,
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Content-Length",
		AllowCredentials: !strings.Contains(cfg.CORSOrigins, "*"),
	}))
	app.Static("/uploads", cfg.UploadDir)

	authMiddleware := middleware.Session(cfg.JWTSecret)

	chatH := handlers.NewChatHandler(chats, realtime.NewRelay(hub, broker, chats), cfg.JWTSecret)
	chatH.WebSocketRoutes(app)

	api := app.Group("/api")
	handlers.NewAuthHandler(accounts, cfg.JWTExpiresMin).Routes(api, authMiddleware)
	(&handlers.GoogleOAuthHandler{
		Accounts:        accounts,
		Expires:         cfg.JWTExpiresMin,
		GoogleClientID:  cfg.GoogleClientID,
		GoogleSecret:    cfg.GoogleSecret,
		GoogleRedirect:  cfg.GoogleRedirect,
		FrontendBaseURL: cfg.FrontendBaseURL,
	}).Routes(api)
	handlers.NewProjectHandler(projects, chats, broker).Routes(api, authMiddleware)
	chatH.Routes(api, authMiddleware)
	handlers.NewJobHandler(jobs).Routes(api, authMiddleware)
	handlers.NewProfileHandler(profiles).Routes(api, authMiddleware)
	handlers.NewDashboardHandler(projects, chats).Routes(api, authMiddleware)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "err", err)
		}
	}()

	slog.Info("listening", "port", cfg.AppPort)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		fatal("server stopped", err)
	}
}

func fatal(msg string, err error) {
	slog.Error(msg, "err", err)
	os.Exit(1)
}
