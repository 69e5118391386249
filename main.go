package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/vibeship/vibeship-engine/pkg/auth"
	"github.com/vibeship/vibeship-engine/pkg/config"
	"github.com/vibeship/vibeship-engine/pkg/database"
	"github.com/vibeship/vibeship-engine/pkg/github"
	"github.com/vibeship/vibeship-engine/pkg/handlers"
	"github.com/vibeship/vibeship-engine/pkg/logging"
	"github.com/vibeship/vibeship-engine/pkg/mcp"
	mcpauth "github.com/vibeship/vibeship-engine/pkg/mcp/auth"
	"github.com/vibeship/vibeship-engine/pkg/mcp/tools"
	"github.com/vibeship/vibeship-engine/pkg/middleware"
	"github.com/vibeship/vibeship-engine/pkg/repositories"
	"github.com/vibeship/vibeship-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
		zap.Bool("webhook_secret_configured", cfg.GitHub.WebhookSecret != ""))

	ctx := context.Background()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// golang-migrate needs a database/sql handle; the pool stays on pgx.
	migrationDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(migrationDB, cfg.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	_ = migrationDB.Close()

	// Repositories
	projectRepo := repositories.NewProjectRepository(db)
	tagRepo := repositories.NewProjectTagRepository(db)
	activityRepo := repositories.NewActivityLogRepository(db)
	catalogRepo := repositories.NewTagCatalogRepository(db)

	// Services
	activityService := services.NewActivityService(activityRepo, projectRepo, logger)
	catalogService := services.NewTagCatalogService(catalogRepo, logger)
	projectService := services.NewProjectService(projectRepo, tagRepo, catalogService, activityService, logger)
	apiKeyService := services.NewAPIKeyService(projectRepo, logger)
	webhookService := services.NewWebhookService(projectRepo, activityService, logger)
	screenshotService := services.NewScreenshotService(projectRepo, activityService,
		cfg.Storage.ScreenshotDir, cfg.Storage.MaxScreenshotBytes, logger)
	githubClient := github.NewClient(cfg.GitHub.Token)
	importService := services.NewGitHubImportService(githubClient, projectRepo, activityService, logger)

	if cfg.TagCatalogSeedPath != "" {
		if err := catalogService.SeedFromFile(ctx, cfg.TagCatalogSeedPath); err != nil {
			logger.Warn("Failed to seed tag catalog", zap.Error(err))
		}
	}

	// Owner authentication (JWT via external identity provider)
	jwksClient, err := auth.NewJWKSClient(&auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSEndpoints:      cfg.Auth.JWKSEndpoints,
	})
	if err != nil {
		logger.Fatal("Failed to create JWKS client", zap.Error(err))
	}
	defer jwksClient.Close()
	authService := auth.NewAuthService(jwksClient, logger)
	authMiddleware := auth.NewMiddleware(authService, logger)

	// MCP server for AI assistants
	mcpServer := mcp.NewServer("vibeship-engine", cfg.Version, logger)
	tools.RegisterProjectTools(mcpServer.MCP(), &tools.ProjectToolDeps{
		ProjectService:  projectService,
		ActivityService: activityService,
		Logger:          logger,
	})
	mcpKeyMiddleware := mcpauth.NewMiddleware(apiKeyService, logger)

	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewWebhookHandler(webhookService, cfg, logger).RegisterRoutes(mux)
	handlers.NewAgentAPIHandler(apiKeyService, projectService, screenshotService, activityService, logger).RegisterRoutes(mux)
	handlers.NewInstructionsHandler(logger).RegisterRoutes(mux)
	handlers.NewProjectsHandler(projectService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewAPIKeyHandler(apiKeyService, projectService, cfg, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewActivityHandler(activityService, projectService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewGitHubImportHandler(importService, projectService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewTagCatalogHandler(catalogService, logger).RegisterRoutes(mux)
	handlers.NewDiscoverHandler(projectService, logger).RegisterRoutes(mux)
	handlers.NewMCPHandler(mcpServer, logger).RegisterRoutes(mux, mcpKeyMiddleware)

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting vibeship-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
