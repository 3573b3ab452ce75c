package main

import (
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/eproba/eproba-api/internal/config"
	"github.com/eproba/eproba-api/internal/constants"
	"github.com/eproba/eproba-api/internal/database"
	"github.com/eproba/eproba-api/internal/handlers"
	"github.com/eproba/eproba-api/internal/middleware"
	"github.com/eproba/eproba-api/internal/notifications"
	"github.com/eproba/eproba-api/internal/permissions"
	"github.com/eproba/eproba-api/internal/repository"
	"github.com/eproba/eproba-api/internal/services"
	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	if err := database.AddIndexes(database.GetDB()); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}

	// Initialize Gin router
	r := gin.Default()

	// Setup session middleware with Redis
	redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
	store, err := redisStore.NewStore(
		10,
		"tcp",
		redisAddr,
		"",
		"",
		[]byte(cfg.SessionSecret),
	)
	if err != nil {
		log.Fatalf("Failed to create Redis store: %v", err)
	}
	isProduction := cfg.GinMode == "release"
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: 2, // SameSite=Lax
	})
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	// Repositories
	db := database.GetDB()
	userRepo := repository.NewUserRepository(db)
	worksheetRepo := repository.NewWorksheetRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	// Notification dispatcher. Missing transports are tolerated: the
	// dispatcher logs and skips the channel.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	var push notifications.PushSender
	if cfg.PushEndpoint != "" && cfg.PushServerKey != "" {
		push = notifications.NewHTTPPushSender(cfg.PushEndpoint, cfg.PushServerKey)
	}
	var email notifications.EmailSender
	if cfg.SMTPHost != "" {
		email = notifications.NewSMTPEmailSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.EmailFrom)
	}
	dispatcher := notifications.NewDispatcher(logger, push, email, userRepo, cfg.InternalEmailDomain, cfg.BaseURL)

	// Services
	engine := permissions.NewEngine(permissions.ScopeTeam)
	aiService := services.NewAIService(cfg.OpenAIAPIKey)
	authService := services.NewAuthService(userRepo)
	userService := services.NewUserService(userRepo, engine)
	taskService := services.NewTaskService(worksheetRepo, userRepo, engine, dispatcher)
	worksheetService := services.NewWorksheetService(worksheetRepo, userRepo, templateRepo, engine, dispatcher)
	teamService := services.NewTeamService(teamRepo, userRepo, engine)
	statsService := services.NewStatsService(statsRepo, teamRepo)
	templateService := services.NewTemplateService(templateRepo)

	// Periodic retention sweep for soft-deleted worksheets. Deletes
	// also trigger the sweep opportunistically; this catches idle
	// periods.
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if purged, err := worksheetService.Sweep(); err != nil {
				logger.Error("retention sweep failed", "error", err)
			} else if purged > 0 {
				logger.Info("retention sweep removed worksheets", "count", purged)
			}
		}
	}()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	worksheetHandler := handlers.NewWorksheetHandler(worksheetService, aiService, engine)
	taskHandler := handlers.NewTaskHandler(taskService)
	teamHandler := handlers.NewTeamHandler(teamService, statsService)
	templateHandler := handlers.NewTemplateHandler(templateService)
	configHandler := handlers.NewConfigHandler(cfg)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Eproba API is running",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		api.GET("/config", configHandler.GetConfig)

		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", middleware.RequireAuth(authService), authHandler.GetCurrentUser)
			auth.POST("/tokens", middleware.RequireAuth(authService), authHandler.CreateAccessToken)
			auth.POST("/devices", middleware.RequireAuth(authService), authHandler.RegisterDevice)
		}

		// Public share links
		api.GET("/shared/:token", worksheetHandler.GetSharedWorksheet)

		// Worksheet routes (protected)
		worksheets := api.Group("/worksheets")
		worksheets.Use(middleware.RequireAuth(authService))
		{
			worksheets.GET("", worksheetHandler.ListWorksheets)
			worksheets.POST("", worksheetHandler.CreateWorksheet)
			worksheets.POST("/from-template", worksheetHandler.InstantiateFromTemplate)
			worksheets.POST("/generate", worksheetHandler.GenerateTasks)

			protected := worksheets.Group("/:id")
			protected.Use(middleware.RequireWorksheetAccess(engine))
			{
				protected.GET("", worksheetHandler.GetWorksheet)
				protected.PATCH("", worksheetHandler.UpdateWorksheet)
				protected.DELETE("", worksheetHandler.DeleteWorksheet)
				protected.POST("/archive", worksheetHandler.ArchiveWorksheet)
				protected.POST("/unarchive", worksheetHandler.UnarchiveWorksheet)

				tasks := protected.Group("/tasks/:taskId")
				{
					tasks.GET("/approvers", taskHandler.ListApprovers)
					tasks.POST("/submit", taskHandler.SubmitTask)
					tasks.POST("/unsubmit", taskHandler.UnsubmitTask)
					tasks.POST("/accept", taskHandler.AcceptTask)
					tasks.POST("/reject", taskHandler.RejectTask)
					tasks.POST("/clear-status", taskHandler.ClearTaskStatus)
					tasks.POST("/force-accept", taskHandler.ForceAcceptTask)
					tasks.POST("/force-reject", taskHandler.ForceRejectTask)
				}
			}
		}

		// Team routes (protected)
		teams := api.Group("/teams")
		teams.Use(middleware.RequireAuth(authService))
		{
			teams.GET("/:id", teamHandler.GetTeam)
			teams.PATCH("/:id", teamHandler.UpdateTeam)
			teams.GET("/:id/statistics", teamHandler.GetStatistics)
			teams.GET("/:id/members", userHandler.ListTeamMembers)
			teams.GET("/:id/patrols", teamHandler.ListPatrols)
			teams.POST("/:id/patrols", teamHandler.CreatePatrol)
			teams.PATCH("/:id/patrols/:patrolId", teamHandler.RenamePatrol)
			teams.DELETE("/:id/patrols/:patrolId", teamHandler.DeletePatrol)
		}

		// User routes (protected)
		users := api.Group("/users")
		users.Use(middleware.RequireAuth(authService))
		{
			users.PATCH("/:id", userHandler.UpdateUser)
			users.POST("/:id/deactivate", userHandler.DeactivateUser)
		}

		// Template routes (protected)
		templates := api.Group("/templates")
		templates.Use(middleware.RequireAuth(authService))
		{
			templates.GET("", templateHandler.ListTemplates)
			templates.POST("", templateHandler.CreateTemplate)
			templates.GET("/:id", templateHandler.GetTemplate)
			templates.PATCH("/:id", templateHandler.UpdateTemplate)
			templates.DELETE("/:id", templateHandler.DeleteTemplate)
		}
	}

	// Start server
	log.Println("Server starting on :8080")
	if err := r.Run(":8080"); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
