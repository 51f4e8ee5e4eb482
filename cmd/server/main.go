package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/AlexX2727/backend/internal/config"
	"github.com/AlexX2727/backend/internal/database"
	"github.com/AlexX2727/backend/internal/handlers"
	"github.com/AlexX2727/backend/internal/logging"
	"github.com/AlexX2727/backend/internal/middleware"
	"github.com/AlexX2727/backend/internal/repository"
	"github.com/AlexX2727/backend/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	logging.Setup(cfg.GinMode)

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	db := database.GetDB()

	// Repositories
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	attachmentRepo := repository.NewAttachmentRepository(db)
	codeRepo := repository.NewVerificationCodeRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)

	// Optional integrations
	var aiService *services.AIService
	if cfg.OpenAIAPIKey != "" {
		aiService = services.NewAIService(cfg.OpenAIAPIKey)
	}

	var storage services.ObjectStorage
	if cfg.S3Bucket != "" {
		s3Storage, err := services.NewS3Storage(context.Background(), cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize object storage")
		}
		storage = s3Storage
	} else {
		log.Warn().Msg("S3_BUCKET not set, attachment uploads disabled")
	}

	mailer := services.NewResendMailer(cfg)

	// Services
	tokenService := services.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	authzService := services.NewAuthorizationService(projectRepo)
	authService := services.NewAuthService(userRepo, codeRepo, mailer, cfg.FrontendBaseURL)
	userService := services.NewUserService(userRepo)
	projectService := services.NewProjectService(projectRepo, userRepo, authzService)
	taskService := services.NewTaskService(taskRepo, projectRepo, authzService, aiService)
	commentService := services.NewCommentService(commentRepo, taskRepo, projectRepo, authzService)
	attachmentService := services.NewAttachmentService(attachmentRepo, taskRepo, projectRepo, authzService, storage)
	dashboardService := services.NewDashboardService(dashboardRepo)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, tokenService)
	userHandler := handlers.NewUserHandler(userService)
	projectHandler := handlers.NewProjectHandler(projectService)
	memberHandler := handlers.NewProjectMemberHandler(projectService)
	taskHandler := handlers.NewTaskHandler(taskService)
	commentHandler := handlers.NewCommentHandler(commentService)
	attachmentHandler := handlers.NewAttachmentHandler(attachmentService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)

	r := gin.Default()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Project Management API is running",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public except /me)
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.GET("/me", middleware.RequireAuth(tokenService), authHandler.GetCurrentUser)
			auth.POST("/forgot-password", authHandler.ForgotPassword)
			auth.POST("/reset-password", authHandler.ResetPassword)
		}

		// User routes (protected)
		users := api.Group("/users")
		users.Use(middleware.RequireAuth(tokenService))
		{
			users.GET("", userHandler.ListUsers)
			users.GET("/:id", userHandler.GetUser)
			users.PATCH("/:id", userHandler.UpdateUser)
			users.DELETE("/:id", userHandler.DeleteUser)
		}

		// Project routes (protected)
		projects := api.Group("/projects")
		projects.Use(middleware.RequireAuth(tokenService))
		{
			projects.POST("", projectHandler.CreateProject)
			projects.GET("", projectHandler.ListProjects)
			projects.GET("/:id", middleware.RequireProjectAccess(), projectHandler.GetProject)
			projects.PATCH("/:id", middleware.RequireProjectAccess(), projectHandler.UpdateProject)
			projects.DELETE("/:id", middleware.RequireProjectAccess(), projectHandler.DeleteProject)
			projects.GET("/:id/members", middleware.RequireProjectAccess(), projectHandler.ListMembers)
		}

		// Project membership routes (protected)
		members := api.Group("/project-members")
		members.Use(middleware.RequireAuth(tokenService))
		{
			members.POST("", memberHandler.AddMember)
			members.PATCH("/:id", memberHandler.UpdateMember)
			members.DELETE("/:id", memberHandler.RemoveMember)
		}

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(middleware.RequireAuth(tokenService))
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.POST("/generate", taskHandler.GenerateTasks)
			tasks.GET("/:id", middleware.RequireTaskAccess(), taskHandler.GetTask)
			tasks.PATCH("/:id", middleware.RequireTaskAccess(), taskHandler.UpdateTask)
			tasks.DELETE("/:id", middleware.RequireTaskAccess(), taskHandler.DeleteTask)
		}

		// Comment routes (protected)
		comments := api.Group("/comments")
		comments.Use(middleware.RequireAuth(tokenService))
		{
			comments.POST("", commentHandler.CreateComment)
			comments.GET("/task/:taskId", commentHandler.ListComments)
			comments.PATCH("/:id", commentHandler.UpdateComment)
			comments.DELETE("/:id", commentHandler.DeleteComment)
		}

		// Attachment routes (protected)
		attachments := api.Group("/attachments")
		attachments.Use(middleware.RequireAuth(tokenService))
		{
			attachments.POST("", attachmentHandler.Upload)
			attachments.GET("/task/:taskId", attachmentHandler.ListAttachments)
			attachments.DELETE("/:id", attachmentHandler.DeleteAttachment)
		}

		// Upload alias (protected)
		api.POST("/upload", middleware.RequireAuth(tokenService), attachmentHandler.Upload)

		// Dashboard routes (protected)
		dashboard := api.Group("/dashboard")
		dashboard.Use(middleware.RequireAuth(tokenService))
		{
			dashboard.GET("/metrics", dashboardHandler.GetMetrics)
		}
	}

	// Start server
	log.Info().Str("port", cfg.ServerPort).Msg("Server starting")
	if err := r.Run(":" + cfg.ServerPort); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}
}
