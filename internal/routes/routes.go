package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/brunorainer/IMAGEM-GSAU-FZ/internal/config"
	"github.com/brunorainer/IMAGEM-GSAU-FZ/internal/handlers"
	"github.com/brunorainer/IMAGEM-GSAU-FZ/internal/middleware"
	"github.com/brunorainer/IMAGEM-GSAU-FZ/internal/models"
	"github.com/brunorainer/IMAGEM-GSAU-FZ/internal/storage"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, store storage.Store, cfg *config.Config) {
	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db, cfg)
	userHandler := handlers.NewUserHandler(db)
	reportHandler := handlers.NewReportHandler(db, store)
	accessCodeHandler := handlers.NewAccessCodeHandler(db)
	driveLinkHandler := handlers.NewDriveLinkHandler(db)
	sheetHandler := handlers.NewSheetHandler()
	calendarHandler := handlers.NewCalendarHandler(cfg)

	api := router.Group("/api")

	// Public routes (no session required)
	{
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
			authRoutes.POST("/logout", authHandler.Logout)
		}

		// Patients only ever present an access code, never a session
		api.POST("/access-code/validate", accessCodeHandler.Validate)
		api.GET("/reports/view", reportHandler.View)

		// Sheet/calendar tool; the Google OAuth token in the request body
		// is the credential for the sync itself
		api.POST("/parse-sheet", sheetHandler.Parse)
		api.POST("/sync-calendar", calendarHandler.Sync)

		// Expiration sweep, triggered by a cron job with a shared secret
		api.POST("/reports/cleanup", middleware.CleanupKeyMiddleware(cfg), reportHandler.Cleanup)
	}

	// Administrator routes
	admin := api.Group("")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleAuthMiddleware(models.RoleAdmin))
	{
		admin.POST("/access-code/generate", accessCodeHandler.Generate)

		admin.POST("/reports/upload", reportHandler.Upload)
		admin.GET("/reports/list", reportHandler.List)
		admin.DELETE("/reports/delete", reportHandler.Delete)

		admin.POST("/google-drive/link", driveLinkHandler.Link)

		admin.POST("/users", userHandler.CreateUser)
		admin.GET("/users", userHandler.GetUsers)
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
