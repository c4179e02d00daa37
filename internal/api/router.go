package api

import (
	"github.com/gin-gonic/gin"
	"github.com/marcus/declutter/internal/api/handler"
	"github.com/marcus/declutter/internal/api/middleware"
	"github.com/marcus/declutter/internal/config"
	"github.com/marcus/declutter/internal/logger"
	"github.com/marcus/declutter/internal/service"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	extraction *service.ExtractionService,
	cfg *config.Config,
	log *logger.Logger,
) *gin.Engine {
	// Set Gin mode
	switch cfg.Server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
	}))

	// Create handlers
	healthHandler := handler.NewHealthHandler()
	extractionHandler := handler.NewExtractionHandler(extraction, cfg.Extract.MaxUploadMB)
	itemHandler := handler.NewItemHandler(extraction)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Extractions
		v1.POST("/extractions", extractionHandler.SubmitExtraction)
		v1.GET("/extractions/:id", extractionHandler.GetStatus)

		// Manual item edits
		v1.POST("/extractions/:id/items", itemHandler.AddItem)
		v1.PUT("/extractions/:id/items/:index", itemHandler.UpdateItem)
		v1.DELETE("/extractions/:id/items/:index", itemHandler.DeleteItem)

		// Categories
		v1.GET("/categories", itemHandler.GetCategories)
	}

	return r
}
