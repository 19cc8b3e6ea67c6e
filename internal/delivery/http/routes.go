package http

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pricelens/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, logger zerolog.Logger) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RequestIDMiddleware())
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggerMiddleware(logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		products := v1.Group("/products")
		{
			products.POST("", handler.CreateProduct)
			products.GET("", handler.SearchProducts)
			products.GET("/:id", handler.GetProduct)
		}

		v1.GET("/categories", handler.GetCategories)

		stores := v1.Group("/stores")
		{
			stores.GET("", handler.ListStores)
			stores.GET("/search", handler.SearchStores)
		}

		barcodes := v1.Group("/barcodes")
		{
			barcodes.GET("/:barcode", handler.GetBarcode)
			barcodes.POST("/:barcode", handler.LinkBarcode)
			barcodes.DELETE("/:barcode", handler.UnlinkBarcode)
		}
	}

	return router
}
