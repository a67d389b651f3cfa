// api/router.go
package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/shiftline/lineboard/api/handlers"
	"github.com/shiftline/lineboard/api/middleware"
	"github.com/shiftline/lineboard/config"
	"github.com/shiftline/lineboard/internal/storage"
)

// SetupRouter initializes the Gin router and sets up all routes.
func SetupRouter(db *storage.DB, cfg *config.Config) *gin.Engine {
	router := gin.Default() // Includes Logger and Recovery

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		MaxAge:           12 * time.Hour,
		AllowCredentials: false,
	}))

	router.Use(middleware.RequestID())

	ratelimiter := middleware.NewRateLimiter()
	router.Use(middleware.RateLimitMiddleware(ratelimiter))

	// Runs after Logger/Recovery but wraps the handlers, so attached errors
	// become consistent JSON responses.
	router.Use(middleware.ErrorHandler())

	tableHandler := handlers.NewTableHandler(db, cfg)
	lineHandler := handlers.NewLineHandler(db, cfg)

	router.GET("/ping", func(c *gin.Context) { c.String(200, "pong") })

	router.GET("/tables", tableHandler.Browse)
	router.PATCH("/tables/update", tableHandler.Update)

	router.GET("/lines", lineHandler.ListLines)
	router.GET("/lines/:line_id/dashboard", lineHandler.Dashboard)

	return router
}
