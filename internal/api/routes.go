package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/Kamar-Folarin/ticket-sync/docs"
)

// @title Ticket Sync API
// @version 1.0
// @description Synchronizes Jira tickets into local storage and exposes run control, progress streaming and maintenance endpoints
// @contact.name API Support
// @contact.url http://github.com/Kamar-Folarin
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// SetupRouter configures the API routes
func SetupRouter(h *Handler, logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	// API documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")
	{
		sync := v1.Group("/sync")
		{
			sync.GET("/status", h.GetStatus)
			sync.POST("/start", h.StartSync)
			sync.GET("/schedule", h.GetSchedules)
			sync.POST("/schedule", h.UpdateSchedule)
			sync.GET("/health", h.Health)
			sync.POST("/cleanup", h.Cleanup)

			sync.GET("/:runId", h.GetRun)
			sync.POST("/:runId/cancel", h.CancelSync)
			sync.GET("/:runId/progress", h.StreamProgress)
		}

		tickets := v1.Group("/tickets")
		{
			tickets.GET("", h.ListTickets)
			tickets.GET("/stats", h.GetTicketStatistics)
			tickets.GET("/:key", h.GetTicket)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		respondWithError(c, http.StatusNotFound, "route not found")
	})

	return r
}

// requestLogger logs one line per request through logrus
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
		if c.Writer.Status() >= 500 {
			entry.Warn("Request failed")
			return
		}
		entry.Debug("Request handled")
	}
}
