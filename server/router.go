package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	jobHandler "transcode-notifier/handler"
)

const requestIDHeader = "X-Request-Id"

func NewRouter(ctx context.Context, notificationPath string, notifications *jobHandler.NotificationHandler, jobs *jobHandler.JobHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(*zerolog.Ctx(ctx)))

	addHealth(r)
	r.POST(notificationPath, notifications.Handle)
	r.GET("/jobs/:id", jobs.GetJob)

	return r
}

func addHealth(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})
}

// requestLogger tags each request with an id and stores the request logger
// in the request context.
func requestLogger(base zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		logger := base.With().Str("request_id", requestID).Logger()
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context()))

		c.Next()

		event := logger.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = logger.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
