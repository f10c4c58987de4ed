package middleware

import (
	"time"

	"storesync/internal/logger"

	"github.com/gin-gonic/gin"
)

func Logger(logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		log := logger.Info
		if status >= 500 {
			log = logger.Error
		}
		log("[%s] %s %s %d %s %s",
			GetRequestID(c),
			c.Request.Method,
			path,
			status,
			time.Since(start),
			c.ClientIP(),
		)
	}
}
