package middleware

import (
	"errors"
	"net/http"
	"net/http/httputil"
	"runtime/debug"
	"syscall"

	"storesync/internal/logger"

	"github.com/gin-gonic/gin"
)

// Recovery turns a handler panic into a 500 carrying the request id. Panics
// caused by the client hanging up get no response.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		if err, ok := recovered.(error); ok && clientGone(err) {
			c.Abort()
			return
		}

		requestID := GetRequestID(c)
		entry := log.With(
			RequestIDKey, requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		)
		if gin.IsDebugging() {
			dump, _ := httputil.DumpRequest(c.Request, false)
			entry.Error("Panic recovered: %v\n%s\n%s", recovered, dump, debug.Stack())
		} else {
			entry.Error("Panic recovered: %v\n%s", recovered, debug.Stack())
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestId": requestID,
		})
	})
}

func clientGone(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET)
}
