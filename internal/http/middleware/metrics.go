package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

type RequestRecorder interface {
	ObserveRequest(method, path string, status int, d time.Duration)
}

func Metrics(rec RequestRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		rec.ObserveRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
