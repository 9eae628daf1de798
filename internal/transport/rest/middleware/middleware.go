package middleware

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mintlite/invest_tracker/utils"
)

const RequestIDHeader = "X-Request-ID"

// Logger tags every request with an id, puts it into the request context and
// logs timing around the handler chain.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		now := time.Now()

		rqID := c.GetHeader(RequestIDHeader)
		if rqID == "" {
			rqID = uuid.NewString()
		}

		c.Request = c.Request.WithContext(utils.CtxWithRqID(c.Request.Context(), rqID))
		c.Header(RequestIDHeader, rqID)

		slog.Info(
			"start request",
			slog.String("rqID", rqID),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
		)

		defer func() {
			slog.Info(
				"request finished",
				slog.String("rqID", rqID),
				slog.Int("status", c.Writer.Status()),
				slog.String("request duration", fmt.Sprintf("%.2fs", time.Since(now).Seconds())),
			)
		}()

		c.Next()
	}
}
