package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/casupload/internal/api"
	"github.com/dmitrijs2005/casupload/internal/common"
	"github.com/dmitrijs2005/casupload/internal/server/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	subjectKey      = "subject"
	requestIDHeader = "X-Request-Id"
)

func (s *Server) bearerAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(common.AuthorizationHeaderName)
		token, ok := strings.CutPrefix(header, common.BearerPrefix)
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, api.Response{Error: "missing token"})
			return
		}

		subject, err := auth.GetSubjectFromToken(token, s.jwtSecret)
		if err != nil {
			s.logger.Debug(c.Request.Context(), "token rejected", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, api.Response{Error: "invalid token"})
			return
		}

		c.Set(subjectKey, subject)
		c.Next()
	}
}

// requestLogger logs one line per request through the service logger.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)

		c.Next()

		args := []any{
			"request_id", id,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		}
		if len(c.Errors) > 0 {
			args = append(args, "error", c.Errors.String())
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			s.logger.Error(c.Request.Context(), "request", args...)
		case c.Writer.Status() >= http.StatusBadRequest:
			s.logger.Warn(c.Request.Context(), "request", args...)
		default:
			s.logger.Info(c.Request.Context(), "request", args...)
		}
	}
}

func subject(c *gin.Context) string {
	return c.GetString(subjectKey)
}
