package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ticketgate/logger"
	"ticketgate/session"
	"ticketgate/validation"
)

const (
	RequestIDHeader = "X-Request-ID"
	RequestIDKey    = "request_id"

	// SignInPath is where browsers without a session are sent.
	SignInPath = "/signin"

	stationKey = "station"
)

// RequestID adds a unique request ID to each request
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}

// GetRequestID returns the request ID from context
func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// Logger logs each request at a level chosen by status
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("request_id", GetRequestID(c)),
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			log.Error("Server error", fields...)
		case status >= 400:
			log.Warn("Client error", fields...)
		default:
			log.Info("Request completed", fields...)
		}
	}
}

// RequireSession resolves the signed-in brand to its station. Browsers are
// sent to the sign-in page; API clients get 401.
func RequireSession(store session.Store, stations *validation.Stations) gin.HandlerFunc {
	return func(c *gin.Context) {
		brand, err := store.Brand(c)
		if err != nil {
			if !errors.Is(err, session.ErrNoSession) {
				c.Error(err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Session store unavailable"})
				return
			}
			if wantsHTML(c) {
				c.Redirect(http.StatusFound, SignInPath)
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Sign in first"})
			return
		}
		c.Set(stationKey, stations.For(brand))
		c.Next()
	}
}

func stationFrom(c *gin.Context) *validation.Station {
	return c.MustGet(stationKey).(*validation.Station)
}

func wantsHTML(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/html")
}
