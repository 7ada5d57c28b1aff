package middleware

import (
	"context"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/realtoken-app/go-realtoken/env"
	"github.com/realtoken-app/go-realtoken/service/logger"
	sentryutil "github.com/realtoken-app/go-realtoken/service/sentry"
	"github.com/sirupsen/logrus"
)

type ginContextKey struct{}

// GinContextToContext stores the gin context inside the request context so code holding
// only a context.Context can still reach gin-scoped values.
func GinContextToContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), ginContextKey{}, c))
		c.Next()
	}
}

// GinContextFromContext retrieves a gin context stored by GinContextToContext
func GinContextFromContext(ctx context.Context) *gin.Context {
	gc, ok := ctx.Value(ginContextKey{}).(*gin.Context)
	if !ok {
		panic("gin context not found in context")
	}
	return gc
}

// ErrLogger logs any errors attached to the gin context after the handler chain runs
func ErrLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) > 0 {
			logger.For(c).Errorf("%s %s -> %s", c.Request.Method, c.Request.URL.Path, c.Errors.JSON())
		}
	}
}

// Sentry attaches a request-scoped sentry hub to the gin context
func Sentry(reportGinErrors bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		hub := sentry.CurrentHub().Clone()
		sentryutil.SetHubOnContext(c, hub)

		c.Next()

		if reportGinErrors {
			for _, err := range c.Errors {
				sentryutil.ReportError(c, err)
			}
		}
	}
}

// HandleCORS sets the CORS headers for allowed origins and answers preflight requests
func HandleCORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestOrigin := c.GetHeader("Origin")

		if IsOriginAllowed(requestOrigin) {
			c.Header("Access-Control-Allow-Origin", requestOrigin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// IsOriginAllowed checks an origin against the ALLOWED_ORIGINS environment variable
func IsOriginAllowed(requestOrigin string) bool {
	allowedOrigins := strings.Split(env.GetString("ALLOWED_ORIGINS"), ",")
	for _, allowed := range allowedOrigins {
		if strings.TrimSpace(allowed) == requestOrigin {
			return true
		}
	}
	return false
}

// RequestLogger adds request metadata to the context logger
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := logger.NewContextWithFields(c.Request.Context(), logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
