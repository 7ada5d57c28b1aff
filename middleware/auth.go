package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/realtoken-app/go-realtoken/service/auth"
	"github.com/realtoken-app/go-realtoken/service/persist"
	"github.com/realtoken-app/go-realtoken/util"
)

const (
	userIDContextKey = "auth.user_id"
	rolesContextKey  = "auth.roles"
)

// ErrNoAuthHeader is returned when a protected route is hit without a bearer token
var ErrNoAuthHeader = errors.New("authorization header required")

// AuthRequired rejects requests without a valid bearer token, and stores the caller's
// identity on the context for handlers downstream.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			util.ErrResponse(c, http.StatusUnauthorized, ErrNoAuthHeader)
			c.Abort()
			return
		}

		claims, err := auth.ParseAuthToken(c, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			util.ErrResponse(c, http.StatusUnauthorized, err)
			c.Abort()
			return
		}

		c.Set(userIDContextKey, claims.UserID)
		c.Set(rolesContextKey, claims.Roles)
		c.Next()
	}
}

// RoleRequired rejects authenticated requests whose caller lacks the given role
func RoleRequired(role persist.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := auth.RequireRole(RolesFromContext(c), role); err != nil {
			util.ErrResponse(c, http.StatusForbidden, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// UserIDFromContext returns the authenticated caller's user ID, empty when anonymous
func UserIDFromContext(c *gin.Context) persist.DBID {
	if id, ok := c.Value(userIDContextKey).(persist.DBID); ok {
		return id
	}
	return ""
}

// RolesFromContext returns the authenticated caller's roles
func RolesFromContext(c *gin.Context) persist.RoleList {
	if roles, ok := c.Value(rolesContextKey).(persist.RoleList); ok {
		return roles
	}
	return nil
}
