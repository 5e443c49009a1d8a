package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Context keys set by AuthMiddleware.
const (
	KeyUserID = "user_id"
	KeyEmail  = "user_email"
	KeyRole   = "user_role"
)

var (
	errMissingHeader = errors.New("Authorization header required")
	errHeaderFormat  = errors.New("Invalid authorization header format")
	errEmptyToken    = errors.New("Token is empty")
)

// Principal is the authenticated caller.
type Principal struct {
	UserID uuid.UUID
	Email  string
	Role   string
}

func (p Principal) Staff() bool {
	return p.Role == RoleStaff || p.Role == RoleAdmin
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errMissingHeader
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || strings.TrimSpace(scheme) != "Bearer" {
		return "", errHeaderFormat
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errEmptyToken
	}
	return token, nil
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// AuthMiddleware accepts access tokens signed with accessTokenSecret and
// stores the caller on the gin context.
func AuthMiddleware(accessTokenSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			abort(c, http.StatusUnauthorized, err.Error())
			return
		}

		claims, err := ValidateToken(token, accessTokenSecret)
		if err != nil {
			switch {
			case errors.Is(err, ErrTokenExpired):
				abort(c, http.StatusUnauthorized, "Token expired")
			case errors.Is(err, ErrInvalidTokenType):
				abort(c, http.StatusUnauthorized, "Access token required")
			default:
				abort(c, http.StatusUnauthorized, "Invalid or malformed token")
			}
			return
		}

		SetPrincipal(c, claims.Principal())
		c.Next()
	}
}

func SetPrincipal(c *gin.Context, p Principal) {
	c.Set(KeyUserID, p.UserID)
	c.Set(KeyEmail, p.Email)
	c.Set(KeyRole, p.Role)
}

// RequireRole lets the request through when the caller has any of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, exists := c.Get(KeyRole)
		if !exists {
			abort(c, http.StatusUnauthorized, "User role not found")
			return
		}

		role, ok := v.(string)
		if !ok {
			abort(c, http.StatusUnauthorized, "Invalid role type")
			return
		}

		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		abort(c, http.StatusForbidden, "Insufficient permissions")
	}
}

func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(KeyUserID)
	if !exists {
		return uuid.Nil, false
	}

	id, ok := v.(uuid.UUID)
	if !ok {
		return uuid.Nil, false
	}
	return id, true
}

// IsStaff reports whether the caller may act on other users' records.
func IsStaff(c *gin.Context) bool {
	return Principal{Role: c.GetString(KeyRole)}.Staff()
}
