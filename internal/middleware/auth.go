package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/agilpa/solicitation-api/internal/handler"
	"github.com/agilpa/solicitation-api/internal/model"
	"github.com/agilpa/solicitation-api/pkg/auth"
)

const (
	ContextUserID     = "userID"
	ContextUserName   = "userName"
	ContextDepartment = "department"
)

type AuthMiddleware struct {
	jwtService *auth.JWTService
}

func NewAuthMiddleware(jwtService *auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwtService: jwtService}
}

// Authenticate verifies the JWT token and sets user info in context
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing authorization header"))
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid authorization format"))
			c.Abort()
			return
		}

		claims, err := m.jwtService.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid token"))
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID.String())
		c.Set(ContextUserName, claims.Name)
		c.Set(ContextDepartment, claims.Department)
		c.Next()
	}
}

// RequireDepartment restricts a route group to members of the given
// departments.
func (m *AuthMiddleware) RequireDepartment(departments ...model.Department) gin.HandlerFunc {
	return func(c *gin.Context) {
		current := model.Department(c.GetString(ContextDepartment))
		for _, d := range departments {
			if current == d {
				c.Next()
				return
			}
		}
		c.JSON(http.StatusForbidden, handler.NewErrorResponse("department not allowed for this operation"))
		c.Abort()
	}
}
