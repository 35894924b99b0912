package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tramites-digitales/tramites-api/models"
	"github.com/tramites-digitales/tramites-api/services"
)

const currentUserKey = "current_user"

// AuthMiddleware resolves a token to an acting identity before every
// protected operation.
type AuthMiddleware struct {
	tokens *services.TokenService
	db     *gorm.DB
}

// NewAuthMiddleware creates the authorization gate.
func NewAuthMiddleware(tokens *services.TokenService, db *gorm.DB) *AuthMiddleware {
	return &AuthMiddleware{
		tokens: tokens,
		db:     db,
	}
}

// ExtractToken pulls the token from the Authorization header first, then
// the "token" query parameter. The query fallback exists so direct-link
// document downloads, which cannot set headers, still authenticate.
func ExtractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return c.Query("token")
}

// RequireToken validates the request's token and injects the resolved user
// into the context, or rejects the call with 401 naming the failure.
func (am *AuthMiddleware) RequireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "MISSING_TOKEN",
					"message": "Token not provided",
				},
			})
			return
		}

		userID, err := am.tokens.Validate(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_TOKEN",
					"message": "Invalid token: " + err.Error(),
				},
			})
			return
		}

		var user models.User
		if err := am.db.First(&user, userID).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNKNOWN_SUBJECT",
					"message": services.ErrUnknownSubject.Error() + ": user no longer exists",
				},
			})
			return
		}

		c.Set(currentUserKey, &user)
		c.Next()
	}
}

// CurrentUser extracts the acting user injected by RequireToken.
func CurrentUser(c *gin.Context) (*models.User, error) {
	value, exists := c.Get(currentUserKey)
	if !exists {
		return nil, errors.New("no authenticated user in context")
	}

	user, ok := value.(*models.User)
	if !ok {
		return nil, errors.New("authenticated user has unexpected type")
	}
	return user, nil
}
