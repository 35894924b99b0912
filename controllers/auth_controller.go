package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tramites-digitales/tramites-api/middleware"
	"github.com/tramites-digitales/tramites-api/models"
	"github.com/tramites-digitales/tramites-api/services"
)

// RegisterRequest represents the request body for registering a new account
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest represents the request body for logging in
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthController handles registration, login and the profile endpoint.
type AuthController struct {
	db        *gorm.DB
	tokens    *services.TokenService
	passwords *services.PasswordService
	logger    *zap.Logger
}

// NewAuthController creates the auth controller.
func NewAuthController(db *gorm.DB, tokens *services.TokenService, passwords *services.PasswordService, logger *zap.Logger) *AuthController {
	return &AuthController{
		db:        db,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger.With(zap.String("controller", "auth")),
	}
}

// Register handles POST /api/register - creates a new user account
func (ac *AuthController) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Missing required fields",
				"details": err.Error(),
			},
		})
		return
	}

	// Duplicate registration is a 400, matching the public API contract.
	var existing models.User
	if err := ac.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DUPLICATE_EMAIL",
				"message": "This email is already registered",
			},
		})
		return
	}

	hashed, err := ac.passwords.Hash(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to process credentials",
			},
		})
		return
	}

	user := models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: hashed,
	}

	if err := ac.db.Create(&user).Error; err != nil {
		// The unique index can still fire under concurrent registration.
		errMsg := strings.ToLower(err.Error())
		if strings.Contains(errMsg, "duplicate") || strings.Contains(errMsg, "unique") {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DUPLICATE_EMAIL",
					"message": "This email is already registered",
				},
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to create user",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "User registered successfully",
	})
}

// Login handles POST /api/login - verifies credentials and issues a token.
// Accounts still carrying a legacy hash are upgraded to bcrypt in place.
func (ac *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Missing required fields",
				"details": err.Error(),
			},
		})
		return
	}

	invalidCredentials := func() {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_CREDENTIALS",
				"message": "Invalid email or password",
			},
		})
	}

	var user models.User
	if err := ac.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		invalidCredentials()
		return
	}

	ok, upgraded, err := ac.passwords.Verify(user.Password, req.Password)
	if err != nil || !ok {
		invalidCredentials()
		return
	}

	if upgraded != "" {
		// Lazy migration: persist the bcrypt hash within the same login.
		if err := ac.db.Model(&user).Update("password", upgraded).Error; err != nil {
			ac.logger.Warn("Failed to persist upgraded password hash",
				zap.Uint("user_id", user.ID),
				zap.Error(err))
		} else {
			ac.logger.Info("Upgraded legacy password hash",
				zap.Uint("user_id", user.ID))
		}
	}

	token, err := ac.tokens.Issue(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to issue token",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"token": token,
		},
	})
}

// Me handles GET /api/user - returns the authenticated user's profile
func (ac *AuthController) Me(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
		},
	})
}
