package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tramites-digitales/tramites-api/middleware"
	"github.com/tramites-digitales/tramites-api/models"
)

// CreateSolicitudRequest represents the request body for a generic request
type CreateSolicitudRequest struct {
	Titulo           string `json:"titulo" binding:"required"`
	Descripcion      string `json:"descripcion" binding:"required"`
	TipoTramite      string `json:"tipoTramite" binding:"required"`
	DocumentoAdjunto string `json:"documentoAdjunto"`
}

// SolicitudController handles the generic, status-less requests.
type SolicitudController struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSolicitudController creates the solicitud controller.
func NewSolicitudController(db *gorm.DB, logger *zap.Logger) *SolicitudController {
	return &SolicitudController{
		db:     db,
		logger: logger.With(zap.String("controller", "solicitudes")),
	}
}

// Create handles POST /api/solicitudes
func (sc *SolicitudController) Create(c *gin.Context) {
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

	var req CreateSolicitudRequest
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

	solicitud := models.Solicitud{
		Titulo:           req.Titulo,
		Descripcion:      req.Descripcion,
		TipoTramite:      req.TipoTramite,
		DocumentoAdjunto: req.DocumentoAdjunto,
		UserID:           user.ID,
	}

	if err := sc.db.Create(&solicitud).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to create solicitud",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"id": solicitud.ID,
		},
	})
}

// List handles GET /api/solicitudes - caller-scoped listing
func (sc *SolicitudController) List(c *gin.Context) {
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

	var solicitudes []models.Solicitud
	if err := sc.db.Where("user_id = ?", user.ID).Find(&solicitudes).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to list solicitudes",
			},
		})
		return
	}

	views := make([]map[string]any, 0, len(solicitudes))
	for i := range solicitudes {
		views = append(views, solicitudes[i].View())
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    views,
	})
}
