package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tramites-digitales/tramites-api/models"
)

// ExpedienteController handles the public, unauthenticated case lookup.
type ExpedienteController struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewExpedienteController creates the expediente controller.
func NewExpedienteController(db *gorm.DB, logger *zap.Logger) *ExpedienteController {
	return &ExpedienteController{
		db:     db,
		logger: logger.With(zap.String("controller", "expedientes")),
	}
}

// Consulta handles GET /api/expedientes/consulta?tipo=&valor= - looks up
// cases by expediente number or email and returns limited projections with
// a human-readable status comment.
func (ec *ExpedienteController) Consulta(c *gin.Context) {
	tipo := c.Query("tipo")
	valor := c.Query("valor")

	if tipo == "" || valor == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "The tipo and valor query parameters are required",
			},
		})
		return
	}

	var column string
	switch tipo {
	case "expediente":
		column = "numero_expediente"
	case "email":
		column = "email"
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "The tipo parameter must be expediente or email",
			},
		})
		return
	}

	var tramites []models.Tramite
	if err := ec.db.Where(column+" = ?", valor).Find(&tramites).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to look up expediente",
			},
		})
		return
	}

	if len(tramites) == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "No expediente matches the given criteria",
			},
		})
		return
	}

	views := make([]map[string]any, 0, len(tramites))
	for i := range tramites {
		views = append(views, tramites[i].LookupView())
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    views,
	})
}
