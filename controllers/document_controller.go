package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tramites-digitales/tramites-api/services"
)

// DocumentController serves stored documents inline or as a forced
// download. The authorization gate runs in front of both routes; there is
// no per-document ownership check beyond a valid identity.
type DocumentController struct {
	documents services.DocumentStore
	logger    *zap.Logger
}

// NewDocumentController creates the document controller.
func NewDocumentController(documents services.DocumentStore, logger *zap.Logger) *DocumentController {
	return &DocumentController{
		documents: documents,
		logger:    logger.With(zap.String("controller", "documents")),
	}
}

// Get handles GET /api/documents/:filename - streams the document inline
func (dc *DocumentController) Get(c *gin.Context) {
	dc.serve(c, true)
}

// Download handles GET /api/documents/download/:filename - forces download
func (dc *DocumentController) Download(c *gin.Context) {
	dc.serve(c, false)
}

func (dc *DocumentController) serve(c *gin.Context, inline bool) {
	filename := c.Param("filename")

	doc, err := dc.documents.Open(filename)
	if err != nil {
		if errors.Is(err, services.ErrDocumentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DOCUMENT_NOT_FOUND",
					"message": "Document not found",
				},
			})
			return
		}

		dc.logger.Error("Failed to open document",
			zap.String("filename", filename),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "STORAGE_ERROR",
				"message": "Failed to retrieve document",
			},
		})
		return
	}

	defer func() {
		if closeErr := doc.Reader.Close(); closeErr != nil {
			dc.logger.Warn("Failed to close document", zap.Error(closeErr))
		}
	}()

	disposition := "inline"
	if !inline {
		disposition = "attachment"
	}

	c.DataFromReader(http.StatusOK, doc.Size, doc.ContentType, doc.Reader, map[string]string{
		"Content-Disposition": fmt.Sprintf("%s; filename=%q", disposition, filename),
	})
}
