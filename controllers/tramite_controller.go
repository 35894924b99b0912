package controllers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tramites-digitales/tramites-api/middleware"
	"github.com/tramites-digitales/tramites-api/models"
	"github.com/tramites-digitales/tramites-api/services"
)

// errMalformedBody marks a request body that could not be decoded at all,
// as opposed to one missing a required field.
var errMalformedBody = errors.New("malformed request body")

// UpdateTramiteRequest represents the request body for a status update.
// Estado is a pointer so that structural absence can be told apart from an
// empty string.
type UpdateTramiteRequest struct {
	Estado           *string `json:"estado"`
	NumeroExpediente *string `json:"numeroExpediente"`
	EnviarCorreo     bool    `json:"enviarCorreo"`
}

// TramiteController handles the procedure-case lifecycle: dual-encoding
// creation, caller-scoped listing, status updates with the conditional
// notification, and deletion.
type TramiteController struct {
	db        *gorm.DB
	documents services.DocumentStore
	email     services.EmailSender
	logger    *zap.Logger
}

// NewTramiteController creates the tramite controller.
func NewTramiteController(db *gorm.DB, documents services.DocumentStore, email services.EmailSender, logger *zap.Logger) *TramiteController {
	return &TramiteController{
		db:        db,
		documents: documents,
		email:     email,
		logger:    logger.With(zap.String("controller", "tramites")),
	}
}

// Create handles POST /api/tramites. Multipart and JSON bodies are
// normalized by their adapters into one canonical creation command before
// validation and persistence.
func (tc *TramiteController) Create(c *gin.Context) {
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

	var cmd *models.CreateTramiteCommand
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		cmd, err = tc.commandFromMultipart(c)
	} else {
		cmd, err = tc.commandFromJSON(c)
	}
	if err != nil {
		tc.rejectCreate(c, err)
		return
	}

	tramite := cmd.ToTramite(user.ID)
	if err := tc.db.Create(&tramite).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to create tramite: " + err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"id":               tramite.ID,
			"numeroExpediente": tramite.NumeroExpediente,
			"documentos": gin.H{
				"dniPdf":                  tramite.DniPdf,
				"formatoAutorizacion":     tramite.FormatoAutorizacion,
				"plantillaRelacionPuntos": tramite.PlantillaRelacionPuntos,
			},
		},
	})
}

// rejectCreate maps ingestion failures onto the error taxonomy.
func (tc *TramiteController) rejectCreate(c *gin.Context, err error) {
	var missing *models.MissingFieldError
	var tooLarge *http.MaxBytesError

	switch {
	case errors.As(err, &missing):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Missing required field: " + missing.Field,
			},
		})
	case errors.As(err, &tooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "PAYLOAD_TOO_LARGE",
				"message": "Request payload exceeds the maximum allowed size",
			},
		})
	case errors.Is(err, errMalformedBody):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Could not parse request body",
			},
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to process tramite: " + err.Error(),
			},
		})
	}
}

// commandFromMultipart is the multipart adapter: flat text fields plus up
// to three named file parts, each passed through the document store.
func (tc *TramiteController) commandFromMultipart(c *gin.Context) (*models.CreateTramiteCommand, error) {
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", errMalformedBody, err)
	}

	fields := make(map[string]string, len(form.Value))
	for key, values := range form.Value {
		if len(values) > 0 {
			fields[key] = values[0]
		}
	}

	docs := models.TramiteDocuments{
		DniPdf:                  tc.saveDocumentPart(form, "dniPdf"),
		FormatoAutorizacion:     tc.saveDocumentPart(form, "formatoAutorizacion"),
		PlantillaRelacionPuntos: tc.saveDocumentPart(form, "plantillaRelacionPuntos"),
	}

	return models.NewCreateTramiteCommand(fields, docs)
}

// saveDocumentPart stores one named file part. Documents are best-effort:
// an absent part, an empty filename, a rejected extension or a storage
// failure all leave the slot empty without failing the creation.
func (tc *TramiteController) saveDocumentPart(form *multipart.Form, part string) string {
	files := form.File[part]
	if len(files) == 0 || files[0].Filename == "" {
		return ""
	}

	name, err := tc.documents.Save(files[0])
	if err != nil {
		if errors.Is(err, services.ErrNotPDF) {
			tc.logger.Info("Rejected non-PDF document upload",
				zap.String("part", part),
				zap.String("filename", files[0].Filename))
		} else {
			tc.logger.Warn("Failed to store document upload",
				zap.String("part", part),
				zap.Error(err))
		}
		return ""
	}
	return name
}

// commandFromJSON is the structured-body adapter: every field, including
// the document names, arrives pre-resolved. Kept for legacy clients that
// never upload files.
func (tc *TramiteController) commandFromJSON(c *gin.Context) (*models.CreateTramiteCommand, error) {
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", errMalformedBody, err)
	}

	fields := make(map[string]string, len(raw))
	for key, value := range raw {
		fields[key] = stringifyField(value)
	}

	docs := models.TramiteDocuments{
		DniPdf:                  fields["dniPdf"],
		FormatoAutorizacion:     fields["formatoAutorizacion"],
		PlantillaRelacionPuntos: fields["plantillaRelacionPuntos"],
	}

	return models.NewCreateTramiteCommand(fields, docs)
}

// stringifyField flattens a decoded JSON value to the flat text convention
// the command constructor expects ("true"/"false" for booleans).
func stringifyField(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// List handles GET /api/tramites - caller-scoped listing with the variant
// projection per motive.
func (tc *TramiteController) List(c *gin.Context) {
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

	var tramites []models.Tramite
	if err := tc.db.Where("user_id = ?", user.ID).Find(&tramites).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to list tramites",
			},
		})
		return
	}

	views := make([]map[string]any, 0, len(tramites))
	for i := range tramites {
		views = append(views, tramites[i].PublicView())
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    views,
	})
}

// UpdateEstado handles PATCH /api/tramites/:id. The status change is
// committed first; the notification is best-effort and its failure is
// reported in the response body, never as an error status.
func (tc *TramiteController) UpdateEstado(c *gin.Context) {
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

	var req UpdateTramiteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Estado == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Missing required field: estado",
			},
		})
		return
	}

	tramite, ok := tc.findOwned(c, user.ID)
	if !ok {
		return
	}

	// Any status string is stored verbatim; there is no transition graph.
	tramite.Estado = *req.Estado
	if req.NumeroExpediente != nil {
		tramite.NumeroExpediente = *req.NumeroExpediente
	}

	if err := tc.db.Save(tramite).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to update tramite: " + err.Error(),
			},
		})
		return
	}

	data := gin.H{"estado": tramite.Estado}

	if req.EnviarCorreo && tramite.Estado == models.EstadoCompletado {
		// The status change is already committed; a mail-provider outage
		// must not undo it.
		statusCode, sendErr := tc.email.SendCompletion(completionEmailFor(tramite))
		if sendErr != nil {
			tc.logger.Warn("Completion email failed",
				zap.Uint("tramite_id", tramite.ID),
				zap.Int("provider_status", statusCode),
				zap.Error(sendErr))
			data["email_sent"] = false
			data["email_error"] = sendErr.Error()
		} else {
			data["email_sent"] = true
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

// completionEmailFor populates the fixed notification template, falling
// back to the internal id when no expediente number was assigned.
func completionEmailFor(t *models.Tramite) services.CompletionEmail {
	expediente := t.NumeroExpediente
	if expediente == "" {
		expediente = strconv.FormatUint(uint64(t.ID), 10)
	}

	return services.CompletionEmail{
		To:            t.Email,
		NombreCliente: t.NombreCliente,
		Expediente:    expediente,
		Tipo:          t.Tipo,
		Cups:          t.Cups,
		Direccion:     t.Direccion,
		Fecha:         t.Fecha.Format("02/01/2006"),
	}
}

// Delete handles DELETE /api/tramites/:id
func (tc *TramiteController) Delete(c *gin.Context) {
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

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		tc.notFound(c)
		return
	}

	result := tc.db.Where("id = ? AND user_id = ?", id, user.ID).Delete(&models.Tramite{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "STORAGE_ERROR",
				"message": "Failed to delete tramite: " + result.Error.Error(),
			},
		})
		return
	}
	if result.RowsAffected == 0 {
		tc.notFound(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Tramite deleted successfully",
	})
}

// findOwned loads the case scoped to the acting user. A case owned by
// someone else is indistinguishable from an absent one.
func (tc *TramiteController) findOwned(c *gin.Context, userID uint) (*models.Tramite, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		tc.notFound(c)
		return nil, false
	}

	var tramite models.Tramite
	if err := tc.db.Where("id = ? AND user_id = ?", id, userID).First(&tramite).Error; err != nil {
		tc.notFound(c)
		return nil, false
	}
	return &tramite, true
}

func (tc *TramiteController) notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "NOT_FOUND",
			"message": "Tramite not found",
		},
	})
}
