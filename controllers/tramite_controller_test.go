package controllers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tramites-digitales/tramites-api/middleware"
	"github.com/tramites-digitales/tramites-api/models"
	"github.com/tramites-digitales/tramites-api/services"
)

type filePart = struct {
	Filename string
	Content  []byte
}

func setupTramiteTest(t *testing.T) (*gorm.DB, *services.MockEmailService, *TramiteController) {
	t.Helper()

	db := setupTestDB(t)
	email := services.NewMockEmailService()
	documents := services.NewLocalDocumentStore(t.TempDir(), testLogger())
	tc := NewTramiteController(db, documents, email, testLogger())
	return db, email, tc
}

func tramiteFields() map[string]string {
	return map[string]string{
		"tipo":             models.MotivoAlta,
		"nombreCliente":    "María García",
		"email":            "maria@example.com",
		"telefonoMovil":    "600123456",
		"cups":             "ES0021000000000000AA",
		"direccion":        "Calle Mayor 1",
		"refCatastral":     "9872023VH5797S0001WX",
		"potenciaNumerica": "5.75",
	}
}

func TestCreateTramite_MultipartWithDocuments(t *testing.T) {
	db, _, tc := setupTramiteTest(t)
	user := createTestUser(t, db, "owner@example.com")

	router := setupTestRouter()
	router.POST("/api/tramites", asUser(user), tc.Create)

	fields := tramiteFields()
	fields["variosSuministros"] = "true"
	fields["acometidaCentralizada"] = "false"

	req := multipartRequest(t, "/api/tramites", fields, map[string]filePart{
		"dniPdf": {Filename: "dni.pdf", Content: []byte("%PDF-1.4 dni")},
		// Non-PDF upload: the slot stays empty, the creation still succeeds.
		"formatoAutorizacion": {Filename: "autorizacion.docx", Content: []byte("not a pdf")},
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := decodeResponse(t, w)
	data := resp["data"].(map[string]any)
	documentos := data["documentos"].(map[string]any)
	assert.NotEmpty(t, documentos["dniPdf"])
	assert.Contains(t, documentos["dniPdf"], "dni.pdf")
	assert.Empty(t, documentos["formatoAutorizacion"])
	assert.Empty(t, documentos["plantillaRelacionPuntos"])

	var tramite models.Tramite
	require.NoError(t, db.First(&tramite).Error)
	assert.Equal(t, user.ID, tramite.UserID)
	assert.Equal(t, models.EstadoPendiente, tramite.Estado)
	assert.True(t, tramite.VariosSuministros)
	assert.False(t, tramite.AcometidaCentralizada)
	assert.NotEmpty(t, tramite.DniPdf)
	assert.Empty(t, tramite.FormatoAutorizacion)
}

func TestCreateTramite_MultipartEmptyFilenameIsNotProvided(t *testing.T) {
	db, _, tc := setupTramiteTest(t)
	user := createTestUser(t, db, "owner@example.com")

	router := setupTestRouter()
	router.POST("/api/tramites", asUser(user), tc.Create)

	req := multipartRequest(t, "/api/tramites", tramiteFields(), map[string]filePart{
		"dniPdf": {Filename: "", Content: nil},
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var tramite models.Tramite
	require.NoError(t, db.First(&tramite).Error)
	assert.Empty(t, tramite.DniPdf)
}

func TestCreateTramite_JSONBody(t *testing.T) {
	db, _, tc := setupTramiteTest(t)
	user := createTestUser(t, db, "owner@example.com")

	router := setupTestRouter()
	router.POST("/api/tramites", asUser(user), tc.Create)

	body := map[string]any{
		"tipo":             models.MotivoModificacion,
		"nombreCliente":    "Juan López",
		"email":            "juan@example.com",
		"telefonoMovil":    "600654321",
		"cups":             "ES0021000000000000BB",
		"direccion":        "Avenida Sol 22",
		"refCatastral":     "1234023VH5797S0001ZZ",
		"potenciaNumerica": "3.45",
		"aumentoPotencia":  "true",
		"numeroExpediente": "EXP-2024-002",
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/api/tramites", body))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var tramite models.Tramite
	require.NoError(t, db.First(&tramite).Error)
	assert.True(t, tramite.AumentoPotencia)
	assert.Equal(t, "EXP-2024-002", tramite.NumeroExpediente)
	assert.Empty(t, tramite.DniPdf, "document fields default to empty on the structured-body path")
}

func TestCreateTramite_JSONBooleanValuesAccepted(t *testing.T) {
	db, _, tc := setupTramiteTest(t)
	user := createTestUser(t, db, "owner@example.com")

	router := setupTestRouter()
	router.POST("/api/tramites", asUser(user), tc.Create)

	body := map[string]any{
		"tipo":              models.MotivoAlta,
		"nombreCliente":     "Juan López",
		"email":             "juan@example.com",
		"telefonoMovil":     "600654321",
		"cups":              "ES0021000000000000BB",
		"direccion":         "Avenida Sol 22",
		"refCatastral":      "1234023VH5797S0001ZZ",
		"potenciaNumerica":  "3.45",
		"variosSuministros": true,
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/api/tramites", body))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var tramite models.Tramite
	require.NoError(t, db.First(&tramite).Error)
	assert.True(t, tramite.VariosSuministros)
}

func TestCreateTramite_MissingRequiredField(t *testing.T) {
	db, _, tc := setupTramiteTest(t)
	user := createTestUser(t, db, "owner@example.com")

	router := setupTestRouter()
	router.POST("/api/tramites", asUser(user), tc.Create)

	fields := tramiteFields()
	delete(fields, "telefonoMovil")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, multipartRequest(t, "/api/tramites", fields, nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
	assert.Contains(t, w.Body.String(), "telefonoMovil")

	var count int64
	require.NoError(t, db.Model(&models.Tramite{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateTramite_PayloadTooLarge(t *testing.T) {
	db, _, tc := setupTramiteTest(t)
	user := createTestUser(t, db, "owner@example.com")

	router := setupTestRouter()
	rm := middleware.NewRequestMiddleware(testLogger())
	router.POST("/api/tramites", rm.LimitBodySize(512), asUser(user), tc.Create)

	req := multipartRequest(t, "/api/tramites", tramiteFields(), map[string]filePart{
		"dniPdf": {Filename: "big.pdf", Content: make([]byte, 4096)},
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "PAYLOAD_TOO_LARGE")
}

func TestListTramites_ScopedVariantProjection(t *testing.T) {
	db, _, tc := setupTramiteTest(t)
	owner := createTestUser(t, db, "owner@example.com")
	other := createTestUser(t, db, "other@example.com")

	require.NoError(t, db.Create(&models.Tramite{
		Tipo: models.MotivoAlta, NombreCliente: "María", Email: "maria@example.com",
		TelefonoMovil: "600123456", Cups: "CUPS-A", Direccion: "Calle Mayor 1",
		RefCatastral: "REF-A", PotenciaNumerica: "5.75", Estado: models.EstadoPendiente,
		UserID: owner.ID, VariosSuministros: true,
	}).Error)
	require.NoError(t, db.Create(&models.Tramite{
		Tipo: models.MotivoIndividual, NombreCliente: "Otro", Email: "otro@example.com",
		TelefonoMovil: "600000000", Cups: "CUPS-B", Direccion: "Otra calle",
		RefCatastral: "REF-B", PotenciaNumerica: "4.6", Estado: models.EstadoPendiente,
		UserID: other.ID, Vivienda: "Piso",
	}).Error)

	router := setupTestRouter()
	router.GET("/api/tramites", asUser(owner), tc.List)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/tramites", nil))
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	data := resp["data"].([]any)
	require.Len(t, data, 1, "listing must be scoped to the caller")

	view := data[0].(map[string]any)
	assert.Equal(t, true, view["variosSuministros"])
	assert.Contains(t, view, "acometidaCentralizada")
	// Fields of other motives are omitted from the projection entirely.
	assert.NotContains(t, view, "vivienda")
	assert.NotContains(t, view, "aumentoPotencia")
}

func createOwnedTramite(t *testing.T, db *gorm.DB, userID uint) *models.Tramite {
	t.Helper()

	tramite := &models.Tramite{
		Tipo: models.MotivoAlta, NombreCliente: "María García", Email: "maria@example.com",
		TelefonoMovil: "600123456", Cups: "ES0021000000000000AA", Direccion: "Calle Mayor 1",
		RefCatastral: "REF", PotenciaNumerica: "5.75", Estado: models.EstadoPendiente,
		NumeroExpediente: "EXP-77", UserID: userID,
	}
	require.NoError(t, db.Create(tramite).Error)
	return tramite
}

func TestUpdateEstado_CompletadoSendsNotification(t *testing.T) {
	db, email, tc := setupTramiteTest(t)
	user := createTestUser(t, db, "owner@example.com")
	tramite := createOwnedTramite(t, db, user.ID)

	router := setupTestRouter()
	router.PATCH("/api/tramites/:id", asUser(user), tc.UpdateEstado)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(t, http.MethodPatch, "/api/tramites/77", map[string]any{
		"estado": models.EstadoCompletado, "enviarCorreo": true,
	}))
	// Unknown id first: must be 404, not a leak.
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(t, http.MethodPatch, "/api/tramites/1", map[string]any{
		"estado": models.EstadoCompletado, "enviarCorreo": true,
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decodeResponse(t, w)
	data := resp["data"].(map[string]any)
	assert.Equal(t, true, data["email_sent"])

	require.Len(t, email.Sent, 1)
	sent := email.Sent[0]
	assert.Equal(t, "maria@example.com", sent.To)
	assert.Equal(t, "EXP-77", sent.Expediente)
	assert.Equal(t, models.MotivoAlta, sent.Tipo)

	var reloaded models.Tramite
	require.NoError(t, db.First(&reloaded, tramite.ID).Error)
	assert.Equal(t, models.EstadoCompletado, reloaded.Estado)
}

func TestUpdateEstado_EmailFailureDoesNotRollBack(t *testing.T) {
	db, email, tc := setupTramiteTest(t)
	user := createTestUser(t, db, "owner@example.com")
	tramite := createOwnedTramite(t, db, user.ID)

	email.Err = errors.New("provider outage")

	router := setupTestRouter()
	router.PATCH("/api/tramites/:id", asUser(user), tc.UpdateEstado)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(t, http.MethodPatch, "/api/tramites/1", map[string]any{
		"estado": models.EstadoCompletado, "enviarCorreo": true,
	}))
	require.Equal(t, http.StatusOK, w.Code, "email failure must not fail the status change")

	resp := decodeResponse(t, w)
	data := resp["data"].(map[string]any)
	assert.Equal(t, false, data["email_sent"])
	assert.Contains(t, data["email_error"], "provider outage")

	var reloaded models.Tramite
	require.NoError(t, db.First(&reloaded, tramite.ID).Error)
	assert.Equal(t, models.EstadoCompletado, reloaded.Estado, "status change is already committed")
}

func TestUpdateEstado_NoNotificationUnlessCompletado(t *testing.T) {
	db, email, tc := setupTramiteTest(t)
	user := createTestUser(t, db, "owner@example.com")
	createOwnedTramite(t, db, user.ID)

	router := setupTestRouter()
	router.PATCH("/api/tramites/:id", asUser(user), tc.UpdateEstado)

	// Arbitrary status strings are stored verbatim without notifying.
	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(t, http.MethodPatch, "/api/tramites/1", map[string]any{
		"estado": "En revisión", "enviarCorreo": true,
	}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, email.Sent)

	var reloaded models.Tramite
	require.NoError(t, db.First(&reloaded, 1).Error)
	assert.Equal(t, "En revisión", reloaded.Estado)

	// Completado without the notify flag stays silent too.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(t, http.MethodPatch, "/api/tramites/1", map[string]any{
		"estado": models.EstadoCompletado, "enviarCorreo": false,
	}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, email.Sent)
}

func TestUpdateEstado_MissingEstado(t *testing.T) {
	db, _, tc := setupTramiteTest(t)
	user := createTestUser(t, db, "owner@example.com")
	createOwnedTramite(t, db, user.ID)

	router := setupTestRouter()
	router.PATCH("/api/tramites/:id", asUser(user), tc.UpdateEstado)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(t, http.MethodPatch, "/api/tramites/1", map[string]any{
		"enviarCorreo": true,
	}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "estado")
}

func TestUpdateEstado_SetsExpedienteNumber(t *testing.T) {
	db, _, tc := setupTramiteTest(t)
	user := createTestUser(t, db, "owner@example.com")
	createOwnedTramite(t, db, user.ID)

	router := setupTestRouter()
	router.PATCH("/api/tramites/:id", asUser(user), tc.UpdateEstado)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(t, http.MethodPatch, "/api/tramites/1", map[string]any{
		"estado": "En tramitación", "numeroExpediente": "EXP-2024-099",
	}))
	require.Equal(t, http.StatusOK, w.Code)

	var reloaded models.Tramite
	require.NoError(t, db.First(&reloaded, 1).Error)
	assert.Equal(t, "EXP-2024-099", reloaded.NumeroExpediente)
}

func TestUpdateAndDelete_OtherUsersCaseIsNotFound(t *testing.T) {
	db, _, tc := setupTramiteTest(t)
	owner := createTestUser(t, db, "owner@example.com")
	intruder := createTestUser(t, db, "intruder@example.com")
	tramite := createOwnedTramite(t, db, owner.ID)

	router := setupTestRouter()
	router.PATCH("/api/tramites/:id", asUser(intruder), tc.UpdateEstado)
	router.DELETE("/api/tramites/:id", asUser(intruder), tc.Delete)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(t, http.MethodPatch, "/api/tramites/1", map[string]any{
		"estado": models.EstadoCompletado,
	}))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/tramites/1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	// The row is untouched.
	var reloaded models.Tramite
	require.NoError(t, db.First(&reloaded, tramite.ID).Error)
	assert.Equal(t, models.EstadoPendiente, reloaded.Estado)
}

func TestDeleteTramite(t *testing.T) {
	db, _, tc := setupTramiteTest(t)
	user := createTestUser(t, db, "owner@example.com")
	tramite := createOwnedTramite(t, db, user.ID)

	router := setupTestRouter()
	router.DELETE("/api/tramites/:id", asUser(user), tc.Delete)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/tramites/1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var count int64
	require.NoError(t, db.Model(&models.Tramite{}).Where("id = ?", tramite.ID).Count(&count).Error)
	assert.Zero(t, count)

	// Deleting again is a 404.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/tramites/1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
