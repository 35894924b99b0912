package models

import (
	"time"
)

// Motive tags with mode-specific fields. The column is free text; anything
// outside this set is stored verbatim and carries no extra payload.
const (
	MotivoModificacion = "Modificación"
	MotivoIndividual   = "Individual"
	MotivoAlta         = "Alta"
)

// Status values with special meaning. Estado itself is free text; only the
// literal "Completado" triggers the notification path.
const (
	EstadoPendiente  = "Pendiente"
	EstadoCompletado = "Completado"
)

// Tramite is a procedure case for a utility connection. The row is wide:
// every mode-specific column exists for every row, and columns irrelevant
// to the case's motive stay at their zero value. The tagged in-memory shape
// lives in TramiteDetail; this struct is the storage projection of it.
type Tramite struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	NumeroExpediente string    `gorm:"size:50;index" json:"numeroExpediente"`
	Tipo             string    `gorm:"size:50;not null" json:"tipo"`
	Formulario       string    `gorm:"size:100" json:"formulario"`
	NombreCliente    string    `gorm:"size:100;not null" json:"nombreCliente"`
	Email            string    `gorm:"size:100;not null;index" json:"email"`
	TelefonoMovil    string    `gorm:"size:20;not null" json:"telefonoMovil"`
	Cups             string    `gorm:"size:100;not null" json:"cups"`
	Direccion        string    `gorm:"size:200;not null" json:"direccion"`
	RefCatastral     string    `gorm:"size:100;not null" json:"refCatastral"`
	Tension          string    `gorm:"size:50" json:"tension"`
	PotenciaNumerica string    `gorm:"size:50;not null" json:"potenciaNumerica"`
	Fecha            time.Time `gorm:"autoCreateTime" json:"fecha"`
	Estado           string    `gorm:"size:20;not null;default:'Pendiente'" json:"estado"`
	UserID           uint      `gorm:"not null;index" json:"-"`
	User             User      `gorm:"foreignKey:UserID" json:"-"`

	// Mode-specific columns.
	AumentoPotencia       bool   `json:"aumentoPotencia"`       // Modificación
	Vivienda              string `gorm:"size:50" json:"vivienda"` // Individual
	VariosSuministros     bool   `json:"variosSuministros"`     // Alta
	AcometidaCentralizada bool   `json:"acometidaCentralizada"` // Alta

	// Generated storage names, never client-controlled paths. Empty when
	// the document was not provided or was rejected.
	DniPdf                  string `gorm:"size:200" json:"dniPdf"`
	FormatoAutorizacion     string `gorm:"size:200" json:"formatoAutorizacion"`
	PlantillaRelacionPuntos string `gorm:"size:200" json:"plantillaRelacionPuntos"`
}

// TableName specifies the table name for the Tramite model
func (Tramite) TableName() string {
	return "tramites"
}

// MissingFieldError reports the first required field absent from a
// submission, in the fixed enumeration order.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return "missing required field: " + e.Field
}

// requiredTramiteFields is the fixed enumeration order for ValidateCommon.
var requiredTramiteFields = []string{
	"tipo",
	"nombreCliente",
	"email",
	"telefonoMovil",
	"cups",
	"direccion",
	"refCatastral",
	"potenciaNumerica",
}

// ValidateCommon checks that every always-required field is present in the
// submitted field set. Presence is what counts, not emptiness: a field the
// client sent as an empty string passes. The first missing field wins.
func ValidateCommon(fields map[string]string) error {
	for _, name := range requiredTramiteFields {
		if _, ok := fields[name]; !ok {
			return &MissingFieldError{Field: name}
		}
	}
	return nil
}

// TramiteDetail is the motive-specific payload of a procedure case. Each
// motive with extra fields has one concrete payload type; free-text motives
// have none (nil detail).
type TramiteDetail interface {
	Motivo() string
	apply(t *Tramite)
	project(out map[string]any)
}

// ModificacionDetail carries the "Modificación" payload.
type ModificacionDetail struct {
	AumentoPotencia bool
}

func (d ModificacionDetail) Motivo() string { return MotivoModificacion }

func (d ModificacionDetail) apply(t *Tramite) {
	t.AumentoPotencia = d.AumentoPotencia
}

func (d ModificacionDetail) project(out map[string]any) {
	out["aumentoPotencia"] = d.AumentoPotencia
}

// IndividualDetail carries the "Individual" payload.
type IndividualDetail struct {
	Vivienda string
}

func (d IndividualDetail) Motivo() string { return MotivoIndividual }

func (d IndividualDetail) apply(t *Tramite) {
	t.Vivienda = d.Vivienda
}

func (d IndividualDetail) project(out map[string]any) {
	out["vivienda"] = d.Vivienda
}

// AltaDetail carries the "Alta" payload.
type AltaDetail struct {
	VariosSuministros     bool
	AcometidaCentralizada bool
}

func (d AltaDetail) Motivo() string { return MotivoAlta }

func (d AltaDetail) apply(t *Tramite) {
	t.VariosSuministros = d.VariosSuministros
	t.AcometidaCentralizada = d.AcometidaCentralizada
}

func (d AltaDetail) project(out map[string]any) {
	out["variosSuministros"] = d.VariosSuministros
	out["acometidaCentralizada"] = d.AcometidaCentralizada
}

// DetailFromFields builds the tagged payload for the given motive from flat
// text fields. Textual booleans follow the "true"/anything-else convention.
// Fields belonging to other motives are ignored, never validated.
func DetailFromFields(tipo string, fields map[string]string) TramiteDetail {
	switch tipo {
	case MotivoModificacion:
		return ModificacionDetail{AumentoPotencia: fields["aumentoPotencia"] == "true"}
	case MotivoIndividual:
		return IndividualDetail{Vivienda: fields["vivienda"]}
	case MotivoAlta:
		return AltaDetail{
			VariosSuministros:     fields["variosSuministros"] == "true",
			AcometidaCentralizada: fields["acometidaCentralizada"] == "true",
		}
	}
	return nil
}

// Detail reconstructs the tagged payload from a stored row.
func (t *Tramite) Detail() TramiteDetail {
	switch t.Tipo {
	case MotivoModificacion:
		return ModificacionDetail{AumentoPotencia: t.AumentoPotencia}
	case MotivoIndividual:
		return IndividualDetail{Vivienda: t.Vivienda}
	case MotivoAlta:
		return AltaDetail{
			VariosSuministros:     t.VariosSuministros,
			AcometidaCentralizada: t.AcometidaCentralizada,
		}
	}
	return nil
}

// TramiteDocuments holds the resolved storage names for the up to three
// optional document slots. Empty string means "not provided".
type TramiteDocuments struct {
	DniPdf                  string
	FormatoAutorizacion     string
	PlantillaRelacionPuntos string
}

// CreateTramiteCommand is the single canonical creation command both
// request encodings converge on.
type CreateTramiteCommand struct {
	Tipo             string
	Formulario       string
	NombreCliente    string
	Email            string
	TelefonoMovil    string
	Cups             string
	Direccion        string
	RefCatastral     string
	Tension          string
	PotenciaNumerica string
	NumeroExpediente string
	Detail           TramiteDetail
	Documents        TramiteDocuments
}

// NewCreateTramiteCommand validates the common field set and shapes the
// canonical command, including the motive's tagged payload.
func NewCreateTramiteCommand(fields map[string]string, docs TramiteDocuments) (*CreateTramiteCommand, error) {
	if err := ValidateCommon(fields); err != nil {
		return nil, err
	}

	return &CreateTramiteCommand{
		Tipo:             fields["tipo"],
		Formulario:       fields["formulario"],
		NombreCliente:    fields["nombreCliente"],
		Email:            fields["email"],
		TelefonoMovil:    fields["telefonoMovil"],
		Cups:             fields["cups"],
		Direccion:        fields["direccion"],
		RefCatastral:     fields["refCatastral"],
		Tension:          fields["tension"],
		PotenciaNumerica: fields["potenciaNumerica"],
		NumeroExpediente: fields["numeroExpediente"],
		Detail:           DetailFromFields(fields["tipo"], fields),
		Documents:        docs,
	}, nil
}

// ToTramite materializes the command as a storage row owned by the given user.
func (cmd *CreateTramiteCommand) ToTramite(userID uint) Tramite {
	t := Tramite{
		NumeroExpediente:        cmd.NumeroExpediente,
		Tipo:                    cmd.Tipo,
		Formulario:              cmd.Formulario,
		NombreCliente:           cmd.NombreCliente,
		Email:                   cmd.Email,
		TelefonoMovil:           cmd.TelefonoMovil,
		Cups:                    cmd.Cups,
		Direccion:               cmd.Direccion,
		RefCatastral:            cmd.RefCatastral,
		Tension:                 cmd.Tension,
		PotenciaNumerica:        cmd.PotenciaNumerica,
		Estado:                  EstadoPendiente,
		UserID:                  userID,
		DniPdf:                  cmd.Documents.DniPdf,
		FormatoAutorizacion:     cmd.Documents.FormatoAutorizacion,
		PlantillaRelacionPuntos: cmd.Documents.PlantillaRelacionPuntos,
	}
	if cmd.Detail != nil {
		cmd.Detail.apply(&t)
	}
	return t
}

// PublicView serializes all common fields plus only the mode-specific
// subset applicable to the record's own motive. Other modes' fields are
// omitted from the projection entirely, not defaulted — the counterpart of
// ingestion silently ignoring irrelevant fields.
func (t *Tramite) PublicView() map[string]any {
	out := map[string]any{
		"id":                      t.ID,
		"numeroExpediente":        t.NumeroExpediente,
		"tipo":                    t.Tipo,
		"formulario":              t.Formulario,
		"nombreCliente":           t.NombreCliente,
		"email":                   t.Email,
		"telefonoMovil":           t.TelefonoMovil,
		"cups":                    t.Cups,
		"direccion":               t.Direccion,
		"refCatastral":            t.RefCatastral,
		"tension":                 t.Tension,
		"potenciaNumerica":        t.PotenciaNumerica,
		"fecha":                   t.Fecha.Format("02/01/2006"),
		"estado":                  t.Estado,
		"dniPdf":                  t.DniPdf,
		"formatoAutorizacion":     t.FormatoAutorizacion,
		"plantillaRelacionPuntos": t.PlantillaRelacionPuntos,
	}
	if detail := t.Detail(); detail != nil {
		detail.project(out)
	}
	return out
}

// LookupView is the limited projection returned by the public expediente
// lookup, including the human-readable status comment.
func (t *Tramite) LookupView() map[string]any {
	comentarios := "Su expediente ha sido completado satisfactoriamente"
	if t.Estado == EstadoPendiente {
		comentarios = "Su expediente está siendo procesado por nuestro equipo"
	}

	return map[string]any{
		"id":               t.ID,
		"numeroExpediente": t.NumeroExpediente,
		"tipo":             t.Tipo,
		"nombreCliente":    t.NombreCliente,
		"email":            t.Email,
		"cups":             t.Cups,
		"direccion":        t.Direccion,
		"estado":           t.Estado,
		"fechaCreacion":    t.Fecha.Format("2006-01-02"),
		"comentarios":      comentarios,
	}
}
