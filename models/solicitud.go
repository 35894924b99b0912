package models

import "time"

// Solicitud is a generic, status-less user request. Append-only: the API
// never updates or deletes these rows.
type Solicitud struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Titulo           string    `gorm:"size:100;not null" json:"titulo"`
	Descripcion      string    `gorm:"type:text;not null" json:"descripcion"`
	TipoTramite      string    `gorm:"size:50;not null" json:"tipoTramite"`
	DocumentoAdjunto string    `gorm:"size:200" json:"documentoAdjunto"`
	FechaCreacion    time.Time `gorm:"autoCreateTime" json:"fecha_creacion"`
	UserID           uint      `gorm:"not null;index" json:"-"`
	User             User      `gorm:"foreignKey:UserID" json:"-"`
}

// TableName specifies the table name for the Solicitud model
func (Solicitud) TableName() string {
	return "solicitudes"
}

// View serializes a solicitud for the listing endpoint.
func (s *Solicitud) View() map[string]any {
	return map[string]any{
		"id":               s.ID,
		"titulo":           s.Titulo,
		"descripcion":      s.Descripcion,
		"tipoTramite":      s.TipoTramite,
		"documentoAdjunto": s.DocumentoAdjunto,
		"fecha_creacion":   s.FechaCreacion.Format("2006-01-02 15:04:05"),
	}
}
