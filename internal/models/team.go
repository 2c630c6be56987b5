package models

import (
	"time"

	"gorm.io/gorm"
)

type MemberStatus string

const (
	MemberActive   MemberStatus = "activo"
	MemberInactive MemberStatus = "inactivo"
)

type TeamMember struct {
	gorm.Model
	UserID      *uint        `gorm:"index" json:"usuarioId"`
	Name        string       `gorm:"size:255;not null" json:"nombre"`
	Role        string       `gorm:"size:100;not null" json:"rol"` // residente, cabo, oficial, ayudante...
	Specialty   string       `gorm:"size:100" json:"especialidad"`
	Skills      []string     `gorm:"serializer:json" json:"habilidades"`
	Status      MemberStatus `gorm:"type:varchar(20);not null" json:"estado"`
	Rendimiento float64      `gorm:"not null;default:0" json:"rendimiento"` // 0..100
	Email       string       `gorm:"size:255" json:"email"`
	Phone       string       `gorm:"size:50" json:"telefono"`

	SubcontractorID *uint          `gorm:"index" json:"subcontratistaId"`
	Subcontractor   *Subcontractor `json:"subcontratista,omitempty"`

	Assignments []WorkAssignment `gorm:"foreignKey:MemberID" json:"asignaciones,omitempty"`
}

// Subcontractor is an external company supplying crews to projects.
type Subcontractor struct {
	gorm.Model
	Name         string  `gorm:"size:255;not null" json:"razonSocial"`
	TaxID        string  `gorm:"size:20" json:"rfc"`
	Specialty    string  `gorm:"size:100" json:"especialidad"`
	ContactName  string  `gorm:"size:255" json:"contacto"`
	ContactEmail string  `gorm:"size:255" json:"email"`
	ContactPhone string  `gorm:"size:50" json:"telefono"`
	Rating       float64 `gorm:"not null;default:0" json:"calificacion"`
	Notes        string  `gorm:"type:text" json:"notas"`

	Members []TeamMember `json:"personal,omitempty"`
}

// WorkAssignment links a member to a project with a dedication percentage.
type WorkAssignment struct {
	gorm.Model
	MemberID   uint       `gorm:"index;not null" json:"miembroId"`
	Member     TeamMember `json:"-"`
	ProjectID  uint       `gorm:"index;not null" json:"proyectoId"`
	Role       string     `gorm:"size:100" json:"rol"`
	Dedicacion float64    `gorm:"not null" json:"dedicacion"`
	StartDate  *time.Time `json:"fechaInicio"`
	EndDate    *time.Time `json:"fechaFin"`
}

// ActiveAt reports whether the assignment covers t. Open ends count as active.
func (a WorkAssignment) ActiveAt(t time.Time) bool {
	if a.StartDate != nil && t.Before(*a.StartDate) {
		return false
	}
	if a.EndDate != nil && t.After(*a.EndDate) {
		return false
	}
	return true
}
