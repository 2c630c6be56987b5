package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type InspectionStatus string

const (
	InspectionScheduled   InspectionStatus = "programada"
	InspectionInProgress  InspectionStatus = "en_curso"
	InspectionApproved    InspectionStatus = "aprobada"
	InspectionRejected    InspectionStatus = "rechazada"
	InspectionConditional InspectionStatus = "condicional"
)

var InspectionTerminalStatuses = []string{
	string(InspectionApproved), string(InspectionRejected), string(InspectionConditional),
}

// InspeccionCalidad is a quality inspection of one partida of a project.
type InspeccionCalidad struct {
	gorm.Model
	ProjectID   uint             `gorm:"index;not null" json:"proyectoId"`
	PartidaID   *uint            `json:"partidaId"`
	Title       string           `gorm:"size:255;not null" json:"titulo"`
	InspectorID uint             `json:"inspectorId"`
	Status      InspectionStatus `gorm:"type:varchar(20);not null" json:"estado"`
	ScheduledAt *time.Time       `json:"fechaProgramada"`
	ClosedAt    *time.Time       `json:"fechaCierre"`
	Notes       string           `gorm:"type:text" json:"observaciones"`

	Items []ChecklistItem `gorm:"foreignKey:InspectionID" json:"items,omitempty"`
}

type ChecklistItem struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	InspectionID uint   `gorm:"index;not null" json:"inspeccionId"`
	TemplateID   *uint  `json:"plantillaId"`
	Description  string `gorm:"size:255;not null" json:"descripcion"`
	Critical     bool   `gorm:"not null;default:false" json:"critico"`

	// nil while not evaluated
	Cumple        *bool          `json:"cumple"`
	Observaciones string         `gorm:"type:text" json:"observaciones"`
	Fotos         datatypes.JSON `json:"fotos"`
}

// ChecklistTemplate is a catalog entry reused across inspections.
type ChecklistTemplate struct {
	gorm.Model
	Code        string `gorm:"size:32;uniqueIndex" json:"codigo"`
	Description string `gorm:"size:255;not null" json:"descripcion"`
	Category    string `gorm:"size:64" json:"categoria"` // TaskCategory value
	Critical    bool   `gorm:"not null;default:false" json:"critico"`
}

// NoConformidad is derived from a failed checklist item; it is never stored.
type NoConformidad struct {
	ItemID        uint   `json:"itemId"`
	Descripcion   string `json:"descripcion"`
	Critica       bool   `json:"critica"`
	Observaciones string `json:"observaciones"`
}

func (i InspeccionCalidad) NoConformidades() []NoConformidad {
	var out []NoConformidad
	for _, it := range i.Items {
		if it.Cumple != nil && !*it.Cumple {
			out = append(out, NoConformidad{
				ItemID:        it.ID,
				Descripcion:   it.Description,
				Critica:       it.Critical,
				Observaciones: it.Observaciones,
			})
		}
	}
	return out
}

// Evaluated returns how many items have a pass/fail verdict.
func (i InspeccionCalidad) Evaluated() int {
	n := 0
	for _, it := range i.Items {
		if it.Cumple != nil {
			n++
		}
	}
	return n
}

// Verdict decides the closing status: any critical failure rejects, other
// failures make it conditional, otherwise it is approved. ok is false while
// items remain unevaluated.
func (i InspeccionCalidad) Verdict() (status InspectionStatus, ok bool) {
	if i.Evaluated() < len(i.Items) {
		return i.Status, false
	}
	failed := false
	for _, it := range i.Items {
		if it.Cumple != nil && !*it.Cumple {
			if it.Critical {
				return InspectionRejected, true
			}
			failed = true
		}
	}
	if failed {
		return InspectionConditional, true
	}
	return InspectionApproved, true
}
