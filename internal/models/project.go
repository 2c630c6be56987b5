package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProjectStatus string
type Priority string

const (
	ProjectPlanning   ProjectStatus = "planificacion"
	ProjectInProgress ProjectStatus = "en_progreso"
	ProjectPaused     ProjectStatus = "pausado"
	ProjectCompleted  ProjectStatus = "completado"
	ProjectCancelled  ProjectStatus = "cancelado"

	PriorityLow      Priority = "baja"
	PriorityMedium   Priority = "media"
	PriorityHigh     Priority = "alta"
	PriorityCritical Priority = "critica"
)

// ProjectTerminalStatuses are excluded from progress averages.
var ProjectTerminalStatuses = []string{string(ProjectCompleted), string(ProjectCancelled)}

type Project struct {
	gorm.Model
	Name        string        `gorm:"size:255;not null" json:"nombre"`
	Code        string        `gorm:"size:32;uniqueIndex;not null" json:"codigo"`
	Status      ProjectStatus `gorm:"type:varchar(20);not null" json:"estado"`
	Priority    Priority      `gorm:"type:varchar(20);not null" json:"prioridad"`
	Location    string        `gorm:"size:255" json:"ubicacion"`
	Client      string        `gorm:"size:255" json:"cliente"`
	Description string        `gorm:"type:text" json:"descripcion"`

	Presupuesto decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"presupuesto"`
	Gastado     decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"gastado"`

	AvanceFisico     float64 `gorm:"not null;default:0" json:"avanceFisico"`
	AvanceFinanciero float64 `gorm:"not null;default:0" json:"avanceFinanciero"`

	FechaInicio *time.Time `json:"fechaInicio"`
	FechaFin    *time.Time `json:"fechaFin"`
	FechaReal   *time.Time `json:"fechaFinReal"`

	InspeccionesTotales     int `gorm:"not null;default:0" json:"inspeccionesTotales"`
	InspeccionesAprobadas   int `gorm:"not null;default:0" json:"inspeccionesAprobadas"`
	NoConformidadesAbiertas int `gorm:"not null;default:0" json:"noConformidadesAbiertas"`

	ManagerID uint `json:"gerenteId"`

	Partidas    []Partida        `json:"partidas,omitempty"`
	Assignments []WorkAssignment `json:"asignaciones,omitempty"`
}

// Partida is a discrete scope-of-work line item within a project.
type Partida struct {
	gorm.Model
	ProjectID    uint            `gorm:"index;not null" json:"proyectoId"`
	Code         string          `gorm:"size:32;not null" json:"codigo"`
	Name         string          `gorm:"size:255;not null" json:"nombre"`
	Unit         string          `gorm:"size:20" json:"unidad"`
	Quantity     float64         `json:"cantidad"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"precioUnitario"`
	AvanceFisico float64         `gorm:"not null;default:0" json:"avanceFisico"`
}
