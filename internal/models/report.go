package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ReportKind string

const (
	ReportProgress  ReportKind = "avance"
	ReportCosts     ReportKind = "costos"
	ReportQuality   ReportKind = "calidad"
	ReportInventory ReportKind = "inventario"
)

type Report struct {
	gorm.Model
	ProjectID uint           `gorm:"index;not null" json:"proyectoId"`
	Kind      ReportKind     `gorm:"type:varchar(20);not null" json:"tipo"`
	Title     string         `gorm:"size:255;not null" json:"titulo"`
	From      *time.Time     `json:"desde"`
	To        *time.Time     `json:"hasta"`
	Data      datatypes.JSON `json:"datos"`
	AuthorID  uint           `json:"autorId"`
}
