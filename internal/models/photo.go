package models

import (
	"time"

	"gorm.io/gorm"
)

type Photo struct {
	gorm.Model
	ProjectID    uint       `gorm:"index;not null" json:"proyectoId"`
	TaskID       *uint      `gorm:"index" json:"tareaId"`
	InspectionID *uint      `gorm:"index" json:"inspeccionId"`
	FileName     string     `gorm:"size:255;not null" json:"archivo"`
	OriginalName string     `gorm:"size:255" json:"nombreOriginal"`
	ContentType  string     `gorm:"size:100" json:"tipoContenido"`
	Size         int64      `json:"tamano"`
	Caption      string     `gorm:"size:500" json:"descripcion"`
	Category     string     `gorm:"size:64" json:"categoria"` // avance, calidad, seguridad, incidente
	TakenAt      *time.Time `json:"tomadaEn"`
	UploadedBy   uint       `json:"subidaPor"`
}
