package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Material struct {
	gorm.Model
	Code     string          `gorm:"size:32;uniqueIndex;not null" json:"codigo"`
	Name     string          `gorm:"size:255;not null" json:"nombre"`
	Unit     string          `gorm:"size:20;not null" json:"unidad"`
	Category string          `gorm:"size:64" json:"categoria"`
	UnitCost decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"costoUnitario"`
	MinStock float64         `gorm:"not null;default:0" json:"stockMinimo"`
}

// MaterialInventory is the stock of one material at one location of a project.
// Fisica always equals Disponible + Reservada + Danada when only movements
// touch it; see Reconcile.
type MaterialInventory struct {
	gorm.Model
	MaterialID uint     `gorm:"uniqueIndex:idx_inventory_location;not null" json:"materialId"`
	Material   Material `json:"material"`
	ProjectID  uint     `gorm:"uniqueIndex:idx_inventory_location;not null" json:"proyectoId"`
	Location   string   `gorm:"uniqueIndex:idx_inventory_location;size:100;not null" json:"ubicacion"`

	Fisica     float64 `gorm:"not null;default:0" json:"fisica"`
	Disponible float64 `gorm:"not null;default:0" json:"disponible"`
	Reservada  float64 `gorm:"not null;default:0" json:"reservada"`
	Danada     float64 `gorm:"not null;default:0" json:"danada"`
	EnTransito float64 `gorm:"not null;default:0" json:"enTransito"`
	EnPedido   float64 `gorm:"not null;default:0" json:"enPedido"`

	Batches   []Batch          `gorm:"foreignKey:InventoryID" json:"lotes,omitempty"`
	Movements []Movement       `gorm:"foreignKey:InventoryID" json:"movimientos,omitempty"`
	Alerts    []InventoryAlert `gorm:"foreignKey:InventoryID" json:"alertas,omitempty"`
}

type Batch struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time  `json:"creadoEn"`
	InventoryID uint       `gorm:"index;not null" json:"inventarioId"`
	Lot         string     `gorm:"size:64;not null" json:"lote"`
	Quantity    float64    `json:"cantidad"`
	ExpiresAt   *time.Time `json:"vence"`
}

type MovementType string

const (
	MovementIn          MovementType = "entrada"
	MovementOut         MovementType = "salida"
	MovementAdjust      MovementType = "ajuste"
	MovementTransferOut MovementType = "traslado_salida"
	MovementTransferIn  MovementType = "traslado_entrada"
	MovementReserve     MovementType = "reserva"
	MovementRelease     MovementType = "liberacion"
	MovementDamage      MovementType = "dano"
	MovementOrder       MovementType = "pedido"
)

type Movement struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time    `json:"creadoEn"`
	InventoryID   uint         `gorm:"index;not null" json:"inventarioId"`
	Type          MovementType `gorm:"type:varchar(20);not null" json:"tipo"`
	Quantity      float64      `json:"cantidad"` // signed only for ajuste
	Reference     string       `gorm:"size:100" json:"referencia"`
	Notes         string       `gorm:"type:text" json:"notas"`
	UserID        uint         `json:"usuarioId"`
	CounterpartID *uint        `json:"contraparteId"`
	BalanceAfter  float64      `json:"saldoFisico"`
}

type AlertType string

const (
	AlertLowStock    AlertType = "stock_bajo"
	AlertOutOfStock  AlertType = "agotado"
	AlertExpiringLot AlertType = "lote_por_vencer"
	AlertMismatch    AlertType = "discrepancia"
)

type InventoryAlert struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"creadoEn"`
	InventoryID uint      `gorm:"index;not null" json:"inventarioId"`
	Type        AlertType `gorm:"type:varchar(20);not null" json:"tipo"`
	Message     string    `gorm:"size:255" json:"mensaje"`
	Resolved    bool      `gorm:"not null;default:false" json:"resuelta"`
}
