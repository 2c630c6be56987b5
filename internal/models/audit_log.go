package models

import "time"

type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	UserID uint `json:"userId"`
	User   User `json:"usuario"`

	Entity   string `gorm:"size:50;not null;index:idx_audit_entity" json:"entidad"` // "project", "task", "inventory"...
	EntityID uint   `gorm:"index:idx_audit_entity" json:"entidadId"`
	Action   string `gorm:"size:50;not null" json:"accion"` // "create", "update", "status_change", "movement"
	Details  string `gorm:"type:text" json:"detalles"`
}
