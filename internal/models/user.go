package models

import "gorm.io/gorm"

type UserRole string

const (
	RoleAdmin      UserRole = "admin"
	RoleGerente    UserRole = "gerente"
	RoleResidente  UserRole = "residente"
	RoleSupervisor UserRole = "supervisor"
	RoleAlmacen    UserRole = "almacen"
	RoleViewer     UserRole = "viewer"
)

type User struct {
	gorm.Model
	Username     string   `gorm:"uniqueIndex;size:50;not null" json:"username"`
	PasswordHash string   `gorm:"not null" json:"-"`
	Role         UserRole `gorm:"type:varchar(20);not null" json:"role"`
	Email        string   `gorm:"size:255" json:"email"`
	FullName     string   `gorm:"size:255" json:"nombre"`

	// nil means "no permissions at all", not "defaults"
	Permisos           []string `gorm:"serializer:json" json:"permisos"`
	ProyectosAsignados []uint   `gorm:"serializer:json" json:"proyectosAsignados"`
}
