package handlers

import (
	"errors"
	"net/http"
	"strings"

	"obra-manager/internal/access"
	"obra-manager/internal/database"
	"obra-manager/internal/models"

	"github.com/gin-gonic/gin"
)

func ListUsers(c *gin.Context) {
	var users []models.User
	if err := database.DB.WithContext(c.Request.Context()).Order("username asc").Find(&users).Error; err != nil {
		internalError(c, "list users", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": users})
}

type createUserRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"rol" binding:"required,oneof=admin gerente residente supervisor almacen viewer"`
	Email    string `json:"email" binding:"omitempty,email"`
	FullName string `json:"nombre" binding:"omitempty,max=255"`
	Projects []uint `json:"proyectosAsignados"`
}

func CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)

	var count int64
	if err := database.DB.Unscoped().Model(&models.User{}).Where("username = ?", req.Username).Count(&count).Error; err != nil {
		internalError(c, "check username", err)
		return
	}
	if count > 0 {
		badRequest(c, "El usuario ya existe")
		return
	}

	user, err := database.CreateUser(req.Username, req.Password, models.UserRole(req.Role), Roles)
	if err != nil {
		internalError(c, "create user", err)
		return
	}

	user.Email = req.Email
	user.FullName = req.FullName
	if req.Projects != nil {
		user.ProyectosAsignados = req.Projects
	}
	if err := database.DB.Save(user).Error; err != nil {
		internalError(c, "update new user", err)
		return
	}

	audit(c, "user", user.ID, "create", "Usuario creado: "+user.Username)
	c.JSON(http.StatusCreated, user)
}

type permissionsRequest struct {
	Permisos []string `json:"permisos"`
	Projects []uint   `json:"proyectosAsignados"`
}

// UpdateUserPermissions replaces the permission list and/or the assigned
// projects. Unknown permission strings are rejected.
func UpdateUserPermissions(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req permissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, err)
		return
	}

	if err := access.Validate(req.Permisos); err != nil {
		if errors.Is(err, access.ErrUnknownPermission) {
			fieldError(c, "permisos", "catalog", err.Error())
			return
		}
		internalError(c, "validate permissions", err)
		return
	}

	var user models.User
	if !load(c, &user, id, "Usuario no encontrado") {
		return
	}

	if req.Permisos != nil {
		user.Permisos = req.Permisos
	}
	if req.Projects != nil {
		user.ProyectosAsignados = req.Projects
	}

	if err := database.DB.Save(&user).Error; err != nil {
		internalError(c, "save permissions", err)
		return
	}

	audit(c, "user", user.ID, "permissions", "Permisos actualizados: "+strings.Join(user.Permisos, ", "))
	c.JSON(http.StatusOK, user)
}

func ListPermissions(c *gin.Context) {
	out := make([]gin.H, 0)
	for _, p := range access.All() {
		out = append(out, gin.H{"permiso": p, "descripcion": access.Describe(p)})
	}
	c.JSON(http.StatusOK, gin.H{"items": out, "roles": Roles})
}
