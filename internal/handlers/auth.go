package handlers

import (
	"errors"
	"net/http"
	"strings"

	"obra-manager/internal/access"
	"obra-manager/internal/database"
	"obra-manager/internal/middleware"
	"obra-manager/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, err)
		return
	}

	var user models.User
	err := database.DB.Where("username = ?", strings.TrimSpace(req.Username)).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		internalError(c, "login lookup", err)
		return
	}
	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Usuario o contraseña incorrectos"})
		return
	}

	sess := sessions.Default(c)
	sess.Set("user_id", user.ID)
	if err := sess.Save(); err != nil {
		internalError(c, "save session", err)
		return
	}

	c.JSON(http.StatusOK, meResponse(user))
}

func Logout(c *gin.Context) {
	sess := sessions.Default(c)
	sess.Clear()
	sess.Options(sessions.Options{Path: "/", MaxAge: -1})
	_ = sess.Save()
	c.JSON(http.StatusOK, gin.H{"message": "Sesión cerrada"})
}

func Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No autenticado"})
		return
	}
	c.JSON(http.StatusOK, meResponse(user))
}

func meResponse(u models.User) gin.H {
	labels := make(map[string]string, len(u.Permisos))
	for _, p := range u.Permisos {
		labels[p] = access.Describe(p)
	}
	return gin.H{
		"usuario":     u,
		"permisos":    u.Permisos,
		"descripcion": labels,
	}
}
