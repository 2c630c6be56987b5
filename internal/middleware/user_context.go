package middleware

import (
	"obra-manager/internal/access"
	"obra-manager/internal/database"
	"obra-manager/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	currentUserKey = "CurrentUser"
	principalKey   = "Principal"
)

// InjectUser loads the session user from the database on every request so
// permission changes take effect without logging out.
func InjectUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)

		if uidRaw := sess.Get("user_id"); uidRaw != nil {
			if uid, ok := uidRaw.(uint); ok && uid > 0 {
				var user models.User
				if err := database.DB.First(&user, uid).Error; err == nil {
					SetUser(c, user)
				}
			}
		}

		c.Next()
	}
}

// SetUser attaches u as the caller of the request.
func SetUser(c *gin.Context, u models.User) {
	c.Set(currentUserKey, u)
	c.Set(principalKey, PrincipalOf(u))
}

// PrincipalOf converts a stored user into the authorization view of it.
func PrincipalOf(u models.User) *access.Principal {
	return &access.Principal{
		UserID:   u.ID,
		Username: u.Username,
		Role:     string(u.Role),
		Permisos: u.Permisos,
		Projects: u.ProyectosAsignados,
	}
}

// Principal returns the caller, or nil for anonymous requests.
func Principal(c *gin.Context) *access.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*access.Principal)
	return p
}

func CurrentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return models.User{}, false
	}
	u, ok := v.(models.User)
	return u, ok
}

// RequestID tags every request with an id echoed in X-Request-ID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("RequestID", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}
