package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"obra-manager/internal/database"
	"obra-manager/internal/models"

	"github.com/gin-gonic/gin"
)

const auditPageLimit = 200

// ListAuditLogs returns the latest entries, optionally narrowed by
// ?entidad=, ?entidadId= and ?usuario=.
func ListAuditLogs(c *gin.Context) {
	q := database.DB.WithContext(c.Request.Context()).
		Preload("User").
		Order("created_at desc").
		Limit(auditPageLimit)

	if e := strings.TrimSpace(c.Query("entidad")); e != "" {
		q = q.Where("entity = ?", e)
	}
	if s := c.Query("entidadId"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			fieldError(c, "entidadId", "numeric", "debe ser numérico")
			return
		}
		q = q.Where("entity_id = ?", id)
	}
	if s := c.Query("usuario"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			fieldError(c, "usuario", "numeric", "debe ser numérico")
			return
		}
		q = q.Where("user_id = ?", id)
	}

	logs := []models.AuditLog{}
	if err := q.Find(&logs).Error; err != nil {
		internalError(c, "list audit logs", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": logs})
}
