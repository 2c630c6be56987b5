package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"obra-manager/internal/access"
	"obra-manager/internal/database"
	"obra-manager/internal/logger"
	"obra-manager/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	msgInvalid   = "Datos inválidos"
	msgForbidden = "Acceso denegado"
	msgInternal  = "Error interno del servidor"
	msgBadID     = "ID inválido"
)

func init() {
	// validation details report JSON field names, not Go field names
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return f.Name
		})
	}
}

// FieldError is one entry of the details payload of a 400 response.
type FieldError struct {
	Campo     string `json:"campo,omitempty"`
	Regla     string `json:"regla,omitempty"`
	Parametro string `json:"parametro,omitempty"`
	Mensaje   string `json:"mensaje"`
}

func validationDetails(err error) []FieldError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, FieldError{
				Campo:     fe.Field(),
				Regla:     fe.Tag(),
				Parametro: fe.Param(),
				Mensaje:   ruleMessage(fe.Tag(), fe.Param()),
			})
		}
		return out
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return []FieldError{{Campo: typeErr.Field, Regla: "type", Mensaje: "tipo de dato incorrecto"}}
	}
	return []FieldError{{Mensaje: "cuerpo de la solicitud inválido"}}
}

func ruleMessage(tag, param string) string {
	switch tag {
	case "required":
		return "es obligatorio"
	case "oneof":
		return "debe ser uno de: " + strings.ReplaceAll(param, " ", ", ")
	case "min", "gte":
		return "debe ser al menos " + param
	case "max", "lte":
		return "debe ser como máximo " + param
	case "gt":
		return "debe ser mayor que " + param
	case "email":
		return "debe ser un correo válido"
	case "datetime":
		return "debe tener el formato " + param
	}
	return "no cumple la regla " + tag
}

// invalid answers 400 with the validator details.
func invalid(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalid, "details": validationDetails(err)})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func forbidden(c *gin.Context) {
	c.JSON(http.StatusForbidden, gin.H{"error": msgForbidden})
}

func notFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, gin.H{"error": msg})
}

// internalError logs the real cause and answers with a generic message.
func internalError(c *gin.Context, op string, err error) {
	_ = c.Error(err)
	logger.L.Error(op, zap.Error(err), zap.String("path", c.Request.URL.Path))
	c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
}

func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, msgBadID)
		return 0, false
	}
	return uint(id), true
}

// load fetches one row by id into dst, answering 404 with notFoundMsg or 500.
func load(c *gin.Context, dst interface{}, id uint, notFoundMsg string, preloads ...string) bool {
	q := database.DB.WithContext(c.Request.Context())
	for _, p := range preloads {
		q = q.Preload(p)
	}
	if err := q.First(dst, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c, notFoundMsg)
			return false
		}
		internalError(c, fmt.Sprintf("load %T", dst), err)
		return false
	}
	return true
}

// canSee answers 403 unless the caller may see entities of projectID.
func canSee(c *gin.Context, viewAll string, projectID uint) bool {
	if !access.CanSeeProject(middleware.Principal(c), viewAll, projectID) {
		forbidden(c)
		return false
	}
	return true
}

func userID(c *gin.Context) uint {
	if p := middleware.Principal(c); p != nil {
		return p.UserID
	}
	return 0
}

func audit(c *gin.Context, entity string, entityID uint, action, details string) {
	if uid := userID(c); uid != 0 {
		database.CreateAuditLog(uid, entity, entityID, action, details)
	}
}

const dateLayout = "2006-01-02"

// parseDate converts an already validated YYYY-MM-DD value; empty input is nil.
func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

// fieldError answers 400 for a rule the validator tags cannot express.
func fieldError(c *gin.Context, field, rule, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   msgInvalid,
		"details": []FieldError{{Campo: field, Regla: rule, Mensaje: msg}},
	})
}
