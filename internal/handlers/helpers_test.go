package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"obra-manager/internal/database"
	"obra-manager/internal/middleware"
	"obra-manager/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type errorBody struct {
	Error   string       `json:"error"`
	Details []FieldError `json:"details"`
}

// engineAs returns a bare router whose requests run as u (anonymous when nil).
func engineAs(u *models.User) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if u != nil {
			middleware.SetUser(c, *u)
		}
		c.Next()
	})
	return r
}

func perform(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func fixNow(t *testing.T, ts time.Time) {
	t.Helper()
	prev := Now
	Now = func() time.Time { return ts }
	t.Cleanup(func() { Now = prev })
}

func seedProject(t *testing.T, code string, status models.ProjectStatus) models.Project {
	t.Helper()
	p := models.Project{
		Name:        "Obra " + code,
		Code:        code,
		Status:      status,
		Priority:    models.PriorityMedium,
		Presupuesto: decimal.NewFromInt(100000),
	}
	require.NoError(t, database.DB.Create(&p).Error)
	return p
}

func hasDetail(details []FieldError, field, rule string) bool {
	for _, d := range details {
		if d.Campo == field && d.Regla == rule {
			return true
		}
	}
	return false
}
