package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"obra-manager/internal/config"
	"obra-manager/internal/database/dbtest"
	"obra-manager/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type client struct {
	t       *testing.T
	h       http.Handler
	cookies []*http.Cookie
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	c.h.ServeHTTP(w, req)
	if got := w.Result().Cookies(); len(got) > 0 {
		c.cookies = got
	}
	return w
}

func newClient(t *testing.T) *client {
	cfg := &config.Config{SessionSecret: "test-session-secret-0123456789ab"}
	return &client{t: t, h: NewRouter(cfg)}
}

func TestLoginSessionAndPermissions(t *testing.T) {
	dbtest.New(t)
	dbtest.User(t, "viewer1", models.RoleViewer)
	c := newClient(t)

	w := c.do(http.MethodGet, "/api/tasks", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = c.do(http.MethodPost, "/api/auth/login", gin.H{"username": "viewer1", "password": "mala"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Usuario o contraseña incorrectos")

	w = c.do(http.MethodPost, "/api/auth/login", gin.H{"username": "viewer1", "password": "Password123!"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotEmpty(t, c.cookies)

	w = c.do(http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"viewer1"`)

	w = c.do(http.MethodGet, "/api/tasks", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = c.do(http.MethodPost, "/api/tasks", gin.H{"titulo": "No debería", "proyectoId": 1})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = c.do(http.MethodGet, "/api/users", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = c.do(http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = c.do(http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPublicRoutes(t *testing.T) {
	dbtest.New(t)
	c := newClient(t)

	w := c.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = c.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"autenticado":false`)

	w = c.do(http.MethodGet, "/public/reports/invalido", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPermissionChangesApplyWithoutRelogin(t *testing.T) {
	dbtest.New(t)
	dbtest.User(t, "root", models.RoleAdmin)
	viewer := dbtest.User(t, "viewer1", models.RoleViewer)

	adminClient := newClient(t)
	require.Equal(t, http.StatusOK, adminClient.do(http.MethodPost, "/api/auth/login", gin.H{"username": "root", "password": "Password123!"}).Code)

	viewerClient := &client{t: t, h: adminClient.h}
	require.Equal(t, http.StatusOK, viewerClient.do(http.MethodPost, "/api/auth/login", gin.H{"username": "viewer1", "password": "Password123!"}).Code)
	require.Equal(t, http.StatusForbidden, viewerClient.do(http.MethodGet, "/api/audit", nil).Code)

	w := adminClient.do(http.MethodPut, "/api/users/"+strconv.FormatUint(uint64(viewer.ID), 10)+"/permisos", gin.H{"permisos": []string{"auditoria.ver"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, http.StatusOK, viewerClient.do(http.MethodGet, "/api/audit", nil).Code)
	assert.Equal(t, http.StatusForbidden, viewerClient.do(http.MethodGet, "/api/tasks", nil).Code)
}
