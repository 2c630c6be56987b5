package handlers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"obra-manager/internal/access"
	"obra-manager/internal/database"
	"obra-manager/internal/database/dbtest"
	"obra-manager/internal/models"
	"obra-manager/internal/view"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func projectRouter(u *models.User) *gin.Engine {
	r := engineAs(u)
	r.GET("/projects", ListProjects)
	r.POST("/projects", CreateProject)
	r.GET("/projects/:id", GetProject)
	r.PUT("/projects/:id", UpdateProject)
	r.DELETE("/projects/:id", DeleteProject)
	r.PUT("/projects/:id/status", ChangeProjectStatus)
	r.POST("/projects/:id/partidas", CreatePartida)
	r.PUT("/projects/:id/partidas/:partida_id", UpdatePartida)
	return r
}

func TestCanChangeProjectStatus(t *testing.T) {
	tests := []struct {
		role          string
		current, next models.ProjectStatus
		want          bool
	}{
		{"gerente", models.ProjectPlanning, models.ProjectInProgress, true},
		{"gerente", models.ProjectPlanning, models.ProjectCompleted, false},
		{"gerente", models.ProjectInProgress, models.ProjectPaused, true},
		{"gerente", models.ProjectPaused, models.ProjectInProgress, true},
		{"gerente", models.ProjectCompleted, models.ProjectInProgress, false},
		{"gerente", models.ProjectCancelled, models.ProjectPlanning, false},
		{"gerente", models.ProjectPaused, models.ProjectPaused, false},
		{"admin", models.ProjectCompleted, models.ProjectInProgress, true},
		{"admin", models.ProjectCompleted, models.ProjectCompleted, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s %s->%s", tt.role, tt.current, tt.next), func(t *testing.T) {
			assert.Equal(t, tt.want, canChangeProjectStatus(tt.role, tt.current, tt.next))
		})
	}
}

func TestChangeProjectStatus(t *testing.T) {
	dbtest.New(t)
	now := time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC)
	fixNow(t, now)

	project := seedProject(t, "OBR-1", models.ProjectPlanning)
	path := fmt.Sprintf("/projects/%d/status", project.ID)
	gerente := projectRouter(dbtest.User(t, "gerente1", models.RoleGerente))

	w := perform(t, gerente, http.MethodPut, path, gin.H{"estado": "completado"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[errorBody](t, w).Error, "no permitida")

	w = perform(t, gerente, http.MethodPut, path, gin.H{"estado": "en_progreso"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = perform(t, gerente, http.MethodPut, path, gin.H{"estado": "completado"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	done := decode[models.Project](t, w)
	require.NotNil(t, done.FechaReal)
	assert.True(t, now.Equal(*done.FechaReal))

	admin := projectRouter(dbtest.User(t, "root", models.RoleAdmin))
	w = perform(t, admin, http.MethodPut, path, gin.H{"estado": "en_progreso"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var stored models.Project
	require.NoError(t, database.DB.First(&stored, project.ID).Error)
	assert.Equal(t, models.ProjectInProgress, stored.Status)
	assert.Nil(t, stored.FechaReal)

	var logs int64
	database.DB.Model(&models.AuditLog{}).Where("entity = ? AND action = ?", "project", "status_change").Count(&logs)
	assert.EqualValues(t, 3, logs)
}

func TestCreateProjectRules(t *testing.T) {
	dbtest.New(t)
	r := projectRouter(dbtest.User(t, "gerente1", models.RoleGerente))

	w := perform(t, r, http.MethodPost, "/projects", gin.H{
		"nombre": "Torre Norte", "codigo": "tn-01", "presupuesto": "2500000.50",
		"fechaInicio": "2024-01-01", "fechaFin": "2024-12-31",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	p := decode[models.Project](t, w)
	assert.Equal(t, "TN-01", p.Code)
	assert.Equal(t, models.ProjectPlanning, p.Status)
	assert.Equal(t, "2500000.5", p.Presupuesto.String())

	w = perform(t, r, http.MethodPost, "/projects", gin.H{"nombre": "Otra torre", "codigo": "TN-01"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(t, r, http.MethodDelete, fmt.Sprintf("/projects/%d", p.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = perform(t, r, http.MethodPost, "/projects", gin.H{"nombre": "Reuso", "codigo": "TN-01"})
	require.Equal(t, http.StatusBadRequest, w.Code, "codes of deleted projects stay reserved")
	assert.Equal(t, "Ya existe un proyecto con ese código", decode[errorBody](t, w).Error)

	w = perform(t, r, http.MethodPost, "/projects", gin.H{"nombre": "Negativa", "codigo": "NG-1", "presupuesto": -1})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, hasDetail(decode[errorBody](t, w).Details, "presupuesto", "gte"))

	w = perform(t, r, http.MethodPost, "/projects", gin.H{
		"nombre": "Fechas", "codigo": "FC-1", "fechaInicio": "2024-05-01", "fechaFin": "2024-04-01",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, hasDetail(decode[errorBody](t, w).Details, "fechaFin", "gtefield"))
}

func TestListProjectsVisibility(t *testing.T) {
	dbtest.New(t)
	p1 := seedProject(t, "OBR-1", models.ProjectInProgress)
	seedProject(t, "OBR-2", models.ProjectPlanning)
	seedProject(t, "OBR-3", models.ProjectCompleted)

	type listBody struct {
		Items []view.Record `json:"items"`
	}

	residente := dbtest.User(t, "residente1", models.RoleResidente, p1.ID)
	w := perform(t, projectRouter(residente), http.MethodGet, "/projects?vista=table", nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := decode[listBody](t, w).Items
	require.Len(t, items, 1)
	assert.Equal(t, p1.ID, items[0].ID)
	assert.Equal(t, "OBR-1", items[0].Fields["codigo"])

	var names []string
	for _, a := range items[0].Actions {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"ver", "editar", "estado"}, names)

	viewer := dbtest.User(t, "viewer1", models.RoleViewer)
	w = perform(t, projectRouter(viewer), http.MethodGet, "/projects", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[listBody](t, w).Items)

	gerente := dbtest.User(t, "gerente1", models.RoleGerente)
	w = perform(t, projectRouter(gerente), http.MethodGet, "/projects?estado=en_progreso,completado", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[listBody](t, w).Items, 2)

	w = perform(t, projectRouter(residente), http.MethodGet, fmt.Sprintf("/projects/%d", p1.ID+1), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPartidasDriveWeightedProgress(t *testing.T) {
	dbtest.New(t)
	project := seedProject(t, "OBR-1", models.ProjectInProgress)
	r := projectRouter(dbtest.User(t, "gerente1", models.RoleGerente))
	base := fmt.Sprintf("/projects/%d/partidas", project.ID)

	type partidaBody struct {
		Partida      models.Partida `json:"partida"`
		AvanceFisico float64        `json:"avanceFisico"`
	}

	w := perform(t, r, http.MethodPost, base, gin.H{
		"codigo": "CIM", "nombre": "Cimentación", "cantidad": 10, "precioUnitario": "100", "avanceFisico": 50,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 50.0, decode[partidaBody](t, w).AvanceFisico)

	w = perform(t, r, http.MethodPost, base, gin.H{
		"codigo": "EST", "nombre": "Estructura", "cantidad": 1, "precioUnitario": "3000", "avanceFisico": 10,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	second := decode[partidaBody](t, w)
	assert.Equal(t, 20.0, second.AvanceFisico)

	w = perform(t, r, http.MethodPut, fmt.Sprintf("%s/%d", base, second.Partida.ID), gin.H{"avanceFisico": 50})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var stored models.Project
	require.NoError(t, database.DB.First(&stored, project.ID).Error)
	assert.Equal(t, 50.0, stored.AvanceFisico)

	w = perform(t, r, http.MethodPut, fmt.Sprintf("%s/999", base), gin.H{"avanceFisico": 50})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteProjectOutsideAssignedIsForbidden(t *testing.T) {
	dbtest.New(t)
	own := seedProject(t, "OBR-1", models.ProjectPlanning)
	other := seedProject(t, "OBR-2", models.ProjectPlanning)

	residente := dbtest.User(t, "residente1", models.RoleResidente, own.ID)
	residente.Permisos = append(residente.Permisos, access.ProjectsDelete)
	r := projectRouter(residente)

	w := perform(t, r, http.MethodDelete, fmt.Sprintf("/projects/%d", other.ID), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	var n int64
	database.DB.Model(&models.Project{}).Where("id = ?", other.ID).Count(&n)
	assert.EqualValues(t, 1, n)

	w = perform(t, r, http.MethodDelete, fmt.Sprintf("/projects/%d", own.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
