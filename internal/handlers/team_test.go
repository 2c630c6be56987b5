package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"obra-manager/internal/database"
	"obra-manager/internal/database/dbtest"
	"obra-manager/internal/models"
	"obra-manager/internal/stats"
	"obra-manager/internal/view"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func teamRouter(u *models.User) *gin.Engine {
	r := engineAs(u)
	r.GET("/team", ListTeam)
	r.POST("/team", CreateTeamMember)
	r.GET("/team/:id/workload", MemberWorkload)
	r.POST("/assignments", CreateAssignment)
	r.DELETE("/assignments/:id", DeleteAssignment)
	return r
}

type assignmentBody struct {
	Asignacion models.WorkAssignment `json:"asignacion"`
	Carga      float64               `json:"carga"`
	Sobrecarga bool                  `json:"sobrecarga"`
}

type workloadBody struct {
	Carga      float64       `json:"carga"`
	Sobrecarga bool          `json:"sobrecarga"`
	Proyectos  []projectLoad `json:"proyectos"`
}

func seedMember(t *testing.T, r http.Handler, name, email, phone string) models.TeamMember {
	t.Helper()
	w := perform(t, r, http.MethodPost, "/team", gin.H{
		"nombre": name, "rol": "oficial", "especialidad": "albañilería",
		"email": email, "telefono": phone,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.TeamMember](t, w)
}

func assign(t *testing.T, r http.Handler, memberID, projectID uint, dedicacion float64) (int, assignmentBody) {
	t.Helper()
	w := perform(t, r, http.MethodPost, "/assignments", gin.H{
		"miembroId": memberID, "proyectoId": projectID, "dedicacion": dedicacion,
	})
	if w.Code != http.StatusCreated {
		return w.Code, assignmentBody{}
	}
	return w.Code, decode[assignmentBody](t, w)
}

func TestAssignmentsReportOverload(t *testing.T) {
	dbtest.New(t)
	p1 := seedProject(t, "OBR-1", models.ProjectInProgress)
	p2 := seedProject(t, "OBR-2", models.ProjectInProgress)
	r := teamRouter(dbtest.User(t, "gerente1", models.RoleGerente))
	ana := seedMember(t, r, "Ana López", "ana.lopez@obra.mx", "5512345678")

	code, res := assign(t, r, ana.ID, p1.ID, 60)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, 60.0, res.Carga)
	assert.False(t, res.Sobrecarga)

	code, res = assign(t, r, ana.ID, p2.ID, 50)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, 110.0, res.Carga)
	assert.True(t, res.Sobrecarga, "dedication above 100 is allowed and flagged")

	carla := seedMember(t, r, "Carla Ruiz", "", "")
	require.NoError(t, database.DB.Model(&models.TeamMember{}).Where("id = ?", carla.ID).
		Update("status", models.MemberInactive).Error)
	code, _ = assign(t, r, carla.ID, p1.ID, 20)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = assign(t, r, 999, p1.ID, 20)
	assert.Equal(t, http.StatusBadRequest, code)

	w := perform(t, r, http.MethodPost, "/assignments", gin.H{"miembroId": ana.ID, "proyectoId": p1.ID, "dedicacion": 120})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, hasDetail(decode[errorBody](t, w).Details, "dedicacion", "lte"))
}

func TestListTeamMasksContactsAndScopes(t *testing.T) {
	dbtest.New(t)
	p1 := seedProject(t, "OBR-1", models.ProjectInProgress)
	p2 := seedProject(t, "OBR-2", models.ProjectInProgress)
	gerente := teamRouter(dbtest.User(t, "gerente1", models.RoleGerente))
	ana := seedMember(t, gerente, "Ana López", "ana.lopez@obra.mx", "5512345678")
	beto := seedMember(t, gerente, "Beto Díaz", "beto@obra.mx", "5598765432")
	_, _ = assign(t, gerente, ana.ID, p1.ID, 60)
	_, _ = assign(t, gerente, ana.ID, p2.ID, 50)
	_, _ = assign(t, gerente, beto.ID, p2.ID, 30)

	type listBody struct {
		Items   []view.Record `json:"items"`
		Resumen stats.Summary `json:"resumen"`
	}

	w := perform(t, gerente, http.MethodGet, "/team?vista=table&min=100", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[listBody](t, w)
	require.Len(t, body.Items, 1)
	assert.Equal(t, ana.ID, body.Items[0].ID)
	assert.Equal(t, "ana.lopez@obra.mx", body.Items[0].Fields["email"])
	assert.Equal(t, "si", body.Items[0].Fields["sobrecarga"])
	assert.Equal(t, "110", body.Resumen.Sums["carga"].String())

	residente := teamRouter(dbtest.User(t, "residente1", models.RoleResidente, p1.ID))
	w = perform(t, residente, http.MethodGet, "/team?vista=table", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode[listBody](t, w)
	require.Len(t, body.Items, 1, "only members assigned to the caller's projects")
	assert.Equal(t, ana.ID, body.Items[0].ID)
	assert.Equal(t, view.MaskEmail("ana.lopez@obra.mx"), body.Items[0].Fields["email"])
	assert.Equal(t, view.MaskPhone("5512345678"), body.Items[0].Fields["telefono"])
	assert.NotEqual(t, "ana.lopez@obra.mx", body.Items[0].Fields["email"])
}

func TestMemberWorkloadAndUnassign(t *testing.T) {
	dbtest.New(t)
	p1 := seedProject(t, "OBR-1", models.ProjectInProgress)
	p2 := seedProject(t, "OBR-2", models.ProjectInProgress)
	gerente := teamRouter(dbtest.User(t, "gerente1", models.RoleGerente))
	ana := seedMember(t, gerente, "Ana López", "", "")
	beto := seedMember(t, gerente, "Beto Díaz", "", "")
	_, own := assign(t, gerente, ana.ID, p1.ID, 60)
	_, _ = assign(t, gerente, ana.ID, p2.ID, 50)
	_, foreign := assign(t, gerente, beto.ID, p2.ID, 30)

	w := perform(t, gerente, http.MethodGet, fmt.Sprintf("/team/%d/workload", ana.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	load := decode[workloadBody](t, w)
	assert.Equal(t, 110.0, load.Carga)
	assert.True(t, load.Sobrecarga)
	assert.ElementsMatch(t, []projectLoad{{ProjectID: p1.ID, Dedicacion: 60}, {ProjectID: p2.ID, Dedicacion: 50}}, load.Proyectos)

	residente := teamRouter(dbtest.User(t, "residente1", models.RoleResidente, p1.ID))
	w = perform(t, residente, http.MethodGet, fmt.Sprintf("/team/%d/workload", beto.ID), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = perform(t, residente, http.MethodGet, "/team/999/workload", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = perform(t, residente, http.MethodDelete, fmt.Sprintf("/assignments/%d", foreign.Asignacion.ID), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = perform(t, residente, http.MethodDelete, fmt.Sprintf("/assignments/%d", own.Asignacion.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = perform(t, gerente, http.MethodGet, fmt.Sprintf("/team/%d/workload", ana.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	load = decode[workloadBody](t, w)
	assert.Equal(t, 50.0, load.Carga)
	assert.False(t, load.Sobrecarga)
}
