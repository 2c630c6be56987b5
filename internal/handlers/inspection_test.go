package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"obra-manager/internal/database"
	"obra-manager/internal/database/dbtest"
	"obra-manager/internal/models"
	"obra-manager/internal/notify"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	to      []string
	subject string
}

type recordingSender struct {
	sent []sentMail
}

func (r *recordingSender) Send(to []string, subject, _ string) error {
	r.sent = append(r.sent, sentMail{to: to, subject: subject})
	return nil
}

func recordMail(t *testing.T) *recordingSender {
	t.Helper()
	rec := &recordingSender{}
	prev := Notifier
	Notifier = notify.New(rec)
	t.Cleanup(func() { Notifier = prev })
	return rec
}

func inspectionRouter(u *models.User) *gin.Engine {
	r := engineAs(u)
	r.POST("/inspections", CreateInspection)
	r.GET("/inspections/:id", GetInspection)
	r.PUT("/inspections/:id/items/:item_id", UpdateChecklistItem)
	r.POST("/inspections/:id/close", CloseInspection)
	return r
}

func TestInspectionLifecycle(t *testing.T) {
	dbtest.New(t)
	mail := recordMail(t)
	require.NoError(t, database.SeedChecklistTemplates())

	project := seedProject(t, "OBR-1", models.ProjectInProgress)
	supervisor := dbtest.User(t, "supervisor1", models.RoleSupervisor, project.ID)
	require.NoError(t, database.DB.Model(supervisor).Update("email", "supervisor@obra.mx").Error)
	r := inspectionRouter(supervisor)

	var tmpl models.ChecklistTemplate
	require.NoError(t, database.DB.Where("critical = ?", true).First(&tmpl).Error)

	w := perform(t, r, http.MethodPost, "/inspections", gin.H{
		"proyectoId": project.ID,
		"titulo":     "Losa nivel 2",
		"plantillas": []uint{tmpl.ID, tmpl.ID},
		"items":      []gin.H{{"descripcion": "Limpieza del área"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	insp := decode[models.InspeccionCalidad](t, w)
	require.Len(t, insp.Items, 2)
	assert.Equal(t, models.InspectionScheduled, insp.Status)
	assert.True(t, insp.Items[0].Critical)

	closePath := fmt.Sprintf("/inspections/%d/close", insp.ID)
	w = perform(t, r, http.MethodPost, closePath, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Hay puntos del checklist sin evaluar", decode[errorBody](t, w).Error)

	itemPath := func(id uint) string { return fmt.Sprintf("/inspections/%d/items/%d", insp.ID, id) }
	w = perform(t, r, http.MethodPut, itemPath(insp.Items[0].ID), gin.H{"cumple": false, "observaciones": "Varilla expuesta", "fotos": []string{"a.jpg"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"estadoInspeccion":"en_curso"`)

	w = perform(t, r, http.MethodPut, itemPath(insp.Items[1].ID), gin.H{"cumple": true})
	require.Equal(t, http.StatusOK, w.Code)

	var stored models.Project
	require.NoError(t, database.DB.First(&stored, project.ID).Error)
	assert.Equal(t, 1, stored.InspeccionesTotales)
	assert.Equal(t, 1, stored.NoConformidadesAbiertas)

	w = perform(t, r, http.MethodPost, closePath, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	closed := decode[struct {
		Inspeccion      models.InspeccionCalidad `json:"inspeccion"`
		NoConformidades []models.NoConformidad   `json:"noConformidades"`
	}](t, w)
	assert.Equal(t, models.InspectionRejected, closed.Inspeccion.Status)
	require.NotNil(t, closed.Inspeccion.ClosedAt)
	require.Len(t, closed.NoConformidades, 1)
	assert.True(t, closed.NoConformidades[0].Critica)

	require.Len(t, mail.sent, 1)
	assert.Equal(t, []string{"supervisor@obra.mx"}, mail.sent[0].to)

	w = perform(t, r, http.MethodPut, itemPath(insp.Items[0].ID), gin.H{"cumple": true})
	assert.Equal(t, http.StatusBadRequest, w.Code, "closed inspections are read-only")

	w = perform(t, r, http.MethodPost, closePath, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateInspectionNeedsItems(t *testing.T) {
	dbtest.New(t)
	project := seedProject(t, "OBR-1", models.ProjectInProgress)
	r := inspectionRouter(dbtest.User(t, "gerente1", models.RoleGerente))

	w := perform(t, r, http.MethodPost, "/inspections", gin.H{"proyectoId": project.ID, "titulo": "Vacía"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, hasDetail(decode[errorBody](t, w).Details, "items", "min"))

	w = perform(t, r, http.MethodPost, "/inspections", gin.H{"proyectoId": project.ID, "titulo": "Fantasma", "plantillas": []uint{404}})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, hasDetail(decode[errorBody](t, w).Details, "plantillas", "exists"))
}

func TestCreateInspectionChecksPartidaProject(t *testing.T) {
	dbtest.New(t)
	project := seedProject(t, "OBR-1", models.ProjectInProgress)
	other := seedProject(t, "OBR-2", models.ProjectInProgress)
	foreign := models.Partida{ProjectID: other.ID, Code: "P-01", Name: "Cimentación"}
	require.NoError(t, database.DB.Create(&foreign).Error)
	local := models.Partida{ProjectID: project.ID, Code: "P-01", Name: "Cimentación"}
	require.NoError(t, database.DB.Create(&local).Error)
	r := inspectionRouter(dbtest.User(t, "gerente1", models.RoleGerente))

	items := []gin.H{{"descripcion": "Armado de zapatas"}}
	w := perform(t, r, http.MethodPost, "/inspections", gin.H{
		"proyectoId": project.ID, "partidaId": foreign.ID, "titulo": "Zapatas", "items": items,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, hasDetail(decode[errorBody](t, w).Details, "partidaId", "exists"))

	w = perform(t, r, http.MethodPost, "/inspections", gin.H{
		"proyectoId": project.ID, "partidaId": local.ID, "titulo": "Zapatas", "items": items,
	})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestApprovedInspectionSendsNoMail(t *testing.T) {
	dbtest.New(t)
	mail := recordMail(t)
	project := seedProject(t, "OBR-1", models.ProjectInProgress)
	r := inspectionRouter(dbtest.User(t, "gerente1", models.RoleGerente))

	w := perform(t, r, http.MethodPost, "/inspections", gin.H{
		"proyectoId": project.ID, "titulo": "Instalación eléctrica",
		"items": []gin.H{{"descripcion": "Tierra física", "critico": true}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	insp := decode[models.InspeccionCalidad](t, w)

	w = perform(t, r, http.MethodPut, fmt.Sprintf("/inspections/%d/items/%d", insp.ID, insp.Items[0].ID), gin.H{"cumple": true})
	require.Equal(t, http.StatusOK, w.Code)

	w = perform(t, r, http.MethodPost, fmt.Sprintf("/inspections/%d/close", insp.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"estado":"aprobada"`)
	assert.Empty(t, mail.sent)

	var stored models.Project
	require.NoError(t, database.DB.First(&stored, project.ID).Error)
	assert.Equal(t, 1, stored.InspeccionesAprobadas)
	assert.Zero(t, stored.NoConformidadesAbiertas)
}
