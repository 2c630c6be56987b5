package view

import (
	"net/http"
	"testing"

	"obra-manager/internal/access"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type card struct {
	id       uint
	status   string
	priority string
}

func (c card) DisplayID() uint         { return c.id }
func (c card) DisplayTitle() string    { return "Tarea" }
func (c card) DisplaySubtitle() string { return "General" }
func (c card) StatusKey() string       { return c.status }
func (c card) PriorityKey() string     { return c.priority }
func (c card) Progress() float64       { return 50 }
func (c card) DisplayFields() map[string]string {
	return map[string]string{"horas": "8.00", "secreto": "x"}
}

var spec = Spec{
	BasePath: "/api/tasks",
	Fields: map[Layout][]string{
		LayoutTable:  {"horas", "faltante"},
		LayoutKanban: {"horas"},
	},
	Actions: []ActionRule{
		{Name: "ver", Label: "Ver", Method: http.MethodGet, Permission: access.TasksView},
		{Name: "eliminar", Label: "Eliminar", Method: http.MethodDelete, Permission: access.TasksDelete},
	},
}

func TestParseLayout(t *testing.T) {
	assert.Equal(t, LayoutTable, ParseLayout(" TABLE "))
	assert.Equal(t, LayoutKanban, ParseLayout("kanban"))
	assert.Equal(t, LayoutCards, ParseLayout(""))
	assert.Equal(t, LayoutCards, ParseLayout("mosaico"))
}

func TestSelectTable(t *testing.T) {
	p := &access.Principal{Permisos: []string{access.TasksView}}
	recs := Select([]card{{id: 3, status: "PENDING", priority: "HIGH"}}, LayoutTable, spec, p)

	require.Len(t, recs, 1)
	r := recs[0]
	assert.EqualValues(t, 3, r.ID)
	assert.Equal(t, "gray", r.StatusColor)
	assert.Equal(t, "orange", r.PriorityColor)
	assert.Equal(t, "General", r.Subtitle)
	require.NotNil(t, r.Progress)
	assert.Equal(t, 50.0, *r.Progress)
	assert.Equal(t, map[string]string{"horas": "8.00"}, r.Fields)
	assert.Equal(t, []Action{{Name: "ver", Label: "Ver", Method: http.MethodGet, Href: "/api/tasks/3"}}, r.Actions)
}

func TestSelectKanbanIsCompact(t *testing.T) {
	recs := Select([]card{{id: 1, status: "REVIEW"}}, LayoutKanban, spec, nil)

	require.Len(t, recs, 1)
	assert.Empty(t, recs[0].Subtitle)
	assert.Nil(t, recs[0].Progress)
	assert.Empty(t, recs[0].Priority)
	assert.Empty(t, recs[0].Actions, "nil principal gets no actions")
}

func TestSelectCardsWithoutFields(t *testing.T) {
	recs := Select([]card{{id: 1, status: "REVIEW"}}, LayoutCards, spec, nil)
	assert.Nil(t, recs[0].Fields)
}

func TestBoard(t *testing.T) {
	recs := []Record{
		{ID: 1, Status: "REVIEW"},
		{ID: 2, Status: "PENDING"},
		{ID: 3, Status: "BLOCKED"},
		{ID: 4, Status: "PENDING"},
	}
	cols := Board(recs, []string{"PENDING", "IN_PROGRESS", "REVIEW"})

	require.Len(t, cols, 4)
	assert.Equal(t, "PENDING", cols[0].Status)
	assert.Len(t, cols[0].Items, 2)
	assert.Empty(t, cols[1].Items)
	assert.NotNil(t, cols[1].Items)
	assert.Equal(t, "BLOCKED", cols[3].Status)
	assert.Equal(t, "gray", cols[3].Color)
}

func TestMasking(t *testing.T) {
	assert.Equal(t, "ju***@obra.mx", MaskEmail("juan@obra.mx"))
	assert.Equal(t, "a***@obra.mx", MaskEmail("a@obra.mx"))
	assert.Equal(t, "***", MaskEmail("sin-arroba"))
	assert.Equal(t, "***", MaskEmail("@obra.mx"))

	assert.Equal(t, "********67", MaskPhone("8112345567"))
	assert.Equal(t, "***", MaskPhone("123"))
}
