package notify

import (
	"errors"
	"testing"

	"obra-manager/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	to      [][]string
	subject []string
	body    []string
	err     error
}

func (r *recorder) Send(to []string, subject, html string) error {
	r.to = append(r.to, to)
	r.subject = append(r.subject, subject)
	r.body = append(r.body, html)
	return r.err
}

func TestTaskAssigned(t *testing.T) {
	rec := &recorder{}
	New(rec).TaskAssigned("ana@obra.local", "Ana", "Colado de losa", "Torre A", "2024-05-10")

	require.Len(t, rec.subject, 1)
	assert.Equal(t, []string{"ana@obra.local"}, rec.to[0])
	assert.Equal(t, "Nueva tarea asignada: Colado de losa", rec.subject[0])
	assert.Contains(t, rec.body[0], "<strong>Colado de losa</strong>")
	assert.Contains(t, rec.body[0], "Fecha límite: 2024-05-10")
}

func TestInspectionClosedListsNonConformities(t *testing.T) {
	rec := &recorder{}
	New(rec).InspectionClosed([]string{"gerente@obra.local"}, "Armado de columnas", "Torre A", "rechazada",
		[]string{"Recubrimiento insuficiente", "Estribos fuera de especificación"})

	require.Len(t, rec.body, 1)
	assert.Contains(t, rec.body[0], "<li>Recubrimiento insuficiente</li>")
	assert.Contains(t, rec.body[0], "fue rechazada")
}

func TestDeliverySkipsEmptyRecipientsAndSwallowsErrors(t *testing.T) {
	rec := &recorder{err: errors.New("smtp down")}
	n := New(rec)

	n.InspectionClosed(nil, "x", "y", "rechazada", nil)
	assert.Empty(t, rec.subject)

	n.StockAlerts([]string{"almacen@obra.local"}, "Torre A", nil)
	assert.Empty(t, rec.subject)

	assert.NotPanics(t, func() {
		n.StockAlerts([]string{"almacen@obra.local"}, "Torre A", []string{"Cemento agotado"})
	})
	assert.Len(t, rec.subject, 1)
}

func TestNilNotifierIsSafe(t *testing.T) {
	var n *Notifier
	assert.NotPanics(t, func() { n.TaskAssigned("a@b.c", "A", "T", "P", "") })
}

func TestSMTPRequiresConfiguration(t *testing.T) {
	s := NewSMTP(config.SMTPConfig{})
	assert.NoError(t, s.Send(nil, "s", "b"))
	assert.Error(t, s.Send([]string{"a@b.c"}, "s", "b"))
}
