package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskSetStatus(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	given := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	var task Task
	task.SetStatus(TaskCompleted, nil, now)
	require.NotNil(t, task.CompletedAt)
	assert.Equal(t, now, *task.CompletedAt)

	task.SetStatus(TaskCompleted, &given, now)
	assert.Equal(t, given, *task.CompletedAt)

	task.SetStatus(TaskInProgress, &given, now)
	assert.Nil(t, task.CompletedAt, "completedAt only survives on COMPLETED")
}

func TestTaskOverdue(t *testing.T) {
	now := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)

	assert.True(t, Task{Status: TaskPending, DueDate: &past}.Overdue(now))
	assert.False(t, Task{Status: TaskCompleted, DueDate: &past}.Overdue(now))
	assert.False(t, Task{Status: TaskPending}.Overdue(now))
}

func stock(fisica float64) MaterialInventory {
	return MaterialInventory{
		Material:   Material{Name: "Cemento", Unit: "saco", MinStock: 10},
		Location:   "Bodega",
		Fisica:     fisica,
		Disponible: fisica,
	}
}

func TestApply(t *testing.T) {
	inv := stock(20)

	require.NoError(t, inv.Apply(MovementReserve, 5))
	assert.Equal(t, 15.0, inv.Disponible)
	assert.Equal(t, 5.0, inv.Reservada)
	assert.Equal(t, 20.0, inv.Fisica)

	require.NoError(t, inv.Apply(MovementDamage, 2))
	require.NoError(t, inv.Apply(MovementOut, 3))
	assert.Equal(t, 17.0, inv.Fisica)
	assert.Equal(t, inv.Fisica, inv.Disponible+inv.Reservada+inv.Danada)

	require.NoError(t, inv.Apply(MovementOrder, 50))
	require.NoError(t, inv.Apply(MovementIn, 30))
	assert.Equal(t, 20.0, inv.EnPedido)

	require.NoError(t, inv.Apply(MovementAdjust, -7))
	assert.Equal(t, 40.0, inv.Fisica)
}

func TestApplyRejects(t *testing.T) {
	inv := stock(5)
	before := inv

	assert.ErrorIs(t, inv.Apply(MovementOut, 6), ErrInsufficientStock)
	assert.ErrorIs(t, inv.Apply(MovementRelease, 1), ErrInsufficientStock)
	assert.ErrorIs(t, inv.Apply(MovementAdjust, -6), ErrInsufficientStock)
	assert.ErrorIs(t, inv.Apply(MovementIn, 0), ErrInvalidQuantity)
	assert.ErrorIs(t, inv.Apply(MovementIn, -1), ErrInvalidQuantity)
	assert.ErrorIs(t, inv.Apply("robo", 1), ErrUnknownMovement)
	assert.Equal(t, before, inv)
}

func TestReconcile(t *testing.T) {
	inv := stock(0)
	moves := []Movement{
		{Type: MovementIn, Quantity: 10},
		{Type: MovementReserve, Quantity: 4},
		{Type: MovementOut, Quantity: 3},
	}
	for _, m := range moves {
		require.NoError(t, inv.Apply(m.Type, m.Quantity))
	}

	r := Reconcile(inv, moves)
	assert.True(t, r.Consistente, r.Diferencias)
	assert.Equal(t, 7.0, r.FisicaMovimiento)

	inv.Fisica = 9
	r = Reconcile(inv, moves)
	assert.False(t, r.Consistente)
	assert.Len(t, r.Diferencias, 2)
}

func TestStockStatusAndAlerts(t *testing.T) {
	now := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	soon := now.Add(5 * 24 * time.Hour)
	later := now.Add(60 * 24 * time.Hour)

	assert.Equal(t, StockNormal, stock(10).StockStatus())
	assert.Equal(t, StockLow, stock(4).StockStatus())
	assert.Equal(t, StockOut, stock(0).StockStatus())

	inv := stock(4)
	inv.Batches = []Batch{
		{Lot: "A", Quantity: 2, ExpiresAt: &soon},
		{Lot: "B", Quantity: 2, ExpiresAt: &later},
		{Lot: "C", Quantity: 0, ExpiresAt: &soon},
	}
	alerts := inv.PendingAlerts(now, 15*24*time.Hour)
	require.Len(t, alerts, 2)
	assert.Equal(t, AlertLowStock, alerts[0].Type)
	assert.Equal(t, AlertExpiringLot, alerts[1].Type)
	assert.Contains(t, alerts[1].Message, "lote A")
}

func TestConsumeBatchesEarliestExpiryFirst(t *testing.T) {
	d1 := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	batches := []Batch{
		{ID: 1, Lot: "sin-vencimiento", Quantity: 10},
		{ID: 2, Lot: "julio", Quantity: 5, ExpiresAt: &d2},
		{ID: 3, Lot: "junio", Quantity: 3, ExpiresAt: &d1},
	}

	changed := ConsumeBatches(batches, 6)

	require.Len(t, changed, 2)
	assert.EqualValues(t, 3, changed[0].ID)
	assert.Zero(t, changed[0].Quantity)
	assert.EqualValues(t, 2, changed[1].ID)
	assert.Equal(t, 2.0, changed[1].Quantity)
	assert.Equal(t, 5.0, batches[1].Quantity, "input is not modified")

	assert.Len(t, ConsumeBatches(batches, 20), 3)
}

func TestInspectionVerdict(t *testing.T) {
	yes, no := true, false

	insp := InspeccionCalidad{Status: InspectionInProgress, Items: []ChecklistItem{
		{Description: "Recubrimiento", Cumple: &yes},
		{Description: "Plomeo", Cumple: nil},
	}}
	_, ok := insp.Verdict()
	assert.False(t, ok)

	insp.Items[1].Cumple = &yes
	status, ok := insp.Verdict()
	assert.True(t, ok)
	assert.Equal(t, InspectionApproved, status)

	insp.Items[1].Cumple = &no
	status, _ = insp.Verdict()
	assert.Equal(t, InspectionConditional, status)
	assert.Len(t, insp.NoConformidades(), 1)

	insp.Items[1].Critical = true
	status, _ = insp.Verdict()
	assert.Equal(t, InspectionRejected, status)
	assert.Equal(t, 50.0, insp.Compliance())
}

func TestMemberWorkload(t *testing.T) {
	now := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	ended := now.Add(-24 * time.Hour)
	m := TeamMember{Assignments: []WorkAssignment{
		{ProjectID: 1, Dedicacion: 70},
		{ProjectID: 2, Dedicacion: 50},
		{ProjectID: 2, Dedicacion: 40, EndDate: &ended},
	}}

	assert.Equal(t, 120.0, m.Workload(now))
	assert.Equal(t, []uint{1, 2}, m.ProjectRefs())
	assert.Equal(t, []string{"1", "2"}, m.Values("proyecto"))
}
