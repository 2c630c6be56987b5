package stats

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type item struct {
	status   string
	progress float64
	cost     int64
}

func (i item) StatusKey() string { return i.status }
func (i item) Progress() float64 { return i.progress }
func (i item) Amount(f string) decimal.Decimal {
	if f == "costo" {
		return decimal.NewFromInt(i.cost)
	}
	return decimal.Zero
}

func TestAggregate(t *testing.T) {
	items := []item{
		{"en_progreso", 40, 100},
		{"en_progreso", 60, 200},
		{"planificacion", 0, 50},
		{"completado", 100, 300},
		{"completado", 100, 10},
	}

	s := Aggregate(items, []string{"completado", "cancelado"}, "costo")

	assert.Equal(t, 5, s.Total)
	assert.Equal(t, map[string]int{"en_progreso": 2, "planificacion": 1, "completado": 2}, s.ByStatus)
	assert.Equal(t, 3, s.Active)
	assert.Equal(t, 33.33, s.AverageProgress)
	assert.True(t, decimal.NewFromInt(660).Equal(s.Sums["costo"]))
}

func TestAggregateEmpty(t *testing.T) {
	s := Aggregate([]item{}, nil, "costo")

	assert.Zero(t, s.Total)
	assert.Zero(t, s.Active)
	assert.Zero(t, s.AverageProgress)
	assert.Empty(t, s.ByStatus)
	assert.True(t, s.Sums["costo"].IsZero())
}

func TestAggregateAllTerminal(t *testing.T) {
	s := Aggregate([]item{{"completado", 100, 0}}, []string{"completado"})
	assert.Zero(t, s.AverageProgress)
	assert.Nil(t, s.Sums)
}

func TestMeans(t *testing.T) {
	assert.Zero(t, Mean(nil))
	assert.Equal(t, 2.0, Mean([]float64{1, 2, 3}))

	assert.Equal(t, 75.0, WeightedMean([]float64{100, 50}, []float64{1, 1}))
	assert.Equal(t, 90.0, WeightedMean([]float64{100, 50}, []float64{4, 1}))
	assert.Equal(t, 75.0, WeightedMean([]float64{100, 50}, []float64{0, 0}), "zero weights fall back to the mean")
	assert.Zero(t, WeightedMean(nil, nil))
}

func TestPercent(t *testing.T) {
	assert.Zero(t, Percent(5, 0))
	assert.Equal(t, 33.33, Percent(1, 3))
	assert.Zero(t, PercentDecimal(decimal.NewFromInt(5), decimal.Zero))
	assert.Equal(t, 12.5, PercentDecimal(decimal.NewFromInt(125), decimal.NewFromInt(1000)))
}

func TestBudgetExecution(t *testing.T) {
	b := BudgetExecution(decimal.NewFromInt(1000), decimal.NewFromInt(1200))
	assert.True(t, b.Excedido)
	assert.Equal(t, 120.0, b.Ejecucion)
	assert.True(t, decimal.NewFromInt(-200).Equal(b.Disponible))

	assert.Zero(t, BudgetExecution(decimal.Zero, decimal.Zero).Ejecucion)
}

func TestQualityRate(t *testing.T) {
	q := QualityRate(4, 3, 1, 2)
	assert.Equal(t, 75.0, q.TasaAprobacion)
	assert.Zero(t, QualityRate(0, 0, 0, 0).TasaAprobacion)
}

func TestWorkloadIsNotCapped(t *testing.T) {
	w := Workload([]Allocation{{1, 60}, {1, 70}, {2, 30}})
	assert.Equal(t, 130.0, w[1])
	assert.Equal(t, 30.0, w[2])
}
