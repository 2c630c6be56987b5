package stats

import "github.com/shopspring/decimal"

// Budget describes how much of a budget has been spent.
type Budget struct {
	Presupuesto decimal.Decimal `json:"presupuesto"`
	Gastado     decimal.Decimal `json:"gastado"`
	Disponible  decimal.Decimal `json:"disponible"`
	Ejecucion   float64         `json:"ejecucion"`
	Excedido    bool            `json:"excedido"`
}

func BudgetExecution(presupuesto, gastado decimal.Decimal) Budget {
	return Budget{
		Presupuesto: presupuesto,
		Gastado:     gastado,
		Disponible:  presupuesto.Sub(gastado),
		Ejecucion:   PercentDecimal(gastado, presupuesto),
		Excedido:    gastado.GreaterThan(presupuesto),
	}
}

// Quality summarises inspection outcomes.
type Quality struct {
	Inspecciones    int     `json:"inspecciones"`
	Aprobadas       int     `json:"aprobadas"`
	Rechazadas      int     `json:"rechazadas"`
	NoConformidades int     `json:"noConformidades"`
	TasaAprobacion  float64 `json:"tasaAprobacion"`
}

func QualityRate(total, approved, rejected, nonConformities int) Quality {
	return Quality{
		Inspecciones:    total,
		Aprobadas:       approved,
		Rechazadas:      rejected,
		NoConformidades: nonConformities,
		TasaAprobacion:  Percent(float64(approved), float64(total)),
	}
}

// Allocation is one dedication share of a team member.
type Allocation struct {
	MemberID   uint
	Percentage float64
}

// Workload sums dedication per member. The sum is not capped at 100.
func Workload(allocs []Allocation) map[uint]float64 {
	out := make(map[uint]float64)
	for _, a := range allocs {
		out[a.MemberID] += a.Percentage
	}
	return out
}
