// Package stats computes summary counters over an already filtered slice.
package stats

import (
	"math"
	"slices"

	"github.com/shopspring/decimal"
)

// Measurable is implemented by every entity that appears in a summary.
type Measurable interface {
	StatusKey() string
	Progress() float64
	Amount(field string) decimal.Decimal
}

type Summary struct {
	Total           int                        `json:"total"`
	ByStatus        map[string]int             `json:"porEstado"`
	Sums            map[string]decimal.Decimal `json:"sumas,omitempty"`
	Active          int                        `json:"activos"`
	AverageProgress float64                    `json:"avancePromedio"`
}

// Aggregate counts items by status, sums the requested amount fields and
// averages Progress over items whose status is not in terminal.
func Aggregate[T Measurable](items []T, terminal []string, sumFields ...string) Summary {
	s := Summary{
		Total:    len(items),
		ByStatus: map[string]int{},
	}
	if len(sumFields) > 0 {
		s.Sums = make(map[string]decimal.Decimal, len(sumFields))
		for _, f := range sumFields {
			s.Sums[f] = decimal.Zero
		}
	}

	var progress []float64
	for _, it := range items {
		status := it.StatusKey()
		s.ByStatus[status]++

		for _, f := range sumFields {
			s.Sums[f] = s.Sums[f].Add(it.Amount(f))
		}

		if !slices.Contains(terminal, status) {
			progress = append(progress, it.Progress())
		}
	}

	s.Active = len(progress)
	s.AverageProgress = Round2(Mean(progress))
	return s
}

// Mean is the arithmetic mean; an empty input yields 0.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// WeightedMean averages values by weights. A zero total weight falls back to
// the plain mean.
func WeightedMean(values, weights []float64) float64 {
	var sum, total float64
	for i, v := range values {
		if i >= len(weights) {
			break
		}
		sum += v * weights[i]
		total += weights[i]
	}
	if total == 0 {
		return Mean(values)
	}
	return sum / total
}

// Percent returns part/total*100, or 0 when total is 0.
func Percent(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return Round2(part / total * 100)
}

// PercentDecimal is Percent for money amounts.
func PercentDecimal(part, total decimal.Decimal) float64 {
	if total.IsZero() {
		return 0
	}
	f, _ := part.Div(total).Mul(decimal.NewFromInt(100)).Round(2).Float64()
	return f
}

func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}
