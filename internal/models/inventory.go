package models

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var (
	ErrInvalidQuantity   = errors.New("cantidad inválida")
	ErrInsufficientStock = errors.New("existencia insuficiente")
	ErrUnknownMovement   = errors.New("tipo de movimiento desconocido")
)

const (
	StockNormal = "normal"
	StockLow    = "bajo"
	StockOut    = "agotado"
)

// quantities closer than this are considered equal
const qtyEpsilon = 1e-6

func ValidMovementType(t MovementType) bool {
	switch t {
	case MovementIn, MovementOut, MovementAdjust, MovementTransferOut, MovementTransferIn,
		MovementReserve, MovementRelease, MovementDamage, MovementOrder:
		return true
	}
	return false
}

// Apply updates the quantity breakdown for one movement. It leaves inv
// untouched when it returns an error.
func (inv *MaterialInventory) Apply(t MovementType, qty float64) error {
	if !ValidMovementType(t) {
		return ErrUnknownMovement
	}
	if math.IsNaN(qty) || math.IsInf(qty, 0) || qty == 0 {
		return ErrInvalidQuantity
	}
	if t != MovementAdjust && qty < 0 {
		return ErrInvalidQuantity
	}

	next := *inv
	switch t {
	case MovementIn, MovementTransferIn:
		next.Fisica += qty
		next.Disponible += qty
		if t == MovementIn {
			next.EnPedido = math.Max(0, next.EnPedido-qty)
		} else {
			next.EnTransito = math.Max(0, next.EnTransito-qty)
		}
	case MovementOut, MovementTransferOut:
		if next.Disponible+qtyEpsilon < qty {
			return fmt.Errorf("%w: disponible %.2f, solicitado %.2f", ErrInsufficientStock, next.Disponible, qty)
		}
		next.Fisica -= qty
		next.Disponible -= qty
	case MovementAdjust:
		if next.Disponible+qty < -qtyEpsilon {
			return fmt.Errorf("%w: disponible %.2f, ajuste %.2f", ErrInsufficientStock, next.Disponible, qty)
		}
		next.Fisica += qty
		next.Disponible += qty
	case MovementReserve:
		if next.Disponible+qtyEpsilon < qty {
			return fmt.Errorf("%w: disponible %.2f, solicitado %.2f", ErrInsufficientStock, next.Disponible, qty)
		}
		next.Disponible -= qty
		next.Reservada += qty
	case MovementRelease:
		if next.Reservada+qtyEpsilon < qty {
			return fmt.Errorf("%w: reservado %.2f, solicitado %.2f", ErrInsufficientStock, next.Reservada, qty)
		}
		next.Reservada -= qty
		next.Disponible += qty
	case MovementDamage:
		if next.Disponible+qtyEpsilon < qty {
			return fmt.Errorf("%w: disponible %.2f, solicitado %.2f", ErrInsufficientStock, next.Disponible, qty)
		}
		next.Disponible -= qty
		next.Danada += qty
	case MovementOrder:
		next.EnPedido += qty
	}

	*inv = next
	return nil
}

// PhysicalDelta is the effect of a movement on physical stock.
func PhysicalDelta(t MovementType, qty float64) float64 {
	switch t {
	case MovementIn, MovementTransferIn, MovementAdjust:
		return qty
	case MovementOut, MovementTransferOut:
		return -qty
	default:
		return 0
	}
}

type Reconciliation struct {
	InventoryID      uint     `json:"inventarioId"`
	FisicaRegistrada float64  `json:"fisicaRegistrada"`
	FisicaMovimiento float64  `json:"fisicaSegunMovimientos"`
	Desglose         float64  `json:"disponibleReservadaDanada"`
	Consistente      bool     `json:"consistente"`
	Diferencias      []string `json:"diferencias,omitempty"`
}

// Reconcile compares stored quantities with the movement history and with
// the physical = available + reserved + damaged breakdown.
func Reconcile(inv MaterialInventory, movements []Movement) Reconciliation {
	var fromMovements float64
	for _, m := range movements {
		fromMovements += PhysicalDelta(m.Type, m.Quantity)
	}

	r := Reconciliation{
		InventoryID:      inv.ID,
		FisicaRegistrada: inv.Fisica,
		FisicaMovimiento: fromMovements,
		Desglose:         inv.Disponible + inv.Reservada + inv.Danada,
	}

	if math.Abs(inv.Fisica-fromMovements) > qtyEpsilon {
		r.Diferencias = append(r.Diferencias,
			fmt.Sprintf("existencia física %.2f no coincide con movimientos %.2f", inv.Fisica, fromMovements))
	}
	if math.Abs(inv.Fisica-r.Desglose) > qtyEpsilon {
		r.Diferencias = append(r.Diferencias,
			fmt.Sprintf("existencia física %.2f no coincide con desglose %.2f", inv.Fisica, r.Desglose))
	}
	for _, q := range []struct {
		name string
		v    float64
	}{
		{"disponible", inv.Disponible},
		{"reservada", inv.Reservada},
		{"dañada", inv.Danada},
		{"en tránsito", inv.EnTransito},
		{"en pedido", inv.EnPedido},
	} {
		if q.v < -qtyEpsilon {
			r.Diferencias = append(r.Diferencias, fmt.Sprintf("cantidad %s negativa: %.2f", q.name, q.v))
		}
	}
	r.Consistente = len(r.Diferencias) == 0
	return r
}

// StockStatus classifies available stock against the material minimum.
func (inv MaterialInventory) StockStatus() string {
	switch {
	case inv.Disponible <= qtyEpsilon:
		return StockOut
	case inv.Disponible < inv.Material.MinStock:
		return StockLow
	default:
		return StockNormal
	}
}

// PendingAlerts returns the alerts the current state warrants. Lots expiring
// within horizon of now are included.
func (inv MaterialInventory) PendingAlerts(now time.Time, horizon time.Duration) []InventoryAlert {
	var out []InventoryAlert
	switch inv.StockStatus() {
	case StockOut:
		out = append(out, InventoryAlert{
			InventoryID: inv.ID,
			Type:        AlertOutOfStock,
			Message:     fmt.Sprintf("%s agotado en %s", inv.Material.Name, inv.Location),
		})
	case StockLow:
		out = append(out, InventoryAlert{
			InventoryID: inv.ID,
			Type:        AlertLowStock,
			Message: fmt.Sprintf("%s bajo mínimo en %s: %.2f de %.2f %s",
				inv.Material.Name, inv.Location, inv.Disponible, inv.Material.MinStock, inv.Material.Unit),
		})
	}
	for _, b := range inv.Batches {
		if b.ExpiresAt == nil || b.Quantity <= 0 {
			continue
		}
		if b.ExpiresAt.Before(now.Add(horizon)) {
			out = append(out, InventoryAlert{
				InventoryID: inv.ID,
				Type:        AlertExpiringLot,
				Message:     fmt.Sprintf("lote %s vence el %s", b.Lot, b.ExpiresAt.Format("2006-01-02")),
			})
		}
	}
	return out
}

// ConsumeBatches takes qty out of the lots, earliest expiry first (lots
// without expiry last), and returns the lots whose quantity changed.
func ConsumeBatches(batches []Batch, qty float64) []Batch {
	order := make([]int, len(batches))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ea, eb := batches[order[a]].ExpiresAt, batches[order[b]].ExpiresAt
		switch {
		case ea == nil:
			return false
		case eb == nil:
			return true
		default:
			return ea.Before(*eb)
		}
	})

	var changed []Batch
	for _, i := range order {
		if qty <= qtyEpsilon {
			break
		}
		b := batches[i]
		if b.Quantity <= 0 {
			continue
		}
		take := math.Min(b.Quantity, qty)
		b.Quantity -= take
		qty -= take
		changed = append(changed, b)
	}
	return changed
}
