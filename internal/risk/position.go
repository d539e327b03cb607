package risk

import (
	"github.com/shopspring/decimal"

	"hftengine/pkg/types"
)

// Position is the signed per-symbol holding a RiskManager tracks: positive
// quantity is long, negative is short. Average entry price is always
// positive and only meaningful while quantity is non-zero.
type Position struct {
	Symbol        string
	Quantity      decimal.Decimal
	AvgEntryPrice decimal.Decimal
	RealizedPnL   decimal.Decimal
}

// notional returns the absolute dollar exposure of the position at a given
// mark price.
func (p *Position) notional(mark decimal.Decimal) decimal.Decimal {
	return p.Quantity.Abs().Mul(mark)
}

// applyFill folds one fill into the position, following §4.3's accounting
// rules precisely: extend (same sign or from flat) recomputes a
// volume-weighted average entry price; reduce realizes P&L on the closed
// portion at the existing average; flip realizes P&L on the full old
// position and opens a fresh one in the new direction for the remainder.
// side is the perspective of this position holder for the fill (Buy adds
// signed +qty, Sell adds signed -qty). It returns the realized P&L delta
// from this single fill.
func (p *Position) applyFill(side types.Side, price, qty decimal.Decimal) decimal.Decimal {
	signedQty := qty
	if side == types.Sell {
		signedQty = qty.Neg()
	}

	switch {
	case p.Quantity.IsZero():
		p.Quantity = signedQty
		p.AvgEntryPrice = price
		return decimal.Zero

	case sameSign(p.Quantity, signedQty):
		oldAbs := p.Quantity.Abs()
		newAbs := oldAbs.Add(qty)
		totalCost := p.AvgEntryPrice.Mul(oldAbs).Add(price.Mul(qty))
		p.AvgEntryPrice = totalCost.Div(newAbs)
		p.Quantity = p.Quantity.Add(signedQty)
		return decimal.Zero

	default:
		oldAbs := p.Quantity.Abs()
		closedQty := decimal.Min(oldAbs, qty)
		sign := decimal.NewFromInt(1)
		if p.Quantity.IsNegative() {
			sign = decimal.NewFromInt(-1)
		}
		realized := price.Sub(p.AvgEntryPrice).Mul(closedQty).Mul(sign)
		p.RealizedPnL = p.RealizedPnL.Add(realized)

		p.Quantity = p.Quantity.Add(signedQty)

		if qty.GreaterThan(oldAbs) {
			// Flip: the old side fully closed, the remainder opens a fresh
			// position in the new direction at this fill's price.
			p.AvgEntryPrice = price
		} else if p.Quantity.IsZero() {
			p.AvgEntryPrice = decimal.Zero
		}
		return realized
	}
}

func sameSign(a, b decimal.Decimal) bool {
	if a.IsZero() || b.IsZero() {
		return true
	}
	return a.IsPositive() == b.IsPositive()
}
