package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/wycenapp/wycena-sync/pkg/db/models"
)

// PriceLine computes one line amount: quantity times unit price, rounded
// half-up to two decimals. Rounding happens exactly once, at the line
// level; aggregates sum the already-rounded amounts.
func PriceLine(quantity float64, pricePerUnit decimal.Decimal) decimal.Decimal {
	return pricePerUnit.Mul(decimal.NewFromFloat(quantity)).Round(2)
}

// ServiceQuantity resolves the billable quantity for one service line
// against its group's geometry.
func ServiceQuantity(group models.Group, line models.ServiceLine) float64 {
	return ResolveQuantity(line.QuantitySource, GroupAreas(group), line.Quantity)
}

// QuoteTotal sums all service and material line amounts left to right.
// Inputs are read-only; line totals are recomputed here rather than read
// from the cached fields so both call sites agree.
func QuoteTotal(groups []models.Group, materials []models.Material) decimal.Decimal {
	total := decimal.Zero
	for _, group := range groups {
		areas := GroupAreas(group)
		for _, line := range group.Services {
			qty := ResolveQuantity(line.QuantitySource, areas, line.Quantity)
			total = total.Add(PriceLine(qty, line.PricePerUnit))
		}
	}
	for _, material := range materials {
		total = total.Add(PriceLine(material.Quantity, material.PricePerUnit))
	}
	return total
}

// Recalculate refreshes every derived number on a quote in place: cached
// group areas, service and material line totals, and the quote total. It
// runs identically on an unsynced local draft and on a server-confirmed
// quote, which is what keeps the two sites from diverging.
func Recalculate(q *models.Quote) {
	if q == nil {
		return
	}

	total := decimal.Zero

	for gi := range q.Groups {
		group := &q.Groups[gi]
		CacheDerived(group)
		areas := GroupAreas(*group)
		for si := range group.Services {
			line := &group.Services[si]
			qty := ResolveQuantity(line.QuantitySource, areas, line.Quantity)
			line.Total = PriceLine(qty, line.PricePerUnit)
			total = total.Add(line.Total)
		}
	}

	for mi := range q.Materials {
		material := &q.Materials[mi]
		material.Total = PriceLine(material.Quantity, material.PricePerUnit)
		total = total.Add(material.Total)
	}

	q.Total = total
}
