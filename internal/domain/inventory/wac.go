package inventory

import (
	"github.com/edumahmoud/try-meeza-crm/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// CostLayer is a quantity of stock and its total value
type CostLayer struct {
	Quantity int64
	Value    decimal.Decimal
}

// ReceiptLayer builds a layer from a receipt of qty units at unitCost
func ReceiptLayer(qty int64, unitCost decimal.Decimal) CostLayer {
	return CostLayer{Quantity: qty, Value: unitCost.Mul(decimal.NewFromInt(qty))}
}

// TotalQuantity sums the quantities of all layers
func TotalQuantity(layers []CostLayer) int64 {
	var total int64
	for _, l := range layers {
		total += l.Quantity
	}
	return total
}

// TotalValue sums the values of all layers without rounding
func TotalValue(layers []CostLayer) decimal.Decimal {
	total := decimal.Zero
	for _, l := range layers {
		total = total.Add(l.Value)
	}
	return total
}

// WeightedAverage returns Σvalue / Σquantity rounded to money scale.
// It returns zero when the layers hold no quantity.
func WeightedAverage(layers []CostLayer) decimal.Decimal {
	qty := TotalQuantity(layers)
	if qty == 0 {
		return decimal.Zero
	}
	return shared.RoundMoney(TotalValue(layers).Div(decimal.NewFromInt(qty)))
}
