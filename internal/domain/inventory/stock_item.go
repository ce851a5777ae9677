package inventory

import (
	"strings"

	"github.com/edumahmoud/try-meeza-crm/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// IDPrefix is the identifier prefix for stock items
const IDPrefix = "ITM"

// DefaultItemName is used when an item is added without a name
const DefaultItemName = "Unnamed item"

// Sources recorded on stock movement events
const (
	SourceManual             = "manual"
	SourceSale               = "sale"
	SourceSaleReturn         = "sale_return"
	SourceSaleReturnReversal = "sale_return_reversal"
	SourcePurchaseReturn     = "purchase_return"
	SourcePurchaseReversal   = "purchase_return_reversal"
)

// StockItem is the aggregate root for one stocked product.
// Quantity is never negative. UnitCost is the weighted-average cost (WAC) and
// only moves on Receive.
type StockItem struct {
	shared.BaseAggregateRoot
	shared.SoftDelete
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Quantity    int64           `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	RetailPrice decimal.Decimal `json:"retail_price"`

	// CostBasis is the unrounded inventory value behind UnitCost. Records
	// imported without it fall back to Quantity x UnitCost.
	CostBasis decimal.NullDecimal `json:"cost_basis"`
}

// NewStockItem creates a stock item with an opening quantity valued at unitCost
func NewStockItem(code, name, description string, unitCost, retailPrice decimal.Decimal, quantity int64) (*StockItem, error) {
	if quantity < 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Opening stock cannot be negative")
	}
	if unitCost.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Unit cost cannot be negative")
	}
	if retailPrice.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Retail price cannot be negative")
	}
	if strings.TrimSpace(code) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Item code cannot be empty")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultItemName
	}

	item := &StockItem{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(IDPrefix),
		Code:              code,
		Name:              name,
		Description:       strings.TrimSpace(description),
		Quantity:          quantity,
		UnitCost:          shared.RoundMoney(unitCost),
		RetailPrice:       shared.RoundMoney(retailPrice),
		CostBasis:         decimal.NewNullDecimal(unitCost.Mul(decimal.NewFromInt(quantity))),
	}
	item.AddDomainEvent(NewStockItemAddedEvent(item))
	return item, nil
}

// Receive adds received stock and recomputes the weighted-average cost.
// When the resulting quantity is zero the cost becomes unitCost.
func (i *StockItem) Receive(addedQty int64, unitCost decimal.Decimal) error {
	if addedQty < 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Received quantity cannot be negative")
	}
	if unitCost.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Unit cost cannot be negative")
	}

	oldCost := i.UnitCost
	layers := []CostLayer{
		{Quantity: i.Quantity, Value: i.basis()},
		ReceiptLayer(addedQty, unitCost),
	}
	total := TotalQuantity(layers)
	if total == 0 {
		i.UnitCost = unitCost
	} else {
		i.UnitCost = WeightedAverage(layers)
	}
	i.CostBasis = decimal.NewNullDecimal(TotalValue(layers))
	i.Quantity = total
	i.Touch()
	i.IncrementVersion()

	i.AddDomainEvent(NewStockReceivedEvent(i, addedQty, unitCost))
	if !oldCost.Equal(i.UnitCost) {
		i.AddDomainEvent(NewStockCostChangedEvent(i, oldCost, i.UnitCost))
	}
	return nil
}

// Deduct removes up to qty units and returns how many were actually removed.
// Quantity is clamped at zero and the cost is left untouched.
func (i *StockItem) Deduct(qty int64, source string) (int64, error) {
	if qty < 0 {
		return 0, shared.NewDomainError(shared.CodeInvalidInput, "Deducted quantity cannot be negative")
	}
	applied := min(qty, i.Quantity)
	if applied > 0 {
		i.CostBasis = decimal.NewNullDecimal(i.scaledBasis(i.Quantity - applied))
	}
	i.Quantity -= applied
	i.Touch()
	i.IncrementVersion()

	i.AddDomainEvent(NewStockDeductedEvent(i, qty, applied, source))
	return applied, nil
}

// Restock puts qty units back at the current average cost
func (i *StockItem) Restock(qty int64, source string) error {
	if qty < 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Restocked quantity cannot be negative")
	}
	i.CostBasis = decimal.NewNullDecimal(i.scaledBasis(i.Quantity + qty))
	i.Quantity += qty
	i.Touch()
	i.IncrementVersion()

	i.AddDomainEvent(NewStockRestockedEvent(i, qty, source))
	return nil
}

// Update changes descriptive fields. Nil arguments are left as they are.
func (i *StockItem) Update(name, description *string, retailPrice *decimal.Decimal) error {
	if retailPrice != nil && retailPrice.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Retail price cannot be negative")
	}
	if name != nil {
		if n := strings.TrimSpace(*name); n != "" {
			i.Name = n
		}
	}
	if description != nil {
		i.Description = strings.TrimSpace(*description)
	}
	if retailPrice != nil {
		i.RetailPrice = shared.RoundMoney(*retailPrice)
	}
	i.Touch()
	i.IncrementVersion()
	return nil
}

// SetRetailPrice replaces the retail price
func (i *StockItem) SetRetailPrice(price decimal.Decimal) error {
	return i.Update(nil, nil, &price)
}

// Delete moves the item to the recycle bin
func (i *StockItem) Delete(reason string, atMillis int64) error {
	if err := i.MarkDeleted(reason, atMillis); err != nil {
		return err
	}
	i.Touch()
	i.IncrementVersion()
	return nil
}

// Restore brings the item back from the recycle bin
func (i *StockItem) Restore() error {
	if err := i.Unmark(); err != nil {
		return err
	}
	i.Touch()
	i.IncrementVersion()
	return nil
}

// InventoryValue returns quantity valued at the current WAC
func (i *StockItem) InventoryValue() decimal.Decimal {
	return shared.RoundMoney(i.UnitCost.Mul(decimal.NewFromInt(i.Quantity)))
}

// Clone returns a copy that can be mutated without touching i.
// Pending domain events are not carried over.
func (i *StockItem) Clone() *StockItem {
	c := *i
	c.ClearDomainEvents()
	return &c
}

func (i *StockItem) basis() decimal.Decimal {
	if i.CostBasis.Valid {
		return i.CostBasis.Decimal
	}
	return i.UnitCost.Mul(decimal.NewFromInt(i.Quantity))
}

// scaledBasis returns the basis for newQty units at the current exact average
func (i *StockItem) scaledBasis(newQty int64) decimal.Decimal {
	if newQty == 0 {
		return decimal.Zero
	}
	if i.Quantity == 0 {
		return i.UnitCost.Mul(decimal.NewFromInt(newQty))
	}
	return i.basis().Mul(decimal.NewFromInt(newQty)).Div(decimal.NewFromInt(i.Quantity))
}
