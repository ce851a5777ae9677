package inventory

import (
	"github.com/edumahmoud/try-meeza-crm/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeStockItem = "StockItem"

// Event type constants
const (
	EventTypeStockItemAdded   = "StockItemAdded"
	EventTypeStockReceived    = "StockReceived"
	EventTypeStockDeducted    = "StockDeducted"
	EventTypeStockRestocked   = "StockRestocked"
	EventTypeStockCostChanged = "StockCostChanged"
)

// StockItemAddedEvent is raised when an item enters the catalogue
type StockItemAddedEvent struct {
	shared.BaseDomainEvent
	Code     string          `json:"code"`
	Name     string          `json:"name"`
	Quantity int64           `json:"quantity"`
	UnitCost decimal.Decimal `json:"unit_cost"`
}

// NewStockItemAddedEvent creates a new StockItemAddedEvent
func NewStockItemAddedEvent(item *StockItem) *StockItemAddedEvent {
	return &StockItemAddedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockItemAdded, AggregateTypeStockItem, item.ID),
		Code:            item.Code,
		Name:            item.Name,
		Quantity:        item.Quantity,
		UnitCost:        item.UnitCost,
	}
}

// StockReceivedEvent is raised when stock arrives on a receipt
type StockReceivedEvent struct {
	shared.BaseDomainEvent
	Quantity      int64           `json:"quantity"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	QuantityAfter int64           `json:"quantity_after"`
	CostAfter     decimal.Decimal `json:"cost_after"`
}

// NewStockReceivedEvent creates a new StockReceivedEvent
func NewStockReceivedEvent(item *StockItem, quantity int64, unitCost decimal.Decimal) *StockReceivedEvent {
	return &StockReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockReceived, AggregateTypeStockItem, item.ID),
		Quantity:        quantity,
		UnitCost:        unitCost,
		QuantityAfter:   item.Quantity,
		CostAfter:       item.UnitCost,
	}
}

// StockDeductedEvent is raised when stock leaves, either sold or returned to a supplier.
// Applied is lower than Requested when the deduction was clamped at zero.
type StockDeductedEvent struct {
	shared.BaseDomainEvent
	Requested     int64  `json:"requested"`
	Applied       int64  `json:"applied"`
	Source        string `json:"source"`
	QuantityAfter int64  `json:"quantity_after"`
}

// NewStockDeductedEvent creates a new StockDeductedEvent
func NewStockDeductedEvent(item *StockItem, requested, applied int64, source string) *StockDeductedEvent {
	return &StockDeductedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockDeducted, AggregateTypeStockItem, item.ID),
		Requested:       requested,
		Applied:         applied,
		Source:          source,
		QuantityAfter:   item.Quantity,
	}
}

// Clamped reports whether fewer units were removed than requested
func (e *StockDeductedEvent) Clamped() bool {
	return e.Applied < e.Requested
}

// StockRestockedEvent is raised when units come back without a cost change
type StockRestockedEvent struct {
	shared.BaseDomainEvent
	Quantity      int64  `json:"quantity"`
	Source        string `json:"source"`
	QuantityAfter int64  `json:"quantity_after"`
}

// NewStockRestockedEvent creates a new StockRestockedEvent
func NewStockRestockedEvent(item *StockItem, quantity int64, source string) *StockRestockedEvent {
	return &StockRestockedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockRestocked, AggregateTypeStockItem, item.ID),
		Quantity:        quantity,
		Source:          source,
		QuantityAfter:   item.Quantity,
	}
}

// StockCostChangedEvent is raised when a receipt moves the weighted-average cost
type StockCostChangedEvent struct {
	shared.BaseDomainEvent
	OldCost decimal.Decimal `json:"old_cost"`
	NewCost decimal.Decimal `json:"new_cost"`
}

// NewStockCostChangedEvent creates a new StockCostChangedEvent
func NewStockCostChangedEvent(item *StockItem, oldCost, newCost decimal.Decimal) *StockCostChangedEvent {
	return &StockCostChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockCostChanged, AggregateTypeStockItem, item.ID),
		OldCost:         oldCost,
		NewCost:         newCost,
	}
}
