package trade

import (
	"github.com/edumahmoud/try-meeza-crm/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeSale = "Sale"

// Event type constants
const (
	EventTypeSaleCreated = "SaleCreated"
	EventTypeSaleDeleted = "SaleDeleted"
)

// SaleLineInfo represents line information for events
type SaleLineInfo struct {
	ItemID     string          `json:"item_id"`
	Quantity   int64           `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	CostAtSale decimal.Decimal `json:"cost_at_sale"`
}

// SaleCreatedEvent is raised when a sale is recorded
type SaleCreatedEvent struct {
	shared.BaseDomainEvent
	Subtotal decimal.Decimal `json:"subtotal"`
	NetTotal decimal.Decimal `json:"net_total"`
	Lines    []SaleLineInfo  `json:"lines"`
}

// NewSaleCreatedEvent creates a new SaleCreatedEvent
func NewSaleCreatedEvent(sale *Sale) *SaleCreatedEvent {
	lines := make([]SaleLineInfo, len(sale.Lines))
	for i, l := range sale.Lines {
		lines[i] = SaleLineInfo{
			ItemID:     l.ItemID,
			Quantity:   l.Quantity,
			UnitPrice:  l.UnitPrice,
			CostAtSale: l.CostAtSale,
		}
	}
	return &SaleCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleCreated, AggregateTypeSale, sale.ID),
		Subtotal:        sale.Subtotal,
		NetTotal:        sale.NetTotal,
		Lines:           lines,
	}
}

// SaleDeletedEvent is raised when a sale goes to the recycle bin
type SaleDeletedEvent struct {
	shared.BaseDomainEvent
	Reason string `json:"reason"`
}

// NewSaleDeletedEvent creates a new SaleDeletedEvent
func NewSaleDeletedEvent(sale *Sale, reason string) *SaleDeletedEvent {
	return &SaleDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleDeleted, AggregateTypeSale, sale.ID),
		Reason:          reason,
	}
}
