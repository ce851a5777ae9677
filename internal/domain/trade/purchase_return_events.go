package trade

import (
	"github.com/edumahmoud/try-meeza-crm/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event type constants
const (
	EventTypePurchaseReturned       = "PurchaseReturned"
	EventTypePurchaseReturnReversed = "PurchaseReturnReversed"
)

// PurchaseReturnedEvent is raised when stock is sent back against a receipt
type PurchaseReturnedEvent struct {
	shared.BaseDomainEvent
	ReturnID           string          `json:"return_id"`
	SupplierID         string          `json:"supplier_id"`
	Reason             string          `json:"reason"`
	TotalReturnedValue decimal.Decimal `json:"total_returned_value"`
	DebtReduction      decimal.Decimal `json:"debt_reduction"`
	CashOwed           decimal.Decimal `json:"cash_owed"`
}

// NewPurchaseReturnedEvent creates a new PurchaseReturnedEvent
func NewPurchaseReturnedEvent(p *Purchase, ret *PurchaseReturn) *PurchaseReturnedEvent {
	return &PurchaseReturnedEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypePurchaseReturned, AggregateTypePurchase, p.ID),
		ReturnID:           ret.ID,
		SupplierID:         p.SupplierID,
		Reason:             ret.Reason,
		TotalReturnedValue: ret.TotalReturnedValue,
		DebtReduction:      ret.DebtReduction,
		CashOwed:           ret.CashOwed,
	}
}

// PurchaseReturnReversedEvent is raised when a returned receipt is restored
type PurchaseReturnReversedEvent struct {
	shared.BaseDomainEvent
	ReturnID           string          `json:"return_id"`
	SupplierID         string          `json:"supplier_id"`
	TotalReturnedValue decimal.Decimal `json:"total_returned_value"`
}

// NewPurchaseReturnReversedEvent creates a new PurchaseReturnReversedEvent
func NewPurchaseReturnReversedEvent(p *Purchase, ret *PurchaseReturn) *PurchaseReturnReversedEvent {
	return &PurchaseReturnReversedEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypePurchaseReturnReversed, AggregateTypePurchase, p.ID),
		ReturnID:           ret.ID,
		SupplierID:         p.SupplierID,
		TotalReturnedValue: ret.TotalReturnedValue,
	}
}
