package trade

import (
	"github.com/edumahmoud/try-meeza-crm/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeSaleReturn = "SaleReturn"

// Event type constants
const (
	EventTypeSaleReturnCreated  = "SaleReturnCreated"
	EventTypeSaleReturnDeleted  = "SaleReturnDeleted"
	EventTypeSaleReturnRestored = "SaleReturnRestored"
)

// SaleReturnCreatedEvent is raised when a customer return is recorded
type SaleReturnCreatedEvent struct {
	shared.BaseDomainEvent
	SaleID        string          `json:"sale_id"`
	TotalRefund   decimal.Decimal `json:"total_refund"`
	CompletesSale bool            `json:"completes_sale"`
}

// NewSaleReturnCreatedEvent creates a new SaleReturnCreatedEvent
func NewSaleReturnCreatedEvent(r *SaleReturn) *SaleReturnCreatedEvent {
	return &SaleReturnCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleReturnCreated, AggregateTypeSaleReturn, r.ID),
		SaleID:          r.SaleID,
		TotalRefund:     r.TotalRefund,
		CompletesSale:   r.CompletesSale,
	}
}

// SaleReturnDeletedEvent is raised when a return is voided
type SaleReturnDeletedEvent struct {
	shared.BaseDomainEvent
	SaleID string `json:"sale_id"`
	Reason string `json:"reason"`
}

// NewSaleReturnDeletedEvent creates a new SaleReturnDeletedEvent
func NewSaleReturnDeletedEvent(r *SaleReturn, reason string) *SaleReturnDeletedEvent {
	return &SaleReturnDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleReturnDeleted, AggregateTypeSaleReturn, r.ID),
		SaleID:          r.SaleID,
		Reason:          reason,
	}
}

// SaleReturnRestoredEvent is raised when a voided return is reinstated
type SaleReturnRestoredEvent struct {
	shared.BaseDomainEvent
	SaleID string `json:"sale_id"`
}

// NewSaleReturnRestoredEvent creates a new SaleReturnRestoredEvent
func NewSaleReturnRestoredEvent(r *SaleReturn) *SaleReturnRestoredEvent {
	return &SaleReturnRestoredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleReturnRestored, AggregateTypeSaleReturn, r.ID),
		SaleID:          r.SaleID,
	}
}
