package trade

import (
	"github.com/edumahmoud/try-meeza-crm/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypePurchase = "Purchase"

// Event type constants
const (
	EventTypePurchaseCreated = "PurchaseCreated"
	EventTypePurchasePaid    = "PurchasePaid"
)

// PurchaseCreatedEvent is raised when a receipt is recorded
type PurchaseCreatedEvent struct {
	shared.BaseDomainEvent
	SupplierID    string          `json:"supplier_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
}

// NewPurchaseCreatedEvent creates a new PurchaseCreatedEvent
func NewPurchaseCreatedEvent(p *Purchase) *PurchaseCreatedEvent {
	return &PurchaseCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseCreated, AggregateTypePurchase, p.ID),
		SupplierID:      p.SupplierID,
		TotalAmount:     p.TotalAmount,
		PaidAmount:      p.PaidAmount,
		PaymentStatus:   p.PaymentStatus,
	}
}

// PurchasePaidEvent is raised when a payment is applied to a receipt.
// Covered is the part of Amount that reduced the outstanding balance.
type PurchasePaidEvent struct {
	shared.BaseDomainEvent
	SupplierID string          `json:"supplier_id"`
	Amount     decimal.Decimal `json:"amount"`
	Covered    decimal.Decimal `json:"covered"`
	Remaining  decimal.Decimal `json:"remaining"`
}

// NewPurchasePaidEvent creates a new PurchasePaidEvent
func NewPurchasePaidEvent(p *Purchase, amount, covered decimal.Decimal) *PurchasePaidEvent {
	return &PurchasePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchasePaid, AggregateTypePurchase, p.ID),
		SupplierID:      p.SupplierID,
		Amount:          amount,
		Covered:         covered,
		Remaining:       p.RemainingAmount,
	}
}
