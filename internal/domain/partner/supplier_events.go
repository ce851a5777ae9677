package partner

import (
	"github.com/edumahmoud/try-meeza-crm/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type constant for Supplier
const AggregateTypeSupplier = "Supplier"

// Event type constants for Supplier
const (
	EventTypeSupplierCreated      = "SupplierCreated"
	EventTypeSupplierDeleted      = "SupplierDeleted"
	EventTypeSupplierLedgerPosted = "SupplierLedgerPosted"
)

// SupplierCreatedEvent is published when a new supplier is created
type SupplierCreatedEvent struct {
	shared.BaseDomainEvent
	Name string `json:"name"`
}

// NewSupplierCreatedEvent creates a new SupplierCreatedEvent
func NewSupplierCreatedEvent(supplier *Supplier) *SupplierCreatedEvent {
	return &SupplierCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSupplierCreated, AggregateTypeSupplier, supplier.ID),
		Name:            supplier.Name,
	}
}

// SupplierDeletedEvent is published when a supplier goes to the recycle bin
type SupplierDeletedEvent struct {
	shared.BaseDomainEvent
	Reason string `json:"reason"`
}

// NewSupplierDeletedEvent creates a new SupplierDeletedEvent
func NewSupplierDeletedEvent(supplier *Supplier, reason string) *SupplierDeletedEvent {
	return &SupplierDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSupplierDeleted, AggregateTypeSupplier, supplier.ID),
		Reason:          reason,
	}
}

// SupplierLedgerPostedEvent is published for every new ledger entry with the
// balances after it.
type SupplierLedgerPostedEvent struct {
	shared.BaseDomainEvent
	EntryID       string          `json:"entry_id"`
	Kind          EntryKind       `json:"kind"`
	SourceID      string          `json:"source_id"`
	Amount        decimal.Decimal `json:"amount"`
	TotalDebt     decimal.Decimal `json:"total_debt"`
	CreditBalance decimal.Decimal `json:"credit_balance"`
}

// NewSupplierLedgerPostedEvent creates a new SupplierLedgerPostedEvent
func NewSupplierLedgerPostedEvent(supplier *Supplier, e *SupplierLedgerEntry) *SupplierLedgerPostedEvent {
	return &SupplierLedgerPostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSupplierLedgerPosted, AggregateTypeSupplier, supplier.ID),
		EntryID:         e.ID,
		Kind:            e.Kind,
		SourceID:        e.SourceID,
		Amount:          e.Amount,
		TotalDebt:       supplier.TotalDebt,
		CreditBalance:   supplier.CreditBalance,
	}
}
