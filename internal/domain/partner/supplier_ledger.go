package partner

import (
	"github.com/edumahmoud/try-meeza-crm/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// LedgerEntryIDPrefix is the identifier prefix for supplier ledger entries
const LedgerEntryIDPrefix = "LED"

// EntryKind is what caused a supplier ledger entry
type EntryKind string

const (
	EntryOpening        EntryKind = "opening_balance"
	EntryPurchase       EntryKind = "purchase"
	EntryPayment        EntryKind = "payment"
	EntryPurchaseReturn EntryKind = "purchase_return"
	EntryCreditRefund   EntryKind = "credit_refund"
	EntryCreditOffset   EntryKind = "credit_offset"
)

// IsValid checks if the kind is known
func (k EntryKind) IsValid() bool {
	switch k {
	case EntryOpening, EntryPurchase, EntryPayment, EntryPurchaseReturn, EntryCreditRefund, EntryCreditOffset:
		return true
	}
	return false
}

// SupplierLedgerEntry is an immutable record of one change to a supplier's
// balances. Deltas hold what was actually applied. An entry is never edited
// again except to flag it reversed, which drops it from the fold.
type SupplierLedgerEntry struct {
	ID             string          `json:"id"`
	SupplierID     string          `json:"supplier_id"`
	Kind           EntryKind       `json:"kind"`
	SourceID       string          `json:"source_id"`
	Amount         decimal.Decimal `json:"amount"`
	DeltaSupplied  decimal.Decimal `json:"delta_supplied"`
	DeltaPaid      decimal.Decimal `json:"delta_paid"`
	DeltaDebt      decimal.Decimal `json:"delta_debt"`
	DeltaCredit    decimal.Decimal `json:"delta_credit"`
	Timestamp      int64           `json:"timestamp"`
	Reversed       bool            `json:"reversed"`
	ReversalReason string          `json:"reversal_reason,omitempty"`
	ReversedAt     *int64          `json:"reversed_at,omitempty"`
}

func newLedgerEntry(supplierID string, kind EntryKind, sourceID string, amount decimal.Decimal, atMillis int64) *SupplierLedgerEntry {
	return &SupplierLedgerEntry{
		ID:            shared.NewID(LedgerEntryIDPrefix),
		SupplierID:    supplierID,
		Kind:          kind,
		SourceID:      sourceID,
		Amount:        amount,
		DeltaSupplied: decimal.Zero,
		DeltaPaid:     decimal.Zero,
		DeltaDebt:     decimal.Zero,
		DeltaCredit:   decimal.Zero,
		Timestamp:     atMillis,
	}
}

// NewOpeningEntry carries balances of a supplier that has no ledger history,
// as happens for imported records. Debt and credit are rebuilt from
// supplied - paid.
func NewOpeningEntry(s *Supplier, atMillis int64) *SupplierLedgerEntry {
	e := newLedgerEntry(s.ID, EntryOpening, s.ID, s.TotalSupplied, atMillis)
	e.DeltaSupplied = s.TotalSupplied
	e.DeltaPaid = s.TotalPaid
	net := s.TotalSupplied.Sub(s.TotalPaid)
	if net.IsNegative() {
		e.DeltaCredit = net.Neg()
	} else {
		e.DeltaDebt = net
	}
	return e
}

// Balanced reports whether ΔDebt - ΔCredit == ΔSupplied - ΔPaid
func (e *SupplierLedgerEntry) Balanced() bool {
	return e.DeltaDebt.Sub(e.DeltaCredit).Equal(e.DeltaSupplied.Sub(e.DeltaPaid))
}

// Reverse flags the entry so it no longer counts towards the totals
func (e *SupplierLedgerEntry) Reverse(reason string, atMillis int64) error {
	if e.Reversed {
		return shared.NewDomainError(shared.CodeInvalidState, "Ledger entry is already reversed")
	}
	e.Reversed = true
	e.ReversalReason = reason
	e.ReversedAt = &atMillis
	return nil
}

// Fold derives a supplier's totals from the non-reversed entries that
// belong to it, applied in ledger order and normalised after each entry.
func Fold(supplierID string, entries []SupplierLedgerEntry) Totals {
	t := ZeroTotals()
	for i := range entries {
		e := &entries[i]
		if e.SupplierID != supplierID || e.Reversed {
			continue
		}
		t = t.Add(e).Normalize()
	}
	return t
}

// StatementLine is one entry with the balances after it
type StatementLine struct {
	Entry   SupplierLedgerEntry `json:"entry"`
	Running Totals              `json:"running"`
}

// Statement lists a supplier's entries in ledger order with running totals.
// Reversed entries are listed but leave the running totals unchanged.
func Statement(supplierID string, entries []SupplierLedgerEntry) []StatementLine {
	lines := make([]StatementLine, 0)
	running := ZeroTotals()
	for i := range entries {
		e := &entries[i]
		if e.SupplierID != supplierID {
			continue
		}
		if !e.Reversed {
			running = running.Add(e).Normalize()
		}
		lines = append(lines, StatementLine{Entry: *e, Running: running})
	}
	return lines
}

// FindEntry returns the index of the non-reversed entry with the given kind
// and source, or -1
func FindEntry(entries []SupplierLedgerEntry, kind EntryKind, sourceID string) int {
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Kind == kind && entries[i].SourceID == sourceID && !entries[i].Reversed {
			return i
		}
	}
	return -1
}
