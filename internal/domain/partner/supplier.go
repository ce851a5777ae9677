package partner

import (
	"strings"
	"unicode/utf8"

	"github.com/edumahmoud/try-meeza-crm/internal/domain/shared"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// SupplierIDPrefix is the identifier prefix for suppliers
const SupplierIDPrefix = "SUP"

// Supplier error codes
const (
	CodeSupplierHasDebt    = "SUPPLIER_HAS_DEBT"
	CodeSupplierHasCredit  = "SUPPLIER_HAS_CREDIT"
	CodeInsufficientCredit = "INSUFFICIENT_CREDIT"
)

// DefaultDeletionReason is recorded when a supplier is deleted without a reason
const DefaultDeletionReason = "supplier removed"

// SettleMode is how a supplier credit is cleared
type SettleMode string

const (
	// SettleRefund means the supplier paid the credit back in cash
	SettleRefund SettleMode = "refund"
	// SettleOffset means the credit was used against outstanding debt
	SettleOffset SettleMode = "offset"
)

// IsValid checks if the mode is known
func (m SettleMode) IsValid() bool {
	return m == SettleRefund || m == SettleOffset
}

// Totals are a supplier's running balances.
// Debt - Credit == Supplied - Paid always holds.
type Totals struct {
	Supplied decimal.Decimal `json:"total_supplied"`
	Paid     decimal.Decimal `json:"total_paid"`
	Debt     decimal.Decimal `json:"total_debt"`
	Credit   decimal.Decimal `json:"credit_balance"`
}

// ZeroTotals returns all-zero totals
func ZeroTotals() Totals {
	return Totals{Supplied: decimal.Zero, Paid: decimal.Zero, Debt: decimal.Zero, Credit: decimal.Zero}
}

// Add applies the deltas of e
func (t Totals) Add(e *SupplierLedgerEntry) Totals {
	return Totals{
		Supplied: t.Supplied.Add(e.DeltaSupplied),
		Paid:     t.Paid.Add(e.DeltaPaid),
		Debt:     t.Debt.Add(e.DeltaDebt),
		Credit:   t.Credit.Add(e.DeltaCredit),
	}
}

// Normalize moves a negative debt into credit and a negative credit into
// debt. Debt - Credit is unchanged.
func (t Totals) Normalize() Totals {
	if t.Debt.IsNegative() {
		t.Credit = t.Credit.Sub(t.Debt)
		t.Debt = decimal.Zero
	}
	if t.Credit.IsNegative() {
		t.Debt = t.Debt.Sub(t.Credit)
		t.Credit = decimal.Zero
	}
	return t
}

// Equal compares all four balances
func (t Totals) Equal(o Totals) bool {
	return t.Supplied.Equal(o.Supplied) && t.Paid.Equal(o.Paid) &&
		t.Debt.Equal(o.Debt) && t.Credit.Equal(o.Credit)
}

// Balanced reports whether Debt - Credit == Supplied - Paid
func (t Totals) Balanced() bool {
	return t.Debt.Sub(t.Credit).Equal(t.Supplied.Sub(t.Paid))
}

// Supplier is the aggregate root for a vendor. Its totals are a snapshot of
// the fold of its ledger entries.
type Supplier struct {
	shared.BaseAggregateRoot
	shared.SoftDelete
	Name          string          `json:"name"`
	Phone         string          `json:"phone,omitempty"`
	TaxNumber     string          `json:"tax_number,omitempty"`
	TotalSupplied decimal.Decimal `json:"total_supplied"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	TotalDebt     decimal.Decimal `json:"total_debt"`
	CreditBalance decimal.Decimal `json:"credit_balance"`
}

// NewSupplier creates a supplier with zero balances
func NewSupplier(name, phone, taxNumber string) (*Supplier, error) {
	name = strings.TrimSpace(name)
	if err := validateSupplierName(name); err != nil {
		return nil, err
	}
	s := &Supplier{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(SupplierIDPrefix),
		Name:              name,
		Phone:             strings.TrimSpace(phone),
		TaxNumber:         strings.TrimSpace(taxNumber),
	}
	s.setTotals(ZeroTotals())
	s.AddDomainEvent(NewSupplierCreatedEvent(s))
	return s, nil
}

// NormalizeName folds case and composes Unicode so that names typed
// differently compare equal.
func NormalizeName(name string) string {
	folded := cases.Fold().String(strings.Join(strings.Fields(name), " "))
	return norm.NFC.String(folded)
}

// SameName reports whether the supplier is called name
func (s *Supplier) SameName(name string) bool {
	return NormalizeName(s.Name) == NormalizeName(name)
}

// Totals returns the current balances
func (s *Supplier) Totals() Totals {
	return Totals{Supplied: s.TotalSupplied, Paid: s.TotalPaid, Debt: s.TotalDebt, Credit: s.CreditBalance}
}

// RecordPurchase books a receipt: supplied += total, paid += paid,
// debt += total - paid.
func (s *Supplier) RecordPurchase(purchaseID string, total, paid decimal.Decimal, atMillis int64) (*SupplierLedgerEntry, error) {
	if err := s.requireActive(); err != nil {
		return nil, err
	}
	if total.IsNegative() || paid.IsNegative() || paid.GreaterThan(total) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Purchase amounts are out of range")
	}
	e := newLedgerEntry(s.ID, EntryPurchase, purchaseID, total, atMillis)
	e.DeltaSupplied = total
	e.DeltaPaid = paid
	e.DeltaDebt = total.Sub(paid)
	return s.book(e), nil
}

// RecordPayment books a payment. Debt drops by at most what is owed and any
// excess becomes credit. Paid always rises by the full amount.
func (s *Supplier) RecordPayment(paymentID string, amount decimal.Decimal, atMillis int64) (*SupplierLedgerEntry, error) {
	if err := s.requireActive(); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Payment amount must be positive")
	}
	covered := decimal.Min(amount, shared.FloorZero(s.TotalDebt))
	e := newLedgerEntry(s.ID, EntryPayment, paymentID, amount, atMillis)
	e.DeltaPaid = amount
	e.DeltaDebt = covered.Neg()
	e.DeltaCredit = amount.Sub(covered)
	return s.book(e), nil
}

// RecordPurchaseReturn books returned stock worth value. debtReduction is the
// part the receipt balance absorbed; everything else becomes credit.
// Supplied and debt never drop below zero.
func (s *Supplier) RecordPurchaseReturn(returnID string, value, debtReduction decimal.Decimal, atMillis int64) (*SupplierLedgerEntry, error) {
	if !value.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Returned value must be positive")
	}
	supplied := decimal.Min(value, shared.FloorZero(s.TotalSupplied))
	reduced := decimal.Min(shared.FloorZero(debtReduction), shared.FloorZero(s.TotalDebt), supplied)
	e := newLedgerEntry(s.ID, EntryPurchaseReturn, returnID, value, atMillis)
	e.DeltaSupplied = supplied.Neg()
	e.DeltaDebt = reduced.Neg()
	e.DeltaCredit = supplied.Sub(reduced)
	return s.book(e), nil
}

// SettleCredit clears amount of the supplier's credit
func (s *Supplier) SettleCredit(settlementID string, amount decimal.Decimal, mode SettleMode, atMillis int64) (*SupplierLedgerEntry, error) {
	if !mode.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Unknown settlement mode")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Settlement amount must be positive")
	}
	if amount.GreaterThan(s.CreditBalance) {
		return nil, shared.NewDomainError(CodeInsufficientCredit, "Settlement exceeds the supplier credit")
	}

	var e *SupplierLedgerEntry
	switch mode {
	case SettleRefund:
		e = newLedgerEntry(s.ID, EntryCreditRefund, settlementID, amount, atMillis)
		e.DeltaCredit = amount.Neg()
		e.DeltaPaid = amount.Neg()
	case SettleOffset:
		if amount.GreaterThan(s.TotalDebt) {
			return nil, shared.NewDomainError(CodeInsufficientCredit, "Offset exceeds the outstanding debt")
		}
		e = newLedgerEntry(s.ID, EntryCreditOffset, settlementID, amount, atMillis)
		e.DeltaCredit = amount.Neg()
		e.DeltaDebt = amount.Neg()
	}
	return s.book(e), nil
}

// Refresh rewrites the balances from the supplier's ledger entries
func (s *Supplier) Refresh(entries []SupplierLedgerEntry) {
	next := Fold(s.ID, entries)
	if next.Equal(s.Totals()) {
		return
	}
	s.setTotals(next)
	s.Touch()
	s.IncrementVersion()
}

// Update changes contact details. Empty arguments leave fields as they are.
func (s *Supplier) Update(name, phone, taxNumber string) error {
	if name = strings.TrimSpace(name); name != "" {
		if err := validateSupplierName(name); err != nil {
			return err
		}
		s.Name = name
	}
	if phone != "" {
		s.Phone = strings.TrimSpace(phone)
	}
	if taxNumber != "" {
		s.TaxNumber = strings.TrimSpace(taxNumber)
	}
	s.Touch()
	s.IncrementVersion()
	return nil
}

// Delete moves the supplier to the recycle bin. A supplier that owes or is
// owed money cannot be deleted.
func (s *Supplier) Delete(reason string, atMillis int64) error {
	if s.TotalDebt.IsPositive() {
		return shared.NewDomainError(CodeSupplierHasDebt, "Supplier has outstanding debt")
	}
	if s.CreditBalance.IsPositive() {
		return shared.NewDomainError(CodeSupplierHasCredit, "Supplier still owes the store a credit")
	}
	if shared.IsBlank(reason) {
		reason = DefaultDeletionReason
	}
	if err := s.MarkDeleted(reason, atMillis); err != nil {
		return err
	}
	s.Touch()
	s.IncrementVersion()
	s.AddDomainEvent(NewSupplierDeletedEvent(s, reason))
	return nil
}

// Restore brings the supplier back. Balances are derived from the ledger,
// so nothing has to be re-added.
func (s *Supplier) Restore() error {
	if err := s.Unmark(); err != nil {
		return err
	}
	s.Touch()
	s.IncrementVersion()
	return nil
}

// Clone returns a copy without pending events
func (s *Supplier) Clone() *Supplier {
	c := *s
	c.ClearDomainEvents()
	return &c
}

func (s *Supplier) book(e *SupplierLedgerEntry) *SupplierLedgerEntry {
	s.setTotals(s.Totals().Add(e).Normalize())
	s.Touch()
	s.IncrementVersion()
	s.AddDomainEvent(NewSupplierLedgerPostedEvent(s, e))
	return e
}

func (s *Supplier) setTotals(t Totals) {
	s.TotalSupplied = t.Supplied
	s.TotalPaid = t.Paid
	s.TotalDebt = t.Debt
	s.CreditBalance = t.Credit
}

func (s *Supplier) requireActive() error {
	if s.Deleted() {
		return shared.NewDomainError(shared.CodeInvalidState, "Supplier is deleted")
	}
	return nil
}

func validateSupplierName(name string) error {
	if name == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Supplier name cannot be empty")
	}
	if utf8.RuneCountInString(name) > 200 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Supplier name cannot exceed 200 characters")
	}
	return nil
}
