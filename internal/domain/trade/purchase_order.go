package trade

import (
	"fmt"
	"slices"

	"github.com/edumahmoud/try-meeza-crm/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PurchaseIDPrefix is the identifier prefix for supplier receipts
const PurchaseIDPrefix = "PUR"

// PaymentStatus is how a receipt was settled when it was created
type PaymentStatus string

const (
	PaymentStatusCash   PaymentStatus = "cash"
	PaymentStatusCredit PaymentStatus = "credit"
)

// PurchaseLine is one received item
type PurchaseLine struct {
	ItemID      string              `json:"item_id"`
	ItemName    string              `json:"item_name"`
	Quantity    int64               `json:"quantity"`
	CostPrice   decimal.Decimal     `json:"cost_price"`
	RetailPrice decimal.NullDecimal `json:"retail_price"`
	Subtotal    decimal.Decimal     `json:"subtotal"`
	Notes       string              `json:"notes,omitempty"`
}

// Purchase is a supplier receipt with its own payment balance.
//
// RemainingAmount is kept at max(0, NetTotal - PaidAmount), where NetTotal is
// the receipt total less the value of active purchase returns.
type Purchase struct {
	shared.BaseAggregateRoot
	shared.SoftDelete
	SupplierID            string           `json:"supplier_id"`
	SupplierName          string           `json:"supplier_name"`
	SupplierInvoiceNumber string           `json:"supplier_invoice_number,omitempty"`
	Lines                 []PurchaseLine   `json:"lines"`
	TotalAmount           decimal.Decimal  `json:"total_amount"`
	PaidAmount            decimal.Decimal  `json:"paid_amount"`
	RemainingAmount       decimal.Decimal  `json:"remaining_amount"`
	ReturnedValue         decimal.Decimal  `json:"returned_value"`
	PaymentStatus         PaymentStatus    `json:"payment_status"`
	Returns               []PurchaseReturn `json:"returns,omitempty"`
}

// NewPurchase validates the lines and creates a receipt.
// paid must lie in [0, total].
func NewPurchase(supplierID, supplierName, invoiceNumber string, lines []PurchaseLine, paid decimal.Decimal) (*Purchase, error) {
	if supplierID == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Supplier cannot be empty")
	}
	if len(lines) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Purchase must have at least one line")
	}

	seen := make(map[string]struct{}, len(lines))
	total := decimal.Zero
	out := make([]PurchaseLine, 0, len(lines))
	for _, l := range lines {
		if l.ItemID == "" {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "Purchase line item cannot be empty")
		}
		if _, dup := seen[l.ItemID]; dup {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Item %s appears more than once", l.ItemID))
		}
		seen[l.ItemID] = struct{}{}
		if l.Quantity <= 0 {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "Purchase quantity must be positive")
		}
		if l.CostPrice.IsNegative() {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "Cost price cannot be negative")
		}
		if l.RetailPrice.Valid && l.RetailPrice.Decimal.IsNegative() {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "Retail price cannot be negative")
		}
		l.Subtotal = shared.RoundMoney(l.CostPrice.Mul(decimal.NewFromInt(l.Quantity)))
		total = total.Add(l.CostPrice.Mul(decimal.NewFromInt(l.Quantity)))
		out = append(out, l)
	}
	total = shared.RoundMoney(total)

	if paid.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Paid amount cannot be negative")
	}
	if paid.GreaterThan(total) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Paid amount cannot exceed the receipt total")
	}
	paid = shared.RoundMoney(paid)

	status := PaymentStatusCredit
	if paid.GreaterThanOrEqual(total) {
		status = PaymentStatusCash
	}

	p := &Purchase{
		BaseAggregateRoot:     shared.NewBaseAggregateRoot(PurchaseIDPrefix),
		SupplierID:            supplierID,
		SupplierName:          supplierName,
		SupplierInvoiceNumber: invoiceNumber,
		Lines:                 out,
		TotalAmount:           total,
		PaidAmount:            paid,
		RemainingAmount:       total.Sub(paid),
		ReturnedValue:         decimal.Zero,
		PaymentStatus:         status,
	}
	p.AddDomainEvent(NewPurchaseCreatedEvent(p))
	return p, nil
}

// NetTotal is the receipt total less the value of active returns
func (p *Purchase) NetTotal() decimal.Decimal {
	return p.TotalAmount.Sub(p.ReturnedValue)
}

// Line returns the line for itemID, or nil
func (p *Purchase) Line(itemID string) *PurchaseLine {
	for i := range p.Lines {
		if p.Lines[i].ItemID == itemID {
			return &p.Lines[i]
		}
	}
	return nil
}

// ApplyPayment records a payment against the receipt. Overpayment is allowed
// and drives the remaining balance to zero. It returns how much of the
// outstanding balance the payment covered.
func (p *Purchase) ApplyPayment(amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, shared.NewDomainError(shared.CodeInvalidInput, "Payment amount must be positive")
	}
	if p.Deleted() {
		return decimal.Zero, shared.NewDomainError(shared.CodeInvalidState, "Cannot pay a returned receipt")
	}
	before := p.RemainingAmount
	p.PaidAmount = p.PaidAmount.Add(amount)
	p.recalculateRemaining()
	p.Touch()
	p.IncrementVersion()

	covered := before.Sub(p.RemainingAmount)
	p.AddDomainEvent(NewPurchasePaidEvent(p, amount, covered))
	return covered, nil
}

// ActiveReturn returns the return currently applied to the receipt, or nil
func (p *Purchase) ActiveReturn() *PurchaseReturn {
	for i := len(p.Returns) - 1; i >= 0; i-- {
		if !p.Returns[i].Reversed {
			return &p.Returns[i]
		}
	}
	return nil
}

// ApplyReturn books a planned return: the returned value comes off the
// receipt balance and the receipt goes to the recycle bin.
func (p *Purchase) ApplyReturn(ret *PurchaseReturn, atMillis int64) error {
	if ret.PurchaseID != p.ID {
		return shared.NewDomainError(shared.CodeInvalidInput, "Return does not belong to this receipt")
	}
	if err := p.MarkDeleted(ret.Reason, atMillis); err != nil {
		return err
	}
	ret.CreatedAt = atMillis
	p.ReturnedValue = p.ReturnedValue.Add(ret.TotalReturnedValue)
	p.recalculateRemaining()
	p.Returns = append(p.Returns, *ret)
	p.Touch()
	p.IncrementVersion()

	p.AddDomainEvent(NewPurchaseReturnedEvent(p, ret))
	return nil
}

// ReverseReturn undoes the active return and takes the receipt out of the
// recycle bin. It returns the reversed return.
func (p *Purchase) ReverseReturn(atMillis int64) (*PurchaseReturn, error) {
	ret := p.ActiveReturn()
	if !p.Deleted() || ret == nil {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Receipt has no return to reverse")
	}
	if err := p.Unmark(); err != nil {
		return nil, err
	}
	ret.Reversed = true
	ret.ReversedAt = &atMillis
	p.ReturnedValue = shared.FloorZero(p.ReturnedValue.Sub(ret.TotalReturnedValue))
	p.recalculateRemaining()
	p.Touch()
	p.IncrementVersion()

	reversed := *ret
	p.AddDomainEvent(NewPurchaseReturnReversedEvent(p, &reversed))
	return &reversed, nil
}

// Clone returns a deep copy without pending events
func (p *Purchase) Clone() *Purchase {
	c := *p
	c.Lines = slices.Clone(p.Lines)
	c.Returns = make([]PurchaseReturn, len(p.Returns))
	for i, r := range p.Returns {
		c.Returns[i] = r.clone()
	}
	c.ClearDomainEvents()
	return &c
}

func (p *Purchase) recalculateRemaining() {
	p.RemainingAmount = shared.FloorZero(p.NetTotal().Sub(p.PaidAmount))
}
