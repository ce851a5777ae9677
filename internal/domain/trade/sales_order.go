package trade

import (
	"fmt"
	"slices"

	"github.com/edumahmoud/try-meeza-crm/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SaleIDPrefix is the identifier prefix for sales invoices
const SaleIDPrefix = "INV"

// DiscountType is how a sale discount is expressed
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// IsValid checks if the discount type is known
func (t DiscountType) IsValid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

// Discount is a whole-invoice discount
type Discount struct {
	Type  DiscountType    `json:"type"`
	Value decimal.Decimal `json:"value"`
}

// NoDiscount returns a zero fixed discount
func NoDiscount() Discount {
	return Discount{Type: DiscountFixed, Value: decimal.Zero}
}

// Validate checks the discount bounds
func (d Discount) Validate() error {
	if d.Type == "" {
		d.Type = DiscountFixed
	}
	if !d.Type.IsValid() {
		return shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Unknown discount type %q", d.Type))
	}
	if d.Value.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Discount cannot be negative")
	}
	if d.Type == DiscountPercentage && d.Value.GreaterThan(decimal.NewFromInt(100)) {
		return shared.NewDomainError(shared.CodeInvalidInput, "Percentage discount cannot exceed 100")
	}
	return nil
}

// Amount returns the discount taken off subtotal, rounded to money scale
func (d Discount) Amount(subtotal decimal.Decimal) decimal.Decimal {
	if d.Type == DiscountPercentage {
		return shared.RoundMoney(subtotal.Mul(d.Value).Div(decimal.NewFromInt(100)))
	}
	return shared.RoundMoney(d.Value)
}

// SaleStatus is the return state of a sale
type SaleStatus string

const (
	SaleStatusCompleted SaleStatus = "completed"
	SaleStatusReturned  SaleStatus = "returned"
)

// SaleLine is one sold item. CostAtSale is the item's WAC when the sale was
// made and never changes afterwards.
type SaleLine struct {
	ItemID     string          `json:"item_id"`
	ItemName   string          `json:"item_name"`
	Quantity   int64           `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	CostAtSale decimal.Decimal `json:"cost_at_sale"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Deducted   int64           `json:"deducted"`
}

// Sale is an invoice. Totals are derived once at creation and stored.
type Sale struct {
	shared.BaseAggregateRoot
	shared.SoftDelete
	Lines          []SaleLine      `json:"lines"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Discount       Discount        `json:"discount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	NetTotal       decimal.Decimal `json:"net_total"`
	CustomerName   string          `json:"customer_name,omitempty"`
	CustomerPhone  string          `json:"customer_phone,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	Status         SaleStatus      `json:"status"`
}

// NewSale validates the lines and discount and computes the totals.
// Lines must carry ItemID, ItemName, Quantity, UnitPrice and CostAtSale.
func NewSale(lines []SaleLine, discount Discount, customerName, customerPhone, notes string) (*Sale, error) {
	if len(lines) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Sale must have at least one line")
	}
	if discount.Type == "" {
		discount.Type = DiscountFixed
	}
	if err := discount.Validate(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(lines))
	subtotal := decimal.Zero
	out := make([]SaleLine, 0, len(lines))
	for _, l := range lines {
		if l.ItemID == "" {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "Sale line item cannot be empty")
		}
		if _, dup := seen[l.ItemID]; dup {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Item %s appears more than once", l.ItemID))
		}
		seen[l.ItemID] = struct{}{}
		if l.Quantity <= 0 {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "Sale quantity must be positive")
		}
		if l.UnitPrice.IsNegative() {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "Unit price cannot be negative")
		}
		l.Subtotal = shared.RoundMoney(l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity)))
		l.Deducted = 0
		subtotal = subtotal.Add(l.Subtotal)
		out = append(out, l)
	}

	subtotal = shared.RoundMoney(subtotal)
	discountAmount := discount.Amount(subtotal)
	sale := &Sale{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(SaleIDPrefix),
		Lines:             out,
		Subtotal:          subtotal,
		Discount:          discount,
		DiscountAmount:    discountAmount,
		NetTotal:          shared.FloorZero(subtotal.Sub(discountAmount)),
		CustomerName:      customerName,
		CustomerPhone:     customerPhone,
		Notes:             notes,
		Status:            SaleStatusCompleted,
	}
	sale.AddDomainEvent(NewSaleCreatedEvent(sale))
	return sale, nil
}

// RecordDeduction stores how much stock was actually taken for a line
func (s *Sale) RecordDeduction(itemID string, applied int64) {
	if l := s.Line(itemID); l != nil {
		l.Deducted = applied
	}
}

// Line returns the line for itemID, or nil
func (s *Sale) Line(itemID string) *SaleLine {
	for i := range s.Lines {
		if s.Lines[i].ItemID == itemID {
			return &s.Lines[i]
		}
	}
	return nil
}

// RefundMultiplier is the fraction of list price the customer paid:
// NetTotal / Subtotal, or 1 when the subtotal is zero.
func (s *Sale) RefundMultiplier() decimal.Decimal {
	if !s.Subtotal.IsPositive() {
		return decimal.NewFromInt(1)
	}
	return s.NetTotal.Div(s.Subtotal)
}

// CostOfGoods returns Σ quantity x cost snapshot
func (s *Sale) CostOfGoods() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.Lines {
		total = total.Add(l.CostAtSale.Mul(decimal.NewFromInt(l.Quantity)))
	}
	return shared.RoundMoney(total)
}

// SyncStatus marks the sale returned when every line is fully returned, and
// completed otherwise. It reports whether the status changed.
func (s *Sale) SyncStatus(returned map[string]int64) bool {
	status := SaleStatusReturned
	for _, l := range s.Lines {
		if returned[l.ItemID] < l.Quantity {
			status = SaleStatusCompleted
			break
		}
	}
	if status == s.Status {
		return false
	}
	s.Status = status
	s.Touch()
	s.IncrementVersion()
	return true
}

// Delete moves the sale to the recycle bin
func (s *Sale) Delete(reason string, atMillis int64) error {
	if err := s.MarkDeleted(reason, atMillis); err != nil {
		return err
	}
	s.Touch()
	s.IncrementVersion()
	s.AddDomainEvent(NewSaleDeletedEvent(s, reason))
	return nil
}

// Restore brings the sale back from the recycle bin
func (s *Sale) Restore() error {
	if err := s.Unmark(); err != nil {
		return err
	}
	s.Touch()
	s.IncrementVersion()
	return nil
}

// Clone returns a deep copy without pending events
func (s *Sale) Clone() *Sale {
	c := *s
	c.Lines = slices.Clone(s.Lines)
	c.ClearDomainEvents()
	return &c
}
