package trade

import (
	"fmt"
	"maps"
	"slices"

	"github.com/edumahmoud/try-meeza-crm/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SaleReturnIDPrefix is the identifier prefix for sale returns
const SaleReturnIDPrefix = "RET"

// CodeReturnQuantityExceeded is the error code for over-cap return requests
const CodeReturnQuantityExceeded = "RETURN_QUANTITY_EXCEEDED"

// ErrReturnQuantityExceeded matches every ReturnQuantityExceededError
var ErrReturnQuantityExceeded = shared.NewDomainError(CodeReturnQuantityExceeded, "Return quantity exceeds what is left on the sale")

// ReturnQuantityExceededError reports a request for more units than the sale
// still has unreturned. Nothing is mutated when it is returned.
type ReturnQuantityExceededError struct {
	ItemID    string
	Requested int64
	Available int64
}

// Error implements the error interface
func (e *ReturnQuantityExceededError) Error() string {
	return fmt.Sprintf("cannot return %d of item %s: only %d left on the sale", e.Requested, e.ItemID, e.Available)
}

// Unwrap exposes ErrReturnQuantityExceeded for errors.Is and errors.As
func (e *ReturnQuantityExceededError) Unwrap() error {
	return ErrReturnQuantityExceeded
}

// SaleReturnLine is one returned item. CostAtSale is copied from the sale line.
type SaleReturnLine struct {
	ItemID       string          `json:"item_id"`
	ItemName     string          `json:"item_name"`
	Quantity     int64           `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
	CostAtSale   decimal.Decimal `json:"cost_at_sale"`
}

// SaleReturn is a customer return against one sale
type SaleReturn struct {
	shared.BaseAggregateRoot
	shared.SoftDelete
	SaleID      string           `json:"sale_id"`
	Lines       []SaleReturnLine `json:"lines"`
	TotalRefund decimal.Decimal  `json:"total_refund"`
	// CompletesSale is set when this return brought every line to its sold quantity
	CompletesSale bool `json:"completes_sale"`
}

// Returnable is how much of one sale line can still be returned
type Returnable struct {
	ItemID    string          `json:"item_id"`
	ItemName  string          `json:"item_name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Sold      int64           `json:"sold"`
	Returned  int64           `json:"returned"`
	Available int64           `json:"available"`
}

// ReturnedQuantities sums returned quantities per item over the active
// returns of saleID. The return with id exclude is skipped.
func ReturnedQuantities(saleID string, returns []*SaleReturn, exclude string) map[string]int64 {
	out := make(map[string]int64)
	for _, r := range returns {
		if !r.countsFor(saleID, exclude) {
			continue
		}
		for _, l := range r.Lines {
			out[l.ItemID] += l.Quantity
		}
	}
	return out
}

// RefundedTotal sums the refunds of the active returns of saleID
func RefundedTotal(saleID string, returns []*SaleReturn, exclude string) decimal.Decimal {
	total := decimal.Zero
	for _, r := range returns {
		if r.countsFor(saleID, exclude) {
			total = total.Add(r.TotalRefund)
		}
	}
	return total
}

// ReturnableQuantities lists sold, returned and available quantities per line
func ReturnableQuantities(sale *Sale, returns []*SaleReturn) []Returnable {
	returned := ReturnedQuantities(sale.ID, returns, "")
	out := make([]Returnable, 0, len(sale.Lines))
	for _, l := range sale.Lines {
		r := returned[l.ItemID]
		out = append(out, Returnable{
			ItemID:    l.ItemID,
			ItemName:  l.ItemName,
			UnitPrice: l.UnitPrice,
			Sold:      l.Quantity,
			Returned:  r,
			Available: max(0, l.Quantity-r),
		})
	}
	return out
}

// NewSaleReturn prices a return of requested quantities against sale.
//
// Every unit is refunded at its unit price times the sale's refund
// multiplier, rounded per line. No return refunds more than what is left of
// the net total after earlier refunds, and the return that brings every line
// to its sold quantity refunds exactly that remainder. Rounding differences
// are moved onto the lines from the last one backwards, never below zero.
func NewSaleReturn(sale *Sale, prior []*SaleReturn, requested map[string]int64) (*SaleReturn, error) {
	if sale.Deleted() {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Cannot return items of a deleted sale")
	}
	positive := 0
	for _, itemID := range slices.Sorted(maps.Keys(requested)) {
		qty := requested[itemID]
		if qty < 0 {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "Return quantity cannot be negative")
		}
		if qty == 0 {
			continue
		}
		if sale.Line(itemID) == nil {
			return nil, shared.NewNotFoundError("sale line", itemID)
		}
		positive++
	}
	if positive == 0 {
		return nil, shared.ErrNothingToReturn
	}

	already := ReturnedQuantities(sale.ID, prior, "")
	multiplier := sale.RefundMultiplier()
	completes := true
	lines := make([]SaleReturnLine, 0, positive)
	total := decimal.Zero

	for _, sl := range sale.Lines {
		qty := requested[sl.ItemID]
		available := sl.Quantity - already[sl.ItemID]
		if qty > available {
			return nil, &ReturnQuantityExceededError{ItemID: sl.ItemID, Requested: qty, Available: max(0, available)}
		}
		if already[sl.ItemID]+qty < sl.Quantity {
			completes = false
		}
		if qty == 0 {
			continue
		}
		refund := shared.RoundMoney(sl.UnitPrice.Mul(decimal.NewFromInt(qty)).Mul(multiplier))
		lines = append(lines, SaleReturnLine{
			ItemID:       sl.ItemID,
			ItemName:     sl.ItemName,
			Quantity:     qty,
			UnitPrice:    sl.UnitPrice,
			RefundAmount: refund,
			CostAtSale:   sl.CostAtSale,
		})
		total = total.Add(refund)
	}

	remaining := shared.FloorZero(sale.NetTotal.Sub(RefundedTotal(sale.ID, prior, "")))
	switch {
	case completes:
		total = settleRefund(lines, total, remaining)
	case total.GreaterThan(remaining):
		total = settleRefund(lines, total, remaining)
	}

	ret := &SaleReturn{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(SaleReturnIDPrefix),
		SaleID:            sale.ID,
		Lines:             lines,
		TotalRefund:       total,
		CompletesSale:     completes,
	}
	ret.AddDomainEvent(NewSaleReturnCreatedEvent(ret))
	return ret, nil
}

// settleRefund moves the line refunds from total to target and returns
// target. An increase lands on the last line; a decrease is taken from the
// last line backwards so that no line refund goes negative.
func settleRefund(lines []SaleReturnLine, total, target decimal.Decimal) decimal.Decimal {
	diff := target.Sub(total)
	if diff.IsPositive() {
		last := &lines[len(lines)-1]
		last.RefundAmount = last.RefundAmount.Add(diff)
		return target
	}
	excess := diff.Neg()
	for i := len(lines) - 1; i >= 0 && excess.IsPositive(); i-- {
		take := decimal.Min(lines[i].RefundAmount, excess)
		lines[i].RefundAmount = lines[i].RefundAmount.Sub(take)
		excess = excess.Sub(take)
	}
	return target
}

// CheckRestorable re-checks the return caps against the other active returns
func (r *SaleReturn) CheckRestorable(sale *Sale, others []*SaleReturn) error {
	if sale.Deleted() {
		return shared.NewDomainError(shared.CodeInvalidState, "Cannot restore a return of a deleted sale")
	}
	returned := ReturnedQuantities(sale.ID, others, r.ID)
	for _, l := range r.Lines {
		sl := sale.Line(l.ItemID)
		if sl == nil {
			return shared.NewNotFoundError("sale line", l.ItemID)
		}
		if available := sl.Quantity - returned[l.ItemID]; l.Quantity > available {
			return &ReturnQuantityExceededError{ItemID: l.ItemID, Requested: l.Quantity, Available: max(0, available)}
		}
	}
	return nil
}

// Delete moves the return to the recycle bin
func (r *SaleReturn) Delete(reason string, atMillis int64) error {
	if err := r.MarkDeleted(reason, atMillis); err != nil {
		return err
	}
	r.Touch()
	r.IncrementVersion()
	r.AddDomainEvent(NewSaleReturnDeletedEvent(r, reason))
	return nil
}

// Restore brings the return back. Call CheckRestorable first.
func (r *SaleReturn) Restore() error {
	if err := r.Unmark(); err != nil {
		return err
	}
	r.Touch()
	r.IncrementVersion()
	r.AddDomainEvent(NewSaleReturnRestoredEvent(r))
	return nil
}

// Clone returns a deep copy without pending events
func (r *SaleReturn) Clone() *SaleReturn {
	c := *r
	c.Lines = slices.Clone(r.Lines)
	c.ClearDomainEvents()
	return &c
}

func (r *SaleReturn) countsFor(saleID, exclude string) bool {
	return r.SaleID == saleID && !r.Deleted() && (exclude == "" || r.ID != exclude)
}
