package trade

import (
	"maps"
	"slices"

	"github.com/edumahmoud/try-meeza-crm/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PurchaseReturnIDPrefix is the identifier prefix for purchase returns
const PurchaseReturnIDPrefix = "PRT"

// PurchaseReturnLine shows both what was asked for and what was returned.
// Applied is min(Requested, Purchased, OnHand).
type PurchaseReturnLine struct {
	ItemID    string          `json:"item_id"`
	ItemName  string          `json:"item_name"`
	Requested int64           `json:"requested"`
	Purchased int64           `json:"purchased"`
	OnHand    int64           `json:"on_hand"`
	Applied   int64           `json:"applied"`
	CostPrice decimal.Decimal `json:"cost_price"`
	Value     decimal.Decimal `json:"value"`
}

// Clamped reports whether fewer units were returned than requested
func (l PurchaseReturnLine) Clamped() bool {
	return l.Applied < l.Requested
}

// PurchaseReturn is stock sent back to the supplier against one receipt.
//
// The returned value first pays down the receipt's outstanding balance
// (DebtReduction); whatever is left is cash the supplier owes the store
// (CashOwed).
type PurchaseReturn struct {
	ID                 string               `json:"id"`
	PurchaseID         string               `json:"purchase_id"`
	SupplierID         string               `json:"supplier_id"`
	Reason             string               `json:"reason"`
	Lines              []PurchaseReturnLine `json:"lines"`
	TotalReturnedValue decimal.Decimal      `json:"total_returned_value"`
	DebtReduction      decimal.Decimal      `json:"debt_reduction"`
	CashOwed           decimal.Decimal      `json:"cash_owed"`
	CreatedAt          int64                `json:"created_at"`
	Reversed           bool                 `json:"reversed"`
	ReversedAt         *int64               `json:"reversed_at,omitempty"`
}

// AppliedQuantities maps item id to the quantity actually returned
func (r *PurchaseReturn) AppliedQuantities() map[string]int64 {
	out := make(map[string]int64, len(r.Lines))
	for _, l := range r.Lines {
		if l.Applied > 0 {
			out[l.ItemID] = l.Applied
		}
	}
	return out
}

// PlanPurchaseReturn prices a return against p without mutating anything.
// onHand holds the current stock of each item on the receipt; each line is
// clamped to what was purchased and to what is still in stock.
func PlanPurchaseReturn(p *Purchase, requested map[string]int64, onHand map[string]int64, reason string) (*PurchaseReturn, error) {
	if shared.IsBlank(reason) {
		return nil, shared.ErrReasonRequired
	}
	if p.Deleted() {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Receipt has already been returned")
	}

	positive := 0
	for _, itemID := range slices.Sorted(maps.Keys(requested)) {
		if requested[itemID] <= 0 {
			continue
		}
		if p.Line(itemID) == nil {
			return nil, shared.NewNotFoundError("purchase line", itemID)
		}
		positive++
	}
	if positive == 0 {
		return nil, shared.ErrNothingToReturn
	}

	ret := &PurchaseReturn{
		ID:         shared.NewID(PurchaseReturnIDPrefix),
		PurchaseID: p.ID,
		SupplierID: p.SupplierID,
		Reason:     reason,
		Lines:      make([]PurchaseReturnLine, 0, positive),
	}
	value := decimal.Zero
	var applied int64
	for _, pl := range p.Lines {
		req := requested[pl.ItemID]
		if req <= 0 {
			continue
		}
		stock := max(0, onHand[pl.ItemID])
		qty := min(req, pl.Quantity, stock)
		lineValue := pl.CostPrice.Mul(decimal.NewFromInt(qty))
		ret.Lines = append(ret.Lines, PurchaseReturnLine{
			ItemID:    pl.ItemID,
			ItemName:  pl.ItemName,
			Requested: req,
			Purchased: pl.Quantity,
			OnHand:    stock,
			Applied:   qty,
			CostPrice: pl.CostPrice,
			Value:     shared.RoundMoney(lineValue),
		})
		value = value.Add(lineValue)
		applied += qty
	}
	if applied == 0 {
		return nil, shared.NewDomainError(shared.CodeNothingToReturn, "None of the requested items are left in stock")
	}

	ret.TotalReturnedValue = shared.RoundMoney(value)
	ret.DebtReduction = decimal.Min(ret.TotalReturnedValue, p.RemainingAmount)
	ret.CashOwed = shared.FloorZero(ret.TotalReturnedValue.Sub(ret.DebtReduction))
	return ret, nil
}

func (r PurchaseReturn) clone() PurchaseReturn {
	r.Lines = slices.Clone(r.Lines)
	return r
}
