package ledger

import (
	"context"
	"maps"
	"slices"

	"github.com/edumahmoud/try-meeza-crm/internal/domain/inventory"
	"github.com/edumahmoud/try-meeza-crm/internal/domain/partner"
	"github.com/edumahmoud/try-meeza-crm/internal/domain/shared"
	"github.com/edumahmoud/try-meeza-crm/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// purchaseRestoredReason is recorded on ledger entries undone by RestorePurchase
const purchaseRestoredReason = "purchase restored"

// CreatePurchase books a supplier receipt. Existing items are received at the
// line cost; lines without an item create one. The supplier is charged the
// receipt total and credited what was paid.
func (s *Service) CreatePurchase(ctx context.Context, req CreatePurchaseRequest) (*PurchaseResult, error) {
	var out *PurchaseResult
	err := s.execute(ctx, "create_purchase", func(t *tx) error {
		supplier, err := t.supplier(req.SupplierID)
		if err != nil {
			return err
		}
		if supplier.Deleted() {
			return shared.NewDomainError(shared.CodeInvalidState, "Supplier is deleted")
		}

		result := &PurchaseResult{}
		lines := make([]trade.PurchaseLine, 0, len(req.Lines))
		for _, l := range req.Lines {
			pl := trade.PurchaseLine{
				ItemID:    l.ItemID,
				ItemName:  l.Name,
				Quantity:  l.Quantity,
				CostPrice: l.CostPrice,
				Notes:     l.Notes,
			}
			if l.RetailPrice != nil {
				pl.RetailPrice = decimal.NewNullDecimal(*l.RetailPrice)
			}
			if l.Quantity <= 0 {
				return shared.NewDomainError(shared.CodeInvalidInput, "Purchase quantity must be positive")
			}

			if l.ItemID == "" {
				retail := decimal.Zero
				if l.RetailPrice != nil {
					retail = *l.RetailPrice
				}
				it, err := t.newItem(l.Name, l.Notes, l.CostPrice, retail, l.Quantity)
				if err != nil {
					return err
				}
				pl.ItemID, pl.ItemName = it.ID, it.Name
				result.Created = append(result.Created, it)
			} else {
				it, err := t.activeItem(l.ItemID)
				if err != nil {
					return err
				}
				if err := it.Receive(l.Quantity, l.CostPrice); err != nil {
					return err
				}
				if l.RetailPrice != nil {
					if err := it.SetRetailPrice(*l.RetailPrice); err != nil {
						return err
					}
				}
				pl.ItemName = it.Name
			}
			lines = append(lines, pl)
		}

		p, err := trade.NewPurchase(supplier.ID, supplier.Name, req.SupplierInvoiceNumber, lines, req.PaidAmount)
		if err != nil {
			return err
		}
		entry, err := supplier.RecordPurchase(p.ID, p.TotalAmount, p.PaidAmount, t.now)
		if err != nil {
			return err
		}
		t.post(supplier, entry)
		t.purchases.add(p)

		for i, it := range result.Created {
			result.Created[i] = it.Clone()
		}
		result.Purchase = p.Clone()
		result.Supplier = supplier.Clone()
		result.Entry = entry
		out = result
		return nil
	})
	return out, err
}

// ReturnPurchase sends stock back against a receipt. Each line is clamped to
// what was bought and what is still on hand. The returned value pays down
// the receipt balance first and the rest becomes supplier credit.
func (s *Service) ReturnPurchase(ctx context.Context, req ReturnPurchaseRequest) (*PurchaseReturnResult, error) {
	var out *PurchaseReturnResult
	err := s.execute(ctx, "return_purchase", func(t *tx) error {
		p, err := t.purchase(req.PurchaseID)
		if err != nil {
			return err
		}
		supplier, err := t.supplier(p.SupplierID)
		if err != nil {
			return err
		}

		onHand := make(map[string]int64, len(p.Lines))
		for _, l := range p.Lines {
			if it, ok := t.items.peek(l.ItemID); ok {
				onHand[l.ItemID] = it.Quantity
			}
		}
		ret, err := trade.PlanPurchaseReturn(p, toQuantities(req.Lines), onHand, req.Reason)
		if err != nil {
			return err
		}

		for itemID, qty := range ret.AppliedQuantities() {
			it, err := t.item(itemID)
			if err != nil {
				return err
			}
			if _, err := it.Deduct(qty, inventory.SourcePurchaseReturn); err != nil {
				return err
			}
		}
		if err := p.ApplyReturn(ret, t.now); err != nil {
			return err
		}
		entry, err := supplier.RecordPurchaseReturn(ret.ID, ret.TotalReturnedValue, ret.DebtReduction, t.now)
		if err != nil {
			return err
		}
		t.post(supplier, entry)

		snapshot := p.Clone()
		out = &PurchaseReturnResult{
			Return:   snapshot.ActiveReturn(),
			Purchase: snapshot,
			Supplier: supplier.Clone(),
			Entry:    entry,
		}
		return nil
	})
	return out, err
}

// RestorePurchase undoes a receipt's purchase return: the stock goes back,
// the receipt balance is reinstated and the ledger entry is reversed.
func (s *Service) RestorePurchase(ctx context.Context, id string) (*PurchaseReturnResult, error) {
	var out *PurchaseReturnResult
	err := s.execute(ctx, "restore_purchase", func(t *tx) error {
		p, err := t.purchase(id)
		if err != nil {
			return err
		}
		supplier, err := t.supplier(p.SupplierID)
		if err != nil {
			return err
		}
		ret, err := p.ReverseReturn(t.now)
		if err != nil {
			return err
		}
		applied := ret.AppliedQuantities()
		stock := make([]StockAdjustment, 0, len(applied))
		for _, itemID := range slices.Sorted(maps.Keys(applied)) {
			qty := applied[itemID]
			adj := StockAdjustment{ItemID: itemID, Requested: qty}
			if it, err := t.item(itemID); err == nil {
				if err := it.Restock(qty, inventory.SourcePurchaseReversal); err != nil {
					return err
				}
				adj.Applied, adj.QuantityAfter = qty, it.Quantity
			}
			stock = append(stock, adj)
		}
		if err := t.reverseEntry(supplier, partner.EntryPurchaseReturn, ret.ID, purchaseRestoredReason); err != nil {
			return err
		}

		snapshot := p.Clone()
		out = &PurchaseReturnResult{
			Return:   findReturn(snapshot, ret.ID),
			Purchase: snapshot,
			Supplier: supplier.Clone(),
			Stock:    stock,
		}
		return nil
	})
	return out, err
}

// GetPurchase returns one receipt
func (s *Service) GetPurchase(_ context.Context, id string) (*trade.Purchase, error) {
	var out *trade.Purchase
	s.read(func(st *state) {
		if p, ok := st.purchases.find(id); ok {
			out = p.Clone()
		}
	})
	if out == nil {
		return nil, shared.NewNotFoundError("purchase", id)
	}
	return out, nil
}

// ListPurchases lists receipts, optionally for one supplier
func (s *Service) ListPurchases(_ context.Context, filter ListFilter) []*trade.Purchase {
	out := make([]*trade.Purchase, 0)
	s.read(func(st *state) {
		for _, p := range st.purchases.rows {
			if filter.SupplierID != "" && p.SupplierID != filter.SupplierID {
				continue
			}
			if filter.keep(&p.SoftDelete) {
				out = append(out, p.Clone())
			}
		}
	})
	return out
}

func findReturn(p *trade.Purchase, id string) *trade.PurchaseReturn {
	for i := range p.Returns {
		if p.Returns[i].ID == id {
			return &p.Returns[i]
		}
	}
	return nil
}
