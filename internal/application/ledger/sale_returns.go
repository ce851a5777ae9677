package ledger

import (
	"context"

	"github.com/edumahmoud/try-meeza-crm/internal/domain/inventory"
	"github.com/edumahmoud/try-meeza-crm/internal/domain/shared"
	"github.com/edumahmoud/try-meeza-crm/internal/domain/trade"
)

// CreateSaleReturn refunds returned units at the sale's discounted price and
// puts them back in stock. Requests over the remaining quantity are rejected.
func (s *Service) CreateSaleReturn(ctx context.Context, req CreateSaleReturnRequest) (*SaleReturnResult, error) {
	var out *SaleReturnResult
	err := s.execute(ctx, "create_sale_return", func(t *tx) error {
		sale, err := t.sale(req.SaleID)
		if err != nil {
			return err
		}
		ret, err := trade.NewSaleReturn(sale, t.returnsOf(sale.ID), toQuantities(req.Lines))
		if err != nil {
			return err
		}
		restocks, err := t.restock(ret.Lines, inventory.SourceSaleReturn)
		if err != nil {
			return err
		}
		t.saleReturns.add(ret)
		sale.SyncStatus(trade.ReturnedQuantities(sale.ID, t.returnsOf(sale.ID), ""))

		out = &SaleReturnResult{Return: ret.Clone(), Sale: sale.Clone(), Restocks: restocks}
		return nil
	})
	return out, err
}

// ReturnableQuantities lists, per line of a sale, what can still be returned
func (s *Service) ReturnableQuantities(_ context.Context, saleID string) ([]trade.Returnable, error) {
	var (
		out   []trade.Returnable
		found bool
	)
	s.read(func(st *state) {
		sale, ok := st.sales.find(saleID)
		if !ok {
			return
		}
		found = true
		out = trade.ReturnableQuantities(sale, st.saleReturns.rows)
	})
	if !found {
		return nil, shared.NewNotFoundError("sale", saleID)
	}
	return out, nil
}

// DeleteSaleReturn moves a return to the recycle bin and takes the restocked
// units out again. Stock that has since been sold is clamped and reported.
func (s *Service) DeleteSaleReturn(ctx context.Context, id string, req DeleteRequest) (*SaleReturnResult, error) {
	var out *SaleReturnResult
	err := s.execute(ctx, "delete_sale_return", func(t *tx) error {
		ret, err := t.saleReturn(id)
		if err != nil {
			return err
		}
		if err := ret.Delete(req.Reason, t.now); err != nil {
			return err
		}
		reversals := make([]StockAdjustment, 0, len(ret.Lines))
		for _, l := range ret.Lines {
			adj := StockAdjustment{ItemID: l.ItemID, Requested: l.Quantity}
			if it, err := t.item(l.ItemID); err == nil {
				applied, err := it.Deduct(l.Quantity, inventory.SourceSaleReturnReversal)
				if err != nil {
					return err
				}
				adj.Applied, adj.QuantityAfter = applied, it.Quantity
			}
			reversals = append(reversals, adj)
		}

		out = &SaleReturnResult{Return: ret.Clone(), Restocks: reversals}
		if sale, err := t.sale(ret.SaleID); err == nil {
			sale.SyncStatus(trade.ReturnedQuantities(sale.ID, t.returnsOf(sale.ID), ""))
			out.Sale = sale.Clone()
		}
		return nil
	})
	return out, err
}

// RestoreSaleReturn brings a return back once the caps still allow it and
// restocks its units again.
func (s *Service) RestoreSaleReturn(ctx context.Context, id string) (*SaleReturnResult, error) {
	var out *SaleReturnResult
	err := s.execute(ctx, "restore_sale_return", func(t *tx) error {
		ret, err := t.saleReturn(id)
		if err != nil {
			return err
		}
		sale, err := t.sale(ret.SaleID)
		if err != nil {
			return err
		}
		if err := ret.CheckRestorable(sale, t.returnsOf(sale.ID)); err != nil {
			return err
		}
		if err := ret.Restore(); err != nil {
			return err
		}
		restocks, err := t.restock(ret.Lines, inventory.SourceSaleReturn)
		if err != nil {
			return err
		}
		sale.SyncStatus(trade.ReturnedQuantities(sale.ID, t.returnsOf(sale.ID), ""))

		out = &SaleReturnResult{Return: ret.Clone(), Sale: sale.Clone(), Restocks: restocks}
		return nil
	})
	return out, err
}

// EmptySaleReturnBin permanently removes deleted returns
func (s *Service) EmptySaleReturnBin(ctx context.Context) (int, error) {
	removed := 0
	err := s.execute(ctx, "empty_sale_return_bin", func(t *tx) error {
		for _, r := range t.saleReturns.view() {
			if r.Deleted() {
				t.saleReturns.remove(r.ID)
				removed++
			}
		}
		return nil
	})
	return removed, err
}

// ListSaleReturns lists returns, optionally for one sale
func (s *Service) ListSaleReturns(_ context.Context, filter ListFilter) []*trade.SaleReturn {
	out := make([]*trade.SaleReturn, 0)
	s.read(func(st *state) {
		for _, r := range st.saleReturns.rows {
			if filter.SaleID != "" && r.SaleID != filter.SaleID {
				continue
			}
			if filter.keep(&r.SoftDelete) {
				out = append(out, r.Clone())
			}
		}
	})
	return out
}

// restock puts returned lines back in stock. Items that no longer exist are
// reported with nothing applied.
func (t *tx) restock(lines []trade.SaleReturnLine, source string) ([]StockAdjustment, error) {
	out := make([]StockAdjustment, 0, len(lines))
	for _, l := range lines {
		adj := StockAdjustment{ItemID: l.ItemID, Requested: l.Quantity}
		if it, err := t.item(l.ItemID); err == nil {
			if err := it.Restock(l.Quantity, source); err != nil {
				return nil, err
			}
			adj.Applied, adj.QuantityAfter = l.Quantity, it.Quantity
		}
		out = append(out, adj)
	}
	return out, nil
}
