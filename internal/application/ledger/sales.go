package ledger

import (
	"context"

	"github.com/edumahmoud/try-meeza-crm/internal/domain/inventory"
	"github.com/edumahmoud/try-meeza-crm/internal/domain/shared"
	"github.com/edumahmoud/try-meeza-crm/internal/domain/trade"
)

// CreateSale records an invoice, snapshots each item's WAC as the line cost
// and deducts the sold stock. Deductions are clamped at zero and reported.
func (s *Service) CreateSale(ctx context.Context, req CreateSaleRequest) (*CreateSaleResult, error) {
	var out *CreateSaleResult
	err := s.execute(ctx, "create_sale", func(t *tx) error {
		lines := make([]trade.SaleLine, 0, len(req.Lines))
		items := make([]*inventory.StockItem, 0, len(req.Lines))
		for _, l := range req.Lines {
			it, err := t.activeItem(l.ItemID)
			if err != nil {
				return err
			}
			price := it.RetailPrice
			if l.UnitPrice != nil {
				price = *l.UnitPrice
			}
			lines = append(lines, trade.SaleLine{
				ItemID:     it.ID,
				ItemName:   it.Name,
				Quantity:   l.Quantity,
				UnitPrice:  price,
				CostAtSale: it.UnitCost,
			})
			items = append(items, it)
		}

		discount := trade.Discount{Type: trade.DiscountType(req.Discount.Type), Value: req.Discount.Value}
		sale, err := trade.NewSale(lines, discount, req.CustomerName, req.CustomerPhone, req.Notes)
		if err != nil {
			return err
		}

		result := &CreateSaleResult{Deductions: make([]StockAdjustment, 0, len(items))}
		for i, it := range items {
			requested := sale.Lines[i].Quantity
			applied, err := it.Deduct(requested, inventory.SourceSale)
			if err != nil {
				return err
			}
			sale.RecordDeduction(it.ID, applied)
			adj := StockAdjustment{ItemID: it.ID, Requested: requested, Applied: applied, QuantityAfter: it.Quantity}
			if adj.Clamped() {
				result.ShortLines++
			}
			result.Deductions = append(result.Deductions, adj)
		}
		t.sales.add(sale)

		result.CostOfGoods = sale.CostOfGoods()
		result.Sale = sale.Clone()
		out = result
		return nil
	})
	return out, err
}

// DeleteSale moves a sale to the recycle bin. Stock and returns are left
// as they are.
func (s *Service) DeleteSale(ctx context.Context, id string, req DeleteRequest) error {
	return s.execute(ctx, "delete_sale", func(t *tx) error {
		sale, err := t.sale(id)
		if err != nil {
			return err
		}
		return sale.Delete(req.Reason, t.now)
	})
}

// RestoreSale brings a sale back from the recycle bin
func (s *Service) RestoreSale(ctx context.Context, id string) (*trade.Sale, error) {
	var out *trade.Sale
	err := s.execute(ctx, "restore_sale", func(t *tx) error {
		sale, err := t.sale(id)
		if err != nil {
			return err
		}
		if err := sale.Restore(); err != nil {
			return err
		}
		out = sale.Clone()
		return nil
	})
	return out, err
}

// EmptySaleBin permanently removes deleted sales
func (s *Service) EmptySaleBin(ctx context.Context) (int, error) {
	removed := 0
	err := s.execute(ctx, "empty_sale_bin", func(t *tx) error {
		for _, sale := range t.sales.view() {
			if sale.Deleted() {
				t.sales.remove(sale.ID)
				removed++
			}
		}
		return nil
	})
	return removed, err
}

// GetSale returns one sale
func (s *Service) GetSale(_ context.Context, id string) (*trade.Sale, error) {
	var out *trade.Sale
	s.read(func(st *state) {
		if sale, ok := st.sales.find(id); ok {
			out = sale.Clone()
		}
	})
	if out == nil {
		return nil, shared.NewNotFoundError("sale", id)
	}
	return out, nil
}

// ListSales lists sales, newest last
func (s *Service) ListSales(_ context.Context, filter ListFilter) []*trade.Sale {
	out := make([]*trade.Sale, 0)
	s.read(func(st *state) {
		for _, sale := range st.sales.rows {
			if filter.keep(&sale.SoftDelete) {
				out = append(out, sale.Clone())
			}
		}
	})
	return out
}
