package ledger

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/edumahmoud/try-meeza-crm/internal/domain/inventory"
	"github.com/edumahmoud/try-meeza-crm/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const (
	itemCodeMin      = 100000
	itemCodeSpan     = 900000
	itemCodeAttempts = 64
)

// Receive adds stock at a unit cost and recomputes the item's WAC
func (s *Service) Receive(ctx context.Context, req ReceiveStockRequest) (*inventory.StockItem, error) {
	var out *inventory.StockItem
	err := s.execute(ctx, "receive", func(t *tx) error {
		it, err := t.activeItem(req.ItemID)
		if err != nil {
			return err
		}
		if err := it.Receive(req.Quantity, req.UnitCost); err != nil {
			return err
		}
		out = it.Clone()
		return nil
	})
	return out, err
}

// Deduct removes stock, clamped at zero. The result shows how much was taken.
func (s *Service) Deduct(ctx context.Context, req AdjustStockRequest) (StockAdjustment, error) {
	var out StockAdjustment
	err := s.execute(ctx, "deduct", func(t *tx) error {
		it, err := t.activeItem(req.ItemID)
		if err != nil {
			return err
		}
		applied, err := it.Deduct(req.Quantity, sourceOr(req.Source))
		if err != nil {
			return err
		}
		out = StockAdjustment{ItemID: it.ID, Requested: req.Quantity, Applied: applied, QuantityAfter: it.Quantity}
		return nil
	})
	return out, err
}

// Restock puts stock back without changing the WAC
func (s *Service) Restock(ctx context.Context, req AdjustStockRequest) (StockAdjustment, error) {
	var out StockAdjustment
	err := s.execute(ctx, "restock", func(t *tx) error {
		it, err := t.activeItem(req.ItemID)
		if err != nil {
			return err
		}
		if err := it.Restock(req.Quantity, sourceOr(req.Source)); err != nil {
			return err
		}
		out = StockAdjustment{ItemID: it.ID, Requested: req.Quantity, Applied: req.Quantity, QuantityAfter: it.Quantity}
		return nil
	})
	return out, err
}

// AddItem adds an item to the catalogue with a fresh 6-digit code
func (s *Service) AddItem(ctx context.Context, req AddItemRequest) (*inventory.StockItem, error) {
	var out *inventory.StockItem
	err := s.execute(ctx, "add_item", func(t *tx) error {
		it, err := t.newItem(req.Name, req.Description, req.UnitCost, req.RetailPrice, req.InitialStock)
		if err != nil {
			return err
		}
		out = it.Clone()
		return nil
	})
	return out, err
}

// UpdateItem changes an item's name, description or retail price
func (s *Service) UpdateItem(ctx context.Context, id string, req UpdateItemRequest) (*inventory.StockItem, error) {
	var out *inventory.StockItem
	err := s.execute(ctx, "update_item", func(t *tx) error {
		it, err := t.activeItem(id)
		if err != nil {
			return err
		}
		if err := it.Update(req.Name, req.Description, req.RetailPrice); err != nil {
			return err
		}
		out = it.Clone()
		return nil
	})
	return out, err
}

// DeleteItem moves an item to the recycle bin
func (s *Service) DeleteItem(ctx context.Context, id string, req DeleteRequest) error {
	return s.execute(ctx, "delete_item", func(t *tx) error {
		it, err := t.item(id)
		if err != nil {
			return err
		}
		return it.Delete(req.Reason, t.now)
	})
}

// RestoreItem brings an item back from the recycle bin
func (s *Service) RestoreItem(ctx context.Context, id string) (*inventory.StockItem, error) {
	var out *inventory.StockItem
	err := s.execute(ctx, "restore_item", func(t *tx) error {
		it, err := t.item(id)
		if err != nil {
			return err
		}
		if err := it.Restore(); err != nil {
			return err
		}
		out = it.Clone()
		return nil
	})
	return out, err
}

// EmptyItemBin permanently removes deleted items and returns how many went
func (s *Service) EmptyItemBin(ctx context.Context) (int, error) {
	removed := 0
	err := s.execute(ctx, "empty_item_bin", func(t *tx) error {
		for _, it := range t.items.view() {
			if it.Deleted() {
				t.items.remove(it.ID)
				removed++
			}
		}
		return nil
	})
	return removed, err
}

// GetItem returns one item, deleted or not
func (s *Service) GetItem(_ context.Context, id string) (*inventory.StockItem, error) {
	var out *inventory.StockItem
	s.read(func(st *state) {
		if it, ok := st.items.find(id); ok {
			out = it.Clone()
		}
	})
	if out == nil {
		return nil, shared.NewNotFoundError("item", id)
	}
	return out, nil
}

// ListItems lists items in the order they were added
func (s *Service) ListItems(_ context.Context, filter ListFilter) []*inventory.StockItem {
	out := make([]*inventory.StockItem, 0)
	s.read(func(st *state) {
		for _, it := range st.items.rows {
			if filter.keep(&it.SoftDelete) {
				out = append(out, it.Clone())
			}
		}
	})
	return out
}

// newItem creates and adds an item inside a unit of work
func (t *tx) newItem(name, description string, unitCost, retailPrice decimal.Decimal, qty int64) (*inventory.StockItem, error) {
	code, err := t.nextItemCode()
	if err != nil {
		return nil, err
	}
	it, err := inventory.NewStockItem(code, name, description, unitCost, retailPrice, qty)
	if err != nil {
		return nil, err
	}
	t.items.add(it)
	return it, nil
}

// nextItemCode picks a random 6-digit code no other item uses
func (t *tx) nextItemCode() (string, error) {
	used := make(map[string]struct{})
	for _, it := range t.items.view() {
		used[it.Code] = struct{}{}
	}
	for range itemCodeAttempts {
		code := fmt.Sprintf("%06d", itemCodeMin+rand.IntN(itemCodeSpan))
		if _, taken := used[code]; !taken {
			return code, nil
		}
	}
	for n := range itemCodeSpan {
		code := fmt.Sprintf("%06d", itemCodeMin+n)
		if _, taken := used[code]; !taken {
			return code, nil
		}
	}
	return "", shared.NewDomainError(shared.CodeInvalidState, "No item codes left")
}

func sourceOr(source string) string {
	if source == "" {
		return inventory.SourceManual
	}
	return source
}
