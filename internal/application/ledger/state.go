package ledger

import (
	"encoding/json"
	"slices"

	"github.com/edumahmoud/try-meeza-crm/internal/domain/inventory"
	"github.com/edumahmoud/try-meeza-crm/internal/domain/partner"
	"github.com/edumahmoud/try-meeza-crm/internal/domain/shared"
	"github.com/edumahmoud/try-meeza-crm/internal/domain/trade"
)

// state is everything the ledger owns
type state struct {
	items       *table[*inventory.StockItem]
	sales       *table[*trade.Sale]
	saleReturns *table[*trade.SaleReturn]
	purchases   *table[*trade.Purchase]
	suppliers   *table[*partner.Supplier]
	payments    []*partner.SupplierPayment
	entries     []partner.SupplierLedgerEntry
}

func newState() *state {
	return &state{
		items:       &table[*inventory.StockItem]{name: CollectionItems},
		sales:       &table[*trade.Sale]{name: CollectionSales},
		saleReturns: &table[*trade.SaleReturn]{name: CollectionSaleReturns},
		purchases:   &table[*trade.Purchase]{name: CollectionPurchases},
		suppliers:   &table[*partner.Supplier]{name: CollectionSuppliers},
	}
}

// tx is one unit of work over the state. Everything it changes is a copy
// until the service commits it.
type tx struct {
	now         int64
	items       *tableTx[*inventory.StockItem]
	sales       *tableTx[*trade.Sale]
	saleReturns *tableTx[*trade.SaleReturn]
	purchases   *tableTx[*trade.Purchase]
	suppliers   *tableTx[*partner.Supplier]

	base         *state
	newPayments  []*partner.SupplierPayment
	entries      []partner.SupplierLedgerEntry
	entriesDirty bool
}

func (st *state) begin(now int64) *tx {
	return &tx{
		now:         now,
		base:        st,
		items:       newTableTx(st.items),
		sales:       newTableTx(st.sales),
		saleReturns: newTableTx(st.saleReturns),
		purchases:   newTableTx(st.purchases),
		suppliers:   newTableTx(st.suppliers),
		entries:     st.entries,
	}
}

func (t *tx) item(id string) (*inventory.StockItem, error) {
	if it, ok := t.items.get(id); ok {
		return it, nil
	}
	return nil, shared.NewNotFoundError("item", id)
}

// activeItem is item, refusing items in the recycle bin
func (t *tx) activeItem(id string) (*inventory.StockItem, error) {
	it, err := t.item(id)
	if err != nil {
		return nil, err
	}
	if it.Deleted() {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Item "+id+" is deleted")
	}
	return it, nil
}

func (t *tx) sale(id string) (*trade.Sale, error) {
	if s, ok := t.sales.get(id); ok {
		return s, nil
	}
	return nil, shared.NewNotFoundError("sale", id)
}

func (t *tx) saleReturn(id string) (*trade.SaleReturn, error) {
	if r, ok := t.saleReturns.get(id); ok {
		return r, nil
	}
	return nil, shared.NewNotFoundError("sale return", id)
}

func (t *tx) purchase(id string) (*trade.Purchase, error) {
	if p, ok := t.purchases.get(id); ok {
		return p, nil
	}
	return nil, shared.NewNotFoundError("purchase", id)
}

func (t *tx) supplier(id string) (*partner.Supplier, error) {
	if s, ok := t.suppliers.get(id); ok {
		return s, nil
	}
	return nil, shared.NewNotFoundError("supplier", id)
}

// returnsOf lists the returns recorded against saleID
func (t *tx) returnsOf(saleID string) []*trade.SaleReturn {
	var out []*trade.SaleReturn
	for _, r := range t.saleReturns.view() {
		if r.SaleID == saleID {
			out = append(out, r)
		}
	}
	return out
}

// post appends a ledger entry and refreshes the supplier from the fold
func (t *tx) post(s *partner.Supplier, e *partner.SupplierLedgerEntry) {
	t.cowEntries()
	t.entries = append(t.entries, *e)
	s.Refresh(t.entries)
}

// reverseEntry flags the entry for kind/source as reversed and refreshes the supplier
func (t *tx) reverseEntry(s *partner.Supplier, kind partner.EntryKind, sourceID, reason string) error {
	idx := partner.FindEntry(t.entries, kind, sourceID)
	if idx < 0 {
		return shared.NewNotFoundError("ledger entry", sourceID)
	}
	t.cowEntries()
	if err := t.entries[idx].Reverse(reason, t.now); err != nil {
		return err
	}
	s.Refresh(t.entries)
	return nil
}

func (t *tx) cowEntries() {
	if !t.entriesDirty {
		t.entries = slices.Clone(t.entries)
		t.entriesDirty = true
	}
}

// dirtyCollections names the collections this unit of work changed
func (t *tx) dirtyCollections() []string {
	var out []string
	if t.items.dirty() {
		out = append(out, CollectionItems)
	}
	if t.sales.dirty() {
		out = append(out, CollectionSales)
	}
	if t.saleReturns.dirty() {
		out = append(out, CollectionSaleReturns)
	}
	if t.purchases.dirty() {
		out = append(out, CollectionPurchases)
	}
	if t.suppliers.dirty() {
		out = append(out, CollectionSuppliers)
	}
	if len(t.newPayments) > 0 {
		out = append(out, CollectionPayments)
	}
	if t.entriesDirty {
		out = append(out, CollectionSupplierLedger)
	}
	return out
}

// events drains the domain events raised in this unit of work
func (t *tx) events() []shared.DomainEvent {
	var out []shared.DomainEvent
	out = append(out, t.items.events()...)
	out = append(out, t.sales.events()...)
	out = append(out, t.saleReturns.events()...)
	out = append(out, t.purchases.events()...)
	out = append(out, t.suppliers.events()...)
	return out
}

func (t *tx) commit() {
	t.items.commit()
	t.sales.commit()
	t.saleReturns.commit()
	t.purchases.commit()
	t.suppliers.commit()
	if len(t.newPayments) > 0 {
		t.base.payments = append(slices.Clone(t.base.payments), t.newPayments...)
	}
	if t.entriesDirty {
		t.base.entries = t.entries
	}
}

// encode renders a collection of the committed state
func (st *state) encode(collection string) ([]json.RawMessage, error) {
	switch collection {
	case CollectionItems:
		return st.items.encode()
	case CollectionSales:
		return st.sales.encode()
	case CollectionSaleReturns:
		return st.saleReturns.encode()
	case CollectionPurchases:
		return st.purchases.encode()
	case CollectionSuppliers:
		return st.suppliers.encode()
	case CollectionPayments:
		return encodeRows(collection, st.payments)
	case CollectionSupplierLedger:
		return encodeRows(collection, st.entries)
	}
	return nil, shared.NewDomainError(shared.CodeInvalidInput, "Unknown collection "+collection)
}
