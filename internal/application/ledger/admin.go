package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/edumahmoud/try-meeza-crm/internal/domain/inventory"
	"github.com/edumahmoud/try-meeza-crm/internal/domain/partner"
	"github.com/edumahmoud/try-meeza-crm/internal/domain/shared"
	"github.com/edumahmoud/try-meeza-crm/internal/domain/trade"
	"go.uber.org/zap"
)

// RestoreResult counts what a load or import kept and dropped per collection
type RestoreResult struct {
	Loaded map[string]int `json:"loaded"`
	// Dropped counts elements that could not be decoded
	Dropped map[string]int `json:"dropped"`
	// NotArrays lists collections whose value was not a JSON array
	NotArrays []string `json:"not_arrays,omitempty"`
	// Unknown lists document keys that name no collection; they are ignored
	Unknown []string `json:"unknown,omitempty"`
	// OpeningEntries is the number of suppliers given an opening balance entry
	OpeningEntries int `json:"opening_entries"`
}

func newRestoreResult() *RestoreResult {
	return &RestoreResult{Loaded: make(map[string]int), Dropped: make(map[string]int)}
}

// Skipped is the total number of dropped elements
func (r *RestoreResult) Skipped() int {
	n := 0
	for _, c := range r.Dropped {
		n += c
	}
	return n
}

// RestoreCollections replaces the whole ledger with an exported document: a
// JSON object keyed by collection name. Values that are not arrays become
// empty collections and elements that do not decode are skipped.
func (s *Service) RestoreCollections(ctx context.Context, document []byte) (*RestoreResult, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(document, &doc); err != nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Import document must be a JSON object")
	}

	result := newRestoreResult()
	for key := range doc {
		if !IsCollection(key) {
			result.Unknown = append(result.Unknown, key)
		}
	}
	slices.Sort(result.Unknown)

	records := make(map[string][]json.RawMessage, len(Collections))
	for _, name := range Collections {
		raw, ok := doc[name]
		if !ok {
			continue
		}
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			result.NotArrays = append(result.NotArrays, name)
			continue
		}
		records[name] = list
	}

	next := decodeState(records, s.now(), result)

	s.mu.Lock()
	s.st = next
	writes := make([]pendingWrite, 0, len(Collections))
	for _, name := range Collections {
		encoded, err := next.encode(name)
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		s.seq++
		writes = append(writes, pendingWrite{collection: name, seq: s.seq, records: encoded})
	}
	s.mu.Unlock()

	s.writeThrough(ctx, writes)
	s.logger.Info("ledger restored from document",
		zap.Any("loaded", result.Loaded),
		zap.Int("skipped", result.Skipped()),
		zap.Strings("not_arrays", result.NotArrays),
		zap.Strings("unknown", result.Unknown),
		zap.Int("opening_entries", result.OpeningEntries),
	)
	return result, nil
}

// Snapshot returns every collection as stored records
func (s *Service) Snapshot(_ context.Context) (map[string][]json.RawMessage, error) {
	out := make(map[string][]json.RawMessage, len(Collections))
	var err error
	s.read(func(st *state) {
		for _, name := range Collections {
			var records []json.RawMessage
			if records, err = st.encode(name); err != nil {
				return
			}
			out[name] = records
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// decodeState builds a state from stored records. Suppliers with balances
// but no ledger history get an opening entry so that the fold matches them.
func decodeState(records map[string][]json.RawMessage, now int64, result *RestoreResult) *state {
	st := newState()
	st.items.rows = decodeRows[inventory.StockItem](CollectionItems, records, result)
	st.sales.rows = decodeRows[trade.Sale](CollectionSales, records, result)
	st.saleReturns.rows = decodeRows[trade.SaleReturn](CollectionSaleReturns, records, result)
	st.purchases.rows = decodeRows[trade.Purchase](CollectionPurchases, records, result)
	st.suppliers.rows = decodeRows[partner.Supplier](CollectionSuppliers, records, result)

	for _, raw := range records[CollectionPayments] {
		var p partner.SupplierPayment
		if err := json.Unmarshal(raw, &p); err != nil || p.ID == "" {
			result.Dropped[CollectionPayments]++
			continue
		}
		st.payments = append(st.payments, &p)
	}
	result.Loaded[CollectionPayments] = len(st.payments)

	for _, raw := range records[CollectionSupplierLedger] {
		var e partner.SupplierLedgerEntry
		if err := json.Unmarshal(raw, &e); err != nil || e.ID == "" || !e.Kind.IsValid() {
			result.Dropped[CollectionSupplierLedger]++
			continue
		}
		st.entries = append(st.entries, e)
	}

	history := make(map[string]bool, len(st.entries))
	for _, e := range st.entries {
		history[e.SupplierID] = true
	}
	for _, s := range st.suppliers.rows {
		if history[s.ID] || s.Totals().Equal(partner.ZeroTotals()) {
			continue
		}
		st.entries = append(st.entries, *partner.NewOpeningEntry(s, now))
		result.OpeningEntries++
	}
	result.Loaded[CollectionSupplierLedger] = len(st.entries)
	return st
}

// decodeRows decodes one collection. Elements that fail to decode or carry
// no id are dropped and counted.
func decodeRows[V any, T interface {
	*V
	aggregate[T]
}](collection string, records map[string][]json.RawMessage, result *RestoreResult) []T {
	rows := make([]T, 0, len(records[collection]))
	for _, raw := range records[collection] {
		row := T(new(V))
		if err := json.Unmarshal(raw, row); err != nil || row.GetID() == "" {
			result.Dropped[collection]++
			continue
		}
		rows = append(rows, row)
	}
	result.Loaded[collection] = len(rows)
	return rows
}

// Finding is one inconsistency found by Verify
type Finding struct {
	Check  string `json:"check"`
	Entity string `json:"entity"`
	ID     string `json:"id"`
	Detail string `json:"detail"`
}

// AuditReport is the outcome of Verify
type AuditReport struct {
	CheckedAt int64     `json:"checked_at"`
	Findings  []Finding `json:"findings"`
}

// OK reports whether nothing was found
func (r *AuditReport) OK() bool {
	return len(r.Findings) == 0
}

// Verify audits the committed ledger without changing it: supplier snapshots
// against their ledger fold, the balance identity, stock quantities, sale
// return caps and receipt balances.
func (s *Service) Verify(_ context.Context) *AuditReport {
	report := &AuditReport{CheckedAt: s.now(), Findings: make([]Finding, 0)}
	add := func(check, entity, id, format string, args ...any) {
		report.Findings = append(report.Findings, Finding{Check: check, Entity: entity, ID: id, Detail: fmt.Sprintf(format, args...)})
	}

	s.read(func(st *state) {
		for i := range st.entries {
			e := &st.entries[i]
			if !e.Balanced() {
				add("entry_balance", "ledger entry", e.ID, "debt-credit delta %s differs from supplied-paid delta %s",
					e.DeltaDebt.Sub(e.DeltaCredit), e.DeltaSupplied.Sub(e.DeltaPaid))
			}
		}

		for _, sup := range st.suppliers.rows {
			folded := partner.Fold(sup.ID, st.entries)
			if !folded.Equal(sup.Totals()) {
				add("supplier_drift", "supplier", sup.ID, "stored %+v, ledger %+v", sup.Totals(), folded)
			}
			if !sup.Totals().Balanced() {
				add("supplier_balance", "supplier", sup.ID, "debt %s credit %s supplied %s paid %s",
					sup.TotalDebt, sup.CreditBalance, sup.TotalSupplied, sup.TotalPaid)
			}
		}

		for _, it := range st.items.rows {
			if it.Quantity < 0 {
				add("stock_negative", "item", it.ID, "quantity %d", it.Quantity)
			}
			if it.UnitCost.IsNegative() {
				add("cost_negative", "item", it.ID, "unit cost %s", it.UnitCost)
			}
		}

		for _, sale := range st.sales.rows {
			returned := trade.ReturnedQuantities(sale.ID, st.saleReturns.rows, "")
			for _, l := range sale.Lines {
				if returned[l.ItemID] > l.Quantity {
					add("return_cap", "sale", sale.ID, "item %s returned %d of %d", l.ItemID, returned[l.ItemID], l.Quantity)
				}
			}
		}

		for _, p := range st.purchases.rows {
			want := shared.FloorZero(p.NetTotal().Sub(p.PaidAmount))
			if !p.RemainingAmount.Equal(want) {
				add("receipt_remaining", "purchase", p.ID, "remaining %s, expected %s", p.RemainingAmount, want)
			}
		}
	})

	s.logger.Info("ledger verified", zap.Int("findings", len(report.Findings)))
	for _, f := range report.Findings {
		s.logger.Warn("ledger audit finding",
			zap.String("check", f.Check),
			zap.String("entity", f.Entity),
			zap.String("id", f.ID),
			zap.String("detail", f.Detail),
		)
	}
	return report
}
