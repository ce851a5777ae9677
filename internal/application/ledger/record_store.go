package ledger

import (
	"context"
	"encoding/json"
	"slices"
)

// Collection names. Each entity family lives in its own namespaced collection.
const (
	CollectionItems          = "meeza_pos_inventory"
	CollectionSales          = "meeza_pos_invoices"
	CollectionSaleReturns    = "meeza_pos_returns"
	CollectionPurchases      = "meeza_pos_purchases"
	CollectionSuppliers      = "meeza_pos_suppliers"
	CollectionPayments       = "meeza_pos_supplier_payments"
	CollectionSupplierLedger = "meeza_pos_supplier_ledger"
)

// Collections lists every collection in load order
var Collections = []string{
	CollectionItems,
	CollectionSales,
	CollectionSaleReturns,
	CollectionPurchases,
	CollectionSuppliers,
	CollectionPayments,
	CollectionSupplierLedger,
}

// IsCollection reports whether name is a known collection
func IsCollection(name string) bool {
	return slices.Contains(Collections, name)
}

// RecordStore persists whole collections of JSON records.
//
// Load returns an empty slice when the collection is absent. When the stored
// payload is not a JSON array it returns an empty slice together with an
// error matching shared.ErrCorruptCollection. SaveAll replaces
// the collection with records; calling it twice with the same records leaves
// the same state.
type RecordStore interface {
	Load(ctx context.Context, collection string) ([]json.RawMessage, error)
	SaveAll(ctx context.Context, collection string, records []json.RawMessage) error
}

// Versioner is implemented by stores that count saves per collection
type Versioner interface {
	Versions(ctx context.Context) (map[string]int64, error)
}
