package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/edumahmoud/try-meeza-crm/internal/domain/inventory"
	"github.com/edumahmoud/try-meeza-crm/internal/domain/partner"
	"github.com/edumahmoud/try-meeza-crm/internal/domain/shared"
	"github.com/edumahmoud/try-meeza-crm/internal/domain/trade"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu      sync.Mutex
	data    map[string][]json.RawMessage
	saves   map[string]int
	failing bool
	loadErr map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string][]json.RawMessage), saves: make(map[string]int)}
}

func (f *fakeStore) Load(_ context.Context, collection string) ([]json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.loadErr[collection]; err != nil {
		return []json.RawMessage{}, err
	}
	return f.data[collection], nil
}

func (f *fakeStore) SaveAll(_ context.Context, collection string, records []json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errors.New("store unavailable")
	}
	f.data[collection] = records
	f.saves[collection]++
	return nil
}

func (f *fakeStore) saveCount(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves[collection]
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

type countingMetrics struct {
	mu        sync.Mutex
	committed map[string]int
	rejected  map[string]int
	failed    map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{committed: map[string]int{}, rejected: map[string]int{}, failed: map[string]int{}}
}

func (m *countingMetrics) OperationCommitted(_ context.Context, op string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.committed[op]++
}

func (m *countingMetrics) OperationRejected(_ context.Context, op, code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected[op+":"+code]++
}

func (m *countingMetrics) WriteThroughFailed(_ context.Context, collection string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed[collection]++
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func newTestService(t *testing.T) (*Service, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return NewService(store, nil, WithClock(func() time.Time { return fixed })), store
}

func addItem(t *testing.T, svc *Service, name, cost, retail string, qty int64) *inventory.StockItem {
	t.Helper()
	it, err := svc.AddItem(context.Background(), AddItemRequest{
		Name: name, UnitCost: dec(cost), RetailPrice: dec(retail), InitialStock: qty,
	})
	require.NoError(t, err)
	return it
}

func addSupplier(t *testing.T, svc *Service, name string) *partner.Supplier {
	t.Helper()
	s, err := svc.AddSupplier(context.Background(), AddSupplierRequest{Name: name})
	require.NoError(t, err)
	return s
}

func TestService_ReceiveComputesWeightedAverage(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	item := addItem(t, svc, "Flour", "0", "12", 0)

	got, err := svc.Receive(ctx, ReceiveStockRequest{ItemID: item.ID, Quantity: 10, UnitCost: dec("5")})
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.Quantity)
	assert.True(t, got.UnitCost.Equal(dec("5.00")))

	got, err = svc.Receive(ctx, ReceiveStockRequest{ItemID: item.ID, Quantity: 5, UnitCost: dec("8")})
	require.NoError(t, err)
	assert.Equal(t, int64(15), got.Quantity)
	assert.True(t, got.UnitCost.Equal(dec("6.00")))

	adj, err := svc.Deduct(ctx, AdjustStockRequest{ItemID: item.ID, Quantity: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(15), adj.Applied)
	assert.True(t, adj.Clamped())
	assert.Equal(t, int64(0), adj.QuantityAfter)

	_, err = svc.Receive(ctx, ReceiveStockRequest{ItemID: "ITM-MISSING", Quantity: 1, UnitCost: dec("1")})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestService_ItemCatalogue(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a := addItem(t, svc, "", "1", "2", 3)
	b := addItem(t, svc, "Sugar", "1", "2", 3)
	assert.Equal(t, inventory.DefaultItemName, a.Name)
	assert.Len(t, a.Code, 6)
	assert.NotEqual(t, a.Code, b.Code)

	updated, err := svc.UpdateItem(ctx, b.ID, UpdateItemRequest{RetailPrice: decPtr("2.50")})
	require.NoError(t, err)
	assert.True(t, updated.RetailPrice.Equal(dec("2.50")))

	t.Run("delete needs a reason", func(t *testing.T) {
		err := svc.DeleteItem(ctx, b.ID, DeleteRequest{})
		assert.ErrorIs(t, err, shared.ErrReasonRequired)
	})

	require.NoError(t, svc.DeleteItem(ctx, b.ID, DeleteRequest{Reason: "discontinued"}))
	assert.Len(t, svc.ListItems(ctx, ListFilter{}), 1)
	assert.Len(t, svc.ListItems(ctx, ListFilter{OnlyDeleted: true}), 1)

	_, err = svc.Receive(ctx, ReceiveStockRequest{ItemID: b.ID, Quantity: 1, UnitCost: dec("1")})
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = svc.RestoreItem(ctx, b.ID)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteItem(ctx, b.ID, DeleteRequest{Reason: "again"}))

	removed, err := svc.EmptyItemBin(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	_, err = svc.GetItem(ctx, b.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestService_CreateSale(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	tea := addItem(t, svc, "Tea", "4", "10", 5)
	cup := addItem(t, svc, "Cup", "2", "6", 1)

	res, err := svc.CreateSale(ctx, CreateSaleRequest{
		Lines: []SaleLineRequest{
			{ItemID: tea.ID, Quantity: 2},
			{ItemID: cup.ID, Quantity: 3, UnitPrice: decPtr("5")},
		},
		Discount: DiscountRequest{Type: "fixed", Value: dec("5")},
	})
	require.NoError(t, err)

	sale := res.Sale
	assert.True(t, sale.Lines[0].UnitPrice.Equal(dec("10")), "price defaults to retail")
	assert.True(t, sale.Lines[0].CostAtSale.Equal(dec("4")))
	assert.True(t, sale.Subtotal.Equal(dec("35")))
	assert.True(t, sale.NetTotal.Equal(dec("30")))
	assert.Equal(t, 1, res.ShortLines)
	assert.Equal(t, int64(1), res.Deductions[1].Applied)
	assert.Equal(t, int64(1), sale.Lines[1].Deducted)

	got, err := svc.GetItem(ctx, cup.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Quantity)

	t.Run("failed sale changes nothing", func(t *testing.T) {
		_, err := svc.CreateSale(ctx, CreateSaleRequest{
			Lines: []SaleLineRequest{{ItemID: tea.ID, Quantity: 1}, {ItemID: "ITM-NOPE", Quantity: 1}},
		})
		assert.ErrorIs(t, err, shared.ErrNotFound)

		got, err := svc.GetItem(ctx, tea.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), got.Quantity)
		assert.Len(t, svc.ListSales(ctx, ListFilter{}), 1)
	})

	t.Run("percentage over 100 is rejected", func(t *testing.T) {
		_, err := svc.CreateSale(ctx, CreateSaleRequest{
			Lines:    []SaleLineRequest{{ItemID: tea.ID, Quantity: 1}},
			Discount: DiscountRequest{Type: "percentage", Value: dec("150")},
		})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("delete and restore keep stock", func(t *testing.T) {
		require.NoError(t, svc.DeleteSale(ctx, sale.ID, DeleteRequest{Reason: "typo"}))
		got, _ := svc.GetItem(ctx, tea.ID)
		assert.Equal(t, int64(3), got.Quantity)

		restored, err := svc.RestoreSale(ctx, sale.ID)
		require.NoError(t, err)
		assert.False(t, restored.Deleted())
	})
}

func TestService_SaleReturns(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a := addItem(t, svc, "A", "60", "100", 10)
	b := addItem(t, svc, "B", "60", "100", 10)

	created, err := svc.CreateSale(ctx, CreateSaleRequest{
		Lines:    []SaleLineRequest{{ItemID: a.ID, Quantity: 5}, {ItemID: b.ID, Quantity: 5}},
		Discount: DiscountRequest{Type: "percentage", Value: dec("10")},
	})
	require.NoError(t, err)
	saleID := created.Sale.ID
	require.True(t, created.Sale.NetTotal.Equal(dec("900")))

	first, err := svc.CreateSaleReturn(ctx, CreateSaleReturnRequest{
		SaleID: saleID,
		Lines:  []ReturnLineRequest{{ItemID: a.ID, Quantity: 2}},
	})
	require.NoError(t, err)
	assert.True(t, first.Return.TotalRefund.Equal(dec("180")))
	assert.Equal(t, trade.SaleStatusCompleted, first.Sale.Status)

	t.Run("over the cap is rejected", func(t *testing.T) {
		_, err := svc.CreateSaleReturn(ctx, CreateSaleReturnRequest{
			SaleID: saleID,
			Lines:  []ReturnLineRequest{{ItemID: a.ID, Quantity: 4}},
		})
		var exceeded *trade.ReturnQuantityExceededError
		require.ErrorAs(t, err, &exceeded)
		assert.Equal(t, int64(3), exceeded.Available)

		got, _ := svc.GetItem(ctx, a.ID)
		assert.Equal(t, int64(7), got.Quantity)
	})

	returnable, err := svc.ReturnableQuantities(ctx, saleID)
	require.NoError(t, err)
	require.Len(t, returnable, 2)
	assert.Equal(t, int64(3), returnable[0].Available)
	assert.Equal(t, int64(5), returnable[1].Available)

	second, err := svc.CreateSaleReturn(ctx, CreateSaleReturnRequest{
		SaleID: saleID,
		Lines:  []ReturnLineRequest{{ItemID: a.ID, Quantity: 3}, {ItemID: b.ID, Quantity: 5}},
	})
	require.NoError(t, err)
	assert.True(t, second.Return.TotalRefund.Add(first.Return.TotalRefund).Equal(dec("900")))
	assert.Equal(t, trade.SaleStatusReturned, second.Sale.Status)

	t.Run("deleting a return takes the stock out again", func(t *testing.T) {
		res, err := svc.DeleteSaleReturn(ctx, second.Return.ID, DeleteRequest{Reason: "entered twice"})
		require.NoError(t, err)
		assert.Equal(t, trade.SaleStatusCompleted, res.Sale.Status)
		assert.Len(t, res.Restocks, 2)

		got, _ := svc.GetItem(ctx, b.ID)
		assert.Equal(t, int64(5), got.Quantity)
	})

	t.Run("restoring re-checks the caps", func(t *testing.T) {
		res, err := svc.RestoreSaleReturn(ctx, second.Return.ID)
		require.NoError(t, err)
		assert.Equal(t, trade.SaleStatusReturned, res.Sale.Status)

		got, _ := svc.GetItem(ctx, b.ID)
		assert.Equal(t, int64(10), got.Quantity)
	})

	assert.Len(t, svc.ListSaleReturns(ctx, ListFilter{SaleID: saleID}), 2)
}

func TestService_PurchaseReturnWithDebt(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	supplier := addSupplier(t, svc, "Nile Foods")

	res, err := svc.CreatePurchase(ctx, CreatePurchaseRequest{
		SupplierID: supplier.ID,
		Lines:      []PurchaseLineRequest{{Name: "Rice", Quantity: 100, CostPrice: dec("10"), RetailPrice: decPtr("14")}},
		PaidAmount: dec("400"),
	})
	require.NoError(t, err)
	require.Len(t, res.Created, 1)
	rice := res.Created[0]
	assert.Equal(t, trade.PaymentStatusCredit, res.Purchase.PaymentStatus)
	assert.True(t, res.Purchase.RemainingAmount.Equal(dec("600")))
	assert.True(t, res.Supplier.TotalDebt.Equal(dec("600")))

	ret, err := svc.ReturnPurchase(ctx, ReturnPurchaseRequest{
		PurchaseID: res.Purchase.ID,
		Lines:      []ReturnLineRequest{{ItemID: rice.ID, Quantity: 25}},
		Reason:     "damaged bags",
	})
	require.NoError(t, err)
	assert.True(t, ret.Return.TotalReturnedValue.Equal(dec("250")))
	assert.True(t, ret.Purchase.RemainingAmount.Equal(dec("350")))
	assert.True(t, ret.Supplier.TotalDebt.Equal(dec("350")))
	assert.True(t, ret.Supplier.TotalSupplied.Equal(dec("750")))
	assert.True(t, ret.Supplier.CreditBalance.IsZero())
	assert.True(t, ret.Purchase.Deleted())

	got, _ := svc.GetItem(ctx, rice.ID)
	assert.Equal(t, int64(75), got.Quantity)

	t.Run("a returned receipt cannot be returned again", func(t *testing.T) {
		_, err := svc.ReturnPurchase(ctx, ReturnPurchaseRequest{
			PurchaseID: res.Purchase.ID,
			Lines:      []ReturnLineRequest{{ItemID: rice.ID, Quantity: 1}},
			Reason:     "again",
		})
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})

	restored, err := svc.RestorePurchase(ctx, res.Purchase.ID)
	require.NoError(t, err)
	assert.False(t, restored.Purchase.Deleted())
	assert.True(t, restored.Return.Reversed)
	assert.True(t, restored.Purchase.RemainingAmount.Equal(dec("600")))
	assert.True(t, restored.Supplier.Totals().Equal(partner.Totals{
		Supplied: dec("1000"), Paid: dec("400"), Debt: dec("600"), Credit: decimal.Zero,
	}))
	got, _ = svc.GetItem(ctx, rice.ID)
	assert.Equal(t, int64(100), got.Quantity)
	assert.Equal(t, []StockAdjustment{{ItemID: rice.ID, Requested: 25, Applied: 25, QuantityAfter: 100}}, restored.Stock)

	stmt, err := svc.SupplierStatement(ctx, supplier.ID)
	require.NoError(t, err)
	require.Len(t, stmt.Lines, 2)
	assert.True(t, stmt.Lines[1].Entry.Reversed)

	assert.True(t, svc.Verify(ctx).OK())
}

func TestService_RestorePurchaseReportsPurgedItems(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	supplier := addSupplier(t, svc, "Alex Spices")

	res, err := svc.CreatePurchase(ctx, CreatePurchaseRequest{
		SupplierID: supplier.ID,
		Lines: []PurchaseLineRequest{
			{Name: "Cumin", Quantity: 10, CostPrice: dec("3"), RetailPrice: decPtr("5")},
			{Name: "Pepper", Quantity: 10, CostPrice: dec("4"), RetailPrice: decPtr("6")},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Created, 2)
	cumin, pepper := res.Created[0], res.Created[1]

	_, err = svc.ReturnPurchase(ctx, ReturnPurchaseRequest{
		PurchaseID: res.Purchase.ID,
		Lines: []ReturnLineRequest{
			{ItemID: cumin.ID, Quantity: 4},
			{ItemID: pepper.ID, Quantity: 10},
		},
		Reason: "wrong grade",
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteItem(ctx, pepper.ID, DeleteRequest{Reason: "discontinued"}))
	removed, err := svc.EmptyItemBin(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	restored, err := svc.RestorePurchase(ctx, res.Purchase.ID)
	require.NoError(t, err)
	assert.False(t, restored.Purchase.Deleted())
	require.Len(t, restored.Stock, 2)

	byItem := make(map[string]StockAdjustment, len(restored.Stock))
	for _, adj := range restored.Stock {
		byItem[adj.ItemID] = adj
	}
	assert.Equal(t, StockAdjustment{ItemID: cumin.ID, Requested: 4, Applied: 4, QuantityAfter: 10}, byItem[cumin.ID])
	purged := byItem[pepper.ID]
	assert.Equal(t, int64(10), purged.Requested)
	assert.Zero(t, purged.Applied)
	assert.True(t, purged.Clamped())

	got, err := svc.GetItem(ctx, cumin.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.Quantity)
}

func TestService_FullyPaidReturnBecomesCredit(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	supplier := addSupplier(t, svc, "Delta Oils")
	oil := addItem(t, svc, "Oil", "10", "15", 0)

	res, err := svc.CreatePurchase(ctx, CreatePurchaseRequest{
		SupplierID: supplier.ID,
		Lines:      []PurchaseLineRequest{{ItemID: oil.ID, Quantity: 100, CostPrice: dec("10")}},
		PaidAmount: dec("1000"),
	})
	require.NoError(t, err)
	assert.Equal(t, trade.PaymentStatusCash, res.Purchase.PaymentStatus)

	ret, err := svc.ReturnPurchase(ctx, ReturnPurchaseRequest{
		PurchaseID: res.Purchase.ID,
		Lines:      []ReturnLineRequest{{ItemID: oil.ID, Quantity: 30}},
		Reason:     "expired",
	})
	require.NoError(t, err)
	assert.True(t, ret.Return.CashOwed.Equal(dec("300")))
	assert.True(t, ret.Purchase.RemainingAmount.IsZero())
	assert.True(t, ret.Supplier.CreditBalance.Equal(dec("300")))
	assert.True(t, ret.Supplier.TotalSupplied.Equal(dec("700")))

	err = svc.DeleteSupplier(ctx, supplier.ID, DeleteRequest{})
	assert.ErrorIs(t, err, shared.NewDomainError(partner.CodeSupplierHasCredit, ""))

	settled, err := svc.SettleCredit(ctx, SettleCreditRequest{SupplierID: supplier.ID, Amount: dec("300"), Mode: "refund"})
	require.NoError(t, err)
	assert.True(t, settled.Supplier.CreditBalance.IsZero())
	assert.True(t, settled.Supplier.TotalPaid.Equal(dec("700")))

	require.NoError(t, svc.DeleteSupplier(ctx, supplier.ID, DeleteRequest{}))
	deleted, err := svc.GetSupplier(ctx, supplier.ID)
	require.NoError(t, err)
	assert.Equal(t, partner.DefaultDeletionReason, deleted.DeletionReason)

	_, err = svc.CreatePurchase(ctx, CreatePurchaseRequest{
		SupplierID: supplier.ID,
		Lines:      []PurchaseLineRequest{{ItemID: oil.ID, Quantity: 1, CostPrice: dec("10")}},
	})
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = svc.RestoreSupplier(ctx, supplier.ID)
	require.NoError(t, err)
	assert.True(t, svc.Verify(ctx).OK())
}

func TestService_Overpayment(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	supplier := addSupplier(t, svc, "Cairo Paper")
	paper := addItem(t, svc, "Paper", "10", "12", 0)

	res, err := svc.CreatePurchase(ctx, CreatePurchaseRequest{
		SupplierID: supplier.ID,
		Lines:      []PurchaseLineRequest{{ItemID: paper.ID, Quantity: 100, CostPrice: dec("10")}},
		PaidAmount: dec("800"),
	})
	require.NoError(t, err)

	paid, err := svc.RecordPayment(ctx, RecordPaymentRequest{
		SupplierID: supplier.ID, PurchaseID: res.Purchase.ID, Amount: dec("500"),
	})
	require.NoError(t, err)
	assert.True(t, paid.Purchase.RemainingAmount.IsZero())
	assert.True(t, paid.Covered.Equal(dec("200")))
	assert.True(t, paid.Supplier.TotalPaid.Equal(dec("1300")))
	assert.True(t, paid.Supplier.TotalDebt.IsZero())
	assert.True(t, paid.Supplier.CreditBalance.Equal(dec("300")))
	assert.Equal(t, "payment for invoice #"+res.Purchase.ID, paid.Payment.Notes)

	assert.Len(t, svc.ListPayments(ctx, ListFilter{SupplierID: supplier.ID}), 1)

	t.Run("payment against another supplier's receipt", func(t *testing.T) {
		other := addSupplier(t, svc, "Other")
		_, err := svc.RecordPayment(ctx, RecordPaymentRequest{
			SupplierID: other.ID, PurchaseID: res.Purchase.ID, Amount: dec("1"),
		})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("zero payment", func(t *testing.T) {
		_, err := svc.RecordPayment(ctx, RecordPaymentRequest{
			SupplierID: supplier.ID, PurchaseID: res.Purchase.ID, Amount: decimal.Zero,
		})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestService_PaymentAmountRoundedOnce(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	supplier := addSupplier(t, svc, "Delta Tea")
	tea := addItem(t, svc, "Tea", "1", "2", 0)

	res, err := svc.CreatePurchase(ctx, CreatePurchaseRequest{
		SupplierID: supplier.ID,
		Lines:      []PurchaseLineRequest{{ItemID: tea.ID, Quantity: 10, CostPrice: dec("1")}},
	})
	require.NoError(t, err)

	paid, err := svc.RecordPayment(ctx, RecordPaymentRequest{
		SupplierID: supplier.ID, PurchaseID: res.Purchase.ID, Amount: dec("0.005"),
	})
	require.NoError(t, err)

	want := dec("0.01")
	assert.True(t, paid.Payment.Amount.Equal(want), "payment %s", paid.Payment.Amount)
	assert.True(t, paid.Purchase.PaidAmount.Equal(want), "receipt paid %s", paid.Purchase.PaidAmount)
	assert.True(t, paid.Purchase.RemainingAmount.Equal(dec("9.99")), "remaining %s", paid.Purchase.RemainingAmount)
	assert.True(t, paid.Covered.Equal(want), "covered %s", paid.Covered)
	assert.True(t, paid.Entry.DeltaPaid.Equal(want), "entry %s", paid.Entry.DeltaPaid)
	assert.True(t, paid.Supplier.TotalPaid.Equal(want), "supplier paid %s", paid.Supplier.TotalPaid)
	assert.True(t, paid.Supplier.TotalDebt.Equal(dec("9.99")), "debt %s", paid.Supplier.TotalDebt)
	assert.True(t, svc.Verify(ctx).OK())

	t.Run("rounds to nothing", func(t *testing.T) {
		_, err := svc.RecordPayment(ctx, RecordPaymentRequest{
			SupplierID: supplier.ID, PurchaseID: res.Purchase.ID, Amount: dec("0.004"),
		})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestService_AddSupplierReusesSameName(t *testing.T) {
	svc, _ := newTestService(t)
	first := addSupplier(t, svc, "Ḁlpha  Trading")
	second := addSupplier(t, svc, "ḁLPHA trading")
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, svc.ListSuppliers(context.Background(), ListFilter{}), 1)
}

func TestService_WriteThrough(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	item := addItem(t, svc, "Salt", "1", "2", 10)

	assert.Equal(t, 1, store.saveCount(CollectionItems))
	assert.Equal(t, 0, store.saveCount(CollectionSales))

	t.Run("rejected operations write nothing", func(t *testing.T) {
		_, err := svc.Deduct(ctx, AdjustStockRequest{ItemID: item.ID, Quantity: -1})
		require.Error(t, err)
		assert.Equal(t, 1, store.saveCount(CollectionItems))
	})

	t.Run("store failures do not fail the operation", func(t *testing.T) {
		metrics := newCountingMetrics()
		svc.metrics = metrics
		store.mu.Lock()
		store.failing = true
		store.mu.Unlock()

		_, err := svc.Deduct(ctx, AdjustStockRequest{ItemID: item.ID, Quantity: 1})
		require.NoError(t, err)
		got, _ := svc.GetItem(ctx, item.ID)
		assert.Equal(t, int64(9), got.Quantity)
		assert.Equal(t, 1, metrics.failed[CollectionItems])

		store.mu.Lock()
		store.failing = false
		store.mu.Unlock()
	})

	t.Run("a new service loads what was written", func(t *testing.T) {
		_, err := svc.Deduct(ctx, AdjustStockRequest{ItemID: item.ID, Quantity: 1})
		require.NoError(t, err)

		reloaded := NewService(store, nil)
		result, err := reloaded.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, result.Skipped())

		got, err := reloaded.GetItem(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(8), got.Quantity)
		assert.Equal(t, item.Code, got.Code)
	})
}

func TestService_LoadCorruptCollection(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	item := addItem(t, svc, "Rice", "2", "3", 5)
	addSupplier(t, svc, "Nile Foods")

	t.Run("corrupt collection loads empty", func(t *testing.T) {
		store.mu.Lock()
		store.loadErr = map[string]error{
			CollectionSuppliers: fmt.Errorf("decode collection %s: %w", CollectionSuppliers, shared.ErrCorruptCollection),
		}
		store.mu.Unlock()

		reloaded := NewService(store, nil)
		result, err := reloaded.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{CollectionSuppliers}, result.NotArrays)
		assert.Equal(t, 0, result.Loaded[CollectionSuppliers])
		assert.Empty(t, reloaded.ListSuppliers(ctx, ListFilter{}))

		got, err := reloaded.GetItem(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(5), got.Quantity)
	})

	t.Run("store failure aborts the load", func(t *testing.T) {
		ioErr := errors.New("connection reset")
		store.mu.Lock()
		store.loadErr = map[string]error{CollectionSales: ioErr}
		store.mu.Unlock()

		_, err := NewService(store, nil).Load(ctx)
		assert.ErrorIs(t, err, ioErr)
	})
}

func TestService_PublishesCommittedEvents(t *testing.T) {
	svc, _ := newTestService(t)
	pub := new(mockPublisher)
	svc.SetEventPublisher(pub)

	hasType := func(eventType string) any {
		return mock.MatchedBy(func(events []shared.DomainEvent) bool {
			for _, e := range events {
				if e.EventType() == eventType {
					return true
				}
			}
			return false
		})
	}
	pub.On("Publish", mock.Anything, hasType(inventory.EventTypeStockItemAdded)).Return(nil).Once()

	addItem(t, svc, "Beans", "3", "5", 1)
	pub.AssertExpectations(t)

	_, err := svc.Deduct(context.Background(), AdjustStockRequest{ItemID: "ITM-NONE", Quantity: 1})
	require.Error(t, err)
	pub.AssertNumberOfCalls(t, "Publish", 1)
}

func TestService_RestoreCollections(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	doc := []byte(`{
		"meeza_pos_inventory": [
			{"id": "ITM-1", "code": "123456", "name": "Lentils", "quantity": 4, "unit_cost": "2.5", "retail_price": "4"},
			"not an item",
			{"name": "no id"}
		],
		"meeza_pos_invoices": {"oops": true},
		"meeza_pos_suppliers": [
			{"id": "SUP-1", "name": "Old Supplier", "total_supplied": "1000", "total_paid": "400", "total_debt": "600", "credit_balance": "0"}
		],
		"meeza_pos_purchases": 42,
		"meeza_pos_settings": {"theme": "dark"}
	}`)

	result, err := svc.RestoreCollections(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Loaded[CollectionItems])
	assert.Equal(t, 2, result.Dropped[CollectionItems])
	assert.ElementsMatch(t, []string{CollectionSales, CollectionPurchases}, result.NotArrays)
	assert.Equal(t, 1, result.OpeningEntries)
	assert.Equal(t, []string{"meeza_pos_settings"}, result.Unknown)

	item, err := svc.GetItem(ctx, "ITM-1")
	require.NoError(t, err)
	assert.True(t, item.InventoryValue().Equal(dec("10")))
	assert.Empty(t, svc.ListSales(ctx, ListFilter{}))

	stmt, err := svc.SupplierStatement(ctx, "SUP-1")
	require.NoError(t, err)
	require.Len(t, stmt.Lines, 1)
	assert.Equal(t, partner.EntryOpening, stmt.Lines[0].Entry.Kind)
	assert.True(t, svc.Verify(ctx).OK())

	for _, name := range Collections {
		assert.Equal(t, 1, store.saveCount(name), name)
	}

	t.Run("not an object", func(t *testing.T) {
		_, err := svc.RestoreCollections(ctx, []byte(`[1,2]`))
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestService_VerifyReportsDrift(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	supplier := addSupplier(t, svc, "Drifting")
	item := addItem(t, svc, "Corn", "1", "2", 0)
	_, err := svc.CreatePurchase(ctx, CreatePurchaseRequest{
		SupplierID: supplier.ID,
		Lines:      []PurchaseLineRequest{{ItemID: item.ID, Quantity: 10, CostPrice: dec("10")}},
	})
	require.NoError(t, err)
	require.True(t, svc.Verify(ctx).OK())

	svc.read(func(st *state) {
		s, _ := st.suppliers.find(supplier.ID)
		s.TotalDebt = dec("1")
	})

	report := svc.Verify(ctx)
	assert.False(t, report.OK())
	checks := make([]string, 0, len(report.Findings))
	for _, f := range report.Findings {
		checks = append(checks, f.Check)
	}
	assert.Contains(t, checks, "supplier_drift")
	assert.Contains(t, checks, "supplier_balance")
}

func TestService_ConcurrentOperations(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	item := addItem(t, svc, "Rice", "5", "8", 0)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.Receive(ctx, ReceiveStockRequest{ItemID: item.ID, Quantity: 3, UnitCost: dec("5")})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := svc.Deduct(ctx, AdjustStockRequest{ItemID: item.ID, Quantity: 1})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := svc.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, got.Quantity, int64(40))
	assert.LessOrEqual(t, got.Quantity, int64(60))
	assert.True(t, got.UnitCost.Equal(dec("5")))

	reloaded := NewService(store, nil)
	_, err = reloaded.Load(ctx)
	require.NoError(t, err)
	stored, err := reloaded.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, got.Quantity, stored.Quantity, "the last snapshot written wins")
}
