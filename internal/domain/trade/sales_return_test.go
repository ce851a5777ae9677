package trade

import (
	"errors"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/edumahmoud/try-meeza-crm/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discountedSale(t *testing.T) *Sale {
	t.Helper()
	sale, err := NewSale([]SaleLine{
		saleLine("A", 5, "100", "60"),
		saleLine("B", 5, "100", "70"),
	}, Discount{Type: DiscountPercentage, Value: dec("10")}, "", "", "")
	require.NoError(t, err)
	return sale
}

func TestNewSaleReturn_ProportionalRefund(t *testing.T) {
	sale := discountedSale(t)

	ret, err := NewSaleReturn(sale, nil, map[string]int64{"A": 2})

	require.NoError(t, err)
	assert.Regexp(t, `^RET-[0-9A-F]{12}$`, ret.ID)
	require.Len(t, ret.Lines, 1)
	assert.Equal(t, "180.00", ret.Lines[0].RefundAmount.StringFixed(2))
	assert.Equal(t, "180.00", ret.TotalRefund.StringFixed(2))
	assert.Equal(t, "60", ret.Lines[0].CostAtSale.String())
	assert.False(t, ret.CompletesSale)
}

func TestNewSaleReturn_Caps(t *testing.T) {
	sale := discountedSale(t)
	first, err := NewSaleReturn(sale, nil, map[string]int64{"A": 3})
	require.NoError(t, err)
	prior := []*SaleReturn{first}

	t.Run("rejects more than what is left", func(t *testing.T) {
		_, err := NewSaleReturn(sale, prior, map[string]int64{"A": 3})

		var exceeded *ReturnQuantityExceededError
		require.True(t, errors.As(err, &exceeded))
		assert.Equal(t, "A", exceeded.ItemID)
		assert.Equal(t, int64(3), exceeded.Requested)
		assert.Equal(t, int64(2), exceeded.Available)
		assert.ErrorIs(t, err, ErrReturnQuantityExceeded)

		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, CodeReturnQuantityExceeded, de.Code)
	})

	t.Run("deleted returns do not count", func(t *testing.T) {
		deleted := first.Clone()
		require.NoError(t, deleted.Delete("entered twice", 1))

		_, err := NewSaleReturn(sale, []*SaleReturn{deleted}, map[string]int64{"A": 5})
		assert.NoError(t, err)
	})

	t.Run("nothing requested", func(t *testing.T) {
		_, err := NewSaleReturn(sale, prior, map[string]int64{"A": 0})
		assert.ErrorIs(t, err, shared.ErrNothingToReturn)
	})

	t.Run("negative quantity", func(t *testing.T) {
		_, err := NewSaleReturn(sale, prior, map[string]int64{"A": -1})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("unknown item", func(t *testing.T) {
		_, err := NewSaleReturn(sale, prior, map[string]int64{"Z": 1})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("deleted sale", func(t *testing.T) {
		gone := sale.Clone()
		require.NoError(t, gone.Delete("void", 1))
		_, err := NewSaleReturn(gone, prior, map[string]int64{"A": 1})
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})
}

func TestNewSaleReturn_FullReturnMatchesNetTotal(t *testing.T) {
	// 100.00 - 33.33 over three lines gives a multiplier that does not divide evenly
	sale, err := NewSale([]SaleLine{
		saleLine("A", 1, "33.33", "10"),
		saleLine("B", 1, "33.33", "10"),
		saleLine("C", 1, "33.34", "10"),
	}, Discount{Type: DiscountFixed, Value: dec("33.33")}, "", "", "")
	require.NoError(t, err)

	ret, err := NewSaleReturn(sale, nil, map[string]int64{"A": 1, "B": 1, "C": 1})

	require.NoError(t, err)
	assert.True(t, ret.CompletesSale)
	assert.True(t, ret.TotalRefund.Equal(sale.NetTotal), "refund %s net %s", ret.TotalRefund, sale.NetTotal)

	sum := decimal.Zero
	for _, l := range ret.Lines {
		sum = sum.Add(l.RefundAmount)
	}
	assert.True(t, sum.Equal(ret.TotalRefund))
}

func TestNewSaleReturn_RefundsNeverExceedNetTotal(t *testing.T) {
	// four lines of 0.01 with 0.02 off: each single-unit refund rounds up to 0.01
	sale, err := NewSale([]SaleLine{
		saleLine("A", 1, "0.01", "0"),
		saleLine("B", 1, "0.01", "0"),
		saleLine("C", 1, "0.01", "0"),
		saleLine("D", 1, "0.01", "0"),
	}, Discount{Type: DiscountFixed, Value: dec("0.02")}, "", "", "")
	require.NoError(t, err)
	require.Equal(t, "0.02", sale.NetTotal.StringFixed(2))

	var returns []*SaleReturn
	for _, id := range []string{"A", "B", "C", "D"} {
		ret, err := NewSaleReturn(sale, returns, map[string]int64{id: 1})
		require.NoError(t, err)
		assert.False(t, ret.TotalRefund.IsNegative(), "return of %s refunds %s", id, ret.TotalRefund)
		for _, l := range ret.Lines {
			assert.False(t, l.RefundAmount.IsNegative())
		}
		returns = append(returns, ret)
		assert.True(t, RefundedTotal(sale.ID, returns, "").LessThanOrEqual(sale.NetTotal))
	}

	last := returns[len(returns)-1]
	assert.True(t, last.CompletesSale)
	assert.True(t, last.TotalRefund.IsZero())
	assert.True(t, RefundedTotal(sale.ID, returns, "").Equal(sale.NetTotal))
}

func TestSettleRefund(t *testing.T) {
	t.Run("increase lands on the last line", func(t *testing.T) {
		lines := []SaleReturnLine{{RefundAmount: dec("1.00")}, {RefundAmount: dec("2.00")}}
		total := settleRefund(lines, dec("3.00"), dec("3.01"))
		assert.Equal(t, "3.01", total.StringFixed(2))
		assert.Equal(t, "2.01", lines[1].RefundAmount.StringFixed(2))
	})

	t.Run("decrease spills over lines without going negative", func(t *testing.T) {
		lines := []SaleReturnLine{{RefundAmount: dec("0.05")}, {RefundAmount: dec("0.01")}}
		total := settleRefund(lines, dec("0.06"), dec("0.03"))
		assert.Equal(t, "0.03", total.StringFixed(2))
		assert.Equal(t, "0.03", lines[0].RefundAmount.StringFixed(2))
		assert.True(t, lines[1].RefundAmount.IsZero())
	})
}

func TestReturnableQuantities(t *testing.T) {
	sale := discountedSale(t)
	first, err := NewSaleReturn(sale, nil, map[string]int64{"B": 4})
	require.NoError(t, err)

	got := ReturnableQuantities(sale, []*SaleReturn{first})

	require.Len(t, got, 2)
	assert.Equal(t, Returnable{ItemID: "A", ItemName: "item A", UnitPrice: dec("100"), Sold: 5, Returned: 0, Available: 5}, got[0])
	assert.Equal(t, int64(4), got[1].Returned)
	assert.Equal(t, int64(1), got[1].Available)
}

func TestSaleReturn_CheckRestorable(t *testing.T) {
	sale := discountedSale(t)
	first, err := NewSaleReturn(sale, nil, map[string]int64{"A": 3})
	require.NoError(t, err)
	require.NoError(t, first.Delete("mistake", 1))

	second, err := NewSaleReturn(sale, []*SaleReturn{first}, map[string]int64{"A": 4})
	require.NoError(t, err)

	err = first.CheckRestorable(sale, []*SaleReturn{first, second})
	assert.ErrorIs(t, err, ErrReturnQuantityExceeded)

	require.NoError(t, second.Delete("mistake", 2))
	assert.NoError(t, first.CheckRestorable(sale, []*SaleReturn{first, second}))
	require.NoError(t, first.Restore())
	assert.False(t, first.Deleted())
}

func TestSaleReturn_RandomSequencesRespectCaps(t *testing.T) {
	f := gofakeit.New(2024)

	for run := 0; run < 100; run++ {
		var lines []SaleLine
		n := f.IntRange(1, 5)
		for i := 0; i < n; i++ {
			id := string(rune('A' + i))
			lines = append(lines, SaleLine{
				ItemID:    id,
				ItemName:  id,
				Quantity:  int64(f.IntRange(1, 20)),
				UnitPrice: decimal.New(int64(f.IntRange(1, 50000)), -2),
			})
		}
		discount := Discount{Type: DiscountPercentage, Value: decimal.New(int64(f.IntRange(0, 10000)), -2)}
		if f.Bool() {
			gross := int64(0)
			for _, l := range lines {
				gross += l.Quantity * l.UnitPrice.Shift(2).IntPart()
			}
			discount = Discount{Type: DiscountFixed, Value: decimal.New(f.Int64()%(gross+1), -2).Abs()}
		}
		sale, err := NewSale(lines, discount, "", "", "")
		require.NoError(t, err)

		var returns []*SaleReturn
		for step := 0; step < 30; step++ {
			req := map[string]int64{}
			for _, l := range sale.Lines {
				req[l.ItemID] = int64(f.IntRange(0, int(l.Quantity)))
			}
			ret, err := NewSaleReturn(sale, returns, req)
			if err != nil {
				continue
			}
			require.False(t, ret.TotalRefund.IsNegative(), "refund %s", ret.TotalRefund)
			for _, l := range ret.Lines {
				require.False(t, l.RefundAmount.IsNegative(), "line refund %s", l.RefundAmount)
			}
			returns = append(returns, ret)
			require.True(t, RefundedTotal(sale.ID, returns, "").LessThanOrEqual(sale.NetTotal),
				"refunded %s of net %s", RefundedTotal(sale.ID, returns, ""), sale.NetTotal)
		}

		returned := ReturnedQuantities(sale.ID, returns, "")
		complete := true
		for _, l := range sale.Lines {
			require.LessOrEqual(t, returned[l.ItemID], l.Quantity)
			if returned[l.ItemID] < l.Quantity {
				complete = false
			}
		}
		if complete {
			assert.True(t, shared.WithinTolerance(RefundedTotal(sale.ID, returns, ""), sale.NetTotal))
		}
	}
}
