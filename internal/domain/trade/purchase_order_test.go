package trade

import (
	"testing"

	"github.com/edumahmoud/try-meeza-crm/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func purchaseLine(itemID string, qty int64, cost string) PurchaseLine {
	return PurchaseLine{ItemID: itemID, ItemName: "item " + itemID, Quantity: qty, CostPrice: dec(cost)}
}

// newReceipt makes a 100-unit receipt of item A worth total
func newReceipt(t *testing.T, total, paid string) *Purchase {
	t.Helper()
	line := purchaseLine("A", 100, "0")
	line.CostPrice = dec(total).Div(decimal.NewFromInt(100))
	p, err := NewPurchase("SUP-1", "Delta Foods", "", []PurchaseLine{line}, dec(paid))
	require.NoError(t, err)
	return p
}

func TestNewPurchase(t *testing.T) {
	t.Run("credit receipt", func(t *testing.T) {
		p, err := NewPurchase("SUP-1", "Delta Foods", "F-77", []PurchaseLine{
			purchaseLine("A", 10, "5"),
			purchaseLine("B", 4, "12.5"),
		}, dec("40"))

		require.NoError(t, err)
		assert.Regexp(t, `^PUR-[0-9A-F]{12}$`, p.ID)
		assert.Equal(t, "100.00", p.TotalAmount.StringFixed(2))
		assert.Equal(t, "60.00", p.RemainingAmount.StringFixed(2))
		assert.Equal(t, PaymentStatusCredit, p.PaymentStatus)
		assert.Equal(t, "50.00", p.Lines[1].Subtotal.StringFixed(2))
	})

	t.Run("cash receipt", func(t *testing.T) {
		p, err := NewPurchase("SUP-1", "", "", []PurchaseLine{purchaseLine("A", 2, "5")}, dec("10"))
		require.NoError(t, err)
		assert.Equal(t, PaymentStatusCash, p.PaymentStatus)
		assert.True(t, p.RemainingAmount.IsZero())
	})

	t.Run("validation", func(t *testing.T) {
		lines := []PurchaseLine{purchaseLine("A", 2, "5")}

		_, err := NewPurchase("SUP-1", "", "", lines, dec("11"))
		assert.ErrorIs(t, err, shared.ErrInvalidInput)

		_, err = NewPurchase("SUP-1", "", "", lines, dec("-1"))
		assert.ErrorIs(t, err, shared.ErrInvalidInput)

		_, err = NewPurchase("", "", "", lines, decimal.Zero)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)

		_, err = NewPurchase("SUP-1", "", "", []PurchaseLine{purchaseLine("A", 0, "5")}, decimal.Zero)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)

		_, err = NewPurchase("SUP-1", "", "", []PurchaseLine{purchaseLine("A", 1, "-5")}, decimal.Zero)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)

		_, err = NewPurchase("SUP-1", "", "", []PurchaseLine{purchaseLine("A", 1, "5"), purchaseLine("A", 1, "5")}, decimal.Zero)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestPurchase_ApplyPayment(t *testing.T) {
	t.Run("partial payment", func(t *testing.T) {
		p := newReceipt(t, "1000", "400")

		covered, err := p.ApplyPayment(dec("150"))

		require.NoError(t, err)
		assert.Equal(t, "150", covered.String())
		assert.Equal(t, "450.00", p.RemainingAmount.StringFixed(2))
		assert.True(t, p.RemainingAmount.Equal(p.TotalAmount.Sub(p.PaidAmount)))
	})

	t.Run("overpayment drives remaining to zero", func(t *testing.T) {
		p := newReceipt(t, "1000", "800")

		covered, err := p.ApplyPayment(dec("500"))

		require.NoError(t, err)
		assert.Equal(t, "200", covered.String())
		assert.True(t, p.RemainingAmount.IsZero())
		assert.Equal(t, "1300.00", p.PaidAmount.StringFixed(2))
	})

	t.Run("rejects non positive amounts", func(t *testing.T) {
		p := newReceipt(t, "1000", "0")
		_, err := p.ApplyPayment(decimal.Zero)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}
