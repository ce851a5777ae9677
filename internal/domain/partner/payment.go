package partner

import (
	"fmt"
	"strings"

	"github.com/edumahmoud/try-meeza-crm/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PaymentIDPrefix is the identifier prefix for supplier payments
const PaymentIDPrefix = "PAY"

// SupplierPayment is money paid to a supplier against a receipt. It is
// never changed after creation.
type SupplierPayment struct {
	shared.BaseEntity
	SupplierID string          `json:"supplier_id"`
	PurchaseID string          `json:"purchase_id,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Notes      string          `json:"notes,omitempty"`
	Timestamp  int64           `json:"timestamp"`
}

// NewSupplierPayment creates a payment. Notes default to a reference to the receipt.
func NewSupplierPayment(supplierID, purchaseID string, amount decimal.Decimal, notes string, atMillis int64) (*SupplierPayment, error) {
	if supplierID == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Supplier cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Payment amount must be positive")
	}
	notes = strings.TrimSpace(notes)
	if notes == "" && purchaseID != "" {
		notes = fmt.Sprintf("payment for invoice #%s", purchaseID)
	}
	return &SupplierPayment{
		BaseEntity: shared.NewBaseEntity(PaymentIDPrefix),
		SupplierID: supplierID,
		PurchaseID: purchaseID,
		Amount:     shared.RoundMoney(amount),
		Notes:      notes,
		Timestamp:  atMillis,
	}, nil
}
