package ledger

import (
	"github.com/edumahmoud/try-meeza-crm/internal/domain/inventory"
	"github.com/edumahmoud/try-meeza-crm/internal/domain/partner"
	"github.com/edumahmoud/try-meeza-crm/internal/domain/shared"
	"github.com/edumahmoud/try-meeza-crm/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// ReceiveStockRequest represents a receipt of stock at a unit cost
type ReceiveStockRequest struct {
	ItemID   string          `json:"item_id" binding:"required"`
	Quantity int64           `json:"quantity" binding:"min=0"`
	UnitCost decimal.Decimal `json:"unit_cost"`
}

// AdjustStockRequest represents a deduction or restock
type AdjustStockRequest struct {
	ItemID   string `json:"item_id" binding:"required"`
	Quantity int64  `json:"quantity" binding:"min=0"`
	Source   string `json:"source"`
}

// StockAdjustment reports a deduction or restock as requested and as applied
type StockAdjustment struct {
	ItemID        string `json:"item_id"`
	Requested     int64  `json:"requested"`
	Applied       int64  `json:"applied"`
	QuantityAfter int64  `json:"quantity_after"`
}

// Clamped reports whether less was applied than requested
func (a StockAdjustment) Clamped() bool {
	return a.Applied < a.Requested
}

// AddItemRequest represents a request to add an item to the catalogue
type AddItemRequest struct {
	Name         string          `json:"name" binding:"max=200"`
	Description  string          `json:"description" binding:"max=2000"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	RetailPrice  decimal.Decimal `json:"retail_price"`
	InitialStock int64           `json:"initial_stock" binding:"min=0"`
}

// UpdateItemRequest represents a partial item update
type UpdateItemRequest struct {
	Name        *string          `json:"name" binding:"omitempty,max=200"`
	Description *string          `json:"description" binding:"omitempty,max=2000"`
	RetailPrice *decimal.Decimal `json:"retail_price"`
}

// DeleteRequest carries the reason a record goes to the recycle bin
type DeleteRequest struct {
	Reason string `json:"reason"`
}

// ListFilter selects records for list queries
type ListFilter struct {
	IncludeDeleted bool   `form:"include_deleted"`
	OnlyDeleted    bool   `form:"only_deleted"`
	SupplierID     string `form:"supplier_id"`
	SaleID         string `form:"sale_id"`
}

func (f ListFilter) keep(d *shared.SoftDelete) bool {
	if f.OnlyDeleted {
		return d.Deleted()
	}
	return f.IncludeDeleted || !d.Deleted()
}

// DiscountRequest represents a sale discount
type DiscountRequest struct {
	Type  string          `json:"type" binding:"omitempty,oneof=percentage fixed"`
	Value decimal.Decimal `json:"value"`
}

// SaleLineRequest is one line of a new sale. UnitPrice defaults to the
// item's retail price.
type SaleLineRequest struct {
	ItemID    string           `json:"item_id" binding:"required"`
	Quantity  int64            `json:"quantity" binding:"required,min=1"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

// CreateSaleRequest represents a request to record a sale
type CreateSaleRequest struct {
	Lines         []SaleLineRequest `json:"lines" binding:"required,min=1,dive"`
	Discount      DiscountRequest   `json:"discount"`
	CustomerName  string            `json:"customer_name" binding:"max=200"`
	CustomerPhone string            `json:"customer_phone" binding:"max=50"`
	Notes         string            `json:"notes" binding:"max=2000"`
}

// CreateSaleResult is the sale together with what stock was actually taken
type CreateSaleResult struct {
	Sale        *trade.Sale       `json:"sale"`
	Deductions  []StockAdjustment `json:"deductions"`
	ShortLines  int               `json:"short_lines"`
	CostOfGoods decimal.Decimal   `json:"cost_of_goods"`
}

// ReturnLineRequest is a quantity of one item to return
type ReturnLineRequest struct {
	ItemID   string `json:"item_id" binding:"required"`
	Quantity int64  `json:"quantity" binding:"min=0"`
}

// CreateSaleReturnRequest represents a customer return
type CreateSaleReturnRequest struct {
	SaleID string              `json:"sale_id" binding:"required"`
	Lines  []ReturnLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// SaleReturnResult is a return with the stock movements it caused
type SaleReturnResult struct {
	Return   *trade.SaleReturn `json:"return"`
	Sale     *trade.Sale       `json:"sale"`
	Restocks []StockAdjustment `json:"restocks"`
}

// PurchaseLineRequest is one line of a receipt. Lines without an item id
// create a new item called Name.
type PurchaseLineRequest struct {
	ItemID      string           `json:"item_id"`
	Name        string           `json:"name" binding:"required_without=ItemID,max=200"`
	Quantity    int64            `json:"quantity" binding:"required,min=1"`
	CostPrice   decimal.Decimal  `json:"cost_price"`
	RetailPrice *decimal.Decimal `json:"retail_price"`
	Notes       string           `json:"notes" binding:"max=2000"`
}

// CreatePurchaseRequest represents a supplier receipt
type CreatePurchaseRequest struct {
	SupplierID            string                `json:"supplier_id" binding:"required"`
	SupplierInvoiceNumber string                `json:"supplier_invoice_number" binding:"max=100"`
	Lines                 []PurchaseLineRequest `json:"lines" binding:"required,min=1,dive"`
	PaidAmount            decimal.Decimal       `json:"paid_amount"`
}

// PurchaseResult is a receipt with the supplier balances after it
type PurchaseResult struct {
	Purchase *trade.Purchase             `json:"purchase"`
	Supplier *partner.Supplier           `json:"supplier"`
	Entry    *partner.SupplierLedgerEntry `json:"ledger_entry,omitempty"`
	Created  []*inventory.StockItem      `json:"created_items,omitempty"`
}

// ReturnPurchaseRequest represents stock sent back against a receipt
type ReturnPurchaseRequest struct {
	PurchaseID string              `json:"purchase_id" binding:"required"`
	Lines      []ReturnLineRequest `json:"lines" binding:"required,min=1,dive"`
	Reason     string              `json:"reason"`
}

// PurchaseReturnResult is the applied return with the balances after it
type PurchaseReturnResult struct {
	Return   *trade.PurchaseReturn        `json:"return"`
	Purchase *trade.Purchase              `json:"purchase"`
	Supplier *partner.Supplier            `json:"supplier"`
	Entry    *partner.SupplierLedgerEntry `json:"ledger_entry"`
	// Stock lists the restocked lines of a restore. Items purged from the
	// bin are listed with nothing applied.
	Stock []StockAdjustment `json:"stock,omitempty"`
}

// AddSupplierRequest represents a request to add a supplier
type AddSupplierRequest struct {
	Name      string `json:"name" binding:"required,min=1,max=200"`
	Phone     string `json:"phone" binding:"max=50"`
	TaxNumber string `json:"tax_number" binding:"max=50"`
}

// UpdateSupplierRequest represents a request to change supplier contact details
type UpdateSupplierRequest struct {
	Name      string `json:"name" binding:"max=200"`
	Phone     string `json:"phone" binding:"max=50"`
	TaxNumber string `json:"tax_number" binding:"max=50"`
}

// RecordPaymentRequest represents a payment to a supplier against a receipt
type RecordPaymentRequest struct {
	SupplierID string          `json:"supplier_id" binding:"required"`
	PurchaseID string          `json:"purchase_id" binding:"required"`
	Amount     decimal.Decimal `json:"amount"`
	Notes      string          `json:"notes" binding:"max=500"`
}

// PaymentResult is a payment with the receipt and supplier after it
type PaymentResult struct {
	Payment  *partner.SupplierPayment     `json:"payment"`
	Purchase *trade.Purchase              `json:"purchase"`
	Supplier *partner.Supplier            `json:"supplier"`
	Entry    *partner.SupplierLedgerEntry `json:"ledger_entry"`
	// Covered is the part of the payment that went against the receipt balance
	Covered decimal.Decimal `json:"covered"`
}

// SettleCreditRequest represents clearing supplier credit
type SettleCreditRequest struct {
	SupplierID string          `json:"supplier_id" binding:"required"`
	Amount     decimal.Decimal `json:"amount"`
	Mode       string          `json:"mode" binding:"required,oneof=refund offset"`
}

// SupplierResult is a supplier with the ledger entry a change posted
type SupplierResult struct {
	Supplier *partner.Supplier            `json:"supplier"`
	Entry    *partner.SupplierLedgerEntry `json:"ledger_entry,omitempty"`
}

// SupplierStatement is a supplier's ledger with running balances
type SupplierStatement struct {
	Supplier *partner.Supplier        `json:"supplier"`
	Lines    []partner.StatementLine  `json:"lines"`
	Payments []*partner.SupplierPayment `json:"payments"`
}

func toQuantities(lines []ReturnLineRequest) map[string]int64 {
	out := make(map[string]int64, len(lines))
	for _, l := range lines {
		out[l.ItemID] += l.Quantity
	}
	return out
}
