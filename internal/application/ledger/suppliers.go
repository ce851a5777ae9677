package ledger

import (
	"context"
	"fmt"

	"github.com/edumahmoud/try-meeza-crm/internal/domain/partner"
	"github.com/edumahmoud/try-meeza-crm/internal/domain/shared"
)

// settlementIDPrefix marks ledger sources created by SettleCredit
const settlementIDPrefix = "STL"

// AddSupplier adds a supplier, or returns the active one with the same name
func (s *Service) AddSupplier(ctx context.Context, req AddSupplierRequest) (*partner.Supplier, error) {
	var out *partner.Supplier
	err := s.execute(ctx, "add_supplier", func(t *tx) error {
		for _, existing := range t.suppliers.view() {
			if !existing.Deleted() && existing.SameName(req.Name) {
				out = existing.Clone()
				return nil
			}
		}
		supplier, err := partner.NewSupplier(req.Name, req.Phone, req.TaxNumber)
		if err != nil {
			return err
		}
		t.suppliers.add(supplier)
		out = supplier.Clone()
		return nil
	})
	return out, err
}

// UpdateSupplier changes a supplier's contact details
func (s *Service) UpdateSupplier(ctx context.Context, id string, req UpdateSupplierRequest) (*partner.Supplier, error) {
	var out *partner.Supplier
	err := s.execute(ctx, "update_supplier", func(t *tx) error {
		supplier, err := t.supplier(id)
		if err != nil {
			return err
		}
		if err := supplier.Update(req.Name, req.Phone, req.TaxNumber); err != nil {
			return err
		}
		out = supplier.Clone()
		return nil
	})
	return out, err
}

// DeleteSupplier moves a supplier to the recycle bin. Suppliers with debt or
// credit cannot be deleted.
func (s *Service) DeleteSupplier(ctx context.Context, id string, req DeleteRequest) error {
	return s.execute(ctx, "delete_supplier", func(t *tx) error {
		supplier, err := t.supplier(id)
		if err != nil {
			return err
		}
		return supplier.Delete(req.Reason, t.now)
	})
}

// RestoreSupplier brings a supplier back. Balances come from the ledger.
func (s *Service) RestoreSupplier(ctx context.Context, id string) (*partner.Supplier, error) {
	var out *partner.Supplier
	err := s.execute(ctx, "restore_supplier", func(t *tx) error {
		supplier, err := t.supplier(id)
		if err != nil {
			return err
		}
		if err := supplier.Restore(); err != nil {
			return err
		}
		supplier.Refresh(t.entries)
		out = supplier.Clone()
		return nil
	})
	return out, err
}

// GetSupplier returns one supplier
func (s *Service) GetSupplier(_ context.Context, id string) (*partner.Supplier, error) {
	var out *partner.Supplier
	s.read(func(st *state) {
		if supplier, ok := st.suppliers.find(id); ok {
			out = supplier.Clone()
		}
	})
	if out == nil {
		return nil, shared.NewNotFoundError("supplier", id)
	}
	return out, nil
}

// ListSuppliers lists suppliers in the order they were added
func (s *Service) ListSuppliers(_ context.Context, filter ListFilter) []*partner.Supplier {
	out := make([]*partner.Supplier, 0)
	s.read(func(st *state) {
		for _, supplier := range st.suppliers.rows {
			if filter.keep(&supplier.SoftDelete) {
				out = append(out, supplier.Clone())
			}
		}
	})
	return out
}

// RecordPayment pays a supplier against one of its receipts. Overpayment is
// allowed: the receipt balance goes to zero and the excess becomes credit.
func (s *Service) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*PaymentResult, error) {
	var out *PaymentResult
	err := s.execute(ctx, "record_payment", func(t *tx) error {
		supplier, err := t.supplier(req.SupplierID)
		if err != nil {
			return err
		}
		p, err := t.purchase(req.PurchaseID)
		if err != nil {
			return err
		}
		if p.SupplierID != supplier.ID {
			return shared.NewDomainError(shared.CodeInvalidInput,
				fmt.Sprintf("Receipt %s does not belong to supplier %s", p.ID, supplier.ID))
		}

		notes := req.Notes
		if shared.IsBlank(notes) {
			notes = "payment for invoice #" + p.ID
		}
		// the payment, receipt and ledger entry must carry the same amount
		amount := shared.RoundMoney(req.Amount)
		payment, err := partner.NewSupplierPayment(supplier.ID, p.ID, amount, notes, t.now)
		if err != nil {
			return err
		}
		covered, err := p.ApplyPayment(amount)
		if err != nil {
			return err
		}
		entry, err := supplier.RecordPayment(payment.ID, amount, t.now)
		if err != nil {
			return err
		}
		t.post(supplier, entry)
		t.newPayments = append(t.newPayments, payment)

		out = &PaymentResult{
			Payment:  payment,
			Purchase: p.Clone(),
			Supplier: supplier.Clone(),
			Entry:    entry,
			Covered:  covered,
		}
		return nil
	})
	return out, err
}

// SettleCredit clears supplier credit, either as a cash refund from the
// supplier or by offsetting it against outstanding debt.
func (s *Service) SettleCredit(ctx context.Context, req SettleCreditRequest) (*SupplierResult, error) {
	var out *SupplierResult
	err := s.execute(ctx, "settle_credit", func(t *tx) error {
		supplier, err := t.supplier(req.SupplierID)
		if err != nil {
			return err
		}
		entry, err := supplier.SettleCredit(shared.NewID(settlementIDPrefix), shared.RoundMoney(req.Amount), partner.SettleMode(req.Mode), t.now)
		if err != nil {
			return err
		}
		t.post(supplier, entry)
		out = &SupplierResult{Supplier: supplier.Clone(), Entry: entry}
		return nil
	})
	return out, err
}

// ListPayments lists payments, optionally for one supplier
func (s *Service) ListPayments(_ context.Context, filter ListFilter) []*partner.SupplierPayment {
	out := make([]*partner.SupplierPayment, 0)
	s.read(func(st *state) {
		for _, p := range st.payments {
			if filter.SupplierID == "" || p.SupplierID == filter.SupplierID {
				c := *p
				out = append(out, &c)
			}
		}
	})
	return out
}

// SupplierStatement returns a supplier's ledger entries with running totals
func (s *Service) SupplierStatement(_ context.Context, supplierID string) (*SupplierStatement, error) {
	var out *SupplierStatement
	s.read(func(st *state) {
		supplier, ok := st.suppliers.find(supplierID)
		if !ok {
			return
		}
		out = &SupplierStatement{
			Supplier: supplier.Clone(),
			Lines:    partner.Statement(supplierID, st.entries),
			Payments: make([]*partner.SupplierPayment, 0),
		}
		for _, p := range st.payments {
			if p.SupplierID == supplierID {
				c := *p
				out.Payments = append(out.Payments, &c)
			}
		}
	})
	if out == nil {
		return nil, shared.NewNotFoundError("supplier", supplierID)
	}
	return out, nil
}
