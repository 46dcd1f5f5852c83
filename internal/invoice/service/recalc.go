package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/billora/billora/internal/billing"
	invoicedomain "github.com/billora/billora/internal/invoice/domain"
	pricingdomain "github.com/billora/billora/internal/pricing/domain"
	"github.com/billora/billora/pkg/money"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type discountRow struct {
	ID         snowflake.ID
	LineID     *snowflake.ID
	CouponID   snowflake.ID
	Position   int
	Name       string
	Amount     *decimal.Decimal
	Percentage *decimal.Decimal
	Currency   string
}

type taxRow struct {
	ID         snowflake.ID
	LineID     *snowflake.ID
	TaxRateID  snowflake.ID
	Position   int
	Name       string
	Percentage decimal.Decimal
}

// RecalculateInTx rebuilds totals for an invoice loaded fresh inside the
// caller's transaction. Internal collaborators (credit notes) use this
// after mutating the credited trackers.
func (s *Service) RecalculateInTx(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID) error {
	var invoice invoicedomain.Invoice
	if err := tx.WithContext(ctx).Where("id = ?", invoiceID).First(&invoice).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return invoicedomain.ErrInvoiceNotFound
		}
		return err
	}
	return s.recalcAndPersist(ctx, tx, &invoice)
}

// recalcAndPersist rebuilds every derived amount on the invoice and writes
// lines, allocation rows and the invoice header inside the caller's
// transaction. Nothing else writes total fields.
func (s *Service) recalcAndPersist(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.Invoice) error {
	lines, err := s.listLines(ctx, tx, invoice.ID)
	if err != nil {
		return err
	}
	discounts, err := s.listDiscountRows(ctx, tx, invoice.ID)
	if err != nil {
		return err
	}
	taxes, err := s.listTaxRows(ctx, tx, invoice.ID)
	if err != nil {
		return err
	}

	input, err := s.buildDocumentInput(ctx, tx, invoice, lines, discounts, taxes)
	if err != nil {
		return err
	}

	totals, err := billing.Recalculate(input)
	if err != nil {
		return err
	}

	for i := range lines {
		lt := totals.Lines[i]
		line := lines[i]

		outstandingAmount := lt.TotalAmount.Amount.Sub(line.CreditedAmount)
		if outstandingAmount.IsNegative() {
			outstandingAmount = decimal.Zero
		}

		if err := tx.WithContext(ctx).Exec(
			`UPDATE invoice_lines
			 SET unit_amount = ?, amount = ?, total_discount = ?, total_excluding_tax = ?,
			     total_tax = ?, total_amount = ?, outstanding_quantity = ?, outstanding_amount = ?,
			     updated_at = ?
			 WHERE id = ?`,
			lt.UnitAmount.Amount,
			lt.Amount.Amount,
			lt.TotalDiscount.Amount,
			lt.ExcludingTax.Amount,
			lt.TotalTax.Amount,
			lt.TotalAmount.Amount,
			line.Quantity-line.CreditedQuantity,
			outstandingAmount,
			s.clock.Now(),
			line.ID,
		).Error; err != nil {
			return err
		}
	}

	discountEntries := append([]billing.AllocationEntry{}, totals.Discounts...)
	taxEntries := append([]billing.AllocationEntry{}, totals.Taxes...)
	for _, lt := range totals.Lines {
		discountEntries = append(discountEntries, lt.Discounts...)
		taxEntries = append(taxEntries, lt.Taxes...)
	}
	for _, entry := range discountEntries {
		if err := tx.WithContext(ctx).Exec(
			`UPDATE invoice_discounts SET amount = ? WHERE id = ?`,
			entry.Amount.Amount, entry.ID,
		).Error; err != nil {
			return err
		}
	}
	for _, entry := range taxEntries {
		if err := tx.WithContext(ctx).Exec(
			`UPDATE invoice_tax_lines SET amount = ? WHERE id = ?`,
			entry.Amount.Amount, entry.ID,
		).Error; err != nil {
			return err
		}
	}

	invoice.Subtotal = totals.Subtotal.Amount
	invoice.TotalDiscount = totals.TotalDiscount.Amount
	invoice.TotalExcludingTax = totals.ExcludingTax.Amount
	invoice.TotalTax = totals.TotalTax.Amount
	invoice.TotalAmount = totals.TotalAmount.Amount
	invoice.Outstanding = totals.Outstanding.Amount
	invoice.UpdatedAt = s.clock.Now()

	if err := tx.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET subtotal = ?, total_discount = ?, total_excluding_tax = ?, total_tax = ?,
		     total_amount = ?, outstanding = ?, updated_at = ?
		 WHERE id = ?`,
		invoice.Subtotal,
		invoice.TotalDiscount,
		invoice.TotalExcludingTax,
		invoice.TotalTax,
		invoice.TotalAmount,
		invoice.Outstanding,
		invoice.UpdatedAt,
		invoice.ID,
	).Error; err != nil {
		return err
	}

	invoice.Lines, err = s.listLines(ctx, tx, invoice.ID)
	return err
}

func (s *Service) buildDocumentInput(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.Invoice, lines []invoicedomain.InvoiceLine, discounts []discountRow, taxes []taxRow) (billing.DocumentInput, error) {
	input := billing.DocumentInput{
		Currency:      invoice.Currency,
		TotalCredited: money.New(invoice.TotalCredited, invoice.Currency),
		TotalPaid:     money.New(invoice.TotalPaid, invoice.Currency),
	}

	lineDiscounts := make(map[snowflake.ID][]billing.CouponSpec)
	for _, row := range discounts {
		spec := billing.CouponSpec{
			ID:         row.ID,
			Name:       row.Name,
			Percentage: row.Percentage,
		}
		if row.Amount != nil {
			fixed := money.New(*row.Amount, row.Currency)
			spec.Amount = &fixed
		}
		if row.LineID == nil {
			input.Discounts = append(input.Discounts, spec)
			continue
		}
		lineDiscounts[*row.LineID] = append(lineDiscounts[*row.LineID], spec)
	}

	lineTaxes := make(map[snowflake.ID][]billing.TaxRateSpec)
	for _, row := range taxes {
		spec := billing.TaxRateSpec{
			ID:         row.ID,
			Name:       row.Name,
			Percentage: row.Percentage,
		}
		if row.LineID == nil {
			input.TaxRates = append(input.TaxRates, spec)
			continue
		}
		lineTaxes[*row.LineID] = append(lineTaxes[*row.LineID], spec)
	}

	for _, line := range lines {
		li := billing.LineInput{
			ID:        line.ID,
			Quantity:  line.Quantity,
			Discounts: lineDiscounts[line.ID],
			TaxRates:  lineTaxes[line.ID],
		}
		if line.PriceID != nil {
			price, tiers, err := s.loadPrice(ctx, tx, invoice.OrgID, *line.PriceID)
			if err != nil {
				return billing.DocumentInput{}, err
			}
			li.Price = price
			li.Tiers = tiers
		} else {
			unit := money.New(line.UnitAmount, invoice.Currency)
			li.UnitAmount = &unit
		}
		input.Lines = append(input.Lines, li)
	}

	return input, nil
}

func (s *Service) listLines(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID) ([]invoicedomain.InvoiceLine, error) {
	var lines []invoicedomain.InvoiceLine
	err := tx.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("position ASC").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *Service) listDiscountRows(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID) ([]discountRow, error) {
	var rows []discountRow
	err := tx.WithContext(ctx).Raw(
		`SELECT d.id, d.line_id, d.coupon_id, d.position,
		        c.name, c.amount, c.percentage, c.currency
		 FROM invoice_discounts d
		 JOIN coupons c ON c.id = d.coupon_id
		 WHERE d.invoice_id = ?
		 ORDER BY d.position ASC`,
		invoiceID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Service) listTaxRows(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID) ([]taxRow, error) {
	var rows []taxRow
	err := tx.WithContext(ctx).Raw(
		`SELECT l.id, l.line_id, l.tax_rate_id, l.position,
		        t.name, t.percentage
		 FROM invoice_tax_lines l
		 JOIN tax_rates t ON t.id = l.tax_rate_id
		 WHERE l.invoice_id = ?
		 ORDER BY l.position ASC`,
		invoiceID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Service) loadPrice(ctx context.Context, tx *gorm.DB, orgID, priceID snowflake.ID) (*pricingdomain.Price, []pricingdomain.PriceTier, error) {
	var price pricingdomain.Price
	err := tx.WithContext(ctx).
		Where("id = ? AND org_id = ?", priceID, orgID).
		First(&price).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, invoicedomain.ErrPriceNotFound
		}
		return nil, nil, err
	}

	var tiers []pricingdomain.PriceTier
	err = tx.WithContext(ctx).
		Where("price_id = ?", price.ID).
		Order("from_quantity ASC").
		Find(&tiers).Error
	if err != nil {
		return nil, nil, err
	}
	return &price, tiers, nil
}
