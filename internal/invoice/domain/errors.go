package domain

import "errors"

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidInvoiceID    = errors.New("invalid_invoice_id")
	ErrInvalidCustomer     = errors.New("invalid_customer")
	ErrInvalidCurrency     = errors.New("invalid_currency")
	ErrInvalidQuantity     = errors.New("invalid_quantity")
	ErrInvalidLine         = errors.New("invalid_line")
	ErrInvoiceNotFound     = errors.New("invoice_not_found")
	ErrHeadNotFound        = errors.New("invoice_head_not_found")
	ErrLineNotFound        = errors.New("invoice_line_not_found")
	ErrDiscountNotFound    = errors.New("invoice_discount_not_found")
	ErrTaxLineNotFound     = errors.New("invoice_tax_line_not_found")
	ErrEmptyInvoice        = errors.New("invoice_has_no_lines")
	ErrCouponNotFound      = errors.New("coupon_not_found")
	ErrTaxRateNotFound     = errors.New("tax_rate_not_found")
	ErrPriceNotFound       = errors.New("price_not_found")
	ErrNumberExhausted     = errors.New("invoice_number_retries_exhausted")
)
