package server

import (
	"errors"
	"net/http"

	"github.com/billora/billora/internal/billing"
	coupondomain "github.com/billora/billora/internal/coupon/domain"
	creditnotedomain "github.com/billora/billora/internal/creditnote/domain"
	customerdomain "github.com/billora/billora/internal/customer/domain"
	invoicedomain "github.com/billora/billora/internal/invoice/domain"
	"github.com/billora/billora/internal/lifecycle"
	numberingdomain "github.com/billora/billora/internal/numbering/domain"
	orgdomain "github.com/billora/billora/internal/organization/domain"
	paymentdomain "github.com/billora/billora/internal/payment/domain"
	pricingdomain "github.com/billora/billora/internal/pricing/domain"
	productdomain "github.com/billora/billora/internal/product/domain"
	quotedomain "github.com/billora/billora/internal/quote/domain"
	taxdomain "github.com/billora/billora/internal/tax/domain"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidRequest = errors.New("invalid_request")
)

// ErrorHandlingMiddleware converts errors recorded on the gin context into
// a JSON error body. Handlers report failures through AbortWithError.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return ErrInvalidRequest
}

func mapError(err error) (int, errorPayload) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: err.Error(),
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, orgdomain.ErrNotFound),
		errors.Is(err, customerdomain.ErrNotFound),
		errors.Is(err, productdomain.ErrNotFound),
		errors.Is(err, pricingdomain.ErrNotFound),
		errors.Is(err, coupondomain.ErrNotFound),
		errors.Is(err, taxdomain.ErrNotFound),
		errors.Is(err, numberingdomain.ErrNumberingSystemNotFound),
		errors.Is(err, invoicedomain.ErrInvoiceNotFound),
		errors.Is(err, invoicedomain.ErrHeadNotFound),
		errors.Is(err, invoicedomain.ErrLineNotFound),
		errors.Is(err, invoicedomain.ErrDiscountNotFound),
		errors.Is(err, invoicedomain.ErrTaxLineNotFound),
		errors.Is(err, invoicedomain.ErrCouponNotFound),
		errors.Is(err, invoicedomain.ErrTaxRateNotFound),
		errors.Is(err, invoicedomain.ErrPriceNotFound),
		errors.Is(err, creditnotedomain.ErrCreditNoteNotFound),
		errors.Is(err, quotedomain.ErrQuoteNotFound),
		errors.Is(err, quotedomain.ErrQuoteLineNotFound),
		errors.Is(err, quotedomain.ErrCouponNotFound),
		errors.Is(err, quotedomain.ErrTaxRateNotFound),
		errors.Is(err, paymentdomain.ErrPaymentNotFound):
		return true
	}
	return false
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, lifecycle.ErrNotEditable),
		errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, numberingdomain.ErrNumberingSystemExists),
		errors.Is(err, creditnotedomain.ErrInvoiceNotCreditable),
		errors.Is(err, creditnotedomain.ErrExceedsOutstanding),
		errors.Is(err, invoicedomain.ErrNumberExhausted),
		errors.Is(err, creditnotedomain.ErrNumberExhausted),
		errors.Is(err, quotedomain.ErrNumberExhausted),
		errors.Is(err, pricingdomain.ErrPriceArchived):
		return true
	}
	return false
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, billing.ErrCurrencyMismatch),
		errors.Is(err, billing.ErrMissingAmount),
		errors.Is(err, orgdomain.ErrInvalidOrganization),
		errors.Is(err, customerdomain.ErrInvalidName),
		errors.Is(err, customerdomain.ErrInvalidID),
		errors.Is(err, productdomain.ErrInvalidCode),
		errors.Is(err, productdomain.ErrInvalidName),
		errors.Is(err, productdomain.ErrInvalidID):
		return true
	case errors.Is(err, pricingdomain.ErrInvalidProduct),
		errors.Is(err, pricingdomain.ErrInvalidCode),
		errors.Is(err, pricingdomain.ErrInvalidCurrency),
		errors.Is(err, pricingdomain.ErrInvalidPricingModel),
		errors.Is(err, pricingdomain.ErrInvalidUnitAmount),
		errors.Is(err, pricingdomain.ErrInvalidID),
		errors.Is(err, pricingdomain.ErrInvalidQuantity),
		errors.Is(err, pricingdomain.ErrQuantityOutOfRange),
		errors.Is(err, pricingdomain.ErrTierOrder),
		errors.Is(err, pricingdomain.ErrTierGap),
		errors.Is(err, pricingdomain.ErrTierOverlap),
		errors.Is(err, pricingdomain.ErrTierNotLast):
		return true
	case errors.Is(err, coupondomain.ErrInvalidName),
		errors.Is(err, coupondomain.ErrInvalidAmount),
		errors.Is(err, coupondomain.ErrInvalidPercentage),
		errors.Is(err, coupondomain.ErrAmountAndPercentage),
		errors.Is(err, coupondomain.ErrCurrencyRequired),
		errors.Is(err, coupondomain.ErrInvalidID),
		errors.Is(err, taxdomain.ErrInvalidName),
		errors.Is(err, taxdomain.ErrInvalidID),
		errors.Is(err, taxdomain.ErrInvalidTaxRate):
		return true
	case errors.Is(err, numberingdomain.ErrInvalidNumberingSystem),
		errors.Is(err, numberingdomain.ErrInvalidResetInterval):
		return true
	case errors.Is(err, invoicedomain.ErrInvalidInvoiceID),
		errors.Is(err, invoicedomain.ErrInvalidCustomer),
		errors.Is(err, invoicedomain.ErrInvalidCurrency),
		errors.Is(err, invoicedomain.ErrInvalidQuantity),
		errors.Is(err, invoicedomain.ErrInvalidLine),
		errors.Is(err, invoicedomain.ErrEmptyInvoice):
		return true
	case errors.Is(err, creditnotedomain.ErrInvalidCreditNoteID),
		errors.Is(err, creditnotedomain.ErrEmptyCreditNote),
		errors.Is(err, creditnotedomain.ErrQuantityAndAmount),
		errors.Is(err, creditnotedomain.ErrMissingQuantityOrAmount),
		errors.Is(err, creditnotedomain.ErrInvalidCreditRequest):
		return true
	case errors.Is(err, quotedomain.ErrInvalidQuoteID),
		errors.Is(err, quotedomain.ErrInvalidCustomer),
		errors.Is(err, quotedomain.ErrInvalidCurrency),
		errors.Is(err, quotedomain.ErrEmptyQuote):
		return true
	case errors.Is(err, paymentdomain.ErrInvalidPaymentID),
		errors.Is(err, paymentdomain.ErrInvalidResult),
		errors.Is(err, paymentdomain.ErrUnknownProvider):
		return true
	}
	return false
}
