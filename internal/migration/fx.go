package migration

import (
	coupondomain "github.com/billora/billora/internal/coupon/domain"
	creditnotedomain "github.com/billora/billora/internal/creditnote/domain"
	customerdomain "github.com/billora/billora/internal/customer/domain"
	invoicedomain "github.com/billora/billora/internal/invoice/domain"
	numberingdomain "github.com/billora/billora/internal/numbering/domain"
	orgdomain "github.com/billora/billora/internal/organization/domain"
	paymentdomain "github.com/billora/billora/internal/payment/domain"
	pricingdomain "github.com/billora/billora/internal/pricing/domain"
	productdomain "github.com/billora/billora/internal/product/domain"
	quotedomain "github.com/billora/billora/internal/quote/domain"
	taxdomain "github.com/billora/billora/internal/tax/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(Run),
)

// Run applies the embedded SQL migrations on postgres. Other dialects
// (sqlite in local setups) fall back to gorm's schema sync.
func Run(conn *gorm.DB) error {
	if conn.Dialector.Name() != "postgres" {
		return conn.AutoMigrate(
			&orgdomain.Organization{},
			&customerdomain.Customer{},
			&productdomain.Product{},
			&pricingdomain.Price{},
			&pricingdomain.PriceTier{},
			&coupondomain.Coupon{},
			&taxdomain.TaxRate{},
			&numberingdomain.NumberingSystem{},
			&invoicedomain.InvoiceHead{},
			&invoicedomain.Invoice{},
			&invoicedomain.InvoiceLine{},
			&invoicedomain.InvoiceDiscount{},
			&invoicedomain.InvoiceTaxLine{},
			&creditnotedomain.CreditNote{},
			&creditnotedomain.CreditNoteLine{},
			&quotedomain.Quote{},
			&quotedomain.QuoteLine{},
			&quotedomain.QuoteDiscount{},
			&quotedomain.QuoteTaxLine{},
			&paymentdomain.Payment{},
		)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}
