package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	couponfx "github.com/billora/billora/internal/coupon"
	coupondomain "github.com/billora/billora/internal/coupon/domain"
	creditnotefx "github.com/billora/billora/internal/creditnote"
	creditnotedomain "github.com/billora/billora/internal/creditnote/domain"
	customerfx "github.com/billora/billora/internal/customer"
	customerdomain "github.com/billora/billora/internal/customer/domain"
	"github.com/billora/billora/internal/config"
	invoicefx "github.com/billora/billora/internal/invoice"
	invoicedomain "github.com/billora/billora/internal/invoice/domain"
	numberingfx "github.com/billora/billora/internal/numbering"
	numberingdomain "github.com/billora/billora/internal/numbering/domain"
	"github.com/billora/billora/internal/observability/metrics"
	"github.com/billora/billora/internal/organization"
	orgdomain "github.com/billora/billora/internal/organization/domain"
	paymentfx "github.com/billora/billora/internal/payment"
	paymentdomain "github.com/billora/billora/internal/payment/domain"
	pricingfx "github.com/billora/billora/internal/pricing"
	pricingdomain "github.com/billora/billora/internal/pricing/domain"
	productfx "github.com/billora/billora/internal/product"
	productdomain "github.com/billora/billora/internal/product/domain"
	"github.com/billora/billora/internal/providers/pdf"
	quotefx "github.com/billora/billora/internal/quote"
	quotedomain "github.com/billora/billora/internal/quote/domain"
	taxfx "github.com/billora/billora/internal/tax"
	taxdomain "github.com/billora/billora/internal/tax/domain"
	"github.com/billora/billora/pkg/repository"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	organization.Module,
	customerfx.Module,
	productfx.Module,
	pricingfx.Module,
	couponfx.Module,
	taxfx.Module,
	numberingfx.Module,
	invoicefx.Module,
	creditnotefx.Module,
	quotefx.Module,
	paymentfx.Module,
	pdf.Module,
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, m *metrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log.Named("http")))
	r.Use(MetricsMiddleware(m))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	genID  *snowflake.Node

	orgstore repository.Repository[orgdomain.Organization]

	customerSvc   customerdomain.Service
	productSvc    productdomain.Service
	pricingSvc    pricingdomain.Service
	couponSvc     coupondomain.Service
	taxSvc        taxdomain.Service
	numberingSvc  numberingdomain.Service
	invoiceSvc    invoicedomain.Service
	creditNoteSvc creditnotedomain.Service
	quoteSvc      quotedomain.Service
	paymentSvc    paymentdomain.Service

	renderer pdf.Renderer
}

type ServerParams struct {
	fx.In

	Gin   *gin.Engine
	Cfg   config.Config
	DB    *gorm.DB
	GenID *snowflake.Node

	CustomerSvc   customerdomain.Service
	ProductSvc    productdomain.Service
	PricingSvc    pricingdomain.Service
	CouponSvc     coupondomain.Service
	TaxSvc        taxdomain.Service
	NumberingSvc  numberingdomain.Service
	InvoiceSvc    invoicedomain.Service
	CreditNoteSvc creditnotedomain.Service
	QuoteSvc      quotedomain.Service
	PaymentSvc    paymentdomain.Service

	Renderer pdf.Renderer
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine: p.Gin,
		cfg:    p.Cfg,
		genID:  p.GenID,

		orgstore: repository.ProvideStore[orgdomain.Organization](p.DB),

		customerSvc:   p.CustomerSvc,
		productSvc:    p.ProductSvc,
		pricingSvc:    p.PricingSvc,
		couponSvc:     p.CouponSvc,
		taxSvc:        p.TaxSvc,
		numberingSvc:  p.NumberingSvc,
		invoiceSvc:    p.InvoiceSvc,
		creditNoteSvc: p.CreditNoteSvc,
		quoteSvc:      p.QuoteSvc,
		paymentSvc:    p.PaymentSvc,

		renderer: p.Renderer,
	}

	s.registerAPIRoutes()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Organizations --------
	api.POST("/organizations", s.CreateOrganization)
	api.GET("/organizations/:id", s.GetOrganizationByID)

	// -------- Payment Webhooks --------
	api.POST("/payments/webhooks/:provider", s.HandlePaymentWebhook)

	org := api.Group("", s.OrgRequired())

	// -------- Customers --------
	org.GET("/customers", s.ListCustomers)
	org.POST("/customers", s.CreateCustomer)
	org.GET("/customers/:id", s.GetCustomerByID)

	// -------- Products --------
	org.GET("/products", s.ListProducts)
	org.POST("/products", s.CreateProduct)
	org.GET("/products/:id", s.GetProductByID)

	// -------- Prices --------
	org.GET("/prices", s.ListPrices)
	org.POST("/prices", s.CreatePrice)
	org.GET("/prices/:id", s.GetPriceByID)
	org.PATCH("/prices/:id", s.UpdatePrice)
	org.DELETE("/prices/:id", s.ArchivePrice)

	// -------- Coupons --------
	org.GET("/coupons", s.ListCoupons)
	org.POST("/coupons", s.CreateCoupon)
	org.GET("/coupons/:id", s.GetCouponByID)
	org.PATCH("/coupons/:id", s.RenameCoupon)

	// -------- Tax rates --------
	org.GET("/tax_rates", s.ListTaxRates)
	org.POST("/tax_rates", s.CreateTaxRate)
	org.GET("/tax_rates/:id", s.GetTaxRateByID)
	org.POST("/tax_rates/:id/enable", s.EnableTaxRate)
	org.POST("/tax_rates/:id/disable", s.DisableTaxRate)

	// -------- Numbering --------
	org.GET("/numbering_systems", s.ListNumberingSystems)
	org.POST("/numbering_systems", s.CreateNumberingSystem)
	org.PATCH("/numbering_systems/:id", s.UpdateNumberingSystem)

	// -------- Invoices --------
	org.GET("/invoices", s.ListInvoices)
	org.POST("/invoices", s.CreateInvoice)
	org.GET("/invoices/:id", s.GetInvoiceByID)
	org.GET("/invoices/:id/pdf", s.GetInvoicePDF)
	org.GET("/invoices/:id/payments", s.ListInvoicePayments)
	org.POST("/invoices/:id/lines", s.AddInvoiceLine)
	org.PATCH("/invoices/:id/lines/:lineId", s.UpdateInvoiceLine)
	org.DELETE("/invoices/:id/lines/:lineId", s.RemoveInvoiceLine)
	org.POST("/invoices/:id/discounts", s.AttachInvoiceDiscount)
	org.DELETE("/invoices/:id/discounts/:discountId", s.DetachInvoiceDiscount)
	org.POST("/invoices/:id/tax_lines", s.AttachInvoiceTaxRate)
	org.DELETE("/invoices/:id/tax_lines/:taxLineId", s.DetachInvoiceTaxRate)
	org.POST("/invoices/:id/finalize", s.FinalizeInvoice)
	org.POST("/invoices/:id/void", s.VoidInvoice)
	org.POST("/invoices/:id/revise", s.ReviseInvoice)

	// -------- Credit notes --------
	org.GET("/credit_notes", s.ListCreditNotes)
	org.POST("/credit_notes", s.CreateCreditNote)
	org.GET("/credit_notes/:id", s.GetCreditNoteByID)
	org.GET("/credit_notes/:id/pdf", s.GetCreditNotePDF)
	org.POST("/credit_notes/:id/issue", s.IssueCreditNote)
	org.POST("/credit_notes/:id/void", s.VoidCreditNote)

	// -------- Quotes --------
	org.GET("/quotes", s.ListQuotes)
	org.POST("/quotes", s.CreateQuote)
	org.GET("/quotes/:id", s.GetQuoteByID)
	org.POST("/quotes/:id/lines", s.AddQuoteLine)
	org.DELETE("/quotes/:id/lines/:lineId", s.RemoveQuoteLine)
	org.POST("/quotes/:id/discounts", s.AttachQuoteDiscount)
	org.POST("/quotes/:id/tax_lines", s.AttachQuoteTaxRate)
	org.POST("/quotes/:id/open", s.OpenQuote)
	org.POST("/quotes/:id/accept", s.AcceptQuote)
	org.POST("/quotes/:id/cancel", s.CancelQuote)
}
