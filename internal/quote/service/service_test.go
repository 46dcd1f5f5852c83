package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/billora/billora/internal/clock"
	"github.com/billora/billora/internal/config"
	coupondomain "github.com/billora/billora/internal/coupon/domain"
	invoicedomain "github.com/billora/billora/internal/invoice/domain"
	invoiceservice "github.com/billora/billora/internal/invoice/service"
	"github.com/billora/billora/internal/lifecycle"
	numberingdomain "github.com/billora/billora/internal/numbering/domain"
	numberingrepo "github.com/billora/billora/internal/numbering/repository"
	numberingservice "github.com/billora/billora/internal/numbering/service"
	"github.com/billora/billora/internal/observability/metrics"
	"github.com/billora/billora/internal/orgcontext"
	orgdomain "github.com/billora/billora/internal/organization/domain"
	orgrepository "github.com/billora/billora/internal/organization/repository"
	paymentdomain "github.com/billora/billora/internal/payment/domain"
	pricingdomain "github.com/billora/billora/internal/pricing/domain"
	quotedomain "github.com/billora/billora/internal/quote/domain"
	taxdomain "github.com/billora/billora/internal/tax/domain"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	svc   quotedomain.Service
	db    *gorm.DB
	node  *snowflake.Node
	orgID snowflake.ID
	ctx   context.Context
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&orgdomain.Organization{},
		&coupondomain.Coupon{},
		&taxdomain.TaxRate{},
		&pricingdomain.Price{},
		&pricingdomain.PriceTier{},
		&numberingdomain.NumberingSystem{},
		&invoicedomain.InvoiceHead{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceLine{},
		&invoicedomain.InvoiceDiscount{},
		&invoicedomain.InvoiceTaxLine{},
		&paymentdomain.Payment{},
		&quotedomain.Quote{},
		&quotedomain.QuoteLine{},
		&quotedomain.QuoteDiscount{},
		&quotedomain.QuoteTaxLine{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()
	fake := clock.NewFakeClock(time.Date(2025, time.August, 14, 10, 0, 0, 0, time.UTC))
	holder := config.NewStaticBillingConfigHolder(config.DefaultBillingConfig())
	orgRepo := orgrepository.NewRepository()
	m := metrics.New()

	numberingSvc := numberingservice.NewService(numberingservice.ServiceParam{
		DB:      db,
		Log:     log,
		GenID:   node,
		Counter: numberingrepo.NewDocumentCounter(numberingrepo.CounterParam{DB: db}),
		Billing: holder,
	})

	invoiceSvc := invoiceservice.NewService(invoiceservice.ServiceParam{
		DB:        db,
		Log:       log,
		GenID:     node,
		Clock:     fake,
		Billing:   holder,
		Numbering: numberingSvc,
		OrgRepo:   orgRepo,
		Metrics:   m,
	})

	svc := NewService(ServiceParam{
		DB:         db,
		Log:        log,
		GenID:      node,
		Clock:      fake,
		Billing:    holder,
		Numbering:  numberingSvc,
		OrgRepo:    orgRepo,
		Metrics:    m,
		InvoiceSvc: invoiceSvc,
	})

	orgID := node.Generate()
	require.NoError(t, db.Create(&orgdomain.Organization{
		ID:       orgID,
		Name:     "Acme",
		Slug:     "acme",
		Currency: "USD",
	}).Error)

	return &testEnv{
		svc:   svc,
		db:    db,
		node:  node,
		orgID: orgID,
		ctx:   orgcontext.WithOrgID(context.Background(), orgID),
	}
}

func unitAmount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func (e *testEnv) createDraft(t *testing.T, lines ...invoicedomain.LineRequest) *quotedomain.Quote {
	t.Helper()
	quote, err := e.svc.Create(e.ctx, quotedomain.CreateRequest{
		CustomerID: e.node.Generate().String(),
		Currency:   "USD",
		Lines:      lines,
	})
	require.NoError(t, err)
	return quote
}

func TestCreateDraftRecalculates(t *testing.T) {
	env := newTestEnv(t)

	quote := env.createDraft(t, invoicedomain.LineRequest{
		Description: "setup fee",
		Quantity:    3,
		UnitAmount:  unitAmount("20.00"),
	})

	assert.Equal(t, lifecycle.StatusDraft, quote.Status)
	assert.Nil(t, quote.Number)
	assert.True(t, quote.TotalAmount.Equal(decimal.RequireFromString("60.00")))
}

func TestAttachmentsRollUp(t *testing.T) {
	env := newTestEnv(t)

	quote := env.createDraft(t, invoicedomain.LineRequest{
		Quantity:   2,
		UnitAmount: unitAmount("50.00"),
	})

	pct := decimal.RequireFromString("10")
	couponID := env.node.Generate()
	require.NoError(t, env.db.Create(&coupondomain.Coupon{
		ID:         couponID,
		OrgID:      env.orgID,
		Name:       "welcome",
		Percentage: &pct,
	}).Error)
	quote, err := env.svc.AttachDiscount(env.ctx, quote.ID.String(), couponID.String())
	require.NoError(t, err)

	taxID := env.node.Generate()
	require.NoError(t, env.db.Create(&taxdomain.TaxRate{
		ID:         taxID,
		OrgID:      env.orgID,
		Name:       "vat",
		Percentage: decimal.RequireFromString("20"),
		IsEnabled:  true,
	}).Error)
	quote, err = env.svc.AttachTaxRate(env.ctx, quote.ID.String(), taxID.String())
	require.NoError(t, err)

	assert.True(t, quote.TotalDiscount.Equal(decimal.RequireFromString("10.00")))
	assert.True(t, quote.TotalExcludingTax.Equal(decimal.RequireFromString("90.00")))
	assert.True(t, quote.TotalTax.Equal(decimal.RequireFromString("18.00")))
	assert.True(t, quote.TotalAmount.Equal(decimal.RequireFromString("108.00")))
}

func TestOpenAssignsNumber(t *testing.T) {
	env := newTestEnv(t)

	quote := env.createDraft(t, invoicedomain.LineRequest{
		Quantity:   1,
		UnitAmount: unitAmount("10.00"),
	})

	quote, err := env.svc.Open(env.ctx, quote.ID.String())
	require.NoError(t, err)

	assert.Equal(t, lifecycle.StatusOpen, quote.Status)
	require.NotNil(t, quote.Number)
	assert.Equal(t, "Q-2025-0001", *quote.Number)
	require.NotNil(t, quote.OpenedAt)

	// Open quotes reject edits.
	_, err = env.svc.AddLine(env.ctx, quote.ID.String(), invoicedomain.LineRequest{
		Quantity:   1,
		UnitAmount: unitAmount("5.00"),
	})
	assert.ErrorIs(t, err, lifecycle.ErrNotEditable)
}

func TestAcceptConvertsToDraftInvoice(t *testing.T) {
	env := newTestEnv(t)

	quote := env.createDraft(t, invoicedomain.LineRequest{
		Description: "annual plan",
		Quantity:    2,
		UnitAmount:  unitAmount("120.00"),
	})
	quote, err := env.svc.Open(env.ctx, quote.ID.String())
	require.NoError(t, err)

	quote, err = env.svc.Accept(env.ctx, quote.ID.String())
	require.NoError(t, err)

	assert.Equal(t, lifecycle.StatusAccepted, quote.Status)
	require.NotNil(t, quote.AcceptedAt)
	require.NotNil(t, quote.InvoiceID)

	var invoice invoicedomain.Invoice
	require.NoError(t, env.db.Where("id = ?", *quote.InvoiceID).First(&invoice).Error)
	assert.Equal(t, lifecycle.StatusDraft, invoice.Status)
	assert.Equal(t, quote.CustomerID, invoice.CustomerID)
	assert.True(t, invoice.TotalAmount.Equal(decimal.RequireFromString("240.00")))

	var lines []invoicedomain.InvoiceLine
	require.NoError(t, env.db.Where("invoice_id = ?", invoice.ID).Find(&lines).Error)
	require.Len(t, lines, 1)
	assert.Equal(t, "annual plan", lines[0].Description)
	assert.Equal(t, int64(2), lines[0].Quantity)
}

func TestAcceptRequiresOpen(t *testing.T) {
	env := newTestEnv(t)

	quote := env.createDraft(t, invoicedomain.LineRequest{
		Quantity:   1,
		UnitAmount: unitAmount("10.00"),
	})

	_, err := env.svc.Accept(env.ctx, quote.ID.String())
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
}

func TestCancel(t *testing.T) {
	env := newTestEnv(t)

	quote := env.createDraft(t, invoicedomain.LineRequest{
		Quantity:   1,
		UnitAmount: unitAmount("10.00"),
	})
	quote, err := env.svc.Open(env.ctx, quote.ID.String())
	require.NoError(t, err)

	quote, err = env.svc.Cancel(env.ctx, quote.ID.String())
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusCanceled, quote.Status)
	require.NotNil(t, quote.CanceledAt)

	_, err = env.svc.Accept(env.ctx, quote.ID.String())
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
}
