package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/billora/billora/internal/clock"
	"github.com/billora/billora/internal/config"
	coupondomain "github.com/billora/billora/internal/coupon/domain"
	invoicedomain "github.com/billora/billora/internal/invoice/domain"
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
	taxdomain "github.com/billora/billora/internal/tax/domain"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	svc   invoicedomain.Service
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
	orgID snowflake.ID
	ctx   context.Context
}

func newTestEnv(t *testing.T, provider paymentdomain.Provider) *testEnv {
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
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()
	fake := clock.NewFakeClock(time.Date(2025, time.August, 14, 10, 0, 0, 0, time.UTC))
	holder := config.NewStaticBillingConfigHolder(config.DefaultBillingConfig())

	numberingSvc := numberingservice.NewService(numberingservice.ServiceParam{
		DB:      db,
		Log:     log,
		GenID:   node,
		Counter: numberingrepo.NewDocumentCounter(numberingrepo.CounterParam{DB: db}),
		Billing: holder,
	})

	svc := NewService(ServiceParam{
		DB:        db,
		Log:       log,
		GenID:     node,
		Clock:     fake,
		Billing:   holder,
		Numbering: numberingSvc,
		OrgRepo:   orgrepository.NewRepository(),
		Metrics:   metrics.New(),
		Provider:  provider,
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
		clock: fake,
		orgID: orgID,
		ctx:   orgcontext.WithOrgID(context.Background(), orgID),
	}
}

func (e *testEnv) seedPercentageCoupon(t *testing.T, name string, pct string) snowflake.ID {
	t.Helper()
	p := decimal.RequireFromString(pct)
	id := e.node.Generate()
	require.NoError(t, e.db.Create(&coupondomain.Coupon{
		ID:         id,
		OrgID:      e.orgID,
		Name:       name,
		Percentage: &p,
	}).Error)
	return id
}

func (e *testEnv) seedTaxRate(t *testing.T, name string, pct string) snowflake.ID {
	t.Helper()
	id := e.node.Generate()
	require.NoError(t, e.db.Create(&taxdomain.TaxRate{
		ID:         id,
		OrgID:      e.orgID,
		Name:       name,
		Percentage: decimal.RequireFromString(pct),
		IsEnabled:  true,
	}).Error)
	return id
}

func unitAmount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func (e *testEnv) createDraft(t *testing.T, lines ...invoicedomain.LineRequest) *invoicedomain.Invoice {
	t.Helper()
	invoice, err := e.svc.Create(e.ctx, invoicedomain.CreateRequest{
		CustomerID: e.node.Generate().String(),
		Currency:   "USD",
		Lines:      lines,
	})
	require.NoError(t, err)
	return invoice
}

func TestCreateDraftRecalculatesTotals(t *testing.T) {
	env := newTestEnv(t, nil)

	invoice := env.createDraft(t, invoicedomain.LineRequest{
		Description: "consulting",
		Quantity:    2,
		UnitAmount:  unitAmount("50.00"),
	})

	assert.Equal(t, lifecycle.StatusDraft, invoice.Status)
	assert.Nil(t, invoice.Number)
	assert.True(t, invoice.Subtotal.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, invoice.TotalAmount.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, invoice.Outstanding.Equal(decimal.RequireFromString("100.00")))
	require.Len(t, invoice.Lines, 1)
	assert.True(t, invoice.Lines[0].Amount.Equal(decimal.RequireFromString("100.00")))
}

func TestDiscountAndTaxRollup(t *testing.T) {
	env := newTestEnv(t, nil)

	invoice := env.createDraft(t, invoicedomain.LineRequest{
		Quantity:   2,
		UnitAmount: unitAmount("50.00"),
	})

	couponID := env.seedPercentageCoupon(t, "welcome", "10")
	invoice, err := env.svc.AttachDiscount(env.ctx, invoice.ID.String(), invoicedomain.AttachDiscountRequest{
		CouponID: couponID.String(),
	})
	require.NoError(t, err)

	taxID := env.seedTaxRate(t, "vat", "20")
	invoice, err = env.svc.AttachTaxRate(env.ctx, invoice.ID.String(), invoicedomain.AttachTaxRateRequest{
		TaxRateID: taxID.String(),
	})
	require.NoError(t, err)

	assert.True(t, invoice.Subtotal.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, invoice.TotalDiscount.Equal(decimal.RequireFromString("10.00")))
	assert.True(t, invoice.TotalExcludingTax.Equal(decimal.RequireFromString("90.00")))
	assert.True(t, invoice.TotalTax.Equal(decimal.RequireFromString("18.00")))
	assert.True(t, invoice.TotalAmount.Equal(decimal.RequireFromString("108.00")))
}

func TestFinalizeAssignsNumberAndOpens(t *testing.T) {
	env := newTestEnv(t, nil)

	invoice := env.createDraft(t, invoicedomain.LineRequest{
		Quantity:   1,
		UnitAmount: unitAmount("25.00"),
	})

	finalized, err := env.svc.Finalize(env.ctx, invoice.ID.String())
	require.NoError(t, err)

	assert.Equal(t, lifecycle.StatusOpen, finalized.Status)
	require.NotNil(t, finalized.Number)
	assert.Equal(t, "INV-2025-0001", *finalized.Number)
	require.NotNil(t, finalized.FinalizedAt)

	var head invoicedomain.InvoiceHead
	require.NoError(t, env.db.Where("id = ?", finalized.HeadID).First(&head).Error)
	require.NotNil(t, head.CurrentID)
	assert.Equal(t, finalized.ID, *head.CurrentID)

	// A second invoice takes the next number in the window.
	second := env.createDraft(t, invoicedomain.LineRequest{
		Quantity:   1,
		UnitAmount: unitAmount("10.00"),
	})
	finalized2, err := env.svc.Finalize(env.ctx, second.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "INV-2025-0002", *finalized2.Number)
}

func TestFinalizeZeroTotalGoesStraightToPaid(t *testing.T) {
	env := newTestEnv(t, nil)

	invoice := env.createDraft(t, invoicedomain.LineRequest{
		Quantity:   1,
		UnitAmount: unitAmount("0"),
	})

	finalized, err := env.svc.Finalize(env.ctx, invoice.ID.String())
	require.NoError(t, err)

	assert.Equal(t, lifecycle.StatusPaid, finalized.Status)
	require.NotNil(t, finalized.PaidAt)
}

func TestFinalizeRequiresLines(t *testing.T) {
	env := newTestEnv(t, nil)

	invoice := env.createDraft(t)

	_, err := env.svc.Finalize(env.ctx, invoice.ID.String())
	assert.ErrorIs(t, err, invoicedomain.ErrEmptyInvoice)
}

func TestEditAfterFinalizeRejected(t *testing.T) {
	env := newTestEnv(t, nil)

	invoice := env.createDraft(t, invoicedomain.LineRequest{
		Quantity:   1,
		UnitAmount: unitAmount("10.00"),
	})
	_, err := env.svc.Finalize(env.ctx, invoice.ID.String())
	require.NoError(t, err)

	_, err = env.svc.AddLine(env.ctx, invoice.ID.String(), invoicedomain.LineRequest{
		Quantity:   1,
		UnitAmount: unitAmount("5.00"),
	})
	assert.ErrorIs(t, err, lifecycle.ErrNotEditable)
}

func TestReviseAndFinalizeVoidsPrevious(t *testing.T) {
	env := newTestEnv(t, nil)

	first := env.createDraft(t, invoicedomain.LineRequest{
		Quantity:   1,
		UnitAmount: unitAmount("100.00"),
	})
	first, err := env.svc.Finalize(env.ctx, first.ID.String())
	require.NoError(t, err)

	revision, err := env.svc.Revise(env.ctx, first.ID.String())
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusDraft, revision.Status)
	assert.Equal(t, first.HeadID, revision.HeadID)
	require.NotNil(t, revision.PreviousRevisionID)
	assert.Equal(t, first.ID, *revision.PreviousRevisionID)
	assert.True(t, revision.TotalAmount.Equal(first.TotalAmount))

	// Finalizing the revision voids the previously-open one.
	revision, err = env.svc.Finalize(env.ctx, revision.ID.String())
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusOpen, revision.Status)

	var previous invoicedomain.Invoice
	require.NoError(t, env.db.Where("id = ?", first.ID).First(&previous).Error)
	assert.Equal(t, lifecycle.StatusVoided, previous.Status)

	var head invoicedomain.InvoiceHead
	require.NoError(t, env.db.Where("id = ?", revision.HeadID).First(&head).Error)
	require.NotNil(t, head.CurrentID)
	assert.Equal(t, revision.ID, *head.CurrentID)
}

func TestVoidClearsHeadCurrent(t *testing.T) {
	env := newTestEnv(t, nil)

	invoice := env.createDraft(t, invoicedomain.LineRequest{
		Quantity:   1,
		UnitAmount: unitAmount("10.00"),
	})
	invoice, err := env.svc.Finalize(env.ctx, invoice.ID.String())
	require.NoError(t, err)

	voided, err := env.svc.Void(env.ctx, invoice.ID.String())
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusVoided, voided.Status)

	var head invoicedomain.InvoiceHead
	require.NoError(t, env.db.Where("id = ?", voided.HeadID).First(&head).Error)
	assert.Nil(t, head.CurrentID)

	_, err = env.svc.Void(env.ctx, invoice.ID.String())
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
}

func TestApplyPaymentResultClosesInvoice(t *testing.T) {
	env := newTestEnv(t, nil)

	invoice := env.createDraft(t, invoicedomain.LineRequest{
		Quantity:   2,
		UnitAmount: unitAmount("54.00"),
	})
	invoice, err := env.svc.Finalize(env.ctx, invoice.ID.String())
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusOpen, invoice.Status)

	paidAt := time.Date(2025, time.August, 15, 9, 0, 0, 0, time.UTC)
	updated, err := env.svc.ApplyPaymentResult(context.Background(), invoice.ID, true, decimal.RequireFromString("108.00"), paidAt)
	require.NoError(t, err)

	assert.Equal(t, lifecycle.StatusPaid, updated.Status)
	assert.True(t, updated.Outstanding.IsZero())
	require.NotNil(t, updated.PaidAt)
	assert.Equal(t, paidAt, updated.PaidAt.UTC())
}

func TestApplyPaymentResultPartial(t *testing.T) {
	env := newTestEnv(t, nil)

	invoice := env.createDraft(t, invoicedomain.LineRequest{
		Quantity:   1,
		UnitAmount: unitAmount("100.00"),
	})
	invoice, err := env.svc.Finalize(env.ctx, invoice.ID.String())
	require.NoError(t, err)

	updated, err := env.svc.ApplyPaymentResult(context.Background(), invoice.ID, true, decimal.RequireFromString("30.00"), env.clock.Now())
	require.NoError(t, err)

	assert.Equal(t, lifecycle.StatusOpen, updated.Status)
	assert.True(t, updated.Outstanding.Equal(decimal.RequireFromString("70.00")))
}

type stubProvider struct {
	result paymentdomain.CheckoutResult
	err    error
	calls  int
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Checkout(ctx context.Context, req paymentdomain.CheckoutRequest) (paymentdomain.CheckoutResult, error) {
	p.calls++
	return p.result, p.err
}

func TestFinalizeTriggersCheckout(t *testing.T) {
	provider := &stubProvider{result: paymentdomain.CheckoutResult{
		TransactionID: "tx-1",
		RedirectURL:   "https://pay.example/tx-1",
	}}
	env := newTestEnv(t, provider)

	invoice := env.createDraft(t, invoicedomain.LineRequest{
		Quantity:   1,
		UnitAmount: unitAmount("40.00"),
	})
	invoice, err := env.svc.Finalize(env.ctx, invoice.ID.String())
	require.NoError(t, err)

	assert.Equal(t, 1, provider.calls)

	var payment paymentdomain.Payment
	require.NoError(t, env.db.Where("invoice_id = ?", invoice.ID).First(&payment).Error)
	assert.Equal(t, paymentdomain.PaymentStatusPending, payment.Status)
	assert.Equal(t, "tx-1", payment.TransactionID)
}

func TestFinalizeSurvivesCheckoutFailure(t *testing.T) {
	provider := &stubProvider{err: errors.New("gateway unreachable")}
	env := newTestEnv(t, provider)

	invoice := env.createDraft(t, invoicedomain.LineRequest{
		Quantity:   1,
		UnitAmount: unitAmount("40.00"),
	})
	invoice, err := env.svc.Finalize(env.ctx, invoice.ID.String())
	require.NoError(t, err)

	// The invoice stays finalized; the failed attempt is recorded.
	assert.Equal(t, lifecycle.StatusOpen, invoice.Status)

	var payment paymentdomain.Payment
	require.NoError(t, env.db.Where("invoice_id = ?", invoice.ID).First(&payment).Error)
	assert.Equal(t, paymentdomain.PaymentStatusFailed, payment.Status)
	assert.Contains(t, payment.FailureReason, "gateway unreachable")
}
