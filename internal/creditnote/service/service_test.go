package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/billora/billora/internal/clock"
	"github.com/billora/billora/internal/config"
	coupondomain "github.com/billora/billora/internal/coupon/domain"
	"github.com/billora/billora/internal/creditnote/domain"
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
	taxdomain "github.com/billora/billora/internal/tax/domain"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	svc        domain.Service
	invoiceSvc invoicedomain.Service
	db         *gorm.DB
	node       *snowflake.Node
	orgID      snowflake.ID
	ctx        context.Context
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
		&numberingdomain.NumberingSystem{},
		&invoicedomain.InvoiceHead{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceLine{},
		&invoicedomain.InvoiceDiscount{},
		&invoicedomain.InvoiceTaxLine{},
		&paymentdomain.Payment{},
		&domain.CreditNote{},
		&domain.CreditNoteLine{},
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
		svc:        svc,
		invoiceSvc: invoiceSvc,
		db:         db,
		node:       node,
		orgID:      orgID,
		ctx:        orgcontext.WithOrgID(context.Background(), orgID),
	}
}

// openInvoice builds and finalizes an invoice with a single line of the
// given quantity and unit amount, returning the reloaded invoice.
func (e *testEnv) openInvoice(t *testing.T, quantity int64, unit string) *invoicedomain.Invoice {
	t.Helper()
	ua := decimal.RequireFromString(unit)
	invoice, err := e.invoiceSvc.Create(e.ctx, invoicedomain.CreateRequest{
		CustomerID: e.node.Generate().String(),
		Currency:   "USD",
		Lines: []invoicedomain.LineRequest{{
			Description: "subscription",
			Quantity:    quantity,
			UnitAmount:  &ua,
		}},
	})
	require.NoError(t, err)
	invoice, err = e.invoiceSvc.Finalize(e.ctx, invoice.ID.String())
	require.NoError(t, err)
	require.Equal(t, lifecycle.StatusOpen, invoice.Status)
	return invoice
}

func TestCreateAndIssueUpdatesInvoice(t *testing.T) {
	env := newTestEnv(t)

	invoice := env.openInvoice(t, 4, "25.00")
	require.True(t, invoice.TotalAmount.Equal(decimal.RequireFromString("100.00")))

	note, err := env.svc.Create(env.ctx, domain.CreateRequest{
		InvoiceID: invoice.ID.String(),
		Reason:    "partial refund",
		Lines: []domain.LineRequest{{
			InvoiceLineID: invoice.Lines[0].ID.String(),
			Quantity:      qty(1),
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusDraft, note.Status)
	assert.Nil(t, note.Number)
	assert.True(t, note.TotalAmount.Equal(decimal.RequireFromString("25.00")))

	note, err = env.svc.Issue(env.ctx, note.ID.String())
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusIssued, note.Status)
	require.NotNil(t, note.Number)
	assert.Equal(t, "CN-2025-0001", *note.Number)
	require.NotNil(t, note.IssuedAt)

	var reloaded invoicedomain.Invoice
	require.NoError(t, env.db.Where("id = ?", invoice.ID).First(&reloaded).Error)
	assert.True(t, reloaded.TotalCredited.Equal(decimal.RequireFromString("25.00")))
	assert.True(t, reloaded.Outstanding.Equal(decimal.RequireFromString("75.00")))

	var line invoicedomain.InvoiceLine
	require.NoError(t, env.db.Where("invoice_id = ?", invoice.ID).First(&line).Error)
	assert.Equal(t, int64(1), line.CreditedQuantity)
	assert.Equal(t, int64(3), line.OutstandingQuantity)
	assert.True(t, line.CreditedAmount.Equal(decimal.RequireFromString("25.00")))
}

func TestCreateRejectsOverCredit(t *testing.T) {
	env := newTestEnv(t)

	invoice := env.openInvoice(t, 2, "10.00")

	_, err := env.svc.Create(env.ctx, domain.CreateRequest{
		InvoiceID: invoice.ID.String(),
		Lines: []domain.LineRequest{{
			InvoiceLineID: invoice.Lines[0].ID.String(),
			Quantity:      qty(3),
		}},
	})
	assert.ErrorIs(t, err, domain.ErrExceedsOutstanding)
}

func TestIssueRejectsWhenCapacityConsumed(t *testing.T) {
	env := newTestEnv(t)

	invoice := env.openInvoice(t, 2, "10.00")
	lineID := invoice.Lines[0].ID.String()

	// Two drafts each crediting the full invoice are fine at create
	// time; only one of them can be issued.
	first, err := env.svc.Create(env.ctx, domain.CreateRequest{
		InvoiceID: invoice.ID.String(),
		Lines:     []domain.LineRequest{{InvoiceLineID: lineID, Quantity: qty(2)}},
	})
	require.NoError(t, err)
	second, err := env.svc.Create(env.ctx, domain.CreateRequest{
		InvoiceID: invoice.ID.String(),
		Lines:     []domain.LineRequest{{InvoiceLineID: lineID, Quantity: qty(2)}},
	})
	require.NoError(t, err)

	_, err = env.svc.Issue(env.ctx, first.ID.String())
	require.NoError(t, err)

	_, err = env.svc.Issue(env.ctx, second.ID.String())
	assert.ErrorIs(t, err, domain.ErrExceedsOutstanding)
}

func TestCreateRequiresCreditableInvoice(t *testing.T) {
	env := newTestEnv(t)

	ua := decimal.RequireFromString("10.00")
	draft, err := env.invoiceSvc.Create(env.ctx, invoicedomain.CreateRequest{
		CustomerID: env.node.Generate().String(),
		Currency:   "USD",
		Lines: []invoicedomain.LineRequest{{
			Quantity:   1,
			UnitAmount: &ua,
		}},
	})
	require.NoError(t, err)

	_, err = env.svc.Create(env.ctx, domain.CreateRequest{
		InvoiceID: draft.ID.String(),
		Lines: []domain.LineRequest{{
			InvoiceLineID: draft.Lines[0].ID.String(),
			Quantity:      qty(1),
		}},
	})
	assert.ErrorIs(t, err, domain.ErrInvoiceNotCreditable)
}

func TestVoidDraft(t *testing.T) {
	env := newTestEnv(t)

	invoice := env.openInvoice(t, 1, "10.00")
	note, err := env.svc.Create(env.ctx, domain.CreateRequest{
		InvoiceID: invoice.ID.String(),
		Lines: []domain.LineRequest{{
			InvoiceLineID: invoice.Lines[0].ID.String(),
			Quantity:      qty(1),
		}},
	})
	require.NoError(t, err)

	note, err = env.svc.Void(env.ctx, note.ID.String())
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusVoided, note.Status)

	_, err = env.svc.Issue(env.ctx, note.ID.String())
	assert.ErrorIs(t, err, lifecycle.ErrNotEditable)
}
