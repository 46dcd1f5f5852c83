package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/billora/billora/internal/config"
	invoicedomain "github.com/billora/billora/internal/invoice/domain"
	"github.com/billora/billora/internal/lifecycle"
	"github.com/billora/billora/internal/numbering/domain"
	numberingrepo "github.com/billora/billora/internal/numbering/repository"
	"github.com/billora/billora/internal/orgcontext"
	orgdomain "github.com/billora/billora/internal/organization/domain"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	svc   domain.Service
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
		&domain.NumberingSystem{},
		&invoicedomain.InvoiceHead{},
		&invoicedomain.Invoice{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(ServiceParam{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   node,
		Counter: numberingrepo.NewDocumentCounter(numberingrepo.CounterParam{DB: db}),
		Billing: config.NewStaticBillingConfigHolder(config.DefaultBillingConfig()),
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

// seedNumberedInvoice inserts an invoice created and finalized at the same
// instant so the counter sees it in that reset window.
func (e *testEnv) seedNumberedInvoice(t *testing.T, number string, at time.Time) {
	e.seedFinalizedInvoice(t, number, at, at)
}

func (e *testEnv) seedFinalizedInvoice(t *testing.T, number string, createdAt, finalizedAt time.Time) {
	t.Helper()
	headID := e.node.Generate()
	require.NoError(t, e.db.Create(&invoicedomain.InvoiceHead{
		ID:        headID,
		OrgID:     e.orgID,
		RootID:    headID,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}).Error)
	require.NoError(t, e.db.Create(&invoicedomain.Invoice{
		ID:          e.node.Generate(),
		OrgID:       e.orgID,
		HeadID:      headID,
		CustomerID:  e.node.Generate(),
		Number:      &number,
		Status:      lifecycle.StatusOpen,
		Currency:    "USD",
		FinalizedAt: &finalizedAt,
		CreatedAt:   createdAt,
		UpdatedAt:   finalizedAt,
	}).Error)
}

func TestNextNumberUsesAccountDefaults(t *testing.T) {
	env := newTestEnv(t)

	number, err := env.svc.NextNumber(env.ctx, env.orgID, lifecycle.DocumentInvoice, time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "INV-2025-0001", number)
}

func TestNextNumberCountsWindow(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Create(env.ctx, domain.CreateRequest{
		DocumentType:  lifecycle.DocumentInvoice,
		Template:      "F{yy}{mm}-{nnn}",
		ResetInterval: domain.ResetMonthly,
	})
	require.NoError(t, err)

	inWindow := time.Date(2025, time.August, 5, 0, 0, 0, 0, time.UTC)
	outOfWindow := time.Date(2025, time.July, 30, 0, 0, 0, 0, time.UTC)
	env.seedNumberedInvoice(t, "F2508-001", inWindow)
	env.seedNumberedInvoice(t, "F2508-002", inWindow)
	env.seedNumberedInvoice(t, "F2507-009", outOfWindow)

	number, err := env.svc.NextNumber(env.ctx, env.orgID, lifecycle.DocumentInvoice, time.Date(2025, time.August, 14, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "F2508-003", number)
}

func TestNextNumberCountsByFinalizeTime(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Create(env.ctx, domain.CreateRequest{
		DocumentType:  lifecycle.DocumentInvoice,
		Template:      "F{yy}{mm}-{nnn}",
		ResetInterval: domain.ResetMonthly,
	})
	require.NoError(t, err)

	// Drafted in July, numbered in August: belongs to the August window.
	env.seedFinalizedInvoice(t, "F2508-001",
		time.Date(2025, time.July, 20, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.August, 1, 9, 0, 0, 0, time.UTC))
	// Drafted in August, numbered in September: not in the August window.
	env.seedFinalizedInvoice(t, "F2509-001",
		time.Date(2025, time.August, 30, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.September, 1, 9, 0, 0, 0, time.UTC))

	number, err := env.svc.NextNumber(env.ctx, env.orgID, lifecycle.DocumentInvoice, time.Date(2025, time.August, 14, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "F2508-002", number)
}

func TestNextNumberInTxSeesUncommittedRows(t *testing.T) {
	env := newTestEnv(t)

	effectiveAt := time.Date(2025, time.August, 14, 10, 0, 0, 0, time.UTC)
	env.seedNumberedInvoice(t, "INV-2025-0001", effectiveAt)

	// The pool is capped at one connection, so a counter read escaping
	// the transaction would block here instead of returning.
	err := env.db.Transaction(func(tx *gorm.DB) error {
		number, err := env.svc.NextNumberInTx(env.ctx, tx, env.orgID, lifecycle.DocumentInvoice, effectiveAt)
		require.NoError(t, err)
		assert.Equal(t, "INV-2025-0002", number)
		return nil
	})
	require.NoError(t, err)
}

func TestNextNumberNeverReset(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Create(env.ctx, domain.CreateRequest{
		DocumentType:  lifecycle.DocumentInvoice,
		Template:      "INV-{nnnnn}",
		ResetInterval: domain.ResetNever,
	})
	require.NoError(t, err)

	env.seedNumberedInvoice(t, "INV-00001", time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC))
	env.seedNumberedInvoice(t, "INV-00002", time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))

	number, err := env.svc.NextNumber(env.ctx, env.orgID, lifecycle.DocumentInvoice, time.Date(2025, time.August, 14, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "INV-00003", number)
}

func TestNextNumberIgnoresDrafts(t *testing.T) {
	env := newTestEnv(t)

	// A draft has no number yet and must not advance the sequence.
	headID := env.node.Generate()
	now := time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, env.db.Create(&invoicedomain.InvoiceHead{
		ID:        headID,
		OrgID:     env.orgID,
		RootID:    headID,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error)
	require.NoError(t, env.db.Create(&invoicedomain.Invoice{
		ID:         env.node.Generate(),
		OrgID:      env.orgID,
		HeadID:     headID,
		CustomerID: env.node.Generate(),
		Status:     lifecycle.StatusDraft,
		Currency:   "USD",
		CreatedAt:  now,
		UpdatedAt:  now,
	}).Error)

	number, err := env.svc.NextNumber(env.ctx, env.orgID, lifecycle.DocumentInvoice, now)
	require.NoError(t, err)
	assert.Equal(t, "INV-2025-0001", number)
}

func TestCreateRejectsDuplicateSystem(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Create(env.ctx, domain.CreateRequest{
		DocumentType: lifecycle.DocumentInvoice,
		Template:     "INV-{nnnn}",
	})
	require.NoError(t, err)

	_, err = env.svc.Create(env.ctx, domain.CreateRequest{
		DocumentType: lifecycle.DocumentInvoice,
		Template:     "OTHER-{nnnn}",
	})
	assert.ErrorIs(t, err, domain.ErrNumberingSystemExists)
}

func TestCreateValidatesResetInterval(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Create(env.ctx, domain.CreateRequest{
		DocumentType:  lifecycle.DocumentInvoice,
		Template:      "INV-{nnnn}",
		ResetInterval: "biweekly",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidResetInterval)
}
