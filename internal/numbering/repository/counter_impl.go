package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/billora/billora/internal/lifecycle"
	"github.com/billora/billora/internal/numbering/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// numberedAt is the column set when the number is assigned. The window
// filter runs on it rather than created_at: a draft created in one reset
// period and numbered in the next belongs to the period it was numbered in.
type documentSource struct {
	table      string
	numberedAt string
}

var documentSources = map[lifecycle.DocumentType]documentSource{
	lifecycle.DocumentInvoice:    {table: "invoices", numberedAt: "finalized_at"},
	lifecycle.DocumentCreditNote: {table: "credit_notes", numberedAt: "issued_at"},
	lifecycle.DocumentQuote:      {table: "quotes", numberedAt: "opened_at"},
}

type CounterParam struct {
	fx.In

	DB *gorm.DB
}

type counter struct {
	db *gorm.DB
}

func NewDocumentCounter(p CounterParam) domain.DocumentCounter {
	return &counter{db: p.DB}
}

// CountInWindow counts documents of the type numbered inside the half-open
// [start, end) window. Drafts carry no number yet and are excluded. A
// non-nil tx keeps the count on the caller's transaction.
func (c *counter) CountInWindow(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, docType lifecycle.DocumentType, start, end *time.Time) (int64, error) {
	src, ok := documentSources[docType]
	if !ok {
		return 0, fmt.Errorf("%w: %s", lifecycle.ErrUnknownDocument, docType)
	}

	conn := c.db
	if tx != nil {
		conn = tx
	}
	query := conn.WithContext(ctx).
		Table(src.table).
		Where("org_id = ? AND number IS NOT NULL", orgID)
	if start != nil {
		query = query.Where(src.numberedAt+" >= ?", *start)
	}
	if end != nil {
		query = query.Where(src.numberedAt+" < ?", *end)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
