package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	invoicedomain "github.com/billora/billora/internal/invoice/domain"
	orgdomain "github.com/billora/billora/internal/organization/domain"
	"github.com/billora/billora/pkg/money"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
)

type renderer struct{}

func New() Renderer {
	return &renderer{}
}

func newDocument() core.Maroto {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()
	return maroto.New(cfg)
}

func documentNumber(number *string) string {
	if number == nil {
		return "DRAFT"
	}
	return *number
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("Jan 2, 2006")
}

func formatAmount(amount decimal.Decimal, currency string) string {
	return money.New(amount, currency).String()
}

func (r *renderer) RenderInvoice(ctx context.Context, org *orgdomain.Organization, invoice *invoicedomain.Invoice) (io.Reader, error) {
	m := newDocument()

	m.AddRow(10,
		text.NewCol(12, "Invoice", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(20,
		col.New(6).Add(
			text.New("Invoice number: "+documentNumber(invoice.Number), props.Text{Top: 0}),
			text.New("Date of issue: "+formatDate(invoice.FinalizedAt), props.Text{Top: 4}),
			text.New("Date due: "+formatDate(invoice.DueAt), props.Text{Top: 8}),
			text.New("Status: "+string(invoice.Status), props.Text{Top: 12}),
		),
		col.New(2),
		col.New(4).Add(
			text.New(org.Name, props.Text{Style: fontstyle.Bold}),
			text.New("Currency: "+invoice.Currency, props.Text{Top: 5}),
		),
	)

	if invoice.Memo != "" {
		m.AddRow(12,
			text.NewCol(12, invoice.Memo, props.Text{Size: 9}),
		)
	}

	m.AddRow(10,
		text.NewCol(6, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Unit price", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	for _, line := range invoice.Lines {
		m.AddRow(8,
			text.NewCol(6, line.Description, props.Text{Size: 9}),
			text.NewCol(2, fmt.Sprintf("%d", line.Quantity), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, formatAmount(line.UnitAmount, invoice.Currency), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, formatAmount(line.Amount, invoice.Currency), props.Text{Size: 9, Align: align.Right}),
		)
	}

	totals := []struct {
		label string
		value decimal.Decimal
		bold  bool
	}{
		{"Subtotal", invoice.Subtotal, false},
		{"Discount", invoice.TotalDiscount.Neg(), false},
		{"Tax", invoice.TotalTax, false},
		{"Total", invoice.TotalAmount, false},
		{"Credited", invoice.TotalCredited.Neg(), false},
		{"Paid", invoice.TotalPaid.Neg(), false},
		{"Amount due", invoice.Outstanding, true},
	}
	for _, row := range totals {
		style := fontstyle.Normal
		if row.bold {
			style = fontstyle.Bold
		}
		m.AddRow(8,
			col.New(8),
			text.NewCol(2, row.label, props.Text{Size: 9, Style: style}),
			text.NewCol(2, formatAmount(row.value, invoice.Currency), props.Text{Size: 9, Style: style, Align: align.Right}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}
