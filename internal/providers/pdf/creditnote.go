package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"

	creditnotedomain "github.com/billora/billora/internal/creditnote/domain"
	orgdomain "github.com/billora/billora/internal/organization/domain"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

func (r *renderer) RenderCreditNote(ctx context.Context, org *orgdomain.Organization, note *creditnotedomain.CreditNote) (io.Reader, error) {
	m := newDocument()

	m.AddRow(10,
		text.NewCol(12, "Credit note", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(20,
		col.New(6).Add(
			text.New("Credit note number: "+documentNumber(note.Number), props.Text{Top: 0}),
			text.New("Date of issue: "+formatDate(note.IssuedAt), props.Text{Top: 4}),
			text.New("Status: "+string(note.Status), props.Text{Top: 8}),
		),
		col.New(2),
		col.New(4).Add(
			text.New(org.Name, props.Text{Style: fontstyle.Bold}),
			text.New("Currency: "+note.Currency, props.Text{Top: 5}),
		),
	)

	if note.Reason != "" {
		m.AddRow(12,
			text.NewCol(12, "Reason: "+note.Reason, props.Text{Size: 9}),
		)
	}

	m.AddRow(10,
		text.NewCol(6, "Credited line", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Tax", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Total", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	for _, line := range note.Lines {
		m.AddRow(8,
			text.NewCol(6, line.InvoiceLineID.String(), props.Text{Size: 9}),
			text.NewCol(2, fmt.Sprintf("%d", line.Quantity), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, formatAmount(line.Tax, note.Currency), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, formatAmount(line.Total, note.Currency), props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(8,
		col.New(8),
		text.NewCol(2, "Excluding tax", props.Text{Size: 9}),
		text.NewCol(2, formatAmount(note.TotalExcludingTax, note.Currency), props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(8,
		col.New(8),
		text.NewCol(2, "Tax", props.Text{Size: 9}),
		text.NewCol(2, formatAmount(note.TotalTax, note.Currency), props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(8,
		col.New(8),
		text.NewCol(2, "Total credited", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, formatAmount(note.TotalAmount, note.Currency), props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}
