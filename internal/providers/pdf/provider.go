package pdf

import (
	"context"
	"io"

	creditnotedomain "github.com/billora/billora/internal/creditnote/domain"
	invoicedomain "github.com/billora/billora/internal/invoice/domain"
	orgdomain "github.com/billora/billora/internal/organization/domain"
	"go.uber.org/fx"
)

// Renderer turns billing documents into printable artifacts. Drafts render
// too, with a "DRAFT" marker in place of the number.
type Renderer interface {
	RenderInvoice(ctx context.Context, org *orgdomain.Organization, invoice *invoicedomain.Invoice) (io.Reader, error)
	RenderCreditNote(ctx context.Context, org *orgdomain.Organization, note *creditnotedomain.CreditNote) (io.Reader, error)
}

var Module = fx.Module("providers.pdf",
	fx.Provide(New),
)
