// Package render produces quote PDF documents. Rendering is a pure function
// of the quote and optional customer snapshot: no shared state, no network.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	"github.com/quoteforge/quoteforge/internal/ledger"
	"github.com/quoteforge/quoteforge/internal/money"
)

// ErrMissingQuoteNumber is returned for quotes without an assigned number;
// the renderer fails fast instead of emitting a document with blank fields.
var ErrMissingQuoteNumber = errors.New("render: quote number is required")

// Renderer lays out quotes on a fixed coordinate grid (portrait A4,
// millimetre units, Helvetica).
type Renderer struct {
	layout LayoutPolicy
}

// New returns a renderer with the default layout policy.
func New() *Renderer {
	return &Renderer{layout: DefaultLayout}
}

// NewWithLayout returns a renderer with a custom page-break policy.
func NewWithLayout(policy LayoutPolicy) *Renderer {
	return &Renderer{layout: policy}
}

// Filename is the artifact name for a rendered quote.
func Filename(q ledger.Quote) string {
	return "quote-" + q.QuoteNumber + ".pdf"
}

// QuotePDF renders the quote, with the customer's billing block when one is
// supplied or a denormalized customer name exists on the quote.
func (r *Renderer) QuotePDF(q ledger.Quote, customer *ledger.Customer) ([]byte, error) {
	if q.QuoteNumber == "" {
		return nil, ErrMissingQuoteNumber
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(false)
	pdf.AddPage()

	// Title block.
	pdf.SetFont("Helvetica", "B", 20)
	pdf.Text(20, 30, "QUOTATION")

	// Metadata block at fixed offsets.
	pdf.SetFont("Helvetica", "", 12)
	pdf.Text(20, 50, "Quote Number: "+q.QuoteNumber)
	pdf.Text(20, 60, "Date: "+q.CreatedAt.Format("1/2/2006"))
	pdf.Text(20, 70, "Status: "+string(q.Status))

	billed := r.billingBlock(pdf, q, customer)

	// The table header has two fixed start positions, depending on whether
	// a billing block was rendered.
	tableStartY := 100.0
	if billed {
		tableStartY = 140
	}
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Text(20, tableStartY, "DESCRIPTION")
	pdf.Text(100, tableStartY, "QTY")
	pdf.Text(130, tableStartY, "UNIT PRICE")
	pdf.Text(170, tableStartY, "TOTAL")
	pdf.Line(20, tableStartY+5, 190, tableStartY+5)

	pdf.SetFont("Helvetica", "", 12)
	cur := cursor{policy: r.layout, y: tableStartY + 15}

	for _, item := range q.Items {
		// Break check runs per item; see LayoutPolicy.
		if cur.needsBreak() {
			pdf.AddPage()
			cur.reset()
		}
		pdf.Text(20, cur.y, item.ProductName)
		pdf.Text(20, cur.y+8, item.Description)
		pdf.Text(100, cur.y, strconv.Itoa(item.Quantity))
		pdf.Text(130, cur.y, money.Format(item.UnitPrice))
		pdf.Text(170, cur.y, money.Format(item.TotalPrice))
		cur.advance(20)
	}

	// Totals block.
	cur.advance(10)
	pdf.Line(130, cur.y, 190, cur.y)
	cur.advance(10)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Text(130, cur.y, "SUBTOTAL:")
	pdf.Text(170, cur.y, money.Format(q.Subtotal))
	cur.advance(10)
	pdf.Text(130, cur.y, "TOTAL:")
	pdf.Text(170, cur.y, money.Format(q.Total))

	// Optional notes, wrapped to the printable width.
	if q.Notes != nil && *q.Notes != "" {
		cur.advance(20)
		pdf.Text(20, cur.y, "NOTES:")
		pdf.SetFont("Helvetica", "", 12)
		lines := pdf.SplitText(*q.Notes, 170)
		y := cur.y + 10
		for _, line := range lines {
			pdf.Text(20, y, line)
			y += 5
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render: output: %w", err)
	}
	return buf.Bytes(), nil
}

// billingBlock renders the BILL TO section and reports whether it was drawn.
// Missing optional fields are skipped entirely, never left as blank lines.
func (r *Renderer) billingBlock(pdf *gofpdf.Fpdf, q ledger.Quote, customer *ledger.Customer) bool {
	hasName := q.CustomerName != nil && *q.CustomerName != ""
	if customer == nil && !hasName {
		return false
	}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Text(20, 90, "BILL TO:")
	pdf.SetFont("Helvetica", "", 12)

	y := 100.0
	if customer != nil {
		pdf.Text(20, y, customer.Name)
		if customer.Company != nil && *customer.Company != "" {
			y += 10
			pdf.Text(20, y, *customer.Company)
		}
		if customer.Email != nil && *customer.Email != "" {
			y += 10
			pdf.Text(20, y, *customer.Email)
		}
		if customer.Address != nil && *customer.Address != "" {
			y += 10
			pdf.Text(20, y, *customer.Address)
		}
		return true
	}

	pdf.Text(20, y, *q.CustomerName)
	return true
}
