// Package invoice renders order invoices as PDF documents.
package invoice

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"krishighor/internal/domain"
)

type Renderer interface {
	Render(w io.Writer, o domain.Order, items []domain.OrderItem) error
}

type PDF struct {
	Title   string
	Tagline string
	Contact string
}

func NewPDF() *PDF {
	return &PDF{
		Title:   "KrishiGhor - Bangladesh Crop Marketplace",
		Tagline: "KrishiGhor - Transparent Crop Pricing & Supply Chain Platform",
		Contact: "Contact: support@krishighor.com",
	}
}

func money(d interface{ StringFixed(int32) string }) string { return "BDT " + d.StringFixed(2) }

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func (p *PDF) Render(w io.Writer, o domain.Order, items []domain.OrderItem) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice "+o.ID, true)
	pdf.SetAuthor("KrishiGhor", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(p.Title), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, "Invoice", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	date := o.OrderDate
	if t, err := time.Parse(domain.OrderDateLayout, o.OrderDate); err == nil {
		date = t.Format("January 02, 2006 03:04 PM")
	}
	line := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(35, 6, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, tr(value), "", 1, "L", false, 0, "")
	}
	line("Order ID:", o.ID)
	line("Date:", date)
	line("Status:", domain.Humanize(o.Status))
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Shipping Information", "", 1, "L", false, 0, "")
	line("Email:", orDefault(o.ShippingEmail, "N/A"))
	line("Phone:", orDefault(o.ShippingPhone, "N/A"))
	line("Address:", orDefault(o.ShippingAddress, "N/A"))
	line("Region:", orDefault(o.ShippingRegion, "N/A"))
	pdf.Ln(6)

	widths := []float64{90, 25, 35, 35}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(46, 125, 50)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range []string{"Item", "Quantity", "Unit Price", "Total"} {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFillColor(248, 249, 250)
	for _, it := range items {
		name := it.CropName
		if name == "" {
			name = fmt.Sprintf("Crop #%d", it.CropID)
		}
		pdf.CellFormat(widths[0], 7, tr(name), "1", 0, "L", true, 0, "")
		pdf.CellFormat(widths[1], 7, fmt.Sprint(it.Quantity), "1", 0, "C", true, 0, "")
		pdf.CellFormat(widths[2], 7, money(it.UnitPrice), "1", 0, "C", true, 0, "")
		pdf.CellFormat(widths[3], 7, money(it.TotalPrice), "1", 1, "C", true, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 10)
	for _, row := range [][2]string{
		{"Subtotal:", money(o.TotalAmount)},
		{"Shipping:", "BDT 0.00"},
		{"Total:", money(o.TotalAmount)},
	} {
		pdf.CellFormat(widths[0]+widths[1], 7, "", "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[2], 7, row[0], "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[3], 7, row[1], "1", 1, "C", false, 0, "")
	}
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Payment Information", "", 1, "L", false, 0, "")
	line("Method:", domain.Humanize(o.PaymentMethod))
	line("Status:", domain.Humanize(orDefault(o.PaymentStatus, domain.PaymentPending)))
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "Thank you for your business!", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(0, 5, tr(p.Tagline), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, tr(p.Contact), "", 1, "L", false, 0, "")

	return pdf.Output(w)
}
