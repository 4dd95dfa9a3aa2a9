// Package pdf renders invoices as A4 PDF documents.
package pdf

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"szamlazo/internal/core"
)

const (
	marginX      = 15.0
	marginTop    = 15.0
	marginBottom = 20.0
	lineH        = 5.0
	rowH         = 7.0
)

// column widths of the item table, summing to the printable width
var colW = []float64{80, 25, 37.5, 37.5}

// The core fonts only cover cp1252, which lacks the Hungarian double acute
// letters; they are replaced with the closest cp1252 glyphs.
var doubleAcute = strings.NewReplacer("ő", "õ", "Ő", "Õ", "ű", "û", "Ű", "Û")

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Filename returns the download name for an invoice number.
func Filename(invoiceNumber string) string {
	name := unsafeFilename.ReplaceAllString(invoiceNumber, "_")
	if strings.Trim(name, "_.") == "" {
		name = "invoice"
	}
	return "invoice_" + name + ".pdf"
}

// Render writes the invoice to w. A zero owner prints a placeholder letterhead.
func Render(w io.Writer, owner core.OwnerCompany, company core.Company, inv core.Invoice) error {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetMargins(marginX, marginTop, marginX)
	doc.SetAutoPageBreak(true, marginBottom)
	doc.AliasNbPages("")
	doc.SetTitle("Számla "+inv.InvoiceNumber, true)

	cp := doc.UnicodeTranslatorFromDescriptor("")
	tr := func(s string) string { return cp(doubleAcute.Replace(s)) }

	doc.SetFooterFunc(func() {
		doc.SetY(-15)
		doc.SetFont("Helvetica", "I", 8)
		doc.CellFormat(0, 10, fmt.Sprintf("%s  -  %d/{nb}", tr(inv.InvoiceNumber), doc.PageNo()), "", 0, "C", false, 0, "")
	})

	doc.AddPage()

	// letterhead
	doc.SetFont("Helvetica", "B", 14)
	if owner.IsEmpty() {
		doc.CellFormat(0, 8, tr("Saját cég adatai nincsenek megadva"), "", 1, "L", false, 0, "")
	} else {
		doc.CellFormat(0, 8, tr(owner.Name), "", 1, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 9)
		for _, l := range labelled([][2]string{
			{"", owner.Address},
			{"Adószám", owner.TaxNumber},
			{"Bankszámla", owner.BankAccount},
			{"E-mail", owner.Email},
			{"Telefon", owner.Phone},
		}) {
			doc.CellFormat(0, lineH, tr(l), "", 1, "L", false, 0, "")
		}
	}

	doc.Ln(4)
	doc.SetFont("Helvetica", "B", 20)
	doc.CellFormat(0, 12, tr("SZÁMLA"), "", 1, "C", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(0, lineH+1, tr("Számlaszám: "+inv.InvoiceNumber), "", 1, "C", false, 0, "")
	doc.Ln(4)

	// customer and invoice details side by side
	top := doc.GetY()
	half := (210 - 2*marginX) / 2
	doc.SetFont("Helvetica", "B", 10)
	doc.CellFormat(half, lineH+1, tr("Vevő"), "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 9)
	for _, l := range labelled([][2]string{
		{"", company.Name},
		{"", company.Address},
		{"Adószám", company.TaxNumber},
		{"Bankszámla", company.BankAccount},
		{"Kapcsolattartó", company.ContactPerson},
		{"E-mail", company.Email},
		{"Telefon", company.Phone},
	}) {
		doc.CellFormat(half, lineH, tr(l), "", 1, "L", false, 0, "")
	}
	leftBottom := doc.GetY()

	doc.SetXY(marginX+half, top)
	doc.SetFont("Helvetica", "B", 10)
	doc.CellFormat(half, lineH+1, tr("Számla adatai"), "", 2, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 9)
	for _, l := range labelled([][2]string{
		{"Kiállítás dátuma", inv.IssueDate.String()},
		{"Fizetési határidő", inv.DueDate.String()},
		{"Pénznem", inv.Currency},
	}) {
		doc.CellFormat(half, lineH, tr(l), "", 2, "L", false, 0, "")
	}
	if doc.GetY() < leftBottom {
		doc.SetY(leftBottom)
	}
	doc.Ln(6)

	// items
	_, pageH := doc.GetPageSize()
	header := func() {
		doc.SetFont("Helvetica", "B", 9)
		doc.SetFillColor(230, 230, 230)
		for i, h := range []string{"Megnevezés", "Mennyiség", "Egységár", "Összeg"} {
			align := "R"
			if i == 0 {
				align = "L"
			}
			doc.CellFormat(colW[i], rowH, tr(h), "1", 0, align, true, 0, "")
		}
		doc.Ln(-1)
		doc.SetFont("Helvetica", "", 9)
	}
	header()
	for _, it := range inv.Items {
		if doc.GetY()+rowH > pageH-marginBottom {
			doc.AddPage()
			header()
		}
		doc.CellFormat(colW[0], rowH, tr(fit(doc, tr, it.Description, colW[0]-2)), "1", 0, "L", false, 0, "")
		doc.CellFormat(colW[1], rowH, core.FormatQuantity(it.Quantity), "1", 0, "R", false, 0, "")
		doc.CellFormat(colW[2], rowH, core.FormatAmount(it.UnitPrice), "1", 0, "R", false, 0, "")
		doc.CellFormat(colW[3], rowH, core.FormatAmount(it.Total()), "1", 0, "R", false, 0, "")
		doc.Ln(-1)
	}

	doc.SetFont("Helvetica", "B", 10)
	doc.CellFormat(colW[0]+colW[1]+colW[2], rowH+1, tr("Végösszeg"), "1", 0, "R", false, 0, "")
	doc.CellFormat(colW[3], rowH+1, tr(core.FormatMoney(inv.Total(), inv.Currency)), "1", 1, "R", false, 0, "")

	if strings.TrimSpace(inv.Note) != "" {
		doc.Ln(6)
		doc.SetFont("Helvetica", "B", 9)
		doc.CellFormat(0, lineH, tr("Megjegyzés"), "", 1, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 9)
		doc.MultiCell(0, lineH, tr(inv.Note), "", "L", false)
	}

	if err := doc.Output(w); err != nil {
		return fmt.Errorf("render invoice %s: %w", inv.InvoiceNumber, err)
	}
	return nil
}

// labelled drops empty values and prefixes the rest with their label.
func labelled(pairs [][2]string) []string {
	var out []string
	for _, p := range pairs {
		if strings.TrimSpace(p[1]) == "" {
			continue
		}
		if p[0] == "" {
			out = append(out, p[1])
			continue
		}
		out = append(out, p[0]+": "+p[1])
	}
	return out
}

// fit shortens s with an ellipsis until it fits into width.
func fit(doc *gofpdf.Fpdf, tr func(string) string, s string, width float64) string {
	if doc.GetStringWidth(tr(s)) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && doc.GetStringWidth(tr(string(r)+"...")) > width {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}
