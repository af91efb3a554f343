package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"koshish/internal/models"
)

// AccountExporter renders an account summary PDF for the
// /users/me/export endpoint.
type AccountExporter struct{}

func NewAccountExporter() *AccountExporter {
	return &AccountExporter{}
}

func (g *AccountExporter) Render(acc *models.Account) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Account %d", acc.ID), false)
	pdf.SetAuthor("PCTE Koshish Planning", false)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, "Account Summary", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 12)
	sub := fmt.Sprintf("Generated on %s", time.Now().Format("02 Jan 2006"))
	pdf.CellFormat(0, 7, sub, "", 1, "C", false, 0, "")
	g.hr(pdf)

	pdf.Ln(3)

	g.sectionTitle(pdf, "Profile")
	g.kvLine(pdf, "Name", acc.Name)
	g.kvLine(pdf, "Email", acc.Email)
	g.kvLine(pdf, "Phone", acc.PhoneNumber)
	g.kvLine(pdf, "Role", string(acc.UserType))
	pdf.Ln(2)
	g.hr(pdf)

	g.sectionTitle(pdf, "Status")
	verified := "No"
	if acc.Verified {
		verified = "Yes"
	}
	g.kvLine(pdf, "Verified", verified)
	google := "Not linked"
	if acc.GoogleID != nil {
		google = "Linked"
	}
	g.kvLine(pdf, "Google login", google)
	g.kvLine(pdf, "Member since", acc.CreatedAt.Format("02 Jan 2006"))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("account pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *AccountExporter) sectionTitle(pdf *gofpdf.Fpdf, s string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 7, s, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
}

func (g *AccountExporter) kvLine(pdf *gofpdf.Fpdf, key, val string) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(45, 6, key+":", "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, val, "", 1, "L", false, 0, "")
}

func (g *AccountExporter) hr(pdf *gofpdf.Fpdf) {
	y := pdf.GetY() + 1.5
	pdf.SetLineWidth(0.2)
	pdf.Line(20, y, 190, y)
	pdf.SetY(y + 2)
}
