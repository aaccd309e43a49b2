package export

import (
	"bytes"
	"fmt"

	"kijko/internal/vrd"

	"github.com/go-pdf/fpdf"
)

// RenderPDF renders the document as PDF bytes.
func RenderPDF(doc *vrd.Document) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 9, orPlaceholder(doc.Title, "Video Requirements Document"), "", "L", false)

	pdf.SetFont("Helvetica", "I", 9)
	pdf.MultiCell(0, 5, "Generated "+doc.GeneratedAt.Format("2006-01-02 15:04"), "", "L", false)
	pdf.Ln(4)

	writeSection(pdf, "Overview", orPlaceholder(doc.Overview, "Not discussed yet."))
	writeList(pdf, "Requirements", doc.Requirements)
	writeList(pdf, "Technical Specifications", doc.TechSpecs)
	writeSection(pdf, "Timeline", orPlaceholder(doc.Timeline, "Not discussed yet."))
	writeSection(pdf, "Budget", orPlaceholder(doc.Budget, "Not discussed yet."))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("export: rendering pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSection(pdf *fpdf.Fpdf, title, body string) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.MultiCell(0, 7, title, "", "L", false)
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, body, "", "L", false)
	pdf.Ln(3)
}

func writeList(pdf *fpdf.Fpdf, title string, items []string) {
	if len(items) == 0 {
		writeSection(pdf, title, "Not discussed yet.")
		return
	}
	pdf.SetFont("Helvetica", "B", 13)
	pdf.MultiCell(0, 7, title, "", "L", false)
	pdf.SetFont("Helvetica", "", 11)
	for _, item := range items {
		pdf.MultiCell(0, 6, "- "+item, "", "L", false)
	}
	pdf.Ln(3)
}
