package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Datasets wider than this flip to landscape so application and payment
// exports with many columns stay readable.
const wideColumnThreshold = 6

// PDFExporter renders datasets into a paginated tabular PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF table. The header row repeats on every page; the
// footer carries the page count and the generation timestamp. Cell values
// that do not fit their column are trimmed with an ellipsis.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}

	orientation := "P"
	if len(data.Headers) > wideColumnThreshold {
		orientation = "L"
	}
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(10, 14, 10)
	pdf.AliasNbPages("")
	generated := time.Now().UTC().Format("2006-01-02 15:04 UTC")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(100, 6, "Generated "+generated, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.SetAutoPageBreak(true, 18)
	pdf.AddPage()

	pageWidth, pageHeight := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	colWidth := (pageWidth - left - right) / float64(len(data.Headers))

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	drawHeader := func() {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(235, 235, 235)
		for _, header := range data.Headers {
			pdf.CellFormat(colWidth, 8, e.fit(pdf, header, colWidth), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
	}
	drawHeader()

	pdf.SetFont("Arial", "", 8)
	for _, row := range data.Rows {
		if pdf.GetY()+7 > pageHeight-18 {
			pdf.AddPage()
			drawHeader()
			pdf.SetFont("Arial", "", 8)
		}
		for _, header := range data.Headers {
			pdf.CellFormat(colWidth, 7, e.fit(pdf, row[header], colWidth), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) fit(pdf *gofpdf.Fpdf, value string, width float64) string {
	usable := width - 2
	if pdf.GetStringWidth(value) <= usable {
		return value
	}
	runes := []rune(value)
	for len(runes) > 1 && pdf.GetStringWidth(string(runes)+"...") > usable {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
