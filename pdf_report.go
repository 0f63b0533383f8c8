package main

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
)

// PDFCalculationReport renders one calculation breakdown as a single A4 page
type PDFCalculationReport struct {
	pdf       *fpdf.Fpdf
	breakdown breakdown
	reportID  string
	generated time.Time
	text      func(string) string
}

const (
	pageWidth    = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 20.0
	contentWidth = pageWidth - marginLeft - marginRight
)

var breakdownColumns = []float64{contentWidth * 0.6, contentWidth * 0.4}

// GenerateCalculationPDF renders a breakdown and returns the PDF bytes with its report ID
func GenerateCalculationPDF(b breakdown, generated time.Time) ([]byte, string, error) {
	report := &PDFCalculationReport{
		pdf:       fpdf.New("P", "mm", "A4", ""),
		breakdown: b,
		reportID:  uuid.NewString(),
		generated: generated,
	}
	// Core fonts are cp1252; anything outside it is replaced rather than garbled.
	report.text = report.pdf.UnicodeTranslatorFromDescriptor("")

	report.pdf.SetMargins(marginLeft, marginTop, marginRight)
	report.pdf.SetAutoPageBreak(true, marginBottom)
	report.pdf.SetTitle(b.Title, true)
	report.pdf.SetCreator("proptax", true)

	report.pdf.AddPage()
	report.addTitle()
	report.addTable("Inputs", []string{"Item", "Value"}, report.breakdown.Inputs)
	report.addTable("Calculation", []string{"Step", "Amount"}, report.breakdown.Steps)
	report.drawTableRow([]string{b.Total.Label, b.Total.Value}, breakdownColumns, true)
	report.addFooter()

	if err := report.pdf.Error(); err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	if err := report.pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), report.reportID, nil
}

func (r *PDFCalculationReport) addTitle() {
	r.pdf.SetFont("Arial", "B", 22)
	r.pdf.SetTextColor(0, 51, 102)
	r.pdf.CellFormat(contentWidth, 12, r.text(r.breakdown.Title), "", 1, "C", false, 0, "")

	r.pdf.SetFont("Arial", "I", 10)
	r.pdf.SetTextColor(80, 80, 80)
	r.pdf.CellFormat(contentWidth, 6, fmt.Sprintf("Korean tax year 2025 - generated %s", r.generated.Format("2 January 2006")),
		"", 1, "C", false, 0, "")
	r.pdf.Ln(8)
}

func (r *PDFCalculationReport) addTable(title string, headers []string, rows []breakdownRow) {
	r.drawSectionHeader(title)
	r.drawTableHeader(headers, breakdownColumns)
	for _, row := range rows {
		r.drawTableRow([]string{row.Label, row.Value}, breakdownColumns, false)
	}
	r.pdf.Ln(6)
}

func (r *PDFCalculationReport) addFooter() {
	r.pdf.Ln(10)
	r.pdf.SetFont("Arial", "I", 8)
	r.pdf.SetTextColor(120, 120, 120)
	r.pdf.MultiCell(contentWidth, 4,
		"Estimate based on the 2025 statutory tables. Local rules and individual circumstances may change the result. "+
			"This is not tax advice.", "", "C", false)
	r.pdf.CellFormat(contentWidth, 5, "Report ID: "+r.reportID, "", 1, "C", false, 0, "")
}

func (r *PDFCalculationReport) drawSectionHeader(title string) {
	r.pdf.SetFont("Arial", "B", 14)
	r.pdf.SetTextColor(0, 51, 102)
	r.pdf.CellFormat(contentWidth, 9, r.text(title), "", 1, "L", false, 0, "")
	r.pdf.SetDrawColor(0, 51, 102)
	r.pdf.Line(marginLeft, r.pdf.GetY(), marginLeft+contentWidth, r.pdf.GetY())
	r.pdf.Ln(4)
}

func (r *PDFCalculationReport) drawTableHeader(headers []string, widths []float64) {
	r.pdf.SetFillColor(0, 51, 102)
	r.pdf.SetTextColor(255, 255, 255)
	r.pdf.SetFont("Arial", "B", 9)

	for i, header := range headers {
		align := "L"
		if i > 0 {
			align = "R"
		}
		r.pdf.CellFormat(widths[i], 6, r.text(header), "1", 0, align, true, 0, "")
	}
	r.pdf.Ln(-1)
}

func (r *PDFCalculationReport) drawTableRow(cells []string, widths []float64, isBold bool) {
	r.pdf.SetFillColor(250, 250, 250)
	r.pdf.SetTextColor(50, 50, 50)

	if isBold {
		r.pdf.SetFont("Arial", "B", 10)
		r.pdf.SetFillColor(240, 240, 240)
	} else {
		r.pdf.SetFont("Arial", "", 9)
	}

	for i, cell := range cells {
		align := "L"
		if i > 0 {
			align = "R"
		}
		r.pdf.CellFormat(widths[i], 6, r.text(cell), "1", 0, align, true, 0, "")
	}
	r.pdf.Ln(-1)
}
