package certificate

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Data carries everything printed onto a clearance certificate.
type Data struct {
	Institution   string
	IssuingOffice string

	StudentName string
	Department  string
	Program     string
	StudentID   string

	RequestID   string
	RequestType string
	Reason      string

	IssuedAt   time.Time
	ValidUntil time.Time

	Signatures []Signature
}

// Signature records one completed approval step.
type Signature struct {
	Approver string
	Date     time.Time
}

// Renderer produces clearance certificates as PDF documents.
type Renderer struct{}

// NewRenderer constructs a certificate renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render lays out the certificate and returns the PDF bytes.
func (r *Renderer) Render(data Data) ([]byte, error) {
	if strings.TrimSpace(data.StudentName) == "" {
		return nil, fmt.Errorf("certificate requires a student name")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(18, 20, 18)
	pdf.AddPage()

	// Double border frame.
	pdf.SetDrawColor(37, 99, 235)
	pdf.SetLineWidth(1.6)
	pdf.Rect(6, 6, 198, 285, "D")
	pdf.SetDrawColor(30, 64, 175)
	pdf.SetLineWidth(0.4)
	pdf.Rect(10, 10, 190, 277, "D")

	pdf.SetTextColor(30, 64, 175)
	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 12, strings.ToUpper(data.Institution), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(0, 8, strings.ToUpper(data.IssuingOffice), "", 1, "C", false, 0, "")
	pdf.Ln(2)
	pdf.SetTextColor(220, 38, 38)
	pdf.SetFont("Arial", "B", 15)
	pdf.CellFormat(0, 10, "STUDENT CLEARANCE CERTIFICATE", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	section := func(title string) {
		pdf.SetTextColor(31, 41, 55)
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 9, title, "", 1, "L", false, 0, "")
	}
	field := func(label, value string) {
		if value == "" {
			value = "N/A"
		}
		pdf.SetTextColor(55, 65, 81)
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 7, fmt.Sprintf("%s: %s", label, value), "", 1, "L", false, 0, "")
	}

	section("STUDENT INFORMATION")
	field("Name", data.StudentName)
	field("Department", data.Department)
	field("Program", data.Program)
	field("ID Number", data.StudentID)
	field("Date", data.IssuedAt.Format("2006-01-02"))
	pdf.Ln(4)

	section("CLEARANCE DETAILS")
	field("Type", data.RequestType)
	field("Reason", data.Reason)
	field("Certificate ID", "CERT-"+data.RequestID)
	field("Valid Until", data.ValidUntil.Format("2006-01-02"))
	pdf.Ln(4)

	pdf.SetTextColor(5, 150, 105)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 9, "APPROVAL STATUS: COMPLETED", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	section("APPROVAL SIGNATURES")
	pdf.SetTextColor(55, 65, 81)
	pdf.SetFont("Arial", "", 9)
	for i, sig := range data.Signatures {
		line := fmt.Sprintf("%d. %s: APPROVED (%s)", i+1, sig.Approver, sig.Date.Format("2006-01-02"))
		pdf.CellFormat(0, 6, line, "", 1, "L", false, 0, "")
	}
	pdf.Ln(8)

	pdf.SetTextColor(107, 114, 128)
	pdf.SetFont("Arial", "I", 9)
	pdf.CellFormat(0, 6, "This document certifies completion of all required university clearance procedures.", "", 1, "C", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}
	return buf.Bytes(), nil
}
