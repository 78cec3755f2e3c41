package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// CertificateData carries everything printed on a completion certificate.
type CertificateData struct {
	SerialNumber string
	StudentName  string
	CourseTitle  string
	TrainerName  string
	IssuerName   string
	CompletedAt  time.Time
}

// CertificateRenderer produces completion certificates as PDF documents.
type CertificateRenderer struct{}

// NewCertificateRenderer constructs a certificate renderer.
func NewCertificateRenderer() *CertificateRenderer {
	return &CertificateRenderer{}
}

// Render draws a landscape A4 certificate and returns the PDF bytes.
func (r *CertificateRenderer) Render(data CertificateData) ([]byte, error) {
	if data.StudentName == "" || data.CourseTitle == "" {
		return nil, fmt.Errorf("certificate requires student name and course title")
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(20, 25, 20)
	pdf.AddPage()

	pdf.SetDrawColor(30, 60, 120)
	pdf.SetLineWidth(1.2)
	pdf.Rect(10, 10, 277, 190, "D")

	pdf.SetFont("Arial", "B", 28)
	pdf.CellFormat(0, 20, tr("CERTIFICAT DE RÉUSSITE"), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Arial", "", 14)
	pdf.CellFormat(0, 10, tr("décerné à"), "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "B", 22)
	pdf.CellFormat(0, 14, tr(data.StudentName), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 14)
	pdf.CellFormat(0, 10, tr("pour avoir complété la formation"), "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 12, tr(data.CourseTitle), "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 12)
	completed := data.CompletedAt
	if completed.IsZero() {
		completed = time.Now().UTC()
	}
	pdf.CellFormat(0, 8, tr(fmt.Sprintf("le %s", completed.Format("02/01/2006"))), "", 1, "C", false, 0, "")
	if data.TrainerName != "" {
		pdf.CellFormat(0, 8, tr(fmt.Sprintf("Formateur : %s", data.TrainerName)), "", 1, "C", false, 0, "")
	}
	pdf.Ln(10)

	pdf.SetFont("Arial", "I", 10)
	if data.IssuerName != "" {
		pdf.CellFormat(0, 6, tr(data.IssuerName), "", 1, "C", false, 0, "")
	}
	if data.SerialNumber != "" {
		pdf.CellFormat(0, 6, tr(fmt.Sprintf("N° %s", data.SerialNumber)), "", 1, "C", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}
	return buf.Bytes(), nil
}
