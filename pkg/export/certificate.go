package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// AdmissionData carries the fields printed on a certificate of admission.
type AdmissionData struct {
	ApplicationNumber string
	FirstName         string
	MiddleName        string
	LastName          string
	GradeLevel        string
	ApprovedAt        time.Time
}

// CertificateRenderer produces admission certificate PDFs.
type CertificateRenderer struct{}

// NewCertificateRenderer constructs a certificate renderer.
func NewCertificateRenderer() *CertificateRenderer {
	return &CertificateRenderer{}
}

// Render creates the certificate of admission document.
func (r *CertificateRenderer) Render(data AdmissionData) ([]byte, error) {
	if data.ApplicationNumber == "" {
		return nil, fmt.Errorf("certificate requires an application number")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 12, "CERTIFICATE OF ADMISSION", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	name := strings.TrimSpace(fmt.Sprintf("%s, %s %s", data.LastName, data.FirstName, data.MiddleName))

	pdf.SetFont("Arial", "", 11)
	lines := [][2]string{
		{"Application Number", data.ApplicationNumber},
		{"Student Name", name},
		{"Grade Level", data.GradeLevel},
		{"Status", "ADMITTED"},
		{"Date of Approval", data.ApprovedAt.Format("January 2, 2006")},
	}
	for _, line := range lines {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(50, 8, line[0]+":", "", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(0, 8, line[1], "", 1, "", false, 0, "")
	}

	pdf.Ln(8)
	pdf.SetFont("Arial", "I", 10)
	pdf.MultiCell(0, 6, "This document serves as official confirmation of admission.", "", "", false)

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}
	return buf.Bytes(), nil
}
