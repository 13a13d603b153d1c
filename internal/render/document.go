// Package render produces the printable, verifiable document for an approved gate pass.
//
// Rendering is a pure function of the stored record: the same approved pass always
// yields byte-identical output, so a reissued document carries the same QR payload.
package render

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/skip2/go-qrcode"

	apperrors "gatepass/internal/errors"
	"gatepass/internal/model"
)

const (
	qrImageName = "qr"
	qrPixels    = 256
	qrSizeMM    = 45.0

	dateLayout     = "02 Jan 2006"
	dateTimeLayout = "02 Jan 2006 15:04"

	labelWidth = 45.0
	lineHeight = 6.0
)

// Options configure document text that is not part of the pass record.
type Options struct {
	Title    string
	Location *time.Location
}

// Renderer turns approved passes into PDF documents.
type Renderer struct {
	signer *Signer
	opts   Options
}

// NewRenderer creates a renderer that stamps documents with fingerprints from signer.
func NewRenderer(signer *Signer, opts Options) *Renderer {
	if opts.Title == "" {
		opts.Title = "HOSTEL GATE PASS"
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Renderer{signer: signer, opts: opts}
}

// Signer returns the fingerprint signer used for payloads.
func (r *Renderer) Signer() *Signer {
	return r.signer
}

// Render produces the PDF for pass. The pass must be approved and loaded with its
// student and approver.
func (r *Renderer) Render(pass *model.GatePass) ([]byte, error) {
	if pass.Status != model.PassStatusApproved {
		return nil, apperrors.Precondition("gate pass %s is %s, only approved passes have a document", pass.Code, pass.Status)
	}
	if pass.DecidedAt == nil || pass.Student == nil || pass.Approver == nil {
		return nil, apperrors.Precondition("gate pass %s is missing decision details", pass.Code)
	}

	payload := r.signer.PayloadFor(pass)
	qr, err := qrcode.Encode(payload.String(), qrcode.Medium, qrPixels)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}

	issued := pass.DecidedAt.UTC()
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(issued)
	pdf.SetModificationDate(issued)
	pdf.SetCatalogSort(true)
	pdf.SetCompression(true)
	pdf.SetTitle(r.opts.Title+" "+pass.Code, true)
	pdf.SetCreator("gatepass", true)
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	student := pass.Student
	approver := pass.Approver

	// header
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, r.opts.Title, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, tr("Pass No. "+pass.Code), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	top := pdf.GetY()
	pageW, _ := pdf.GetPageSize()
	_, _, right, _ := pdf.GetMargins()
	qrX := pageW - right - qrSizeMM

	pdf.RegisterImageOptionsReader(qrImageName, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qr))
	pdf.ImageOptions(qrImageName, qrX, top, qrSizeMM, qrSizeMM, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	pdf.SetXY(qrX, top+qrSizeMM)
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(107, 114, 128)
	pdf.CellFormat(qrSizeMM, 4, "Scan to Verify", "", 0, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(15, top)

	section(pdf, "Student Information")
	row(pdf, tr, "Name:", student.Name)
	row(pdf, tr, "Student ID:", student.ID)
	row(pdf, tr, "Room:", orNA(student.Room))
	row(pdf, tr, "Course:", orNA(joinNonEmpty(student.Course, student.Year)))
	row(pdf, tr, "Phone:", orNA(student.Phone))
	pdf.SetY(max(pdf.GetY(), top+qrSizeMM+6))
	pdf.Ln(2)

	section(pdf, "Pass Details")
	row(pdf, tr, "Reason:", pass.Reason)
	row(pdf, tr, "Destination:", orNA(pass.Destination))
	row(pdf, tr, "Departure:", r.format(pass.DepartAt, dateTimeLayout))
	row(pdf, tr, "Return By:", r.format(pass.ReturnBy, dateTimeLayout))
	row(pdf, tr, "Status:", string(pass.Status))
	pdf.Ln(2)

	section(pdf, "Guardian")
	row(pdf, tr, "Name:", orNA(student.GuardianName))
	row(pdf, tr, "Phone:", orNA(student.GuardianPhone))
	pdf.Ln(2)

	section(pdf, "Authorization")
	row(pdf, tr, "Approved By:", fmt.Sprintf("%s (%s)", approver.Name, approver.ID))
	if approver.Designation != "" {
		row(pdf, tr, "Designation:", approver.Designation)
	}
	row(pdf, tr, "Approved On:", r.format(*pass.DecidedAt, dateTimeLayout))
	if pass.Remarks != nil && *pass.Remarks != "" {
		row(pdf, tr, "Remarks:", *pass.Remarks)
	}
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(107, 114, 128)
	pdf.CellFormat(0, 4, "This is an official document. Please carry it along with your student ID card.", "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 4, "Issued "+r.format(*pass.DecidedAt, dateLayout)+"  FP "+payload.Fingerprint, "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) format(t time.Time, layout string) string {
	return t.In(r.opts.Location).Format(layout)
}

func section(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetFillColor(243, 244, 246)
	pdf.CellFormat(120, 8, title, "", 1, "L", true, 0, "")
	pdf.Ln(1)
}

func row(pdf *fpdf.Fpdf, tr func(string) string, label, value string) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(labelWidth, lineHeight, label, "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(75, lineHeight, tr(value), "", "L", false)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " - " + b
}
