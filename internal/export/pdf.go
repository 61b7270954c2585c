// Package export renders an itinerary as downloadable artifacts.
package export

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

const (
	// PDFFilename is the suggested download name for the PDF.
	PDFFilename = "itinerary.pdf"

	pdfTitle   = "Travel Itinerary"
	pdfMargin  = 72.0 // one inch
	lineHeight = 14.0
	qrSize     = 72.0
)

// WritePDF renders the itinerary text onto Letter pages, one text line per
// itinerary line, and writes the document to w. When shareURL is not empty a
// QR code linking to it is placed in the top-right corner of the first page.
func WritePDF(w io.Writer, text, shareURL string) error {
	pdf := gofpdf.New("P", "pt", "Letter", "")
	pdf.SetTitle(pdfTitle, true)
	pdf.SetCreator("tripwise", true)
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.AddPage()

	if shareURL != "" {
		png, err := qrcode.Encode(shareURL, qrcode.Medium, 256)
		if err != nil {
			return fmt.Errorf("encoding share QR code: %w", err)
		}
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("share-qr", opts, bytes.NewReader(png))
		pageW, _ := pdf.GetPageSize()
		pdf.ImageOptions("share-qr", pageW-pdfMargin-qrSize, pdfMargin/2, qrSize, qrSize, false, opts, 0, shareURL)
	}

	// Core fonts are cp1252; the translator keeps characters such as the degree sign.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 20, pdfTitle, "", 1, "L", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 12)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			pdf.Ln(lineHeight)
			continue
		}
		pdf.MultiCell(0, lineHeight, tr(line), "", "L", false)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("writing pdf: %w", err)
	}
	return nil
}
