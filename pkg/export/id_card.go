package export

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/jung-kurt/gofpdf"
)

const (
	cardWidth  = 55.0
	cardHeight = 85.0
	photoSize  = 30.0
)

// Card holds the values printed on a student ID card.
type Card struct {
	SchoolName string
	Tagline    string
	StudentID  string
	Name       string
	Group      string
	Photo      []byte
}

// IDCardRenderer renders the two-sided student card, front and back on
// separate pages.
type IDCardRenderer struct{}

// NewIDCardRenderer constructs a card renderer.
func NewIDCardRenderer() *IDCardRenderer {
	return &IDCardRenderer{}
}

// Render produces the card PDF. An unreadable photo falls back to an empty
// frame.
func (r *IDCardRenderer) Render(card Card) ([]byte, error) {
	out, err := r.render(card, imageType(card.Photo))
	if err != nil && len(card.Photo) > 0 {
		return r.render(card, "")
	}
	return out, err
}

func (r *IDCardRenderer) render(card Card, photoType string) ([]byte, error) {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: cardWidth, Ht: cardHeight},
	})
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(4, 4, 4)
	pdf.SetAutoPageBreak(false, 0)

	// Front.
	pdf.AddPage()
	pdf.SetFillColor(24, 64, 128)
	pdf.Rect(0, 0, cardWidth, 14, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Arial", "B", 8)
	pdf.SetXY(2, 3)
	pdf.MultiCell(cardWidth-4, 4, tr(card.SchoolName), "", "C", false)

	photoX := (cardWidth - photoSize) / 2
	photoY := 18.0
	pdf.SetDrawColor(24, 64, 128)
	if photoType != "" {
		opts := gofpdf.ImageOptions{ImageType: photoType}
		name := "photo-" + card.StudentID
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(card.Photo))
		pdf.ImageOptions(name, photoX, photoY, photoSize, photoSize, false, opts, 0, "")
	} else {
		pdf.SetFillColor(235, 235, 235)
		pdf.Rect(photoX, photoY, photoSize, photoSize, "FD")
		pdf.SetTextColor(120, 120, 120)
		pdf.SetFont("Arial", "", 6)
		pdf.SetXY(photoX, photoY+photoSize/2-2)
		pdf.CellFormat(photoSize, 4, tr("Sin foto"), "", 0, "C", false, 0, "")
	}
	pdf.Rect(photoX, photoY, photoSize, photoSize, "D")

	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(3, photoY+photoSize+4)
	pdf.SetFont("Arial", "B", 9)
	pdf.MultiCell(cardWidth-6, 4.5, tr(card.Name), "", "C", false)
	pdf.SetFont("Arial", "", 8)
	pdf.SetX(3)
	pdf.CellFormat(cardWidth-6, 5, tr("Grupo: "+card.Group), "", 1, "C", false, 0, "")
	pdf.SetX(3)
	pdf.CellFormat(cardWidth-6, 5, tr("ID: "+card.StudentID), "", 1, "C", false, 0, "")

	pdf.SetFillColor(24, 64, 128)
	pdf.Rect(0, cardHeight-5, cardWidth, 5, "F")

	// Back.
	pdf.AddPage()
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Arial", "B", 8)
	pdf.SetXY(4, 10)
	pdf.MultiCell(cardWidth-8, 4, tr("Este carné es personal e intransferible."), "", "C", false)
	pdf.Ln(3)
	pdf.SetFont("Arial", "", 7)
	pdf.SetX(4)
	pdf.MultiCell(cardWidth-8, 3.5, tr("Si lo encuentra, por favor devuélvalo a la secretaría de la institución."), "", "C", false)

	pdf.SetXY(4, cardHeight-22)
	pdf.SetFont("Arial", "B", 7)
	pdf.MultiCell(cardWidth-8, 3.5, tr(card.SchoolName), "", "C", false)
	if card.Tagline != "" {
		pdf.SetX(4)
		pdf.SetFont("Arial", "I", 6)
		pdf.MultiCell(cardWidth-8, 3, tr(card.Tagline), "", "C", false)
	}
	pdf.SetFillColor(24, 64, 128)
	pdf.Rect(0, cardHeight-5, cardWidth, 5, "F")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render id card: %w", err)
	}
	return buf.Bytes(), nil
}

func imageType(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	switch http.DetectContentType(data) {
	case "image/jpeg":
		return "JPG"
	case "image/png":
		return "PNG"
	case "image/gif":
		return "GIF"
	default:
		return ""
	}
}
