// Package report renders service records into printable PDF documents and
// spreadsheet exports.
package report

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"luthier-backend/internal/model"
	"luthier-backend/internal/parse"
	"luthier-backend/internal/record"
)

// ErrProfileNotReady is returned when no issuer profile is available yet.
var ErrProfileNotReady = errors.New("issuer profile not ready")

// Artifact is a rendered document and its suggested file name.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}

const (
	pdfContentType = "application/pdf"

	pageWidth   = 210.0
	issuerRight = 195.0
	labelX      = 20.0
	valueX      = 65.0
	valueWidth  = 140.0
	lineStep    = 7.0
	fieldGap    = 3.0
	bodyTop     = 75.0
	bodyBottom  = 270.0
	footerRuleY = 280.0
)

// Builder renders PDF reports. The zero value is ready to use.
type Builder struct {
	// Now stamps the document creation date; nil means time.Now.
	Now func() time.Time
	// Uncompressed disables stream compression, which keeps the output
	// greppable in tests.
	Uncompressed bool
}

// Build renders a report of the given kind. A nil profile yields
// ErrProfileNotReady and no artifact.
func (b Builder) Build(kind Kind, rec record.ServiceRecord, profile *model.IssuerProfile) (Artifact, error) {
	if profile == nil {
		return Artifact{}, ErrProfileNotReady
	}
	lay, ok := layouts[kind]
	if !ok {
		return Artifact{}, fmt.Errorf("unknown report kind %q", kind)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(!b.Uncompressed)
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	pdf.SetCreationDate(now())
	pdf.SetTitle(lay.title, true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	w := &writer{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	w.header(profile)

	pdf.SetFont("Helvetica", "B", 16)
	w.centered(lay.title, 60)

	y := w.body(lay.fields, rec)

	y += 15
	switch {
	case lay.disclaim != "":
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(150, 150, 150)
		for _, line := range w.split(lay.disclaim, pageWidth-2*labelX) {
			y = w.ensureRoom(y)
			pdf.Text(labelX, y, w.tr(line))
			y += 5
		}
	case lay.signer != "":
		y = w.ensureRoom(y)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Text(labelX, y, w.tr(lay.signer))
		pdf.Line(60, y+2, 150, y+2)
	}

	pdf.SetDrawColor(150, 150, 150)
	pdf.Line(labelX, footerRuleY, pageWidth-labelX, footerRuleY)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return Artifact{}, fmt.Errorf("render %s report: %w", kind, err)
	}
	return Artifact{
		Name:        FileName(kind, rec.Client),
		ContentType: pdfContentType,
		Data:        buf.Bytes(),
	}, nil
}

// FileName is the suggested name of a report for the given client.
func FileName(kind Kind, client string) string {
	prefix := layouts[kind].prefix
	if prefix == "" {
		prefix = string(kind) + "_"
	}
	return prefix + parse.CollapseWhitespace(client, "_") + ".pdf"
}

type writer struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

// header draws the grey band with the logo on the left and the issuer
// lines right-aligned. Empty issuer fields are skipped without leaving a
// gap.
func (w *writer) header(p *model.IssuerProfile) {
	pdf := w.pdf
	pdf.SetFillColor(230, 230, 230)
	pdf.Rect(0, 0, pageWidth, 50, "F")

	w.logo(p.LogoBase64)

	if p.Name != "" {
		pdf.SetFont("Helvetica", "B", 14)
		w.right(p.Name, 15)
	}

	pdf.SetFont("Helvetica", "", 11)
	y := 22.0
	lines := []string{
		p.Address,
		strings.TrimSpace(p.PostalCode + " " + p.Locality),
		prefixed("Telefone: ", p.Phone),
		prefixed("Email: ", p.Email),
		prefixed("NIF: ", p.TaxID),
	}
	for _, line := range lines {
		if line == "" {
			continue
		}
		w.right(line, y)
		y += 5
	}
}

func prefixed(prefix, v string) string {
	if strings.TrimSpace(v) == "" {
		return ""
	}
	return prefix + v
}

// logo places an embedded PNG or JPEG. Anything that does not decode is
// left out rather than failing the document.
func (w *writer) logo(encoded string) {
	data, imageType, ok := decodeImage(encoded)
	if !ok {
		return
	}
	opts := fpdf.ImageOptions{ImageType: imageType}
	w.pdf.RegisterImageOptionsReader("logo", opts, bytes.NewReader(data))
	if !w.pdf.Ok() {
		w.pdf.ClearError()
		return
	}
	w.pdf.ImageOptions("logo", 15, 10, 70, 25, false, opts, 0, "")
}

func decodeImage(s string) ([]byte, string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, "", false
	}
	imageType := "PNG"
	if strings.HasPrefix(s, "data:") {
		comma := strings.IndexByte(s, ',')
		if comma < 0 {
			return nil, "", false
		}
		meta := strings.ToLower(s[:comma])
		if strings.Contains(meta, "jpeg") || strings.Contains(meta, "jpg") {
			imageType = "JPG"
		}
		s = s[comma+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil || len(data) == 0 {
		return nil, "", false
	}
	// JPEG magic, for bare base64 without a data URL.
	if len(data) > 2 && data[0] == 0xFF && data[1] == 0xD8 {
		imageType = "JPG"
	}
	return data, imageType, true
}

// body writes each field as a bold label and a wrapped value and returns
// the baseline after the last one.
func (w *writer) body(fields []field, rec record.ServiceRecord) float64 {
	pdf := w.pdf
	pdf.SetTextColor(0, 0, 0)
	y := bodyTop
	for _, f := range fields {
		pdf.SetFont("Helvetica", "", 12)
		var lines []string
		for _, v := range f.value(rec) {
			lines = append(lines, w.split(orDash(v), valueWidth)...)
		}
		if len(lines) == 0 {
			lines = []string{"-"}
		}

		y = w.ensureRoom(y)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Text(labelX, y, w.tr(f.label+":"))
		pdf.SetFont("Helvetica", "", 12)
		for _, line := range lines {
			y = w.ensureRoom(y)
			pdf.Text(valueX, y, w.tr(line))
			y += lineStep
		}
		y += fieldGap
	}
	return y
}

func orDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}

func (w *writer) ensureRoom(y float64) float64 {
	if y > bodyBottom {
		return w.newPage()
	}
	return y
}

func (w *writer) newPage() float64 {
	w.pdf.AddPage()
	return 20
}

// split wraps s to width using the current font. The core fonts only
// carry widths for single-byte code points, so the euro sign is measured
// as its cp1252 slot and anything else outside Latin-1 becomes '?'.
func (w *writer) split(s string, width float64) []string {
	var out []string
	for _, para := range strings.Split(toMeasurable(s), "\n") {
		if strings.TrimSpace(para) == "" {
			out = append(out, "")
			continue
		}
		for _, line := range w.pdf.SplitText(para, width) {
			out = append(out, fromMeasurable(line))
		}
	}
	return out
}

const euroSlot = '\u0080'

func toMeasurable(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '€':
			return euroSlot
		case r > 0xFF:
			return '?'
		default:
			return r
		}
	}, s)
}

func fromMeasurable(s string) string {
	return strings.ReplaceAll(s, string(euroSlot), "€")
}

func (w *writer) right(s string, y float64) {
	s = w.tr(s)
	w.pdf.Text(issuerRight-w.pdf.GetStringWidth(s), y, s)
}

func (w *writer) centered(s string, y float64) {
	s = w.tr(s)
	w.pdf.Text((pageWidth-w.pdf.GetStringWidth(s))/2, y, s)
}
