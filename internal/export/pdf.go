package export

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/tbstudio/storyboard-agent/internal/imaging"
	"github.com/tbstudio/storyboard-agent/internal/storyboard"
)

// Page geometry in millimetres, A4 landscape.
const (
	pdfMargin       = 14.0
	pdfFirstY       = 28.0
	pdfPageTopY     = 15.0
	pdfNewPageAfter = 180.0
	pdfBottomLimit  = 200.0
	pdfTableGap     = 8.0

	colCutW   = 18.0
	colImageW = 55.0
	colTimeW  = 18.0

	headRowH    = 7.0
	cellPadding = 3.0
	lineH       = 3.2
	maxRowH     = 120.0
)

type PDFOptions struct {
	// FontPath is an optional TrueType font used instead of Helvetica, for
	// text outside the Latin-1 range.
	FontPath    string
	GeneratedAt time.Time
}

type pdfWriter struct {
	pdf       *fpdf.Fpdf
	family    string
	boldStyle string
	utf8      bool
	tr        func(string) string
	pageW     float64
	textColW  float64
	images    int
}

// PDF renders the storyboard as printable tables, one per scene, with each
// shot's image inside its row. Images that cannot be embedded are skipped.
func PDF(w io.Writer, p storyboard.Project, opts PDFOptions) error {
	pw := newPDFWriter(opts)
	if err := pw.pdf.Error(); err != nil {
		return fmt.Errorf("failed to set up pdf: %w", err)
	}

	pw.pdf.SetTitle(p.Meta.Name, true)
	pw.pdf.SetCreator("storyboard-agent", false)
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = time.Now()
	}
	pw.pdf.SetCreationDate(opts.GeneratedAt)

	pw.pdf.AddPage()
	pw.title(p, opts.GeneratedAt)

	y := pdfFirstY
	for _, seq := range p.Storyboard.Sequences {
		for _, sc := range seq.Scenes {
			if y > pdfNewPageAfter {
				pw.pdf.AddPage()
				y = pdfPageTopY
			}
			y = pw.sceneTable(p, seq, sc, y) + pdfTableGap
		}
	}

	if err := pw.pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}

func newPDFWriter(opts PDFOptions) *pdfWriter {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfPageTopY, pdfMargin)
	pdf.SetAutoPageBreak(false, 0)

	pw := &pdfWriter{pdf: pdf, family: "Helvetica", boldStyle: "B"}
	if opts.FontPath != "" {
		pdf.AddUTF8Font("storyboard", "", opts.FontPath)
		pw.family = "storyboard"
		pw.boldStyle = ""
		pw.utf8 = true
		pw.tr = func(s string) string { return s }
	} else {
		pw.tr = pdf.UnicodeTranslatorFromDescriptor("")
	}

	pw.pageW, _ = pdf.GetPageSize()
	pw.textColW = (pw.pageW - 2*pdfMargin - colCutW - colImageW - colTimeW) / 2
	return pw
}

func (pw *pdfWriter) title(p storyboard.Project, at time.Time) {
	pdf := pw.pdf
	pdf.SetTextColor(0, 0, 0)

	pdf.SetFont(pw.family, pw.boldStyle, 16)
	pw.centered(p.Meta.Name, 15)

	pdf.SetFont(pw.family, "", 8)
	fps := storyboard.EffectiveFrameRate(p.Meta.FrameRate)
	pw.centered(fmt.Sprintf("%s | %dfps", at.Format("2006-01-02"), fps), 21)
}

func (pw *pdfWriter) centered(s string, baseline float64) {
	s = pw.tr(s)
	x := (pw.pageW - pw.pdf.GetStringWidth(s)) / 2
	pw.pdf.Text(x, baseline, s)
}

// sceneTable draws the scene header and shot table starting at y and
// returns the y just below the last row.
func (pw *pdfWriter) sceneTable(p storyboard.Project, seq storyboard.Sequence, sc storyboard.Scene, y float64) float64 {
	pdf := pw.pdf
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont(pw.family, "", 10)
	pdf.Text(pdfMargin, y, pw.tr(seq.Name+" > "+sc.Name))
	rate := storyboard.EffectiveFrameRate(p.Meta.FrameRate)
	runtime := storyboard.FormatTimeCode(storyboard.FramesToTimeCode(sc.Duration(rate), rate))
	pdf.SetFont(pw.family, "", 8)
	pdf.Text(pw.pageW-pdfMargin-pdf.GetStringWidth(runtime), y, runtime)
	y += 4

	y = pw.tableHead(y)
	for _, shot := range sc.Shots {
		h := pw.rowHeight(p, shot)
		if y+h > pdfBottomLimit {
			pdf.AddPage()
			y = pw.tableHead(pdfPageTopY)
		}
		pw.row(shot, y, h)
		y += h
	}
	return y
}

func (pw *pdfWriter) tableHead(y float64) float64 {
	pdf := pw.pdf
	pdf.SetFont(pw.family, pw.boldStyle, 7)
	pdf.SetFillColor(30, 30, 30)
	pdf.SetTextColor(200, 200, 200)
	pdf.SetDrawColor(120, 120, 120)
	pdf.SetLineWidth(0.1)

	x := pdfMargin
	for i, label := range []string{"Cut", "Image", "Time", "Action", "Dialogue"} {
		w := pw.columnWidth(i)
		pdf.SetXY(x, y)
		pdf.CellFormat(w, headRowH, label, "1", 0, "CM", true, 0, "")
		x += w
	}
	return y + headRowH
}

func (pw *pdfWriter) columnWidth(i int) float64 {
	switch i {
	case 0:
		return colCutW
	case 1:
		return colImageW
	case 2:
		return colTimeW
	default:
		return pw.textColW
	}
}

func (pw *pdfWriter) rowHeight(p storyboard.Project, shot storyboard.Shot) float64 {
	pw.pdf.SetFont(pw.family, "", 7)
	textW := pw.textColW - 2*cellPadding
	lines := max(len(pw.wrap(shot.Action, textW)), len(pw.wrap(shot.Dialogue, textW)), 1)
	h := float64(lines)*lineH + 2*cellPadding

	if shot.Image != nil {
		aspect := storyboard.AspectValue(p.Meta.AspectRatio)
		if shot.Image.Width > 0 && shot.Image.Height > 0 {
			aspect = float64(shot.Image.Width) / float64(shot.Image.Height)
		}
		h = math.Max(h, (colImageW-2)/aspect+2)
	}
	return math.Min(h, maxRowH)
}

func (pw *pdfWriter) row(shot storyboard.Shot, y, h float64) {
	pdf := pw.pdf
	pdf.SetFont(pw.family, "", 7)
	pdf.SetTextColor(50, 50, 50)

	x := pdfMargin
	pdf.SetXY(x, y)
	pdf.CellFormat(colCutW, h, pw.tr(shot.CutNumber), "1", 0, "CM", false, 0, "")
	x += colCutW

	pdf.Rect(x, y, colImageW, h, "D")
	if shot.Image != nil {
		pw.image(shot.Image, x+1, y+1, colImageW-2, h-2)
	}
	x += colImageW

	pdf.SetXY(x, y)
	pdf.CellFormat(colTimeW, h, storyboard.FormatTimeCode(shot.Time), "1", 0, "CM", false, 0, "")
	x += colTimeW

	pw.textCell(shot.Action, x, y, h)
	x += pw.textColW
	pw.textCell(shot.Dialogue, x, y, h)
}

func (pw *pdfWriter) textCell(text string, x, y, h float64) {
	pdf := pw.pdf
	pdf.Rect(x, y, pw.textColW, h, "D")
	lines := pw.wrap(text, pw.textColW-2*cellPadding)
	for i, line := range lines {
		ly := y + cellPadding + float64(i)*lineH
		if ly+lineH > y+h {
			break
		}
		pdf.SetXY(x+cellPadding, ly)
		pdf.CellFormat(pw.textColW-2*cellPadding, lineH, line, "", 0, "LM", false, 0, "")
	}
}

// image embeds a data URL image into the given box. Failures leave the box
// empty.
func (pw *pdfWriter) image(img *storyboard.ImageData, x, y, w, h float64) {
	data, mediaType, err := imaging.DecodeDataURL(img.DataURL)
	if err != nil {
		return
	}
	var imageType string
	switch mediaType {
	case "image/jpeg", "image/jpg":
		imageType = "JPEG"
	case "image/png":
		imageType = "PNG"
	case "image/gif":
		imageType = "GIF"
	default:
		return
	}

	pw.images++
	name := fmt.Sprintf("shot-%d", pw.images)
	opts := fpdf.ImageOptions{ImageType: imageType}
	pw.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if !pw.pdf.Ok() {
		pw.pdf.ClearError()
		return
	}
	pw.pdf.ImageOptions(name, x, y, w, h, false, opts, 0, "")
	if !pw.pdf.Ok() {
		pw.pdf.ClearError()
	}
}

// wrap splits text into lines no wider than width at the current font,
// breaking at spaces and, for over-long words, between characters. The
// returned lines are already translated for the current font.
func (pw *pdfWriter) wrap(text string, width float64) []string {
	text = strings.TrimRight(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var out []string
	for _, para := range strings.Split(text, "\n") {
		para = pw.tr(para)
		line := ""
		for _, word := range strings.Fields(para) {
			candidate := word
			if line != "" {
				candidate = line + " " + word
			}
			if pw.pdf.GetStringWidth(candidate) <= width {
				line = candidate
				continue
			}
			if line != "" {
				out = append(out, line)
				line = ""
			}
			for pw.pdf.GetStringWidth(word) > width {
				head, tail := pw.splitAt(word, width)
				out = append(out, head)
				word = tail
			}
			line = word
		}
		out = append(out, line)
	}
	return out
}

// splitAt returns the longest prefix of word that fits width, and the rest.
// The prefix always holds at least one character.
func (pw *pdfWriter) splitAt(word string, width float64) (string, string) {
	var chars []string
	if pw.utf8 {
		for _, r := range word {
			chars = append(chars, string(r))
		}
	} else {
		for i := 0; i < len(word); i++ {
			chars = append(chars, word[i:i+1])
		}
	}

	n := 1
	for n < len(chars) && pw.pdf.GetStringWidth(strings.Join(chars[:n+1], "")) <= width {
		n++
	}
	return strings.Join(chars[:n], ""), strings.Join(chars[n:], "")
}

func writePDF(w io.Writer, p storyboard.Project, opts PDFOptions) error {
	return PDF(w, p, opts)
}
