package renderer

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"

	"github.com/IntuitiveSystems-irl/Construction-App-sub001/internal/models"
	"github.com/IntuitiveSystems-irl/Construction-App-sub001/internal/utils"
	"github.com/jung-kurt/gofpdf"
	"github.com/sirupsen/logrus"
)

// Config holds the page geometry and signature layout of the renderer. All
// distances are in points on a portrait Letter page.
type Config struct {
	Margin          float64
	LineHeight      float64
	BlankLineHeight float64
	FontFamily      string
	FontSize        float64

	SignatureBoxWidth  float64
	SignatureBoxHeight float64
	// SignatureXOffset is the constant horizontal offset of the image box
	// from the anchor's x position.
	SignatureXOffset float64
	// SignatureLift raises the image box above the anchor baseline.
	SignatureLift float64

	Watermark string
}

// signatureBoxOrigin returns the top-left corner of the signature image box
// for an anchor baseline: the fixed horizontal offset right of the label,
// lifted above the baseline by SignatureLift plus the box height.
func (c Config) signatureBoxOrigin(anchor anchorPos) (x, y float64) {
	return anchor.x + c.SignatureXOffset, anchor.y - c.SignatureLift - c.SignatureBoxHeight
}

// DefaultConfig returns the stock layout
func DefaultConfig() Config {
	return Config{
		Margin:             54,
		LineHeight:         14,
		BlankLineHeight:    7,
		FontFamily:         "Helvetica",
		FontSize:           11,
		SignatureBoxWidth:  150,
		SignatureBoxHeight: 48,
		SignatureXOffset:   70,
		SignatureLift:      40,
	}
}

// Document is an immutable rendered artifact. Bytes, Base64 and WriteFile
// are three views of the same result; none mutate the source contract.
type Document struct {
	data []byte
}

// Bytes returns the raw PDF bytes
func (d *Document) Bytes() []byte {
	return d.data
}

// Base64 returns the PDF encoded as a base64 string
func (d *Document) Base64() string {
	return base64.StdEncoding.EncodeToString(d.data)
}

// WriteFile saves the PDF to the given path
func (d *Document) WriteFile(path string) error {
	return os.WriteFile(path, d.data, 0644)
}

// DocumentRenderer paginates resolved contract text and embeds signature
// artwork at heuristically detected anchor positions. Rendering is
// read-only with respect to the contract; distinct contracts may render in
// parallel.
type DocumentRenderer struct {
	cfg Config
	log *logrus.Logger
}

// NewDocumentRenderer creates a renderer with the given layout
func NewDocumentRenderer(cfg Config, log *logrus.Logger) *DocumentRenderer {
	if log == nil {
		log = logrus.New()
	}
	return &DocumentRenderer{cfg: cfg, log: log}
}

// anchorPos is a resolved anchor location on a concrete page
type anchorPos struct {
	page int
	x    float64
	y    float64 // text baseline of the label line
}

// renderState is the per-call pagination cursor; nothing here is shared
// between Render calls.
type renderState struct {
	pdf        *gofpdf.Fpdf
	cfg        Config
	pageWidth  float64
	pageHeight float64
	y          float64
}

// Render produces the printable document for the contract
func (r *DocumentRenderer) Render(contract models.Contract) (*Document, error) {
	cfg := r.cfg
	pdf := gofpdf.New("P", "pt", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.AliasNbPages("")

	pageWidth, pageHeight := pdf.GetPageSize()

	if cfg.Watermark != "" {
		watermark := cfg.Watermark
		pdf.SetHeaderFunc(func() {
			pdf.TransformBegin()
			pdf.TransformRotate(45, pageWidth/2, pageHeight/2)
			pdf.SetFont(cfg.FontFamily, "B", 64)
			pdf.SetTextColor(225, 225, 225)
			pdf.Text(pageWidth/2-pdf.GetStringWidth(watermark)/2, pageHeight/2, watermark)
			pdf.TransformEnd()
			pdf.SetTextColor(0, 0, 0)
			pdf.SetFont(cfg.FontFamily, "", cfg.FontSize)
		})
	}
	pdf.SetFooterFunc(func() {
		pdf.SetFont(cfg.FontFamily, "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.SetXY(cfg.Margin, pageHeight-cfg.Margin/2)
		pdf.CellFormat(pageWidth-2*cfg.Margin, 10,
			fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont(cfg.FontFamily, "", cfg.FontSize)
	})

	pdf.SetFont(cfg.FontFamily, "", cfg.FontSize)

	state := &renderState{
		pdf:        pdf,
		cfg:        cfg,
		pageWidth:  pageWidth,
		pageHeight: pageHeight,
	}
	state.newPage()

	lines := strings.Split(contract.ContractContent, "\n")
	anchorLines := DetectAnchors(lines)
	clientAnchor, contractorAnchor := state.flowText(lines, anchorLines)

	if clientAnchor == nil || contractorAnchor == nil {
		clientAnchor, contractorAnchor = state.synthesizeSignatureSection()
	}

	r.placeSignatureBlock(state, contract.Track(models.SignerRoleClient), contract.ClientName, clientAnchor)
	r.placeSignatureBlock(state, contract.Track(models.SignerRoleContractor), contract.ContractorName, contractorAnchor)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render document: %w", err)
	}
	return &Document{data: buf.Bytes()}, nil
}

// newPage starts a fresh page and resets the cursor to the top margin
func (s *renderState) newPage() {
	s.pdf.AddPage()
	s.y = s.cfg.Margin + s.cfg.LineHeight
}

func (s *renderState) bottom() float64 {
	return s.pageHeight - s.cfg.Margin
}

func (s *renderState) printableWidth() float64 {
	return s.pageWidth - 2*s.cfg.Margin
}

// flowText walks the body line by line, wrapping to the printable width and
// breaking pages whenever the cursor would leave the printable area. The
// boundary check applies between wrapped sub-lines too, not only between
// logical lines. Anchor coordinates are captured at the first wrapped
// sub-line of the matching logical line.
func (s *renderState) flowText(lines []string, anchors Anchors) (client, contractor *anchorPos) {
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			s.y += s.cfg.BlankLineHeight
			if s.y > s.bottom() {
				s.newPage()
			}
			continue
		}

		for j, sub := range s.pdf.SplitText(line, s.printableWidth()) {
			if s.y > s.bottom() {
				s.newPage()
			}
			s.pdf.Text(s.cfg.Margin, s.y, sub)
			if j == 0 {
				pos := &anchorPos{page: s.pdf.PageNo(), x: s.cfg.Margin, y: s.y}
				if i == anchors.ClientLine {
					client = pos
				}
				if i == anchors.ContractorLine {
					contractor = pos
				}
			}
			s.y += s.cfg.LineHeight
		}
	}
	return client, contractor
}

// signatureBlockDepth is the vertical room a signature block consumes below
// its anchor baseline
func (s *renderState) signatureBlockDepth() float64 {
	return 2 * s.cfg.LineHeight
}

// synthesizeSignatureSection appends a trailing SIGNATURES heading with
// label lines for both roles, used whenever the body text carries no
// dedicated anchor lines.
func (s *renderState) synthesizeSignatureSection() (client, contractor *anchorPos) {
	blockSpan := s.cfg.SignatureLift + s.signatureBlockDepth() + 2*s.cfg.LineHeight
	needed := 2*s.cfg.LineHeight + 2*blockSpan
	if s.y+needed > s.bottom() {
		s.newPage()
	}

	s.y += s.cfg.LineHeight
	s.pdf.SetFont(s.cfg.FontFamily, "B", s.cfg.FontSize+1)
	s.pdf.Text(s.cfg.Margin, s.y, "SIGNATURES")
	s.pdf.SetFont(s.cfg.FontFamily, "", s.cfg.FontSize)
	s.y += 2 * s.cfg.LineHeight

	writeLabel := func(label string) *anchorPos {
		s.y += s.cfg.SignatureLift
		s.pdf.Text(s.cfg.Margin, s.y, label)
		pos := &anchorPos{page: s.pdf.PageNo(), x: s.cfg.Margin, y: s.y}
		s.y += s.signatureBlockDepth() + 2*s.cfg.LineHeight
		return pos
	}

	client = writeLabel("Client:")
	contractor = writeLabel("Contractor:")
	return client, contractor
}

// placeSignatureBlock re-checks the page boundary, then draws either the
// signed image block or a blank rule for hand execution
func (r *DocumentRenderer) placeSignatureBlock(s *renderState, track models.SignatureTrack, signerName string, anchor *anchorPos) {
	cfg := s.cfg
	pdf := s.pdf

	// Overlaying a signature consumes more room than the plain text did;
	// re-verify the boundary before drawing.
	if anchor.y+s.signatureBlockDepth() > s.bottom() || anchor.y-cfg.SignatureLift-cfg.SignatureBoxHeight < cfg.Margin {
		s.newPage()
		s.y += cfg.SignatureLift + cfg.SignatureBoxHeight
		pdf.Text(cfg.Margin, s.y, anchorLabelFor(track.Role))
		anchor = &anchorPos{page: pdf.PageNo(), x: cfg.Margin, y: s.y}
		s.y += s.signatureBlockDepth() + s.cfg.LineHeight
	}

	currentPage := pdf.PageNo()
	if anchor.page != currentPage {
		pdf.SetPage(anchor.page)
	}
	defer func() {
		if anchor.page != currentPage {
			pdf.SetPage(currentPage)
		}
	}()

	imageX, imageY := cfg.signatureBoxOrigin(*anchor)

	if track.Status == models.SignatureStatusSigned && len(track.Image) > 0 {
		if err := r.embedSignatureImage(pdf, track, imageX, imageY); err != nil {
			// A bad image never aborts the render; the role falls back to
			// the blank rule. gofpdf errors are sticky and would fail the
			// final Output, so the fallback clears them first.
			r.log.WithFields(logrus.Fields{
				"role": track.Role,
			}).WithError(err).Error("failed to embed signature image")
			pdf.ClearError()
			r.drawBlankSignature(pdf, imageX, anchor.y)
			return
		}

		markerY := imageY + cfg.SignatureBoxHeight/2
		signedDate := ""
		if track.SignedAt != nil {
			signedDate = utils.FormatLongDate(*track.SignedAt)
		}
		pdf.SetFont(cfg.FontFamily, "I", cfg.FontSize-2)
		pdf.Text(imageX+cfg.SignatureBoxWidth+8, markerY, "Digitally signed")
		if signedDate != "" {
			pdf.Text(imageX+cfg.SignatureBoxWidth+8, markerY+cfg.LineHeight, signedDate)
		}
		pdf.SetFont(cfg.FontFamily, "", cfg.FontSize)
		pdf.Text(imageX, anchor.y+cfg.LineHeight, signerName)
		return
	}

	r.drawBlankSignature(pdf, imageX, anchor.y)
}

// drawBlankSignature prints an underscore rule and a date line so the
// document stays executable by hand
func (r *DocumentRenderer) drawBlankSignature(pdf *gofpdf.Fpdf, x, baselineY float64) {
	pdf.Text(x, baselineY, "_______________________________")
	pdf.Text(x, baselineY+r.cfg.LineHeight, "Date: ______________")
}

// embedSignatureImage validates and draws the raster signature at a fixed
// size box. The full decode matters: a truncated image can carry a valid
// header, and gofpdf's own parser panics on some rasters it cannot read.
func (r *DocumentRenderer) embedSignatureImage(pdf *gofpdf.Fpdf, track models.SignatureTrack, x, y float64) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("signature image rejected by pdf encoder: %v", rec)
		}
	}()

	_, format, err := image.Decode(bytes.NewReader(track.Image))
	if err != nil {
		return fmt.Errorf("unparseable signature image: %w", err)
	}

	var imageType string
	switch format {
	case "png":
		imageType = "PNG"
	case "jpeg":
		imageType = "JPG"
	case "gif":
		imageType = "GIF"
	default:
		return fmt.Errorf("unsupported signature image format %q", format)
	}

	name := fmt.Sprintf("signature-%s", track.Role)
	opts := gofpdf.ImageOptions{ImageType: imageType}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(track.Image))
	if pdf.Err() {
		return fmt.Errorf("failed to register signature image: %v", pdf.Error())
	}
	pdf.ImageOptions(name, x, y, r.cfg.SignatureBoxWidth, r.cfg.SignatureBoxHeight, false, opts, 0, "")
	return nil
}

func anchorLabelFor(role models.SignerRole) string {
	if role == models.SignerRoleContractor {
		return "Contractor:"
	}
	return "Client:"
}
