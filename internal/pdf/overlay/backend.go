package overlay

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/font"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/encoding/charmap"

	docerrors "github.com/bonbonpfw/constractbuild/internal/errors"
)

// Dim is the size of a page in PDF points.
type Dim struct {
	Width  float64
	Height float64
}

// Contains reports whether (x, y) lies inside the page box.
func (d Dim) Contains(x, y float64) bool {
	return x >= 0 && y >= 0 && x <= d.Width && y <= d.Height
}

// Backend reads page geometry and merges drawn surfaces over a source document.
type Backend interface {
	PageDims(path string) ([]Dim, error)
	NewSurface(page int, dim Dim) (Surface, error)
	Merge(src, dst string, surfaces []Surface) error
}

// PDFCPUBackend renders surfaces as pdfcpu text stamps placed on top of each page.
type PDFCPUBackend struct {
	conf     *model.Configuration
	fontName string
	fontSize int
	// covers reports whether the stamping font has a glyph for a rune.
	covers func(r rune) bool
	// descent is the distance from the stamp's bottom edge to the text baseline.
	descent float64
}

var installFonts sync.Mutex

// NewPDFCPUBackend prepares the stamping font. fontPath, when set, is a TrueType
// file installed into pdfcpu's user font directory; fontName defaults to its base
// name. Without a path fontName must name one of the standard PDF fonts, which
// only cover Latin text.
func NewPDFCPUBackend(fontPath, fontName string, fontSize int) (*PDFCPUBackend, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	if fontSize <= 0 {
		fontSize = 12
	}

	b := &PDFCPUBackend{conf: conf, fontSize: fontSize}

	switch {
	case fontPath != "":
		data, err := os.ReadFile(fontPath)
		if err != nil {
			return nil, docerrors.RenderingConfigurationError("font file not available", err).WithFile(fontPath)
		}
		ttf, err := sfnt.Parse(data)
		if err != nil {
			return nil, docerrors.RenderingConfigurationError("font file is not a TrueType font", err).WithFile(fontPath)
		}
		if fontName == "" {
			fontName = strings.TrimSuffix(filepath.Base(fontPath), filepath.Ext(fontPath))
		}
		installFonts.Lock()
		err = api.InstallFonts([]string{fontPath})
		installFonts.Unlock()
		if err != nil {
			return nil, docerrors.RenderingConfigurationError("cannot install font", err).WithFile(fontPath)
		}
		b.covers = trueTypeCoverage(ttf)
		b.descent = trueTypeDescent(ttf, fontSize)

	case fontName == "":
		return nil, docerrors.RenderingConfigurationError("no font configured", nil)

	case font.IsCoreFont(fontName):
		b.covers = winAnsiCoverage
		b.descent = coreFontDescent(fontName) * float64(fontSize) / 1000

	default:
		return nil, docerrors.RenderingConfigurationError(
			fmt.Sprintf("font %q is not a standard PDF font; pass its TrueType file", fontName), nil)
	}

	if !font.SupportedFont(fontName) {
		return nil, docerrors.RenderingConfigurationError(fmt.Sprintf("font %q is not registered", fontName), nil)
	}
	b.fontName = fontName

	return b, nil
}

// missingGlyph returns the first rune of text the stamping font cannot draw.
func (b *PDFCPUBackend) missingGlyph(text string) (rune, bool) {
	for _, r := range text {
		if !b.covers(r) {
			return r, true
		}
	}
	return 0, false
}

// PageDims returns the media box size of every page, in page order.
func (b *PDFCPUBackend) PageDims(path string) ([]Dim, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, docerrors.SourceDocumentError(path, err)
	}
	defer file.Close()

	ctx, err := api.ReadContext(file, b.conf)
	if err != nil {
		return nil, docerrors.SourceDocumentError(path, fmt.Errorf("failed to read PDF context: %w", err))
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, docerrors.SourceDocumentError(path, fmt.Errorf("failed to ensure page count: %w", err))
	}

	dims, err := ctx.PageDims()
	if err != nil {
		return nil, docerrors.SourceDocumentError(path, fmt.Errorf("failed to read page sizes: %w", err))
	}

	out := make([]Dim, len(dims))
	for i, d := range dims {
		out[i] = Dim{Width: d.Width, Height: d.Height}
	}
	return out, nil
}

// NewSurface creates an empty stamp layer for a 1-indexed page.
func (b *PDFCPUBackend) NewSurface(page int, dim Dim) (Surface, error) {
	if page < 1 {
		return nil, fmt.Errorf("invalid page number %d", page)
	}
	return &stampSurface{backend: b, page: page, dim: dim}, nil
}

// Merge stamps every non-empty surface onto its page and writes dst. Pages
// without stamps pass through unchanged.
func (b *PDFCPUBackend) Merge(src, dst string, surfaces []Surface) error {
	stamps := make(map[int][]*model.Watermark)
	for _, s := range surfaces {
		ss, ok := s.(*stampSurface)
		if !ok {
			return fmt.Errorf("surface %T was not created by this backend", s)
		}
		if len(ss.stamps) > 0 {
			stamps[ss.page] = append(stamps[ss.page], ss.stamps...)
		}
	}

	if len(stamps) == 0 {
		return copyFile(src, dst)
	}
	if err := api.AddWatermarksSliceMapFile(src, dst, stamps, b.conf); err != nil {
		return fmt.Errorf("failed to merge overlay: %w", err)
	}
	return nil
}

// description anchors the stamp so the text baseline, not the stamp's bottom
// edge, sits on y.
func (b *PDFCPUBackend) description(x, y float64) string {
	return fmt.Sprintf(
		"fontname:%s, points:%d, position:bl, offset:%.2f %.2f, scalefactor:1 abs, rotation:0, opacity:1, fillcolor:#000000",
		b.fontName, b.fontSize, x, y-b.descent,
	)
}

type stampSurface struct {
	backend *PDFCPUBackend
	page    int
	dim     Dim
	stamps  []*model.Watermark
}

// DrawString rejects text the font cannot encode; pdfcpu would otherwise
// write blanks in place of the missing glyphs.
func (s *stampSurface) DrawString(x, y float64, text string) error {
	if r, ok := s.backend.missingGlyph(text); ok {
		return fmt.Errorf("font %s has no glyph for %q (U+%04X)", s.backend.fontName, r, r)
	}
	wm, err := api.TextWatermark(text, s.backend.description(x, y), true, false, types.POINTS)
	if err != nil {
		return docerrors.RenderingConfigurationError("cannot build text stamp", err)
	}
	s.stamps = append(s.stamps, wm)
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return docerrors.SourceDocumentError(src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy document: %w", err)
	}
	return out.Close()
}

func trueTypeCoverage(ttf *sfnt.Font) func(rune) bool {
	return func(r rune) bool {
		idx, err := ttf.GlyphIndex(nil, r)
		return err == nil && idx != 0
	}
}

func trueTypeDescent(ttf *sfnt.Font, fontSize int) float64 {
	m, err := ttf.Metrics(nil, fixed.I(fontSize), xfont.HintingNone)
	if err != nil {
		return 0
	}
	return float64(m.Descent) / 64
}

// winAnsiCoverage matches the WinAnsiEncoding pdfcpu uses for standard fonts.
func winAnsiCoverage(r rune) bool {
	_, ok := charmap.Windows1252.EncodeRune(r)
	return ok
}

// coreFontDescent returns the AFM descender of a standard font, in 1/1000 em.
func coreFontDescent(name string) float64 {
	switch {
	case strings.HasPrefix(name, "Times"):
		return 217
	case strings.HasPrefix(name, "Courier"):
		return 157
	case name == "ZapfDingbats":
		return 143
	default:
		return 207
	}
}
