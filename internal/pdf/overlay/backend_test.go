package overlay

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	lpdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bonbonpfw/constractbuild/internal/catalog"
	docerrors "github.com/bonbonpfw/constractbuild/internal/errors"
	"github.com/bonbonpfw/constractbuild/internal/member"
	"github.com/bonbonpfw/constractbuild/internal/pdf/pdftest"
)

func TestDimContains(t *testing.T) {
	d := Dim{Width: 612, Height: 792}
	assert.True(t, d.Contains(0, 0))
	assert.True(t, d.Contains(612, 792))
	assert.False(t, d.Contains(-1, 10))
	assert.False(t, d.Contains(10, 800))
}

func TestNewPDFCPUBackend_FontErrors(t *testing.T) {
	_, err := NewPDFCPUBackend(filepath.Join(t.TempDir(), "missing.ttf"), "", 12)
	require.Error(t, err)
	assert.True(t, docerrors.IsType(err, docerrors.ErrorTypeRenderingConfiguration))

	_, err = NewPDFCPUBackend("", "NoSuchFont", 12)
	require.Error(t, err)
	assert.True(t, docerrors.IsType(err, docerrors.ErrorTypeRenderingConfiguration))

	_, err = NewPDFCPUBackend("", "", 12)
	require.Error(t, err)
	assert.True(t, docerrors.IsType(err, docerrors.ErrorTypeRenderingConfiguration))

	_, err = NewPDFCPUBackend("", "Rubik-Regular", 12)
	require.Error(t, err, "fonts other than the standard ones need their file")
	assert.True(t, docerrors.IsType(err, docerrors.ErrorTypeRenderingConfiguration))

	bogus := filepath.Join(t.TempDir(), "bogus.ttf")
	require.NoError(t, os.WriteFile(bogus, []byte("not a font"), 0o644))
	_, err = NewPDFCPUBackend(bogus, "", 12)
	require.Error(t, err)
	assert.True(t, docerrors.IsType(err, docerrors.ErrorTypeRenderingConfiguration))
}

func TestPDFCPUBackend_RejectsMissingGlyphs(t *testing.T) {
	b, err := NewPDFCPUBackend("", "Helvetica", 12)
	require.NoError(t, err)

	surface, err := b.NewSurface(1, Dim{612, 792})
	require.NoError(t, err)

	tests := []struct {
		text    string
		wantErr bool
	}{
		{text: "Yossi Builder", wantErr: false},
		{text: "Café €5", wantErr: false},
		{text: "שלום כהן", wantErr: true},
		{text: "ןהכ םולש", wantErr: true},
		{text: "Dana כהן", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			err := surface.DrawString(100, 700, tt.text)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "no glyph")
				return
			}
			assert.NoError(t, err)
		})
	}

	// Rejected text never becomes a stamp.
	assert.Len(t, surface.(*stampSurface).stamps, 2)
}

func TestPDFCPUBackend_BaselineOnCoordinate(t *testing.T) {
	tests := []struct {
		font string
		size int
		want string
	}{
		{font: "Helvetica", size: 12, want: "offset:100.00 697.52"},
		{font: "Times-Roman", size: 10, want: "offset:100.00 697.83"},
		{font: "Courier", size: 20, want: "offset:100.00 696.86"},
	}
	for _, tt := range tests {
		t.Run(tt.font, func(t *testing.T) {
			b, err := NewPDFCPUBackend("", tt.font, tt.size)
			require.NoError(t, err)
			assert.Contains(t, b.description(100, 700), tt.want)
		})
	}
}

func TestPDFCPUBackend_PageDims(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping pdfcpu integration test in short mode")
	}

	b, err := NewPDFCPUBackend("", "Helvetica", 10)
	require.NoError(t, err)

	src := pdftest.WriteFile(t, "mixed.pdf", pdftest.Letter, pdftest.A4)
	dims, err := b.PageDims(src)
	require.NoError(t, err)
	assert.Equal(t, []Dim{{612, 792}, {595, 842}}, dims)

	_, err = b.PageDims(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.ErrorIs(t, err, docerrors.ErrSourceDocument)

	garbage := filepath.Join(t.TempDir(), "garbage.pdf")
	require.NoError(t, os.WriteFile(garbage, []byte("not a pdf"), 0o644))
	_, err = b.PageDims(garbage)
	assert.ErrorIs(t, err, docerrors.ErrSourceDocument)
}

func TestPDFCPUBackend_ComposeRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping pdfcpu integration test in short mode")
	}

	b, err := NewPDFCPUBackend("", "Helvetica", 10)
	require.NoError(t, err)

	cat, err := catalog.Load(strings.NewReader(`
DOCUMENT_FIELD_COORDINATE_MAP:
  CONTRACTOR_OWNER:
    1:
      contractor_name: [300, 700]
      contractor_id: [100, 700]
    3:
      date: [50, 50]
`))
	require.NoError(t, err)

	src := pdftest.WriteFile(t, "template.pdf", pdftest.Letter, pdftest.A4, pdftest.Page{Width: 842, Height: 595})
	clock := func() time.Time { return time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC) }
	c := NewComposer(cat, b, t.TempDir(), WithClock(clock))

	result, err := c.Compose(Request{
		DocumentType: catalog.ContractorOwner,
		Members: []member.RequiredMember{&member.TeamMember{
			Profile: member.Profile{Name: "Yossi Builder", NationalID: "987654321"},
			Role:    member.RoleContractor,
		}},
		SourcePath: src,
	})
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)
	assert.Len(t, result.Fields, 3)

	count, err := api.PageCountFile(result.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	dims, err := b.PageDims(result.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, []Dim{{612, 792}, {595, 842}, {842, 595}}, dims, "page geometry is preserved")
}

// recordingBackend passes every draw to the pdfcpu backend and keeps what it
// was asked to write.
type recordingBackend struct {
	*PDFCPUBackend
	draws []recordedDraw
}

type recordedDraw struct {
	Page     int
	X, Y     float64
	Text     string
	Rejected bool
}

type recordedSurface struct {
	Surface
	page int
	rec  *recordingBackend
}

func (s *recordedSurface) DrawString(x, y float64, text string) error {
	err := s.Surface.DrawString(x, y, text)
	s.rec.draws = append(s.rec.draws, recordedDraw{Page: s.page, X: x, Y: y, Text: text, Rejected: err != nil})
	return err
}

func (b *recordingBackend) NewSurface(page int, dim Dim) (Surface, error) {
	inner, err := b.PDFCPUBackend.NewSurface(page, dim)
	if err != nil {
		return nil, err
	}
	return &recordedSurface{Surface: inner, page: page, rec: b}, nil
}

func (b *recordingBackend) Merge(src, dst string, surfaces []Surface) error {
	inner := make([]Surface, len(surfaces))
	for i, s := range surfaces {
		inner[i] = s.(*recordedSurface).Surface
	}
	return b.PDFCPUBackend.Merge(src, dst, inner)
}

func pageTexts(t *testing.T, path string) []string {
	t.Helper()
	f, r, err := lpdf.Open(path)
	require.NoError(t, err)
	defer f.Close()

	texts := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		text, err := r.Page(i).GetPlainText(nil)
		require.NoError(t, err)
		texts = append(texts, text)
	}
	return texts
}

const contractorCatalog = `
DOCUMENT_FIELD_COORDINATE_MAP:
  CONTRACTOR_OWNER:
    1:
      contractor_name: [300, 700]
      contractor_id: [100, 700]
      date: [50, 50]
    3:
      contractor_name_for_signed: [300, 100]
`

func contractor(name string) []member.RequiredMember {
	return []member.RequiredMember{&member.TeamMember{
		Profile: member.Profile{Name: name, NationalID: "987654321"},
		Role:    member.RoleContractor,
	}}
}

func newRealComposer(t *testing.T, b *PDFCPUBackend) (*Composer, *recordingBackend) {
	t.Helper()
	cat, err := catalog.Load(strings.NewReader(contractorCatalog))
	require.NoError(t, err)
	rec := &recordingBackend{PDFCPUBackend: b}
	clock := func() time.Time { return time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC) }
	return NewComposer(cat, rec, t.TempDir(), WithClock(clock)), rec
}

func TestPDFCPUBackend_HebrewWithLatinFontIsReported(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping pdfcpu integration test in short mode")
	}

	b, err := NewPDFCPUBackend("", "Helvetica", 12)
	require.NoError(t, err)
	c, rec := newRealComposer(t, b)

	src := pdftest.WriteFile(t, "template.pdf", pdftest.Letter, pdftest.Letter, pdftest.Letter)
	result, err := c.Compose(Request{
		DocumentType: catalog.ContractorOwner,
		Members:      contractor("שלום כהן"),
		SourcePath:   src,
	})
	require.NoError(t, err)

	texts := fieldTexts(result.Fields)
	assert.NotContains(t, texts, "contractor_name")
	assert.NotContains(t, texts, "contractor_name_for_signed")
	assert.Equal(t, "987654321", texts["contractor_id"])
	assert.Equal(t, "02/01/2026", texts["date"])

	require.Len(t, result.Warnings, 2)
	for _, w := range result.Warnings {
		assert.Equal(t, docerrors.ErrorTypeDrawing, w.Type)
		assert.Contains(t, w.Error(), "no glyph")
	}
	assert.Equal(t, "contractor_name", result.Warnings[0].Field)

	// Visual order first, then one retry in logical order.
	var nameDraws []recordedDraw
	for _, d := range rec.draws {
		if d.Page == 1 && d.X == 300 {
			nameDraws = append(nameDraws, d)
		}
	}
	assert.Equal(t, []recordedDraw{
		{Page: 1, X: 300, Y: 700, Text: "ןהכ םולש", Rejected: true},
		{Page: 1, X: 300, Y: 700, Text: "שלום כהן", Rejected: true},
	}, nameDraws)
}

// hebrewFonts lists common system fonts with Hebrew glyphs.
var hebrewFonts = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/freefont/FreeSans.ttf",
	"/usr/share/fonts/truetype/noto/NotoSansHebrew-Regular.ttf",
	"/System/Library/Fonts/Supplemental/Arial.ttf",
}

func TestPDFCPUBackend_HebrewTrueTypeRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping pdfcpu integration test in short mode")
	}

	var fontPath string
	for _, candidate := range hebrewFonts {
		if _, err := os.Stat(candidate); err == nil {
			fontPath = candidate
			break
		}
	}
	if fontPath == "" {
		t.Skip("no TrueType font with Hebrew glyphs installed")
	}

	b, err := NewPDFCPUBackend(fontPath, "", 12)
	require.NoError(t, err)
	if _, missing := b.missingGlyph("שלום כהן"); missing {
		t.Skipf("%s has no Hebrew glyphs", fontPath)
	}
	c, rec := newRealComposer(t, b)

	src := pdftest.WriteFile(t, "template.pdf", pdftest.Letter, pdftest.Letter, pdftest.Letter)
	result, err := c.Compose(Request{
		DocumentType: catalog.ContractorOwner,
		Members:      contractor("שלום כהן"),
		SourcePath:   src,
	})
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, "שלום כהן", fieldTexts(result.Fields)["contractor_name"])
	assert.Contains(t, rec.draws, recordedDraw{Page: 1, X: 300, Y: 700, Text: "ןהכ םולש"})
	assert.Contains(t, rec.draws, recordedDraw{Page: 3, X: 300, Y: 100, Text: "ןהכ םולש"})

	count, err := api.PageCountFile(result.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestPDFCPUBackend_ComposeIsRepeatable(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping pdfcpu integration test in short mode")
	}

	b, err := NewPDFCPUBackend("", "Helvetica", 12)
	require.NoError(t, err)
	c, rec := newRealComposer(t, b)

	src := pdftest.WriteFile(t, "template.pdf",
		pdftest.Page{Width: 612, Height: 792, Lines: []string{"Contractor appointment"}},
		pdftest.Letter,
		pdftest.Page{Width: 612, Height: 792, Lines: []string{"Signatures"}},
	)
	out := t.TempDir()

	compose := func(name string) (*Result, []recordedDraw) {
		rec.draws = nil
		result, err := c.Compose(Request{
			DocumentType: catalog.ContractorOwner,
			Members:      contractor("Yossi Builder"),
			SourcePath:   src,
			OutputPath:   filepath.Join(out, name),
		})
		require.NoError(t, err)
		return result, rec.draws
	}

	first, firstDraws := compose("first.pdf")
	second, secondDraws := compose("second.pdf")

	assert.Equal(t, first.Fields, second.Fields)
	assert.Equal(t, first.Warnings, second.Warnings)
	assert.Equal(t, firstDraws, secondDraws)
	assert.Equal(t, pageTexts(t, first.OutputPath), pageTexts(t, second.OutputPath))
}

func TestPDFCPUBackend_PagesWithoutFieldsUnchanged(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping pdfcpu integration test in short mode")
	}

	b, err := NewPDFCPUBackend("", "Helvetica", 12)
	require.NoError(t, err)
	c, _ := newRealComposer(t, b)

	src := pdftest.WriteFile(t, "template.pdf",
		pdftest.Page{Width: 612, Height: 792, Lines: []string{"Contractor appointment"}},
		pdftest.Page{Width: 595, Height: 842, Lines: []string{"Terms and conditions", "Section 2"}},
		pdftest.Page{Width: 612, Height: 792, Lines: []string{"Signatures"}},
	)

	result, err := c.Compose(Request{
		DocumentType: catalog.ContractorOwner,
		Members:      contractor("Yossi Builder"),
		SourcePath:   src,
	})
	require.NoError(t, err)

	before := pageTexts(t, src)
	after := pageTexts(t, result.OutputPath)
	require.Len(t, after, 3)
	assert.Equal(t, before[1], after[1], "page 2 has no catalog entry")
	assert.Contains(t, after[0], "Contractor appointment", "existing content is kept under the overlay")
	assert.Contains(t, after[2], "Signatures")

	dims, err := b.PageDims(result.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, Dim{595, 842}, dims[1])
}
