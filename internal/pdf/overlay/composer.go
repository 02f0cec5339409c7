package overlay

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/bonbonpfw/constractbuild/internal/catalog"
	docerrors "github.com/bonbonpfw/constractbuild/internal/errors"
	"github.com/bonbonpfw/constractbuild/internal/member"
)

// Request describes one document to fill.
type Request struct {
	DocumentType catalog.DocumentType
	Members      []member.RequiredMember
	SourcePath   string
	// OutputPath overrides the generated output location.
	OutputPath   string
	UniqueOutput bool
}

// PlacedField records one string written onto the output.
type PlacedField struct {
	Page int     `json:"page"`
	Key  string  `json:"key"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Text string  `json:"text"`
}

// Result describes a filled document.
type Result struct {
	OutputPath string                `json:"output_path"`
	PageCount  int                   `json:"page_count"`
	Fields     []PlacedField         `json:"fields"`
	Warnings   []*docerrors.DocError `json:"warnings,omitempty"`
}

// Composer overlays member data onto templates. It holds no per-call state, so a
// single Composer may serve concurrent requests.
type Composer struct {
	catalog   *catalog.Catalog
	resolver  *member.Resolver
	renderer  Renderer
	backend   Backend
	outputDir string
	now       func() time.Time
	logger    *log.Logger
}

// Option configures a Composer.
type Option func(*Composer)

// WithClock sets the source of the date written into generic date fields.
func WithClock(now func() time.Time) Option {
	return func(c *Composer) { c.now = now }
}

// WithLogger enables debug logging of placement decisions.
func WithLogger(l *log.Logger) Option {
	return func(c *Composer) { c.logger = l }
}

// NewComposer creates a composer writing generated files into outputDir.
func NewComposer(cat *catalog.Catalog, backend Backend, outputDir string, opts ...Option) *Composer {
	c := &Composer{
		catalog:   cat,
		resolver:  member.NewResolver(),
		backend:   backend,
		outputDir: outputDir,
		now:       time.Now,
		logger:    log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type resolvedMember struct {
	role    member.Role
	profile member.Profile
}

// Compose fills the template at req.SourcePath and writes the result. Unknown
// document types, unreadable sources and a font the backend cannot use fail the
// call; per-member and per-field problems are returned as warnings.
func (c *Composer) Compose(req Request) (*Result, error) {
	if !c.catalog.Has(req.DocumentType) {
		return nil, docerrors.RenderingConfigurationError(
			fmt.Sprintf("no field positions for document type %q", req.DocumentType), nil)
	}

	dims, err := c.backend.PageDims(req.SourcePath)
	if err != nil {
		if docerrors.IsType(err, docerrors.ErrorTypeSourceDocument) {
			return nil, err
		}
		return nil, docerrors.SourceDocumentError(req.SourcePath, err)
	}

	outPath, err := c.outputPath(req)
	if err != nil {
		return nil, err
	}

	result := &Result{
		OutputPath: outPath,
		PageCount:  len(dims),
		Fields:     make([]PlacedField, 0),
	}
	problems := docerrors.NewCollection(req.SourcePath)

	if len(req.Members) == 0 {
		if err := copyFile(req.SourcePath, outPath); err != nil {
			return nil, err
		}
		return result, nil
	}

	members := c.resolveMembers(req.Members, problems)
	c.checkRequiredRoles(req.DocumentType, members, problems)

	today := c.now()
	surfaces := make([]Surface, 0, len(dims))
	for i, dim := range dims {
		pageNum := i + 1
		fields, ok := c.catalog.Page(req.DocumentType, pageNum)
		if !ok {
			continue
		}

		surface, err := c.backend.NewSurface(pageNum, dim)
		if err != nil {
			return nil, docerrors.Wrap(docerrors.ErrorTypeDrawing, "cannot create page surface", err).WithPage(pageNum)
		}

		for _, m := range members {
			for _, kind := range member.RoleKinds {
				key := member.Key(m.role, kind)
				if coord, ok := fields[key]; ok {
					c.place(surface, result, problems, pageNum, dim, key, coord, kind.Value(m.profile, today))
				}
			}
		}
		if len(members) > 0 {
			for _, kind := range member.GenericKinds {
				key := member.GenericKey(kind)
				if coord, ok := fields[key]; ok {
					c.place(surface, result, problems, pageNum, dim, key, coord, kind.Value(member.Profile{}, today))
				}
			}
		}

		surfaces = append(surfaces, surface)
	}

	// Nothing is written once a problem makes every page unrenderable.
	if fatal := problems.Fatal(); fatal != nil {
		return nil, fatal
	}

	if err := c.backend.Merge(req.SourcePath, outPath, surfaces); err != nil {
		if docerrors.IsType(err, docerrors.ErrorTypeSourceDocument) {
			return nil, err
		}
		return nil, docerrors.Wrap(docerrors.ErrorTypeDrawing, "cannot write output document", err).WithFile(outPath)
	}

	result.Warnings = problems.Warnings
	c.logger.Printf("composed %s: %d pages, %d fields. %s",
		outPath, result.PageCount, len(result.Fields), problems.Summary())
	return result, nil
}

func (c *Composer) resolveMembers(in []member.RequiredMember, problems *docerrors.Collection) []resolvedMember {
	out := make([]resolvedMember, 0, len(in))
	for _, m := range in {
		role, err := c.resolver.ResolveRole(m)
		if err != nil {
			problems.Add(asDocError(err, docerrors.ErrorTypeRoleMapping))
			c.logger.Printf("skipping member: %v", err)
			continue
		}
		out = append(out, resolvedMember{role: role, profile: m.Details()})
	}
	return out
}

func (c *Composer) checkRequiredRoles(docType catalog.DocumentType, members []resolvedMember, problems *docerrors.Collection) {
	present := lo.Map(members, func(m resolvedMember, _ int) member.Role { return m.role })
	for _, role := range c.catalog.RequiredRoles(docType) {
		if !lo.Contains(present, role) {
			problems.Add(docerrors.New(docerrors.ErrorTypeMissingRole,
				fmt.Sprintf("no member with role %s", role)).WithContext(string(docType)))
		}
	}
}

func (c *Composer) place(s Surface, result *Result, problems *docerrors.Collection,
	page int, dim Dim, key member.FieldKey, coord catalog.Coordinate, text string,
) {
	if text == "" {
		return
	}
	if !dim.Contains(coord.X, coord.Y) {
		problems.Add(docerrors.New(docerrors.ErrorTypeOutOfBounds,
			fmt.Sprintf("coordinate (%.1f, %.1f) outside %.1fx%.1f page", coord.X, coord.Y, dim.Width, dim.Height)).
			WithPage(page).WithField(key.String()))
		return
	}

	if err := c.renderer.Draw(s, coord.X, coord.Y, text, key.Kind.RTL()); err != nil {
		problem := docerrors.Find(err, docerrors.ErrorTypeRenderingConfiguration)
		if problem == nil {
			problem = asDocError(err, docerrors.ErrorTypeDrawing)
		}
		problems.Add(problem.WithPage(page).WithField(key.String()))
		return
	}

	result.Fields = append(result.Fields, PlacedField{
		Page: page,
		Key:  key.String(),
		X:    coord.X,
		Y:    coord.Y,
		Text: text,
	})
}

func (c *Composer) outputPath(req Request) (string, error) {
	path := req.OutputPath
	if path == "" {
		name := req.DocumentType.OutputName()
		if req.UniqueOutput {
			name = strings.TrimSuffix(name, ".pdf") + "_" + uuid.NewString() + ".pdf"
		}
		path = filepath.Join(c.outputDir, name)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	return path, nil
}

func asDocError(err error, fallback docerrors.ErrorType) *docerrors.DocError {
	if de, ok := err.(*docerrors.DocError); ok {
		return de
	}
	return docerrors.Wrap(fallback, "unexpected failure", err)
}
