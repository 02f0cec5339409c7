package pdf

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/bonbonpfw/constractbuild/internal/catalog"
	"github.com/bonbonpfw/constractbuild/internal/license"
	"github.com/bonbonpfw/constractbuild/internal/llm"
	"github.com/bonbonpfw/constractbuild/internal/member"
	"github.com/bonbonpfw/constractbuild/internal/pdf/overlay"
	"github.com/bonbonpfw/constractbuild/internal/pdf/security"
)

// ServiceConfig wires the components a Service orchestrates
type ServiceConfig struct {
	MaxFileSize int64
	// Directory bounds every source and license path the service will open.
	Directory string
	OutputDir string
	Catalog   *catalog.Catalog
	Backend   overlay.Backend
	// Completer enables the model fallback for license extraction; nil disables it.
	Completer llm.Completer
	Logger    *log.Logger
	Clock     func() time.Time
}

// Service handles document operations by orchestrating the compose and
// license components
type Service struct {
	maxFileSize   int64
	catalog       *catalog.Catalog
	composer      *overlay.Composer
	reader        *Reader
	validator     *Validator
	search        *Search
	completer     llm.Completer
	pathValidator *security.PathValidator
	logger        *log.Logger
}

// NewService creates a new document service with all components
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("field catalog is required")
	}
	if cfg.Backend == nil {
		return nil, fmt.Errorf("rendering backend is required")
	}
	if cfg.MaxFileSize <= 0 {
		return nil, fmt.Errorf("max file size must be positive")
	}

	pathValidator, err := security.NewPathValidator(cfg.Directory)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	opts := []overlay.Option{overlay.WithLogger(logger)}
	if cfg.Clock != nil {
		opts = append(opts, overlay.WithClock(cfg.Clock))
	}

	return &Service{
		maxFileSize:   cfg.MaxFileSize,
		catalog:       cfg.Catalog,
		composer:      overlay.NewComposer(cfg.Catalog, cfg.Backend, cfg.OutputDir, opts...),
		reader:        NewReader(cfg.MaxFileSize),
		validator:     NewValidator(cfg.MaxFileSize),
		search:        NewSearch(cfg.MaxFileSize),
		completer:     cfg.Completer,
		pathValidator: pathValidator,
		logger:        logger,
	}, nil
}

// Compose fills a template with member data
func (s *Service) Compose(req ComposeRequest) (*ComposeResult, error) {
	if err := s.pathValidator.ValidatePath(req.SourcePath); err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	if err := s.validator.Check(req.SourcePath); err != nil {
		return nil, err
	}

	docType := s.documentType(req.DocumentType)
	result, err := s.composer.Compose(overlay.Request{
		DocumentType: docType,
		Members:      req.Members,
		SourcePath:   req.SourcePath,
		UniqueOutput: req.UniqueOutput,
	})
	if err != nil {
		return nil, err
	}
	return newComposeResult(docType, result), nil
}

// ValidateSource performs validation on a template PDF
func (s *Service) ValidateSource(req ValidateSourceRequest) (*ValidateSourceResult, error) {
	if err := s.pathValidator.ValidatePath(req.Path); err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	return s.validator.ValidateSource(req)
}

// ExtractLicenseText extracts license fields from raw text. Empty text gives a
// record with every field unknown.
func (s *Service) ExtractLicenseText(ctx context.Context, req LicenseTextRequest) (*LicenseResult, error) {
	return s.extract(ctx, license.Source{Name: "text", Text: req.Text}, req.UseLLM)
}

// ExtractLicenseFile extracts license fields from a PDF, image or text file
func (s *Service) ExtractLicenseFile(ctx context.Context, req LicenseFileRequest) (*LicenseResult, error) {
	if err := s.pathValidator.ValidatePath(req.Path); err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	src, err := s.reader.ReadSource(req.Path)
	if err != nil {
		return nil, err
	}
	return s.extract(ctx, src, req.UseLLM)
}

func (s *Service) extract(ctx context.Context, src license.Source, useLLM bool) (*LicenseResult, error) {
	pipeline := &license.Pipeline{Primary: license.RegexStrategy{}, Logger: s.logger}
	if useLLM {
		if s.completer == nil {
			return nil, fmt.Errorf("model fallback is not configured")
		}
		pipeline.Fallback = license.LLMStrategy{Completer: s.completer}
	}

	outcome, err := pipeline.Run(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", src.Name, err)
	}
	return newLicenseResult(src.Name, outcome), nil
}

// ListDocumentTypes describes every document type in the catalog
func (s *Service) ListDocumentTypes() []DocumentTypeInfo {
	return lo.Map(s.catalog.DocumentTypes(), func(dt catalog.DocumentType, _ int) DocumentTypeInfo {
		return DocumentTypeInfo{
			Name:       string(dt),
			Label:      dt.Label(),
			OutputName: dt.OutputName(),
			Pages:      s.catalog.Pages(dt),
			RequiredRoles: lo.Map(s.catalog.RequiredRoles(dt), func(r member.Role, _ int) string {
				return string(r)
			}),
		}
	})
}

// SearchSources lists license and template files below a directory
func (s *Service) SearchSources(req SearchSourcesRequest) (*SearchSourcesResult, error) {
	if req.Directory == "" {
		req.Directory = s.pathValidator.GetConfiguredDirectory()
	}
	if err := s.pathValidator.ValidatePath(req.Directory); err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	return s.search.SearchDirectory(req)
}

// LLMEnabled reports whether the model fallback is available
func (s *Service) LLMEnabled() bool {
	return s.completer != nil
}

// GetMaxFileSize returns the maximum file size limit
func (s *Service) GetMaxFileSize() int64 {
	return s.maxFileSize
}

// GetConfiguredDirectory returns the directory file access is limited to
func (s *Service) GetConfiguredDirectory() string {
	return s.pathValidator.GetConfiguredDirectory()
}

// documentType maps user input onto a catalog key; the catalog is matched as
// written first, then upper-cased.
func (s *Service) documentType(name string) catalog.DocumentType {
	dt := catalog.DocumentType(strings.TrimSpace(name))
	if s.catalog.Has(dt) {
		return dt
	}
	return catalog.DocumentType(strings.ToUpper(string(dt)))
}

func newLicenseResult(source string, o *license.Outcome) *LicenseResult {
	result := &LicenseResult{
		Source:     source,
		Fields:     o.Data.AsMap(),
		Strategies: o.Strategies,
		Missing: lo.Map(o.Data.Missing(license.CriticalFields...), func(f license.Field, _ int) string {
			return string(f)
		}),
	}
	if len(o.FieldErrors) > 0 {
		result.FieldErrors = make(map[string]string, len(o.FieldErrors))
		for f, err := range o.FieldErrors {
			result.FieldErrors[string(f)] = err.Error()
		}
	}
	if o.FallbackErr != nil {
		result.Fallback = o.FallbackErr.Error()
	}
	return result
}
