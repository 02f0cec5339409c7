package pdf

import (
	"github.com/bonbonpfw/constractbuild/internal/catalog"
	"github.com/bonbonpfw/constractbuild/internal/member"
	"github.com/bonbonpfw/constractbuild/internal/pdf/overlay"
)

// FileInfo represents information about a source file found on disk
type FileInfo struct {
	Path         string `json:"path"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modified_time"`
}

// Request Types

// ComposeRequest represents a request to fill a document template
type ComposeRequest struct {
	DocumentType string                  `json:"document_type"`
	SourcePath   string                  `json:"source_path"`
	Members      []member.RequiredMember `json:"-"`
	UniqueOutput bool                    `json:"unique_output,omitempty"`
}

// ValidateSourceRequest represents a request to validate a template PDF
type ValidateSourceRequest struct {
	Path string `json:"path"`
}

// LicenseTextRequest represents a request to extract license fields from raw text
type LicenseTextRequest struct {
	Text   string `json:"text"`
	UseLLM bool   `json:"use_llm,omitempty"`
}

// LicenseFileRequest represents a request to extract license fields from a file
type LicenseFileRequest struct {
	Path   string `json:"path"`
	UseLLM bool   `json:"use_llm,omitempty"`
}

// SearchSourcesRequest represents a request to list license or template files in a directory
type SearchSourcesRequest struct {
	Directory string `json:"directory"`
	Query     string `json:"query"`
}

// Response Types

// ComposeResult represents the result of a compose operation
type ComposeResult struct {
	DocumentType string                `json:"document_type"`
	Label        string                `json:"label"`
	OutputPath   string                `json:"output_path"`
	PageCount    int                   `json:"page_count"`
	Fields       []overlay.PlacedField `json:"fields"`
	Warnings     []string              `json:"warnings,omitempty"`
}

// ValidateSourceResult represents the result of a template validation
type ValidateSourceResult struct {
	Valid   bool   `json:"valid"`
	Path    string `json:"path"`
	Pages   int    `json:"pages,omitempty"`
	Message string `json:"message,omitempty"`
}

// LicenseResult represents the fields extracted from one license
type LicenseResult struct {
	Source      string            `json:"source,omitempty"`
	Fields      map[string]any    `json:"fields"`
	Strategies  []string          `json:"strategies"`
	Missing     []string          `json:"missing,omitempty"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
	Fallback    string            `json:"fallback_error,omitempty"`
}

// DocumentTypeInfo describes one document type known to the catalog
type DocumentTypeInfo struct {
	Name          string   `json:"name"`
	Label         string   `json:"label"`
	OutputName    string   `json:"output_name"`
	Pages         []int    `json:"pages"`
	RequiredRoles []string `json:"required_roles,omitempty"`
}

// SearchSourcesResult represents the result of a directory search
type SearchSourcesResult struct {
	Files       []FileInfo `json:"files"`
	TotalCount  int        `json:"total_count"`
	Directory   string     `json:"directory"`
	SearchQuery string     `json:"search_query,omitempty"`
}

func newComposeResult(docType catalog.DocumentType, r *overlay.Result) *ComposeResult {
	warnings := make([]string, 0, len(r.Warnings))
	for _, w := range r.Warnings {
		warnings = append(warnings, w.Error())
	}
	return &ComposeResult{
		DocumentType: string(docType),
		Label:        docType.Label(),
		OutputPath:   r.OutputPath,
		PageCount:    r.PageCount,
		Fields:       r.Fields,
		Warnings:     warnings,
	}
}
