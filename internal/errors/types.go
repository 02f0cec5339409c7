package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// DocError is a classified failure raised while composing documents or extracting license data
type DocError struct {
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	Context   string    `json:"context,omitempty"`
	FilePath  string    `json:"file_path,omitempty"`
	Page      int       `json:"page,omitempty"`
	Field     string    `json:"field,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Err       error     `json:"-"`
}

// ErrorType represents the categories of the document pipeline error taxonomy
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeSourceDocument
	ErrorTypeRenderingConfiguration
	ErrorTypeRoleMapping
	ErrorTypeDateParse
	ErrorTypeDrawing
	ErrorTypeOutOfBounds
	ErrorTypeMissingRole
	ErrorTypeLLMExtraction
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity int

const (
	SeverityInfo ErrorSeverity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

// Error implements the error interface
func (e *DocError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Type, e.Message)
	if e.Context != "" {
		b.WriteString(": ")
		b.WriteString(e.Context)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes the underlying cause
func (e *DocError) Unwrap() error {
	return e.Err
}

// Is matches any *DocError of the same type, so sentinel values such as
// ErrSourceDocument work with errors.Is.
func (e *DocError) Is(target error) bool {
	t, ok := target.(*DocError)
	if !ok {
		return false
	}
	return t.Type == e.Type && (t.Message == "" || t.Message == e.Message)
}

// String returns a string representation of the ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeSourceDocument:
		return "SOURCE_DOCUMENT"
	case ErrorTypeRenderingConfiguration:
		return "RENDERING_CONFIGURATION"
	case ErrorTypeRoleMapping:
		return "ROLE_MAPPING"
	case ErrorTypeDateParse:
		return "DATE_PARSE"
	case ErrorTypeDrawing:
		return "DRAWING"
	case ErrorTypeOutOfBounds:
		return "OUT_OF_BOUNDS"
	case ErrorTypeMissingRole:
		return "MISSING_ROLE"
	case ErrorTypeLLMExtraction:
		return "LLM_EXTRACTION"
	default:
		return "UNKNOWN"
	}
}

// GetSeverity returns the severity level for a given error type
func (et ErrorType) GetSeverity() ErrorSeverity {
	switch et {
	case ErrorTypeSourceDocument, ErrorTypeRenderingConfiguration:
		return SeverityFatal
	case ErrorTypeRoleMapping, ErrorTypeDrawing, ErrorTypeOutOfBounds,
		ErrorTypeMissingRole, ErrorTypeDateParse, ErrorTypeLLMExtraction:
		return SeverityWarning
	default:
		return SeverityError
	}
}

// Sentinels for errors.Is checks against the taxonomy.
var (
	ErrSourceDocument         = &DocError{Type: ErrorTypeSourceDocument}
	ErrRenderingConfiguration = &DocError{Type: ErrorTypeRenderingConfiguration}
	ErrRoleMapping            = &DocError{Type: ErrorTypeRoleMapping}
	ErrDateParse              = &DocError{Type: ErrorTypeDateParse}
	ErrDrawing                = &DocError{Type: ErrorTypeDrawing}
)

// New creates a DocError of the given type
func New(errorType ErrorType, message string) *DocError {
	return &DocError{
		Type:      errorType,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Wrap wraps err as a DocError of the given type
func Wrap(errorType ErrorType, message string, err error) *DocError {
	e := New(errorType, message)
	e.Err = err
	return e
}

// SourceDocumentError reports a missing, unreadable or corrupt source document.
func SourceDocumentError(path string, err error) *DocError {
	return Wrap(ErrorTypeSourceDocument, "cannot read source document", err).WithFile(path)
}

// RenderingConfigurationError reports a missing font or catalog entry.
func RenderingConfigurationError(message string, err error) *DocError {
	return Wrap(ErrorTypeRenderingConfiguration, message, err)
}

// ConfigurationError reports a role with no field-prefix mapping or a bad catalog key.
func ConfigurationError(message string) *DocError {
	return New(ErrorTypeRoleMapping, message)
}

// CatalogError reports a field catalog that cannot be used: bad YAML, no
// document types, missing pages or malformed coordinates.
func CatalogError(message string, err error) *DocError {
	return Wrap(ErrorTypeRenderingConfiguration, message, err)
}

// DateParseError reports a malformed date attributed to a single field.
func DateParseError(field, value string, err error) *DocError {
	return Wrap(ErrorTypeDateParse, "malformed date", err).WithField(field).WithContext(value)
}

// WithContext adds context to an existing DocError
func (e *DocError) WithContext(context string) *DocError {
	e.Context = context
	return e
}

// WithFile adds file path information to an existing DocError
func (e *DocError) WithFile(filePath string) *DocError {
	e.FilePath = filePath
	return e
}

// WithPage adds page number information to an existing DocError
func (e *DocError) WithPage(page int) *DocError {
	e.Page = page
	return e
}

// WithField names the field the error is attributed to
func (e *DocError) WithField(field string) *DocError {
	e.Field = field
	return e
}

// GetSeverity returns the severity of this specific error
func (e *DocError) GetSeverity() ErrorSeverity {
	return e.Type.GetSeverity()
}

// IsType reports whether err is, or wraps, a DocError of the given type.
func IsType(err error, errorType ErrorType) bool {
	var de *DocError
	if !stderrors.As(err, &de) {
		return false
	}
	return de.Type == errorType
}

// Find returns the first DocError of the given type anywhere in err's chain,
// looking past outer DocErrors of other types.
func Find(err error, errorType ErrorType) *DocError {
	for err != nil {
		if de, ok := err.(*DocError); ok && de.Type == errorType {
			return de
		}
		err = stderrors.Unwrap(err)
	}
	return nil
}

// Collection gathers the non-fatal problems of a single compose or extraction call
type Collection struct {
	Errors   []*DocError `json:"errors"`
	Warnings []*DocError `json:"warnings"`
	FilePath string      `json:"file_path,omitempty"`
}

// NewCollection creates a new error collection
func NewCollection(filePath string) *Collection {
	return &Collection{
		Errors:   make([]*DocError, 0),
		Warnings: make([]*DocError, 0),
		FilePath: filePath,
	}
}

// Add files an error under warnings or errors based on its severity
func (c *Collection) Add(err *DocError) {
	if err.FilePath == "" && c.FilePath != "" {
		err.FilePath = c.FilePath
	}

	switch err.GetSeverity() {
	case SeverityInfo, SeverityWarning:
		c.Warnings = append(c.Warnings, err)
	default:
		c.Errors = append(c.Errors, err)
	}
}

// Fatal returns the first collected error that must abort the call, or nil.
func (c *Collection) Fatal() *DocError {
	for _, err := range c.Errors {
		if err.GetSeverity() == SeverityFatal {
			return err
		}
	}
	return nil
}

// Count returns the total number of errors and warnings
func (c *Collection) Count() (errors, warnings int) {
	return len(c.Errors), len(c.Warnings)
}

// Summary returns a text summary of all errors and warnings
func (c *Collection) Summary() string {
	errorCount, warningCount := c.Count()
	if errorCount == 0 && warningCount == 0 {
		return "No errors or warnings"
	}
	return fmt.Sprintf("Found %d error(s) and %d warning(s)", errorCount, warningCount)
}
