package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bonbonpfw/constractbuild/internal/config"
	"github.com/bonbonpfw/constractbuild/internal/descriptions"
	"github.com/bonbonpfw/constractbuild/internal/member"
	"github.com/bonbonpfw/constractbuild/internal/pdf"
)

const shutdownTimeout = 5 * time.Second

// Server represents the MCP server instance
type Server struct {
	config     *config.Config
	docService *pdf.Service
	mcpServer  *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, docService *pdf.Service) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if docService == nil {
		return nil, fmt.Errorf("docService cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
	)

	s := &Server{
		config:     cfg,
		docService: docService,
		mcpServer:  mcpServer,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	composeTool := mcp.NewTool(
		"compose_document",
		mcp.WithDescription(descriptions.GetToolDescription("compose_document")),
		mcp.WithString("document_type",
			mcp.Required(),
			mcp.Description("Document type from list_document_types, e.g. EXECUTION_LICENSE"),
		),
		mcp.WithString("source_path",
			mcp.Required(),
			mcp.Description("Full path to the blank form PDF"),
		),
		mcp.WithString("members",
			mcp.Description("JSON array of project members to write onto the form"),
		),
		mcp.WithBoolean("unique_output",
			mcp.Description("Write to a uniquely named file instead of the type's default name"),
		),
	)
	s.mcpServer.AddTool(composeTool, s.handleComposeDocument)

	listTool := mcp.NewTool(
		"list_document_types",
		mcp.WithDescription(descriptions.GetToolDescription("list_document_types")),
	)
	s.mcpServer.AddTool(listTool, s.handleListDocumentTypes)

	validateTool := mcp.NewTool(
		"validate_source_document",
		mcp.WithDescription(descriptions.GetToolDescription("validate_source_document")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the blank form PDF"),
		),
	)
	s.mcpServer.AddTool(validateTool, s.handleValidateSourceDocument)

	licenseTextTool := mcp.NewTool(
		"extract_license_text",
		mcp.WithDescription(descriptions.GetToolDescription("extract_license_text")),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("License text, usually Hebrew"),
		),
		mcp.WithBoolean("use_llm",
			mcp.Description("Ask the language model for critical fields the patterns miss"),
		),
	)
	s.mcpServer.AddTool(licenseTextTool, s.handleExtractLicenseText)

	licenseFileTool := mcp.NewTool(
		"extract_license_file",
		mcp.WithDescription(descriptions.GetToolDescription("extract_license_file")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the license PDF, image or text file"),
		),
		mcp.WithBoolean("use_llm",
			mcp.Description("Ask the language model for critical fields the patterns miss"),
		),
	)
	s.mcpServer.AddTool(licenseFileTool, s.handleExtractLicenseFile)

	searchTool := mcp.NewTool(
		"search_source_files",
		mcp.WithDescription(descriptions.GetToolDescription("search_source_files")),
		mcp.WithString("directory",
			mcp.Description("Directory path to search (uses default if empty)"),
		),
		mcp.WithString("query",
			mcp.Description("Optional file name fragment"),
		),
	)
	s.mcpServer.AddTool(searchTool, s.handleSearchSourceFiles)
}

// Handler functions
func (s *Server) handleComposeDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docType, err := request.RequireString("document_type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sourcePath, err := request.RequireString("source_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var members []member.RequiredMember
	if raw := strings.TrimSpace(request.GetString("members", "")); raw != "" {
		members, err = member.DecodeMembers([]byte(raw))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	result, err := s.docService.Compose(pdf.ComposeRequest{
		DocumentType: docType,
		SourcePath:   sourcePath,
		Members:      members,
		UniqueOutput: request.GetBool("unique_output", false),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatComposeResult(result)), nil
}

func (s *Server) handleListDocumentTypes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	types := s.docService.ListDocumentTypes()
	if len(types) == 0 {
		return mcp.NewToolResultText("The field catalog defines no document types"), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Document types (%d):\n", len(types))
	for _, dt := range types {
		fmt.Fprintf(&b, "\n• %s - %s\n", dt.Name, dt.Label)
		fmt.Fprintf(&b, "  Pages with fields: %s\n", joinInts(dt.Pages))
		fmt.Fprintf(&b, "  Output file: %s\n", dt.OutputName)
		if len(dt.RequiredRoles) > 0 {
			fmt.Fprintf(&b, "  Required roles: %s\n", strings.Join(dt.RequiredRoles, ", "))
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleValidateSourceDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.docService.ValidateSource(pdf.ValidateSourceRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var responseText string
	if result.Valid {
		responseText = fmt.Sprintf("Source document %s is valid (%d pages)", result.Path, result.Pages)
	} else {
		responseText = fmt.Sprintf("Source document validation failed for %s: %s", result.Path, result.Message)
	}

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleExtractLicenseText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.docService.ExtractLicenseText(ctx, pdf.LicenseTextRequest{
		Text:   text,
		UseLLM: request.GetBool("use_llm", false),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return s.licenseResponse(result)
}

func (s *Server) handleExtractLicenseFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.docService.ExtractLicenseFile(ctx, pdf.LicenseFileRequest{
		Path:   path,
		UseLLM: request.GetBool("use_llm", false),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return s.licenseResponse(result)
}

func (s *Server) handleSearchSourceFiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req := pdf.SearchSourcesRequest{
		Directory: request.GetString("directory", ""),
		Query:     request.GetString("query", ""),
	}

	result, err := s.docService.SearchSources(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatSearchResult(result)), nil
}

// licenseResponse renders the extracted record as indented JSON so callers can
// feed it straight into a members array.
func (s *Server) licenseResponse(result *pdf.LicenseResult) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) formatComposeResult(result *pdf.ComposeResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Filled %s (%s)\n", result.DocumentType, result.Label)
	fmt.Fprintf(&b, "Output: %s\n", result.OutputPath)
	fmt.Fprintf(&b, "Pages: %d\n", result.PageCount)
	fmt.Fprintf(&b, "Fields written: %d\n", len(result.Fields))

	for _, f := range result.Fields {
		fmt.Fprintf(&b, "  page %d  %-36s (%.0f, %.0f)  %s\n", f.Page, f.Key, f.X, f.Y, f.Text)
	}

	if len(result.Warnings) > 0 {
		fmt.Fprintf(&b, "\nWarnings (%d):\n", len(result.Warnings))
		for _, w := range result.Warnings {
			fmt.Fprintf(&b, "  • %s\n", w)
		}
	}
	return b.String()
}

func (s *Server) formatSearchResult(result *pdf.SearchSourcesResult) string {
	if result.TotalCount == 0 {
		return fmt.Sprintf("No source files found in %s", result.Directory)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d source files in %s", result.TotalCount, result.Directory)
	if result.SearchQuery != "" {
		fmt.Fprintf(&b, " matching %q", result.SearchQuery)
	}
	b.WriteString(":\n\n")
	for i, file := range result.Files {
		fmt.Fprintf(&b, "%d. %s\n   Path: %s\n   Size: %d bytes\n   Modified: %s\n\n",
			i+1, file.Name, file.Path, file.Size, file.ModifiedTime)
	}
	return b.String()
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("server not started: %w", err)
	}

	if s.config.IsDebug() {
		log.Printf("Starting document MCP server in stdio mode")
		log.Printf("Document directory: %s", s.config.Directory)
	}

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves MCP over streamable HTTP until ctx is canceled
func (s *Server) runServerMode(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("server not started: %w", err)
	}

	httpServer := server.NewStreamableHTTPServer(s.mcpServer)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting document MCP server on %s", s.config.Address())
		errCh <- httpServer.Start(s.config.Address())
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down http server: %w", err)
		}
		return nil
	}
}

// GetMCPServer returns the underlying MCP server instance
func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}
