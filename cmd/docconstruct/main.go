package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/bonbonpfw/constractbuild/internal/catalog"
	"github.com/bonbonpfw/constractbuild/internal/config"
	"github.com/bonbonpfw/constractbuild/internal/llm/anthropic"
	"github.com/bonbonpfw/constractbuild/internal/mcp"
	"github.com/bonbonpfw/constractbuild/internal/pdf"
	"github.com/bonbonpfw/constractbuild/internal/pdf/overlay"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging configures logging based on the server mode
func setupLogging(cfg *config.Config) {
	if cfg.IsStdioMode() {
		// stdout carries the MCP protocol in stdio mode
		log.SetOutput(os.Stderr)
		if !cfg.IsDebug() {
			log.SetOutput(io.Discard)
		}
	} else {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}
}

// newService loads the field catalog and wires the document service
func newService(cfg *config.Config) (*pdf.Service, error) {
	cat, err := catalog.LoadFile(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load field catalog: %w", err)
	}

	backend, err := overlay.NewPDFCPUBackend(cfg.FontPath, cfg.FontName, cfg.FontSize)
	if err != nil {
		return nil, err
	}

	svcCfg := pdf.ServiceConfig{
		MaxFileSize: cfg.MaxFileSize,
		Directory:   cfg.Directory,
		OutputDir:   cfg.OutputDir,
		Catalog:     cat,
		Backend:     backend,
		Logger:      log.Default(),
	}

	if cfg.LLMEnabled {
		var opts []anthropic.Option
		if cfg.AnthropicModel != "" {
			opts = append(opts, anthropic.WithModel(cfg.AnthropicModel))
		}
		if cfg.AnthropicURL != "" {
			opts = append(opts, anthropic.WithURL(cfg.AnthropicURL))
		}
		client, err := anthropic.New(cfg.AnthropicKey, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create model client: %w", err)
		}
		svcCfg.Completer = client
	}

	return pdf.NewService(svcCfg)
}

// runServerMode handles server mode execution with signal handling
func runServerMode(ctx context.Context, cancel context.CancelFunc, server *mcp.Server) {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.Run(ctx)
	}()

	select {
	case sig := <-signalCh:
		log.Printf("Received signal: %s", sig)
		log.Println("Initiating graceful shutdown...")
		cancel()

		if err := <-serverErrCh; err != nil {
			log.Printf("Server shutdown with error: %v", err)
			os.Exit(1)
		}

	case err := <-serverErrCh:
		if err != nil {
			log.Printf("Server error: %v", err)
			os.Exit(1)
		}
	}

	log.Println("Server stopped successfully")
}

// runStdioMode handles stdio mode execution. The parent process controls
// the lifecycle; the server returns when stdin is closed.
func runStdioMode(ctx context.Context, _ context.CancelFunc, server *mcp.Server) {
	if err := server.Run(ctx); err != nil {
		log.Printf("Server error: %v", err)
		os.Exit(1)
	}
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg)

	if version != "dev" {
		cfg.Version = version
	}

	if cfg.IsDebug() {
		log.Printf("Starting with configuration: %s", cfg.String())
	}

	docService, err := newService(cfg)
	if err != nil {
		log.Fatalf("Failed to create document service: %v", err)
	}

	server, err := mcp.NewServer(cfg, docService)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.IsServerMode() {
		runServerMode(ctx, cancel, server)
	} else {
		runStdioMode(ctx, cancel, server)
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("Construction Document Composer\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
