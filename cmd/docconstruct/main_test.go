package main

import (
	"bytes"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bonbonpfw/constractbuild/internal/config"
	docerrors "github.com/bonbonpfw/constractbuild/internal/errors"
)

const testVersion = "1.2.3"

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	originalStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = originalStdout }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
		w.Close()
	}()

	var buf bytes.Buffer
	io.Copy(&buf, r)
	<-done
	return buf.String()
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Directory = t.TempDir()
	cfg.OutputDir = filepath.Join(cfg.Directory, config.DefaultOutputDir)
	cfg.CatalogPath = filepath.Join("..", "..", config.DefaultCatalogPath)
	cfg.FontName = "Helvetica"
	return cfg
}

func TestPrintVersion(t *testing.T) {
	oldVersion, oldBuildTime, oldGitCommit := version, buildTime, gitCommit
	version, buildTime, gitCommit = testVersion, "2025-01-02_10:30:00", "abc123"
	defer func() {
		version, buildTime, gitCommit = oldVersion, oldBuildTime, oldGitCommit
	}()

	output := captureStdout(t, printVersion)

	expectedStrings := []string{
		"Construction Document Composer",
		"Version: " + testVersion,
		"Build Time: 2025-01-02_10:30:00",
		"Git Commit: abc123",
		"Built with:",
	}
	for _, expected := range expectedStrings {
		if !strings.Contains(output, expected) {
			t.Errorf("printVersion() output missing expected string: %s\nActual output:\n%s", expected, output)
		}
	}
}

func TestSetupLogging(t *testing.T) {
	originalOutput := log.Writer()
	originalFlags := log.Flags()
	defer func() {
		log.SetOutput(originalOutput)
		log.SetFlags(originalFlags)
	}()

	tests := []struct {
		name      string
		mode      string
		logLevel  string
		wantDrop  bool
		wantFlags int
	}{
		{name: "stdio mode discards logs", mode: config.ModeStdio, logLevel: "info", wantDrop: true, wantFlags: originalFlags},
		{name: "stdio debug logs to stderr", mode: config.ModeStdio, logLevel: "debug", wantFlags: originalFlags},
		{name: "server mode adds file info", mode: config.ModeServer, logLevel: "info", wantFlags: log.LstdFlags | log.Lshortfile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log.SetOutput(originalOutput)
			log.SetFlags(originalFlags)

			cfg := config.DefaultConfig()
			cfg.Mode = tt.mode
			cfg.LogLevel = tt.logLevel
			setupLogging(cfg)

			if got := log.Writer() == io.Discard; got != tt.wantDrop {
				t.Errorf("setupLogging() discard = %v, want %v", got, tt.wantDrop)
			}
			if log.Flags() != tt.wantFlags {
				t.Errorf("setupLogging() flags = %d, want %d", log.Flags(), tt.wantFlags)
			}
		})
	}
}

func TestNewService_RequiresFont(t *testing.T) {
	cfg := testConfig(t)
	cfg.FontName = ""

	_, err := newService(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, docerrors.ErrRenderingConfiguration)
}

func TestNewService(t *testing.T) {
	svc, err := newService(testConfig(t))
	if err != nil {
		t.Fatalf("newService() failed: %v", err)
	}
	if svc.LLMEnabled() {
		t.Error("Expected model fallback to be disabled")
	}
	if len(svc.ListDocumentTypes()) == 0 {
		t.Error("Expected document types from the bundled catalog")
	}

	cfg := testConfig(t)
	cfg.LLMEnabled = true
	cfg.AnthropicKey = "sk-test"
	cfg.AnthropicModel = "claude-test"
	svc, err = newService(cfg)
	if err != nil {
		t.Fatalf("newService() with model fallback failed: %v", err)
	}
	if !svc.LLMEnabled() {
		t.Error("Expected model fallback to be enabled")
	}
}

func TestNewService_Errors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(cfg *config.Config)
	}{
		{name: "missing catalog", modify: func(cfg *config.Config) { cfg.CatalogPath = "missing.yaml" }},
		{name: "unregistered font", modify: func(cfg *config.Config) { cfg.FontName = "NoSuchFont" }},
		{name: "missing font file", modify: func(cfg *config.Config) { cfg.FontPath = "missing.ttf" }},
		{name: "model fallback without key", modify: func(cfg *config.Config) { cfg.LLMEnabled = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.modify(cfg)
			if _, err := newService(cfg); err == nil {
				t.Error("newService() expected error")
			}
		})
	}
}
