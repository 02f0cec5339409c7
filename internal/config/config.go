package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 50 * 1024 * 1024 // 50MB
	DefaultCatalogPath = "config/prof_doc.yaml"
	DefaultFontSize    = 12
	DefaultOutputDir   = "filled"

	// Directory permissions
	DefaultDirPerm = 0o750

	// EnvPrefix prefixes every environment variable the server reads
	EnvPrefix = "DOC_CONSTRUCT"
)

// Config holds all configuration for the document server
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Document configuration
	Directory   string // templates and license files are read from here
	OutputDir   string // filled documents are written here
	CatalogPath string
	FontPath    string
	FontName    string
	FontSize    int

	// Model fallback configuration
	LLMEnabled     bool
	AnthropicKey   string
	AnthropicModel string
	AnthropicURL   string

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum source file size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		// Fallback to current directory if working directory cannot be determined
		currentDir = "."
	}

	return &Config{
		Mode:        ModeStdio, // Default to stdio mode for MCP compatibility
		Host:        DefaultHost,
		Port:        DefaultPort,
		Directory:   currentDir,
		CatalogPath: DefaultCatalogPath,
		FontSize:    DefaultFontSize,
		Version:     "1.0.0",
		ServerName:  "docconstruct",
		LogLevel:    DefaultLogLevel,
		MaxFileSize: DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and returns a configuration.
// A .env file in the working directory is loaded first; variables already set
// in the environment win.
func LoadFromFlags() (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)
	cfg.expandPaths()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.Directory)
	viper.SetDefault("outdir", cfg.OutputDir)
	viper.SetDefault("catalog", cfg.CatalogPath)
	viper.SetDefault("font", cfg.FontPath)
	viper.SetDefault("fontname", cfg.FontName)
	viper.SetDefault("fontsize", cfg.FontSize)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
	viper.SetDefault("llm", cfg.LLMEnabled)
	viper.SetDefault("anthropic-model", cfg.AnthropicModel)
	viper.SetDefault("anthropic-url", cfg.AnthropicURL)

	// The key is also picked up under the names other tooling uses
	_ = viper.BindEnv("anthropic-key", EnvPrefix+"_ANTHROPIC_KEY", "CLAUDE_API_KEY", "ANTHROPIC_API_KEY")
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP server")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.Directory, "Directory containing templates and license files")
	pflag.String("outdir", cfg.OutputDir, "Directory filled documents are written to (default <dir>/filled)")
	pflag.String("catalog", cfg.CatalogPath, "Field position catalog (YAML)")
	pflag.String("font", cfg.FontPath, "TrueType font used to write field values")
	pflag.String("fontname", cfg.FontName, "Font name (defaults to the font file's base name; without --font only standard Latin PDF fonts such as Helvetica)")
	pflag.Int("fontsize", cfg.FontSize, "Font size in points")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum source file size in bytes")
	pflag.Bool("llm", cfg.LLMEnabled, "Enable the model fallback for license extraction")
	pflag.String("anthropic-key", "", "Anthropic API key for the model fallback")
	pflag.String("anthropic-model", cfg.AnthropicModel, "Anthropic model used by the fallback")
	pflag.String("anthropic-url", cfg.AnthropicURL, "Anthropic API base URL")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range []string{
		"mode", "host", "port", "dir", "outdir", "catalog", "font", "fontname", "fontsize",
		"loglevel", "maxfilesize", "llm", "anthropic-key", "anthropic-model", "anthropic-url",
	} {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\ndocconstruct - A Model Context Protocol server that fills construction permit forms\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --font=fonts/Rubik.ttf                          "+
			"# stdio mode, current directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --font=fonts/Rubik.ttf --catalog=forms.yaml     "+
			"# custom field catalog\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --font=fonts/Rubik.ttf --llm      "+
			"# server mode with model fallback\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables (also read from .env):\n")
		fmt.Fprintf(os.Stderr, "  %s_MODE, _HOST, _PORT, _DIR, _OUTDIR, _CATALOG, _FONT, _FONTNAME, _FONTSIZE\n", EnvPrefix)
		fmt.Fprintf(os.Stderr, "  %s_LOGLEVEL, _MAXFILESIZE, _LLM, _ANTHROPIC_MODEL, _ANTHROPIC_URL\n", EnvPrefix)
		fmt.Fprintf(os.Stderr, "  %s_ANTHROPIC_KEY or CLAUDE_API_KEY\n", EnvPrefix)
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.Directory = viper.GetString("dir")
	cfg.OutputDir = viper.GetString("outdir")
	cfg.CatalogPath = viper.GetString("catalog")
	cfg.FontPath = viper.GetString("font")
	cfg.FontName = viper.GetString("fontname")
	cfg.FontSize = viper.GetInt("fontsize")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
	cfg.LLMEnabled = viper.GetBool("llm")
	cfg.AnthropicKey = viper.GetString("anthropic-key")
	cfg.AnthropicModel = viper.GetString("anthropic-model")
	cfg.AnthropicURL = viper.GetString("anthropic-url")
}

// expandPaths makes directory paths absolute and derives the output directory
func (c *Config) expandPaths() {
	if c.Directory != "" {
		if expandedPath, err := filepath.Abs(c.Directory); err == nil {
			c.Directory = expandedPath
		}
	}
	if c.OutputDir == "" && c.Directory != "" {
		c.OutputDir = filepath.Join(c.Directory, DefaultOutputDir)
	}
	if c.OutputDir != "" {
		if expandedPath, err := filepath.Abs(c.OutputDir); err == nil {
			c.OutputDir = expandedPath
		}
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate mode
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Validate port range (only for server mode)
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	// Validate directories, creating them when missing
	if c.Directory == "" {
		return errors.New("document directory cannot be empty")
	}
	if err := ensureDir(c.Directory); err != nil {
		return err
	}
	if c.OutputDir != "" {
		if err := ensureDir(c.OutputDir); err != nil {
			return err
		}
	}

	// Validate catalog
	if c.CatalogPath == "" {
		return errors.New("field catalog path cannot be empty")
	}
	if info, err := os.Stat(c.CatalogPath); err != nil {
		return fmt.Errorf("cannot access field catalog %s: %w", c.CatalogPath, err)
	} else if info.IsDir() {
		return fmt.Errorf("field catalog %s is a directory", c.CatalogPath)
	}

	// Validate font size
	if c.FontSize <= 0 {
		return errors.New("font size must be positive")
	}

	// Validate max file size
	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	// Validate model fallback
	if c.LLMEnabled && c.AnthropicKey == "" {
		return fmt.Errorf("model fallback enabled but no API key set (%s_ANTHROPIC_KEY or CLAUDE_API_KEY)", EnvPrefix)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

func ensureDir(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create directory %s: %w", dir, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot access directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", dir)
	}
	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration. The API key is
// never printed.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, Directory: %s, OutputDir: %s, Catalog: %s, "+
		"Font: %s, LogLevel: %s, MaxFileSize: %d, LLM: %t}",
		c.Mode, c.Host, c.Port, c.Directory, c.OutputDir, c.CatalogPath,
		c.FontPath, c.LogLevel, c.MaxFileSize, c.LLMEnabled)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
