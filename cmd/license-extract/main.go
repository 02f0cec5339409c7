package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/lo"

	"github.com/bonbonpfw/constractbuild/internal/config"
	"github.com/bonbonpfw/constractbuild/internal/license"
	"github.com/bonbonpfw/constractbuild/internal/llm/anthropic"
	"github.com/bonbonpfw/constractbuild/internal/pdf"
)

var (
	useLLM       = flag.Bool("llm", false, "Fill missing critical fields with the language model")
	outputFormat = flag.String("format", "text", "Output format: text, json")
	model        = flag.String("model", "", "Model name for the fallback (default "+anthropic.DefaultModel+")")
	verbose      = flag.Bool("verbose", false, "Enable verbose output")
	help         = flag.Bool("help", false, "Show help message")
)

func main() {
	flag.Parse()

	if *help {
		printHelp()
		return
	}

	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Error: license file or directory required\n\n")
		printUsage()
		os.Exit(1)
	}

	if *outputFormat != "text" && *outputFormat != "json" {
		fmt.Fprintf(os.Stderr, "Error: unknown format %q\n", *outputFormat)
		os.Exit(1)
	}

	_ = godotenv.Load()

	logger := log.New(io.Discard, "", 0)
	if *verbose {
		logger = log.New(os.Stderr, "license-extract: ", log.LstdFlags)
	}

	pipeline, err := newPipeline(*useLLM, *model, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	files, err := collectFiles(flag.Args(), config.DefaultMaxFileSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	reader := pdf.NewReader(config.DefaultMaxFileSize)
	results := make([]*FileResult, 0, len(files))
	failed := 0
	for _, path := range files {
		result := extractFile(context.Background(), pipeline, reader, path)
		if result.Error != "" {
			failed++
		}
		results = append(results, result)
	}

	if err := writeResults(os.Stdout, results, *outputFormat); err != nil {
		fmt.Fprintf(os.Stderr, "Error outputting results: %v\n", err)
		os.Exit(1)
	}

	if failed == len(results) {
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("License Extract - Read professional license fields from license files")
	fmt.Println()
	fmt.Println("Reads Hebrew professional and contractor licenses (PDF, text or image) and")
	fmt.Println("reports the holder's name, ID number, license number and expiration date.")
	fmt.Println()
	printUsage()
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -llm           Send files with missing critical fields to the language model")
	fmt.Println("  -model         Model name used with -llm")
	fmt.Println("  -format        Output format: text (default), json")
	fmt.Println("  -verbose       Log each extraction step to stderr")
	fmt.Println("  -help          Show this help message")
	fmt.Println()
	fmt.Println("ENVIRONMENT:")
	fmt.Println("  CLAUDE_API_KEY, DOC_CONSTRUCT_ANTHROPIC_KEY or ANTHROPIC_API_KEY")
	fmt.Println("  provide the API key for -llm. A .env file in the working directory is read.")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  license-extract contractor.pdf")
	fmt.Println("  license-extract -llm -format json licenses/")
}

func printUsage() {
	fmt.Println("USAGE:")
	fmt.Println("  license-extract [OPTIONS] <file|directory>...")
}

// FileResult is the extraction result for one license file
type FileResult struct {
	FilePath       string               `json:"file_path"`
	Success        bool                 `json:"success"`
	Data           *license.LicenseData `json:"-"`
	Fields         map[string]any       `json:"fields,omitempty"`
	Strategies     []string             `json:"strategies,omitempty"`
	Missing        []string             `json:"missing,omitempty"`
	Error          string               `json:"error,omitempty"`
	ExtractionTime string               `json:"extraction_time,omitempty"`
}

// newPipeline builds the regex pipeline, with the model fallback when requested
func newPipeline(withLLM bool, modelName string, logger *log.Logger) (*license.Pipeline, error) {
	pipeline := &license.Pipeline{Primary: license.RegexStrategy{}, Logger: logger}
	if !withLLM {
		return pipeline, nil
	}

	key := lo.CoalesceOrEmpty(
		os.Getenv("CLAUDE_API_KEY"),
		os.Getenv(config.EnvPrefix+"_ANTHROPIC_KEY"),
		os.Getenv("ANTHROPIC_API_KEY"),
	)

	var opts []anthropic.Option
	if modelName != "" {
		opts = append(opts, anthropic.WithModel(modelName))
	}
	client, err := anthropic.New(key, opts...)
	if err != nil {
		return nil, err
	}
	pipeline.Fallback = license.LLMStrategy{Completer: client}
	return pipeline, nil
}

// collectFiles expands directories into the source files they contain.
// Plain file arguments are kept as given.
func collectFiles(args []string, maxFileSize int64) ([]string, error) {
	search := pdf.NewSearch(maxFileSize)
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("file not found: %s", arg)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		found, err := search.SearchDirectory(pdf.SearchSourcesRequest{Directory: arg})
		if err != nil {
			return nil, err
		}
		files = append(files, lo.Map(found.Files, func(f pdf.FileInfo, _ int) string { return f.Path })...)
	}
	return lo.Uniq(files), nil
}

func extractFile(ctx context.Context, pipeline *license.Pipeline, reader *pdf.Reader, path string) *FileResult {
	start := time.Now()
	result := &FileResult{FilePath: path}
	if abs, err := filepath.Abs(path); err == nil {
		result.FilePath = abs
	}

	src, err := reader.ReadSource(path)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	outcome, err := pipeline.Run(ctx, src)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Success = true
	result.Data = outcome.Data
	result.Fields = outcome.Data.AsMap()
	result.Strategies = outcome.Strategies
	result.Missing = lo.Map(outcome.Data.Missing(license.CriticalFields...), func(f license.Field, _ int) string {
		return string(f)
	})
	result.ExtractionTime = time.Since(start).Round(time.Millisecond).String()
	return result
}

func writeResults(w io.Writer, results []*FileResult, format string) error {
	if format == "json" {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(results)
	}

	for i, result := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "=== %s ===\n", result.FilePath)
		if result.Error != "" {
			fmt.Fprintf(w, "Error: %s\n", result.Error)
			continue
		}
		fmt.Fprint(w, result.Data.String())
		if len(result.Missing) > 0 {
			fmt.Fprintf(w, "Missing: %v\n", result.Missing)
		}
		fmt.Fprintf(w, "Strategies: %v\n", result.Strategies)
	}
	return nil
}
