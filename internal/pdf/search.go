package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
)

// SourceExtensions lists the file types a license can be read from
var SourceExtensions = []string{".pdf", ".txt", ".png", ".jpg", ".jpeg", ".gif", ".webp"}

// Search discovers license and template files
type Search struct {
	maxFileSize int64
}

// NewSearch creates a new search handler with the specified constraints
func NewSearch(maxFileSize int64) *Search {
	return &Search{
		maxFileSize: maxFileSize,
	}
}

// SearchDirectory walks a directory for readable source files. Oversized and
// empty files are skipped.
func (s *Search) SearchDirectory(req SearchSourcesRequest) (*SearchSourcesResult, error) {
	if req.Directory == "" {
		return nil, fmt.Errorf("directory cannot be empty")
	}

	if _, err := os.Stat(req.Directory); os.IsNotExist(err) {
		return nil, fmt.Errorf("directory does not exist: %s", req.Directory)
	}

	absDirectory, err := filepath.Abs(req.Directory)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory path: %w", err)
	}

	query := strings.ToLower(strings.TrimSpace(req.Query))
	files := make([]FileInfo, 0)

	err = filepath.Walk(absDirectory, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil //nolint:nilerr // Intentionally continue on file errors
		}

		// Symlinked entries are not followed out of the directory
		if info.Mode()&os.ModeSymlink != 0 {
			return nil
		}

		if info.IsDir() {
			return nil
		}

		if !IsSourceFile(info.Name()) {
			return nil
		}

		if info.Size() == 0 || info.Size() > s.maxFileSize {
			return nil
		}

		if query != "" && !strings.Contains(strings.ToLower(info.Name()), query) {
			return nil
		}

		files = append(files, FileInfo{
			Path:         path,
			Name:         info.Name(),
			Size:         info.Size(),
			ModifiedTime: info.ModTime().Format(time.RFC3339),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search directory: %w", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	return &SearchSourcesResult{
		Files:       files,
		TotalCount:  len(files),
		Directory:   req.Directory,
		SearchQuery: req.Query,
	}, nil
}

// IsSourceFile reports whether a file name has a readable license extension
func IsSourceFile(name string) bool {
	return lo.Contains(SourceExtensions, strings.ToLower(filepath.Ext(name)))
}
