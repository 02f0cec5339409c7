package pdf

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"

	"github.com/bonbonpfw/constractbuild/internal/license"
)

// Reader loads license files into extraction sources
type Reader struct {
	maxFileSize int64
	maxTextSize int
}

// NewReader creates a new license reader with the specified constraints
func NewReader(maxFileSize int64) *Reader {
	return &Reader{
		maxFileSize: maxFileSize,
		maxTextSize: 1024 * 1024, // 1MB text limit
	}
}

// ReadSource loads a license file. PDFs contribute their text layer, plain
// text files their content; images carry only the raw bytes. A PDF without a
// text layer is not an error: the bytes are kept for a model to read.
func (r *Reader) ReadSource(path string) (license.Source, error) {
	src := license.Source{Name: filepath.Base(path)}

	if path == "" {
		return src, fmt.Errorf("path cannot be empty")
	}

	fileInfo, err := os.Stat(path)
	if os.IsNotExist(err) {
		return src, fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return src, fmt.Errorf("cannot access file: %w", err)
	}
	if fileInfo.IsDir() {
		return src, fmt.Errorf("path is a directory, not a file: %s", path)
	}
	if fileInfo.Size() > r.maxFileSize {
		return src, fmt.Errorf("file too large: %d bytes (max: %d bytes)",
			fileInfo.Size(), r.maxFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return src, fmt.Errorf("failed to read file: %w", err)
	}
	src.Data = data

	mt := mimetype.Detect(data)
	switch {
	case mt.Is("application/pdf"):
		if text, err := r.ReadText(data); err == nil {
			src.Text = text
		}
	case isText(mt):
		src.Text = r.truncate(string(data))
	}

	return src, nil
}

// ReadText extracts the text layer of an in-memory PDF, one page after another
func (r *Reader) ReadText(data []byte) (text string, err error) {
	defer func() {
		// The parser panics on some malformed streams
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("failed to parse PDF: %v", rec)
		}
	}()

	pdfReader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	return r.extractTextContent(pdfReader)
}

// extractTextContent extracts text content from a PDF reader
func (r *Reader) extractTextContent(pdfReader *pdf.Reader) (string, error) {
	var builder strings.Builder

	for pageNum := 1; pageNum <= pdfReader.NumPage(); pageNum++ {
		page := pdfReader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			// Continue with other pages even if one fails
			continue
		}

		if builder.Len() > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(content)

		if builder.Len() >= r.maxTextSize {
			break
		}
	}

	text := strings.TrimSpace(builder.String())
	if text == "" {
		return "", fmt.Errorf("no text content could be extracted from PDF")
	}

	return r.truncate(text), nil
}

func (r *Reader) truncate(s string) string {
	if len(s) <= r.maxTextSize {
		return s
	}
	s = s[:r.maxTextSize]
	// drop a partial trailing rune
	return strings.ToValidUTF8(s, "")
}

func isText(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}
