package pdf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	docerrors "github.com/bonbonpfw/constractbuild/internal/errors"
	"github.com/bonbonpfw/constractbuild/internal/pdf/pdftest"
)

func TestValidator_ValidateSource(t *testing.T) {
	dir := t.TempDir()
	validator := NewValidator(1024 * 1024)

	valid := writePDF(t, dir, "template.pdf", pdftest.Letter, pdftest.A4)

	empty := filepath.Join(dir, "empty.pdf")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))

	wrongExt := filepath.Join(dir, "template.txt")
	require.NoError(t, os.WriteFile(wrongExt, pdftest.Build(), 0o644))

	corrupt := filepath.Join(dir, "corrupt.pdf")
	require.NoError(t, os.WriteFile(corrupt, []byte("this is not a pdf"), 0o644))

	tests := []struct {
		name      string
		path      string
		wantValid bool
		wantPages int
		wantMsg   string
	}{
		{name: "valid template", path: valid, wantValid: true, wantPages: 2},
		{name: "empty path", path: "", wantMsg: "cannot be empty"},
		{name: "missing file", path: filepath.Join(dir, "missing.pdf"), wantMsg: "does not exist"},
		{name: "directory", path: dir, wantMsg: "directory"},
		{name: "empty file", path: empty, wantMsg: "empty"},
		{name: "wrong extension", path: wrongExt, wantMsg: "not a PDF"},
		{name: "corrupt file", path: corrupt, wantMsg: "invalid PDF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := validator.ValidateSource(ValidateSourceRequest{Path: tt.path})
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, result.Valid)
			assert.Equal(t, tt.wantPages, result.Pages)
			if tt.wantMsg != "" {
				assert.Contains(t, result.Message, tt.wantMsg)
			}
		})
	}
}

func TestValidator_Check(t *testing.T) {
	dir := t.TempDir()
	validator := NewValidator(1024 * 1024)

	assert.NoError(t, validator.Check(writePDF(t, dir, "ok.pdf", pdftest.Letter)))

	err := validator.Check(filepath.Join(dir, "missing.pdf"))
	require.Error(t, err)
	assert.ErrorIs(t, err, docerrors.ErrSourceDocument)
}

func TestValidator_FileTooLarge(t *testing.T) {
	dir := t.TempDir()
	path := writePDF(t, dir, "big.pdf", pdftest.Letter)

	result, err := NewValidator(10).ValidateSource(ValidateSourceRequest{Path: path})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Message, "too large")
}
