package security

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewPathValidator(t *testing.T) {
	tests := []struct {
		name      string
		dir       string
		wantError bool
	}{
		{
			name:      "valid directory",
			dir:       t.TempDir(),
			wantError: false,
		},
		{
			name:      "empty directory",
			dir:       "",
			wantError: true,
		},
		{
			name:      "non-existent directory",
			dir:       "/non/existent/path",
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator, err := NewPathValidator(tt.dir)
			if tt.wantError {
				if err == nil {
					t.Error("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if validator == nil {
				t.Error("Expected validator but got nil")
			}
		})
	}
}

func TestPathValidator_ValidatePath(t *testing.T) {
	tempDir := t.TempDir()

	subDir := filepath.Join(tempDir, "licenses")
	if err := os.Mkdir(subDir, 0o755); err != nil {
		t.Fatalf("Failed to create subdirectory: %v", err)
	}

	validFile := filepath.Join(tempDir, "template.pdf")
	subFile := filepath.Join(subDir, "license.pdf")
	for _, f := range []string{validFile, subFile} {
		if err := os.WriteFile(f, []byte("test"), 0o644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
	}

	validator, err := NewPathValidator(tempDir)
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}

	tests := []struct {
		name      string
		path      string
		wantError bool
	}{
		{name: "empty path", path: "", wantError: true},
		{name: "file in root", path: validFile},
		{name: "file in subdirectory", path: subFile},
		{name: "directory itself", path: tempDir},
		{name: "file not created yet", path: filepath.Join(subDir, "new", "out.pdf")},
		{name: "file outside directory", path: "/etc/passwd", wantError: true},
		{name: "parent directory traversal", path: filepath.Join(tempDir, "..", "outside.pdf"), wantError: true},
		{name: "sibling with shared prefix", path: tempDir + "-other/x.pdf", wantError: true},
		{name: "null byte", path: validFile + "\x00.txt", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidatePath(tt.path)
			if tt.wantError && err == nil {
				t.Errorf("Expected error for path %q", tt.path)
			}
			if !tt.wantError && err != nil {
				t.Errorf("Unexpected error for path %q: %v", tt.path, err)
			}
		})
	}
}

func TestPathValidator_SymlinkEscape(t *testing.T) {
	tempDir := t.TempDir()
	outside := t.TempDir()

	target := filepath.Join(outside, "secret.pdf")
	if err := os.WriteFile(target, []byte("test"), 0o644); err != nil {
		t.Fatalf("Failed to create target: %v", err)
	}
	link := filepath.Join(tempDir, "link.pdf")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	validator, err := NewPathValidator(tempDir)
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}

	if err := validator.ValidatePath(link); err == nil {
		t.Error("Expected symlink pointing outside the directory to be rejected")
	}
}

func TestPathValidator_NormalizePath(t *testing.T) {
	tempDir := t.TempDir()
	validator, err := NewPathValidator(tempDir)
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}

	got, err := validator.NormalizePath("template.pdf")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	want, _ := filepath.Abs(filepath.Join(tempDir, "template.pdf"))
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}

	if _, err := validator.NormalizePath("../escape.pdf"); err == nil {
		t.Error("Expected error for relative traversal")
	}

	if validator.GetConfiguredDirectory() != tempDir {
		t.Errorf("Expected configured directory %q, got %q", tempDir, validator.GetConfiguredDirectory())
	}
}
