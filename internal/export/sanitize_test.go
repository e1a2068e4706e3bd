package export

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tbstudio/storyboard-agent/internal/storyboard"
)

func TestSanitizeName_ControlChars(t *testing.T) {
	got := SanitizeName(" A\nB\rC\tD\x00 ", 100)
	if strings.ContainsAny(got, "\n\r\t\x00") {
		t.Fatalf("sanitize output contains control chars: %q", got)
	}
	if got != "ABCD" {
		t.Fatalf("SanitizeName control char behavior mismatch, got %q", got)
	}
}

func TestSanitizeName_MaxLength(t *testing.T) {
	got := SanitizeName("abcdefghijklmnopqrstuvwxyz", 10)
	if len([]rune(got)) != 10 {
		t.Fatalf("expected length 10, got %d (%q)", len([]rune(got)), got)
	}
}

func TestSanitizeName_ReplacesDisallowed(t *testing.T) {
	got := SanitizeName("bad<>|\"name", 100)
	if got != "bad____name" {
		t.Fatalf("SanitizeName disallowed replacement mismatch: got %q", got)
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		want   string
	}{
		{"TB STORYBOARD", FormatPDF, "TB STORYBOARD.pdf"},
		{"스토리보드 v2", FormatJSON, "스토리보드 v2.json"},
		{"a/b:c", FormatEDL, "a_b_c.edl"},
		{"   ", FormatPDF, "storyboard.pdf"},
		{"..", FormatJSON, "storyboard.json"},
	}
	for _, tt := range tests {
		p := storyboard.SetName(storyboard.NewProject(0), tt.name)
		if got := FileName(p, tt.format); got != tt.want {
			t.Errorf("FileName(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	for _, in := range []string{"json", "PDF", " edl "} {
		if _, err := ParseFormat(in); err != nil {
			t.Errorf("ParseFormat(%q) error = %v", in, err)
		}
	}
	if _, err := ParseFormat("docx"); err == nil {
		t.Error("ParseFormat(docx) error = nil")
	}
}

func TestValidateOutputDir(t *testing.T) {
	dir := t.TempDir()
	if err := ValidateOutputDir(dir); err != nil {
		t.Fatalf("ValidateOutputDir(%q) error = %v, want nil", dir, err)
	}

	file := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	for _, bad := range []string{"", "relative/dir", filepath.Join(dir, "missing"), "/tmp/../etc", dir + "/", file} {
		if err := ValidateOutputDir(bad); !errors.Is(err, ErrInvalidOutputDir) {
			t.Errorf("ValidateOutputDir(%q) = %v, want ErrInvalidOutputDir", bad, err)
		}
	}
}
