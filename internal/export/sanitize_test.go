package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
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

func TestSanitizeName_AllowedChars(t *testing.T) {
	input := "Az09 -_.,()"
	got := SanitizeName(input, 100)
	if got != input {
		t.Fatalf("SanitizeName changed allowed chars: got %q want %q", got, input)
	}
}

func TestSanitizeName_ReplacesDisallowed(t *testing.T) {
	got := SanitizeName("bad<>|\"name", 100)
	if got != "bad____name" {
		t.Fatalf("SanitizeName disallowed replacement mismatch: got %q", got)
	}
}

func TestContentDisposition(t *testing.T) {
	got := ContentDisposition("export-1234.mp4")
	if got != `attachment; filename="export-1234.mp4"` {
		t.Fatalf("ContentDisposition() = %q", got)
	}
	if got := ContentDisposition("a\"b.mp4"); strings.Contains(got, `a"b`) {
		t.Fatalf("ContentDisposition() kept quote: %q", got)
	}
	if got := ContentDisposition("\x00"); got != `attachment; filename="export.mp4"` {
		t.Fatalf("ContentDisposition(empty) = %q", got)
	}
}

func TestValidateOutputPath_Valid(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out.mp4")
	if err := ValidateOutputPath(p); err != nil {
		t.Fatalf("ValidateOutputPath(%q) error = %v, want nil", p, err)
	}
}

func TestValidateOutputPath_NotExist(t *testing.T) {
	p := filepath.Join(t.TempDir(), "missing", "out.mp4")
	if err := ValidateOutputPath(p); err == nil {
		t.Fatalf("ValidateOutputPath(%q) expected error for missing directory", p)
	}
}

func TestValidateOutputPath_PathTraversal(t *testing.T) {
	p := "/tmp/../etc/out.mp4"
	if err := ValidateOutputPath(p); err == nil {
		t.Fatalf("ValidateOutputPath(%q) expected traversal error", p)
	}
}

func TestValidateOutputPath_WrongExtension(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out.mov")
	if err := ValidateOutputPath(p); err == nil {
		t.Fatalf("ValidateOutputPath(%q) expected extension error", p)
	}
}

func TestValidateOutputPath_ParentIsFile(t *testing.T) {
	tmp := t.TempDir()
	filePath := filepath.Join(tmp, "file.txt")
	if err := os.WriteFile(filePath, []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}

	p := filepath.Join(filePath, "out.mp4")
	if err := ValidateOutputPath(p); err == nil {
		t.Fatalf("ValidateOutputPath(%q) expected non-directory error", p)
	}
}
