package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// SanitizeName keeps letters, digits and a few separators, replacing
// everything else with '_'.
func SanitizeName(s string, maxLen int) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		if isAllowedNameRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}

	cleaned := strings.TrimSpace(b.String())
	if maxLen > 0 {
		runes := []rune(cleaned)
		if len(runes) > maxLen {
			cleaned = string(runes[:maxLen])
		}
	}
	return cleaned
}

func isAllowedNameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case ' ', '-', '_', '.', ',', '(', ')':
		return true
	default:
		return false
	}
}

// ContentDisposition returns an attachment header value for filename.
func ContentDisposition(filename string) string {
	name := SanitizeName(filename, 128)
	if name == "" {
		name = "export.mp4"
	}
	return fmt.Sprintf("attachment; filename=%q", name)
}

// ValidateOutputPath checks a file path chosen for a finished export: it must
// be an .mp4 in an existing directory and must not traverse upwards.
func ValidateOutputPath(p string) error {
	if strings.TrimSpace(p) == "" {
		return fmt.Errorf("output path is required")
	}

	for _, part := range strings.Split(filepath.ToSlash(p), "/") {
		if part == ".." {
			return fmt.Errorf("output path cannot contain path traversal")
		}
	}

	if !strings.EqualFold(filepath.Ext(p), ".mp4") {
		return fmt.Errorf("output path must end in .mp4")
	}

	dir := filepath.Dir(p)
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("output directory does not exist")
		}
		return fmt.Errorf("invalid output directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("output directory is not a directory")
	}

	if info, err := os.Stat(p); err == nil && info.IsDir() {
		return fmt.Errorf("output path is a directory")
	}
	return nil
}
