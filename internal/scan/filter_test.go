package scan_test

import (
	"os"
	"path/filepath"
	"testing"

	"filesentry/internal/scan"
)

func TestGlob_Match(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"*.log", "error.log", true},
		{"*.log", "logs/error.log", true}, // star crosses separators
		{"*.log", "error.log.1", false},
		{"*.LOG", "error.log", false}, // case-sensitive
		{"cache/*", "cache/page.html", true},
		{"cache/*", "site/cache/page.html", false},
		{"?.txt", "a.txt", true},
		{"?.txt", "ab.txt", false},
		{"node_modules", "vendor/node_modules", true}, // base name match
		{"*.min.*", "app.min.js", true},
	}
	for _, tt := range tests {
		g, err := scan.CompileGlob(tt.pattern)
		if err != nil {
			t.Fatalf("CompileGlob(%q) error = %v", tt.pattern, err)
		}
		if got := g.Match(tt.path); got != tt.want {
			t.Errorf("Glob(%q).Match(%q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
		}
	}
}

func TestFilter_Includes(t *testing.T) {
	text := scan.NewTextClassifier([]string{".txt"})
	f, errs := scan.NewFilter([]string{"php", ".txt"}, []string{"*.min.js", "cache/*"}, 100, text)
	if len(errs) != 0 {
		t.Fatalf("NewFilter() errors = %v", errs)
	}

	tests := []struct {
		path string
		size int64
		want bool
	}{
		{"index.php", 50, true},
		{"notes.txt", 50, true},
		{"image.png", 50, false},   // not in allowlist
		{"big.php", 101, false},    // over size ceiling
		{"app.min.js", 50, false},  // excluded
		{"cache/a.php", 50, false}, // excluded
		{"INDEX.PHP", 50, true},    // extension match is case-insensitive
	}
	for _, tt := range tests {
		if got := f.Includes(tt.path, tt.size); got != tt.want {
			t.Errorf("Includes(%q, %d) = %v, want %v", tt.path, tt.size, got, tt.want)
		}
	}
}

func TestFilter_EmptyAllowlistScansAll(t *testing.T) {
	f, _ := scan.NewFilter(nil, nil, 0, nil)
	for _, path := range []string{"a.php", "b.unknown", "no-extension"} {
		if !f.Includes(path, 10) {
			t.Errorf("Includes(%q) = false with empty allowlist, want true", path)
		}
	}
}

func TestTextClassifier(t *testing.T) {
	tc := scan.NewTextClassifier([]string{"php", ".txt", "JS"})
	tests := []struct {
		path string
		want bool
	}{
		{"index.php", true},
		{"readme.TXT", true},
		{"app.js", true},
		{"image.png", false},
		{"binary", false},
	}
	for _, tt := range tests {
		if got := tc.IsText(tt.path); got != tt.want {
			t.Errorf("IsText(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestFilter_BinarySniff(t *testing.T) {
	dir := t.TempDir()

	elf := filepath.Join(dir, "payload.php")
	if err := os.WriteFile(elf, append([]byte{0x7f, 'E', 'L', 'F'}, make([]byte, 64)...), 0o644); err != nil {
		t.Fatal(err)
	}
	plain := filepath.Join(dir, "index.php")
	if err := os.WriteFile(plain, []byte("<?php echo 1;\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	disguised := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(disguised, []byte{'M', 'Z', 0x90, 0x00}, 0o644); err != nil {
		t.Fatal(err)
	}

	text := scan.NewTextClassifier([]string{".txt"})
	f, _ := scan.NewFilter(nil, nil, 0, text)

	if !f.LooksBinaryExecutable(elf, "payload.php") {
		t.Error("ELF-magic file not flagged as binary")
	}
	if f.LooksBinaryExecutable(plain, "index.php") {
		t.Error("plain PHP source flagged as binary")
	}
	// Text-classified extensions bypass the sniff.
	if f.LooksBinaryExecutable(disguised, "notes.txt") {
		t.Error("text-allowlisted extension did not bypass the sniff")
	}
}
