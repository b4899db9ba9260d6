package scan

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Glob is a compiled exclude pattern. `*` matches any run of characters
// including path separators, `?` matches exactly one character. Matching is
// case-sensitive against the slash-separated relative path.
type Glob struct {
	pattern string
	re      *regexp.Regexp
}

// CompileGlob translates pattern into its matcher.
func CompileGlob(pattern string) (*Glob, error) {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("compiling exclude pattern %q: %w", pattern, err)
	}
	return &Glob{pattern: pattern, re: re}, nil
}

// Match reports whether the relative path matches the pattern, either as a
// whole or by its base name.
func (g *Glob) Match(relPath string) bool {
	if g.re.MatchString(relPath) {
		return true
	}
	return g.re.MatchString(filepath.Base(relPath))
}

func (g *Glob) String() string { return g.pattern }

// TextClassifier decides whether a path is treated as text for diffing.
// The extension set is closed at construction; no per-file content analysis
// happens on the diff path.
type TextClassifier struct {
	exts map[string]struct{}
}

// NewTextClassifier builds a classifier from a list of extensions
// (with or without a leading dot).
func NewTextClassifier(extensions []string) *TextClassifier {
	exts := make(map[string]struct{}, len(extensions))
	for _, e := range extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = struct{}{}
	}
	return &TextClassifier{exts: exts}
}

// IsText reports whether the path's extension is in the text set.
func (tc *TextClassifier) IsText(path string) bool {
	_, ok := tc.exts[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Filter applies the per-scan inclusion rules: extension allowlist, exclude
// globs, and the size ceiling. It is rebuilt from settings at the start of
// every scan so configuration changes take effect without restart.
type Filter struct {
	extensions map[string]struct{} // empty means all extensions
	excludes   []*Glob
	maxSize    int64
	text       *TextClassifier
}

// NewFilter compiles the filter. Invalid exclude patterns are returned so the
// caller can log and drop them; the filter is still usable.
func NewFilter(fileTypes, excludePatterns []string, maxSize int64, text *TextClassifier) (*Filter, []error) {
	f := &Filter{
		extensions: make(map[string]struct{}, len(fileTypes)),
		maxSize:    maxSize,
		text:       text,
	}
	for _, ft := range fileTypes {
		ft = strings.ToLower(strings.TrimSpace(ft))
		if ft == "" {
			continue
		}
		if !strings.HasPrefix(ft, ".") {
			ft = "." + ft
		}
		f.extensions[ft] = struct{}{}
	}

	var errs []error
	for _, p := range excludePatterns {
		g, err := CompileGlob(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		f.excludes = append(f.excludes, g)
	}
	return f, errs
}

// Includes reports whether a regular file at relPath with the given size
// passes the allowlist, the exclude globs, and the size ceiling.
func (f *Filter) Includes(relPath string, size int64) bool {
	if len(f.extensions) > 0 {
		if _, ok := f.extensions[strings.ToLower(filepath.Ext(relPath))]; !ok {
			return false
		}
	}
	for _, g := range f.excludes {
		if g.Match(relPath) {
			return false
		}
	}
	if f.maxSize > 0 && size > f.maxSize {
		return false
	}
	return true
}

// IsText reports whether relPath is text-classified.
func (f *Filter) IsText(relPath string) bool {
	return f.text != nil && f.text.IsText(relPath)
}

var (
	elfMagic = []byte{0x7f, 'E', 'L', 'F'}
	mzMagic  = []byte{'M', 'Z'}
)

// LooksBinaryExecutable sniffs the first bytes of a file for executable or
// opaque binary content. Text-classified extensions bypass the sniff so that
// tracked source and config files are never rejected by content shape.
// Unreadable files report false; the checksum stage owns read failures.
func (f *Filter) LooksBinaryExecutable(absPath, relPath string) bool {
	if f.IsText(relPath) {
		return false
	}

	fh, err := os.Open(absPath)
	if err != nil {
		return false
	}
	defer fh.Close()

	buf := make([]byte, 512)
	n, err := fh.Read(buf)
	if n <= 0 {
		return false
	}
	buf = buf[:n]

	if bytes.HasPrefix(buf, elfMagic) || bytes.HasPrefix(buf, mzMagic) {
		return true
	}
	return http.DetectContentType(buf) == "application/octet-stream"
}
