// Package security implements the file-access policy that decides which
// paths are sensitive. Sensitive files are never read, cached, or diffed.
package security

import (
	"fmt"

	"filesentry/internal/scan"
)

// PatternPolicy refuses access to paths matching any configured pattern.
// Patterns use the scan glob syntax and match the relative path or its
// base name.
type PatternPolicy struct {
	patterns []*scan.Glob
}

// NewPatternPolicy compiles the sensitive-path patterns.
func NewPatternPolicy(patterns []string) (*PatternPolicy, error) {
	p := &PatternPolicy{}
	for _, pattern := range patterns {
		g, err := scan.CompileGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("compiling sensitive pattern %q: %w", pattern, err)
		}
		p.patterns = append(p.patterns, g)
	}
	return p, nil
}

// IsFileAccessible reports whether content of path may be exposed. The
// reason is suitable for inclusion in a redaction notice; it names the
// matching pattern, never the content.
func (p *PatternPolicy) IsFileAccessible(path string) (bool, string) {
	for _, g := range p.patterns {
		if g.Match(path) {
			return false, fmt.Sprintf("path matches sensitive pattern %q", g)
		}
	}
	return true, ""
}

var _ scan.AccessPolicy = (*PatternPolicy)(nil)
