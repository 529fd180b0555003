// Package ignore matches posix-relative file paths against glob-style
// ignore patterns, and scores paths by how likely they are to be
// noise (vendored, generated, or test code) for the search path's
// display-order tie-breaker.
package ignore

import (
	"path/filepath"
	"strings"
)

// Matcher holds a precompiled set of ignore patterns.
type Matcher struct {
	patterns []compiledPattern
}

type compiledPattern struct {
	raw    string
	prefix string // for "name/**" patterns: the bare directory name
}

// NewMatcher builds a Matcher from raw glob patterns, normalizing
// their separators up front so ShouldIgnore only has to normalize the
// path it is given.
func NewMatcher(patterns []string) *Matcher {
	compiled := make([]compiledPattern, 0, len(patterns))
	for _, p := range patterns {
		p = filepath.ToSlash(p)
		cp := compiledPattern{raw: p}
		if strings.HasSuffix(p, "/**") {
			cp.prefix = strings.TrimSuffix(p, "/**")
		}
		compiled = append(compiled, cp)
	}
	return &Matcher{patterns: compiled}
}

// ShouldIgnore reports whether path matches any configured pattern.
func (m *Matcher) ShouldIgnore(path string) bool {
	path = filepath.ToSlash(path)
	for _, p := range m.patterns {
		if matchOne(path, p) {
			return true
		}
	}
	return false
}

func matchOne(path string, p compiledPattern) bool {
	if p.prefix != "" {
		if path == p.prefix || strings.HasPrefix(path, p.prefix+"/") {
			return true
		}
	}

	if strings.Contains(p.raw, "**") {
		for _, part := range strings.Split(p.raw, "**") {
			part = strings.Trim(part, "/")
			if part == "" {
				continue
			}
			if strings.Contains(path, "/"+part+"/") || strings.HasPrefix(path, part+"/") || strings.HasSuffix(path, "/"+part) {
				return true
			}
		}
	}

	if matched, err := filepath.Match(p.raw, path); err == nil && matched {
		return true
	}
	if matched, err := filepath.Match(p.raw, filepath.Base(path)); err == nil && matched {
		return true
	}

	trimmed := strings.TrimSuffix(p.raw, "/**")
	for dir := filepath.Dir(path); dir != "." && dir != "/"; dir = filepath.Dir(dir) {
		if filepath.Base(dir) == trimmed {
			return true
		}
	}
	return false
}

// DefaultPatterns returns the toolkit's default ignore-pattern set,
// covering build output, dependency directories, generated bundles,
// version control, and editor metadata.
func DefaultPatterns() []string {
	return []string{
		"target/**",
		"build/**",
		"dist/**",
		"out/**",
		"node_modules/**",
		".pnp/**",
		"**/*.min.js",
		"**/*.bundle.js",
		".git/**",
		".idea/**",
		".vscode/**",
		"*.iml",
	}
}

var noiseSegments = []string{
	"vendor", "node_modules", "dist", "build", "generated", "__generated__",
	"test", "tests", "testdata", "__tests__", "fixtures", "mocks",
}

var signalSegments = []string{
	"internal", "pkg", "cmd", "src", "lib",
}

// PathScore reports a small signed adjustment used only to break ties
// between otherwise equally-ranked search results: negative for paths
// that look like vendored, generated, or test code, positive for paths
// under a project's primary source directories. It never changes which
// chunks clear the similarity cutoff, only their relative display order.
func PathScore(path string) int {
	path = filepath.ToSlash(strings.ToLower(path))
	segments := strings.Split(path, "/")

	score := 0
	for _, seg := range segments {
		for _, noisy := range noiseSegments {
			if seg == noisy {
				score--
			}
		}
		for _, signal := range signalSegments {
			if seg == signal {
				score++
			}
		}
	}
	return score
}
