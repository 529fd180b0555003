package chunk

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Profile describes what a given language offers the chunkers: whether
// an AST symbol extractor is available, and if not, the boundary
// patterns the token-aware fallback uses to avoid splitting mid-
// declaration.
type Profile struct {
	Name          string
	HasAST        bool
	BoundaryRegex []*regexp.Regexp
}

var extToLanguage = map[string]string{
	".java":  "java",
	".js":    "javascript",
	".jsx":   "javascript",
	".mjs":   "javascript",
	".cjs":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".go":    "go",
	".py":    "python",
	".rs":    "rust",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".cc":    "cpp",
	".hpp":   "cpp",
}

var astLanguages = map[string]bool{
	"java":       true,
	"javascript": true,
	"typescript": true,
}

var boundaryPatterns = map[string][]string{
	"go": {
		`^\s*func\s+\w+`,
		`^\s*func\s+\([^)]+\)\s+\w+`,
		`^\s*type\s+\w+\s+(struct|interface)`,
		`^\s*(const|var)\s+\w+`,
	},
	"python": {
		`^\s*def\s+\w+`,
		`^\s*class\s+\w+`,
		`^\s*async\s+def\s+\w+`,
		`^\s*@\w+`,
	},
	"rust": {
		`^\s*(pub\s+)?fn\s+\w+`,
		`^\s*(pub\s+)?struct\s+\w+`,
		`^\s*(pub\s+)?enum\s+\w+`,
		`^\s*(pub\s+)?trait\s+\w+`,
		`^\s*(pub\s+)?impl\s+`,
	},
	"c": {
		`^\s*\w+\s+\w+\s*\([^)]*\)\s*\{?`,
		`^\s*struct\s+\w+`,
		`^\s*typedef\s+`,
	},
	"cpp": {
		`^\s*\w+\s+\w+::\w+\s*\([^)]*\)`,
		`^\s*class\s+\w+`,
		`^\s*struct\s+\w+`,
		`^\s*namespace\s+\w+`,
		`^\s*template\s*<`,
	},
}

var compiledBoundaries = compileBoundaries()

func compileBoundaries() map[string][]*regexp.Regexp {
	out := make(map[string][]*regexp.Regexp, len(boundaryPatterns))
	for lang, patterns := range boundaryPatterns {
		compiled := make([]*regexp.Regexp, 0, len(patterns))
		for _, p := range patterns {
			if re, err := regexp.Compile(p); err == nil {
				compiled = append(compiled, re)
			}
		}
		out[lang] = compiled
	}
	return out
}

// DetectProfile returns the language profile for a file path's
// extension, or ok == false if the extension is unrecognized.
func DetectProfile(path string) (Profile, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return Profile{}, false
	}
	name, ok := extToLanguage[ext]
	if !ok {
		return Profile{}, false
	}
	return Profile{
		Name:          name,
		HasAST:        astLanguages[name],
		BoundaryRegex: compiledBoundaries[name],
	}, true
}

// IsBoundary reports whether line looks like the start of a top-level
// declaration in profile's language, used by the token-aware fallback
// to avoid splitting mid-declaration when no AST extractor exists.
func (p Profile) IsBoundary(line string) bool {
	trimmed := strings.TrimSpace(line)
	for _, re := range p.BoundaryRegex {
		if re.MatchString(trimmed) {
			return true
		}
	}
	return false
}
