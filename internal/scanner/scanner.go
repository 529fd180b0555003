// Package scanner walks a folder tree and produces the candidate file
// list the indexer diffs against its persisted FileState: a filtered
// directory walk honoring include-extension and exclude-folder rules,
// with no chunking or hashing of its own.
package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultMaxFileBytes is the size above which a candidate file is
// skipped outright (1 MiB).
const DefaultMaxFileBytes = 1048576

// skipFiles are always excluded regardless of extension, mirroring
// paths a repository's own tooling writes and that carry no useful
// text to index.
var skipFiles = map[string]bool{
	".DS_Store":         true,
	"Thumbs.db":         true,
	"package-lock.json": true,
	"yarn.lock":         true,
}

// Candidate is one file eligible for indexing, as seen by the walk.
type Candidate struct {
	RelativePath string // posix-relative to the scanned folder
	FullPath     string
	ModifiedAt   int64 // milliseconds since epoch
	Size         int64
}

// Options configures one scan.
type Options struct {
	IncludeExtensions []string // lowercase, with leading dot, e.g. ".go"
	ExcludeFolders    []string // directory names, matched exactly
	MaxFileSize       int64    // bytes; DefaultMaxFileBytes if <= 0
}

// Scan walks folderPath and returns every file passing the include/
// exclude/size filters. An error accessing any single entry aborts the
// whole scan, since a partial candidate list would make drift detection
// unreliable.
func Scan(folderPath string, opts Options) ([]Candidate, error) {
	info, err := os.Stat(folderPath)
	if err != nil {
		return nil, fmt.Errorf("stat folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", folderPath)
	}

	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileBytes
	}

	include := make(map[string]bool, len(opts.IncludeExtensions))
	for _, ext := range opts.IncludeExtensions {
		include[strings.ToLower(ext)] = true
	}
	exclude := make(map[string]bool, len(opts.ExcludeFolders))
	for _, name := range opts.ExcludeFolders {
		exclude[name] = true
	}

	var out []Candidate
	walkErr := filepath.WalkDir(folderPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk %s: %w", path, err)
		}

		if d.IsDir() {
			if path == folderPath {
				return nil
			}
			if exclude[d.Name()] {
				return fs.SkipDir
			}
			return nil
		}

		if skipFiles[d.Name()] {
			return nil
		}
		if len(include) > 0 && !include[strings.ToLower(filepath.Ext(d.Name()))] {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		if fi.Size() > maxSize {
			return nil
		}

		rel, err := filepath.Rel(folderPath, path)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", path, err)
		}

		out = append(out, Candidate{
			RelativePath: filepath.ToSlash(rel),
			FullPath:     path,
			ModifiedAt:   fi.ModTime().UnixMilli(),
			Size:         fi.Size(),
		})
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	return out, nil
}
