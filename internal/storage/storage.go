// Package storage persists and loads a folder's chunk and file-state
// maps to/from the on-disk ".rag-ts" directory, as two versioned JSON
// files. The loader is tolerant: missing or corrupt files collapse to
// an empty result rather than propagating a failure, so a cold or
// damaged cache simply triggers a full reindex.
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/hieutran512/ragkit/internal/models"
)

const (
	dirName = ".rag-ts"
	dbFile  = ".rag-db"
	idxFile = ".rag-index"

	schemaVersion = 1
)

// dbDocument is the on-disk shape of .rag-db.
type dbDocument struct {
	Version int            `json:"version"`
	Chunks  []models.Chunk `json:"chunks"`
}

// indexDocument is the on-disk shape of .rag-index.
type indexDocument struct {
	Version   int                         `json:"version"`
	UpdatedAt int64                       `json:"updatedAt"`
	Files     map[string]models.FileState `json:"files"`
}

// Dir returns the storage directory for a folder, honoring storagePath
// as an override when non-empty.
func Dir(folderPath, storagePath string) string {
	base := folderPath
	if storagePath != "" {
		base = storagePath
	}
	return filepath.Join(base, dirName)
}

// Loaded is the result of reading persisted state back from disk.
type Loaded struct {
	Chunks        map[string]models.Chunk
	FileStates    map[string]models.FileState
	LastIndexedAt int64 // 0 if absent/not finite
}

// Load reads both persisted files best-effort. A missing or unreadable
// file, or one that fails to parse, or one whose version doesn't match
// schemaVersion, yields an empty map for that file rather than an
// error - corrupt persisted data is recovered silently, per the error
// taxonomy.
func Load(folderPath, storagePath string) Loaded {
	dir := Dir(folderPath, storagePath)

	out := Loaded{
		Chunks:     make(map[string]models.Chunk),
		FileStates: make(map[string]models.FileState),
	}

	if doc, ok := readDB(filepath.Join(dir, dbFile)); ok {
		for _, c := range doc.Chunks {
			if !validChunk(c) {
				continue
			}
			out.Chunks[c.ID] = c
		}
	}

	if doc, ok := readIndex(filepath.Join(dir, idxFile)); ok {
		for path, fs := range doc.Files {
			if !validFileState(fs) {
				continue
			}
			out.FileStates[path] = fs
		}
		if doc.UpdatedAt > 0 {
			out.LastIndexedAt = doc.UpdatedAt
		}
	}

	return out
}

func readDB(path string) (dbDocument, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return dbDocument{}, false
	}
	var doc dbDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return dbDocument{}, false
	}
	if doc.Version != schemaVersion {
		return dbDocument{}, false
	}
	return doc, true
}

func readIndex(path string) (indexDocument, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return indexDocument{}, false
	}
	var doc indexDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return indexDocument{}, false
	}
	if doc.Version != schemaVersion {
		return indexDocument{}, false
	}
	return doc, true
}

func validChunk(c models.Chunk) bool {
	if c.ID == "" {
		return false
	}
	if c.Embedding == nil {
		return false
	}
	return true
}

func validFileState(fs models.FileState) bool {
	if fs.ChunkIDs == nil {
		return false
	}
	return true
}

// Save writes both files under the storage directory, creating it if
// needed. Both writes must succeed before the call returns; contents
// fully replace any prior contents. updatedAt is recorded in the index
// file so a subsequent Load can recover LastIndexedAt.
func Save(folderPath, storagePath string, chunks map[string]models.Chunk, fileStates map[string]models.FileState, updatedAt int64) error {
	dir := Dir(folderPath, storagePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	chunkList := make([]models.Chunk, 0, len(chunks))
	for _, c := range chunks {
		chunkList = append(chunkList, c)
	}
	dbDoc := dbDocument{Version: schemaVersion, Chunks: chunkList}
	dbBytes, err := json.Marshal(dbDoc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, dbFile), dbBytes, 0o644); err != nil {
		return err
	}

	idxDoc := indexDocument{Version: schemaVersion, UpdatedAt: updatedAt, Files: fileStates}
	idxBytes, err := json.Marshal(idxDoc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, idxFile), idxBytes, 0o644); err != nil {
		return err
	}

	return nil
}

// Size returns the size in bytes of the persisted .rag-db file, or 0
// if it doesn't exist.
func Size(folderPath, storagePath string) int64 {
	info, err := os.Stat(filepath.Join(Dir(folderPath, storagePath), dbFile))
	if err != nil {
		return 0
	}
	return info.Size()
}

// Clear recursively removes the storage directory. Missing is success.
func Clear(folderPath, storagePath string) error {
	return os.RemoveAll(Dir(folderPath, storagePath))
}
