package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hieutran512/ragkit/internal/models"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	chunks := map[string]models.Chunk{
		"a.md::0": {ID: "a.md::0", FilePath: "a.md", ModifiedAt: 100, Content: "hello", Embedding: []float32{1, 2, 3}},
	}
	fileStates := map[string]models.FileState{
		"a.md": {ModifiedAt: 100, Size: 5, ContentHash: "abc", ChunkIDs: []string{"a.md::0"}},
	}

	if err := Save(dir, "", chunks, fileStates, 12345); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := Load(dir, "")
	if len(loaded.Chunks) != 1 || loaded.Chunks["a.md::0"].Content != "hello" {
		t.Fatalf("unexpected chunks: %+v", loaded.Chunks)
	}
	if len(loaded.FileStates) != 1 || loaded.FileStates["a.md"].ContentHash != "abc" {
		t.Fatalf("unexpected file states: %+v", loaded.FileStates)
	}
	if loaded.LastIndexedAt != 12345 {
		t.Fatalf("expected LastIndexedAt 12345, got %d", loaded.LastIndexedAt)
	}
}

func TestLoadMissingIsEmpty(t *testing.T) {
	dir := t.TempDir()
	loaded := Load(dir, "")
	if len(loaded.Chunks) != 0 || len(loaded.FileStates) != 0 {
		t.Fatalf("expected empty load for missing dir, got %+v", loaded)
	}
}

func TestLoadCorruptIsEmpty(t *testing.T) {
	dir := t.TempDir()
	storeDir := Dir(dir, "")
	if err := os.MkdirAll(storeDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(storeDir, dbFile), []byte("{ broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(storeDir, idxFile), []byte("{ broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	loaded := Load(dir, "")
	if len(loaded.Chunks) != 0 || len(loaded.FileStates) != 0 {
		t.Fatalf("expected empty load for corrupt files, got %+v", loaded)
	}
}

func TestOutputFolderOverride(t *testing.T) {
	folderA := t.TempDir()
	folderB := t.TempDir()

	chunks := map[string]models.Chunk{
		"a.md::0": {ID: "a.md::0", FilePath: "a.md", Embedding: []float32{1}},
	}
	if err := Save(folderA, folderB, chunks, map[string]models.FileState{}, 1); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := os.Stat(Dir(folderA, "")); err == nil {
		t.Fatal("expected no .rag-ts under folderA")
	}
	if _, err := os.Stat(Dir(folderA, folderB)); err != nil {
		t.Fatalf("expected .rag-ts under folderB: %v", err)
	}

	loaded := Load(folderA, folderB)
	if len(loaded.Chunks) != 1 {
		t.Fatalf("expected 1 chunk loaded via override, got %d", len(loaded.Chunks))
	}
}

func TestSizeAndClear(t *testing.T) {
	dir := t.TempDir()
	if Size(dir, "") != 0 {
		t.Fatal("expected 0 size before save")
	}

	chunks := map[string]models.Chunk{"a::0": {ID: "a::0", Embedding: []float32{1}}}
	if err := Save(dir, "", chunks, map[string]models.FileState{}, 1); err != nil {
		t.Fatal(err)
	}
	if Size(dir, "") == 0 {
		t.Fatal("expected non-zero size after save")
	}

	if err := Clear(dir, ""); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := os.Stat(Dir(dir, "")); !os.IsNotExist(err) {
		t.Fatal("expected storage dir removed")
	}
	// Clearing again is still success.
	if err := Clear(dir, ""); err != nil {
		t.Fatalf("Clear on missing dir: %v", err)
	}
}
