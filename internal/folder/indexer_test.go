package folder

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/hieutran512/ragkit/internal/ann"
	"github.com/hieutran512/ragkit/internal/chunk"
	"github.com/hieutran512/ragkit/internal/models"
	"github.com/hieutran512/ragkit/internal/storage"
)

// fakeProvider embeds deterministically: the vector counts occurrences
// of a few marker words plus a length term, so related texts score
// close in cosine space without any model behind them.
type fakeProvider struct {
	mu    sync.Mutex
	calls int
	hook  func(call int) error
}

func (p *fakeProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	p.calls++
	call := p.calls
	hook := p.hook
	p.mu.Unlock()

	if hook != nil {
		if err := hook(call); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = markerEmbedding(text)
	}
	return out, nil
}

func markerEmbedding(text string) []float32 {
	lower := strings.ToLower(text)
	return []float32{
		float32(strings.Count(lower, "alpha")),
		float32(strings.Count(lower, "beta")),
		float32(strings.Count(lower, "gamma")),
		float32(len(text)) / 100,
	}
}

func newTestManager(provider *fakeProvider) *Manager {
	text := chunk.NewTextChunker(chunk.DefaultChunkSize, chunk.DefaultChunkOverlap)
	code := chunk.NewCodeChunker(text, nil)
	return NewManager(provider, text, code, ann.DefaultParams())
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func (m *Manager) revisionOf(folderPath string) int {
	c := m.getOrCreate(NormalizeFolderPath(folderPath))
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.indexRevision
}

func TestIndexIncrementalNoOp(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "docs", "a.md"), "alpha content and context")

	m := newTestManager(&fakeProvider{})
	status, err := m.Index(context.Background(), dir, IndexOptions{})
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if status.Phase != models.PhaseReady {
		t.Fatalf("phase = %s, want ready", status.Phase)
	}
	if status.TotalFiles != 1 || status.TotalChunks < 1 {
		t.Fatalf("totalFiles=%d totalChunks=%d, want 1 and >=1", status.TotalFiles, status.TotalChunks)
	}

	rev := m.revisionOf(dir)
	dbPath := filepath.Join(storage.Dir(dir, ""), ".rag-db")
	before, err := os.Stat(dbPath)
	if err != nil {
		t.Fatalf("stat .rag-db: %v", err)
	}

	// Rewrite the same bytes; metadata changes but content hash matches.
	writeFile(t, filepath.Join(dir, "docs", "a.md"), "alpha content and context")

	status, err = m.Index(context.Background(), dir, IndexOptions{})
	if err != nil {
		t.Fatalf("reindex: %v", err)
	}
	if status.SkippedUnchanged < 1 {
		t.Fatalf("skippedUnchanged = %d, want >= 1", status.SkippedUnchanged)
	}
	if got := m.revisionOf(dir); got != rev {
		t.Fatalf("indexRevision advanced on no-op reindex: %d -> %d", rev, got)
	}

	after, err := os.Stat(dbPath)
	if err != nil {
		t.Fatalf("stat .rag-db after: %v", err)
	}
	if after.Size() != before.Size() || !after.ModTime().Equal(before.ModTime()) {
		t.Fatal("expected .rag-db untouched by no-op reindex")
	}
}

func TestIndexEmptyFolder(t *testing.T) {
	dir := t.TempDir()

	m := newTestManager(&fakeProvider{})
	status, err := m.Index(context.Background(), dir, IndexOptions{})
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if status.Phase != models.PhaseReady || status.TotalFiles != 0 || status.TotalChunks != 0 {
		t.Fatalf("unexpected status for empty folder: %+v", status)
	}
}

func TestIndexDeletionDropsChunks(t *testing.T) {
	dir := t.TempDir()
	keep := filepath.Join(dir, "keep.md")
	gone := filepath.Join(dir, "gone.md")
	writeFile(t, keep, "alpha stays here")
	writeFile(t, gone, "beta leaves soon")

	m := newTestManager(&fakeProvider{})
	if _, err := m.Index(context.Background(), dir, IndexOptions{}); err != nil {
		t.Fatalf("Index: %v", err)
	}
	rev := m.revisionOf(dir)

	if err := os.Remove(gone); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Index(context.Background(), dir, IndexOptions{}); err != nil {
		t.Fatalf("reindex: %v", err)
	}
	if got := m.revisionOf(dir); got <= rev {
		t.Fatalf("indexRevision did not advance after deletion: %d -> %d", rev, got)
	}

	c := m.getOrCreate(NormalizeFolderPath(dir))
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.chunks {
		if ch.FilePath == "gone.md" {
			t.Fatalf("chunk %s for deleted file still present", id)
		}
	}
	if _, ok := c.fileStates["gone.md"]; ok {
		t.Fatal("file state for deleted file still present")
	}
	for relPath, fs := range c.fileStates {
		for _, id := range fs.ChunkIDs {
			if _, ok := c.chunks[id]; !ok {
				t.Fatalf("file %s references missing chunk %s", relPath, id)
			}
		}
	}
}

func TestIndexCancellation(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		writeFile(t, filepath.Join(dir, name+".md"), "alpha document "+name)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider := &fakeProvider{}
	provider.hook = func(call int) error {
		if call >= 2 {
			cancel()
		}
		return nil
	}

	m := newTestManager(provider)
	status, err := m.Index(ctx, dir, IndexOptions{Concurrency: 1, EmbedBatchSize: 1})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if status.Phase != models.PhaseIdle {
		t.Fatalf("phase = %s, want idle", status.Phase)
	}
	if !strings.Contains(status.Message, "cancelled") {
		t.Fatalf("message = %q, want substring 'cancelled'", status.Message)
	}
	if _, err := os.Stat(storage.Dir(dir, "")); !os.IsNotExist(err) {
		t.Fatal("expected no .rag-ts directory after cancelled first index")
	}
}

func TestIndexErrorFromProvider(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "alpha text")

	provider := &fakeProvider{}
	provider.hook = func(call int) error { return os.ErrPermission }

	m := newTestManager(provider)
	status, err := m.Index(context.Background(), dir, IndexOptions{})
	if err == nil {
		t.Fatal("expected provider error")
	}
	if status.Phase != models.PhaseError {
		t.Fatalf("phase = %s, want error", status.Phase)
	}
	if status.Message == "" {
		t.Fatal("expected non-empty error message")
	}
	if _, err := os.Stat(storage.Dir(dir, "")); !os.IsNotExist(err) {
		t.Fatal("expected no partial persistence after failed index")
	}
}

func TestIndexConcurrentCallersShareRun(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "alpha text body")

	release := make(chan struct{})
	provider := &fakeProvider{}
	provider.hook = func(call int) error {
		<-release
		return nil
	}

	m := newTestManager(provider)

	var wg sync.WaitGroup
	statuses := make([]models.Status, 2)
	for i := 0; i < 2; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := m.Index(context.Background(), dir, IndexOptions{})
			if err != nil {
				t.Errorf("Index %d: %v", i, err)
			}
			statuses[i] = s
		}()
	}

	close(release)
	wg.Wait()

	provider.mu.Lock()
	calls := provider.calls
	provider.mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected a single shared embedding run, provider called %d times", calls)
	}
	if statuses[0].TotalChunks != statuses[1].TotalChunks {
		t.Fatalf("concurrent callers observed different results: %+v vs %+v", statuses[0], statuses[1])
	}
}

func TestIndexOutputFolderRedirection(t *testing.T) {
	folderA := t.TempDir()
	folderB := t.TempDir()
	writeFile(t, filepath.Join(folderA, "a.md"), "alpha knowledge base")

	m := newTestManager(&fakeProvider{})
	if _, err := m.Index(context.Background(), folderA, IndexOptions{OutputFolder: folderB}); err != nil {
		t.Fatalf("Index: %v", err)
	}

	if _, err := os.Stat(storage.Dir(folderA, "")); !os.IsNotExist(err) {
		t.Fatal("expected no .rag-ts under folderA")
	}
	if _, err := os.Stat(storage.Dir(folderA, folderB)); err != nil {
		t.Fatalf("expected .rag-ts under folderB: %v", err)
	}

	// A fresh process (fresh Manager) must find the chunks through the
	// same override, and nothing without it.
	m2 := newTestManager(&fakeProvider{})
	withOverride, err := m2.Search(context.Background(), folderA, "alpha", SearchOptions{TopK: 1, OutputFolder: folderB})
	if err != nil {
		t.Fatalf("Search with override: %v", err)
	}
	if len(withOverride.Matches) != 1 {
		t.Fatalf("expected 1 match via override, got %d", len(withOverride.Matches))
	}

	m3 := newTestManager(&fakeProvider{})
	without, err := m3.Search(context.Background(), folderA, "alpha", SearchOptions{TopK: 1})
	if err != nil {
		t.Fatalf("Search without override: %v", err)
	}
	if len(without.Matches) != 0 {
		t.Fatalf("expected no matches without override, got %d", len(without.Matches))
	}
}

func TestIndexRecoversFromCorruptPersistence(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "alpha rebuilt cleanly")

	storeDir := storage.Dir(dir, "")
	if err := os.MkdirAll(storeDir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(storeDir, ".rag-db"), "{ broken")
	writeFile(t, filepath.Join(storeDir, ".rag-index"), "{ broken")

	m := newTestManager(&fakeProvider{})
	status, err := m.Index(context.Background(), dir, IndexOptions{})
	if err != nil {
		t.Fatalf("Index over corrupt store: %v", err)
	}
	if status.Phase != models.PhaseReady || status.TotalChunks < 1 {
		t.Fatalf("expected clean rebuild, got %+v", status)
	}

	loaded := storage.Load(dir, "")
	if len(loaded.Chunks) < 1 {
		t.Fatal("expected rebuilt persistence to be readable")
	}
}

func TestClearFolderRemovesStateAndDisk(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "alpha before clear")

	m := newTestManager(&fakeProvider{})
	if _, err := m.Index(context.Background(), dir, IndexOptions{}); err != nil {
		t.Fatalf("Index: %v", err)
	}
	if err := m.ClearFolder(dir, ""); err != nil {
		t.Fatalf("ClearFolder: %v", err)
	}
	if _, err := os.Stat(storage.Dir(dir, "")); !os.IsNotExist(err) {
		t.Fatal("expected storage directory removed")
	}
	if m.CachedFolders() != 0 {
		t.Fatalf("expected no cached folders, got %d", m.CachedFolders())
	}
}

func TestNormalizeFolderPath(t *testing.T) {
	cases := []struct{ in, want string }{
		{`C:\work\repo\`, "C:/work/repo"},
		{"/home/user/project/", "/home/user/project"},
		{"/home/user/project", "/home/user/project"},
		{"/", "/"},
	}
	for _, tc := range cases {
		if got := NormalizeFolderPath(tc.in); got != tc.want {
			t.Errorf("NormalizeFolderPath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
