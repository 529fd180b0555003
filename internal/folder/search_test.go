package folder

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestSearchEndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "docs", "alpha.md"), "alpha system architecture")
	writeFile(t, filepath.Join(dir, "docs", "beta.md"), "beta deployment notes")

	m := newTestManager(&fakeProvider{})
	if _, err := m.Index(context.Background(), dir, IndexOptions{}); err != nil {
		t.Fatalf("Index: %v", err)
	}

	result, err := m.Search(context.Background(), dir, "alpha", SearchOptions{TopK: 1})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.Matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(result.Matches))
	}
	if result.Matches[0].FilePath != "docs/alpha.md" {
		t.Fatalf("top match = %s, want docs/alpha.md", result.Matches[0].FilePath)
	}
	if result.Matches[0].Score <= 0 {
		t.Fatalf("score = %v, want > 0", result.Matches[0].Score)
	}
	if result.TotalChunks < 2 {
		t.Fatalf("totalChunks = %d, want >= 2", result.TotalChunks)
	}
}

func TestSearchWhitespaceQuery(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "alpha body")

	m := newTestManager(&fakeProvider{})
	if _, err := m.Index(context.Background(), dir, IndexOptions{}); err != nil {
		t.Fatalf("Index: %v", err)
	}

	result, err := m.Search(context.Background(), dir, "   \t\n ", SearchOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.Matches) != 0 {
		t.Fatalf("expected no matches for whitespace query, got %d", len(result.Matches))
	}
	if result.DurationMs < 0 {
		t.Fatalf("durationMs = %d, want >= 0", result.DurationMs)
	}
}

func TestSearchUnindexedFolderIsEmpty(t *testing.T) {
	dir := t.TempDir()
	m := newTestManager(&fakeProvider{})

	result, err := m.Search(context.Background(), dir, "anything", SearchOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.Matches) != 0 {
		t.Fatalf("expected no matches on unindexed folder, got %d", len(result.Matches))
	}
}

func TestSearchUsesEmbeddingAndResultCaches(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "alpha cached lookups")

	provider := &fakeProvider{}
	m := newTestManager(provider)
	if _, err := m.Index(context.Background(), dir, IndexOptions{}); err != nil {
		t.Fatalf("Index: %v", err)
	}

	provider.mu.Lock()
	afterIndex := provider.calls
	provider.mu.Unlock()

	if _, err := m.Search(context.Background(), dir, "Alpha  Cached", SearchOptions{TopK: 1}); err != nil {
		t.Fatalf("first Search: %v", err)
	}
	// Same query modulo case and whitespace collapsing: the result cache
	// hits, so no second embedding call is made.
	if _, err := m.Search(context.Background(), dir, "alpha cached", SearchOptions{TopK: 1}); err != nil {
		t.Fatalf("second Search: %v", err)
	}

	provider.mu.Lock()
	afterSearches := provider.calls
	provider.mu.Unlock()
	if afterSearches != afterIndex+1 {
		t.Fatalf("expected exactly one query embedding call, got %d", afterSearches-afterIndex)
	}
}

func TestSearchResultCacheInvalidatedByReindex(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.md")
	writeFile(t, path, "alpha original")

	m := newTestManager(&fakeProvider{})
	if _, err := m.Index(context.Background(), dir, IndexOptions{}); err != nil {
		t.Fatalf("Index: %v", err)
	}
	first, err := m.Search(context.Background(), dir, "alpha", SearchOptions{TopK: 1})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(first.Matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(first.Matches))
	}

	writeFile(t, path, "alpha rewritten with alpha alpha emphasis")
	if _, err := m.Index(context.Background(), dir, IndexOptions{}); err != nil {
		t.Fatalf("reindex: %v", err)
	}

	second, err := m.Search(context.Background(), dir, "alpha", SearchOptions{TopK: 1})
	if err != nil {
		t.Fatalf("Search after reindex: %v", err)
	}
	if len(second.Matches) != 1 {
		t.Fatalf("expected 1 match after reindex, got %d", len(second.Matches))
	}
	if second.Matches[0].Content == first.Matches[0].Content {
		t.Fatal("expected reindexed content, got stale cached result")
	}
}

func TestGetContextFormat(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "docs", "alpha.md"), "alpha system architecture")

	m := newTestManager(&fakeProvider{})
	if _, err := m.Index(context.Background(), dir, IndexOptions{}); err != nil {
		t.Fatalf("Index: %v", err)
	}

	block, err := m.GetContext(context.Background(), dir, "alpha", SearchOptions{TopK: 1})
	if err != nil {
		t.Fatalf("GetContext: %v", err)
	}
	if !strings.HasPrefix(block, "## RAG Context (project files)\n") {
		t.Fatalf("context block missing header, got %q", block)
	}
	if !strings.Contains(block, "Use the following snippets as additional project context when relevant:") {
		t.Fatalf("context block missing instruction line, got %q", block)
	}
	if !strings.Contains(block, "### docs/alpha.md\n") {
		t.Fatalf("context block missing file section, got %q", block)
	}
}

func TestGetContextEmptyWhenNoMatches(t *testing.T) {
	dir := t.TempDir()
	m := newTestManager(&fakeProvider{})

	block, err := m.GetContext(context.Background(), dir, "anything", SearchOptions{})
	if err != nil {
		t.Fatalf("GetContext: %v", err)
	}
	if block != "" {
		t.Fatalf("expected empty context for unindexed folder, got %q", block)
	}
}

func TestNormalizeQueryKey(t *testing.T) {
	cases := []struct{ in, want string }{
		{"  Hello   World  ", "hello world"},
		{"ALPHA\tbeta\ngamma", "alpha beta gamma"},
		{"plain", "plain"},
	}
	for _, tc := range cases {
		if got := normalizeQueryKey(tc.in); got != tc.want {
			t.Errorf("normalizeQueryKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
