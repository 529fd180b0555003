// Package folder owns the per-folder cache state machine and the
// indexing orchestrator that drives it: scan, drift detection,
// AST-aware chunking, batched embedding, atomic persistence, and ANN
// rebuild, behind a singleton-per-folder in-flight index job.
package folder

import (
	"strings"
	"sync"
	"time"

	"github.com/hieutran512/ragkit/internal/ann"
	"github.com/hieutran512/ragkit/internal/chunk"
	"github.com/hieutran512/ragkit/internal/embed"
	"github.com/hieutran512/ragkit/internal/lru"
	"github.com/hieutran512/ragkit/internal/models"
)

// Default tuning constants for indexing and the query caches.
const (
	DefaultConcurrency          = 2
	DefaultEmbedBatchSize       = 16
	HealthRefreshInterval       = 15 * time.Second
	StaleThresholdMs      int64 = 1_800_000

	QueryEmbedCacheMax  = 128
	QueryResultCacheMax = 64
	QueryCacheTTL       = 10 * time.Minute
)

// DefaultIncludeExtensions is used when a folder is indexed without an
// explicit extension allowlist.
var DefaultIncludeExtensions = []string{
	".go", ".py", ".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx",
	".java", ".c", ".h", ".cpp", ".cc", ".hpp", ".rs",
	".md", ".txt", ".json", ".yaml", ".yml",
}

// DefaultExcludeFolders is used when a folder is indexed without an
// explicit exclude list.
var DefaultExcludeFolders = []string{
	".git", "node_modules", "vendor", "dist", "build", "target", ".rag-ts",
}

// Config is the per-folder indexing configuration, merged from the
// caller's options across repeated Index calls.
type Config struct {
	Enabled           bool
	IncludeExtensions []string
	ExcludeFolders    []string
	MaxFileSize       int64
}

// resultCacheEntry is one cached search() response, valid only while
// its Revision matches the owning Cache's current indexRevision.
type resultCacheEntry struct {
	Revision int
	Ranked   []ann.Scored
}

type indexRun struct {
	done   chan struct{}
	status models.Status
	err    error
}

type healthRun struct {
	done chan struct{}
}

// Cache is the per-folder state machine: chunks, file states, query
// caches, ANN index, and the singleton in-flight index/health jobs. A
// single mutex serializes all mutation, so readers observe either the
// pre- or post-transaction state of an index run, never a partial one.
type Cache struct {
	mu sync.Mutex

	folderPath  string
	storagePath string
	config      Config
	status      models.Status

	chunks     map[string]models.Chunk
	fileStates map[string]models.FileState

	persistedLoaded bool
	indexRevision   int
	annIndex        *ann.Index

	runningIndex      *indexRun
	runningHealth     *healthRun
	lastHealthRefresh time.Time

	queryEmbeddingCache *lru.Cache[string, []float32]
	queryResultCache    *lru.Cache[string, resultCacheEntry]
}

func newCache(folderPath string) *Cache {
	return &Cache{
		folderPath:          folderPath,
		chunks:              make(map[string]models.Chunk),
		fileStates:          make(map[string]models.FileState),
		queryEmbeddingCache: lru.New[string, []float32](QueryEmbedCacheMax, QueryCacheTTL),
		queryResultCache:    lru.New[string, resultCacheEntry](QueryResultCacheMax, QueryCacheTTL),
		status: models.Status{
			FolderPath:       folderPath,
			Phase:            models.PhaseIdle,
			StaleThresholdMs: StaleThresholdMs,
		},
	}
}

// NormalizeFolderPath replaces backslashes with forward slashes and
// trims a trailing slash, so the same logical folder always maps to
// the same Cache regardless of how a caller spelled its path.
func NormalizeFolderPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	for len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}

// Manager owns every FolderCache in the process and the collaborators
// (chunkers, embedding provider, ANN params) the indexing transaction
// needs.
type Manager struct {
	mu     sync.Mutex
	caches map[string]*Cache

	textChunker *chunk.TextChunker
	codeChunker *chunk.CodeChunker
	provider    embed.Provider
	annParams   ann.Params
}

// NewManager builds an orchestrator over the given collaborators.
func NewManager(provider embed.Provider, textChunker *chunk.TextChunker, codeChunker *chunk.CodeChunker, annParams ann.Params) *Manager {
	return &Manager{
		caches:      make(map[string]*Cache),
		textChunker: textChunker,
		codeChunker: codeChunker,
		provider:    provider,
		annParams:   annParams,
	}
}

// getOrCreate returns the singleton Cache for a normalized folder
// path, creating it lazily on first reference.
func (m *Manager) getOrCreate(normalizedPath string) *Cache {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.caches[normalizedPath]
	if !ok {
		c = newCache(normalizedPath)
		m.caches[normalizedPath] = c
	}
	return c
}

// CachedFolders reports how many folders currently have a live Cache
// in this process.
func (m *Manager) CachedFolders() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.caches)
}

// StatusSnapshot returns a caller-safe copy of the cache's current
// status, stamped with its live config.
func (c *Cache) StatusSnapshot() models.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.status
	s.FolderPath = c.folderPath
	s.Enabled = c.config.Enabled
	s.IncludeExtensions = c.config.IncludeExtensions
	s.ExcludeFolders = c.config.ExcludeFolders
	return s.Clone()
}

func (c *Cache) setStatusFields(fn func(*models.Status)) {
	c.mu.Lock()
	fn(&c.status)
	c.mu.Unlock()
}

func (c *Cache) setPhase(p models.Phase) {
	c.setStatusFields(func(s *models.Status) { s.Phase = p })
}

func copyFileStates(m map[string]models.FileState) map[string]models.FileState {
	out := make(map[string]models.FileState, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyChunks(m map[string]models.Chunk) map[string]models.Chunk {
	out := make(map[string]models.Chunk, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func buildANNFromChunks(chunks map[string]models.Chunk, params ann.Params) *ann.Index {
	items := make([]ann.Embedded, 0, len(chunks))
	for id, ch := range chunks {
		items = append(items, chunkEmbedded{id: id, vec: ch.Embedding})
	}
	return ann.Build(items, params)
}

type chunkEmbedded struct {
	id  string
	vec []float32
}

func (e chunkEmbedded) EmbeddingID() string        { return e.id }
func (e chunkEmbedded) EmbeddingVector() []float32 { return e.vec }
