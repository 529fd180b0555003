package folder

import (
	"github.com/hieutran512/ragkit/internal/storage"
)

// EnsureLoaded returns the Cache for folderPath, loading its persisted
// state from disk on first reference. storagePath, if non-empty,
// overrides where persistence reads/writes for this folder.
func (m *Manager) EnsureLoaded(folderPath, storagePath string) (*Cache, error) {
	norm := NormalizeFolderPath(folderPath)
	c := m.getOrCreate(norm)

	if storagePath != "" {
		c.mu.Lock()
		c.storagePath = storagePath
		c.mu.Unlock()
	}

	m.ensurePersistedLoaded(c)
	return c, nil
}

// ensurePersistedLoaded loads .rag-db/.rag-index into the cache the
// first time it is referenced, tolerating missing or corrupt files by
// starting cold (storage.Load already performs that recovery).
func (m *Manager) ensurePersistedLoaded(c *Cache) {
	c.mu.Lock()
	if c.persistedLoaded {
		c.mu.Unlock()
		return
	}
	folderPath, storagePath := c.folderPath, c.storagePath
	c.mu.Unlock()

	loaded := storage.Load(folderPath, storagePath)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.persistedLoaded {
		return
	}
	c.chunks = loaded.Chunks
	c.fileStates = loaded.FileStates
	if loaded.LastIndexedAt > 0 {
		c.status.LastIndexedAt = loaded.LastIndexedAt
	}
	c.status.TotalChunks = len(c.chunks)
	if len(c.chunks) > 0 {
		// A folder with persisted chunks was indexed by a prior process;
		// it is searchable without another Index call.
		c.config.Enabled = true
		c.annIndex = buildANNFromChunks(c.chunks, m.annParams)
	}
	c.persistedLoaded = true
}

// ClearFolder drops folderPath's in-memory cache and removes its
// on-disk storage directory. outputFolder, if non-empty, targets the
// same storage-path override Index/search honor.
func (m *Manager) ClearFolder(folderPath, outputFolder string) error {
	norm := NormalizeFolderPath(folderPath)

	m.mu.Lock()
	delete(m.caches, norm)
	m.mu.Unlock()

	return storage.Clear(norm, outputFolder)
}
