package folder

import (
	"context"
	"time"

	"github.com/hieutran512/ragkit/internal/models"
	"github.com/hieutran512/ragkit/internal/ragerr"
	"github.com/hieutran512/ragkit/internal/scanner"
	"github.com/hieutran512/ragkit/internal/storage"
)

// GetStatus returns folderPath's current Status, refreshing drift and
// staleness information at most once per HealthRefreshInterval.
// Concurrent callers within the throttle window share one refresh.
func (m *Manager) GetStatus(ctx context.Context, folderPath string) (models.Status, error) {
	norm := NormalizeFolderPath(folderPath)
	c := m.getOrCreate(norm)
	m.ensurePersistedLoaded(c)

	c.mu.Lock()
	due := time.Since(c.lastHealthRefresh) >= HealthRefreshInterval
	if !due {
		s := c.status.Clone()
		s.FolderPath = c.folderPath
		s.Enabled = c.config.Enabled
		s.CachedFolders = m.CachedFolders()
		c.mu.Unlock()
		return s, nil
	}
	if c.runningHealth != nil {
		run := c.runningHealth
		c.mu.Unlock()
		<-run.done
		return c.StatusSnapshot(), nil
	}
	run := &healthRun{done: make(chan struct{})}
	c.runningHealth = run
	c.mu.Unlock()

	m.refreshHealth(ctx, c)

	c.mu.Lock()
	c.runningHealth = nil
	c.lastHealthRefresh = time.Now()
	c.mu.Unlock()
	close(run.done)

	snap := c.StatusSnapshot()
	snap.CachedFolders = m.CachedFolders()
	return snap, nil
}

// refreshHealth recomputes drift (added/modified/deleted file counts
// since the last index) and staleness against StaleThresholdMs. It
// only reads current file metadata - no hashing, no embedding - so it
// stays cheap enough to run on every status poll past the throttle.
func (m *Manager) refreshHealth(ctx context.Context, c *Cache) {
	c.mu.Lock()
	folderPath, storagePath := c.folderPath, c.storagePath
	cfg := c.config
	priorFileStates := copyFileStates(c.fileStates)
	lastIndexedAt := c.status.LastIndexedAt
	c.mu.Unlock()

	if !cfg.Enabled {
		return
	}

	select {
	case <-ctx.Done():
		return
	default:
	}

	candidates, err := scanner.Scan(folderPath, scanner.Options{
		IncludeExtensions: cfg.IncludeExtensions,
		ExcludeFolders:    cfg.ExcludeFolders,
		MaxFileSize:       cfg.MaxFileSize,
	})
	if err != nil {
		// Refresh failures never propagate to the status caller; the
		// drift counters reset rather than reporting stale numbers.
		c.setStatusFields(func(s *models.Status) {
			s.FileChangeDrift = false
			s.DriftAddedFiles = 0
			s.DriftModifiedFiles = 0
			s.DriftDeletedFiles = 0
			s.Message = ragerr.New(ragerr.KindScanner, err).Error()
		})
		return
	}

	currentFiles := make(map[string]bool, len(candidates))
	added, modified := 0, 0
	for _, cand := range candidates {
		currentFiles[cand.RelativePath] = true
		prior, ok := priorFileStates[cand.RelativePath]
		if !ok {
			added++
			continue
		}
		if prior.ModifiedAt != cand.ModifiedAt || prior.Size != cand.Size {
			modified++
		}
	}

	deleted := 0
	for relPath := range priorFileStates {
		if !currentFiles[relPath] {
			deleted++
		}
	}

	drift := added > 0 || modified > 0 || deleted > 0
	now := time.Now().UnixMilli()

	var staleAge int64
	stale := false
	if lastIndexedAt > 0 {
		staleAge = now - lastIndexedAt
		stale = staleAge >= StaleThresholdMs
	}

	c.setStatusFields(func(s *models.Status) {
		s.FileChangeDrift = drift
		s.DriftAddedFiles = added
		s.DriftModifiedFiles = modified
		s.DriftDeletedFiles = deleted
		s.DriftCheckedAt = now
		s.StaleWarning = stale
		s.StaleAgeMs = staleAge
		s.StaleThresholdMs = StaleThresholdMs
		s.DBSizeBytes = storage.Size(folderPath, storagePath)
	})
}
