package folder

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/hieutran512/ragkit/internal/chunk"
	"github.com/hieutran512/ragkit/internal/models"
	"github.com/hieutran512/ragkit/internal/ragerr"
	"github.com/hieutran512/ragkit/internal/scanner"
	"github.com/hieutran512/ragkit/internal/storage"
)

// IndexOptions configures one Index call. Unset IncludeExtensions,
// ExcludeFolders, MaxFileSize, and OutputFolder keep the folder's
// previously configured values (the package defaults on first use);
// unset Concurrency and EmbedBatchSize always use the package defaults.
type IndexOptions struct {
	IncludeExtensions []string
	ExcludeFolders    []string
	MaxFileSize       int64
	Concurrency       int
	EmbedBatchSize    int
	OutputFolder      string
	OnProgress        func(models.Status)
}

// Index scans folderPath, diffs it against the folder's persisted
// state, chunks and embeds every changed file under bounded
// concurrency, and atomically persists the result. A second caller
// racing the first on the same folder receives the same pending
// result rather than triggering duplicate work.
func (m *Manager) Index(ctx context.Context, folderPath string, opts IndexOptions) (models.Status, error) {
	norm := NormalizeFolderPath(folderPath)
	c := m.getOrCreate(norm)

	c.mu.Lock()
	applyOptionsLocked(c, opts)
	c.config.Enabled = true
	if c.runningIndex != nil {
		run := c.runningIndex
		c.mu.Unlock()
		<-run.done
		return run.status, run.err
	}
	run := &indexRun{done: make(chan struct{})}
	c.runningIndex = run
	c.mu.Unlock()

	status, err := m.runIndex(ctx, c, opts)

	c.mu.Lock()
	run.status, run.err = status, err
	c.runningIndex = nil
	c.mu.Unlock()
	close(run.done)

	return status, err
}

func applyOptionsLocked(c *Cache, opts IndexOptions) {
	if len(opts.IncludeExtensions) > 0 {
		c.config.IncludeExtensions = opts.IncludeExtensions
	} else if len(c.config.IncludeExtensions) == 0 {
		c.config.IncludeExtensions = DefaultIncludeExtensions
	}
	if len(opts.ExcludeFolders) > 0 {
		c.config.ExcludeFolders = opts.ExcludeFolders
	} else if len(c.config.ExcludeFolders) == 0 {
		c.config.ExcludeFolders = DefaultExcludeFolders
	}
	if opts.MaxFileSize > 0 {
		c.config.MaxFileSize = opts.MaxFileSize
	} else if c.config.MaxFileSize == 0 {
		c.config.MaxFileSize = scanner.DefaultMaxFileBytes
	}
	if opts.OutputFolder != "" {
		c.storagePath = opts.OutputFolder
	}
}

func emitProgress(c *Cache, onProgress func(models.Status)) {
	if onProgress == nil {
		return
	}
	onProgress(c.StatusSnapshot())
}

type fileResult struct {
	relPath        string
	unchanged      bool
	refreshedState models.FileState
	newChunks      []models.Chunk
	newState       models.FileState
	err            error
}

// runIndex performs the actual scan->chunk->embed->persist transaction
// for one Index call, outside the runningIndex bookkeeping in Index.
func (m *Manager) runIndex(ctx context.Context, c *Cache, opts IndexOptions) (models.Status, error) {
	m.ensurePersistedLoaded(c)

	jobID := uuid.NewString()
	log.Printf("index job %s started: %s", jobID, c.folderPath)

	c.setPhase(models.PhaseScanning)
	emitProgress(c, opts.OnProgress)

	c.mu.Lock()
	folderPath, storagePath := c.folderPath, c.storagePath
	cfg := c.config
	c.mu.Unlock()

	candidates, err := scanner.Scan(folderPath, scanner.Options{
		IncludeExtensions: cfg.IncludeExtensions,
		ExcludeFolders:    cfg.ExcludeFolders,
		MaxFileSize:       cfg.MaxFileSize,
	})
	if err != nil {
		return m.finishWithError(c, opts, ragerr.New(ragerr.KindScanner, err))
	}

	currentFiles := make(map[string]bool, len(candidates))
	for _, cand := range candidates {
		currentFiles[cand.RelativePath] = true
	}

	c.mu.Lock()
	priorFileStates := copyFileStates(c.fileStates)
	c.mu.Unlock()

	var deletedPaths []string
	removedChunkIDs := make(map[string]bool)
	for relPath, fs := range priorFileStates {
		if currentFiles[relPath] {
			continue
		}
		deletedPaths = append(deletedPaths, relPath)
		for _, id := range fs.ChunkIDs {
			removedChunkIDs[id] = true
		}
	}
	changedIndex := len(deletedPaths) > 0

	var toProcess []scanner.Candidate
	skippedUnchanged := 0
	for _, cand := range candidates {
		if prior, ok := priorFileStates[cand.RelativePath]; ok &&
			prior.ModifiedAt == cand.ModifiedAt && prior.Size == cand.Size {
			skippedUnchanged++
			continue
		}
		toProcess = append(toProcess, cand)
	}

	c.setStatusFields(func(s *models.Status) {
		s.Phase = models.PhaseEmbedding
		s.TotalFiles = len(candidates)
		s.FilesToEmbed = len(toProcess)
		s.EmbeddedFiles = 0
		s.SkippedUnchanged = skippedUnchanged
	})
	emitProgress(c, opts.OnProgress)

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	embedBatchSize := opts.EmbedBatchSize
	if embedBatchSize <= 0 {
		embedBatchSize = DefaultEmbedBatchSize
	}

	results := make([]fileResult, len(toProcess))
	workCtx, cancelWork := context.WithCancel(ctx)
	defer cancelWork()

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	var once sync.Once
	var errMu sync.Mutex
	var firstErr error
	var embeddedCount int64

	for i := range toProcess {
		i := i
		cand := toProcess[i]
		wg.Add(1)
		go func() {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-workCtx.Done():
				return
			}
			defer func() { <-sem }()

			select {
			case <-workCtx.Done():
				return
			default:
			}

			res := m.processFile(workCtx, c, cand, priorFileStates, embedBatchSize)
			results[i] = res

			if res.err != nil {
				once.Do(func() {
					errMu.Lock()
					firstErr = res.err
					errMu.Unlock()
					cancelWork()
				})
				return
			}

			n := atomic.AddInt64(&embeddedCount, 1)
			c.setStatusFields(func(s *models.Status) { s.EmbeddedFiles = int(n) })
			emitProgress(c, opts.OnProgress)
		}()
	}
	wg.Wait()

	if ctx.Err() != nil {
		return m.finishCancelled(c, opts)
	}

	errMu.Lock()
	fe := firstErr
	errMu.Unlock()
	if fe != nil {
		return m.finishWithError(c, opts, fe)
	}

	c.mu.Lock()
	for _, relPath := range deletedPaths {
		delete(c.fileStates, relPath)
	}
	for id := range removedChunkIDs {
		delete(c.chunks, id)
	}
	for _, res := range results {
		if res.unchanged {
			// Content hash matched despite new metadata: refresh the
			// metadata and count the file as skipped.
			c.fileStates[res.relPath] = res.refreshedState
			skippedUnchanged++
			continue
		}
		if prior, ok := priorFileStates[res.relPath]; ok {
			for _, id := range prior.ChunkIDs {
				delete(c.chunks, id)
			}
		}
		ids := make([]string, 0, len(res.newChunks))
		for _, ch := range res.newChunks {
			c.chunks[ch.ID] = ch
			ids = append(ids, ch.ID)
		}
		res.newState.ChunkIDs = ids
		c.fileStates[res.relPath] = res.newState
		changedIndex = true
	}

	if changedIndex {
		c.indexRevision++
		c.annIndex = buildANNFromChunks(c.chunks, m.annParams)
	}
	chunksSnapshot := copyChunks(c.chunks)
	fileStatesSnapshot := copyFileStates(c.fileStates)
	totalChunks := len(c.chunks)
	c.mu.Unlock()

	if changedIndex {
		if err := storage.Save(folderPath, storagePath, chunksSnapshot, fileStatesSnapshot, time.Now().UnixMilli()); err != nil {
			return m.finishWithError(c, opts, ragerr.New(ragerr.KindPersistence, err))
		}
	}

	c.setStatusFields(func(s *models.Status) {
		s.Phase = models.PhaseReady
		s.LastIndexedAt = time.Now().UnixMilli()
		s.SkippedUnchanged = skippedUnchanged
		s.TotalChunks = totalChunks
		s.DBSizeBytes = storage.Size(folderPath, storagePath)
		s.FileChangeDrift = false
		s.DriftAddedFiles = 0
		s.DriftModifiedFiles = 0
		s.DriftDeletedFiles = 0
		s.Message = ""
	})
	emitProgress(c, opts.OnProgress)

	log.Printf("index job %s finished: %d files, %d chunks, %d skipped", jobID, len(candidates), totalChunks, skippedUnchanged)

	return c.StatusSnapshot(), nil
}

func (m *Manager) finishWithError(c *Cache, opts IndexOptions, err error) (models.Status, error) {
	c.setStatusFields(func(s *models.Status) {
		s.Phase = models.PhaseError
		s.Message = err.Error()
	})
	emitProgress(c, opts.OnProgress)
	return c.StatusSnapshot(), err
}

func (m *Manager) finishCancelled(c *Cache, opts IndexOptions) (models.Status, error) {
	c.setStatusFields(func(s *models.Status) {
		s.Phase = models.PhaseIdle
		s.Message = "indexing cancelled"
	})
	emitProgress(c, opts.OnProgress)
	return c.StatusSnapshot(), ragerr.New(ragerr.KindCancelled, ragerr.ErrCancelled)
}

// processFile reads, hashes, and (if changed) chunks and embeds one
// candidate file. It never mutates the Cache directly - the caller
// merges fileResult into c.chunks/c.fileStates in a single critical
// section once every file in the batch has been processed.
func (m *Manager) processFile(ctx context.Context, c *Cache, cand scanner.Candidate, prior map[string]models.FileState, embedBatchSize int) fileResult {
	data, err := os.ReadFile(cand.FullPath)
	if err != nil {
		return fileResult{relPath: cand.RelativePath, err: ragerr.New(ragerr.KindRead, err)}
	}

	sum := sha1.Sum(data)
	hash := hex.EncodeToString(sum[:])

	if priorState, ok := prior[cand.RelativePath]; ok && priorState.ContentHash == hash {
		return fileResult{
			relPath:   cand.RelativePath,
			unchanged: true,
			refreshedState: models.FileState{
				ModifiedAt:  cand.ModifiedAt,
				Size:        cand.Size,
				ContentHash: hash,
				ChunkIDs:    priorState.ChunkIDs,
			},
		}
	}

	source := string(data)
	var pieces []chunkPiece
	if profile, ok := chunk.DetectProfile(cand.RelativePath); ok {
		for _, p := range m.codeChunker.ChunkToModels(cand.RelativePath, cand.ModifiedAt, source, profile) {
			pieces = append(pieces, chunkPiece{content: p.Content, symbols: p.Symbols})
		}
	} else {
		for _, p := range m.textChunker.ChunkToModels(cand.RelativePath, cand.ModifiedAt, source) {
			pieces = append(pieces, chunkPiece{content: p.Content})
		}
	}

	newChunks := make([]models.Chunk, 0, len(pieces))
	for start := 0; start < len(pieces); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(pieces) {
			end = len(pieces)
		}
		batch := pieces[start:end]

		select {
		case <-ctx.Done():
			return fileResult{relPath: cand.RelativePath, err: ragerr.New(ragerr.KindCancelled, ctx.Err())}
		default:
		}

		texts := make([]string, len(batch))
		for i, p := range batch {
			texts[i] = p.content
		}

		vectors, err := m.provider.Embed(ctx, texts)
		if err != nil {
			return fileResult{relPath: cand.RelativePath, err: ragerr.New(ragerr.KindEmbeddingProvider, err)}
		}
		if len(vectors) != len(texts) {
			return fileResult{relPath: cand.RelativePath, err: ragerr.Newf(ragerr.KindEmbeddingProvider, "expected %d vectors, got %d", len(texts), len(vectors))}
		}

		for i, p := range batch {
			newChunks = append(newChunks, models.Chunk{
				ID:         fmt.Sprintf("%s::%d", cand.RelativePath, start+i),
				FilePath:   cand.RelativePath,
				ModifiedAt: cand.ModifiedAt,
				Content:    p.content,
				Embedding:  vectors[i],
				Symbols:    p.symbols,
			})
		}
	}

	return fileResult{
		relPath:   cand.RelativePath,
		newChunks: newChunks,
		newState: models.FileState{
			ModifiedAt:  cand.ModifiedAt,
			Size:        cand.Size,
			ContentHash: hash,
		},
	}
}

type chunkPiece struct {
	content string
	symbols []models.Symbol
}
