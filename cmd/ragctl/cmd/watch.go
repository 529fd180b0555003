package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/hieutran512/ragkit/internal/folder"
	"github.com/hieutran512/ragkit/pkg/config"
	"github.com/hieutran512/ragkit/pkg/ignore"
)

// watchDebounce is how long the watcher waits after the last file event
// before triggering a reindex, coalescing editor save bursts into one run.
const watchDebounce = 2 * time.Second

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Watch a folder and reindex it on changes",
		Long: `Watch a folder for file changes and reindex it automatically.

Runs one full index up front, then listens for filesystem events and
triggers an incremental reindex after the changes settle. Press Ctrl-C
to stop.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveFolderArg(args)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			manager := buildManager(cfg)

			if _, err := manager.Index(ctx, path, indexOptionsFrom(cfg)); err != nil {
				return fmt.Errorf("initial index: %w", err)
			}
			log.Printf("watching %s", path)

			return watchLoop(ctx, manager, cfg, path)
		},
	}

	return cmd
}

func watchLoop(ctx context.Context, manager *folder.Manager, cfg *config.Config, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	exclude := make(map[string]bool, len(cfg.Indexing.ExcludeFolders))
	for _, name := range cfg.Indexing.ExcludeFolders {
		exclude[name] = true
	}
	if err := addWatchTree(watcher, path, exclude); err != nil {
		return fmt.Errorf("watch tree: %w", err)
	}

	matcher := ignore.NewMatcher(cfg.Ignore.Patterns)

	// A stopped timer whose channel is drained lazily; every relevant
	// event pushes the deadline out by watchDebounce.
	debounce := time.NewTimer(watchDebounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			rel, err := filepath.Rel(path, event.Name)
			if err != nil || matcher.ShouldIgnore(filepath.ToSlash(rel)) {
				continue
			}
			// New directories must join the watch set or changes under
			// them go unseen.
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !exclude[info.Name()] {
					if err := addWatchTree(watcher, event.Name, exclude); err != nil {
						log.Printf("watch new directory %s: %v", event.Name, err)
					}
				}
			}
			debounce.Reset(watchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("watch error: %v", err)

		case <-debounce.C:
			status, err := manager.Index(ctx, path, indexOptionsFrom(cfg))
			if err != nil {
				log.Printf("reindex failed: %v", err)
				continue
			}
			log.Printf("reindexed %s: %d files, %d chunks (%d skipped)",
				path, status.TotalFiles, status.TotalChunks, status.SkippedUnchanged)
		}
	}
}

// addWatchTree registers root and every non-excluded directory under it
// with the watcher, since fsnotify watches are not recursive.
func addWatchTree(watcher *fsnotify.Watcher, root string, exclude map[string]bool) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && exclude[d.Name()] {
			return fs.SkipDir
		}
		return watcher.Add(p)
	})
}
