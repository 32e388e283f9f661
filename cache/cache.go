// Package cache owns the on-disk lifecycle of generated artifacts: segment
// files and thumbnails. No other component deletes or moves files under the
// cache directory.
package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"phrasevid/errors"
)

// Entry is one tracked artifact.
type Entry struct {
	Path      string
	CreatedAt time.Time
}

type Cache struct {
	dir    string
	logger zerolog.Logger

	mu      sync.Mutex
	entries map[string]time.Time
	leases  map[string]int

	now func() time.Time
}

func New(dir string, logger zerolog.Logger) *Cache {
	return &Cache{
		dir:     dir,
		logger:  logger.With().Str("component", "cache").Logger(),
		entries: make(map[string]time.Time),
		leases:  make(map[string]int),
		now:     time.Now,
	}
}

// Init rebuilds bookkeeping from the files already present in the cache
// directory, using modification times as creation times. The directory
// itself must already exist; provisioning is config's job.
func (c *Cache) Init() error {
	const op = "Cache.Init"

	dirEntries, err := os.ReadDir(c.dir)
	if err != nil {
		return errors.CacheIO(op, err, "failed to scan cache directory")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		info, err := de.Info()
		if err != nil {
			c.logger.Warn().Err(err).Str("name", de.Name()).Msg("Skipping unreadable cache entry")
			continue
		}
		c.entries[filepath.Join(c.dir, de.Name())] = info.ModTime()
	}

	c.logger.Info().Int("entries", len(c.entries)).Msg("Cache bookkeeping rebuilt")
	return nil
}

// Store records an artifact at write completion and returns its entry.
func (c *Cache) Store(path string) Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	createdAt := c.now()
	c.entries[path] = createdAt
	return Entry{Path: path, CreatedAt: createdAt}
}

// Acquire takes a reader lease on a path. A leased path is never deleted by
// Sweep, regardless of age. The path does not need to be a tracked entry —
// streaming also pins original upload assets while a transfer is running.
func (c *Cache) Acquire(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leases[path]++
}

// Release drops one reader lease. Must be called exactly once per Acquire,
// on completion, error, or client disconnect.
func (c *Cache) Release(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.leases[path] <= 1 {
		delete(c.leases, path)
		return
	}
	c.leases[path]--
}

// Sweep deletes every tracked artifact older than ttl that has no active
// reader, removing it from disk and from bookkeeping. Per-file failures are
// logged and aggregated; one bad file never aborts the rest of the scan.
// Idempotent: a sweep that finds nothing eligible is a no-op.
func (c *Cache) Sweep(ttl time.Duration) (int, error) {
	const op = "Cache.Sweep"

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	failed := 0

	for path, createdAt := range c.entries {
		if now.Sub(createdAt) <= ttl {
			continue
		}
		if c.leases[path] > 0 {
			c.logger.Debug().Str("path", path).Msg("Sweep skipping leased artifact")
			continue
		}

		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			failed++
			c.logger.Error().Err(err).Str("path", path).Msg("Failed to delete cache entry")
			continue
		}

		delete(c.entries, path)
		removed++
	}

	if removed > 0 || failed > 0 {
		c.logger.Info().
			Int("removed", removed).
			Int("failed", failed).
			Msg("Cache sweep finished")
	}

	if failed > 0 {
		return removed, errors.CacheIO(op, nil,
			fmt.Sprintf("sweep failed to delete %d entries", failed))
	}
	return removed, nil
}

// Remove deletes the given artifacts immediately, leases notwithstanding.
// Used for compensating cleanup of artifacts that were produced for an
// ingestion that later failed — nothing ever published their paths.
func (c *Cache) Remove(paths []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			c.logger.Error().Err(err).Str("path", path).Msg("Failed to delete artifact")
		}
		delete(c.entries, path)
	}
}

// Len reports the number of tracked entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// StartSweeper runs periodic sweeps until ctx is cancelled.
func (c *Cache) StartSweeper(ctx context.Context, interval, ttl time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		c.logger.Info().
			Dur("interval", interval).
			Dur("ttl", ttl).
			Msg("Background sweeper started")

		for {
			select {
			case <-ctx.Done():
				c.logger.Info().Msg("Background sweeper stopped")
				return
			case <-ticker.C:
				if _, err := c.Sweep(ttl); err != nil {
					c.logger.Warn().Err(err).Msg("Background sweep reported failures")
				}
			}
		}
	}()
}
