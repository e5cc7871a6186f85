// Package cache memoizes analysis outputs by a hash of their input snapshot.
//
// A Cache has a single writer: one analysis process owns a cache directory
// at a time. Entries are fully written or absent; nothing compares and swaps.
package cache

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rohankatakam/changerisk/internal/errors"
	"github.com/sirupsen/logrus"
)

// Cache checks and records analysis outputs against snapshot hashes
type Cache struct {
	index   Index
	locator Locator
	logger  *logrus.Logger
	now     func() time.Time
}

// New creates a cache over index. A nil locator resolves refs as file paths
// and a nil logger uses the logrus standard logger.
func New(index Index, locator Locator, logger *logrus.Logger) *Cache {
	if locator == nil {
		locator = FileLocator{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Cache{
		index:   index,
		locator: locator,
		logger:  logger,
		now:     time.Now,
	}
}

// Lookup returns the entry for name when its hash matches state and its
// output still resolves. Any index or locator error is a miss.
func (c *Cache) Lookup(ctx context.Context, name string, state SnapshotState) (Entry, bool) {
	log := c.logger.WithField("cache", name)

	entry, ok, err := c.index.Get(name)
	if err != nil {
		log.WithError(errors.CacheError(err, "read cache index")).Warn("Failed to read cache index, treating as miss")
		return Entry{}, false
	}
	if !ok {
		log.Debug("No cache entry")
		return Entry{}, false
	}

	hash := SnapshotHash(state)
	if entry.Hash != hash {
		log.WithFields(logrus.Fields{
			"cached_hash":  entry.Hash,
			"current_hash": hash,
		}).Debug("Snapshot changed since cached run")
		return Entry{}, false
	}

	exists, err := c.locator.Exists(ctx, entry.OutputRef)
	if err != nil {
		log.WithError(err).WithField("output_ref", entry.OutputRef).Warn("Failed to locate cached output, treating as miss")
		return Entry{}, false
	}
	if !exists {
		log.WithField("output_ref", entry.OutputRef).Debug("Cached output no longer exists")
		return Entry{}, false
	}
	return entry, true
}

// IsCached reports whether a valid entry exists for name and state
func (c *Cache) IsCached(ctx context.Context, name string, state SnapshotState) bool {
	_, ok := c.Lookup(ctx, name, state)
	return ok
}

// MarkCached records that outputRef holds the analysis of state, replacing
// any previous entry for name.
func (c *Cache) MarkCached(ctx context.Context, name, outputRef string, state SnapshotState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entry := Entry{
		Name:      name,
		Hash:      SnapshotHash(state),
		OutputRef: outputRef,
		Timestamp: c.now().UTC(),
	}
	if err := c.index.Put(entry); err != nil {
		cerr := errors.CacheErrorf(err, "mark %s cached", name)
		c.logger.WithError(cerr).WithField("cache", name).Warn("Failed to update cache index")
		return cerr
	}
	c.logger.WithFields(logrus.Fields{
		"cache":      name,
		"output_ref": outputRef,
	}).Debug("Cache entry updated")
	return nil
}

// Entries lists all entries sorted by name
func (c *Cache) Entries() ([]Entry, error) {
	entries, err := c.index.List()
	if err != nil {
		return nil, errors.CacheError(err, "list cache entries")
	}
	return entries, nil
}

// Invalidate removes the entry for name
func (c *Cache) Invalidate(name string) error {
	c.logger.WithField("cache", name).Info("Invalidating cache entry")
	if err := c.index.Delete(name); err != nil {
		return errors.CacheErrorf(err, "invalidate %s", name)
	}
	return nil
}

// Clear removes every entry
func (c *Cache) Clear() error {
	c.logger.Info("Clearing analysis cache")
	if err := c.index.Clear(); err != nil {
		return errors.CacheError(err, "clear cache index")
	}
	return nil
}

// Close releases the index
func (c *Cache) Close() error {
	return c.index.Close()
}

// DirSize returns the total size in bytes of regular files under dir
func DirSize(dir string) (int64, error) {
	var size int64
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.CacheError(err, "calculate cache size")
	}
	return size, nil
}
