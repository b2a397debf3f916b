package history

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/HuangJiaLian/Up2Git/internal/client/metrics"
	"github.com/HuangJiaLian/Up2Git/internal/common"
	"github.com/HuangJiaLian/Up2Git/internal/logging"
)

const thumbnailMemoSize = 32

type thumbnailResult struct {
	value string
	err   error
}

// Cache is the in-memory history, written through to a Store.
type Cache struct {
	mu      sync.Mutex
	entries []Entry
	store   Store
	logger  logging.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	thumbs *lru.Cache[[sha256.Size]byte, thumbnailResult]
}

// NewCache loads the history from store. A document that cannot be loaded
// yields an empty history. store and m may be nil.
func NewCache(ctx context.Context, store Store, logger logging.Logger, m *metrics.Metrics) *Cache {
	thumbs, err := lru.New[[sha256.Size]byte, thumbnailResult](thumbnailMemoSize)
	if err != nil {
		// only reachable with a non-positive size
		panic(err)
	}

	c := &Cache{
		store:   store,
		logger:  logging.OrNop(logger),
		metrics: m,
		now:     time.Now,
		thumbs:  thumbs,
	}

	if store != nil {
		entries, err := store.Load(ctx)
		if err != nil {
			c.logger.Warn(ctx, "history unreadable, starting empty", "error", err)
			entries = nil
		}
		if len(entries) > MaxEntries {
			entries = entries[:MaxEntries]
		}
		c.entries = entries
	}
	m.SetHistoryEntries(len(c.entries))
	return c
}

// Record prepends a successful upload, drops entries beyond MaxEntries and
// persists the list. Persistence failures are logged and not returned.
func (c *Cache) Record(ctx context.Context, filename, url string, isImage bool, thumbnail string) Entry {
	e := Entry{
		Filename:  filename,
		URL:       url,
		Timestamp: c.now().Format(time.RFC3339),
		IsImage:   isImage,
		Thumbnail: thumbnail,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entries := make([]Entry, 0, MaxEntries)
	entries = append(entries, e)
	entries = append(entries, c.entries...)
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}
	c.entries = entries

	if err := c.persist(ctx); err != nil {
		c.logger.Error(ctx, "history not saved", "filename", filename, "error", err)
	}
	c.metrics.SetHistoryEntries(len(c.entries))
	return e
}

// List returns a copy of the entries, most recent first.
func (c *Cache) List() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Entry(nil), c.entries...)
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear empties the history and persists the empty list. The in-memory list
// is cleared even when persisting fails.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = nil
	c.metrics.SetHistoryEntries(0)
	if err := c.persist(ctx); err != nil {
		c.logger.Error(ctx, "cleared history not saved", "error", err)
		return err
	}
	return nil
}

// Thumbnail returns MakeThumbnail(data, ThumbnailSize), reusing earlier
// results for identical content.
func (c *Cache) Thumbnail(data []byte) (string, error) {
	key := sha256.Sum256(data)
	if r, ok := c.thumbs.Get(key); ok {
		return r.value, r.err
	}
	v, err := MakeThumbnail(data, ThumbnailSize)
	c.thumbs.Add(key, thumbnailResult{value: v, err: err})
	return v, err
}

func (c *Cache) persist(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	err := c.store.Save(ctx, append([]Entry(nil), c.entries...))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrPersistence):
		return err
	default:
		return fmt.Errorf("%w: %w", common.ErrPersistence, err)
	}
}
