package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/emailzen/emailzen/internal/gmail"
	"github.com/emailzen/emailzen/internal/logging"
	"github.com/emailzen/emailzen/internal/storage"
)

// cachedLabel is the persisted shape, matching the extension's stored
// labelsCache records.
type cachedLabel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LabelCache maps label names to ids, loading the mapping once from
// storage or the API and creating missing labels on demand. Creation is
// deduplicated through singleflight so concurrent resolution of the
// same unseen name yields one remote label.
type LabelCache struct {
	svc    gmail.Service
	store  storage.Store
	logger *slog.Logger

	mu     sync.Mutex
	loaded bool
	labels []gmail.Label
	byName map[string]string

	create singleflight.Group
}

// NewLabelCache returns an empty cache. Nothing is fetched until the
// first use.
func NewLabelCache(svc gmail.Service, store storage.Store, logger *slog.Logger) *LabelCache {
	return &LabelCache{svc: svc, store: store, logger: logger}
}

// EnsureInitialized loads the cache from storage, falling back to a
// full remote listing that is then persisted.
func (c *LabelCache) EnsureInitialized(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ensureLocked(ctx)
}

func (c *LabelCache) ensureLocked(ctx context.Context) error {
	if c.loaded {
		return nil
	}

	var cached []cachedLabel
	ok, err := c.store.Get(storage.KeyLabelCache, &cached)
	if err != nil {
		return err
	}
	if ok && len(cached) > 0 {
		c.labels = c.labels[:0]
		for _, l := range cached {
			c.labels = append(c.labels, gmail.Label{ID: l.ID, Name: l.Name})
		}
		c.rebuildMapLocked()
		c.loaded = true
		return nil
	}

	remote, err := c.svc.ListLabels(ctx)
	if err != nil {
		return err
	}
	c.labels = remote
	c.rebuildMapLocked()
	c.loaded = true
	if err := c.persistLocked(); err != nil {
		c.warn(ctx, "failed to persist label cache", err)
	}
	return nil
}

// Lookup returns the id for a label name without creating it.
func (c *LabelCache) Lookup(ctx context.Context, name string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLocked(ctx); err != nil {
		return "", false, err
	}
	id, ok := c.byName[name]
	return id, ok, nil
}

// ResolveOrCreate returns the id for a label name, creating the label
// remotely when it is not cached. Newly created labels extend the
// persisted cache; the cache is never truncated here.
func (c *LabelCache) ResolveOrCreate(ctx context.Context, name string) (string, error) {
	if id, ok, err := c.Lookup(ctx, name); err != nil {
		return "", err
	} else if ok {
		return id, nil
	}

	v, err, _ := c.create.Do(name, func() (any, error) {
		c.mu.Lock()
		if id, ok := c.byName[name]; ok {
			c.mu.Unlock()
			return id, nil
		}
		c.mu.Unlock()

		label, err := c.svc.CreateLabel(ctx, name)
		if err != nil {
			return "", err
		}

		c.mu.Lock()
		c.labels = append(c.labels, label)
		c.byName[label.Name] = label.ID
		perr := c.persistLocked()
		c.mu.Unlock()

		if perr != nil {
			c.warn(ctx, "failed to persist label cache after create", perr)
		}
		c.info(ctx, "created label", label.Name)
		return label.ID, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops the in-memory and persisted cache so the next use
// refetches from the API.
func (c *LabelCache) Invalidate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = false
	c.labels = nil
	c.byName = nil
	return c.store.Remove(storage.KeyLabelCache, storage.KeyLabelCacheStamp)
}

// Refresh invalidates and immediately reloads from the API.
func (c *LabelCache) Refresh(ctx context.Context) error {
	if err := c.Invalidate(); err != nil {
		return err
	}
	return c.EnsureInitialized(ctx)
}

// Labels returns a copy of the cached labels, initializing if needed.
func (c *LabelCache) Labels(ctx context.Context) ([]gmail.Label, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLocked(ctx); err != nil {
		return nil, err
	}
	out := make([]gmail.Label, len(c.labels))
	copy(out, c.labels)
	return out, nil
}

func (c *LabelCache) rebuildMapLocked() {
	c.byName = make(map[string]string, len(c.labels))
	for _, l := range c.labels {
		c.byName[l.Name] = l.ID
	}
}

func (c *LabelCache) persistLocked() error {
	cached := make([]cachedLabel, 0, len(c.labels))
	for _, l := range c.labels {
		cached = append(cached, cachedLabel{ID: l.ID, Name: l.Name})
	}
	if err := c.store.Set(storage.KeyLabelCache, cached); err != nil {
		return err
	}
	return c.store.Set(storage.KeyLabelCacheStamp, time.Now().UnixMilli())
}

func (c *LabelCache) warn(ctx context.Context, msg string, err error) {
	if c.logger != nil {
		c.logger.WarnContext(ctx, msg, logging.Err(err))
	}
}

func (c *LabelCache) info(ctx context.Context, msg, label string) {
	if c.logger != nil {
		c.logger.InfoContext(ctx, msg, logging.Label(label))
	}
}
