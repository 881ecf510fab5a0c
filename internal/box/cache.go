package box

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Source is what the view cache reads from and writes through.
type Source interface {
	GetAllBoxes(ctx context.Context) ([]Box, error)
	SaveBox(ctx context.Context, in Input) (Box, error)
}

// ViewCache is the in-memory copy of all records that the pages render from.
// It is refreshed by Load and appended to by Save. Records saved while a Load
// is reading are kept after it finishes.
type ViewCache struct {
	src   Source
	log   *zap.Logger
	group singleflight.Group

	mu     sync.RWMutex
	boxes  []Box
	loaded bool
	seq    uint64
	recent []savedBox
}

type savedBox struct {
	seq uint64
	box Box
}

func NewViewCache(src Source, log *zap.Logger) *ViewCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &ViewCache{src: src, log: log}
}

// Load replaces the cached copy with the stored list. Concurrent calls share
// one read. On failure the previous copy is kept.
func (c *ViewCache) Load(ctx context.Context) error {
	v, err, shared := c.group.Do("load", func() (any, error) {
		c.mu.RLock()
		start := c.seq
		c.mu.RUnlock()

		boxes, err := c.src.GetAllBoxes(ctx)
		if err != nil {
			return nil, err
		}
		c.replace(boxes, start)
		return len(boxes), nil
	})
	if err != nil {
		c.log.Error("failed to load boxes", zap.Error(err))
		return err
	}
	c.log.Debug("boxes loaded", zap.Int("count", v.(int)), zap.Bool("shared", shared))
	return nil
}

// replace installs a list read after save number start had completed. Saves
// numbered later may be missing from it and are appended.
func (c *ViewCache) replace(boxes []Box, start uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]struct{}, len(boxes))
	for _, b := range boxes {
		seen[b.ID] = struct{}{}
	}
	next := append([]Box(nil), boxes...)
	keep := c.recent[:0]
	for _, s := range c.recent {
		if s.seq <= start {
			continue
		}
		keep = append(keep, s)
		if _, ok := seen[s.box.ID]; !ok {
			next = append(next, s.box)
		}
	}
	c.recent = keep
	c.boxes = next
	c.loaded = true
}

// Save persists through the source and appends the created record.
func (c *ViewCache) Save(ctx context.Context, in Input) (Box, error) {
	b, err := c.src.SaveBox(ctx, in)
	if err != nil {
		c.log.Error("failed to save box", zap.Error(err))
		return Box{}, err
	}
	c.mu.Lock()
	c.seq++
	c.recent = append(c.recent, savedBox{seq: c.seq, box: b})
	c.boxes = append(c.boxes, b)
	c.mu.Unlock()
	return b, nil
}

// All returns a copy of the cached records in insertion order.
func (c *ViewCache) All() []Box {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Box(nil), c.boxes...)
}

// Loaded reports whether a Load has ever succeeded.
func (c *ViewCache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}
