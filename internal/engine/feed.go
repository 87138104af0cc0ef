package engine

import (
	"sync/atomic"
	"time"

	"github.com/mr1hm/hazard-monitor/internal/models"
)

// FeedSnapshot is one fetched point-event feed. It is never mutated after Store.
type FeedSnapshot struct {
	Quakes    []models.Quake
	FetchedAt time.Time
}

// FeedCache holds the last point-event feed. It is written by the seismic
// loop, read by the weather loop and the API, and empty after a restart.
// Each Store replaces the whole snapshot in a single atomic assignment.
type FeedCache struct {
	snapshot atomic.Pointer[FeedSnapshot]
}

func NewFeedCache() *FeedCache {
	return &FeedCache{}
}

func (c *FeedCache) Store(quakes []models.Quake, fetchedAt time.Time) {
	cp := make([]models.Quake, len(quakes))
	copy(cp, quakes)
	c.snapshot.Store(&FeedSnapshot{Quakes: cp, FetchedAt: fetchedAt})
}

// Load returns the current snapshot or nil.
func (c *FeedCache) Load() *FeedSnapshot {
	return c.snapshot.Load()
}

// Fresh returns the snapshot only if it is no older than maxAge at now.
// A non-positive maxAge accepts any age.
func (c *FeedCache) Fresh(now time.Time, maxAge time.Duration) *FeedSnapshot {
	s := c.snapshot.Load()
	if s == nil {
		return nil
	}
	if maxAge > 0 && now.Sub(s.FetchedAt) > maxAge {
		return nil
	}
	return s
}
