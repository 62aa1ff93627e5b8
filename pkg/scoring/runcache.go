package scoring

import (
	"fmt"
	"time"

	"topicrank/pkg/provider"
)

// RunCache deduplicates external lookups within one batch invocation.
// It is never persisted and never shared across runs: callers build a
// fresh cache per run and pass it into every per-topic computation.
type RunCache struct {
	totals      map[string]provider.Totals
	recentWorks map[string]int64
	titles      map[string]titleEntry
	views       map[string]int64
}

type titleEntry struct {
	title string
	found bool
}

// NewRunCache returns an empty cache.
func NewRunCache() *RunCache {
	return &RunCache{
		totals:      make(map[string]provider.Totals),
		recentWorks: make(map[string]int64),
		titles:      make(map[string]titleEntry),
		views:       make(map[string]int64),
	}
}

func windowKey(key string, from, to time.Time) string {
	return fmt.Sprintf("%s|%s|%s", key, from.Format("2006-01-02"), to.Format("2006-01-02"))
}

// Totals returns cached cumulative counts for an external key.
func (c *RunCache) Totals(key string) (provider.Totals, bool) {
	t, ok := c.totals[key]
	return t, ok
}

func (c *RunCache) PutTotals(key string, t provider.Totals) {
	c.totals[key] = t
}

// RecentWorks returns the cached recent-works count for a key and window.
func (c *RunCache) RecentWorks(key string, from, to time.Time) (int64, bool) {
	n, ok := c.recentWorks[windowKey(key, from, to)]
	return n, ok
}

func (c *RunCache) PutRecentWorks(key string, from, to time.Time, n int64) {
	c.recentWorks[windowKey(key, from, to)] = n
}

// Title returns the cached title resolution for a topic name. found
// reports whether resolution produced a title; ok whether an attempt
// was cached at all.
func (c *RunCache) Title(name string) (title string, found, ok bool) {
	e, ok := c.titles[name]
	return e.title, e.found, ok
}

func (c *RunCache) PutTitle(name, title string, found bool) {
	c.titles[name] = titleEntry{title: title, found: found}
}

// Views returns the cached page-view total for a title and window.
func (c *RunCache) Views(title string, from, to time.Time) (int64, bool) {
	v, ok := c.views[windowKey(title, from, to)]
	return v, ok
}

func (c *RunCache) PutViews(title string, from, to time.Time, v int64) {
	c.views[windowKey(title, from, to)] = v
}
