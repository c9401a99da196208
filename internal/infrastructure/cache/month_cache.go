// Package cache keeps the per-month payroll preview snapshots for a session.
package cache

import (
	"time"

	"github.com/garyjia/payroll-preview/internal/domain/entity"
)

// DefaultTTL is how long a month snapshot is served without refetching
const DefaultTTL = 5 * time.Minute

// Config holds MonthCache settings
type Config struct {
	// TTL is the freshness window; zero means DefaultTTL
	TTL time.Duration

	// Clock returns the current time; nil means time.Now
	Clock func() time.Time
}

// MonthCache stores one CacheEntry per month key.
// It is not safe for concurrent use; the owning service serialises access.
type MonthCache struct {
	entries map[string]*entity.CacheEntry
	seq     map[string]uint64
	ttl     time.Duration
	clock   func() time.Time
}

// NewMonthCache creates an empty cache
func NewMonthCache(cfg Config) *MonthCache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &MonthCache{
		entries: make(map[string]*entity.CacheEntry),
		seq:     make(map[string]uint64),
		ttl:     cfg.TTL,
		clock:   cfg.Clock,
	}
}

// Get returns the entry for month, or nil
func (c *MonthCache) Get(month string) *entity.CacheEntry {
	return c.entries[month]
}

// Put stores a new snapshot for month and returns its entry.
// An existing entry is updated in place. Fully-loaded markers already on the
// entry, on previous, and in newlyLoaded are all kept.
func (c *MonthCache) Put(month string, employees []entity.EmployeeRecord, total int, previous *entity.CacheEntry, newlyLoaded ...string) *entity.CacheEntry {
	entry, ok := c.entries[month]
	if !ok {
		entry = &entity.CacheEntry{FullyLoadedIDs: make(map[string]struct{})}
		c.entries[month] = entry
	}
	if entry.FullyLoadedIDs == nil {
		entry.FullyLoadedIDs = make(map[string]struct{})
	}

	if previous != nil && previous != entry {
		for id := range previous.FullyLoadedIDs {
			entry.FullyLoadedIDs[id] = struct{}{}
		}
	}
	for _, id := range newlyLoaded {
		entry.FullyLoadedIDs[id] = struct{}{}
	}

	entry.Employees = employees
	entry.Total = total
	entry.CapturedAt = c.clock()

	return entry
}

// IsFresh reports whether entry exists and is younger than the TTL
func (c *MonthCache) IsFresh(entry *entity.CacheEntry) bool {
	if entry == nil || entry.CapturedAt.IsZero() {
		return false
	}
	return c.clock().Sub(entry.CapturedAt) < c.ttl
}

// MarkFullyLoaded records that full detail for employeeID in month has been fetched.
// A month with no entry gets an empty, already-stale one so the marker is kept.
func (c *MonthCache) MarkFullyLoaded(month, employeeID string) {
	entry, ok := c.entries[month]
	if !ok {
		entry = &entity.CacheEntry{}
		c.entries[month] = entry
	}
	if entry.FullyLoadedIDs == nil {
		entry.FullyLoadedIDs = make(map[string]struct{})
	}
	entry.FullyLoadedIDs[employeeID] = struct{}{}
}

// NextSeq issues the next load sequence number for month
func (c *MonthCache) NextSeq(month string) uint64 {
	c.seq[month]++
	return c.seq[month]
}

// IsLatest reports whether seq is the newest number issued for month
func (c *MonthCache) IsLatest(month string, seq uint64) bool {
	return c.seq[month] == seq
}

// TTL returns the freshness window
func (c *MonthCache) TTL() time.Duration {
	return c.ttl
}
