// Package metrics collects in-memory timings for the comparison engine.
package metrics

import (
	"math"
	"sync"
	"time"
)

// Operation names for the collector.
const (
	OpFetch       = "fetch"
	OpComparePair = "compare_pair"
	OpCompareMany = "compare_many"
	OpFindSimilar = "find_similar"
	OpPersist     = "persist"
)

// operations fixes the reporting order.
var operations = []string{OpFetch, OpComparePair, OpCompareMany, OpFindSimilar, OpPersist}

type stats struct {
	count    int64
	failures int64
	items    int64
	total    time.Duration
	min      time.Duration
	max      time.Duration
}

// OperationSnapshot holds computed stats for one operation.
type OperationSnapshot struct {
	Count          int64
	Failures       int64
	TotalItems     int64
	TotalTimeMs    int64
	AvgTimeMs      float64
	MinTimeMs      int64
	MaxTimeMs      int64
	ItemsPerSecond float64
}

// Snapshot is the engine statistics at a point in time. Operations that
// never ran are nil.
type Snapshot struct {
	UptimeSeconds float64
	Fetch         *OperationSnapshot
	ComparePair   *OperationSnapshot
	CompareMany   *OperationSnapshot
	FindSimilar   *OperationSnapshot
	Persist       *OperationSnapshot
}

// Each calls fn for every operation that ran, in a fixed order.
func (s Snapshot) Each(fn func(op string, snap *OperationSnapshot)) {
	for _, op := range operations {
		if snap := s.get(op); snap != nil {
			fn(op, snap)
		}
	}
}

func (s Snapshot) get(op string) *OperationSnapshot {
	switch op {
	case OpFetch:
		return s.Fetch
	case OpComparePair:
		return s.ComparePair
	case OpCompareMany:
		return s.CompareMany
	case OpFindSimilar:
		return s.FindSimilar
	case OpPersist:
		return s.Persist
	}
	return nil
}

// Collector aggregates timings per operation. All methods are thread-safe.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*stats
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*stats),
	}
}

// Record adds one run of op that took duration, touched items entities or
// pairs, and failed when err is non-nil.
func (c *Collector) Record(op string, duration time.Duration, items int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.ops[op]
	if !ok {
		s = &stats{min: time.Duration(math.MaxInt64)}
		c.ops[op] = s
	}
	s.count++
	s.items += int64(items)
	s.total += duration
	s.min = min(s.min, duration)
	s.max = max(s.max, duration)
	if err != nil {
		s.failures++
	}
}

func (s *stats) snapshot() *OperationSnapshot {
	if s == nil || s.count == 0 {
		return nil
	}
	snap := &OperationSnapshot{
		Count:       s.count,
		Failures:    s.failures,
		TotalItems:  s.items,
		TotalTimeMs: s.total.Milliseconds(),
		AvgTimeMs:   float64(s.total.Milliseconds()) / float64(s.count),
		MinTimeMs:   s.min.Milliseconds(),
		MaxTimeMs:   s.max.Milliseconds(),
	}
	if secs := s.total.Seconds(); secs > 0 {
		snap.ItemsPerSecond = float64(s.items) / secs
	}
	return snap
}

// Snapshot returns a point-in-time copy of all metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		Fetch:         c.ops[OpFetch].snapshot(),
		ComparePair:   c.ops[OpComparePair].snapshot(),
		CompareMany:   c.ops[OpCompareMany].snapshot(),
		FindSimilar:   c.ops[OpFindSimilar].snapshot(),
		Persist:       c.ops[OpPersist].snapshot(),
	}
}
