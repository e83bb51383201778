// Package cache bounds a recent-segment working set in memory, so the
// realtime orchestrator can tell a fresh estimate from a repeat and an
// EST-to-ACTUAL upgrade from a no-op.
package cache

import (
	"container/list"
	"sync"

	"github.com/railsignal/raildelay/model"
)

// SegmentState is the cached view of one segment's most recent
// touch: the last departure time seen, the time-source kind it came
// from, and whether that segment's ACTUAL row has been durably saved.
type SegmentState struct {
	LastDepTime  string
	LastKind     model.DepTimeKind
	ActualSaved  bool
	lastSeenTick int64
}

// entry is the value stored in the backing list; elem.Value is *entry.
type entry struct {
	key   model.SegID
	state SegmentState
}

// Recent is a bounded, insertion-ordered (LRU-on-touch) cache keyed by
// segment id. Touching a segment moves it to the most-recently-used
// end; once the cache exceeds MaxSize entries the least-recently-used
// ones are evicted. Safe for concurrent use.
type Recent struct {
	maxSize int

	mu    sync.Mutex
	tick  int64
	order *list.List
	byKey map[model.SegID]*list.Element
}

const defaultMaxSize = 500

// New returns a Recent cache bounded to maxSize entries. A maxSize of
// 0 or less falls back to the default of 500.
func New(maxSize int) *Recent {
	if maxSize <= 0 {
		maxSize = defaultMaxSize
	}
	return &Recent{
		maxSize: maxSize,
		order:   list.New(),
		byKey:   map[model.SegID]*list.Element{},
	}
}

// Touch upserts the state for segID, marks it as most recently used,
// and returns the resulting state by value. A segment that arrives
// with hasActual true always ends up recorded as DepKindActual,
// regardless of the kind argument — once a segment's departure is
// confirmed actual it never reverts to an estimate.
func (c *Recent) Touch(segID model.SegID, depTime string, kind model.DepTimeKind, hasActual bool) SegmentState {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tick++

	elem, ok := c.byKey[segID]
	var e *entry
	if ok {
		e = elem.Value.(*entry)
		c.order.MoveToBack(elem)
	} else {
		e = &entry{key: segID}
		elem = c.order.PushBack(e)
		c.byKey[segID] = elem
	}

	e.state.LastDepTime = depTime
	e.state.LastKind = kind
	e.state.lastSeenTick = c.tick

	if hasActual && e.state.LastKind != model.DepKindActual {
		e.state.LastKind = model.DepKindActual
	}

	c.evict()

	return e.state
}

// MarkActualSaved records that segID's ACTUAL row has been durably
// written. It is a no-op if segID is not currently cached.
func (c *Recent) MarkActualSaved(segID model.SegID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.byKey[segID]
	if !ok {
		return
	}
	elem.Value.(*entry).state.ActualSaved = true
}

// Get returns the current cached state for segID, if any.
func (c *Recent) Get(segID model.SegID) (SegmentState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.byKey[segID]
	if !ok {
		return SegmentState{}, false
	}
	return elem.Value.(*entry).state, true
}

// Len reports the number of segments currently cached.
func (c *Recent) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// evict drops least-recently-used entries until the cache is back
// within MaxSize. Must be called with mu held.
func (c *Recent) evict() {
	for c.order.Len() > c.maxSize {
		front := c.order.Front()
		if front == nil {
			return
		}
		c.order.Remove(front)
		delete(c.byKey, front.Value.(*entry).key)
	}
}
