package resolve

import (
	"sync"

	"github.com/alnah/go-epubfetch/internal/handle"
)

// Context is the resolution state of one content document. It must not be
// shared between documents; Release ends its lifetime.
type Context struct {
	cache     *DedupCache
	processed *ProcessedSet
	scope     *handle.Scope
}

// NewContext creates the resolution state for one document. Handles are
// allocated from scope and released with it.
func NewContext(scope *handle.Scope) *Context {
	return &Context{
		cache:     NewDedupCache(),
		processed: NewProcessedSet(),
		scope:     scope,
	}
}

// Cache returns the document's DedupCache.
func (c *Context) Cache() *DedupCache {
	return c.cache
}

// Processed returns the document's ProcessedSet.
func (c *Context) Processed() *ProcessedSet {
	return c.processed
}

// Scope returns the handle scope owning the document's handles.
func (c *Context) Scope() *handle.Scope {
	return c.scope
}

// Release releases every handle the document allocated.
func (c *Context) Release() {
	c.scope.Release()
}

// cacheEntry is the fetch outcome for one canonical path. ready is closed
// once handle or err is set.
type cacheEntry struct {
	ready  chan struct{}
	handle handle.Handle
	err    error
}

// DedupCache maps canonical paths to handles. It never evicts.
//
// Besides plain Get and Put it lets concurrent references to the same path
// share one fetch: the first claimant owns the fetch, the others wait for
// its outcome.
type DedupCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
}

// NewDedupCache creates an empty cache.
func NewDedupCache() *DedupCache {
	return &DedupCache{entries: make(map[string]*cacheEntry)}
}

// Get returns the handle stored for path. Paths whose fetch is in flight or
// failed report false.
func (c *DedupCache) Get(path string) (handle.Handle, bool) {
	c.mu.Lock()
	e, ok := c.entries[path]
	c.mu.Unlock()
	if !ok {
		return "", false
	}

	select {
	case <-e.ready:
		return e.handle, e.err == nil
	default:
		return "", false
	}
}

// Put stores a handle for path. A path that already has an entry keeps it:
// there is one handle per path.
func (c *DedupCache) Put(path string, h handle.Handle) {
	if e, owner := c.claim(path); owner {
		e.settle(h, nil)
	}
}

// Len returns the number of paths claimed so far.
func (c *DedupCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Resolved returns the successfully fetched paths and their handles.
// In-flight and failed paths are left out.
func (c *DedupCache) Resolved() map[string]handle.Handle {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]handle.Handle, len(c.entries))
	for p, e := range c.entries {
		select {
		case <-e.ready:
			if e.err == nil {
				out[p] = e.handle
			}
		default:
		}
	}
	return out
}

// claim registers path before its fetch is issued. owner is true for the
// first claimant, which must settle the entry.
func (c *DedupCache) claim(path string) (*cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[path]; ok {
		return e, false
	}
	e := &cacheEntry{ready: make(chan struct{})}
	c.entries[path] = e
	return e, true
}

func (e *cacheEntry) settle(h handle.Handle, err error) {
	e.handle, e.err = h, err
	close(e.ready)
}

// wait blocks until the entry is settled and returns its outcome.
func (e *cacheEntry) wait() (handle.Handle, error) {
	<-e.ready
	return e.handle, e.err
}

// ProcessedSet records stylesheets already queued for expansion. It guards
// against import cycles.
type ProcessedSet struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

// NewProcessedSet creates an empty set.
func NewProcessedSet() *ProcessedSet {
	return &ProcessedSet{paths: make(map[string]struct{})}
}

// IsProcessed reports whether path was marked.
func (s *ProcessedSet) IsProcessed(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.paths[path]
	return ok
}

// MarkProcessed marks path.
func (s *ProcessedSet) MarkProcessed(path string) {
	s.markIfNew(path)
}

// markIfNew marks path and reports whether it was not marked before.
func (s *ProcessedSet) markIfNew(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.paths[path]; ok {
		return false
	}
	s.paths[path] = struct{}{}
	return true
}
