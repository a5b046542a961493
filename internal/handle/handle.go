// Package handle issues opaque local references for fetched resources.
//
// A Handle stands in for a resource inside a rewritten document. Handles
// are allocated from a Store, filled with content once it is known, and
// released when the document that owns them is unloaded.
package handle

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Prefix starts every handle string.
const Prefix = "blob:epubfetch/"

// Sentinel errors for handle operations.
var (
	// ErrUnknownHandle indicates the handle was never allocated or has been released.
	ErrUnknownHandle = errors.New("unknown handle")

	// ErrNotFilled indicates the handle was allocated but has no content yet.
	ErrNotFilled = errors.New("handle has no content")

	// ErrScopeReleased indicates an allocation on a scope that was already released.
	ErrScopeReleased = errors.New("handle scope released")
)

// Handle is an opaque reference to stored content.
type Handle string

// String returns the handle as it appears in rewritten markup.
func (h Handle) String() string {
	return string(h)
}

// IsHandle reports whether s has the shape of a handle.
func IsHandle(s string) bool {
	return strings.HasPrefix(s, Prefix) && len(s) > len(Prefix)
}

// Resource is the content behind a handle.
type Resource struct {
	Data        []byte
	ContentType string
}

type slot struct {
	res    Resource
	filled bool
}

// Store holds handle contents. It is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	slots map[Handle]*slot
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{slots: make(map[Handle]*slot)}
}

// Allocate reserves a new, empty handle.
func (s *Store) Allocate() Handle {
	h := Handle(Prefix + uuid.NewString())

	s.mu.Lock()
	s.slots[h] = &slot{}
	s.mu.Unlock()
	return h
}

// Fill sets the content of an allocated handle. Filling twice replaces the
// content: a stylesheet handle is allocated on fetch and filled again once
// its imports are rewritten.
func (s *Store) Fill(h Handle, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl, ok := s.slots[h]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	sl.res = Resource{Data: data, ContentType: contentType}
	sl.filled = true
	return nil
}

// Open returns the content of a handle.
func (s *Store) Open(h Handle) (Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sl, ok := s.slots[h]
	if !ok {
		return Resource{}, fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	if !sl.filled {
		return Resource{}, fmt.Errorf("%w: %s", ErrNotFilled, h)
	}
	return sl.res, nil
}

// Release drops a handle and its content. Releasing an unknown handle is a no-op.
func (s *Store) Release(h Handle) {
	s.mu.Lock()
	delete(s.slots, h)
	s.mu.Unlock()
}

// Len returns the number of live handles.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slots)
}

// Scope tracks the handles allocated on behalf of one document so they can
// be released together when the document is unloaded.
type Scope struct {
	store *Store

	mu       sync.Mutex
	handles  []Handle
	released bool
}

// NewScope creates a scope over the store.
func (s *Store) NewScope() *Scope {
	return &Scope{store: s}
}

// Store returns the store backing the scope.
func (sc *Scope) Store() *Store {
	return sc.store
}

// Allocate reserves a handle owned by the scope.
func (sc *Scope) Allocate() (Handle, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.released {
		return "", ErrScopeReleased
	}
	h := sc.store.Allocate()
	sc.handles = append(sc.handles, h)
	return h, nil
}

// Handles returns the handles owned by the scope, sorted.
func (sc *Scope) Handles() []Handle {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	out := append([]Handle(nil), sc.handles...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Owns reports whether h was allocated by the scope and not yet released.
func (sc *Scope) Owns(h Handle) bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	for _, owned := range sc.handles {
		if owned == h {
			return true
		}
	}
	return false
}

// Release releases every handle owned by the scope. It is idempotent.
func (sc *Scope) Release() {
	sc.mu.Lock()
	handles := sc.handles
	sc.handles = nil
	sc.released = true
	sc.mu.Unlock()

	for _, h := range handles {
		sc.store.Release(h)
	}
}
