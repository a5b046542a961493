package handle

import (
	"errors"
	"sync"
	"testing"
)

// ---------------------------------------------------------------------------
// Store
// ---------------------------------------------------------------------------

func TestStore_AllocateFillOpen(t *testing.T) {
	t.Parallel()

	s := NewStore()
	h := s.Allocate()

	if !IsHandle(h.String()) {
		t.Fatalf("Allocate() = %q, want %q prefix", h, Prefix)
	}

	if _, err := s.Open(h); !errors.Is(err, ErrNotFilled) {
		t.Errorf("Open() before Fill error = %v, want ErrNotFilled", err)
	}

	if err := s.Fill(h, []byte("body{}"), "text/css"); err != nil {
		t.Fatalf("Fill() error = %v", err)
	}

	res, err := s.Open(h)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if string(res.Data) != "body{}" || res.ContentType != "text/css" {
		t.Errorf("Open() = %q/%q, want body{}/text/css", res.Data, res.ContentType)
	}
}

func TestStore_FillReplacesContent(t *testing.T) {
	t.Parallel()

	s := NewStore()
	h := s.Allocate()
	_ = s.Fill(h, []byte("before"), "text/css")
	_ = s.Fill(h, []byte("after"), "text/css")

	res, err := s.Open(h)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if string(res.Data) != "after" {
		t.Errorf("Open() = %q, want %q", res.Data, "after")
	}
}

func TestStore_Release(t *testing.T) {
	t.Parallel()

	s := NewStore()
	h := s.Allocate()
	_ = s.Fill(h, []byte("x"), "image/png")

	s.Release(h)

	if _, err := s.Open(h); !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("Open() after Release error = %v, want ErrUnknownHandle", err)
	}
	if err := s.Fill(h, nil, ""); !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("Fill() after Release error = %v, want ErrUnknownHandle", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}

	s.Release(h) // no-op
}

func TestStore_AllocateUnique(t *testing.T) {
	t.Parallel()

	s := NewStore()
	seen := make(map[Handle]bool)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h := s.Allocate()
			mu.Lock()
			seen[h] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != 50 {
		t.Errorf("allocated %d distinct handles, want 50", len(seen))
	}
}

func TestIsHandle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{Prefix + "abc", true},
		{Prefix, false},
		{"blob:other/abc", false},
		{"images/a.png", false},
	}

	for _, tt := range tests {
		if got := IsHandle(tt.in); got != tt.want {
			t.Errorf("IsHandle(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Scope
// ---------------------------------------------------------------------------

func TestScope_Release(t *testing.T) {
	t.Parallel()

	s := NewStore()
	other := s.Allocate()
	sc := s.NewScope()

	a, err := sc.Allocate()
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	b, _ := sc.Allocate()
	_ = s.Fill(a, []byte("a"), "")
	_ = s.Fill(b, []byte("b"), "")

	if got := len(sc.Handles()); got != 2 {
		t.Fatalf("Handles() has %d items, want 2", got)
	}

	sc.Release()
	sc.Release()

	for _, h := range []Handle{a, b} {
		if _, err := s.Open(h); !errors.Is(err, ErrUnknownHandle) {
			t.Errorf("Open(%s) after scope release error = %v, want ErrUnknownHandle", h, err)
		}
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (handle outside scope kept)", s.Len())
	}
	if _, err := s.Open(other); !errors.Is(err, ErrNotFilled) {
		t.Errorf("Open(other) error = %v, want ErrNotFilled", err)
	}
	if _, err := sc.Allocate(); !errors.Is(err, ErrScopeReleased) {
		t.Errorf("Allocate() after release error = %v, want ErrScopeReleased", err)
	}
}

func TestScope_Owns(t *testing.T) {
	t.Parallel()

	s := NewStore()
	sc := s.NewScope()
	other := s.NewScope()

	h, _ := sc.Allocate()
	foreign, _ := other.Allocate()

	if !sc.Owns(h) {
		t.Error("Owns(own handle) = false, want true")
	}
	if sc.Owns(foreign) {
		t.Error("Owns(handle of another scope) = true, want false")
	}

	sc.Release()
	if sc.Owns(h) {
		t.Error("Owns() after Release = true, want false")
	}
}
