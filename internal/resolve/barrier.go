package resolve

import "sync"

// JoinBarrier counts outstanding operations and runs a continuation exactly
// once when all of them have settled.
//
// Failure is not a barrier concept: an operation settles whether it
// succeeded or not, and the continuation always waits for every one.
type JoinBarrier struct {
	mu      sync.Mutex
	pending int
	fired   bool
	then    func()
	done    chan struct{}
}

// NewJoinBarrier creates a barrier for n operations. With n == 0 the
// continuation runs before NewJoinBarrier returns.
func NewJoinBarrier(n int, then func()) *JoinBarrier {
	if n < 0 {
		panic("resolve: negative JoinBarrier count")
	}
	b := &JoinBarrier{pending: n, then: then, done: make(chan struct{})}
	if n == 0 {
		b.fired = true
		b.fire()
	}
	return b
}

// Add registers n more operations. It must be called by an operation that
// has not settled yet, so the count cannot reach zero in between.
// Adding to a barrier that already fired panics.
func (b *JoinBarrier) Add(n int) {
	if n < 0 {
		panic("resolve: negative JoinBarrier.Add")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fired {
		panic("resolve: JoinBarrier.Add after continuation fired")
	}
	b.pending += n
}

// Settle marks one operation as finished. The goroutine that settles the
// last operation runs the continuation. Settling more often than operations
// were registered panics.
func (b *JoinBarrier) Settle() {
	b.mu.Lock()
	if b.fired || b.pending <= 0 {
		b.mu.Unlock()
		panic("resolve: JoinBarrier settled too many times")
	}
	b.pending--
	last := b.pending == 0
	if last {
		b.fired = true
	}
	b.mu.Unlock()

	if last {
		b.fire()
	}
}

// Pending returns the number of operations not yet settled.
func (b *JoinBarrier) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending
}

// Done is closed after the continuation has returned.
func (b *JoinBarrier) Done() <-chan struct{} {
	return b.done
}

func (b *JoinBarrier) fire() {
	defer close(b.done)
	if b.then != nil {
		b.then()
	}
}
