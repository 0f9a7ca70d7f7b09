// Package pool implements the scoped arena the dispatcher core uses to back
// one moment's scratch data: a handle that can be asked for "slots"
// (Malloc) and released in bulk (Destroy), routing every slot request
// through an injectable Allocator so out-of-memory conditions can be
// simulated by tests without touching the Go heap directly.
package pool

import "sync"

// Allocator is the pluggable allocation hook. Production code never fails;
// tests install a failing variant to exercise the dispatcher's NoMemory
// paths without actually exhausting memory.
type Allocator interface {
	// Alloc reserves one slot of the given size (in abstract units — the
	// dispatcher always asks for 1) and returns a token identifying it.
	Alloc(size int) (Token, error)
	// Free releases a previously allocated token. Freeing an unknown or
	// already-freed token is a no-op.
	Free(Token)
}

// Token identifies one allocation made through an Allocator.
type Token uint64

// CountingAllocator is the default Allocator: it never fails and tracks the
// number of outstanding allocations, so property tests can assert that
// every Alloc is matched by exactly one Free.
type CountingAllocator struct {
	mu      sync.Mutex
	next    Token
	live    map[Token]struct{}
	allocs  int
	frees   int
}

// NewCountingAllocator returns a CountingAllocator ready for use.
func NewCountingAllocator() *CountingAllocator {
	return &CountingAllocator{live: make(map[Token]struct{})}
}

func (c *CountingAllocator) Alloc(size int) (Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next++
	t := c.next
	c.live[t] = struct{}{}
	c.allocs++
	return t, nil
}

func (c *CountingAllocator) Free(t Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.live[t]; !ok {
		return
	}
	delete(c.live, t)
	c.frees++
}

// Counts returns the number of Alloc calls observed so far and the number of
// Free calls that released a live token.
func (c *CountingAllocator) Counts() (allocs, frees int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.allocs, c.frees
}

// Outstanding returns the number of tokens allocated but not yet freed.
func (c *CountingAllocator) Outstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.live)
}

// FailingAllocator wraps another Allocator and fails the Nth call to Alloc
// (1-indexed) by returning its ErrNoMem error.
// Every other call is delegated to the wrapped Allocator. This is the Go
// equivalent of the C test suite's failing malloc hook.
type FailingAllocator struct {
	mu       sync.Mutex
	inner    Allocator
	calls    int
	failAt   int // 0 means never fail
	ErrNoMem error
}

// NewFailingAllocator wraps inner and fails the failAt'th call to Alloc.
// failAt == 0 disables failure injection.
func NewFailingAllocator(inner Allocator, failAt int, errNoMem error) *FailingAllocator {
	return &FailingAllocator{inner: inner, failAt: failAt, ErrNoMem: errNoMem}
}

// ArmFailure (re)arms the allocator to fail on the next Nth call, resetting
// the call counter.
func (f *FailingAllocator) ArmFailure(failAt int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAt = failAt
	f.calls = 0
}

func (f *FailingAllocator) Alloc(size int) (Token, error) {
	f.mu.Lock()
	f.calls++
	shouldFail := f.failAt > 0 && f.calls == f.failAt
	f.mu.Unlock()
	if shouldFail {
		return 0, f.ErrNoMem
	}
	return f.inner.Alloc(size)
}

func (f *FailingAllocator) Free(t Token) {
	f.inner.Free(t)
}

// Pool is a scoped arena: slots acquired via Malloc are all released at once
// by Destroy. One Pool backs exactly one moment for the lifetime of that
// moment's delivery.
type Pool struct {
	alloc Allocator
	slots []Token
}

// Create allocates a new Pool using alloc for its own bookkeeping slot and
// returns it, or an error if the allocator refused.
func Create(alloc Allocator) (*Pool, error) {
	tok, err := alloc.Alloc(1)
	if err != nil {
		return nil, err
	}
	p := &Pool{alloc: alloc}
	p.slots = append(p.slots, tok)
	return p, nil
}

// Malloc reserves one more slot from the pool's allocator, scoped to this
// pool's lifetime.
func (p *Pool) Malloc(size int) (Token, error) {
	tok, err := p.alloc.Alloc(size)
	if err != nil {
		return 0, err
	}
	p.slots = append(p.slots, tok)
	return tok, nil
}

// Strdup reserves a slot sized for s and returns a copy of s plus its
// token, a convenience for callbacks that need an owned copy of a string
// payload for the lifetime of the moment's pool.
func (p *Pool) Strdup(s string) (string, Token, error) {
	tok, err := p.Malloc(len(s))
	if err != nil {
		return "", 0, err
	}
	return s, tok, nil
}

// Destroy frees every slot reserved from this pool, in acquisition order.
// Destroy is idempotent; calling it twice is safe.
func (p *Pool) Destroy() {
	for _, tok := range p.slots {
		p.alloc.Free(tok)
	}
	p.slots = nil
}
