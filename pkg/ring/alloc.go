package ring

import (
	"sync"

	"github.com/pkg/errors"
)

// An Allocator provides the backing storage of rings.
type Allocator interface {
	Alloc(size int) ([]byte, error)
	Free(buf []byte)
}

// HeapAllocator allocates from the Go heap. Free is a no-op.
var HeapAllocator Allocator = heapAllocator{}

type heapAllocator struct{}

func (heapAllocator) Alloc(size int) (buf []byte, err error) {
	if size < 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "negative allocation size %d", size)
	}
	// make panics with a runtime error on lengths it cannot satisfy
	defer func() {
		if r := recover(); r != nil {
			buf = nil
			err = errors.Wrapf(ErrOutOfMemory, "allocating %d bytes: %v", size, r)
		}
	}()
	return make([]byte, size), nil
}

func (heapAllocator) Free([]byte) {}

// Budget is an Allocator that refuses to hand out more than limit bytes in total.
// Freed buffers return their size to the budget. It is safe for concurrent use.
type Budget struct {
	mu    sync.Mutex
	limit int
	used  int
	next  Allocator
}

// NewBudget returns a Budget of limit bytes drawing from the heap.
func NewBudget(limit int) *Budget {
	return &Budget{limit: limit, next: HeapAllocator}
}

func (b *Budget) Alloc(size int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if size > b.limit-b.used {
		return nil, errors.Wrapf(ErrOutOfMemory, "allocating %d bytes with %d of %d in use", size, b.used, b.limit)
	}
	buf, err := b.next.Alloc(size)
	if err != nil {
		return nil, err
	}
	b.used += size
	return buf, nil
}

func (b *Budget) Free(buf []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.used -= cap(buf)
	b.next.Free(buf)
}

// InUse reports the number of bytes currently allocated.
func (b *Budget) InUse() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used
}

// Limit reports the budget's ceiling.
func (b *Budget) Limit() int {
	return b.limit
}
