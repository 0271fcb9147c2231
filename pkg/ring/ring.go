// Package ring implements a fixed-capacity circular byte buffer that hands out
// slices of its own storage for in-place reads and writes.
//
// A Ring is not safe for concurrent use. It is meant for exactly one producer
// and one consumer; if they run on different goroutines the caller must order
// the calls, e.g. with a mutex (see package ringsync).
package ring

import (
	"github.com/pkg/errors"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrOutOfMemory     = errors.New("out of memory")
)

// ------|++++++++++++++++|--------------------|
//      out&mask        in&mask            capacity
//
// in and out only ever increase. The physical index of a logical position is
// pos & mask, and in-out is the number of used bytes. 64-bit cursors make
// overflow unreachable in practice: it takes 2^64 bytes of traffic to wrap.

type Ring struct {
	buff  []byte
	size  uint64
	mask  uint64
	in    uint64
	out   uint64
	alloc Allocator
}

type options struct {
	alloc Allocator
}

type Option func(*options)

// WithAllocator makes the ring take its storage from a.
func WithAllocator(a Allocator) Option {
	return func(o *options) {
		o.alloc = a
	}
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// New creates a ring of the given capacity, which must be a power of two.
func New(capacity int, opts ...Option) (*Ring, error) {
	o := options{alloc: HeapAllocator}
	for _, opt := range opts {
		opt(&o)
	}

	if !IsPowerOfTwo(capacity) {
		return nil, errors.Wrapf(ErrInvalidArgument, "ring capacity %d is not a power of two", capacity)
	}
	buff, err := o.alloc.Alloc(capacity)
	if err != nil {
		return nil, errors.Wrap(err, "ring storage")
	}
	return &Ring{
		buff:  buff,
		size:  uint64(capacity),
		mask:  uint64(capacity - 1),
		alloc: o.alloc,
	}, nil
}

// Reinit discards the content by resetting both cursors. Storage is kept.
func (r *Ring) Reinit() {
	r.in, r.out = 0, 0
}

// Release hands the storage back to the allocator. The ring must not be used afterwards.
func (r *Ring) Release() {
	if r.buff == nil {
		return
	}
	r.alloc.Free(r.buff)
	r.buff = nil
	r.in, r.out = 0, 0
}

func (r *Ring) Cap() int   { return int(r.size) }
func (r *Ring) Used() int  { return int(r.in - r.out) }
func (r *Ring) Avail() int { return int(r.size - (r.in - r.out)) }

func (r *Ring) IsEmpty() bool { return r.in == r.out }
func (r *Ring) IsFull() bool  { return r.in-r.out == r.size }

// Put copies as much of p as fits and returns the number of bytes written.
func (r *Ring) Put(p []byte) int {
	n := 0
	for n < len(p) {
		run := r.PeekProducer(n, len(p)-n)
		if len(run) == 0 {
			break
		}
		n += copy(run, p[n:])
	}
	r.in += uint64(n)
	return n
}

// Get copies up to len(p) buffered bytes into p and returns the number of bytes read.
func (r *Ring) Get(p []byte) int {
	n := r.peek(p)
	r.out += uint64(n)
	return n
}

// GetAll drains the ring into a newly allocated slice. An empty ring yields nil.
func (r *Ring) GetAll() (buf []byte, err error) {
	if r.IsEmpty() {
		return nil, nil
	}
	buf, err = HeapAllocator.Alloc(r.Used())
	if err != nil {
		return nil, errors.Wrap(err, "draining ring")
	}
	return buf[:r.Get(buf)], nil
}

// Bytes returns a copy of the buffered content without consuming it.
func (r *Ring) Bytes() []byte {
	if r.IsEmpty() {
		return nil
	}
	buf := make([]byte, r.Used())
	return buf[:r.peek(buf)]
}

func (r *Ring) peek(p []byte) int {
	n := 0
	for n < len(p) {
		run := r.PeekConsumer(n, len(p)-n)
		if len(run) == 0 {
			break
		}
		n += copy(p[n:], run)
	}
	return n
}

// PeekConsumer returns the run of buffered bytes that starts offset bytes past
// the consumer cursor. The run holds at most max bytes and never crosses the
// end of the storage, so a second call at offset+len(run) may return more.
// The slice is valid until the next call that moves a cursor.
func (r *Ring) PeekConsumer(offset, max int) []byte {
	if offset < 0 || max <= 0 || offset >= r.Used() {
		return nil
	}
	pos := r.out + uint64(offset)
	return r.run(pos, r.in-pos, max)
}

// PeekProducer is PeekConsumer for free space: the run starts offset bytes past
// the producer cursor. Bytes written into it become visible after Produced.
func (r *Ring) PeekProducer(offset, max int) []byte {
	if offset < 0 || max <= 0 || offset >= r.Avail() {
		return nil
	}
	pos := r.in + uint64(offset)
	return r.run(pos, r.out+r.size-pos, max)
}

func (r *Ring) run(pos, left uint64, max int) []byte {
	idx := pos & r.mask
	n := min(uint64(max), left, r.size-idx)
	return r.buff[idx : idx+n : idx+n]
}

// Produced publishes n bytes written into runs from PeekProducer.
// n must not exceed what those runs covered; this is not checked. A negative n
// publishes nothing.
func (r *Ring) Produced(n int) {
	if n <= 0 {
		return
	}
	r.in += uint64(n)
}

// Consumed releases n bytes that were read through PeekConsumer.
// n must not exceed Used(); this is not checked. A negative n releases nothing.
func (r *Ring) Consumed(n int) {
	if n <= 0 {
		return
	}
	r.out += uint64(n)
}
