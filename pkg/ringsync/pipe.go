// Package ringsync provides a goroutine-safe pipe on top of a ringvec.Vec.
//
// Unlike the core ring types, a Pipe may be filled and drained from two
// different goroutines. Cursor updates happen under a mutex; the bytes
// themselves are copied into and out of the vector's own storage outside of it,
// which is safe because the producer only ever touches free space and the
// consumer only ever touches buffered bytes.
package ringsync

import (
	"io"
	"sync"

	"zcring/pkg/ringio"
	"zcring/pkg/ringvec"

	"github.com/pkg/errors"
)

var ErrClosed = errors.New("pipe closed")

type Pipe struct {
	mu sync.Mutex
	v  *ringvec.Vec

	readable sync.Cond // signalled when bytes are produced or the write side closes
	writable sync.Cond // signalled when bytes are consumed or the read side closes

	chunk int

	writeClosed bool
	readClosed  bool
	err         error
}

// NewPipe wraps v. chunk bounds each fill or drain step; zero means one slot.
// v must not be used directly while the pipe is in use.
func NewPipe(v *ringvec.Vec, chunk int) *Pipe {
	if chunk <= 0 {
		chunk = v.SlotSize()
	}
	p := &Pipe{v: v, chunk: chunk}
	p.readable.L = &p.mu
	p.writable.L = &p.mu
	return p
}

// ReadFrom fills the pipe from r until r returns io.EOF, which closes the write
// side, or another error, which closes the pipe with that error. It blocks while
// the vector is full and cannot grow, whether at its slot maximum or because a
// growth step failed.
func (p *Pipe) ReadFrom(r io.Reader) (int64, error) {
	var total int64
	fill := ringio.FromReader(r)
	for {
		p.mu.Lock()
		bufs, err := p.reserveLocked()
		p.mu.Unlock()
		if err != nil {
			if !errors.Is(err, ErrClosed) {
				p.CloseWithError(err)
			}
			return total, err
		}

		n, rerr := fill(bufs)
		p.mu.Lock()
		p.v.Produced(n)
		if n > 0 {
			p.readable.Signal()
		}
		p.mu.Unlock()
		total += int64(n)

		if rerr == io.EOF {
			return total, p.CloseWrite()
		}
		if rerr != nil {
			p.CloseWithError(rerr)
			return total, rerr
		}
	}
}

func (p *Pipe) reserveLocked() ([][]byte, error) {
	for {
		if p.readClosed || p.writeClosed {
			return nil, ErrClosed
		}
		// A producer slot that holds data can be drained concurrently, which
		// would change how Produced splits the count across slots. Keep the
		// reservation inside that slot.
		size := p.chunk
		if a := p.v.SlotAvail(); a > 0 && a < p.v.SlotSize() {
			size = min(size, a)
		}
		bufs, err := p.v.PeekProducer(0, size)
		if len(bufs) > 0 {
			return bufs, nil
		}
		// A failed growth step is treated like the slot maximum while the
		// consumer still has bytes to drain.
		if err != nil && p.v.IsEmpty() {
			return nil, err
		}
		p.writable.Wait()
	}
}

// WriteTo drains the pipe into w until the write side is closed and everything
// buffered has been written. It returns the error the pipe was closed with, if any.
func (p *Pipe) WriteTo(w io.Writer) (int64, error) {
	var total int64
	drain := ringio.ToWriter(w)
	for {
		p.mu.Lock()
		for p.v.IsEmpty() && !p.writeClosed && !p.readClosed {
			p.readable.Wait()
		}
		if p.readClosed || p.v.IsEmpty() {
			err := p.err
			p.mu.Unlock()
			return total, err
		}
		bufs := p.v.PeekConsumer(0, p.chunk)
		p.mu.Unlock()

		n, werr := drain(bufs)
		p.mu.Lock()
		p.v.Consumed(n)
		if n > 0 {
			p.writable.Signal()
		}
		p.mu.Unlock()
		total += int64(n)

		if werr != nil {
			p.closeRead(werr)
			return total, werr
		}
	}
}

// CloseWrite marks the end of input. Buffered bytes can still be drained.
func (p *Pipe) CloseWrite() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeClosed = true
	p.readable.Broadcast()
	p.writable.Broadcast()
	return nil
}

// CloseWithError closes both sides; WriteTo returns err once it notices.
func (p *Pipe) CloseWithError(err error) {
	p.closeRead(err)
}

func (p *Pipe) closeRead(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err == nil {
		p.err = err
	}
	p.readClosed = true
	p.writeClosed = true
	p.readable.Broadcast()
	p.writable.Broadcast()
}

// Used reports the number of buffered bytes.
func (p *Pipe) Used() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.v.Used()
}

// Slots reports the vector's current slot count.
func (p *Pipe) Slots() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.v.Slots()
}
