package ringvec

import (
	"zcring/pkg/ring"

	"github.com/pkg/errors"
)

// ViewLen returns the total number of bytes in a scatter/gather view.
func ViewLen(bufs [][]byte) int {
	n := 0
	for _, b := range bufs {
		n += len(b)
	}
	return n
}

// consumerEnd is one past the last slot cursor that may hold data. When every
// slot is in use the producer slot is the consumer slot and must not be walked twice.
func (v *Vec) consumerEnd() uint64 {
	if v.in-v.out == uint64(v.Slots()) {
		return v.in
	}
	return v.in + 1
}

// PeekConsumer returns up to max buffered bytes, starting offset bytes past the
// consumer cursor, as a list of runs in slot order. It never grows the vector.
// The runs are valid until the next call that moves a cursor or reinitializes.
func (v *Vec) PeekConsumer(offset, max int) [][]byte {
	if offset < 0 || max <= 0 {
		return nil
	}
	var bufs [][]byte
	end := v.consumerEnd()
	for idx := v.out; max > 0 && idx < end; idx++ {
		r := v.slot(idx)
		if used := r.Used(); offset >= used {
			offset -= used
			continue
		}
		for of := offset; max > 0; {
			b := r.PeekConsumer(of, max)
			if len(b) == 0 {
				break
			}
			bufs = append(bufs, b)
			of += len(b)
			max -= len(b)
		}
		offset = 0
	}
	return bufs
}

// PeekProducer returns up to max bytes of free space, starting offset bytes past
// the producer cursor. If the live slots cannot satisfy max, the vector grows
// by at most one doubling step. The returned runs stay valid across that step.
//
// A non-nil error means a growth step failed; the runs gathered before it are
// still returned and usable.
func (v *Vec) PeekProducer(offset, max int) ([][]byte, error) {
	return v.peekProducer(offset, max, false)
}

// PeekProducerForced is PeekProducer that keeps growing until max is satisfied
// or the vector reaches its maximum slot count.
func (v *Vec) PeekProducerForced(offset, max int) ([][]byte, error) {
	return v.peekProducer(offset, max, true)
}

func (v *Vec) peekProducer(offset, max int, forced bool) ([][]byte, error) {
	if offset < 0 || max <= 0 {
		return nil, nil
	}
	var bufs [][]byte
	grown := false
	// k counts slots from the consumer slot; growth keeps that numbering intact.
	k := v.in - v.out
	for {
		for ; max > 0 && k < uint64(v.Slots()); k++ {
			r := v.slot(v.out + k)
			if avail := r.Avail(); offset >= avail {
				offset -= avail
				continue
			}
			for of := offset; max > 0; {
				b := r.PeekProducer(of, max)
				if len(b) == 0 {
					break
				}
				bufs = append(bufs, b)
				of += len(b)
				max -= len(b)
			}
			offset = 0
		}

		if max == 0 || !v.canGrow() || (grown && !forced) {
			return bufs, nil
		}
		if err := v.grow(); err != nil {
			return bufs, err
		}
		grown = true
	}
}

// Produced publishes n bytes written into runs from PeekProducer and returns the
// number actually published, which is less than n only if n exceeds the free space.
func (v *Vec) Produced(n int) int {
	left := n
	end := v.out + uint64(v.Slots())
	for idx := v.in; left > 0 && idx < end; idx++ {
		r := v.slot(idx)
		s := min(left, r.Avail())
		r.Produced(s)
		left -= s
		if r.IsFull() {
			v.in++
		}
	}
	return max(n-left, 0)
}

// Consumed releases n bytes read through PeekConsumer and returns the number
// actually released.
func (v *Vec) Consumed(n int) int {
	left := n
	end := v.consumerEnd()
	for idx := v.out; left > 0 && idx < end; idx++ {
		r := v.slot(idx)
		s := min(left, r.Used())
		r.Consumed(s)
		left -= s
		if r.IsEmpty() && v.out < v.in {
			v.out++
		}
	}
	return max(n-left, 0)
}

// Put copies p into the vector, growing it as far as needed and allowed, and
// returns the number of bytes written. A growth failure is returned along with
// the bytes that did fit.
func (v *Vec) Put(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	bufs, err := v.PeekProducerForced(0, len(p))
	n := 0
	for _, b := range bufs {
		n += copy(b, p[n:])
	}
	v.Produced(n)
	return n, err
}

// Get copies up to len(p) buffered bytes into p and returns the count.
func (v *Vec) Get(p []byte) int {
	n := v.peek(p)
	v.Consumed(n)
	return n
}

// GetAll drains the vector into a newly allocated slice. An empty vector yields nil.
func (v *Vec) GetAll() ([]byte, error) {
	if v.IsEmpty() {
		return nil, nil
	}
	buf, err := ring.HeapAllocator.Alloc(v.Used())
	if err != nil {
		return nil, errors.Wrap(err, "draining vector")
	}
	return buf[:v.Get(buf)], nil
}

// Bytes returns a copy of the buffered content without consuming it.
func (v *Vec) Bytes() []byte {
	if v.IsEmpty() {
		return nil
	}
	buf := make([]byte, v.Used())
	return buf[:v.peek(buf)]
}

func (v *Vec) peek(p []byte) int {
	n := 0
	for _, b := range v.PeekConsumer(0, len(p)) {
		n += copy(p[n:], b)
	}
	return n
}
