// Package ringvec implements a growable circular byte buffer built from a ring
// of fixed-size ring.Ring slots.
//
// The vector starts with one slot and doubles the slot count on demand, up to
// a maximum fixed at creation. Growth never moves slot storage, so views
// returned by earlier peeks stay valid across it.
//
// A Vec is not safe for concurrent use; see package ringsync for a locked wrapper.
package ringvec

import (
	"io"
	"log"

	"zcring/pkg/ring"

	"github.com/pkg/errors"
)

var logger = log.New(io.Discard, "ringvec: ", log.Ldate|log.Ltime|log.Lshortfile)

// SetLogOutput directs the package's log output (growth steps and failures) to w.
func SetLogOutput(w io.Writer) {
	logger.SetOutput(w)
}

// |slot|slot|slot|slot|        slots live = 1<<shift, table room = maxSlots
//  out&mask ---> in&mask
//
// in and out count slots. Slots strictly between out and in are full; only the
// two boundary slots can be partial. When in-out equals the live slot count,
// in and out address the same slot, and the producer may not write into it
// again before the consumer has drained it.

type Vec struct {
	slots    []*ring.Ring
	maxSlots int
	slotSize int
	shift    uint
	mask     uint64
	in       uint64
	out      uint64
	opts     []ring.Option
}

// New creates a vector of one slot. maxSlots and slotSize must both be powers
// of two. opts are applied to every slot ring, e.g. ring.WithAllocator.
func New(maxSlots, slotSize int, opts ...ring.Option) (*Vec, error) {
	if !ring.IsPowerOfTwo(maxSlots) {
		return nil, errors.Wrapf(ring.ErrInvalidArgument, "max slot count %d is not a power of two", maxSlots)
	}
	first, err := ring.New(slotSize, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "first slot")
	}
	v := &Vec{
		slots:    make([]*ring.Ring, maxSlots),
		maxSlots: maxSlots,
		slotSize: slotSize,
		opts:     opts,
	}
	v.slots[0] = first
	return v, nil
}

// Reinit empties every live slot and resets the cursors. The slot count is kept.
func (v *Vec) Reinit() {
	for _, r := range v.slots[:v.Slots()] {
		r.Reinit()
	}
	v.in, v.out = 0, 0
}

// Release frees every live slot. The vector must not be used afterwards;
// releasing it again is a no-op.
func (v *Vec) Release() {
	for i, r := range v.slots[:v.Slots()] {
		if r == nil {
			continue
		}
		r.Release()
		v.slots[i] = nil
	}
	v.in, v.out = 0, 0
}

func (v *Vec) Slots() int    { return 1 << v.shift }
func (v *Vec) MaxSlots() int { return v.maxSlots }
func (v *Vec) SlotSize() int { return v.slotSize }
func (v *Vec) Cap() int      { return v.slotSize << v.shift }
func (v *Vec) MaxCap() int   { return v.slotSize * v.maxSlots }

// UsedSlots is the number of slots between the consumer and producer slots.
func (v *Vec) UsedSlots() int { return int(v.in - v.out) }

func (v *Vec) slot(idx uint64) *ring.Ring {
	return v.slots[idx&v.mask]
}

func (v *Vec) canGrow() bool {
	return v.Slots() < v.maxSlots
}

func (v *Vec) IsEmpty() bool {
	return v.in == v.out && v.slot(v.in).IsEmpty()
}

func (v *Vec) IsFull() bool {
	return v.in-v.out == uint64(v.Slots()) &&
		v.slot(v.in-1).IsFull() &&
		v.slot(v.in).IsFull()
}

// Used is the number of buffered bytes. It only looks at the boundary slots.
func (v *Vec) Used() int {
	n := v.in - v.out
	switch {
	case n == 0:
		return v.slot(v.out).Used()
	case n == uint64(v.Slots()):
		return v.slotSize*int(n-1) + v.slot(v.out).Used()
	default:
		return v.slot(v.out).Used() + v.slotSize*int(n-1) + v.slot(v.in).Used()
	}
}

// Avail is the number of bytes a producer can write without growing. When the
// consumer slot has been partly drained while other slots hold newer data,
// its free head is not counted: it only becomes writable once drained.
func (v *Vec) Avail() int {
	n := v.in - v.out
	if n == uint64(v.Slots()) {
		return 0
	}
	return v.slot(v.in).Avail() + v.slotSize*(v.Slots()-int(n)-1)
}

// SlotAvail is the free space of the producer slot alone, or 0 when every slot
// is in use.
func (v *Vec) SlotAvail() int {
	if v.in-v.out == uint64(v.Slots()) {
		return 0
	}
	return v.slot(v.in).Avail()
}

// grow doubles the live slot count. It either succeeds completely or leaves the
// vector untouched.
func (v *Vec) grow() error {
	n := v.Slots()
	fresh := make([]*ring.Ring, 0, n)
	for i := 0; i < n; i++ {
		r, err := ring.New(v.slotSize, v.opts...)
		if err != nil {
			for _, r := range fresh {
				r.Release()
			}
			logger.Printf("growing from %d to %d slots failed: %v\n", n, 2*n, err)
			return errors.Wrapf(err, "growing from %d to %d slots", n, 2*n)
		}
		fresh = append(fresh, r)
	}

	// Slots live in table order out&mask, ..., wrapping past n-1 to 0. Move the
	// wrapped prefix up behind n-1 so the old slots stay contiguous under the
	// new mask, then fill the rest of the ring with the fresh slots.
	o := int(v.out & v.mask)
	used := v.in - v.out
	copy(v.slots[n:n+o], v.slots[:o])
	k := copy(v.slots[n+o:2*n], fresh)
	copy(v.slots[:o], fresh[k:])

	v.out = uint64(o)
	v.in = v.out + used
	v.shift++
	v.mask = uint64(2*n - 1)
	logger.Printf("grew from %d to %d slots (%d bytes)\n", n, 2*n, v.Cap())
	return nil
}
