// Package ringio drives transfers between rings and external byte sources and
// sinks without intermediate copies.
//
// The read side repeatedly peeks free space, lets an InFunc fill it in place and
// commits what the InFunc reports; the write side does the same with buffered
// bytes and an OutFunc. A loop stops on an error, on a zero count, or on a
// short count, which is the usual "would block" signal of a non-blocking source.
package ringio

import (
	"io"
	"log"

	"zcring/pkg/ring"
	"zcring/pkg/ringvec"

	"github.com/pkg/errors"
)

var logger = log.New(io.Discard, "ringio: ", log.Ldate|log.Ltime|log.Lshortfile)

// SetLogOutput directs the package's log output (callback failures) to w.
func SetLogOutput(w io.Writer) {
	logger.SetOutput(w)
}

// ErrOverReport is returned when a callback claims more bytes than it was offered.
var ErrOverReport = errors.New("transfer reported more bytes than offered")

// InFunc fills bufs in order and reports how many bytes it wrote.
type InFunc func(bufs [][]byte) (int, error)

// OutFunc drains bufs in order and reports how many bytes it took.
type OutFunc func(bufs [][]byte) (int, error)

type producer interface {
	reserve() ([][]byte, error)
	commit(n int)
}

type consumer interface {
	view() [][]byte
	release(n int)
}

type fixedProducer struct{ r *ring.Ring }

func (p fixedProducer) reserve() ([][]byte, error) {
	if b := p.r.PeekProducer(0, p.r.Cap()); len(b) > 0 {
		return [][]byte{b}, nil
	}
	return nil, nil
}

func (p fixedProducer) commit(n int) { p.r.Produced(n) }

type fixedConsumer struct{ r *ring.Ring }

func (c fixedConsumer) view() [][]byte {
	if b := c.r.PeekConsumer(0, c.r.Cap()); len(b) > 0 {
		return [][]byte{b}
	}
	return nil
}

func (c fixedConsumer) release(n int) { c.r.Consumed(n) }

// Vector transfers are sized one slot at a time, growing as needed.
type vecProducer struct{ v *ringvec.Vec }

func (p vecProducer) reserve() ([][]byte, error) {
	return p.v.PeekProducerForced(0, p.v.SlotSize())
}

func (p vecProducer) commit(n int) { p.v.Produced(n) }

type vecConsumer struct{ v *ringvec.Vec }

func (c vecConsumer) view() [][]byte { return c.v.PeekConsumer(0, c.v.SlotSize()) }

func (c vecConsumer) release(n int) { c.v.Consumed(n) }

// ReadRing fills r from in until in reports an error, nothing, or a short
// transfer, or until r is full. It returns the number of bytes committed.
func ReadRing(r *ring.Ring, in InFunc) (int, error) {
	return readLoop(fixedProducer{r}, in)
}

// WriteRing drains r into out until out reports an error, nothing, or a short
// transfer, or until r is empty. It returns the number of bytes committed.
func WriteRing(r *ring.Ring, out OutFunc) (int, error) {
	return writeLoop(fixedConsumer{r}, out)
}

// ReadVec is ReadRing for a vector. The vector grows while in keeps up.
func ReadVec(v *ringvec.Vec, in InFunc) (int, error) {
	return readLoop(vecProducer{v}, in)
}

// WriteVec is WriteRing for a vector.
func WriteVec(v *ringvec.Vec, out OutFunc) (int, error) {
	return writeLoop(vecConsumer{v}, out)
}

func readLoop(p producer, in InFunc) (int, error) {
	total := 0
	for {
		bufs, err := p.reserve()
		size := ringvec.ViewLen(bufs)
		if err != nil && size == 0 {
			return total, err
		}
		if size == 0 {
			return total, nil
		}

		n, cerr := in(bufs)
		if n > size {
			return total, errors.Wrapf(ErrOverReport, "%d bytes into a %d byte view", n, size)
		}
		if n > 0 {
			p.commit(n)
			total += n
		}
		if cerr != nil {
			if cerr != io.EOF {
				logger.Printf("read transfer failed after %d bytes: %v\n", total, cerr)
			}
			return total, cerr
		}
		if err != nil {
			return total, err
		}
		if n < size {
			return total, nil
		}
	}
}

func writeLoop(c consumer, out OutFunc) (int, error) {
	total := 0
	for {
		bufs := c.view()
		size := ringvec.ViewLen(bufs)
		if size == 0 {
			return total, nil
		}

		n, cerr := out(bufs)
		if n > size {
			return total, errors.Wrapf(ErrOverReport, "%d bytes out of a %d byte view", n, size)
		}
		if n > 0 {
			c.release(n)
			total += n
		}
		if cerr != nil {
			logger.Printf("write transfer failed after %d bytes: %v\n", total, cerr)
			return total, cerr
		}
		if n < size {
			return total, nil
		}
	}
}
