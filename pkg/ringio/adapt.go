package ringio

import (
	"io"
	"net"

	"github.com/google/netstack/tcpip/buffer"
	"github.com/google/netstack/tcpip/header"
)

// FromReader returns an InFunc that fills the runs from r in order. It moves on
// to the next run only after r has filled the current one, so a short read ends
// the transfer and, in turn, the driver loop.
func FromReader(r io.Reader) InFunc {
	return func(bufs [][]byte) (int, error) {
		total := 0
		for _, b := range bufs {
			n, err := r.Read(b)
			total += n
			if err != nil {
				return total, err
			}
			if n < len(b) {
				break
			}
		}
		return total, nil
	}
}

// ToWriter returns an OutFunc that hands the runs to w as net.Buffers, which
// becomes a single vectored write (writev) when w is a *net.TCPConn or similar.
func ToWriter(w io.Writer) OutFunc {
	return func(bufs [][]byte) (int, error) {
		// WriteTo consumes the slice it is called on
		nb := net.Buffers(append([][]byte(nil), bufs...))
		n, err := nb.WriteTo(w)
		return int(n), err
	}
}

// Vectorise wraps the runs of a view, without copying, as a netstack VectorisedView.
func Vectorise(bufs [][]byte) buffer.VectorisedView {
	views := make([]buffer.View, 0, len(bufs))
	size := 0
	for _, b := range bufs {
		if len(b) == 0 {
			continue
		}
		views = append(views, buffer.View(b))
		size += len(b)
	}
	return buffer.NewVectorisedView(size, views)
}

// ToVectorised adapts a netstack-style sink, such as an endpoint write path, to an OutFunc.
func ToVectorised(sink func(buffer.VectorisedView) (int, error)) OutFunc {
	return func(bufs [][]byte) (int, error) {
		return sink(Vectorise(bufs))
	}
}

// Checksum folds the Internet checksum (RFC 1071) of the view's bytes into
// initial. Runs of odd length are handled, so the result equals the checksum
// of the concatenated bytes.
func Checksum(bufs [][]byte, initial uint16) uint16 {
	return header.ChecksumVV(Vectorise(bufs), initial)
}
