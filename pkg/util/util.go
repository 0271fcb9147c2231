package util

import (
	"io"
	"net"

	"github.com/pkg/errors"
)

// AcceptOne listens on the TCP address, accepts a single connection and stops
// listening. ready, if not nil, is called with the bound address before
// blocking in Accept, so ":0" can be used.
func AcceptOne(addr string, ready func(net.Addr)) (net.Conn, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listening on %s", addr)
	}
	defer ln.Close()

	if ready != nil {
		ready(ln.Addr())
	}
	conn, err := ln.Accept()
	if err != nil {
		return nil, errors.Wrapf(err, "accepting on %s", ln.Addr())
	}
	return conn, nil
}

func DialTCP(addr string) (net.Conn, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "connecting to %s", addr)
	}
	return conn, nil
}

// NopWriteCloser gives a writer that must stay open, like os.Stdout, a no-op Close.
func NopWriteCloser(w io.Writer) io.WriteCloser {
	return nopCloser{w}
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
