package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"

	"zcring/pkg/ringconfig"
	"zcring/pkg/ringio"
	"zcring/pkg/ringsync"
	"zcring/pkg/ringvec"
	"zcring/pkg/util"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
)

var logger = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lshortfile)

func main() {
	arg := flag.String("config", "", "specify the config file")
	listen := flag.String("listen", "", "accept one TCP connection on this address and read from it instead of stdin")
	connect := flag.String("connect", "", "write to a TCP connection to this address instead of stdout")
	flag.Parse()

	config := &ringconfig.DefaultConfig
	if *arg != "" {
		var err error
		config, err = ringconfig.ParseConfig(*arg)
		if err != nil {
			fmt.Println(err)
			fmt.Println("usage: ringrelay [--config <config file>] [--listen <addr>] [--connect <addr>]")
			os.Exit(2)
		}
	}
	ringvec.SetLogOutput(config.LogWriter())
	ringio.SetLogOutput(config.LogWriter())

	src, dst, err := endpoints(*listen, *connect)
	if err != nil {
		logger.Fatalln(err)
	}
	defer src.Close()
	defer dst.Close()

	v, err := config.NewVec(config.Options()...)
	if err != nil {
		logger.Fatalln(err)
	}
	defer v.Release()

	// 1. fill and drain concurrently through the pipe
	p := ringsync.NewPipe(v, config.Chunk)
	var in, out int64
	var g errgroup.Group
	g.Go(func() error {
		n, err := p.ReadFrom(src)
		in = n
		return err
	})
	g.Go(func() error {
		n, err := p.WriteTo(dst)
		out = n
		if err != nil {
			// unblock a reader stuck in Read
			src.Close()
		}
		return err
	})
	err = g.Wait()

	logger.Printf("relayed %s in, %s out, peak %d slots\n",
		humanize.IBytes(uint64(in)), humanize.IBytes(uint64(out)), p.Slots())
	if err != nil {
		logger.Fatalln(err)
	}
}

func endpoints(listen, connect string) (io.ReadCloser, io.WriteCloser, error) {
	var src io.ReadCloser = os.Stdin
	dst := util.NopWriteCloser(os.Stdout)

	if listen != "" {
		conn, err := util.AcceptOne(listen, func(a net.Addr) {
			logger.Printf("waiting for a connection on %s\n", a)
		})
		if err != nil {
			return nil, nil, err
		}
		src = conn
	}
	if connect != "" {
		conn, err := util.DialTCP(connect)
		if err != nil {
			src.Close()
			return nil, nil, err
		}
		dst = conn
	}
	return src, dst, nil
}
