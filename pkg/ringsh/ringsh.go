package ringsh

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"zcring/pkg/repl"
	"zcring/pkg/ringio"
	"zcring/pkg/ringvec"

	"github.com/dustin/go-humanize"
	"github.com/gammazero/deque"
)

const MAX_LOG_ENTRIES = 32

// An entry of the shell's operation log
type Op struct {
	Name  string
	Bytes int // bytes moved or viewed by the command
	Used  int // vector fill level afterwards
	Slots int // live slots afterwards
}

func (op Op) String() string {
	return fmt.Sprintf("%s\t%d\t%d\t%d", op.Name, op.Bytes, op.Used, op.Slots)
}

type Shell struct {
	v   *ringvec.Vec
	ops *deque.Deque[Op] // most recent last, at most MAX_LOG_ENTRIES
}

func NewShell(v *ringvec.Vec) *Shell {
	return &Shell{v: v, ops: deque.New[Op]()}
}

func (s *Shell) record(name string, n int) {
	s.ops.PushBack(Op{Name: name, Bytes: n, Used: s.v.Used(), Slots: s.v.Slots()})
	for s.ops.Len() > MAX_LOG_ENTRIES {
		s.ops.PopFront()
	}
}

// Ops returns the logged operations, oldest first
func (s *Shell) Ops() []Op {
	ops := make([]Op, 0, s.ops.Len())
	for i := 0; i < s.ops.Len(); i++ {
		ops = append(ops, s.ops.At(i))
	}
	return ops
}

func ShellRepl(s *Shell) *repl.REPL {
	r := repl.NewRepl()
	r.AddCommand("put", putHandler(s), "Copies text into the vector. usage: put <text>")
	r.AddCommand("get", getHandler(s), "Copies bytes out of the vector. usage: get <n>")
	r.AddCommand("getall", getAllHandler(s), "Drains the vector. usage: getall")
	r.AddCommand("peekr", peekrHandler(s), "Shows the runs a consumer would read. usage: peekr <n> [offset]")
	r.AddCommand("peekw", peekwHandler(s), "Shows the runs a producer would write, growing once (or as needed with force). usage: peekw <n> [offset] [force]")
	r.AddCommand("fill", fillHandler(s), "Writes n copies of a byte in place and commits them. usage: fill <n> <char>")
	r.AddCommand("produced", producedHandler(s), "Commits bytes written in place. usage: produced <n>")
	r.AddCommand("consumed", consumedHandler(s), "Releases bytes read in place. usage: consumed <n>")
	r.AddCommand("stat", statHandler(s), "Prints sizes and slot counts. usage: stat")
	r.AddCommand("sum", sumHandler(s), "Prints the Internet checksum of the buffered bytes. usage: sum")
	r.AddCommand("reinit", reinitHandler(s), "Discards the content, keeping the slots. usage: reinit")
	r.AddCommand("log", logHandler(s), "Prints recent operations. usage: log")
	return r
}

func parseCount(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("input %v is out of range", n)
	}
	return n, nil
}

func printRuns(w io.Writer, bufs [][]byte) error {
	for i, b := range bufs {
		if _, err := io.WriteString(w, fmt.Sprintf("run %d: %d bytes\n", i, len(b))); err != nil {
			return fmt.Errorf("cannot write runs to stdout")
		}
	}
	_, err := io.WriteString(w, fmt.Sprintf("%d runs, %d bytes\n", len(bufs), ringvec.ViewLen(bufs)))
	return err
}

func putHandler(s *Shell) func(string, *repl.REPLConfig) error {
	return func(input string, config *repl.REPLConfig) error {
		text, ok := strings.CutPrefix(input, "put ")
		if !ok {
			return fmt.Errorf("usage: put <text>")
		}
		n, err := s.v.Put([]byte(text))
		s.record("put", n)
		if err != nil {
			return err
		}
		_, err = io.WriteString(config.Writer, fmt.Sprintf("wrote %d bytes\n", n))
		return err
	}
}

func getHandler(s *Shell) func(string, *repl.REPLConfig) error {
	return func(input string, config *repl.REPLConfig) error {
		args := strings.Fields(input)
		if len(args) != 2 {
			return fmt.Errorf("usage: get <n>")
		}
		n, err := parseCount(args[1])
		if err != nil {
			return err
		}
		buf := make([]byte, n)
		n = s.v.Get(buf)
		s.record("get", n)
		_, err = io.WriteString(config.Writer, fmt.Sprintf("read %d bytes: %q\n", n, buf[:n]))
		return err
	}
}

func getAllHandler(s *Shell) func(string, *repl.REPLConfig) error {
	return func(input string, config *repl.REPLConfig) error {
		if len(strings.Fields(input)) != 1 {
			return fmt.Errorf("usage: getall")
		}
		buf, err := s.v.GetAll()
		if err != nil {
			return err
		}
		s.record("getall", len(buf))
		_, err = io.WriteString(config.Writer, fmt.Sprintf("read %d bytes: %q\n", len(buf), buf))
		return err
	}
}

func peekArgs(args []string) (n, offset int, err error) {
	n, err = parseCount(args[1])
	if err != nil {
		return 0, 0, err
	}
	if len(args) > 2 {
		offset, err = parseCount(args[2])
	}
	return n, offset, err
}

func peekrHandler(s *Shell) func(string, *repl.REPLConfig) error {
	return func(input string, config *repl.REPLConfig) error {
		args := strings.Fields(input)
		if len(args) < 2 || len(args) > 3 {
			return fmt.Errorf("usage: peekr <n> [offset]")
		}
		n, offset, err := peekArgs(args)
		if err != nil {
			return err
		}
		bufs := s.v.PeekConsumer(offset, n)
		s.record("peekr", ringvec.ViewLen(bufs))
		return printRuns(config.Writer, bufs)
	}
}

func peekwHandler(s *Shell) func(string, *repl.REPLConfig) error {
	return func(input string, config *repl.REPLConfig) error {
		args := strings.Fields(input)
		force := len(args) > 1 && args[len(args)-1] == "force"
		if force {
			args = args[:len(args)-1]
		}
		if len(args) < 2 || len(args) > 3 {
			return fmt.Errorf("usage: peekw <n> [offset] [force]")
		}
		n, offset, err := peekArgs(args)
		if err != nil {
			return err
		}

		var bufs [][]byte
		if force {
			bufs, err = s.v.PeekProducerForced(offset, n)
		} else {
			bufs, err = s.v.PeekProducer(offset, n)
		}
		s.record("peekw", ringvec.ViewLen(bufs))
		if perr := printRuns(config.Writer, bufs); perr != nil {
			return perr
		}
		return err
	}
}

func fillHandler(s *Shell) func(string, *repl.REPLConfig) error {
	return func(input string, config *repl.REPLConfig) error {
		args := strings.Fields(input)
		if len(args) != 3 || len(args[2]) != 1 {
			return fmt.Errorf("usage: fill <n> <char>")
		}
		n, err := parseCount(args[1])
		if err != nil {
			return err
		}

		bufs, err := s.v.PeekProducerForced(0, n)
		for _, b := range bufs {
			for i := range b {
				b[i] = args[2][0]
			}
		}
		n = s.v.Produced(ringvec.ViewLen(bufs))
		s.record("fill", n)
		if _, werr := io.WriteString(config.Writer, fmt.Sprintf("filled %d bytes in %d runs\n", n, len(bufs))); werr != nil {
			return werr
		}
		return err
	}
}

func producedHandler(s *Shell) func(string, *repl.REPLConfig) error {
	return func(input string, config *repl.REPLConfig) error {
		args := strings.Fields(input)
		if len(args) != 2 {
			return fmt.Errorf("usage: produced <n>")
		}
		n, err := parseCount(args[1])
		if err != nil {
			return err
		}
		n = s.v.Produced(n)
		s.record("produced", n)
		_, err = io.WriteString(config.Writer, fmt.Sprintf("committed %d bytes\n", n))
		return err
	}
}

func consumedHandler(s *Shell) func(string, *repl.REPLConfig) error {
	return func(input string, config *repl.REPLConfig) error {
		args := strings.Fields(input)
		if len(args) != 2 {
			return fmt.Errorf("usage: consumed <n>")
		}
		n, err := parseCount(args[1])
		if err != nil {
			return err
		}
		n = s.v.Consumed(n)
		s.record("consumed", n)
		_, err = io.WriteString(config.Writer, fmt.Sprintf("released %d bytes\n", n))
		return err
	}
}

func statHandler(s *Shell) func(string, *repl.REPLConfig) error {
	return func(input string, config *repl.REPLConfig) error {
		if len(strings.Fields(input)) != 1 {
			return fmt.Errorf("usage: stat")
		}
		v := s.v
		_, err := io.WriteString(config.Writer, fmt.Sprintf(
			"slots %d/%d of %s\ncap %s (max %s)\nused %d\navail %d\nempty %t\nfull %t\n",
			v.Slots(), v.MaxSlots(), humanize.IBytes(uint64(v.SlotSize())),
			humanize.IBytes(uint64(v.Cap())), humanize.IBytes(uint64(v.MaxCap())),
			v.Used(), v.Avail(), v.IsEmpty(), v.IsFull()))
		return err
	}
}

func sumHandler(s *Shell) func(string, *repl.REPLConfig) error {
	return func(input string, config *repl.REPLConfig) error {
		if len(strings.Fields(input)) != 1 {
			return fmt.Errorf("usage: sum")
		}
		bufs := s.v.PeekConsumer(0, s.v.Used())
		_, err := io.WriteString(config.Writer, fmt.Sprintf("checksum 0x%04x over %d bytes\n",
			ringio.Checksum(bufs, 0), ringvec.ViewLen(bufs)))
		return err
	}
}

func reinitHandler(s *Shell) func(string, *repl.REPLConfig) error {
	return func(input string, config *repl.REPLConfig) error {
		if len(strings.Fields(input)) != 1 {
			return fmt.Errorf("usage: reinit")
		}
		s.v.Reinit()
		s.record("reinit", 0)
		return nil
	}
}

func logHandler(s *Shell) func(string, *repl.REPLConfig) error {
	return func(input string, config *repl.REPLConfig) error {
		if len(strings.Fields(input)) != 1 {
			return fmt.Errorf("usage: log")
		}
		_, err := io.WriteString(config.Writer, "Op\tBytes\tUsed\tSlots\n")
		if err != nil {
			return fmt.Errorf("logHandler cannot write the header to stdout")
		}
		for _, op := range s.Ops() {
			if _, err := io.WriteString(config.Writer, op.String()+"\n"); err != nil {
				return fmt.Errorf("logHandler cannot write operations to stdout")
			}
		}
		return nil
	}
}
