package ringconfig

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"zcring/pkg/ring"
	"zcring/pkg/ringvec"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

type LogTarget int

const (
	LogNone   LogTarget = 0
	LogStdout LogTarget = 1
	LogStderr LogTarget = 2
)

/*
 * A config file holds one directive per line, '#' starts a comment:
 *
 *   ring   <capacity>
 *   vec    <max slots> <slot size>
 *   budget <bytes>
 *   chunk  <bytes>
 *   log    stdout|stderr|none
 *
 * Byte sizes take humanized units, e.g. 512, 4KiB, 1MiB.
 */
type RingConfig struct {
	RingCapacity int // capacity of a standalone ring

	MaxSlots int // vector slot table size
	SlotSize int // bytes per slot

	Budget int // total bytes the rings may allocate, 0 for unlimited
	Chunk  int // bytes moved per driver step, 0 for one slot

	Log LogTarget
}

// Static config used when no file is given
var DefaultConfig = RingConfig{
	RingCapacity: 4096,
	MaxSlots:     128,
	SlotSize:     4096,
	Log:          LogNone,
}

// Validate applies the power-of-two rules of the ring types.
func (c *RingConfig) Validate() error {
	if !ring.IsPowerOfTwo(c.RingCapacity) {
		return errors.Wrapf(ring.ErrInvalidArgument, "ring capacity %d is not a power of two", c.RingCapacity)
	}
	if !ring.IsPowerOfTwo(c.MaxSlots) {
		return errors.Wrapf(ring.ErrInvalidArgument, "max slot count %d is not a power of two", c.MaxSlots)
	}
	if !ring.IsPowerOfTwo(c.SlotSize) {
		return errors.Wrapf(ring.ErrInvalidArgument, "slot size %d is not a power of two", c.SlotSize)
	}
	if c.Budget < 0 || c.Chunk < 0 {
		return errors.Wrapf(ring.ErrInvalidArgument, "negative budget %d or chunk %d", c.Budget, c.Chunk)
	}
	return nil
}

// Options returns the ring options implied by the config. A budget is shared
// by every ring built from the same options.
func (c *RingConfig) Options() []ring.Option {
	if c.Budget == 0 {
		return nil
	}
	return []ring.Option{ring.WithAllocator(ring.NewBudget(c.Budget))}
}

func (c *RingConfig) NewRing(opts ...ring.Option) (*ring.Ring, error) {
	return ring.New(c.RingCapacity, opts...)
}

func (c *RingConfig) NewVec(opts ...ring.Option) (*ringvec.Vec, error) {
	return ringvec.New(c.MaxSlots, c.SlotSize, opts...)
}

// LogWriter returns where package logs should go.
func (c *RingConfig) LogWriter() io.Writer {
	switch c.Log {
	case LogStdout:
		return os.Stdout
	case LogStderr:
		return os.Stderr
	default:
		return io.Discard
	}
}

// ******************** END PUBLIC INTERFACE *********************************************

type ParseFunc func(int, string, *RingConfig) error

var parseCommands = map[string]ParseFunc{
	"ring":   parseRing,
	"vec":    parseVec,
	"budget": parseBudget,
	"chunk":  parseChunk,
	"log":    parseLog,
}

func parseRing(ln int, line string, config *RingConfig) error {
	tokens := strings.Fields(line)
	if len(tokens) != 2 {
		return errors.Errorf("ring directive must have format:  ring <capacity>")
	}
	size, err := parseSize(tokens[1])
	if err != nil {
		return err
	}
	config.RingCapacity = size
	return nil
}

func parseVec(ln int, line string, config *RingConfig) error {
	tokens := strings.Fields(line)
	if len(tokens) != 3 {
		return errors.Errorf("vec directive must have format:  vec <max slots> <slot size>")
	}

	var slots int
	if _, err := fmt.Sscanf(tokens[1], "%d", &slots); err != nil {
		return err
	}
	size, err := parseSize(tokens[2])
	if err != nil {
		return err
	}

	config.MaxSlots = slots
	config.SlotSize = size
	return nil
}

func parseBudget(ln int, line string, config *RingConfig) error {
	tokens := strings.Fields(line)
	if len(tokens) != 2 {
		return errors.Errorf("budget directive must have format:  budget <bytes>")
	}
	size, err := parseSize(tokens[1])
	if err != nil {
		return err
	}
	config.Budget = size
	return nil
}

func parseChunk(ln int, line string, config *RingConfig) error {
	tokens := strings.Fields(line)
	if len(tokens) != 2 {
		return errors.Errorf("chunk directive must have format:  chunk <bytes>")
	}
	size, err := parseSize(tokens[1])
	if err != nil {
		return err
	}
	config.Chunk = size
	return nil
}

func parseLog(ln int, line string, config *RingConfig) error {
	tokens := strings.Fields(line)
	if len(tokens) != 2 {
		return errors.Errorf("log directive must have format:  log stdout|stderr|none")
	}

	switch tokens[1] {
	case "stdout":
		config.Log = LogStdout
	case "stderr":
		config.Log = LogStderr
	case "none":
		config.Log = LogNone
	default:
		return errors.Errorf("Invalid log target:  %s", tokens[1])
	}
	return nil
}

func parseSize(s string) (int, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	if n > uint64(math.MaxInt) {
		return 0, errors.Errorf("size %s out of range", s)
	}
	return int(n), nil
}

func newErrString(line int, msg string, args ...any) error {
	return errors.Errorf("Parse error on line %d:  %s", line, fmt.Sprintf(msg, args...))
}

func newErr(line int, err error) error {
	return errors.Wrapf(err, "Parse error on line %d", line)
}

// Parse reads directives from r on top of DefaultConfig and validates the result.
func Parse(r io.Reader) (*RingConfig, error) {
	config := DefaultConfig

	scanner := bufio.NewScanner(r)
	ln := 0
	for scanner.Scan() {
		ln++

		line := strings.TrimSpace(scanner.Text())
		tokens := strings.Fields(line)

		// Skip blanks and comments
		if len(tokens) == 0 || tokens[0][0] == '#' {
			continue
		}

		pf, found := parseCommands[tokens[0]]
		if !found {
			return nil, newErrString(ln, "Unrecognized token %s", tokens[0])
		}
		if err := pf(ln, line, &config); err != nil {
			return nil, newErr(ln, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading config")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Parse a configuration file
func ParseConfig(configFile string) (*RingConfig, error) {
	fd, err := os.Open(configFile)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to open file")
	}
	defer fd.Close()

	return Parse(fd)
}
