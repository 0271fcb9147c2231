package ringsh_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"zcring/pkg/ringsh"
	"zcring/pkg/ringvec"

	"github.com/google/netstack/tcpip/header"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, s *ringsh.Shell, script ...string) string {
	t.Helper()
	var out bytes.Buffer
	err := ringsh.ShellRepl(s).RunScript(strings.NewReader(strings.Join(script, "\n")), &out)
	require.NoError(t, err)
	return out.String()
}

func newShell(t *testing.T, maxSlots, slotSize int) *ringsh.Shell {
	t.Helper()
	v, err := ringvec.New(maxSlots, slotSize)
	require.NoError(t, err)
	return ringsh.NewShell(v)
}

func TestShell_Transfers(t *testing.T) {
	s := newShell(t, 4, 8)

	out := run(t, s,
		"put hello world",
		"get 6",
		"peekr 100",
		"fill 4 x",
		"getall",
	)
	assert.Equal(t, "wrote 11 bytes\n"+
		"read 6 bytes: \"hello \"\n"+
		"run 0: 2 bytes\nrun 1: 3 bytes\n2 runs, 5 bytes\n"+
		"filled 4 bytes in 1 runs\n"+
		"read 9 bytes: \"worldxxxx\"\n", out)

	ops := s.Ops()
	require.Len(t, ops, 5)
	assert.Equal(t, ringsh.Op{Name: "put", Bytes: 11, Used: 11, Slots: 2}, ops[0])
	assert.Equal(t, ringsh.Op{Name: "fill", Bytes: 4, Used: 9, Slots: 2}, ops[3])
	assert.Equal(t, ringsh.Op{Name: "getall", Bytes: 9, Used: 0, Slots: 2}, ops[4])
}

func TestShell_PeekGrowth(t *testing.T) {
	out := run(t, newShell(t, 128, 512), "peekw 10240")
	assert.True(t, strings.HasSuffix(out, "2 runs, 1024 bytes\n"), out)

	out = run(t, newShell(t, 128, 512), "peekw 10240 force", "stat")
	assert.Contains(t, out, "20 runs, 10240 bytes\n")
	assert.Contains(t, out, "slots 32/128 of 512 B\n")
	assert.Contains(t, out, "empty true\n")
}

func TestShell_InPlaceCommit(t *testing.T) {
	s := newShell(t, 4, 8)

	out := run(t, s, "peekw 12 0 force", "produced 20", "consumed 5", "stat")
	// a commit is clamped to the free space of the live slots, not to the peek
	assert.Contains(t, out, "committed 16 bytes\n")
	assert.Contains(t, out, "released 5 bytes\n")
	assert.Contains(t, out, "used 11\n")
}

func TestShell_Sum(t *testing.T) {
	s := newShell(t, 4, 4)
	data := "checksum me"

	out := run(t, s, "put "+data, "sum")
	want := fmt.Sprintf("checksum 0x%04x over %d bytes\n", header.Checksum([]byte(data), 0), len(data))
	assert.Contains(t, out, want)
}

func TestShell_Errors(t *testing.T) {
	s := newShell(t, 4, 8)

	out := run(t, s, "bogus", "get -1", "get", "fill 3 xy", "peekr")
	assert.Contains(t, out, "Invalid command: bogus\nCommands\n")
	assert.Contains(t, out, "Error: input -1 is out of range\n")
	assert.Contains(t, out, "Error: usage: get <n>\n")
	assert.Contains(t, out, "Error: usage: fill <n> <char>\n")
	assert.Contains(t, out, "Error: usage: peekr <n> [offset]\n")
	assert.Empty(t, s.Ops())
}

func TestShell_LogIsBounded(t *testing.T) {
	s := newShell(t, 4, 8)

	script := []string{"put abc", "reinit"}
	for i := 0; i < ringsh.MAX_LOG_ENTRIES-1; i++ {
		script = append(script, "get 1")
	}
	run(t, s, script...)

	ops := s.Ops()
	require.Len(t, ops, ringsh.MAX_LOG_ENTRIES)
	assert.Equal(t, "reinit", ops[0].Name)
	assert.Equal(t, 0, ops[len(ops)-1].Bytes)

	out := run(t, s, "log")
	assert.True(t, strings.HasPrefix(out, "Op\tBytes\tUsed\tSlots\nreinit\t0\t0\t1\n"), out)
}
