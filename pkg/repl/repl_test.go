package repl

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunScript(t *testing.T) {
	r := NewRepl()
	var seen []string
	r.AddCommand("echo", func(input string, config *REPLConfig) error {
		seen = append(seen, input)
		_, err := io.WriteString(config.Writer, strings.TrimPrefix(input, "echo ")+"\n")
		return err
	}, "Echoes its input. usage: echo <text>")
	r.AddCommand("fail", func(string, *REPLConfig) error {
		return fmt.Errorf("always fails")
	}, "Fails. usage: fail")
	r.AddCommand(".hidden", func(string, *REPLConfig) error { return nil }, "not registered")

	var out bytes.Buffer
	err := r.RunScript(strings.NewReader("echo one\n\n   echo two  \nfail\nnope\n"), &out)
	require.NoError(t, err)

	assert.Equal(t, []string{"echo one", "echo two"}, seen)
	assert.Equal(t, "one\ntwo\nError: always fails\nInvalid command: nope\n"+
		"Commands\n\techo: Echoes its input. usage: echo <text>\n\tfail: Fails. usage: fail\n", out.String())
}

func TestCompleter(t *testing.T) {
	r := NewRepl()
	r.AddCommand("put", func(string, *REPLConfig) error { return nil }, "")
	r.AddCommand("peekr", func(string, *REPLConfig) error { return nil }, "")

	c := r.completer()
	assert.Len(t, c.GetChildren(), 2)
}
