package repl

// note: based off of csci1270-fall23
import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/chzyer/readline"
)

type REPL struct {
	Commands map[string]func(string, *REPLConfig) error
	Help     map[string]string
}

type REPLConfig struct {
	Writer io.Writer
}

func NewRepl() *REPL {
	r := &REPL{make(map[string]func(string, *REPLConfig) error), make(map[string]string)}
	return r
}

// Add a command, along with its help string, to the set of commands
func (r *REPL) AddCommand(trigger string, handler func(string, *REPLConfig) error, help string) {
	if trigger == "" || trigger[0] == '.' {
		return
	}
	r.Help[trigger] = help
	r.Commands[trigger] = handler
}

// Return all REPL usage information as a string
func (r *REPL) HelpString() string {
	triggers := make([]string, 0, len(r.Help))
	for k := range r.Help {
		triggers = append(triggers, k)
	}
	sort.Strings(triggers)

	var sb strings.Builder
	sb.WriteString("Commands\n")
	for _, k := range triggers {
		sb.WriteString(fmt.Sprintf("\t%s: %s\n", k, r.Help[k]))
	}
	return sb.String()
}

// Exec runs a single input line
func (r *REPL) Exec(input string, config *REPLConfig) {
	input = strings.TrimSpace(input)
	if input == "" {
		return
	}
	command := strings.Fields(input)[0]
	handler, ok := r.Commands[command]

	if !ok {
		io.WriteString(config.Writer, fmt.Sprintf("Invalid command: %s\n", command))
		io.WriteString(config.Writer, r.HelpString())
		return
	}
	if err := handler(input, config); err != nil {
		io.WriteString(config.Writer, fmt.Sprintf("Error: %v\n", err))
	}
}

// RunScript executes every line of reader without prompting, e.g. for piped input
func (r *REPL) RunScript(reader io.Reader, writer io.Writer) error {
	scanner := bufio.NewScanner(reader)
	replConfig := &REPLConfig{Writer: writer}
	for scanner.Scan() {
		r.Exec(scanner.Text(), replConfig)
	}
	return scanner.Err()
}

func (r *REPL) completer() *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(r.Commands))
	for k := range r.Commands {
		items = append(items, readline.PcItem(k))
	}
	return readline.NewPrefixCompleter(items...)
}

// Run reads commands interactively until EOF (ctrl-D)
func (r *REPL) Run(historyFile string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     historyFile,
		AutoComplete:    r.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	replConfig := &REPLConfig{Writer: rl.Stdout()}
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		r.Exec(line, replConfig)
	}
}
