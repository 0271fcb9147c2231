package main

import (
	"flag"
	"fmt"
	"os"

	"zcring/pkg/ringconfig"
	"zcring/pkg/ringio"
	"zcring/pkg/ringsh"
	"zcring/pkg/ringvec"

	"github.com/chzyer/readline"
)

func main() {
	// 0. read the config file from the command line, if any
	arg := flag.String("config", "", "specify the config file")
	history := flag.String("history", "", "file to keep command history in")
	flag.Parse()

	config := &ringconfig.DefaultConfig
	if *arg != "" {
		var err error
		config, err = ringconfig.ParseConfig(*arg)
		if err != nil {
			fmt.Println(err)
			fmt.Println("usage: ringsh [--config <config file>] [--history <file>]")
			return
		}
	}
	ringvec.SetLogOutput(config.LogWriter())
	ringio.SetLogOutput(config.LogWriter())

	// 1. build the vector the shell operates on
	v, err := config.NewVec(config.Options()...)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer v.Release()

	// 2. run the repl; piped input runs as a script
	r := ringsh.ShellRepl(ringsh.NewShell(v))
	if !readline.DefaultIsTerminal() {
		err = r.RunScript(os.Stdin, os.Stdout)
	} else {
		err = r.Run(*history)
	}
	if err != nil {
		fmt.Println(err)
	}
}
