package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/sunholo/shadeir/internal/analysis"
	"github.com/sunholo/shadeir/internal/ir"
)

// runDumpBrowser is the `dump` subcommand's REPL-style module browser
// (SPEC_FULL.md §6): a post-mortem inspector over a compiled module,
// built the same way internal/repl/repl.go drives peterh/liner —
// NewLiner, history, a read-eval-print loop over single-line commands
// — generalized from "evaluate an AILANG expression" to "inspect a
// Function declaration", since evaluation itself is out of scope.
func runDumpBrowser(mod *ir.Module) error {
	fns := mod.Functions()
	fmt.Printf("%s %q: %d function(s). Commands: %s, %s, %s, %s\n",
		bold("module"), mod.Name, len(fns),
		cyan("list"), cyan("show <name>"), cyan("cfg <name>"), cyan("quit"))

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	for {
		input, err := line.Prompt("shadyc> ")
		if err == liner.ErrPromptAborted || err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		fields := strings.Fields(input)
		switch fields[0] {
		case "quit", "exit":
			return nil
		case "list":
			for _, fn := range fns {
				fmt.Println(" ", fn.Payload.(*ir.FunctionPayload).Name)
			}
		case "show":
			if len(fields) < 2 {
				fmt.Println(red("usage: show <name>"))
				continue
			}
			showFunction(mod, fields[1])
		case "cfg":
			if len(fields) < 2 {
				fmt.Println(red("usage: cfg <name>"))
				continue
			}
			showCFG(mod, fields[1])
		default:
			fmt.Printf("%s: unknown command %q\n", red("error"), fields[0])
		}
	}
}

func showFunction(mod *ir.Module, name string) {
	fn := mod.FindFunction(name)
	if fn == nil {
		fmt.Printf("%s: no function %q\n", red("error"), name)
		return
	}
	p := fn.Payload.(*ir.FunctionPayload)
	fmt.Printf("%s %s(%d param(s)) -> %d return value(s)\n",
		green("fn"), bold(p.Name), len(p.Params), len(p.ReturnTypes))
}

func showCFG(mod *ir.Module, name string) {
	fn := mod.FindFunction(name)
	if fn == nil {
		fmt.Printf("%s: no function %q\n", red("error"), name)
		return
	}
	cfg, err := analysis.Build(fn)
	if err != nil {
		fmt.Printf("%s: %s\n", red("error"), err)
		return
	}
	fmt.Printf("%s: %d block(s), reducible=%s\n",
		bold(name), len(cfg.Nodes()), strconv.FormatBool(analysis.IsReducible(cfg)))
}
