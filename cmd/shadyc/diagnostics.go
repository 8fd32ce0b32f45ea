package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/sunholo/shadeir/internal/diag"
)

// Color variables mirror internal/repl/repl.go's SprintFunc pattern:
// one package-level function value per semantic color, built once and
// reused everywhere a diagnostic or status line is printed.
var (
	red    = color.New(color.FgRed).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// printDiag renders err as a human-readable line if it unwraps to a
// diag.Report, falling back to a plain Go error otherwise. jsonOut
// switches to the Report's structured JSON encoding instead, for
// driver tooling that wants to parse shadyc's failures.
func printDiag(err error, jsonOut bool) {
	rep, ok := diag.AsReport(err)
	if !ok {
		fmt.Fprintf(os.Stderr, "%s: %s\n", red("error"), err)
		return
	}
	if jsonOut {
		text, jerr := rep.ToJSON(false)
		if jerr != nil {
			fmt.Fprintf(os.Stderr, "%s: %s\n", red("error"), err)
			return
		}
		fmt.Fprintln(os.Stderr, text)
		return
	}
	fmt.Fprintf(os.Stderr, "%s [%s] in pass %s: %s\n",
		red(string(rep.Kind)), yellow(rep.Code), cyan(rep.Pass), rep.Message)
	for _, p := range rep.NodePath {
		fmt.Fprintf(os.Stderr, "  at %s\n", p)
	}
}
