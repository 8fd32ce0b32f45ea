// Command shadyc is the thin CLI driver of SPEC_FULL.md §6: a
// cobra/pflag flag surface wired to internal/pipeline.Run, colored
// diagnostics via github.com/fatih/color, and an optional interactive
// module browser (see dump.go) via github.com/peterh/liner.
//
// Grounded on the teacher's cmd/ailang/main.go for the overall
// command/flag/color shape, generalized from ailang's hand-rolled
// flag.FlagSet + switch-on-flag.Arg(0) dispatch to cobra's declarative
// subcommand tree — the version already present in this module's
// go.mod (spf13/cobra, spf13/pflag) but never exercised by the
// teacher's own main.go.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sunholo/shadeir/internal/config"
	"github.com/sunholo/shadeir/internal/emit"
	"github.com/sunholo/shadeir/internal/pipeline"
)

var (
	cfgFile  string
	jsonDiag bool
	cc       = config.Default()
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "shadyc",
		Short: "shadyc runs the shading-IR restructuring/lowering/emission pipeline",
		Long: bold("shadyc") + " drives internal/pipeline.Run over a Module: control-flow\n" +
			"restructuring, lowering, and structured SPIR-V emission.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "path to a shadyc.yaml compiler config")
	flags.BoolVar(&jsonDiag, "json", false, "print diagnostics as JSON instead of human-readable text")
	bindConfigFlags(flags, cc)

	root.AddCommand(newCompileCmd())
	root.AddCommand(newDumpCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// bindConfigFlags wires every config.CompilerConfig knob spec.md §6
// names onto fs, mirroring cmd/ailang's flat flag.Bool/.Int surface
// but through pflag's typed Var family so cobra subcommands inherit
// them as persistent flags.
func bindConfigFlags(fs *pflag.FlagSet, cc *config.CompilerConfig) {
	fs.BoolVar(&cc.InputCF.HasScopeAnnotations, "has-scope-annotations", false,
		"input module already carries scope annotations")
	fs.BoolVar(&cc.InputCF.RestructureWithHeuristics, "restructure-with-heuristics", false,
		"use heuristic (not just structured-scope) restructuring")
	fs.BoolVar(&cc.DynamicScheduling, "dynamic-scheduling", false,
		"enable dynamic (not static) subgroup scheduling")
	fs.StringVar(&cc.Specialization.EntryPoint, "entry-point", "",
		"specialize the pipeline for this single entry point")
	fs.BoolVar(&cc.Lower.EmulatePhysicalMemory, "emulate-physical-memory", false,
		"lower alloca/pointer arithmetic to emulated physical memory")
	fs.BoolVar(&cc.Lower.EmulateGenericPtrs, "emulate-generic-ptrs", false,
		"emulate generic (address-space-polymorphic) pointers")
	fs.BoolVar(&cc.Lower.DecayPtrs, "decay-ptrs", false,
		"decay typed pointers to untyped ones before emission")
	fs.BoolVarP(&cc.Optimisations.Cleanup.AfterEveryPass, "optimize", "O", false,
		"run the inline-constant cleanup fixed point after every pass")
	fs.BoolVar(&cc.Optimisations.WeakenNonLeakingAllocas, "weaken-non-leaking-allocas", false,
		"weaken allocas proven not to escape their function")
	fs.IntVar(&cc.PerThreadStackSize, "per-thread-stack-size", cc.PerThreadStackSize,
		"bytes reserved per thread when stack frames are set up")
	fs.BoolVar(&cc.Hacks.ForceJoinPointLifting, "force-join-point-lifting", false,
		"always lift join points instead of inlining them (escape hatch)")
	fs.Bool("dump-clean-rounds", false, "dump module state after every cleanup round that changes something")
}

func loadConfig(fs *pflag.FlagSet) (*config.CompilerConfig, error) {
	if cfgFile != "" {
		fileCfg, err := config.LoadFile(cfgFile)
		if err != nil {
			return nil, err
		}
		cc = fileCfg
	}
	if dumpRounds, _ := fs.GetBool("dump-clean-rounds"); dumpRounds {
		os.Setenv("SHADY_DUMP_CLEAN_ROUNDS", "1")
	}
	return cc, nil
}

func newCompileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compile [file]",
		Short: "run the full pipeline over a module and emit SPIR-V",
		Long: "compile builds the identity-function fixture (SPEC_FULL.md's stand-in\n" +
			"for ir.ParseSlimModule's unimplemented front end) and runs it through\n" +
			"internal/pipeline.Run, reporting per-pass timings and the emitted\n" +
			"function/block counts.",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig(cmd.Flags())
			if err != nil {
				printDiag(err, jsonDiag)
				return err
			}
			a, mod := buildIdentityFixture()
			defer a.Destroy()

			res, err := pipeline.Run(a, mod, &pipeline.Config{Compiler: conf})
			if err != nil {
				printDiag(err, jsonDiag)
				return err
			}
			if res.Arena != a {
				defer res.Arena.Destroy()
			}
			for name, ns := range res.PhaseTimings {
				fmt.Printf("%s %-32s %8dns\n", green("pass"), name, ns)
			}

			mb, err := emit.EmitModule(res.Module)
			if err != nil {
				printDiag(err, jsonDiag)
				return err
			}
			fmt.Printf("%s %d function(s) emitted\n", bold("shadyc:"), len(mb.Fns()))
			for _, fb := range mb.Fns() {
				fmt.Printf("  %s %d block(s)\n", cyan("fn"), len(fb.Blocks()))
			}
			return nil
		},
	}
}

func newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "run the pipeline and open an interactive module browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig(cmd.Flags())
			if err != nil {
				printDiag(err, jsonDiag)
				return err
			}
			a, mod := buildIdentityFixture()
			defer a.Destroy()

			res, err := pipeline.Run(a, mod, &pipeline.Config{Compiler: conf})
			if err != nil {
				printDiag(err, jsonDiag)
				return err
			}
			if res.Arena != a {
				defer res.Arena.Destroy()
			}
			return runDumpBrowser(res.Module)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print shadyc's version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("shadyc %s\n", bold(version))
		},
	}
}

// version is overridable via -ldflags "-X main.version=...", matching
// cmd/ailang's ldflags-injected Version variable.
var version = "dev"
