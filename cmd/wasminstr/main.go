package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wippyai/wasm-instrument/errors"
)

// Exit codes.
const (
	exitOK               = 0
	exitFailure          = 1
	exitUsage            = 2
	exitDecode           = 3
	exitMissingNames     = 4
	exitSymbolNotFound   = 5
	exitSpliceOutOfRange = 6
	exitEncode           = 7
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var errorStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#FF6B6B"))

func main() {
	os.Exit(doMain(os.Args[1:], os.Stdout, os.Stderr))
}

// doMain runs the command line and returns the process exit code.
func doMain(args []string, stdOut, stdErr io.Writer) int {
	root := newRootCommand(stdOut, stdErr)
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		msg := "error: " + err.Error()
		if isTerminal(stdErr) {
			msg = errorStyle.Render(msg)
		}
		fmt.Fprintln(stdErr, msg)
		return exitCode(err)
	}
	return exitOK
}

// exitCode maps an error to the process exit code.
func exitCode(err error) int {
	switch errors.KindOf(err) {
	case errors.KindInvalidInput:
		return exitUsage
	case errors.KindDecode:
		return exitDecode
	case errors.KindMissingNameSection:
		return exitMissingNames
	case errors.KindSymbolNotFound:
		return exitSymbolNotFound
	case errors.KindSpliceOutOfRange:
		return exitSpliceOutOfRange
	case errors.KindEncode:
		return exitEncode
	default:
		return exitFailure
	}
}

func newRootCommand(stdOut, stdErr io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "wasminstr --in PATH [--symbol NAME] [flags]",
		Short: "Report and splice calls in WebAssembly functions",
		Long: "wasminstr reports the direct callees of a named function in a wasm module\n" +
			"and splices single instructions into its body. The module must carry a\n" +
			"name section with function names.",
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.interactive {
				return runExplore(cmd, opts, stdOut)
			}
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, stdOut, stdErr)
		},
	}
	root.SetOut(stdOut)
	root.SetErr(stdErr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errors.InvalidInput(errors.PhaseUsage, err.Error())
	})

	addRunFlags(root, opts)
	root.AddCommand(newExploreCommand(stdOut), newVersionCommand(stdOut))
	return root
}

func newVersionCommand(stdOut io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of wasminstr",
		Args:  noArgs,
		Run: func(*cobra.Command, []string) {
			fmt.Fprintln(stdOut, "wasminstr "+version)
		},
	}
}

// noArgs rejects positional arguments, which also covers unknown
// subcommands, as a usage error.
func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return errors.InvalidInput(errors.PhaseUsage, err.Error())
	}
	return nil
}

// isTerminal reports whether w is a terminal file.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
