// Command rant is the reference CLI: a thin cobra tree wiring the
// reference lexer, parser, VM, RNG, and stdlib into two subcommands
// (spec.md §6, SPEC_FULL.md §10.5).
//
// Grounded on rami3l-golox's cobra command tree shape.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cbarrick/rant/lex"
	"github.com/cbarrick/rant/parse"
	"github.com/cbarrick/rant/rng"
	"github.com/cbarrick/rant/stdlib"
	"github.com/cbarrick/rant/vm"
)

var (
	seed    int64
	verbose bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rant",
		Short: "rant compiles and runs Rant templates",
	}
	root.PersistentFlags().Int64Var(&seed, "seed", 0, "RNG seed")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.AddCommand(newRunCmd(), newCheckCmd())
	return root
}

func newLogger() *logrus.Entry {
	l := logrus.New()
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.WarnLevel)
	}
	return logrus.NewEntry(l)
}

func readSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("rant: cannot read %s: %w", path, err)
	}
	return string(data), nil
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <file>",
		Short: "compile and execute a Rant template, printing its output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			path := args[0]
			src, err := readSource(path)
			if err != nil {
				return err
			}

			prog, err := parse.Compile(path, lex.New(path, src), log)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return err
			}

			machine := vm.New(log)
			_, out, err := machine.Run(prog, rng.New(uint64(seed)), stdlib.Load())
			fmt.Fprint(cmd.OutOrStdout(), out)
			if err != nil {
				if re, ok := err.(*vm.RuntimeError); ok {
					fmt.Fprintln(cmd.ErrOrStderr(), re.Error())
					for _, f := range re.StackTrace {
						fmt.Fprintf(cmd.ErrOrStderr(), "  at %s:%d:%d\n", f.Flavor, f.Line, f.Col)
					}
				} else {
					fmt.Fprintln(cmd.ErrOrStderr(), err)
				}
				return err
			}
			return nil
		},
	}
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "compile a Rant template and report diagnostics without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			path := args[0]
			src, err := readSource(path)
			if err != nil {
				return err
			}

			_, msgs, err := parse.CompileDiagnostics(path, lex.New(path, src), log)
			for _, m := range msgs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s:%d:%d: %s: %s\n",
					path, m.Position.Line, m.Position.Col, m.Severity, m.Message)
			}
			if err != nil {
				return err
			}
			return nil
		},
	}
}
