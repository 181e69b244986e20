package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"gopkg.in/urfave/cli.v1"

	"github.com/bu-lang/bu/internal/bulog"
	"github.com/bu-lang/bu/internal/config"
	"github.com/bu-lang/bu/pkg/compiler"
	"github.com/bu-lang/bu/pkg/lexer"
	"github.com/bu-lang/bu/pkg/natives"
	"github.com/bu-lang/bu/pkg/parser"
	"github.com/bu-lang/bu/pkg/vm"
)

var replCommand = cli.Command{
	Name:   "repl",
	Usage:  "start an interactive bu session",
	Action: replAction,
}

const historyFile = ".bu_history"

// replAction drives a read-eval-print loop over peterh/liner, which
// supplies line editing, a persistent history file, and ctrl-R search.
// Each accepted line is appended to a growing source buffer and the
// whole buffer is recompiled and rerun from scratch on every step: the
// front end exposes no incremental-compile entry point, so replaying
// the accumulated program is how top-level var/function/class
// declarations stay visible to later lines.
func replAction(ctx *cli.Context) error {
	if ctx.GlobalBool(verboseFlag.Name) {
		bulog.SetDefault(bulog.New(ctx.App.ErrWriter, bulog.LevelDebug))
	}
	cfg, err := config.Load(ctx.GlobalString(configFlag.Name))
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	fmt.Fprintf(ctx.App.Writer, "bu %s — interactive session, :quit to exit\n", appVersion())

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	if f, err := openHistory(); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer saveHistory(line)

	var source strings.Builder
	reg := natives.NewRegistry()

	for {
		input, err := line.Prompt("bu> ")
		if err == liner.ErrPromptAborted || err == io.EOF {
			return nil
		}
		if err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		trimmed := strings.TrimSpace(input)
		if trimmed == "" {
			continue
		}
		line.AppendHistory(input)
		switch trimmed {
		case ":quit", ":exit":
			return nil
		case ":help":
			printREPLHelp(ctx)
			continue
		}

		source.WriteString(input)
		source.WriteString("\n")

		if err := evalREPL(ctx, cfg, reg, source.String()); err != nil {
			fmt.Fprintln(ctx.App.ErrWriter, err)
		}
	}
}

func evalREPL(ctx *cli.Context, cfg config.Config, reg *natives.Registry, src string) error {
	p := parser.New(lexer.New(src))
	astProgram, err := p.Parse()
	if err != nil {
		return fmt.Errorf("parse error: %v (%v)", err, p.Errors())
	}
	prog, err := compiler.New().Compile(astProgram)
	if err != nil {
		return fmt.Errorf("compile error: %v", err)
	}
	if prog.EntryFunction < 0 {
		return nil
	}

	machine := vm.New(prog, reg)
	cfg.ApplyGC(machine.GC)
	machine.Out = ctx.App.Writer

	f := cfg.NewFiber()
	_, err = machine.CallFunction(f, prog.Function(prog.EntryFunction), nil)
	if err != nil {
		return fmt.Errorf("runtime error: %v", err)
	}
	return nil
}

// historyPath returns the REPL history file under the user's home
// directory, falling back to the current directory when it can't be
// resolved.
func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return historyFile
	}
	return filepath.Join(home, historyFile)
}

func openHistory() (*os.File, error) {
	return os.Open(historyPath())
}

func saveHistory(line *liner.State) {
	f, err := os.Create(historyPath())
	if err != nil {
		return
	}
	defer f.Close()
	line.WriteHistory(f)
}

func printREPLHelp(ctx *cli.Context) {
	fmt.Fprintln(ctx.App.Writer, "Commands:")
	fmt.Fprintln(ctx.App.Writer, "  :help     show this help")
	fmt.Fprintln(ctx.App.Writer, "  :quit     exit the session")
	fmt.Fprintln(ctx.App.Writer, "  :exit     exit the session")
}
