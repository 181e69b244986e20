package main

import (
	"gopkg.in/urfave/cli.v1"

	"github.com/bu-lang/bu/internal/bulog"
	"github.com/bu-lang/bu/internal/config"
	"github.com/bu-lang/bu/pkg/natives"
	"github.com/bu-lang/bu/pkg/scheduler"
	"github.com/bu-lang/bu/pkg/vm"
)

// tickRate is the fixed dt the headless `run` subcommand feeds the
// scheduler between updates; an embedding host would instead drive
// Update from its own frame clock.
const tickRate = 1.0 / 60.0

var runCommand = cli.Command{
	Name:      "run",
	Usage:     "compile and run a bu source or .bubc file",
	ArgsUsage: "<file>",
	Action:    runAction,
}

func runAction(ctx *cli.Context) error {
	path := ctx.Args().First()
	if path == "" {
		return cli.NewExitError("run: no file specified", 1)
	}

	if ctx.GlobalBool(verboseFlag.Name) {
		bulog.SetDefault(bulog.New(ctx.App.ErrWriter, bulog.LevelDebug))
	}

	cfg, err := config.Load(ctx.GlobalString(configFlag.Name))
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	reg := natives.NewRegistry()
	prog, err := loadProgram(path, reg)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	if prog.EntryFunction < 0 {
		return cli.NewExitError("run: program has no entry function", 1)
	}

	machine := vm.New(prog, reg)
	cfg.ApplyGC(machine.GC)

	sched := scheduler.New(machine, prog, reg, cfg.NewPool(), scheduler.NullHooks{})
	f := cfg.NewFiber()

	entry := prog.Function(prog.EntryFunction)
	if _, err := machine.CallFunction(f, entry, nil); err != nil {
		return cli.NewExitError("runtime error: "+err.Error(), 1)
	}

	for sched.AliveCount() > 0 {
		sched.Update(tickRate)
	}
	return nil
}
