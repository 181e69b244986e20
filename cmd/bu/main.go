// Command bu is the reference CLI for the bu scripting VM: it compiles
// and runs bu source or precompiled .bubc bytecode, hosts an
// interactive REPL, and disassembles compiled programs for inspection.
package main

import (
	"fmt"
	"os"

	"gopkg.in/urfave/cli.v1"

	"github.com/bu-lang/bu/internal/buildinfo"
)

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file overriding VM tuning defaults",
	}
	verboseFlag = cli.BoolFlag{
		Name:  "verbose",
		Usage: "emit debug-level diagnostic logging",
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "bu"
	app.Usage = "compile, run, and inspect bu scripts"
	app.Version = buildinfo.Version
	app.Flags = []cli.Flag{configFlag, verboseFlag}
	app.Commands = []cli.Command{
		runCommand,
		replCommand,
		compileCommand,
		disassembleCommand,
		versionCommand,
	}
	app.Action = func(ctx *cli.Context) error {
		if ctx.NArg() == 0 {
			return replAction(ctx)
		}
		return runAction(ctx)
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
