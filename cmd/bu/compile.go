package main

import (
	"fmt"

	"gopkg.in/urfave/cli.v1"

	"github.com/bu-lang/bu/pkg/bytefile"
	"github.com/bu-lang/bu/pkg/natives"
)

var compileCommand = cli.Command{
	Name:      "compile",
	Usage:     "compile a bu source file to a .bubc bytecode file",
	ArgsUsage: "<file.bu>",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "o",
			Usage: "output path (default: replace the source extension with .bubc)",
		},
	},
	Action: compileAction,
}

func compileAction(ctx *cli.Context) error {
	path := ctx.Args().First()
	if path == "" {
		return cli.NewExitError("compile: no file specified", 1)
	}

	prog, err := compileSource(path)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	out := ctx.String("o")
	if out == "" {
		out = bytefile.DefaultOutputPath(path)
	}

	if err := bytefile.Save(out, prog, natives.NewRegistry()); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	fmt.Fprintf(ctx.App.Writer, "wrote %s\n", out)
	return nil
}
