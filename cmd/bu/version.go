package main

import (
	"fmt"

	"gopkg.in/urfave/cli.v1"

	"github.com/bu-lang/bu/internal/buildinfo"
	"github.com/bu-lang/bu/pkg/bytefile"
)

var versionCommand = cli.Command{
	Name:   "version",
	Usage:  "print version information",
	Action: versionAction,
}

func versionAction(ctx *cli.Context) error {
	fmt.Fprintln(ctx.App.Writer, buildinfo.String())
	fmt.Fprintln(ctx.App.Writer, "bytecode format", bytefile.FormatVersion())
	return nil
}

// appVersion is the short form used in REPL and error banners.
func appVersion() string {
	return buildinfo.Version
}
