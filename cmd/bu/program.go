package main

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/bu-lang/bu/pkg/bytecode"
	"github.com/bu-lang/bu/pkg/bytefile"
	"github.com/bu-lang/bu/pkg/compiler"
	"github.com/bu-lang/bu/pkg/lexer"
	"github.com/bu-lang/bu/pkg/natives"
	"github.com/bu-lang/bu/pkg/parser"
	"github.com/bu-lang/bu/pkg/strintern"
)

// loadProgram reads path, which is either bu source or a precompiled
// .bubc file (detected by extension), and returns its compiled Program.
// reg is the native registry a .bubc file is verified against; it is not
// used for source files.
func loadProgram(path string, reg *natives.Registry) (*bytecode.Program, error) {
	if filepath.Ext(path) == bytefile.Ext {
		pool := strintern.New(0)
		prog, err := bytefile.Load(path, pool, reg)
		if err != nil {
			return nil, errors.Wrapf(err, "load %s", path)
		}
		return prog, nil
	}
	return compileSource(path)
}

// compileSource parses and compiles a bu source file to bytecode.
func compileSource(path string) (*bytecode.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	p := parser.New(lexer.New(string(data)))
	astProgram, err := p.Parse()
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s: %v", path, p.Errors())
	}
	prog, err := compiler.New().Compile(astProgram)
	if err != nil {
		return nil, errors.Wrapf(err, "compile %s", path)
	}
	return prog, nil
}
