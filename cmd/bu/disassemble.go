package main

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/urfave/cli.v1"

	"github.com/bu-lang/bu/pkg/bytecode"
	"github.com/bu-lang/bu/pkg/natives"
	"github.com/bu-lang/bu/pkg/value"
)

var disassembleCommand = cli.Command{
	Name:      "disassemble",
	Aliases:   []string{"dis"},
	Usage:     "print the compiled instructions of a bu source or .bubc file",
	ArgsUsage: "<file>",
	Action:    disassembleAction,
}

func disassembleAction(ctx *cli.Context) error {
	path := ctx.Args().First()
	if path == "" {
		return cli.NewExitError("disassemble: no file specified", 1)
	}

	prog, err := loadProgram(path, natives.NewRegistry())
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	for _, fn := range prog.Functions {
		disassembleFunction(ctx, fn)
	}
	for _, cd := range prog.Classes {
		for _, fn := range cd.Methods {
			disassembleFunction(ctx, fn)
		}
		for _, fn := range cd.ClassMethods {
			disassembleFunction(ctx, fn)
		}
	}
	for _, pd := range prog.Processes {
		disassembleFunction(ctx, pd.Body)
	}
	return nil
}

func disassembleFunction(ctx *cli.Context, fn *bytecode.Function) {
	fmt.Fprintf(ctx.App.Writer, "\nfunction %s (params=%d, locals=%d)\n", fn.Name, fn.ParamCount, fn.LocalCount)

	table := tablewriter.NewWriter(ctx.App.Writer)
	table.SetHeader([]string{"ip", "line", "op", "operand"})
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)

	for ip, inst := range fn.Code.Instructions {
		var line uint32
		if ip < len(fn.Code.Lines) {
			line = fn.Code.Lines[ip]
		}
		table.Append([]string{
			strconv.Itoa(ip),
			strconv.FormatUint(uint64(line), 10),
			inst.Op.String(),
			operandString(inst.Op, inst.Operand, fn.Code.Constants),
		})
	}
	table.Render()
}

// operandString decodes an instruction's operand into a readable form,
// unpacking the packed fields opcodes.go defines for the multi-value
// instructions and resolving constant-pool indices to their value.
func operandString(op bytecode.Opcode, operand int32, constants []value.Value) string {
	switch op {
	case bytecode.OpCallMethod, bytecode.OpSuperCallMethod, bytecode.OpCallNativeMethod:
		selIdx, argc := bytecode.UnpackSelector(operand)
		return fmt.Sprintf("selector=%s argc=%d", constantString(selIdx, constants), argc)
	case bytecode.OpNewClosure:
		funcIdx, parentLocals, params := bytecode.UnpackClosure(operand)
		return fmt.Sprintf("func=%d parentLocals=%d params=%d", funcIdx, parentLocals, params)
	case bytecode.OpCallModuleFunc:
		moduleID, funcID := bytecode.UnpackModuleCall(operand)
		return fmt.Sprintf("module=%d func=%d", moduleID, funcID)
	case bytecode.OpTry:
		catchIP, finallyIP := bytecode.UnpackTry(operand)
		return fmt.Sprintf("catch=%d finally=%d", catchIP, finallyIP)
	case bytecode.OpPushConst:
		return constantString(int(operand), constants)
	default:
		return strconv.Itoa(int(operand))
	}
}

func constantString(idx int, constants []value.Value) string {
	if idx < 0 || idx >= len(constants) {
		return strconv.Itoa(idx)
	}
	return constants[idx].String()
}
