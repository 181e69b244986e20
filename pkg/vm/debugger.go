package vm

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/bu-lang/bu/pkg/bytecode"
)

// Debugger is an interactive breakpoint/step debugger attached to a VM.
// It holds no fiber of its own; Run hands it the current instruction
// pointer and Code before each instruction.
type Debugger struct {
	Enabled bool

	breakpoints map[int]bool
	stepMode    bool
}

// NewDebugger creates a disabled debugger ready to attach to a VM via
// vm.Debugger = d.
func NewDebugger() *Debugger {
	return &Debugger{breakpoints: make(map[int]bool)}
}

func (d *Debugger) Enable()             { d.Enabled = true }
func (d *Debugger) Disable()            { d.Enabled = false }
func (d *Debugger) SetStepMode(on bool) { d.stepMode = on }
func (d *Debugger) AddBreakpoint(ip int) { d.breakpoints[ip] = true }
func (d *Debugger) RemoveBreakpoint(ip int) {
	delete(d.breakpoints, ip)
}
func (d *Debugger) ClearBreakpoints() { d.breakpoints = make(map[int]bool) }

// ShouldPause is called by Run after advancing past instruction ip in
// code; it enters an interactive prompt on stdin/stdout if the debugger
// is in step mode or ip is a breakpoint.
func (d *Debugger) ShouldPause(ip int, code *bytecode.Code) {
	if !d.Enabled {
		return
	}
	if !d.stepMode && !d.breakpoints[ip] {
		return
	}
	d.interactivePrompt(ip, code)
}

func (d *Debugger) showInstruction(ip int, code *bytecode.Code) {
	if ip < 0 || ip >= len(code.Instructions) {
		fmt.Println("no current instruction")
		return
	}
	inst := code.Instructions[ip]
	fmt.Printf("  %4d: %-18s operand=%d\n", ip, inst.Op, inst.Operand)
}

func (d *Debugger) listInstructions(ip int, code *bytecode.Code) {
	for i, inst := range code.Instructions {
		marker := "  "
		if i == ip {
			marker = "->"
		} else if d.breakpoints[i] {
			marker = "* "
		}
		fmt.Printf("%s %4d: %-18s operand=%d\n", marker, i, inst.Op, inst.Operand)
	}
}

// interactivePrompt blocks on stdin until the user asks execution to
// continue.
func (d *Debugger) interactivePrompt(ip int, code *bytecode.Code) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("\n=== paused ===")
	d.showInstruction(ip, code)

	for {
		fmt.Print("debug> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		switch parts[0] {
		case "help", "h", "?":
			d.printHelp()
		case "continue", "c":
			d.SetStepMode(false)
			return
		case "step", "s", "next", "n":
			d.SetStepMode(true)
			return
		case "instruction", "i":
			d.showInstruction(ip, code)
		case "list", "ls":
			d.listInstructions(ip, code)
		case "break", "b":
			if len(parts) < 2 {
				fmt.Println("usage: break <ip>")
				continue
			}
			n, err := strconv.Atoi(parts[1])
			if err != nil {
				fmt.Println("invalid instruction offset")
				continue
			}
			d.AddBreakpoint(n)
		case "delete", "d":
			if len(parts) < 2 {
				fmt.Println("usage: delete <ip>")
				continue
			}
			n, err := strconv.Atoi(parts[1])
			if err != nil {
				fmt.Println("invalid instruction offset")
				continue
			}
			d.RemoveBreakpoint(n)
		case "quit", "q":
			d.Disable()
			return
		default:
			fmt.Printf("unknown command %q (try 'help')\n", parts[0])
		}
	}
}

func (d *Debugger) printHelp() {
	fmt.Println("commands: help continue step instruction list break <ip> delete <ip> quit")
}
