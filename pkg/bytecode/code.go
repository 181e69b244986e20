package bytecode

import "github.com/bu-lang/bu/pkg/value"

// Code is one unit of compiled instructions: the instruction stream, a
// parallel source-line table for error reporting, and the constant pool
// the instructions index into. Every Function owns one Code; the
// top-level script itself compiles to a synthetic zero-arity Function.
type Code struct {
	Instructions []Instruction
	Lines        []uint32
	Constants    []value.Value
}

// NewCode returns an empty Code ready for a builder to append to.
func NewCode() *Code {
	return &Code{}
}

// Emit appends an instruction and its source line, keeping Lines in
// lockstep with Instructions, and returns the index the instruction was
// written at (used by the compiler to patch forward jumps).
func (c *Code) Emit(op Opcode, operand int32, line uint32) int {
	c.Instructions = append(c.Instructions, Instruction{Op: op, Operand: operand})
	c.Lines = append(c.Lines, line)
	return len(c.Instructions) - 1
}

// Patch rewrites the operand of an already-emitted instruction, used to
// back-patch forward jump targets once the jump destination is known.
func (c *Code) Patch(index int, operand int32) {
	c.Instructions[index].Operand = operand
}

// AddConstant appends v to the constant pool and returns its index.
func (c *Code) AddConstant(v value.Value) int32 {
	c.Constants = append(c.Constants, v)
	return int32(len(c.Constants) - 1)
}

// Len reports the current instruction count, i.e. the address the next
// Emit call would land at — used by the compiler to compute jump offsets.
func (c *Code) Len() int { return len(c.Instructions) }

// LineFor returns the source line associated with instruction ip, or 0
// if ip is out of range.
func (c *Code) LineFor(ip int) uint32 {
	if ip < 0 || ip >= len(c.Lines) {
		return 0
	}
	return c.Lines[ip]
}
