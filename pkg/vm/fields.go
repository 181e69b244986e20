package vm

import (
	"github.com/bu-lang/bu/pkg/bytecode"
	"github.com/bu-lang/bu/pkg/fiber"
	"github.com/bu-lang/bu/pkg/value"
	"github.com/bu-lang/bu/pkg/vmerrors"
)

// fieldHolder is implemented by *scheduler.Process so LOAD_FIELD/
// STORE_FIELD can address a process's privates array the same way they
// address a ClassInstance's fields, without pkg/vm importing
// pkg/scheduler (which itself embeds a *VM).
type fieldHolder interface {
	Fields() []value.Value
}

// selfFields returns the current frame's self value's field slice —
// StructInstance, ClassInstance, or (a process's Body frame, or one of
// its ordinary methods, running with self bound to the process)
// ProcessInstance — or an error if self isn't a field-bearing kind.
func selfFields(f *fiber.Fiber, frame *fiber.Frame) ([]value.Value, error) {
	self := f.Stack[frame.Slots]
	switch self.Kind {
	case value.KindStructInstance:
		return self.Obj.(*value.StructInstance).Fields, nil
	case value.KindClassInstance:
		return self.Obj.(*value.ClassInstance).Fields, nil
	case value.KindProcessInstance:
		if fh, ok := self.Any.(fieldHolder); ok {
			return fh.Fields(), nil
		}
		return nil, vmerrors.New(vmerrors.KindRuntime, "process instance has no field storage")
	default:
		return nil, vmerrors.Newf(vmerrors.KindRuntime, "LOAD_FIELD/STORE_FIELD on non-instance self (%s)", self.Kind)
	}
}

// execLoadField implements LOAD_FIELD: operand is a field index into
// self's own field slice.
func (vm *VM) execLoadField(f *fiber.Fiber, inst bytecode.Instruction) (Result, bool) {
	frame := f.CurrentFrame()
	fields, err := selfFields(f, frame)
	if err != nil {
		return vm.fault(f, err)
	}
	idx := int(inst.Operand)
	if idx < 0 || idx >= len(fields) {
		return vm.fault(f, vmerrors.Newf(vmerrors.KindRuntime, "field index %d out of range (have %d)", idx, len(fields)))
	}
	vm.mustPush(f, fields[idx])
	return Result{}, false
}

// execStoreField implements STORE_FIELD, leaving the stored value on
// the stack (assignment is an expression).
func (vm *VM) execStoreField(f *fiber.Fiber, inst bytecode.Instruction) (Result, bool) {
	frame := f.CurrentFrame()
	fields, err := selfFields(f, frame)
	if err != nil {
		return vm.fault(f, err)
	}
	idx := int(inst.Operand)
	if idx < 0 || idx >= len(fields) {
		return vm.fault(f, vmerrors.Newf(vmerrors.KindRuntime, "field index %d out of range (have %d)", idx, len(fields)))
	}
	fields[idx] = f.Peek(0)
	return Result{}, false
}

// classVarClass returns the ClassDef that owns the currently executing
// method, used to resolve LOAD_CLASSVAR/STORE_CLASSVAR's shared
// (non-per-instance) storage.
func classVarClass(frame *fiber.Frame) *bytecode.ClassDef {
	if frame.DefiningClass != nil {
		return frame.DefiningClass
	}
	return nil
}

// execLoadClassVar implements LOAD_CLASSVAR: operand is a constant-pool
// index holding the variable's interned name.
func (vm *VM) execLoadClassVar(f *fiber.Fiber, inst bytecode.Instruction, code *bytecode.Code) (Result, bool) {
	frame := f.CurrentFrame()
	cls := classVarClass(frame)
	if cls == nil {
		return vm.fault(f, vmerrors.New(vmerrors.KindRuntime, "LOAD_CLASSVAR outside a method"))
	}
	name := code.Constants[inst.Operand].String()
	v, ok := cls.ClassVars[name]
	if !ok {
		return vm.fault(f, vmerrors.Newf(vmerrors.KindRuntime, "undefined class variable %q on %s", name, cls.Name))
	}
	vm.mustPush(f, v)
	return Result{}, false
}

// execStoreClassVar implements STORE_CLASSVAR, leaving the stored value
// on the stack.
func (vm *VM) execStoreClassVar(f *fiber.Fiber, inst bytecode.Instruction, code *bytecode.Code) (Result, bool) {
	frame := f.CurrentFrame()
	cls := classVarClass(frame)
	if cls == nil {
		return vm.fault(f, vmerrors.New(vmerrors.KindRuntime, "STORE_CLASSVAR outside a method"))
	}
	name := code.Constants[inst.Operand].String()
	cls.ClassVars[name] = f.Peek(0)
	return Result{}, false
}
