package vm

import (
	"github.com/bu-lang/bu/pkg/bytecode"
	"github.com/bu-lang/bu/pkg/fiber"
	"github.com/bu-lang/bu/pkg/natives"
	"github.com/bu-lang/bu/pkg/value"
	"github.com/bu-lang/bu/pkg/vmerrors"
)

// NewModuleReference builds the constant a linked CALL_MODULE_FUNC site
// pushes: Num carries the packed (module_id, func_id) pair for
// disassembly and serialization, Any carries the resolved *natives.Module
// directly so dispatch never has to re-resolve a module by name at
// runtime.
func NewModuleReference(moduleID, funcID uint16, mod *natives.Module) value.Value {
	v := value.ModuleRef(moduleID, funcID)
	v.Any = mod
	return v
}

// execCall implements CALL: dispatch by the callee Value's own variant,
// per the polymorphic "calling a Value" rule — Function pushes a script
// frame, Native calls the host callback, Closure pushes a frame bound to
// its upvalues, ModuleReference decodes (module_id, func_id) and calls
// the module's native function. Stack layout: [..., arg0, ..., argN-1,
// callee] — the callee sits on top so popping it leaves the args in
// place as the new frame's locals.
func (vm *VM) execCall(f *fiber.Fiber, inst bytecode.Instruction) (Result, bool) {
	argCount := int(inst.Operand)
	callee := f.Pop()
	slots := f.SP - argCount

	switch callee.Kind {
	case value.KindFunction:
		fn := vm.Program.Function(callee.Index())
		if fn == nil {
			return vm.fault(f, vmerrors.Newf(vmerrors.KindRuntime, "undefined function index %d", callee.Index()))
		}
		if err := f.PushFrame(fn, 0, slots, nil); err != nil {
			return vm.fault(f, err)
		}
	case value.KindClosure:
		closure := callee.Obj.(*value.Closure)
		fn := vm.Program.Function(closure.FuncIndex)
		if fn == nil {
			return vm.fault(f, vmerrors.Newf(vmerrors.KindRuntime, "undefined function index %d", closure.FuncIndex))
		}
		if err := f.PushFrame(fn, 0, slots, closure); err != nil {
			return vm.fault(f, err)
		}
	case value.KindNative:
		nativeFn, ok := vm.Natives.Function(callee.Index())
		if !ok {
			return vm.fault(f, vmerrors.Newf(vmerrors.KindRuntime, "undefined native function index %d", callee.Index()))
		}
		args := append([]value.Value(nil), f.Stack[slots:f.SP]...)
		f.SP = slots
		result, err := nativeFn(vm, args)
		if err != nil {
			return vm.fault(f, vmerrors.Newf(vmerrors.KindNative, "%v", err))
		}
		vm.mustPush(f, result)
	case value.KindModuleReference:
		return vm.callModuleReference(f, callee, slots)
	default:
		return vm.fault(f, vmerrors.Newf(vmerrors.KindRuntime, "value of kind %s is not callable", callee.Kind))
	}
	return Result{}, false
}

func (vm *VM) callModuleReference(f *fiber.Fiber, ref value.Value, slots int) (Result, bool) {
	_, funcID := ref.ModuleFunc()
	mod, ok := ref.Any.(*natives.Module)
	if !ok {
		return vm.fault(f, vmerrors.New(vmerrors.KindRuntime, "unlinked module reference"))
	}
	fn, ok := mod.Function(funcID)
	if !ok {
		return vm.fault(f, vmerrors.Newf(vmerrors.KindRuntime, "undefined module function id %d", funcID))
	}
	args := append([]value.Value(nil), f.Stack[slots:f.SP]...)
	f.SP = slots
	result, err := fn(vm, args)
	if err != nil {
		return vm.fault(f, vmerrors.Newf(vmerrors.KindNative, "%v", err))
	}
	vm.mustPush(f, result)
	return Result{}, false
}

// execCallMethod implements CALL_METHOD/SUPER_CALL_METHOD: walk the
// receiver's class chain (or, for super, start one level above the
// currently executing method's defining class) looking for selector; if
// found, push a frame with the receiver at slot 0 ("self"). If a native
// superclass carries the method instead, invoke it directly. Stack
// layout: [..., receiver, arg0, ..., argN-1].
func (vm *VM) execCallMethod(f *fiber.Fiber, inst bytecode.Instruction, isSuper bool) (Result, bool) {
	selConstIdx, argCount := bytecode.UnpackSelector(inst.Operand)
	frame := f.CurrentFrame()
	selector := frame.Function.Code.Constants[selConstIdx].String()

	slots := f.SP - argCount - 1
	receiver := f.Stack[slots]

	startClass := vm.classOf(receiver)
	if isSuper {
		if frame.DefiningClass == nil {
			return vm.fault(f, vmerrors.New(vmerrors.KindRuntime, "super call outside a method"))
		}
		startClass = frame.DefiningClass.Super
	}

	if startClass != nil {
		if fn, owner := startClass.ResolveMethod(selector); fn != nil {
			if err := f.PushFrame(fn, 0, slots, nil); err != nil {
				return vm.fault(f, err)
			}
			f.CurrentFrame().DefiningClass = owner
			return Result{}, false
		}
	}

	if native := vm.nativeSuperOf(receiver, startClass); native != nil {
		if method, ok := native.Methods[selector]; ok {
			args := append([]value.Value(nil), f.Stack[slots+1:f.SP]...)
			f.SP = slots
			result, err := method(vm, receiver, args)
			if err != nil {
				return vm.fault(f, vmerrors.Newf(vmerrors.KindNative, "%v", err))
			}
			vm.mustPush(f, result)
			return Result{}, false
		}
	}

	return vm.fault(f, vmerrors.Newf(vmerrors.KindRuntime, "undefined method %q on %s", selector, receiver.Kind))
}

// blueprintHolder is implemented by *scheduler.Process so CALL_METHOD
// can resolve a ProcessDef's (embedded ClassDef's) methods the same way
// it resolves a ClassInstance's, without pkg/vm importing pkg/scheduler.
type blueprintHolder interface {
	Blueprint() *bytecode.ClassDef
}

// classOf returns receiver's runtime ClassDef, or nil if it isn't a
// script class instance or a process instance with a script blueprint.
func (vm *VM) classOf(receiver value.Value) *bytecode.ClassDef {
	switch receiver.Kind {
	case value.KindClassInstance:
		inst := receiver.Obj.(*value.ClassInstance)
		cd, _ := inst.Blueprint.(*bytecode.ClassDef)
		return cd
	case value.KindProcessInstance:
		if bh, ok := receiver.Any.(blueprintHolder); ok {
			return bh.Blueprint()
		}
		return nil
	default:
		return nil
	}
}

// nativeSuperOf returns the NativeClassDef a script class inherits from,
// if any, consulting startClass (the chain's topmost remaining link) so
// a super-call correctly skips classes already searched.
func (vm *VM) nativeSuperOf(receiver value.Value, startClass *bytecode.ClassDef) *bytecode.NativeClassDef {
	if startClass != nil {
		return startClass.NativeSuper
	}
	if receiver.Kind == value.KindClassInstance {
		inst := receiver.Obj.(*value.ClassInstance)
		if cd, ok := inst.Blueprint.(*bytecode.ClassDef); ok {
			return cd.NativeSuper
		}
	}
	if receiver.Kind == value.KindNativeClassInstance {
		inst := receiver.Obj.(*value.NativeClassInstance)
		def, _ := inst.Def.(*bytecode.NativeClassDef)
		return def
	}
	return nil
}

// execCallNative implements CALL_NATIVE: call a host callback directly
// by native-function index, with no receiver.
func (vm *VM) execCallNative(f *fiber.Fiber, inst bytecode.Instruction) (Result, bool) {
	idx, argCount := bytecode.UnpackSelector(inst.Operand)
	fn, ok := vm.Natives.Function(int32(idx))
	if !ok {
		return vm.fault(f, vmerrors.Newf(vmerrors.KindRuntime, "undefined native function index %d", idx))
	}
	slots := f.SP - argCount
	args := append([]value.Value(nil), f.Stack[slots:f.SP]...)
	f.SP = slots
	result, err := fn(vm, args)
	if err != nil {
		return vm.fault(f, vmerrors.Newf(vmerrors.KindNative, "%v", err))
	}
	vm.mustPush(f, result)
	return Result{}, false
}

// execCallNativeMethod implements CALL_NATIVE_METHOD: call a method on
// a NativeClassInstance or NativeStructInstance directly, bypassing
// script class resolution (used when the compiler already knows the
// receiver's static type is a native class).
func (vm *VM) execCallNativeMethod(f *fiber.Fiber, inst bytecode.Instruction) (Result, bool) {
	selConstIdx, argCount := bytecode.UnpackSelector(inst.Operand)
	frame := f.CurrentFrame()
	selector := frame.Function.Code.Constants[selConstIdx].String()

	slots := f.SP - argCount - 1
	receiver := f.Stack[slots]

	if receiver.Kind != value.KindNativeClassInstance {
		return vm.fault(f, vmerrors.Newf(vmerrors.KindRuntime, "CALL_NATIVE_METHOD on non-native-class value %s", receiver.Kind))
	}
	inst2 := receiver.Obj.(*value.NativeClassInstance)
	def, _ := inst2.Def.(*bytecode.NativeClassDef)
	if def == nil {
		return vm.fault(f, vmerrors.New(vmerrors.KindRuntime, "native class instance has no definition"))
	}
	method, ok := def.Methods[selector]
	if !ok {
		return vm.fault(f, vmerrors.Newf(vmerrors.KindRuntime, "undefined native method %q on %s", selector, def.Name))
	}
	args := append([]value.Value(nil), f.Stack[slots+1:f.SP]...)
	f.SP = slots
	result, err := method(vm, receiver, args)
	if err != nil {
		return vm.fault(f, vmerrors.Newf(vmerrors.KindNative, "%v", err))
	}
	vm.mustPush(f, result)
	return Result{}, false
}

// execCallModuleFunc implements CALL_MODULE_FUNC. The ModuleReference
// callee must be on top of the stack, above its arguments; module_id/
// func_id are not read from this instruction's operand, so dispatch here
// is identical to CALL's ModuleReference case — only argCount is read
// from the operand. pkg/compiler does not emit this opcode.
func (vm *VM) execCallModuleFunc(f *fiber.Fiber, inst bytecode.Instruction) (Result, bool) {
	argCount := int(inst.Operand)
	callee := f.Pop()
	if callee.Kind != value.KindModuleReference {
		return vm.fault(f, vmerrors.New(vmerrors.KindRuntime, "CALL_MODULE_FUNC operand is not a ModuleReference"))
	}
	slots := f.SP - argCount
	return vm.callModuleReference(f, callee, slots)
}

// execReturn implements RETURN/RETURN_NIL: close upvalues opened over
// this frame's locals, pop the frame, push the result for the caller,
// and replay the exception machinery's deferred-return mechanism if a
// try/finally is still pending in this frame's handler stack.
func (vm *VM) execReturn(f *fiber.Fiber, result value.Value) (Result, bool) {
	frame := f.CurrentFrame()
	if h := f.CurrentTry(); h != nil && h.FrameRestore == f.FP && h.FinallyIP >= 0 && !h.InFinally {
		return vm.deferReturn(f, h, result)
	}

	f.CloseFrom(frame.Slots)
	popped := f.PopFrame()
	f.SP = popped.Slots
	vm.mustPush(f, result)
	return Result{}, false
}
