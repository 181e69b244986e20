// Package vm implements the interpreter loop: opcode dispatch over a
// fiber's instruction stream, numeric promotion, polymorphic class/
// native-class dispatch, and the frame-return boundary a host uses to
// call into script synchronously.
package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/bu-lang/bu/pkg/bytecode"
	"github.com/bu-lang/bu/pkg/fiber"
	"github.com/bu-lang/bu/pkg/gc"
	"github.com/bu-lang/bu/pkg/natives"
	"github.com/bu-lang/bu/pkg/strintern"
	"github.com/bu-lang/bu/pkg/value"
	"github.com/bu-lang/bu/pkg/vmerrors"
)

// ResultKind is the outcome run_process inspects after one interpreter
// pass to decide what to do with the process next.
type ResultKind int

const (
	ResultFrame ResultKind = iota
	ResultDone
	ResultError
	ResultCallReturn
)

// Result is what Run returns when the fiber suspends, finishes, faults,
// or hits the host's "stop on call return" boundary.
type Result struct {
	Kind         ResultKind
	FramePercent int
	Err          error
	Value        value.Value
}

// Spawner is the seam SPAWN_PROCESS/SPAWN_NATIVE_PROCESS/KILL_PROCESS
// dispatch through. pkg/scheduler implements it; VM can't import
// pkg/scheduler directly since scheduler embeds and drives a VM, so the
// dependency runs the other way — the host wires a Spawner in after
// construction via VM.Spawner.
type Spawner interface {
	// Spawn creates a process from blueprint index idx (native selects
	// the native-process table over the script ProcessDef table),
	// passes args to its constructor, and returns a ProcessInstance
	// Value wrapping the live process.
	Spawn(idx int32, native bool, args []value.Value) (value.Value, error)
	// Kill force-terminates the process wrapped by proc (a
	// ProcessInstance Value).
	Kill(proc value.Value) error
}

// VM is the interpreter: the compiled Program, the native binding
// registry, and the shared heap/collector/string pool every fiber
// allocates through. A VM has no fiber of its own — Run takes one
// explicitly, so one VM can drive many scheduler processes.
type VM struct {
	Program *bytecode.Program
	Natives *natives.Registry
	Heap    *value.Heap
	GC      *gc.Collector
	Strings *strintern.Pool

	Globals []value.Value

	Debugger *Debugger
	Out      io.Writer
	Spawner  Spawner

	// stopAtFrame implements the frame-return boundary: when set (>=0),
	// Run returns ResultCallReturn as soon as the fiber's frame count
	// drops to this value, instead of continuing with the caller's
	// instructions. -1 means disabled.
	stopAtFrame int
}

func New(prog *bytecode.Program, reg *natives.Registry) *VM {
	collector := gc.New()
	return &VM{
		Program:     prog,
		Natives:     reg,
		Heap:        value.NewHeap(collector),
		GC:          collector,
		Strings:     strintern.New(0),
		Globals:     make([]value.Value, len(prog.GlobalNames)),
		Out:         os.Stdout,
		stopAtFrame: -1,
	}
}

// Run drives f's interpreter loop until it suspends (frame/yield),
// finishes, faults, or crosses the frame-return boundary.
func (vm *VM) Run(f *fiber.Fiber) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			if ve, ok := r.(*vmerrors.VMError); ok {
				res = Result{Kind: ResultError, Err: ve}
				return
			}
			panic(r)
		}
	}()

	for {
		if vm.stopAtFrame >= 0 && f.FP <= vm.stopAtFrame {
			return Result{Kind: ResultCallReturn, Value: f.Peek(0)}
		}
		frame := f.CurrentFrame()
		if frame == nil {
			return Result{Kind: ResultDone}
		}

		code := frame.Function.Code
		if frame.IP >= len(code.Instructions) {
			return Result{Kind: ResultDone}
		}
		inst := code.Instructions[frame.IP]
		frame.IP++

		if vm.Debugger != nil && vm.Debugger.Enabled {
			vm.Debugger.ShouldPause(frame.IP-1, code)
		}

		result, halt := vm.step(f, frame, inst, code)
		if halt {
			return result
		}
	}
}

// step executes one instruction. halt is true when Run should return
// result immediately (suspension, completion, or fault).
func (vm *VM) step(f *fiber.Fiber, frame *fiber.Frame, inst bytecode.Instruction, code *bytecode.Code) (Result, bool) {
	switch inst.Op {

	case bytecode.OpPushConst:
		vm.mustPush(f, code.Constants[inst.Operand])
	case bytecode.OpPop:
		f.Pop()
	case bytecode.OpDup:
		vm.mustPush(f, f.Peek(0))
	case bytecode.OpSwap:
		a, b := f.Pop(), f.Pop()
		vm.mustPush(f, a)
		vm.mustPush(f, b)

	case bytecode.OpPushNil:
		vm.mustPush(f, value.Nil)
	case bytecode.OpPushTrue:
		vm.mustPush(f, value.Bool(true))
	case bytecode.OpPushFalse:
		vm.mustPush(f, value.Bool(false))
	case bytecode.OpPushSelf:
		vm.mustPush(f, f.Stack[frame.Slots])

	case bytecode.OpLoadLocal:
		vm.mustPush(f, f.Stack[frame.Slots+int(inst.Operand)])
	case bytecode.OpStoreLocal:
		f.Stack[frame.Slots+int(inst.Operand)] = f.Peek(0)
	case bytecode.OpLoadGlobalIdx:
		vm.mustPush(f, vm.Globals[inst.Operand])
	case bytecode.OpStoreGlobalIdx:
		vm.Globals[inst.Operand] = f.Peek(0)
	case bytecode.OpLoadUpvalue:
		vm.mustPush(f, frame.Closure.Upvalues[inst.Operand].Get())
	case bytecode.OpStoreUpvalue:
		frame.Closure.Upvalues[inst.Operand].Set(f.Peek(0))
	case bytecode.OpCloseUpvalue:
		f.CloseFrom(frame.Slots + int(inst.Operand))

	case bytecode.OpLoadField:
		return vm.execLoadField(f, inst)
	case bytecode.OpStoreField:
		return vm.execStoreField(f, inst)
	case bytecode.OpLoadClassVar:
		return vm.execLoadClassVar(f, inst, code)
	case bytecode.OpStoreClassVar:
		return vm.execStoreClassVar(f, inst, code)

	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod,
		bytecode.OpLt, bytecode.OpLe, bytecode.OpGt, bytecode.OpGe, bytecode.OpEq, bytecode.OpNeq,
		bytecode.OpBitAnd, bytecode.OpBitOr, bytecode.OpBitXor, bytecode.OpShl, bytecode.OpShr:
		return vm.execBinary(f, inst.Op)
	case bytecode.OpNeg:
		return vm.execNeg(f)
	case bytecode.OpNot:
		vm.mustPush(f, value.Bool(!f.Pop().Truthy()))
	case bytecode.OpAnd:
		b, a := f.Pop(), f.Pop()
		vm.mustPush(f, value.Bool(a.Truthy() && b.Truthy()))
	case bytecode.OpOr:
		b, a := f.Pop(), f.Pop()
		vm.mustPush(f, value.Bool(a.Truthy() || b.Truthy()))

	case bytecode.OpJump:
		frame.IP = int(inst.Operand)
	case bytecode.OpJumpIfFalse:
		if !f.Pop().Truthy() {
			frame.IP = int(inst.Operand)
		}
	case bytecode.OpJumpIfTrue:
		if f.Pop().Truthy() {
			frame.IP = int(inst.Operand)
		}
	case bytecode.OpLoop:
		frame.IP = int(inst.Operand)

	case bytecode.OpCall:
		return vm.execCall(f, inst)
	case bytecode.OpCallMethod:
		return vm.execCallMethod(f, inst, false)
	case bytecode.OpSuperCallMethod:
		return vm.execCallMethod(f, inst, true)
	case bytecode.OpCallNative:
		return vm.execCallNative(f, inst)
	case bytecode.OpCallNativeMethod:
		return vm.execCallNativeMethod(f, inst)
	case bytecode.OpCallModuleFunc:
		return vm.execCallModuleFunc(f, inst)
	case bytecode.OpReturn:
		return vm.execReturn(f, f.Pop())
	case bytecode.OpReturnNil:
		return vm.execReturn(f, value.Nil)

	case bytecode.OpGosub:
		if err := f.PushGosub(frame.IP); err != nil {
			return vm.fault(f, err)
		}
		frame.IP = int(inst.Operand)
	case bytecode.OpReturnGosub:
		frame.IP = f.PopGosub()

	case bytecode.OpNewArray:
		n := int(inst.Operand)
		elems := make([]value.Value, n)
		for i := n - 1; i >= 0; i-- {
			elems[i] = f.Pop()
		}
		vm.mustPush(f, vm.Heap.NewArray(elems))
	case bytecode.OpNewMap:
		vm.mustPush(f, vm.Heap.NewMap())
	case bytecode.OpNewStruct:
		return vm.execNewStruct(f, inst)
	case bytecode.OpNewClassInstance:
		return vm.execNewClassInstance(f, inst)
	case bytecode.OpNewNativeClassInstance:
		return vm.execNewNativeClassInstance(f, inst)
	case bytecode.OpNewClosure:
		return vm.execNewClosure(f, frame, inst)
	case bytecode.OpNewBuffer:
		elem, count := value.BufferElemKind(inst.Operand>>24), int(inst.Operand&0xFFFFFF)
		vm.mustPush(f, vm.Heap.NewBuffer(elem, count))

	case bytecode.OpIndexGet:
		return vm.execIndexGet(f)
	case bytecode.OpIndexSet:
		return vm.execIndexSet(f)

	case bytecode.OpSpawnProcess:
		return vm.execSpawn(f, inst, false)
	case bytecode.OpSpawnNativeProcess:
		return vm.execSpawn(f, inst, true)
	case bytecode.OpKillProcess:
		return vm.execKillProcess(f)

	case bytecode.OpTry:
		return vm.execTry(f, inst)
	case bytecode.OpPopTry:
		f.PopTry()
	case bytecode.OpThrow:
		return vm.execThrow(f, code)
	case bytecode.OpEndFinally:
		return vm.execEndFinally(f)

	case bytecode.OpFrame:
		return Result{Kind: ResultFrame, FramePercent: int(inst.Operand)}, true
	case bytecode.OpYield:
		return Result{Kind: ResultFrame, FramePercent: 100}, true
	case bytecode.OpExitProcess:
		return Result{Kind: ResultDone}, true

	case bytecode.OpPrint:
		fmt.Fprintln(vm.Out, f.Pop().String())
	case bytecode.OpNop:
	case bytecode.OpHalt:
		return Result{Kind: ResultDone}, true

	default:
		return vm.fault(f, vmerrors.Newf(vmerrors.KindRuntime, "unimplemented opcode %s", inst.Op))
	}
	return Result{}, false
}

// mustPush pushes v, converting an overflow into a fault. Stack
// discipline is a compiler invariant — an overflow here means STACK_MAX
// was undersized for this program, not a script-catchable condition —
// so it panics up to Run's recover rather than threading an error
// through every call site.
func (vm *VM) mustPush(f *fiber.Fiber, v value.Value) {
	if err := f.Push(v); err != nil {
		panic(vmerrors.WithTrace(vmerrors.KindRuntime, err, vm.captureTrace(f)))
	}
}

// fault raises err as a script-visible throwable (its message as a
// String) through the try-handler stack; only when no handler catches it
// does it leave Run as a RuntimeError.
func (vm *VM) fault(f *fiber.Fiber, err error) (Result, bool) {
	trace := vm.captureTrace(f)
	if f.TrySP > 0 {
		vm.mustPush(f, value.Str(vm.Strings.InternString(err.Error())))
		if res, halt := vm.execThrow(f, nil); !halt {
			return res, false
		}
	}
	return Result{Kind: ResultError, Err: vmerrors.WithTrace(vmerrors.KindRuntime, err, trace)}, true
}

func (vm *VM) captureTrace(f *fiber.Fiber) []vmerrors.StackFrame {
	trace := make([]vmerrors.StackFrame, 0, f.FP)
	for i := f.FP - 1; i >= 0; i-- {
		fr := f.Frames[i]
		name := ""
		if fr.Function != nil {
			name = fr.Function.Name
		}
		trace = append(trace, vmerrors.StackFrame{FunctionName: name, IP: fr.IP})
	}
	return trace
}

// CallFunction implements the host's synchronous call-into-script entry
// point: it pushes a new frame for fn, sets the one-shot frame-return
// boundary at the current frame depth, and runs until that frame
// returns.
func (vm *VM) CallFunction(f *fiber.Fiber, fn *bytecode.Function, args []value.Value) (value.Value, error) {
	boundary := f.FP
	slots := f.SP
	for _, a := range args {
		if err := f.Push(a); err != nil {
			return value.Nil, err
		}
	}
	if err := f.PushFrame(fn, 0, slots, nil); err != nil {
		return value.Nil, err
	}

	prevStop := vm.stopAtFrame
	vm.stopAtFrame = boundary
	defer func() { vm.stopAtFrame = prevStop }()

	res := vm.Run(f)
	switch res.Kind {
	case ResultCallReturn:
		return res.Value, nil
	case ResultError:
		return value.Nil, res.Err
	default:
		return value.Nil, nil
	}
}

// CallMethod is CallFunction's counterpart for dispatching an already-
// resolved method with a bound receiver and defining class, used by
// hosts and native bindings that need to invoke a script method
// synchronously (e.g. a signal handler looked up by name on a class or
// process instance) rather than through CALL_METHOD's own dispatch.
// Unlike a plain function call, the method's defining class matters
// for SUPER_CALL_METHOD/LOAD_CLASSVAR resolution inside it.
func (vm *VM) CallMethod(f *fiber.Fiber, fn *bytecode.Function, definingClass *bytecode.ClassDef, receiver value.Value, args []value.Value) (value.Value, error) {
	boundary := f.FP
	slots := f.SP
	if err := f.Push(receiver); err != nil {
		return value.Nil, err
	}
	for _, a := range args {
		if err := f.Push(a); err != nil {
			return value.Nil, err
		}
	}
	if err := f.PushFrame(fn, 0, slots, nil); err != nil {
		return value.Nil, err
	}
	f.CurrentFrame().DefiningClass = definingClass

	prevStop := vm.stopAtFrame
	vm.stopAtFrame = boundary
	defer func() { vm.stopAtFrame = prevStop }()

	res := vm.Run(f)
	switch res.Kind {
	case ResultCallReturn:
		return res.Value, nil
	case ResultError:
		return value.Nil, res.Err
	default:
		return value.Nil, nil
	}
}
