package vm

import (
	"github.com/bu-lang/bu/pkg/bytecode"
	"github.com/bu-lang/bu/pkg/fiber"
	"github.com/bu-lang/bu/pkg/value"
	"github.com/bu-lang/bu/pkg/vmerrors"
)

// execTry implements TRY: operand packs the catch IP and the finally IP
// (-1 if this region has no finally clause). Pushing a handler records
// the stack depth and frame depth to restore to when a throw unwinds to
// it.
func (vm *VM) execTry(f *fiber.Fiber, inst bytecode.Instruction) (Result, bool) {
	catchIP, finallyIP := bytecode.UnpackTry(inst.Operand)
	h := fiber.TryHandler{
		CatchIP:      catchIP,
		FinallyIP:    finallyIP,
		StackRestore: f.SP,
		FrameRestore: f.FP,
	}
	if err := f.PushTry(h); err != nil {
		return vm.fault(f, err)
	}
	return Result{}, false
}

// execThrow implements THROW: pop the thrown value, then unwind the
// try-handler stack top-down looking for a handler whose frame is at or
// above the current fiber (closing any intervening call frames on the
// way), and whose catch hasn't already fired during this unwind. If no
// handler catches it, the error propagates out of Run as a script
// exception.
func (vm *VM) execThrow(f *fiber.Fiber, code *bytecode.Code) (Result, bool) {
	thrown := f.Pop()

	for f.TrySP > 0 {
		h := f.CurrentTry()
		if h.CatchConsumed {
			f.PopTry()
			continue
		}

		for f.FP > h.FrameRestore {
			closing := f.CurrentFrame()
			f.CloseFrom(closing.Slots)
			f.PopFrame()
		}
		f.SP = h.StackRestore

		h.CatchConsumed = true
		frame := f.CurrentFrame()
		frame.IP = h.CatchIP
		vm.mustPush(f, thrown)
		return Result{}, false
	}

	return Result{Kind: ResultError, Err: vmerrors.WithTrace(vmerrors.KindScriptException, scriptError{thrown}, vm.captureTrace(f))}, true
}

// scriptError adapts a thrown script Value to the error interface so it
// can travel through vmerrors.VMError like any host-originated fault.
type scriptError struct {
	Value value.Value
}

func (e scriptError) Error() string { return e.Value.String() }

// execEndFinally implements END_FINALLY, emitted at the end of every
// finally block. It replays whichever of a pending rethrow or a pending
// deferred return (from a return statement executed inside the
// try/finally body) was stashed when control entered the finally block,
// or falls through normally if neither is pending.
func (vm *VM) execEndFinally(f *fiber.Fiber) (Result, bool) {
	h := f.PopTry()

	if h.HasPendingReturn {
		result := value.Nil
		if n := len(h.PendingReturns); n > 0 {
			result = h.PendingReturns[n-1]
		}
		frame := f.CurrentFrame()
		f.CloseFrom(frame.Slots)
		popped := f.PopFrame()
		f.SP = popped.Slots
		vm.mustPush(f, result)
		return Result{}, false
	}

	if h.HasPendingError {
		vm.mustPush(f, h.PendingError)
		return vm.execThrow(f, f.CurrentFrame().Function.Code)
	}

	return Result{}, false
}

// deferReturn implements a return statement executed while a try/finally
// for the same frame is still open: the return value is queued on the
// handler and control is diverted to the finally block instead of
// unwinding the frame immediately. END_FINALLY replays the queued return
// once the finally block completes.
func (vm *VM) deferReturn(f *fiber.Fiber, h *fiber.TryHandler, result value.Value) (Result, bool) {
	if len(h.PendingReturns) >= fiber.MaxPendingReturns {
		return vm.fault(f, vmerrors.New(vmerrors.KindRuntime, "too many nested returns pending inside a single finally block"))
	}
	h.PendingReturns = append(h.PendingReturns, result)
	h.HasPendingReturn = true
	h.InFinally = true
	frame := f.CurrentFrame()
	frame.IP = h.FinallyIP
	return Result{}, false
}
