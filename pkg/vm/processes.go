package vm

import (
	"github.com/bu-lang/bu/pkg/bytecode"
	"github.com/bu-lang/bu/pkg/fiber"
	"github.com/bu-lang/bu/pkg/value"
	"github.com/bu-lang/bu/pkg/vmerrors"
)

// execSpawn implements SPAWN_PROCESS/SPAWN_NATIVE_PROCESS: pop argCount
// constructor arguments, hand them to the host Spawner along with the
// blueprint index packed into the operand, and push the resulting
// ProcessInstance. Spawning itself — pool recycling, copying the
// blueprint's privates, monotonic id assignment — is the scheduler's job, not the
// interpreter's; the VM only knows how to ask for it.
func (vm *VM) execSpawn(f *fiber.Fiber, inst bytecode.Instruction, native bool) (Result, bool) {
	if vm.Spawner == nil {
		return vm.fault(f, vmerrors.New(vmerrors.KindRuntime, "no process spawner installed"))
	}
	idx, argCount := bytecode.UnpackSelector(inst.Operand)
	slots := f.SP - argCount
	args := append([]value.Value(nil), f.Stack[slots:f.SP]...)
	f.SP = slots

	proc, err := vm.Spawner.Spawn(int32(idx), native, args)
	if err != nil {
		return vm.fault(f, err)
	}
	vm.mustPush(f, proc)
	return Result{}, false
}

// execKillProcess implements KILL_PROCESS: pops a ProcessInstance and
// asks the host Spawner to force it Dead.
func (vm *VM) execKillProcess(f *fiber.Fiber) (Result, bool) {
	if vm.Spawner == nil {
		return vm.fault(f, vmerrors.New(vmerrors.KindRuntime, "no process spawner installed"))
	}
	proc := f.Pop()
	if proc.Kind != value.KindProcessInstance {
		return vm.fault(f, vmerrors.Newf(vmerrors.KindRuntime, "KILL_PROCESS on non-process value %s", proc.Kind))
	}
	if err := vm.Spawner.Kill(proc); err != nil {
		return vm.fault(f, err)
	}
	return Result{}, false
}
