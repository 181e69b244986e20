package scheduler

import (
	"github.com/bu-lang/bu/pkg/bytecode"
	"github.com/bu-lang/bu/pkg/fiber"
	"github.com/bu-lang/bu/pkg/msgqueue"
	"github.com/bu-lang/bu/pkg/natives"
	"github.com/bu-lang/bu/pkg/privates"
	"github.com/bu-lang/bu/pkg/value"
)

// State is a Process's scheduling state.
type State int

const (
	StateRunning State = iota
	StateSuspended
	StateFrozen
	StateDead
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateSuspended:
		return "suspended"
	case StateFrozen:
		return "frozen"
	case StateDead:
		return "dead"
	default:
		return "unknown"
	}
}

// Process is a live, schedulable fiber plus the bookkeeping a
// blueprint-based spawn needs. A script process's fiber has its
// ProcessDef's Body pushed as its sole top-level frame at spawn time;
// class carries the defining ClassDef so CALL_METHOD can still resolve
// any ordinary helper methods the declaration defines. A native
// process carries native instead and skips the interpreter loop
// entirely, driven by its Run callback each tick.
type Process struct {
	*fiber.Fiber

	class  *bytecode.ClassDef
	def    *bytecode.ProcessDef
	native *natives.NativeProcessDef

	ID          uint32
	State       State
	ResumeTime  float64
	Privates    [privates.Count]value.Value
	Messages    msgqueue.Queue
	ExitCode    int32
	Initialized bool
	DebugTag    string

	self value.Value
}

func newProcess() *Process {
	return &Process{Fiber: fiber.New(0, 0, 0, 0)}
}

// Blueprint implements pkg/vm's blueprintHolder seam, letting CALL_METHOD
// resolve methods on a process receiver the same way it does on a
// ClassInstance.
func (p *Process) Blueprint() *bytecode.ClassDef { return p.class }

// Fields implements pkg/vm's fieldHolder seam: LOAD_FIELD/STORE_FIELD
// against a process self address this array, privates.Lookup mapping
// identifier to index at compile time.
func (p *Process) Fields() []value.Value { return p.Privates[:] }

// Self returns the ProcessInstance Value wrapping this process, the
// same Value spawn() returned to the spawning script.
func (p *Process) Self() value.Value { return p.self }

func (p *Process) reset() {
	p.Fiber.SP = 0
	p.Fiber.FP = 0
	p.Fiber.GosubSP = 0
	p.Fiber.TrySP = 0
	p.Fiber.OpenUpvalues = nil
	p.class = nil
	p.def = nil
	p.native = nil
	p.ID = 0
	p.State = StateDead
	p.ResumeTime = 0
	for i := range p.Privates {
		p.Privates[i] = value.Nil
	}
	p.Messages.Clear()
	p.ExitCode = 0
	p.Initialized = false
	p.DebugTag = ""
	p.self = value.Nil
}
