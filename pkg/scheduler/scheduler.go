// Package scheduler implements the cooperative, round-robin process
// scheduler and its recycling process pool. A Process wraps a
// *fiber.Fiber with scheduling bookkeeping (state, resume time) the
// fiber itself knows nothing about; the Scheduler drives each alive
// process's fiber through the shared *vm.VM one suspension point at a
// time, per host Update(dt) tick.
package scheduler

import (
	"github.com/google/uuid"

	"github.com/bu-lang/bu/pkg/bytecode"
	"github.com/bu-lang/bu/pkg/natives"
	"github.com/bu-lang/bu/pkg/privates"
	"github.com/bu-lang/bu/pkg/value"
	"github.com/bu-lang/bu/pkg/vm"
	"github.com/bu-lang/bu/pkg/vmerrors"
)

// ShrinkInterval is how often (in ticks) the scheduler asks its pool to
// drop excess capacity, matching spec's "every ≈300 ticks".
const ShrinkInterval = 300

// Scheduler owns the alive-process list and drives Update(dt) passes
// against a shared VM. It implements vm.Spawner so SPAWN_PROCESS/
// SPAWN_NATIVE_PROCESS/KILL_PROCESS opcodes reach it without pkg/vm
// importing this package.
type Scheduler struct {
	VM      *vm.VM
	Program *bytecode.Program
	Natives *natives.Registry
	Pool    *Pool
	Hooks   Hooks

	alive   []*Process
	cleanup []*Process

	currentTime float64
	tick        uint64
	nextID      uint32
}

// New builds a Scheduler and installs it as m's Spawner.
func New(m *vm.VM, prog *bytecode.Program, reg *natives.Registry, pool *Pool, hooks Hooks) *Scheduler {
	if pool == nil {
		pool = NewPool(DefaultMinPoolSize)
	}
	if hooks == nil {
		hooks = NullHooks{}
	}
	s := &Scheduler{VM: m, Program: prog, Natives: reg, Pool: pool, Hooks: hooks}
	m.Spawner = s
	return s
}

// AliveCount reports the number of processes not yet moved to cleanup.
func (s *Scheduler) AliveCount() int { return len(s.alive) }

// CurrentTime returns the scheduler's running wall-clock total.
func (s *Scheduler) CurrentTime() float64 { return s.currentTime }

// Update implements the six-step per-process pass for one host tick.
func (s *Scheduler) Update(dt float64) {
	s.currentTime += dt

	still := s.alive[:0]
	for _, p := range s.alive {
		if p.State == StateFrozen {
			still = append(still, p)
			continue
		}
		if p.State == StateDead {
			s.cleanup = append(s.cleanup, p)
			continue
		}
		if p.State == StateSuspended && s.currentTime >= p.ResumeTime {
			p.State = StateRunning
		}
		if p.State == StateRunning {
			s.runOne(p, dt)
		}
		if p.State == StateDead {
			s.cleanup = append(s.cleanup, p)
			continue
		}
		still = append(still, p)
	}
	s.alive = still

	for _, p := range s.cleanup {
		s.Hooks.OnDestroy(s.VM, p, p.ExitCode)
		s.Pool.Recycle(p)
	}
	s.cleanup = s.cleanup[:0]

	s.tick++
	if s.tick%ShrinkInterval == 0 {
		s.Pool.Shrink()
	}
}

// runOne runs a script process's fiber (or a native process's Run
// callback) to its next suspension point and applies the resulting
// state transition.
func (s *Scheduler) runOne(p *Process, dt float64) {
	if p.native != nil {
		s.runNative(p)
		return
	}

	res := s.VM.Run(p.Fiber)
	switch res.Kind {
	case vm.ResultFrame:
		p.State = StateSuspended
		p.ResumeTime = s.currentTime + dt*float64(res.FramePercent-100)/100
		if !p.Initialized {
			p.Initialized = true
			s.Hooks.OnStart(s.VM, p)
		}
	case vm.ResultDone:
		p.State = StateDead
		p.Initialized = false
	case vm.ResultError:
		p.State = StateDead
		p.Initialized = false
		p.ExitCode = -1
	case vm.ResultCallReturn:
		// Only meaningful when the host is synchronously calling in via
		// CallFunction/CallMethod; the scheduler never sets that boundary
		// on a process's own fiber. Treat as done defensively rather than
		// spin forever on an inconsistent state.
		p.State = StateDead
	}
	s.Hooks.OnUpdate(s.VM, p, dt)
}

func (s *Scheduler) runNative(p *Process) {
	privs := make(map[string]value.Value, privates.Count)
	for i, name := range privates.Names() {
		privs[name] = p.Privates[i]
	}

	done, err := p.native.Run(s.VM, privs)

	for i, name := range privates.Names() {
		p.Privates[i] = privs[name]
	}

	switch {
	case err != nil:
		p.State = StateDead
		p.ExitCode = -1
	case done:
		p.State = StateDead
	default:
		if !p.Initialized {
			p.Initialized = true
			s.Hooks.OnStart(s.VM, p)
		}
	}
	s.Hooks.OnUpdate(s.VM, p, 0)
}

// Spawn implements vm.Spawner.
func (s *Scheduler) Spawn(idx int32, native bool, args []value.Value) (value.Value, error) {
	if native {
		return s.spawnNative(idx, args)
	}
	return s.spawnScript(idx, args)
}

func (s *Scheduler) spawnScript(idx int32, args []value.Value) (value.Value, error) {
	def := s.Program.Process(idx)
	if def == nil {
		return value.Nil, vmerrors.Newf(vmerrors.KindRuntime, "undefined process blueprint index %d", idx)
	}

	p := s.Pool.Create()
	p.class = def.ClassDef
	p.def = def
	p.native = nil
	p.ID = s.nextID
	s.nextID++
	p.State = StateRunning
	p.ResumeTime = 0
	p.Initialized = false
	p.ExitCode = 0
	p.DebugTag = uuid.NewString()
	p.self = value.ProcessInstance(p)
	p.Privates = def.PrivateValues

	if def.Body == nil {
		s.Pool.Recycle(p)
		return value.Nil, vmerrors.Newf(vmerrors.KindRuntime, "process blueprint %q has no body", def.Name)
	}

	// The body frame is only pushed here, never run: spawning a process
	// schedules it, it does not execute it. self occupies slot 0 the
	// same way an ordinary method receiver does, so LOAD_FIELD inside
	// the body addresses p.Privates via the fieldHolder seam; the first
	// Update pass that finds this process RUNNING drives the frame via
	// vm.Run, and frame()/exit inside Body suspend or kill it exactly
	// as they would for any other fiber.
	slots := p.Fiber.SP
	if err := p.Fiber.Push(p.self); err != nil {
		s.Pool.Recycle(p)
		return value.Nil, err
	}
	for _, a := range args {
		if err := p.Fiber.Push(a); err != nil {
			s.Pool.Recycle(p)
			return value.Nil, err
		}
	}
	if err := p.Fiber.PushFrame(def.Body, 0, slots, nil); err != nil {
		s.Pool.Recycle(p)
		return value.Nil, err
	}
	p.Fiber.CurrentFrame().DefiningClass = def.ClassDef

	s.alive = append(s.alive, p)
	s.Hooks.OnCreate(s.VM, p)
	return p.self, nil
}

func (s *Scheduler) spawnNative(idx int32, args []value.Value) (value.Value, error) {
	def, ok := s.Natives.Process(idx)
	if !ok {
		return value.Nil, vmerrors.Newf(vmerrors.KindRuntime, "undefined native process index %d", idx)
	}

	p := s.Pool.Create()
	p.class = nil
	p.def = nil
	p.native = def
	p.ID = s.nextID
	s.nextID++
	p.State = StateRunning
	p.ResumeTime = 0
	p.Initialized = false
	p.ExitCode = 0
	p.DebugTag = uuid.NewString()
	p.self = value.ProcessInstance(p)

	s.alive = append(s.alive, p)
	s.Hooks.OnCreate(s.VM, p)
	return p.self, nil
}

// Kill implements vm.Spawner: force a process Dead immediately. The
// scheduler's next Update pass moves it to cleanup and recycles it.
func (s *Scheduler) Kill(proc value.Value) error {
	if proc.Kind != value.KindProcessInstance {
		return vmerrors.Newf(vmerrors.KindRuntime, "KILL_PROCESS on non-process value %s", proc.Kind)
	}
	p, ok := proc.Any.(*Process)
	if !ok {
		return vmerrors.New(vmerrors.KindRuntime, "KILL_PROCESS: unrecognized process instance")
	}
	p.State = StateDead
	return nil
}
