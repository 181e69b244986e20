package scheduler

import (
	"os"

	"github.com/bu-lang/bu/internal/bulog"
	"github.com/bu-lang/bu/pkg/vm"
)

// Hooks is the engine integration seam: four host callbacks invoked
// around a process's lifecycle (a fifth, OnRender, is invoked by the
// host's render pass directly, not by Update). The VM and process are
// passed so a hook can inspect privates, call further script methods,
// or read/write globals.
type Hooks interface {
	OnCreate(m *vm.VM, p *Process)
	OnStart(m *vm.VM, p *Process)
	OnUpdate(m *vm.VM, p *Process, dt float64)
	OnRender(m *vm.VM, p *Process)
	OnDestroy(m *vm.VM, p *Process, exitCode int32)
}

// NullHooks implements Hooks with no-ops, for headless use (tests, the
// CLI's `run` subcommand with no embedding host).
type NullHooks struct{}

func (NullHooks) OnCreate(*vm.VM, *Process)               {}
func (NullHooks) OnStart(*vm.VM, *Process)                {}
func (NullHooks) OnUpdate(*vm.VM, *Process, float64)      {}
func (NullHooks) OnRender(*vm.VM, *Process)                {}
func (NullHooks) OnDestroy(*vm.VM, *Process, int32)       {}

// LoggingHooks implements Hooks by emitting a bulog.Debug line per
// lifecycle transition, for demos and integration-test diagnostics.
type LoggingHooks struct {
	Log *bulog.Logger
}

// NewLoggingHooks builds a LoggingHooks writing through l, or through a
// new Debug-level stderr logger if l is nil.
func NewLoggingHooks(l *bulog.Logger) LoggingHooks {
	if l == nil {
		l = bulog.New(os.Stderr, bulog.LevelDebug)
	}
	return LoggingHooks{Log: l}
}

func (h LoggingHooks) OnCreate(_ *vm.VM, p *Process) {
	h.Log.Debug("process created", "id", p.ID, "tag", p.DebugTag)
}

func (h LoggingHooks) OnStart(_ *vm.VM, p *Process) {
	h.Log.Debug("process started", "id", p.ID)
}

func (h LoggingHooks) OnUpdate(_ *vm.VM, p *Process, dt float64) {
	h.Log.Debug("process updated", "id", p.ID, "dt", dt, "state", p.State)
}

func (h LoggingHooks) OnRender(_ *vm.VM, p *Process) {
	h.Log.Debug("process rendered", "id", p.ID)
}

func (h LoggingHooks) OnDestroy(_ *vm.VM, p *Process, exitCode int32) {
	h.Log.Debug("process destroyed", "id", p.ID, "exit_code", exitCode)
}
