// Package vmerrors defines the error kinds the interpreter, loader, and
// native bindings raise. Each error carries a Kind that vmerrors.Is
// matches through any Unwrap chain, so callers can classify a failure
// without string matching; the
// propagation policy (what is script-catchable, what is process-fatal,
// what is VM-fatal) lives in the callers that check these, not here.
package vmerrors

import "github.com/pkg/errors"

// Kind classifies an error for propagation-policy decisions.
type Kind int

const (
	// KindRuntime covers interpreter faults: division by zero, bad
	// operand type, stack/frame overflow, bad field access, bad index,
	// undefined global, call-arity mismatch, bad native-class instance,
	// GC exhaustion. Turns into a script-visible throwable Value; if
	// uncaught the originating process is marked Dead with an Error
	// result. Other processes are unaffected.
	KindRuntime Kind = iota

	// KindScriptException is raised by the script's own `throw`.
	// Propagates identically to KindRuntime.
	KindScriptException

	// KindNative is signaled by a native callback. Diagnostic native
	// errors (e.g. during load/save) surface without terminating the
	// VM; errors wrapped as a throwable are catchable in script like
	// KindRuntime.
	KindNative

	// KindLoad is raised by the bytecode deserializer: bad magic, wrong
	// version, missing native, arity mismatch, out-of-range reference.
	// The VM is reset to a clean state and the load call returns failure.
	KindLoad

	// KindCompile is produced by the compiler collaborator and never
	// reaches the interpreter; it exists here only so tooling that
	// surfaces all error kinds uniformly (e.g. the CLI) has one type
	// to switch on.
	KindCompile
)

func (k Kind) String() string {
	switch k {
	case KindRuntime:
		return "RuntimeError"
	case KindScriptException:
		return "ScriptException"
	case KindNative:
		return "NativeError"
	case KindLoad:
		return "LoadError"
	case KindCompile:
		return "CompileError"
	default:
		return "UnknownError"
	}
}

// VMError wraps an underlying cause with its Kind and, for runtime
// faults raised inside the interpreter loop, the stack trace captured at
// raise time.
type VMError struct {
	Kind  Kind
	cause error
	Trace []StackFrame
}

// StackFrame is one entry of a captured call-stack trace: the function
// name, the selector if the frame was entered via a method call, and the
// source position at the point of capture.
type StackFrame struct {
	FunctionName string
	Selector     string
	IP           int
	Line         uint32
}

func (e *VMError) Error() string {
	if len(e.Trace) == 0 {
		return e.Kind.String() + ": " + e.cause.Error()
	}
	msg := e.Kind.String() + ": " + e.cause.Error() + "\n"
	for _, f := range e.Trace {
		if f.Selector != "" {
			msg += "  at " + f.FunctionName + "#" + f.Selector
		} else {
			msg += "  at " + f.FunctionName
		}
		msg += " (line " + itoa(f.Line) + ")\n"
	}
	return msg
}

func (e *VMError) Unwrap() error { return e.cause }

func itoa(n uint32) string {
	if n == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// New builds a VMError of the given kind wrapping msg, with no trace —
// used for load/compile errors that have no fiber call stack to capture.
func New(kind Kind, msg string) *VMError {
	return &VMError{Kind: kind, cause: errors.New(msg)}
}

// Newf is New with fmt-style formatting.
func Newf(kind Kind, format string, args ...any) *VMError {
	return &VMError{Kind: kind, cause: errors.Errorf(format, args...)}
}

// WithTrace returns a copy of e carrying the given captured stack trace,
// used by the interpreter when raising a runtime fault mid-frame.
func WithTrace(kind Kind, cause error, trace []StackFrame) *VMError {
	return &VMError{Kind: kind, cause: cause, Trace: trace}
}

// Is reports whether err is (or wraps) a VMError of the given Kind,
// letting callers write `errors.Is`-style classification without a type
// switch: `if vmerrors.Is(err, vmerrors.KindLoad) { ... }`.
func Is(err error, kind Kind) bool {
	var ve *VMError
	for err != nil {
		if v, ok := err.(*VMError); ok {
			ve = v
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return ve != nil && ve.Kind == kind
}
