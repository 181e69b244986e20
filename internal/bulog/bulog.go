// Package bulog is the ambient structured logger the VM, scheduler, and
// CLI use for diagnostics: GC cycles, process spawn/destroy, bytecode
// load/save, and debugger activity. It mirrors the colorized,
// caller-aware logging style built on go-stack/stack (caller frames),
// fatih/color (level coloring), and mattn/go-colorable+go-isatty
// (Windows-safe, TTY-detected color output).
package bulog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Level is a log severity, ordered least to most verbose.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "?"
	}
}

var levelColor = map[Level]*color.Color{
	LevelError: color.New(color.FgRed, color.Bold),
	LevelWarn:  color.New(color.FgYellow),
	LevelInfo:  color.New(color.FgCyan),
	LevelDebug: color.New(color.FgWhite),
}

// Logger writes leveled, keyed log lines (`msg key=val key=val`), with
// an optional caller frame for Debug lines.
type Logger struct {
	mu      sync.Mutex
	out     io.Writer
	level   Level
	colored bool
	ctx     []any
}

// std is the package-level default logger, writing to stderr at Info.
var std = New(os.Stderr, LevelInfo)

// New builds a Logger writing to w. If w is an *os.File, output is
// wrapped through go-colorable, and colorized only when the stream is a
// real TTY (go-isatty), matching the teacher corpus's convention of
// colorizing only when attached to an interactive terminal.
func New(w io.Writer, level Level) *Logger {
	colored := false
	if f, ok := w.(*os.File); ok {
		colored = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		w = colorable.NewColorable(f)
	}
	return &Logger{out: w, level: level, colored: colored}
}

// SetDefault replaces the package-level logger used by the free
// functions (Error/Warn/Info/Debug).
func SetDefault(l *Logger) { std = l }

// With returns a child logger carrying additional key/value context
// appended to every line it emits.
func (l *Logger) With(kv ...any) *Logger {
	child := &Logger{out: l.out, level: l.level, colored: l.colored}
	child.ctx = append(append([]any{}, l.ctx...), kv...)
	return child
}

func (l *Logger) log(lvl Level, msg string, kv []any) {
	if lvl > l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	label := lvl.String()
	if l.colored {
		label = levelColor[lvl].Sprint(label)
	}

	line := fmt.Sprintf("[%s] %-5s %s", time.Now().Format("15:04:05.000"), label, msg)
	all := append(append([]any{}, l.ctx...), kv...)
	for i := 0; i+1 < len(all); i += 2 {
		line += fmt.Sprintf(" %v=%v", all[i], all[i+1])
	}
	if lvl == LevelDebug {
		line += fmt.Sprintf(" caller=%+v", stack.Caller(2))
	}
	fmt.Fprintln(l.out, line)
}

func (l *Logger) Error(msg string, kv ...any) { l.log(LevelError, msg, kv) }
func (l *Logger) Warn(msg string, kv ...any)  { l.log(LevelWarn, msg, kv) }
func (l *Logger) Info(msg string, kv ...any)  { l.log(LevelInfo, msg, kv) }
func (l *Logger) Debug(msg string, kv ...any) { l.log(LevelDebug, msg, kv) }

func Error(msg string, kv ...any) { std.Error(msg, kv...) }
func Warn(msg string, kv ...any)  { std.Warn(msg, kv...) }
func Info(msg string, kv ...any)  { std.Info(msg, kv...) }
func Debug(msg string, kv ...any) { std.Debug(msg, kv...) }
