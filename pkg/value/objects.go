package value

import (
	"github.com/bu-lang/bu/pkg/gc"
	"github.com/bu-lang/bu/pkg/strintern"
)

// BufferElemKind enumerates the scalar types a Buffer can hold.
type BufferElemKind byte

const (
	BufU8 BufferElemKind = iota
	BufI16
	BufU16
	BufI32
	BufU32
	BufF32
	BufF64
)

func (k BufferElemKind) Size() int {
	switch k {
	case BufU8:
		return 1
	case BufI16, BufU16:
		return 2
	case BufI32, BufU32, BufF32:
		return 4
	case BufF64:
		return 8
	default:
		return 0
	}
}

// NativeDestructor is a native class/struct destructor callback, invoked
// during GC reclamation.
type NativeDestructor func(userdata any)

// --- Array ---------------------------------------------------------------

type Array struct {
	gc.Header
	Elements []Value
}

func (a *Array) GCHeader() *gc.Header { return &a.Header }
func (a *Array) Kind() string         { return "array" }
func (a *Array) Size() int64          { return int64(24 + len(a.Elements)*32) }
func (a *Array) Destroy()             {}
func (a *Array) Blacken(push func(gc.Object)) {
	for _, v := range a.Elements {
		pushValue(push, v)
	}
}

// --- Map -------------------------------------------------------------------

type Map struct {
	gc.Header
	Entries map[*strintern.String]Value
}

func (m *Map) GCHeader() *gc.Header { return &m.Header }
func (m *Map) Kind() string         { return "map" }
func (m *Map) Size() int64          { return int64(24 + len(m.Entries)*40) }
func (m *Map) Destroy()             {}
func (m *Map) Blacken(push func(gc.Object)) {
	// Keys are interned Strings, not traced here.
	for _, v := range m.Entries {
		pushValue(push, v)
	}
}

// --- Buffer ------------------------------------------------------------

type Buffer struct {
	gc.Header
	Elem   BufferElemKind
	Data   []byte
	Cursor int
}

func NewRawBuffer(elem BufferElemKind, count int) *Buffer {
	return &Buffer{Elem: elem, Data: make([]byte, elem.Size()*count)}
}

func (b *Buffer) Len() int { return len(b.Data) / b.Elem.Size() }

func (b *Buffer) GCHeader() *gc.Header { return &b.Header }
func (b *Buffer) Kind() string         { return "buffer" }
func (b *Buffer) Size() int64          { return int64(32 + len(b.Data)) }
func (b *Buffer) Destroy()             {}

// Buffer, NativeClass/StructInstance carry an opaque payload: no outgoing
// references to mark.
func (b *Buffer) Blacken(push func(gc.Object)) {}

// --- StructInstance ------------------------------------------------------

type StructInstance struct {
	gc.Header
	Blueprint any // *bytecode.StructDef
	Fields    []Value
}

func (s *StructInstance) GCHeader() *gc.Header { return &s.Header }
func (s *StructInstance) Kind() string         { return "struct_instance" }
func (s *StructInstance) Size() int64          { return int64(16 + len(s.Fields)*32) }
func (s *StructInstance) Destroy()             {}
func (s *StructInstance) Blacken(push func(gc.Object)) {
	for _, v := range s.Fields {
		pushValue(push, v)
	}
}

// --- ClassInstance ---------------------------------------------------------

type ClassInstance struct {
	gc.Header
	Blueprint      any // *bytecode.ClassDef
	Fields         []Value
	NativeUserdata any
	NativeDestroy  NativeDestructor
}

func (c *ClassInstance) GCHeader() *gc.Header { return &c.Header }
func (c *ClassInstance) Kind() string         { return "class_instance" }
func (c *ClassInstance) Size() int64          { return int64(24 + len(c.Fields)*32) }
func (c *ClassInstance) Destroy() {
	// Destructor chain: if it inherits a native class, the native
	// destructor runs before reclamation.
	if c.NativeUserdata != nil && c.NativeDestroy != nil {
		c.NativeDestroy(c.NativeUserdata)
	}
}
func (c *ClassInstance) Blacken(push func(gc.Object)) {
	for _, v := range c.Fields {
		pushValue(push, v)
	}
}

// --- NativeClassInstance -----------------------------------------------

type NativeClassInstance struct {
	gc.Header
	Def          any // *bytecode.NativeClassDef
	Userdata     any
	Persistent   bool
	OwnsUserdata bool
	DestroyFn    NativeDestructor
}

func (n *NativeClassInstance) GCHeader() *gc.Header { return &n.Header }
func (n *NativeClassInstance) Kind() string         { return "native_class_instance" }
func (n *NativeClassInstance) Size() int64          { return 48 }
func (n *NativeClassInstance) Destroy() {
	if n.OwnsUserdata && n.DestroyFn != nil {
		n.DestroyFn(n.Userdata)
	}
}
func (n *NativeClassInstance) Blacken(push func(gc.Object)) {}

// --- NativeStructInstance ------------------------------------------------

type NativeStructInstance struct {
	gc.Header
	Def        any // *bytecode.NativeStructDef
	Data       any
	Persistent bool
	DestroyFn  NativeDestructor
}

func (n *NativeStructInstance) GCHeader() *gc.Header { return &n.Header }
func (n *NativeStructInstance) Kind() string         { return "native_struct_instance" }
func (n *NativeStructInstance) Size() int64          { return 48 }
func (n *NativeStructInstance) Destroy() {
	if n.DestroyFn != nil {
		n.DestroyFn(n.Data)
	}
}
func (n *NativeStructInstance) Blacken(push func(gc.Object)) {}

// --- Closure -----------------------------------------------------------

type Closure struct {
	gc.Header
	FuncIndex int32
	Upvalues  []*Upvalue
}

func (c *Closure) GCHeader() *gc.Header { return &c.Header }
func (c *Closure) Kind() string         { return "closure" }
func (c *Closure) Size() int64          { return int64(16 + len(c.Upvalues)*8) }
func (c *Closure) Destroy()             {}
func (c *Closure) Blacken(push func(gc.Object)) {
	for _, uv := range c.Upvalues {
		push(uv)
	}
}

// --- Upvalue -------------------------------------------------------------

// Upvalue is open when Slot points at a live stack slot, closed when
// Slot is nil and Closed holds the owned copy.
type Upvalue struct {
	gc.Header
	Slot   *Value
	Closed Value
	Next   *Upvalue // link in the open-upvalue list, sorted by descending stack address
}

func (u *Upvalue) GCHeader() *gc.Header { return &u.Header }
func (u *Upvalue) Kind() string         { return "upvalue" }
func (u *Upvalue) Size() int64          { return 40 }
func (u *Upvalue) Destroy()             {}

func (u *Upvalue) Get() Value {
	if u.Slot != nil {
		return *u.Slot
	}
	return u.Closed
}

func (u *Upvalue) Set(v Value) {
	if u.Slot != nil {
		*u.Slot = v
		return
	}
	u.Closed = v
}

// Close is idempotent: closing an already-closed upvalue is a no-op.
func (u *Upvalue) Close() {
	if u.Slot == nil {
		return
	}
	u.Closed = *u.Slot
	u.Slot = nil
}

func (u *Upvalue) IsOpen() bool { return u.Slot != nil }

// pushValue forwards the heap reference inside v (if any) to push, used by
// every container's Blacken implementation.
func pushValue(push func(gc.Object), v Value) {
	switch v.Kind {
	case KindArray, KindMap, KindBuffer, KindStructInstance, KindClassInstance,
		KindNativeClassInstance, KindNativeStructInstance, KindClosure, KindUpvalue:
		if v.Obj != nil {
			push(v.Obj)
		}
	}
}
