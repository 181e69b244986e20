package value

import (
	"github.com/bu-lang/bu/pkg/gc"
	"github.com/bu-lang/bu/pkg/strintern"
)

// Heap is the allocation façade every NEW_* opcode goes through. It wraps
// the shared collector so every constructor follows the same steps:
// (1) poll the GC threshold, (2) install at the head of the GC list,
// (3) bump the telemetry counter, (4) return a Value wrapping the
// reference. Persistent native objects skip step 2 entirely.
type Heap struct {
	GC *gc.Collector
}

func NewHeap(c *gc.Collector) *Heap { return &Heap{GC: c} }

func (h *Heap) register(o gc.Object) {
	h.GC.MaybeCollect()
	h.GC.Register(o)
}

// NewArray implements NEW_ARRAY. A 0-element Array is valid and empty;
// indexing it is the caller's problem.
func (h *Heap) NewArray(elements []Value) Value {
	a := &Array{Elements: elements}
	h.register(a)
	return Obj(a)
}

// NewMap implements NEW_MAP.
func (h *Heap) NewMap() Value {
	m := &Map{Entries: make(map[*strintern.String]Value)}
	h.register(m)
	return Obj(m)
}

// NewBuffer implements NEW_BUFFER with a fixed element count.
func (h *Heap) NewBuffer(elem BufferElemKind, count int) Value {
	b := NewRawBuffer(elem, count)
	h.register(b)
	return Obj(b)
}

// NewStructInstance implements NEW_STRUCT.
func (h *Heap) NewStructInstance(blueprint any, fieldCount int) Value {
	s := &StructInstance{Blueprint: blueprint, Fields: make([]Value, fieldCount)}
	h.register(s)
	return Obj(s)
}

// NewClassInstance implements NEW_CLASS_INSTANCE.
func (h *Heap) NewClassInstance(blueprint any, fieldCount int) Value {
	c := &ClassInstance{Blueprint: blueprint, Fields: make([]Value, fieldCount)}
	h.register(c)
	return Obj(c)
}

// NewNativeClassInstance implements NEW_NATIVE_CLASS_INSTANCE. Persistent
// instances are constructed but never linked into the GC list.
func (h *Heap) NewNativeClassInstance(def any, userdata any, ownsUserdata, persistent bool, destroy NativeDestructor) Value {
	n := &NativeClassInstance{Def: def, Userdata: userdata, OwnsUserdata: ownsUserdata, Persistent: persistent, DestroyFn: destroy}
	if persistent {
		h.GC.MaybeCollect()
	} else {
		h.register(n)
	}
	return Obj(n)
}

// NewNativeStructInstance implements NEW_NATIVE_STRUCT_INSTANCE.
func (h *Heap) NewNativeStructInstance(def any, data any, persistent bool, destroy NativeDestructor) Value {
	n := &NativeStructInstance{Def: def, Data: data, Persistent: persistent, DestroyFn: destroy}
	if persistent {
		h.GC.MaybeCollect()
	} else {
		h.register(n)
	}
	return Obj(n)
}

// NewClosure implements NEW_CLOSURE.
func (h *Heap) NewClosure(funcIndex int32, upvalues []*Upvalue) Value {
	c := &Closure{FuncIndex: funcIndex, Upvalues: upvalues}
	h.register(c)
	return Obj(c)
}

// NewOpenUpvalue creates an open upvalue pointing at a live stack slot.
func (h *Heap) NewOpenUpvalue(slot *Value) *Upvalue {
	u := &Upvalue{Slot: slot}
	h.register(u)
	return u
}
