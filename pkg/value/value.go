// Package value implements the VM's tagged Value union and the heap
// object types it traces. Every object-creating constructor here polls
// the shared *gc.Collector threshold, links the new object at the head
// of the GC list, bumps its telemetry counter, and returns a Value
// wrapping the reference, in that order.
package value

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/bu-lang/bu/pkg/gc"
	"github.com/bu-lang/bu/pkg/strintern"
)

// Kind is the Value tag. Order is fixed so a serialized tag byte stays
// stable across builds.
type Kind byte

const (
	KindNil Kind = iota
	KindBool
	KindByte
	KindInt
	KindUInt
	KindFloat
	KindDouble
	KindString
	KindArray
	KindMap
	KindBuffer
	KindStructInstance
	KindClassInstance
	KindNativeClassInstance
	KindNativeStructInstance
	KindClosure
	KindUpvalue
	KindPointer
	KindFunction
	KindNative
	KindNativeProcess
	KindProcess
	KindProcessInstance
	KindStruct
	KindClass
	KindNativeClass
	KindNativeStruct
	KindModuleReference
)

func (k Kind) String() string {
	names := [...]string{
		"Nil", "Bool", "Byte", "Int", "UInt", "Float", "Double", "String",
		"Array", "Map", "Buffer", "StructInstance", "ClassInstance",
		"NativeClassInstance", "NativeStructInstance", "Closure", "Upvalue",
		"Pointer", "Function", "Native", "NativeProcess", "Process",
		"ProcessInstance", "Struct", "Class", "NativeClass", "NativeStruct",
		"ModuleReference",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "Unknown"
}

// Value is the VM's tagged union. Scalars and definition indices live in
// Num (reinterpreted per Kind); heap-traced objects live in Obj; interned
// strings live in Str (owned by the string pool, not the GC); Any carries
// the two variants that are neither GC objects nor table indices: Pointer
// (an opaque host pointer) and ProcessInstance (a live *scheduler.Process,
// which pkg/value cannot name without an import cycle).
type Value struct {
	Kind Kind
	Num  uint64
	Obj  gc.Object
	Str  *strintern.String
	Any  any
}

// Nil is the nil Value.
var Nil = Value{Kind: KindNil}

func Bool(b bool) Value {
	var n uint64
	if b {
		n = 1
	}
	return Value{Kind: KindBool, Num: n}
}

func Byte(b byte) Value   { return Value{Kind: KindByte, Num: uint64(b)} }
func Int(i int32) Value   { return Value{Kind: KindInt, Num: uint64(uint32(i))} }
func UInt(u uint32) Value { return Value{Kind: KindUInt, Num: uint64(u)} }
func Float(f float32) Value {
	return Value{Kind: KindFloat, Num: uint64(math.Float32bits(f))}
}
func Double(f float64) Value {
	return Value{Kind: KindDouble, Num: math.Float64bits(f)}
}
func Str(s *strintern.String) Value { return Value{Kind: KindString, Str: s} }
func Obj(o gc.Object) Value {
	return Value{Kind: kindOf(o), Obj: o}
}
func FuncRef(idx int32) Value    { return Value{Kind: KindFunction, Num: uint64(uint32(idx))} }
func NativeRef(idx int32) Value  { return Value{Kind: KindNative, Num: uint64(uint32(idx))} }
func NativeProcRef(idx int32) Value {
	return Value{Kind: KindNativeProcess, Num: uint64(uint32(idx))}
}
func ProcessRef(idx int32) Value  { return Value{Kind: KindProcess, Num: uint64(uint32(idx))} }
func StructRef(idx int32) Value   { return Value{Kind: KindStruct, Num: uint64(uint32(idx))} }
func ClassRef(idx int32) Value    { return Value{Kind: KindClass, Num: uint64(uint32(idx))} }
func NativeClassRef(idx int32) Value {
	return Value{Kind: KindNativeClass, Num: uint64(uint32(idx))}
}
func NativeStructRef(idx int32) Value {
	return Value{Kind: KindNativeStruct, Num: uint64(uint32(idx))}
}
func ModuleRef(module, fn uint16) Value {
	return Value{Kind: KindModuleReference, Num: uint64(module)<<16 | uint64(fn)}
}
func Pointer(p any) Value          { return Value{Kind: KindPointer, Any: p} }
func ProcessInstance(p any) Value  { return Value{Kind: KindProcessInstance, Any: p} }

func kindOf(o gc.Object) Kind {
	switch o.Kind() {
	case "array":
		return KindArray
	case "map":
		return KindMap
	case "buffer":
		return KindBuffer
	case "struct_instance":
		return KindStructInstance
	case "class_instance":
		return KindClassInstance
	case "native_class_instance":
		return KindNativeClassInstance
	case "native_struct_instance":
		return KindNativeStructInstance
	case "closure":
		return KindClosure
	case "upvalue":
		return KindUpvalue
	default:
		panic("value: unknown gc.Object kind " + o.Kind())
	}
}

// Accessors

func (v Value) IsNil() bool  { return v.Kind == KindNil }
func (v Value) Bool() bool   { return v.Num != 0 }
func (v Value) Byte() byte   { return byte(v.Num) }
func (v Value) Int() int32   { return int32(uint32(v.Num)) }
func (v Value) UInt() uint32 { return uint32(v.Num) }
func (v Value) Float() float32 {
	return math.Float32frombits(uint32(v.Num))
}
func (v Value) Double() float64 { return math.Float64frombits(v.Num) }
func (v Value) Index() int32    { return int32(uint32(v.Num)) }
func (v Value) ModuleFunc() (module, fn uint16) {
	return uint16(v.Num >> 16), uint16(v.Num)
}

// Truthy implements the VM's boolean-coercion rule for JUMP_IF_FALSE and
// friends: only Nil and Bool(false) are falsy, every other Value is truthy.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindNil:
		return false
	case KindBool:
		return v.Num != 0
	default:
		return true
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindNil:
		return "nil"
	case KindBool:
		return fmt.Sprintf("%v", v.Bool())
	case KindByte:
		return fmt.Sprintf("%d", v.Byte())
	case KindInt:
		return fmt.Sprintf("%d", v.Int())
	case KindUInt:
		return fmt.Sprintf("%d", v.UInt())
	case KindFloat:
		return fmt.Sprintf("%g", v.Float())
	case KindDouble:
		return fmt.Sprintf("%g", v.Double())
	case KindString:
		return v.Str.String()
	default:
		return fmt.Sprintf("<%s>", v.Kind)
	}
}

// Equal implements value-equality for scalars, content-equality for
// Strings (which reduces to pointer equality thanks to interning), and
// identity for heap containers and definitions.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return numericEqual(a, b)
	}
	switch a.Kind {
	case KindNil:
		return true
	case KindString:
		return a.Str == b.Str
	case KindArray, KindMap, KindBuffer, KindStructInstance, KindClassInstance,
		KindNativeClassInstance, KindNativeStructInstance, KindClosure, KindUpvalue:
		return a.Obj == b.Obj
	case KindPointer, KindProcessInstance:
		return a.Any == b.Any
	default:
		return a.Num == b.Num
	}
}

func numericEqual(a, b Value) bool {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if !aok || !bok {
		return false
	}
	return af == bf
}

func isNumeric(k Kind) bool {
	switch k {
	case KindByte, KindInt, KindUInt, KindFloat, KindDouble:
		return true
	default:
		return false
	}
}

func asFloat(v Value) (float64, bool) {
	switch v.Kind {
	case KindByte:
		return float64(v.Byte()), true
	case KindInt:
		return float64(v.Int()), true
	case KindUInt:
		return float64(v.UInt()), true
	case KindFloat:
		return float64(v.Float()), true
	case KindDouble:
		return v.Double(), true
	default:
		return 0, false
	}
}

// Promote implements the numeric promotion lattice Byte -> Int -> UInt ->
// Float -> Double: mixed-type arithmetic promotes to the widest operand's
// Kind. Non-numeric operands are a RuntimeError, surfaced to callers as an
// error so the interpreter can turn it into a script-visible throwable.
func Promote(a, b Value) (Kind, error) {
	if !isNumeric(a.Kind) || !isNumeric(b.Kind) {
		return KindNil, errors.Errorf("cannot apply arithmetic to %s and %s", a.Kind, b.Kind)
	}
	rank := func(k Kind) int {
		switch k {
		case KindByte:
			return 0
		case KindInt:
			return 1
		case KindUInt:
			return 2
		case KindFloat:
			return 3
		case KindDouble:
			return 4
		}
		return -1
	}
	if rank(a.Kind) >= rank(b.Kind) {
		return a.Kind, nil
	}
	return b.Kind, nil
}

// Widen converts v to the given promoted Kind for arithmetic.
func Widen(v Value, to Kind) Value {
	f, _ := asFloat(v)
	switch to {
	case KindByte:
		return Byte(byte(int64(f)))
	case KindInt:
		return Int(int32(int64(f)))
	case KindUInt:
		return UInt(uint32(int64(f)))
	case KindFloat:
		return Float(float32(f))
	case KindDouble:
		return Double(f)
	default:
		return v
	}
}
