package vm

import (
	"math"

	"github.com/bu-lang/bu/pkg/bytecode"
	"github.com/bu-lang/bu/pkg/fiber"
	"github.com/bu-lang/bu/pkg/strintern"
	"github.com/bu-lang/bu/pkg/value"
	"github.com/bu-lang/bu/pkg/vmerrors"
)

// execNewStruct implements NEW_STRUCT: operand is a struct definition
// index. Fields start at their declared defaults.
func (vm *VM) execNewStruct(f *fiber.Fiber, inst bytecode.Instruction) (Result, bool) {
	def := vm.Program.Struct(inst.Operand)
	if def == nil {
		return vm.fault(f, vmerrors.Newf(vmerrors.KindRuntime, "undefined struct index %d", inst.Operand))
	}
	v := vm.Heap.NewStructInstance(def, len(def.Fields))
	fields := v.Obj.(*value.StructInstance).Fields
	for i, fd := range def.Fields {
		fields[i] = fd.Default
	}
	vm.mustPush(f, v)
	return Result{}, false
}

// execNewClassInstance implements NEW_CLASS_INSTANCE: operand is a class
// definition index. Inherited fields are populated root-most-first from
// their declared defaults before the constructor method (if any) runs,
// so a subclass constructor sees fully initialized inherited state.
func (vm *VM) execNewClassInstance(f *fiber.Fiber, inst bytecode.Instruction) (Result, bool) {
	def := vm.Program.Class(inst.Operand)
	if def == nil {
		return vm.fault(f, vmerrors.Newf(vmerrors.KindRuntime, "undefined class index %d", inst.Operand))
	}
	allFields := def.AllFields()
	v := vm.Heap.NewClassInstance(def, len(allFields))
	fields := v.Obj.(*value.ClassInstance).Fields
	for i, fd := range allFields {
		fields[i] = fd.Default
	}
	vm.mustPush(f, v)
	return Result{}, false
}

// execNewNativeClassInstance implements NEW_NATIVE_CLASS_INSTANCE:
// operand is a native class definition index; argCount arguments for the
// native constructor sit below it on the stack.
func (vm *VM) execNewNativeClassInstance(f *fiber.Fiber, inst bytecode.Instruction) (Result, bool) {
	idx, argCount := bytecode.UnpackSelector(inst.Operand)
	def, ok := vm.Natives.Class(int32(idx))
	if !ok {
		return vm.fault(f, vmerrors.Newf(vmerrors.KindRuntime, "undefined native class index %d", idx))
	}
	slots := f.SP - argCount
	args := append([]value.Value(nil), f.Stack[slots:f.SP]...)
	f.SP = slots

	var userdata any
	var err error
	if def.Constructor != nil {
		userdata, err = def.Constructor(args)
		if err != nil {
			return vm.fault(f, vmerrors.Newf(vmerrors.KindNative, "%v", err))
		}
	}
	v := vm.Heap.NewNativeClassInstance(def, userdata, true, false, def.Destroy)
	vm.mustPush(f, v)
	return Result{}, false
}

// execNewClosure implements NEW_CLOSURE: operand packs the target
// function index, its parent's local count, and its own parameter
// count. Each upvalue descriptor either captures the enclosing frame's
// own open upvalue at a parent-local slot, or re-captures one of the
// enclosing frame's own resolved upvalues (a transitively captured
// variable).
func (vm *VM) execNewClosure(f *fiber.Fiber, frame *fiber.Frame, inst bytecode.Instruction) (Result, bool) {
	funcIdxInt, _, _ := bytecode.UnpackClosure(inst.Operand)
	funcIdx := int32(funcIdxInt)
	fn := vm.Program.Function(funcIdx)
	if fn == nil {
		return vm.fault(f, vmerrors.Newf(vmerrors.KindRuntime, "undefined function index %d", funcIdx))
	}

	upvalues := make([]*value.Upvalue, len(fn.Upvalues))
	for i, uv := range fn.Upvalues {
		if uv.FromParentLocal {
			upvalues[i] = f.OpenUpvalue(frame.Slots + uv.Index)
		} else {
			if frame.Closure == nil || uv.Index >= len(frame.Closure.Upvalues) {
				return vm.fault(f, vmerrors.Newf(vmerrors.KindRuntime, "invalid upvalue reference %d", uv.Index))
			}
			upvalues[i] = frame.Closure.Upvalues[uv.Index]
		}
	}

	vm.mustPush(f, vm.Heap.NewClosure(funcIdx, upvalues))
	return Result{}, false
}

// execIndexGet implements INDEX_GET: Array and Buffer index by integer,
// Map indexes by the interned string its key Value carries.
func (vm *VM) execIndexGet(f *fiber.Fiber) (Result, bool) {
	key := f.Pop()
	container := f.Pop()

	switch container.Kind {
	case value.KindArray:
		arr := container.Obj.(*value.Array)
		idx := int(key.Int())
		if idx < 0 || idx >= len(arr.Elements) {
			return vm.fault(f, vmerrors.Newf(vmerrors.KindRuntime, "array index %d out of range (len %d)", idx, len(arr.Elements)))
		}
		vm.mustPush(f, arr.Elements[idx])
	case value.KindMap:
		m := container.Obj.(*value.Map)
		s, ok := mapKey(key)
		if !ok {
			return vm.fault(f, vmerrors.Newf(vmerrors.KindRuntime, "map key must be a string, got %s", key.Kind))
		}
		v, ok := m.Entries[s]
		if !ok {
			vm.mustPush(f, value.Nil)
		} else {
			vm.mustPush(f, v)
		}
	case value.KindBuffer:
		buf := container.Obj.(*value.Buffer)
		idx := int(key.Int())
		v, err := bufferGet(buf, idx)
		if err != nil {
			return vm.fault(f, err)
		}
		vm.mustPush(f, v)
	default:
		return vm.fault(f, vmerrors.Newf(vmerrors.KindRuntime, "cannot index into %s", container.Kind))
	}
	return Result{}, false
}

// execIndexSet implements INDEX_SET, leaving the stored value on the
// stack.
func (vm *VM) execIndexSet(f *fiber.Fiber) (Result, bool) {
	val := f.Pop()
	key := f.Pop()
	container := f.Pop()

	switch container.Kind {
	case value.KindArray:
		arr := container.Obj.(*value.Array)
		idx := int(key.Int())
		if idx < 0 || idx >= len(arr.Elements) {
			return vm.fault(f, vmerrors.Newf(vmerrors.KindRuntime, "array index %d out of range (len %d)", idx, len(arr.Elements)))
		}
		arr.Elements[idx] = val
	case value.KindMap:
		m := container.Obj.(*value.Map)
		s, ok := mapKey(key)
		if !ok {
			return vm.fault(f, vmerrors.Newf(vmerrors.KindRuntime, "map key must be a string, got %s", key.Kind))
		}
		m.Entries[s] = val
	case value.KindBuffer:
		buf := container.Obj.(*value.Buffer)
		idx := int(key.Int())
		if err := bufferSet(buf, idx, val); err != nil {
			return vm.fault(f, err)
		}
	default:
		return vm.fault(f, vmerrors.Newf(vmerrors.KindRuntime, "cannot index into %s", container.Kind))
	}
	vm.mustPush(f, val)
	return Result{}, false
}

func mapKey(v value.Value) (*strintern.String, bool) {
	if v.Kind != value.KindString {
		return nil, false
	}
	return v.Str, true
}

// bufferGet reads one element out of a raw byte buffer at idx,
// decoding it according to the buffer's declared element kind.
func bufferGet(buf *value.Buffer, idx int) (value.Value, error) {
	if idx < 0 || idx >= buf.Len() {
		return value.Nil, vmerrors.Newf(vmerrors.KindRuntime, "buffer index %d out of range (len %d)", idx, buf.Len())
	}
	off := idx * buf.Elem.Size()
	switch buf.Elem {
	case value.BufU8:
		return value.Byte(buf.Data[off]), nil
	case value.BufI16:
		return value.Int(int32(int16(le16(buf.Data[off:])))), nil
	case value.BufU16:
		return value.UInt(uint32(le16(buf.Data[off:]))), nil
	case value.BufI32:
		return value.Int(int32(le32(buf.Data[off:]))), nil
	case value.BufU32:
		return value.UInt(le32(buf.Data[off:])), nil
	case value.BufF32:
		return value.Float(math.Float32frombits(le32(buf.Data[off:]))), nil
	case value.BufF64:
		return value.Double(math.Float64frombits(le64(buf.Data[off:]))), nil
	default:
		return value.Nil, vmerrors.New(vmerrors.KindRuntime, "buffer has unknown element kind")
	}
}

// bufferSet writes one element into a raw byte buffer at idx.
func bufferSet(buf *value.Buffer, idx int, v value.Value) error {
	if idx < 0 || idx >= buf.Len() {
		return vmerrors.Newf(vmerrors.KindRuntime, "buffer index %d out of range (len %d)", idx, buf.Len())
	}
	off := idx * buf.Elem.Size()
	switch buf.Elem {
	case value.BufU8:
		buf.Data[off] = v.Byte()
	case value.BufI16, value.BufU16:
		putLE16(buf.Data[off:], uint16(v.UInt()))
	case value.BufI32, value.BufU32:
		putLE32(buf.Data[off:], v.UInt())
	case value.BufF32:
		putLE32(buf.Data[off:], math.Float32bits(v.Float()))
	case value.BufF64:
		putLE64(buf.Data[off:], math.Float64bits(v.Double()))
	default:
		return vmerrors.New(vmerrors.KindRuntime, "buffer has unknown element kind")
	}
	return nil
}

func le16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }
func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
func le64(b []byte) uint64 {
	return uint64(le32(b)) | uint64(le32(b[4:]))<<32
}
func putLE16(b []byte, v uint16) { b[0] = byte(v); b[1] = byte(v >> 8) }
func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
func putLE64(b []byte, v uint64) {
	putLE32(b, uint32(v))
	putLE32(b[4:], uint32(v>>32))
}
