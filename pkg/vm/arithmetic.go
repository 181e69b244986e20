package vm

import (
	"github.com/bu-lang/bu/pkg/bytecode"
	"github.com/bu-lang/bu/pkg/fiber"
	"github.com/bu-lang/bu/pkg/value"
	"github.com/bu-lang/bu/pkg/vmerrors"
)

// execBinary implements the arithmetic, comparison, and bitwise opcodes.
// Arithmetic reads two operands, promotes them per the numeric lattice,
// and pushes the result widened to the promoted Kind. Comparison always
// pushes a Bool regardless of operand Kind.
func (vm *VM) execBinary(f *fiber.Fiber, op bytecode.Opcode) (Result, bool) {
	b := f.Pop()
	a := f.Pop()

	switch op {
	case bytecode.OpEq:
		vm.mustPush(f, value.Bool(value.Equal(a, b)))
		return Result{}, false
	case bytecode.OpNeq:
		vm.mustPush(f, value.Bool(!value.Equal(a, b)))
		return Result{}, false
	}

	kind, err := value.Promote(a, b)
	if err != nil {
		return vm.fault(f, vmerrors.Newf(vmerrors.KindRuntime, "%v", err))
	}
	wa, wb := value.Widen(a, kind), value.Widen(b, kind)

	switch op {
	case bytecode.OpLt, bytecode.OpLe, bytecode.OpGt, bytecode.OpGe:
		vm.mustPush(f, value.Bool(compare(op, wa, wb, kind)))
		return Result{}, false
	}

	result, err := arith(op, wa, wb, kind)
	if err != nil {
		return vm.fault(f, err)
	}
	vm.mustPush(f, result)
	return Result{}, false
}

func compare(op bytecode.Opcode, a, b value.Value, kind value.Kind) bool {
	af, bf := asFloat64(a, kind), asFloat64(b, kind)
	switch op {
	case bytecode.OpLt:
		return af < bf
	case bytecode.OpLe:
		return af <= bf
	case bytecode.OpGt:
		return af > bf
	case bytecode.OpGe:
		return af >= bf
	}
	return false
}

func asFloat64(v value.Value, kind value.Kind) float64 {
	switch kind {
	case value.KindByte:
		return float64(v.Byte())
	case value.KindInt:
		return float64(v.Int())
	case value.KindUInt:
		return float64(v.UInt())
	case value.KindFloat:
		return float64(v.Float())
	default:
		return v.Double()
	}
}

// arith applies +,-,*,/,%,&,|,^,<<,>> at the promoted Kind. Integer
// kinds wrap modulo the type width on overflow; division/modulo by zero
// is a runtime error regardless of operand kind.
func arith(op bytecode.Opcode, a, b value.Value, kind value.Kind) (value.Value, error) {
	switch kind {
	case value.KindFloat, value.KindDouble:
		return floatArith(op, a, b, kind)
	default:
		return intArith(op, a, b, kind)
	}
}

func floatArith(op bytecode.Opcode, a, b value.Value, kind value.Kind) (value.Value, error) {
	af, bf := asFloat64(a, kind), asFloat64(b, kind)
	var r float64
	switch op {
	case bytecode.OpAdd:
		r = af + bf
	case bytecode.OpSub:
		r = af - bf
	case bytecode.OpMul:
		r = af * bf
	case bytecode.OpDiv:
		if bf == 0 {
			return value.Nil, vmerrors.New(vmerrors.KindRuntime, "division by zero")
		}
		r = af / bf
	case bytecode.OpMod:
		if bf == 0 {
			return value.Nil, vmerrors.New(vmerrors.KindRuntime, "division by zero")
		}
		r = floatMod(af, bf)
	default:
		return value.Nil, vmerrors.Newf(vmerrors.KindRuntime, "opcode %s is not valid on floating-point operands", op)
	}
	if kind == value.KindFloat {
		return value.Float(float32(r)), nil
	}
	return value.Double(r), nil
}

func floatMod(a, b float64) float64 {
	q := int64(a / b)
	return a - float64(q)*b
}

func intArith(op bytecode.Opcode, a, b value.Value, kind value.Kind) (value.Value, error) {
	ai, bi := asInt64(a, kind), asInt64(b, kind)
	var r int64
	switch op {
	case bytecode.OpAdd:
		r = ai + bi
	case bytecode.OpSub:
		r = ai - bi
	case bytecode.OpMul:
		r = ai * bi
	case bytecode.OpDiv:
		if bi == 0 {
			return value.Nil, vmerrors.New(vmerrors.KindRuntime, "division by zero")
		}
		r = ai / bi
	case bytecode.OpMod:
		if bi == 0 {
			return value.Nil, vmerrors.New(vmerrors.KindRuntime, "division by zero")
		}
		r = ai % bi
	case bytecode.OpBitAnd:
		r = ai & bi
	case bytecode.OpBitOr:
		r = ai | bi
	case bytecode.OpBitXor:
		r = ai ^ bi
	case bytecode.OpShl:
		r = ai << uint(bi)
	case bytecode.OpShr:
		r = ai >> uint(bi)
	default:
		return value.Nil, vmerrors.Newf(vmerrors.KindRuntime, "opcode %s is not valid on integer operands", op)
	}
	return widenInt(r, kind), nil
}

func asInt64(v value.Value, kind value.Kind) int64 {
	switch kind {
	case value.KindByte:
		return int64(v.Byte())
	case value.KindInt:
		return int64(v.Int())
	case value.KindUInt:
		return int64(v.UInt())
	default:
		return int64(v.Int())
	}
}

// widenInt wraps r modulo the destination kind's width, matching
// integer-overflow-wraps semantics.
func widenInt(r int64, kind value.Kind) value.Value {
	switch kind {
	case value.KindByte:
		return value.Byte(byte(r))
	case value.KindUInt:
		return value.UInt(uint32(r))
	default:
		return value.Int(int32(r))
	}
}

// execNeg implements NEG (unary minus).
func (vm *VM) execNeg(f *fiber.Fiber) (Result, bool) {
	a := f.Pop()
	switch a.Kind {
	case value.KindByte:
		vm.mustPush(f, value.Byte(byte(-int64(a.Byte()))))
	case value.KindInt:
		vm.mustPush(f, value.Int(-a.Int()))
	case value.KindUInt:
		vm.mustPush(f, value.UInt(uint32(-int64(a.UInt()))))
	case value.KindFloat:
		vm.mustPush(f, value.Float(-a.Float()))
	case value.KindDouble:
		vm.mustPush(f, value.Double(-a.Double()))
	default:
		return vm.fault(f, vmerrors.Newf(vmerrors.KindRuntime, "cannot negate %s", a.Kind))
	}
	return Result{}, false
}
