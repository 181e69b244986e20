package bytefile

import (
	"github.com/pkg/errors"

	"github.com/bu-lang/bu/pkg/strintern"
	"github.com/bu-lang/bu/pkg/value"
)

// Constant-pool tag bytes. Only the scalar kinds a compiler ever places
// in a Code.Constants pool are supported — arrays, maps, closures, and
// every other heap-traced Kind are always built at runtime by an opcode,
// never loaded as a literal, so encountering one here would mean the
// compiler's own invariant (only scalar literals become constants) was
// violated upstream.
const (
	tagNil byte = iota
	tagBool
	tagByte
	tagInt
	tagUInt
	tagFloat
	tagDouble
	tagString
)

func writeValue(bw *byteWriter, v value.Value) {
	if bw.err != nil {
		return
	}
	switch v.Kind {
	case value.KindNil:
		bw.writeByte(tagNil)
	case value.KindBool:
		bw.writeByte(tagBool)
		bw.writeBool(v.Bool())
	case value.KindByte:
		bw.writeByte(tagByte)
		bw.writeByte(v.Byte())
	case value.KindInt:
		bw.writeByte(tagInt)
		bw.writeI32(v.Int())
	case value.KindUInt:
		bw.writeByte(tagUInt)
		bw.writeU32(v.UInt())
	case value.KindFloat:
		bw.writeByte(tagFloat)
		bw.writeU32(uint32(v.Num))
	case value.KindDouble:
		bw.writeByte(tagDouble)
		bw.writeU64(v.Num)
	case value.KindString:
		bw.writeByte(tagString)
		bw.writeString(v.Str.String())
	default:
		bw.err = errors.Errorf("bytefile: constant of kind %s cannot be serialized", v.Kind)
	}
}

func readValue(br *byteReader, pool *strintern.Pool) value.Value {
	if br.err != nil {
		return value.Nil
	}
	tag := br.readByte()
	switch tag {
	case tagNil:
		return value.Nil
	case tagBool:
		return value.Bool(br.readBool())
	case tagByte:
		return value.Byte(br.readByte())
	case tagInt:
		return value.Int(br.readI32())
	case tagUInt:
		return value.UInt(br.readU32())
	case tagFloat:
		return value.Value{Kind: value.KindFloat, Num: uint64(br.readU32())}
	case tagDouble:
		return value.Value{Kind: value.KindDouble, Num: br.readU64()}
	case tagString:
		return value.Str(pool.InternString(br.readString()))
	default:
		if br.err == nil {
			br.err = errors.Errorf("bytefile: unknown constant tag 0x%02x", tag)
		}
		return value.Nil
	}
}
