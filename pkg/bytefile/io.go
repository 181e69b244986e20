package bytefile

import (
	"encoding/binary"
	"io"
)

// byteWriter accumulates the first error from any write and turns every
// later call into a no-op, so the record-encoding functions can chain
// writes without checking an error after each one — the same sticky-error
// pattern bufio.Writer and the standard encoding packages use internally.
type byteWriter struct {
	w   io.Writer
	err error
}

func (bw *byteWriter) writeRaw(b []byte) {
	if bw.err != nil {
		return
	}
	_, bw.err = bw.w.Write(b)
}

func (bw *byteWriter) writeByte(b byte) {
	bw.writeRaw([]byte{b})
}

func (bw *byteWriter) writeU16(v uint16) {
	if bw.err != nil {
		return
	}
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	bw.writeRaw(buf[:])
}

func (bw *byteWriter) writeU32(v uint32) {
	if bw.err != nil {
		return
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	bw.writeRaw(buf[:])
}

func (bw *byteWriter) writeI32(v int32) {
	bw.writeU32(uint32(v))
}

func (bw *byteWriter) writeU64(v uint64) {
	if bw.err != nil {
		return
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	bw.writeRaw(buf[:])
}

func (bw *byteWriter) writeBool(v bool) {
	if v {
		bw.writeByte(1)
	} else {
		bw.writeByte(0)
	}
}

func (bw *byteWriter) writeString(s string) {
	bw.writeU32(uint32(len(s)))
	bw.writeRaw([]byte(s))
}

// writeOptString writes a presence byte then, if present, the string
// itself. Callers that already know the string is never absent (e.g.
// global names, which are never empty slots) still go through here so
// the on-disk shape matches every other "optional_string" in the format.
func (bw *byteWriter) writeOptString(s string, present bool) {
	bw.writeBool(present)
	if present {
		bw.writeString(s)
	}
}

func (bw *byteWriter) writePresence(present bool) {
	bw.writeBool(present)
}

// byteReader is byteWriter's mirror: the first read error sticks, and
// every subsequent call becomes a zero-value no-op so callers can chain
// reads and check br.err once at the end.
type byteReader struct {
	r   io.Reader
	err error
}

func (br *byteReader) readRaw(buf []byte) {
	if br.err != nil {
		return
	}
	_, br.err = io.ReadFull(br.r, buf)
}

func (br *byteReader) readByte() byte {
	var buf [1]byte
	br.readRaw(buf[:])
	return buf[0]
}

func (br *byteReader) readU16() uint16 {
	var buf [2]byte
	br.readRaw(buf[:])
	return binary.LittleEndian.Uint16(buf[:])
}

func (br *byteReader) readU32() uint32 {
	var buf [4]byte
	br.readRaw(buf[:])
	return binary.LittleEndian.Uint32(buf[:])
}

func (br *byteReader) readI32() int32 {
	return int32(br.readU32())
}

func (br *byteReader) readU64() uint64 {
	var buf [8]byte
	br.readRaw(buf[:])
	return binary.LittleEndian.Uint64(buf[:])
}

func (br *byteReader) readBool() bool {
	return br.readByte() != 0
}

func (br *byteReader) readString() string {
	n := br.readU32()
	if br.err != nil || n == 0 {
		return ""
	}
	buf := make([]byte, n)
	br.readRaw(buf)
	return string(buf)
}

func (br *byteReader) readOptString() (string, bool) {
	present := br.readBool()
	if !present {
		return "", false
	}
	return br.readString(), true
}

func (br *byteReader) readPresence() bool {
	return br.readBool()
}
