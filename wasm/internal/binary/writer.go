package binary

import (
	"encoding/binary"
	"math"
)

// Writer accumulates wasm-encoded primitives in a growing byte slice.
// Every LEB128 value is written in its minimal form.
type Writer struct {
	buf []byte
}

// NewWriter creates an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the written bytes. The slice aliases the writer's buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written.
func (w *Writer) Len() int { return len(w.buf) }

// Byte writes a single byte.
func (w *Writer) Byte(b byte) { w.buf = append(w.buf, b) }

// WriteBytes writes data verbatim.
func (w *Writer) WriteBytes(data []byte) { w.buf = append(w.buf, data...) }

func (w *Writer) WriteU32(v uint32) { w.buf = AppendU64(w.buf, uint64(v)) }
func (w *Writer) WriteU64(v uint64) { w.buf = AppendU64(w.buf, v) }
func (w *Writer) WriteS32(v int32) { w.buf = AppendS64(w.buf, int64(v)) }
func (w *Writer) WriteS64(v int64) { w.buf = AppendS64(w.buf, v) }

// WriteName writes a length-prefixed UTF-8 name.
func (w *Writer) WriteName(s string) {
	w.WriteU32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// WriteVec writes a length-prefixed byte vector.
func (w *Writer) WriteVec(data []byte) {
	w.WriteU32(uint32(len(data)))
	w.buf = append(w.buf, data...)
}

func (w *Writer) WriteU32LE(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }
func (w *Writer) WriteF32(v float32) { w.WriteU32LE(math.Float32bits(v)) }
func (w *Writer) WriteF64(v float64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, math.Float64bits(v))
}

// AppendU32 appends the minimal unsigned LEB128 encoding of v to dst.
func AppendU32(dst []byte, v uint32) []byte {
	return AppendU64(dst, uint64(v))
}

// AppendU64 appends the minimal unsigned LEB128 encoding of v to dst.
func AppendU64(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

// AppendS64 appends the minimal signed LEB128 encoding of v to dst. The
// encoding stops once the remaining bits equal the sign bit just written.
func AppendS64(dst []byte, v int64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		sign := b & 0x40
		if (v == 0 && sign == 0) || (v == -1 && sign != 0) {
			return append(dst, b)
		}
		dst = append(dst, b|0x80)
	}
}
