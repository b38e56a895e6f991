// Package bitstream packs variable-length codes into bytes most-significant
// bit first, and reads them back in the same order.
package bitstream

import "errors"

// ErrEndOfStream is returned when a read runs past the last byte.
var ErrEndOfStream = errors.New("bitstream: end of stream")

const bitsPerByte = 8

// Writer is an append-only bit packer. Bytes before the current byte index
// are never modified again.
type Writer struct {
	buf      []byte
	cur      int
	freeBits uint
}

// NewWriter returns an empty writer positioned at bit 7 of byte 0.
func NewWriter() *Writer {
	return &Writer{buf: []byte{0}, freeBits: bitsPerByte}
}

// PushCode appends the low length bits of code, most significant first.
// A zero length is a no-op. Lengths above 32 are truncated to 32.
func (w *Writer) PushCode(code uint32, length uint) {
	if length > 32 {
		length = 32
	}

	for length > 0 {
		n := min(length, w.freeBits)
		chunk := byte((code >> (length - n)) & (1<<n - 1))

		w.buf[w.cur] |= chunk << (w.freeBits - n)
		w.freeBits -= n
		length -= n

		if w.freeBits == 0 {
			w.advance()
		}
	}
}

// Flush moves to the next byte boundary if the current byte holds any bits.
func (w *Writer) Flush() {
	if w.freeBits < bitsPerByte {
		w.advance()
	}
}

func (w *Writer) advance() {
	w.buf = append(w.buf, 0)
	w.cur++
	w.freeBits = bitsPerByte
}

// Position returns the index of the byte currently receiving bits.
// After Flush it is the byte offset of the next code.
func (w *Writer) Position() int {
	return w.cur
}

// Size returns the number of bytes that hold at least one written bit.
func (w *Writer) Size() int {
	if w.freeBits < bitsPerByte {
		return w.cur + 1
	}

	return w.cur
}

// BitLen returns the number of bits written so far, including flush padding.
func (w *Writer) BitLen() int {
	return w.cur*bitsPerByte + int(bitsPerByte-w.freeBits)
}

// Bytes returns the written bytes. The slice aliases the writer's buffer.
func (w *Writer) Bytes() []byte {
	return w.buf[:w.Size()]
}

// Reader unpacks bits most-significant first.
type Reader struct {
	data []byte
	pos  int
}

// NewReader reads bits from data starting at bit 7 of byte 0.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// ReadBit returns the next bit.
func (r *Reader) ReadBit() (uint32, error) {
	idx := r.pos / bitsPerByte
	if idx >= len(r.data) {
		return 0, ErrEndOfStream
	}

	shift := bitsPerByte - 1 - r.pos%bitsPerByte
	r.pos++

	return uint32(r.data[idx]>>shift) & 1, nil
}

// Read returns the next length bits as an integer, first bit most significant.
func (r *Reader) Read(length uint) (uint32, error) {
	var code uint32

	for range length {
		bit, err := r.ReadBit()
		if err != nil {
			return 0, err
		}

		code = code<<1 | bit
	}

	return code, nil
}

// Align skips to the next byte boundary.
func (r *Reader) Align() {
	if rem := r.pos % bitsPerByte; rem != 0 {
		r.pos += bitsPerByte - rem
	}
}

// BitPos returns the number of bits consumed.
func (r *Reader) BitPos() int {
	return r.pos
}
