package huffman

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/convsym/pkg/bitstream"
)

// ErrInvalidCode is returned when the bit sequence matches no record.
var ErrInvalidCode = errors.New("huffman: invalid code")

// maxCodeBits bounds the bits read while searching for a code.
const maxCodeBits = 32

type codeKey struct {
	code   uint32
	length uint
}

// Decoder maps bit sequences back to bytes.
type Decoder struct {
	codes     map[codeKey]byte
	maxLength uint
}

// NewDecoder builds a decoder for records.
func NewDecoder(records []Record) *Decoder {
	d := &Decoder{codes: make(map[codeKey]byte, len(records))}

	for _, rec := range records {
		d.codes[codeKey{code: rec.Code, length: rec.Length}] = rec.Value
		d.maxLength = max(d.maxLength, rec.Length)
	}

	return d
}

// Next reads one code from r and returns its byte.
func (d *Decoder) Next(r *bitstream.Reader) (byte, error) {
	var code uint32

	limit := min(d.maxLength, maxCodeBits)

	for length := uint(1); length <= limit; length++ {
		bit, err := r.ReadBit()
		if err != nil {
			return 0, err
		}

		code = code<<1 | bit

		if value, ok := d.codes[codeKey{code: code, length: length}]; ok {
			return value, nil
		}
	}

	return 0, fmt.Errorf("%w: %b after %d bits", ErrInvalidCode, code, limit)
}

// String decodes bytes from r until a NUL code, returning them without the NUL.
// A book with a single zero-length record cannot be decoded and fails.
func (d *Decoder) String(r *bitstream.Reader, maxLen int) (string, error) {
	buf := make([]byte, 0, 16)

	for len(buf) <= maxLen {
		b, err := d.Next(r)
		if err != nil {
			return "", err
		}

		if b == 0 {
			return string(buf), nil
		}

		buf = append(buf, b)
	}

	return "", fmt.Errorf("%w: string longer than %d bytes", ErrInvalidCode, maxLen)
}
