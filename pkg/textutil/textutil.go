// Package textutil provides byte-level helpers for sniffing and presenting
// assembler outputs: binary detection, line counting, reader adapters and
// printable label rendering.
package textutil

import (
	"bytes"
	"io"
	"strconv"
	"strings"
)

// BinarySniffLength is the maximum number of bytes scanned for NUL bytes.
// Symbol objects carry NUL padding in their header, listings never do.
const BinarySniffLength = 8000

// IsBinary returns true if data contains a NUL byte within the first
// BinarySniffLength bytes. Empty data is not binary.
func IsBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}

	sniff := data[:min(len(data), BinarySniffLength)]

	return bytes.IndexByte(sniff, 0) >= 0
}

// CountLines returns the number of newline-delimited lines in data.
// A non-empty buffer without a trailing newline counts the last partial line.
func CountLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}

	lines := bytes.Count(data, []byte{'\n'})

	if data[len(data)-1] != '\n' {
		lines++
	}

	return lines
}

// BytesReader wraps a byte slice as an [io.ReadCloser].
// The returned closer is a no-op.
func BytesReader(data []byte) io.ReadCloser {
	return io.NopCloser(bytes.NewReader(data))
}

// Printable renders label for terminal output. Labels made only of
// printable ASCII are returned unchanged; anything else is Go-quoted
// without the surrounding quotes.
func Printable(label string) string {
	for i := range len(label) {
		if c := label[i]; c < 0x20 || c >= 0x7F {
			quoted := strconv.QuoteToASCII(label)

			return strings.TrimSuffix(strings.TrimPrefix(quoted, `"`), `"`)
		}
	}

	return label
}
