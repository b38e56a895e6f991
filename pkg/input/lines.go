package input

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/Sumatoshi-tech/convsym/pkg/units"
)

// maxLineLength bounds a single listing line.
const maxLineLength = units.MiB

// lineReader yields lines without their terminators.
type lineReader struct {
	sc     *bufio.Scanner
	number int
}

func newLineReader(src io.Reader) *lineReader {
	sc := bufio.NewScanner(src)
	sc.Buffer(make([]byte, 0, 64*units.KiB), maxLineLength)

	return &lineReader{sc: sc}
}

// next returns the next line and false at EOF. The slice is valid until
// the following call.
func (lr *lineReader) next() ([]byte, bool) {
	if !lr.sc.Scan() {
		return nil, false
	}

	lr.number++

	return bytes.TrimRight(lr.sc.Bytes(), "\r"), true
}

func (lr *lineReader) err() error {
	if err := lr.sc.Err(); err != nil {
		return fmt.Errorf("read line %d: %w", lr.number+1, err)
	}

	return nil
}

func isSpaceOrTab(c byte) bool {
	return c == ' ' || c == '\t'
}

func isUpper(c byte) bool {
	return c >= 'A' && c <= 'Z'
}

func isLower(c byte) bool {
	return c >= 'a' && c <= 'z'
}

func isLetter(c byte) bool {
	return isUpper(c) || isLower(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// isListingHex accepts the upper-case digits assemblers print in listings.
func isListingHex(c byte) bool {
	return isDigit(c) || (c >= 'A' && c <= 'F')
}

func hexValue(c byte) uint32 {
	switch {
	case isDigit(c):
		return uint32(c - '0')
	case c >= 'a' && c <= 'f':
		return uint32(c-'a') + 10
	default:
		return uint32(c-'A') + 10
	}
}

// parseListingHex decodes s, which must hold only listing hex digits.
func parseListingHex(s []byte) uint32 {
	var v uint32
	for _, c := range s {
		v = v<<4 | hexValue(c)
	}

	return v
}

func skipSpaceOrTab(line []byte, pos int) int {
	for pos < len(line) && isSpaceOrTab(line[pos]) {
		pos++
	}

	return pos
}

func hexString(v uint32) string {
	return fmt.Sprintf("%X", v)
}
