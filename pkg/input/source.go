package input

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pierrec/lz4/v4"
)

// StdioPath selects stdin or stdout instead of a file.
const StdioPath = "-"

// lz4FrameMagic is the little-endian LZ4 frame magic number 0x184D2204.
var lz4FrameMagic = []byte{0x04, 0x22, 0x4D, 0x18}

// Source is an opened input. Close releases the underlying file, if any.
type Source struct {
	io.Reader
	closer io.Closer
}

// Close closes the underlying file.
func (s *Source) Close() error {
	if s.closer == nil {
		return nil
	}

	return s.closer.Close()
}

// Open opens path for reading, or stdin for "-". Inputs that start with an
// LZ4 frame header are decompressed on the fly.
func Open(path string) (*Source, error) {
	if path == StdioPath {
		return wrap(os.Stdin, nil)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}

	return wrap(f, f)
}

func wrap(r io.Reader, closer io.Closer) (*Source, error) {
	br := bufio.NewReader(r)

	head, err := br.Peek(len(lz4FrameMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		if closer != nil {
			_ = closer.Close()
		}

		return nil, fmt.Errorf("read input: %w", err)
	}

	if bytes.Equal(head, lz4FrameMagic) {
		return &Source{Reader: lz4.NewReader(br), closer: closer}, nil
	}

	return &Source{Reader: br, closer: closer}, nil
}
