package input

import (
	"bytes"
	"fmt"
	"io"

	"github.com/Sumatoshi-tech/convsym/pkg/textutil"
)

// AutoFormat asks ParseFile to pick a format from the input content.
const AutoFormat = "auto"

// sniffLines bounds how many lines Detect inspects.
const sniffLines = 4096

// Detect guesses the input format of data. Binary data is read as an ASM68K
// symbol file; text is checked for an AS symbol table header, then for
// ASM68K listing addresses, and otherwise treated as a log.
func Detect(data []byte) string {
	if textutil.IsBinary(data) {
		return "asm68k_sym"
	}

	listing := false
	rest := data

	for range sniffLines {
		if len(rest) == 0 {
			break
		}

		var line []byte

		line, rest, _ = bytes.Cut(rest, []byte{'\n'})
		line = bytes.TrimRight(line, "\r")

		trimmed := bytes.TrimLeft(line, " \t")
		if bytes.HasPrefix(trimmed, []byte("Symbol Table")) || bytes.HasPrefix(trimmed, []byte("symbol table")) {
			return "as_lst"
		}

		if !listing && len(line) > lstTextColumn && hasListingAddress(line) {
			listing = true
		}
	}

	if listing {
		return "asm68k_lst"
	}

	return "log"
}

func hasListingAddress(line []byte) bool {
	for _, c := range line[:lstAddressDigits] {
		if !isListingHex(c) {
			return false
		}
	}

	return true
}

func (r *Registry) parseDetected(src io.Reader, path, opts string, env Env) error {
	data, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	id := Detect(data)

	env.logger().Debug("detected input format", "format", id, "lines", textutil.CountLines(data))

	d, err := r.Lookup(id)
	if err != nil {
		return err
	}

	body := textutil.BytesReader(data)
	defer body.Close()

	err = d.Parse(body, opts, env)
	if err != nil {
		return fmt.Errorf("parse %s as %s: %w", path, id, err)
	}

	return nil
}
