package input

import (
	"bytes"
	"io"
	"strings"

	"github.com/Sumatoshi-tech/convsym/pkg/optsparser"
)

// minSymbolTableLine is the shortest line the AS listing scanner considers.
const minSymbolTableLine = 8

type asListingOptions struct {
	processLocals         bool
	ignoreInternalSymbols bool
	localJoin             byte
}

// ASListingDescriptor describes the AS listing symbol table reader.
func ASListingDescriptor() Descriptor {
	return Descriptor{
		ID:          "as_lst",
		Description: "AS macro assembler listing file with a symbol table section",
		Options: []optsparser.Doc{
			{Key: "localJoin", Kind: optsparser.KindChar, Default: ".", Description: "character allowed inside local label names"},
			{Key: "processLocals", Kind: optsparser.KindBool, Default: "+", Description: "accept local label names"},
			{Key: "ignoreInternalSymbols", Kind: optsparser.KindBool, Default: "+", Description: "drop labels starting with __"},
		},
		Parse: parseASListing,
	}
}

func parseASListing(src io.Reader, opts string, env Env) error {
	o := asListingOptions{processLocals: true, ignoreInternalSymbols: true, localJoin: defaultLocalJoin}
	optsparser.Parse(opts, optsparser.Bindings{
		"localJoin":             optsparser.Char(&o.localJoin),
		"processLocals":         optsparser.Bool(&o.processLocals),
		"ignoreInternalSymbols": optsparser.Bool(&o.ignoreInternalSymbols),
	})

	logger := env.logger()
	lines := newLineReader(src)
	found := false

	for {
		line, ok := lines.next()
		if !ok {
			break
		}

		if len(line) < minSymbolTableLine {
			continue
		}

		if !found {
			trimmed := bytes.TrimLeft(line, " \t")
			found = bytes.HasPrefix(trimmed, []byte("symbol table")) || bytes.HasPrefix(trimmed, []byte("Symbol Table"))

			continue
		}

		cells := bytes.Split(line, []byte{'|'})
		for _, cell := range cells[:len(cells)-1] {
			address, label, ok := o.parseCell(cell)
			if !ok {
				continue
			}

			if o.ignoreInternalSymbols && strings.HasPrefix(label, "__") {
				logger.Debug("internal symbol ignored", "label", label)

				continue
			}

			env.Table.Add(address, label)
		}
	}

	if err := lines.err(); err != nil {
		return err
	}

	if !found {
		return ErrNoSymbolTable
	}

	return nil
}

// parseCell matches `[ \t*]* LABEL ' :' [ \t]* HEX ' C'`.
func (o asListingOptions) parseCell(cell []byte) (uint32, string, bool) {
	pos := 0
	for pos < len(cell) && (isSpaceOrTab(cell[pos]) || cell[pos] == '*') {
		pos++
	}

	if pos >= len(cell) || !(isLetter(cell[pos]) || cell[pos] == '_') {
		return 0, "", false
	}

	start := pos
	pos++

	for pos < len(cell) && o.isLabelChar(cell[pos]) {
		pos++
	}

	label := string(cell[start:pos])

	if !bytes.HasPrefix(cell[pos:], []byte(" :")) {
		return 0, "", false
	}

	pos = skipSpaceOrTab(cell, pos+2)
	start = pos

	for pos < len(cell) && isListingHex(cell[pos]) {
		pos++
	}

	if pos == start || !bytes.HasPrefix(cell[pos:], []byte(" C")) {
		return 0, "", false
	}

	return parseListingHex(cell[start:pos]), label, true
}

func (o asListingOptions) isLabelChar(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '_' || (o.processLocals && c == o.localJoin)
}
