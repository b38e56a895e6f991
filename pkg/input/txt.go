package input

import (
	"io"
	"log/slog"
	"strings"

	"github.com/Sumatoshi-tech/convsym/pkg/optsparser"
)

const defaultTxtFormat = "%s %X"

type fieldKind int

const (
	fieldLiteral fieldKind = iota
	fieldLabel
	fieldHex
	fieldDecimal
)

type field struct {
	kind    fieldKind
	literal string
}

// TxtDescriptor describes the free-format text reader.
func TxtDescriptor() Descriptor {
	return Descriptor{
		ID:          "txt",
		Description: "free-format text scanned with a printf-style field string",
		Options: []optsparser.Doc{
			{Key: "fmt", Kind: optsparser.KindString, Default: defaultTxtFormat, Description: "field string: %s label, %X hex, %d decimal, %% percent"},
			{Key: "offsetFirst", Kind: optsparser.KindBool, Default: "-", Description: "hint that the offset precedes the label (informational)"},
		},
		Parse: parseTxt,
	}
}

func parseTxt(src io.Reader, opts string, env Env) error {
	format := defaultTxtFormat
	offsetFirst := false

	optsparser.Parse(opts, optsparser.Bindings{
		"fmt":         optsparser.String(&format),
		"offsetFirst": optsparser.Bool(&offsetFirst),
	})

	logger := env.logger()
	fields := compileFields(format)

	if countConversions(fields) < 2 {
		logger.Warn("line format likely has too few conversions (try '%s %X')", "fmt", format)
	}

	logger.Debug("txt format", "fmt", format, "offset_first", offsetFirst)

	lines := newLineReader(src)

	for {
		line, ok := lines.next()
		if !ok {
			break
		}

		address, label, ok := scanFields(line, fields)
		if !ok {
			logLineSkip(logger, lines.number, line)

			continue
		}

		env.Table.Add(address, label)
	}

	return lines.err()
}

func logLineSkip(logger *slog.Logger, number int, line []byte) {
	if len(line) > 0 {
		logger.Debug("line skipped", "line", number)
	}
}

func compileFields(format string) []field {
	var (
		fields  []field
		literal strings.Builder
	)

	flush := func() {
		if literal.Len() > 0 {
			fields = append(fields, field{kind: fieldLiteral, literal: literal.String()})
			literal.Reset()
		}
	}

	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			literal.WriteByte(c)

			continue
		}

		if i+1 >= len(format) {
			literal.WriteByte('%')

			continue
		}

		i++

		switch verb := format[i]; verb {
		case 's', 'S':
			flush()
			fields = append(fields, field{kind: fieldLabel})
		case 'X', 'x':
			flush()
			fields = append(fields, field{kind: fieldHex})
		case 'd', 'D':
			flush()
			fields = append(fields, field{kind: fieldDecimal})
		case '%':
			literal.WriteByte('%')
		default:
			literal.WriteByte('%')
			literal.WriteByte(verb)
		}
	}

	flush()

	return fields
}

func countConversions(fields []field) int {
	n := 0

	for _, f := range fields {
		if f.kind != fieldLiteral {
			n++
		}
	}

	return n
}

// scanFields matches line against fields. A line yields a symbol only when
// both a label and an address were read.
func scanFields(line []byte, fields []field) (uint32, string, bool) {
	var (
		pos        int
		address    uint32
		label      string
		hasAddress bool
		hasLabel   bool
	)

	for _, f := range fields {
		switch f.kind {
		case fieldLiteral:
			for i := range len(f.literal) {
				lc := f.literal[i]
				if lc == ' ' || lc == '\t' || lc == '\n' || lc == '\r' {
					pos = skipSpaceOrTab(line, pos)

					continue
				}

				if pos >= len(line) || line[pos] != lc {
					return 0, "", false
				}

				pos++
			}

		case fieldLabel:
			pos = skipSpaceOrTab(line, pos)
			start := pos

			for pos < len(line) && !isSpaceOrTab(line[pos]) {
				pos++
			}

			if pos == start {
				return 0, "", false
			}

			label = string(line[start:pos])
			hasLabel = true

		case fieldHex:
			pos = skipSpaceOrTab(line, pos)

			if pos+1 < len(line) && line[pos] == '0' && (line[pos+1] == 'x' || line[pos+1] == 'X') {
				pos += 2
			} else if pos < len(line) && line[pos] == '$' {
				pos++
			}

			start := pos
			address = 0

			for pos < len(line) && isHexDigit(line[pos]) {
				address = address<<4 | hexValue(line[pos])
				pos++
			}

			if pos == start {
				return 0, "", false
			}

			hasAddress = true

		case fieldDecimal:
			pos = skipSpaceOrTab(line, pos)
			start := pos
			address = 0

			for pos < len(line) && isDigit(line[pos]) {
				address = address*10 + uint32(line[pos]-'0')
				pos++
			}

			if pos == start {
				return 0, "", false
			}

			hasAddress = true
		}
	}

	return address, label, hasLabel && hasAddress
}
