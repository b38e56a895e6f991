package output

import (
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/convsym/pkg/optsparser"
	"github.com/Sumatoshi-tech/convsym/pkg/symtab"
)

// Default line formats.
const (
	DefaultAsmFormat = "%s:\tequ\t$%X"
	DefaultLogFormat = "%X:%s"
)

// AsmDescriptor returns the descriptor for assembler equates.
func AsmDescriptor() Descriptor {
	return textDescriptor("asm", "assembler equates, one per label", DefaultAsmFormat)
}

// LogDescriptor returns the descriptor for the plain offset/label log.
func LogDescriptor() Descriptor {
	return textDescriptor("log", "plain offset and label log, one per label", DefaultLogFormat)
}

func textDescriptor(id, description, defaultFormat string) Descriptor {
	return Descriptor{
		ID:          id,
		Description: description,
		Options: []optsparser.Doc{{
			Key: "fmt", Kind: optsparser.KindString, Default: strconv.Quote(defaultFormat),
			Description: "line format: %s label, %X or %x hex offset, %d decimal offset",
		}},
		Generate: func(symbols []symtab.Symbol, opts string, _ Env) (Result, error) {
			format := defaultFormat

			optsparser.Parse(opts, optsparser.Bindings{"fmt": optsparser.String(&format)})

			return renderLines(symbols, compileLineFormat(format)), nil
		},
	}
}

type verb byte

const (
	verbLiteral verb = iota
	verbLabel
	verbHexUpper
	verbHexLower
	verbDecimal
)

type lineToken struct {
	verb    verb
	literal string
}

// compileLineFormat splits a printf-like format into tokens. Unknown
// conversions are kept as literal text.
func compileLineFormat(format string) []lineToken {
	var (
		tokens []lineToken
		lit    strings.Builder
	)

	flush := func() {
		if lit.Len() > 0 {
			tokens = append(tokens, lineToken{verb: verbLiteral, literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i+1 == len(format) {
			lit.WriteByte(c)

			continue
		}

		i++

		switch format[i] {
		case 's':
			flush()
			tokens = append(tokens, lineToken{verb: verbLabel})
		case 'X':
			flush()
			tokens = append(tokens, lineToken{verb: verbHexUpper})
		case 'x':
			flush()
			tokens = append(tokens, lineToken{verb: verbHexLower})
		case 'd':
			flush()
			tokens = append(tokens, lineToken{verb: verbDecimal})
		case '%':
			lit.WriteByte('%')
		default:
			lit.WriteByte('%')
			lit.WriteByte(format[i])
		}
	}

	flush()

	return tokens
}

func renderLines(symbols []symtab.Symbol, tokens []lineToken) Result {
	var sb strings.Builder

	for _, sym := range symbols {
		for _, tok := range tokens {
			switch tok.verb {
			case verbLiteral:
				sb.WriteString(tok.literal)
			case verbLabel:
				sb.WriteString(sym.Label)
			case verbHexUpper:
				sb.WriteString(strings.ToUpper(strconv.FormatUint(uint64(sym.Address), 16)))
			case verbHexLower:
				sb.WriteString(strconv.FormatUint(uint64(sym.Address), 16))
			case verbDecimal:
				sb.WriteString(strconv.FormatUint(uint64(sym.Address), 10))
			}
		}

		sb.WriteByte('\n')
	}

	return Result{Data: []byte(sb.String()), Stats: Stats{Emitted: len(symbols)}}
}
