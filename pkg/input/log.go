package input

import (
	"io"

	"github.com/Sumatoshi-tech/convsym/pkg/optsparser"
)

type logOptions struct {
	separator  byte
	useDecimal bool
}

// LogDescriptor describes the "offset SEP label" text reader.
func LogDescriptor() Descriptor {
	return Descriptor{
		ID:          "log",
		Description: "text log with one `offset: label` pair per line",
		Options: []optsparser.Doc{
			{Key: "separator", Kind: optsparser.KindChar, Default: ":", Description: "character between offset and label"},
			{Key: "useDecimal", Kind: optsparser.KindBool, Default: "-", Description: "read offsets as decimal instead of hex"},
		},
		Parse: parseLog,
	}
}

func parseLog(src io.Reader, opts string, env Env) error {
	o := logOptions{separator: ':'}
	optsparser.Parse(opts, optsparser.Bindings{
		"separator":  optsparser.Char(&o.separator),
		"useDecimal": optsparser.Bool(&o.useDecimal),
	})

	logger := env.logger()
	lines := newLineReader(src)

	for {
		line, ok := lines.next()
		if !ok {
			break
		}

		address, label, ok := o.scan(line)
		if !ok {
			logLineSkip(logger, lines.number, line)

			continue
		}

		env.Table.Add(address, label)
	}

	return lines.err()
}

func (o logOptions) scan(line []byte) (uint32, string, bool) {
	pos := skipSpaceOrTab(line, 0)
	start := pos

	var address uint32

	for pos < len(line) {
		c := line[pos]

		if o.useDecimal {
			if !isDigit(c) {
				break
			}

			address = address*10 + uint32(c-'0')
		} else {
			if !isHexDigit(c) {
				break
			}

			address = address<<4 | hexValue(c)
		}

		pos++
	}

	if pos == start {
		return 0, "", false
	}

	if isSpaceOrTab(o.separator) {
		if pos >= len(line) || !isSpaceOrTab(line[pos]) {
			return 0, "", false
		}

		pos = skipSpaceOrTab(line, pos)
	} else {
		pos = skipSpaceOrTab(line, pos)
		if pos >= len(line) || line[pos] != o.separator {
			return 0, "", false
		}

		pos = skipSpaceOrTab(line, pos+1)
	}

	start = pos
	for pos < len(line) && !isSpaceOrTab(line[pos]) && line[pos] != 0 {
		pos++
	}

	if pos == start {
		return 0, "", false
	}

	return address, string(line[start:pos]), true
}
