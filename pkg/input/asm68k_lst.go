package input

import (
	"io"
	"log/slog"

	"github.com/Sumatoshi-tech/convsym/pkg/optsparser"
)

// ASM68K listing columns.
const (
	lstAddressDigits = 8
	lstEquateColumn  = 8
	lstMacroColumn   = 34
	lstTextColumn    = 36
	macroScanLimit   = 1000
)

type asm68kListingOptions struct {
	localLabelOptions

	ignoreMacroDefs    bool
	ignoreMacroExp     bool
	addMacrosAsOpcodes bool
}

func (o *asm68kListingOptions) bindings() optsparser.Bindings {
	b := o.localLabelOptions.bindings()
	b["ignoreMacroDefs"] = optsparser.Bool(&o.ignoreMacroDefs)
	b["ignoreMacroExp"] = optsparser.Bool(&o.ignoreMacroExp)
	b["addMacrosAsOpcodes"] = optsparser.Bool(&o.addMacrosAsOpcodes)

	return b
}

// ASM68KListingDescriptor describes the ASM68K listing reader.
func ASM68KListingDescriptor() Descriptor {
	docs := append([]optsparser.Doc{}, localLabelOptionDocs...)
	docs = append(docs,
		optsparser.Doc{Key: "ignoreMacroDefs", Kind: optsparser.KindBool, Default: "+", Description: "skip lines between macro and endm"},
		optsparser.Doc{Key: "ignoreMacroExp", Kind: optsparser.KindBool, Default: "-", Description: "skip lines marked as macro expansions"},
		optsparser.Doc{Key: "addMacrosAsOpcodes", Kind: optsparser.KindBool, Default: "+", Description: "treat macros declared with * as naming directives"},
	)

	return Descriptor{
		ID:          "asm68k_lst",
		Description: "ASM68K listing file (.lst)",
		Options:     docs,
		Parse:       parseASM68KListing,
	}
}

func namingDirectives() map[string]struct{} {
	set := map[string]struct{}{}
	for _, op := range []string{"=", "equ", "equs", "equr", "reg", "rs", "rsset", "set", "macro", "substr", "section", "group"} {
		set[op] = struct{}{}
	}

	return set
}

type asm68kListingParser struct {
	opts      asm68kListingOptions
	env       Env
	logger    *slog.Logger
	lines     *lineReader
	naming    map[string]struct{}
	global    string
	last      uint32
	hasLast   bool
	truncated bool
}

func parseASM68KListing(src io.Reader, opts string, env Env) error {
	o := asm68kListingOptions{
		localLabelOptions:  defaultLocalLabelOptions(),
		ignoreMacroDefs:    true,
		addMacrosAsOpcodes: true,
	}
	optsparser.Parse(opts, o.bindings())

	p := &asm68kListingParser{
		opts:   o,
		env:    env,
		logger: env.logger(),
		lines:  newLineReader(src),
		naming: namingDirectives(),
	}

	for !p.truncated {
		line, ok := p.lines.next()
		if !ok {
			break
		}

		p.parseLine(line)
	}

	return p.lines.err()
}

func (p *asm68kListingParser) isStartOfName(c byte) bool {
	return isLetter(c) || c == '.' || c == '_' || (p.opts.processLocals && c == p.opts.localSign)
}

func isNameChar(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '?' || c == '.' || c == '_'
}

func (p *asm68kListingParser) isStartOfLabel(c byte) bool {
	return isLetter(c) || c == '_' || (p.opts.processLocals && c == p.opts.localSign)
}

func isLabelChar(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '?' || c == '_'
}

func (p *asm68kListingParser) expandLocal(name string) string {
	return p.global + string(p.opts.localJoin) + name[1:]
}

func (p *asm68kListingParser) parseLine(line []byte) {
	n := p.lines.number

	if len(line) <= lstTextColumn {
		p.logger.Debug("line too short, skipping", "line", n)

		return
	}

	for _, c := range line[:lstAddressDigits] {
		if !isListingHex(c) {
			p.logger.Debug("line has no address, skipping", "line", n)

			return
		}
	}

	if line[lstEquateColumn] == '=' {
		return
	}

	if p.opts.ignoreMacroExp && line[lstMacroColumn] == 'M' {
		return
	}

	label, pos, ok := p.findLabel(line, lstTextColumn)
	if !ok {
		return
	}

	if label[0] == p.opts.localSign {
		label = p.expandLocal(label)
	} else {
		p.global = label
	}

	pos = skipSpaceOrTab(line, pos)
	start := pos

	for pos < len(line) && !isSpaceOrTab(line[pos]) {
		pos++
	}

	opcode := string(line[start:pos])
	if opcode != "" && opcode[0] == p.opts.localSign {
		opcode = p.expandLocal(opcode)
	}

	p.logger.Debug("processing", "line", n, "label", label, "opcode", opcode)

	if _, naming := p.naming[opcode]; naming {
		if opcode == "macro" {
			p.handleMacro(label, line, pos)
		}

		p.logger.Debug("label names a non-code object", "label", label)

		return
	}

	address := parseListingHex(line[:lstAddressDigits])

	if p.hasLast && address < p.last {
		p.logger.Debug("symbol ignored: address below previous symbol",
			"label", label, "address", hexString(address))

		return
	}

	if p.env.Table.Add(address, label) {
		p.last = address
		p.hasLast = true
	}
}

// findLabel recognizes an unindented name or an indented "label:" at pos.
// It returns the label text and the position just past it.
func (p *asm68kListingParser) findLabel(line []byte, pos int) (string, int, bool) {
	switch {
	case p.isStartOfName(line[pos]):
		start := pos
		pos++

		for pos < len(line) && isNameChar(line[pos]) {
			pos++
		}

		if pos < len(line) && !isSpaceOrTab(line[pos]) && line[pos] != ':' {
			return "", 0, false
		}

		label := string(line[start:pos])
		if pos < len(line) {
			pos++
		}

		return label, pos, true

	case isSpaceOrTab(line[pos]):
		pos = skipSpaceOrTab(line, pos)
		if pos >= len(line) || !p.isStartOfLabel(line[pos]) {
			return "", 0, false
		}

		start := pos
		pos++

		for pos < len(line) && isLabelChar(line[pos]) {
			pos++
		}

		if pos >= len(line) || line[pos] != ':' {
			return "", 0, false
		}

		return string(line[start:pos]), pos + 1, true

	default:
		p.logger.Debug("no label on line, skipping", "line", p.lines.number)

		return "", 0, false
	}
}

func (p *asm68kListingParser) handleMacro(name string, line []byte, pos int) {
	p.logger.Debug("macro declaration", "name", name)

	if p.opts.addMacrosAsOpcodes {
		pos = skipSpaceOrTab(line, pos)
		if pos < len(line) && line[pos] == '*' {
			p.naming[name] = struct{}{}
		}
	}

	if !p.opts.ignoreMacroDefs {
		return
	}

	first := p.lines.number

	for count := 0; ; count++ {
		if count >= macroScanLimit {
			p.logger.Warn("too many lines in macro definition; missing endm or a parsing error",
				"macro", name, "lines", macroScanLimit)

			break
		}

		body, ok := p.lines.next()
		if !ok {
			break
		}

		if isEndm(body) {
			p.logger.Debug("skipped macro definition", "macro", name, "from", first, "to", p.lines.number)

			return
		}
	}

	p.logger.Error("couldn't reach end of macro definition", "macro", name)

	p.truncated = true
}

// isEndm reports whether a listing line's opcode is endm, skipping a leading label.
func isEndm(line []byte) bool {
	if len(line) <= lstTextColumn {
		return false
	}

	pos := lstTextColumn
	if !isSpaceOrTab(line[pos]) {
		for pos < len(line) && !isSpaceOrTab(line[pos]) {
			pos++
		}
	}

	pos = skipSpaceOrTab(line, pos)
	start := pos

	for pos < len(line) && !isSpaceOrTab(line[pos]) {
		pos++
	}

	return string(line[start:pos]) == "endm"
}
