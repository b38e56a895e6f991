package input

import (
	"bytes"
	"io"
)

// expLabelColumn is where the experimental AS listing expects source text.
const expLabelColumn = 40

// ASListingExperimentalDescriptor describes the column-based AS listing reader.
// It accepts no options.
func ASListingExperimentalDescriptor() Descriptor {
	return Descriptor{
		ID:          "as_lst_exp",
		Description: "AS listing file, scanned line by line (experimental)",
		Parse:       parseASListingExperimental,
	}
}

// parseASListingExperimental scans lines shaped like
// `(depth) line/ hhhh : ... name:` and takes labels whose address does not
// go backwards. Labels defining ds. or rs. storage are skipped.
func parseASListingExperimental(src io.Reader, opts string, env Env) error {
	logger := env.logger()

	if opts != "" {
		logger.Warn("input options are not supported by this parser", "options", opts)
	}

	lines := newLineReader(src)

	var (
		last    uint32
		hasLast bool
	)

	for {
		line, ok := lines.next()
		if !ok {
			break
		}

		address, label, rest, ok := scanExperimentalLine(line)
		if !ok {
			continue
		}

		if hasLast && address < last {
			logger.Debug("symbol ignored: address below previous symbol", "label", label, "address", hexString(address))

			continue
		}

		rest = bytes.TrimLeft(rest, " \t")
		if bytes.HasPrefix(rest, []byte("ds.")) || bytes.HasPrefix(rest, []byte("rs.")) {
			logger.Debug("storage reservation skipped", "label", label)

			continue
		}

		if env.Table.Add(address, label) {
			last = address
			hasLast = true
		}
	}

	return lines.err()
}

func scanExperimentalLine(line []byte) (uint32, string, []byte, bool) {
	pos := 0
	n := len(line)

	if pos < n && line[pos] == '(' {
		pos++
		start := pos

		for pos < n && isDigit(line[pos]) {
			pos++
		}

		if pos == start || pos >= n || line[pos] != ')' {
			return 0, "", nil, false
		}

		pos++
	}

	for pos < n && line[pos] == ' ' {
		pos++
	}

	start := pos
	for pos < n && isDigit(line[pos]) {
		pos++
	}

	if pos == start || pos >= n || line[pos] != '/' {
		return 0, "", nil, false
	}

	pos++
	for pos < n && line[pos] == ' ' {
		pos++
	}

	start = pos
	for pos < n && isListingHex(line[pos]) {
		pos++
	}

	if pos == start || pos >= n {
		return 0, "", nil, false
	}

	address := parseListingHex(line[start:pos])

	// One separator character follows the address.
	pos++
	for pos < n && line[pos] == ' ' {
		pos++
	}

	if pos >= n || line[pos] != ':' {
		return 0, "", nil, false
	}

	pos++

	if bytes.HasPrefix(line[pos:], []byte(" (")) {
		return 0, "", nil, false
	}

	if pos < expLabelColumn {
		pos = min(expLabelColumn, n)
	}

	pos = skipSpaceOrTab(line, pos)
	if pos >= n || !isLetter(line[pos]) {
		return 0, "", nil, false
	}

	start = pos
	pos++

	for pos < n && (isLetter(line[pos]) || isDigit(line[pos]) || line[pos] == '_') {
		pos++
	}

	if pos >= n || line[pos] != ':' {
		return 0, "", nil, false
	}

	return address, string(line[start:pos]), line[pos+1:], true
}
