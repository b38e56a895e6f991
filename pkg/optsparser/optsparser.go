// Package optsparser scans "slash options" strings of the form
// `/flag+ /flag- /flag /key=value /key='quoted value'` into caller-declared
// targets. Keys the caller does not declare are ignored, so several
// dialects can share one options string syntax while recognizing different
// keys.
package optsparser

// Kind identifies the type of value a Target receives.
type Kind int

// Target kinds.
const (
	KindBool Kind = iota
	KindChar
	KindString
)

// String returns the kind name shown in option listings.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindChar:
		return "char"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// Target is a typed destination for a parsed option value.
type Target struct {
	kind Kind
	b    *bool
	c    *byte
	s    *string
}

// Kind returns the target's value kind.
func (t Target) Kind() Kind { return t.kind }

// Bool binds a boolean option.
func Bool(p *bool) Target { return Target{kind: KindBool, b: p} }

// Char binds a single-character option. Only the first byte of the value is used.
func Char(p *byte) Target { return Target{kind: KindChar, c: p} }

// String binds a string option.
func String(p *string) Target { return Target{kind: KindString, s: p} }

// Bindings maps option keys to their targets.
type Bindings map[string]Target

// Parse scans opts and stores recognized values into bindings.
// It never fails: malformed fragments and undeclared keys are skipped.
func Parse(opts string, bindings Bindings) {
	sc := scanner{src: opts}

	for {
		sc.skipSpace()

		ch, ok := sc.peek()
		if !ok {
			return
		}

		sc.pos++

		if ch != '/' {
			continue
		}

		key := sc.readKey()
		if key == "" {
			continue
		}

		target, declared := bindings[key]

		mark, _ := sc.peek()

		switch mark {
		case '=':
			sc.pos++

			value := sc.readValue()
			if declared {
				target.setValue(value)
			}
		case '+':
			sc.pos++

			if declared {
				target.setBool(true)
			}
		case '-':
			sc.pos++

			if declared {
				target.setBool(false)
			}
		default:
			if declared {
				target.setBool(true)
			}
		}
	}
}

func (t Target) setBool(v bool) {
	if t.kind == KindBool {
		*t.b = v
	}
}

func (t Target) setValue(value string) {
	switch t.kind {
	case KindBool:
		*t.b = value != "" && value != "0" && value != "false"
	case KindChar:
		if value != "" {
			*t.c = value[0]
		}
	case KindString:
		*t.s = value
	}
}

type scanner struct {
	src string
	pos int
}

func (sc *scanner) peek() (byte, bool) {
	if sc.pos >= len(sc.src) {
		return 0, false
	}

	return sc.src[sc.pos], true
}

func (sc *scanner) skipSpace() {
	for sc.pos < len(sc.src) && isSpace(sc.src[sc.pos]) {
		sc.pos++
	}
}

func (sc *scanner) readKey() string {
	start := sc.pos

	for sc.pos < len(sc.src) {
		c := sc.src[sc.pos]
		if c == '=' || c == '+' || c == '-' || isSpace(c) {
			break
		}

		sc.pos++
	}

	return sc.src[start:sc.pos]
}

// readValue reads either a single-quoted string (closing quote optional at
// end of input) or a bare word ending at whitespace or the next slash.
func (sc *scanner) readValue() string {
	if ch, ok := sc.peek(); ok && ch == '\'' {
		sc.pos++
		start := sc.pos

		for sc.pos < len(sc.src) && sc.src[sc.pos] != '\'' {
			sc.pos++
		}

		value := sc.src[start:sc.pos]

		if sc.pos < len(sc.src) {
			sc.pos++
		}

		return value
	}

	start := sc.pos

	for sc.pos < len(sc.src) {
		c := sc.src[sc.pos]
		if isSpace(c) || c == '/' {
			break
		}

		sc.pos++
	}

	return sc.src[start:sc.pos]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

// Doc documents one key accepted in an options string.
type Doc struct {
	Key         string
	Kind        Kind
	Default     string
	Description string
}
