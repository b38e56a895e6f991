package commands

import "strings"

// legacyArity lists the single-dash long flags of the classic command line
// and how many value arguments each consumes.
var legacyArity = map[string]int{
	"base":         1,
	"mask":         1,
	"range":        2,
	"a":            0,
	"noalign":      0,
	"in":           1,
	"input":        1,
	"inopt":        1,
	"out":          1,
	"output":       1,
	"outopt":       1,
	"org":          1,
	"ref":          1,
	"toupper":      0,
	"tolower":      0,
	"addprefix":    1,
	"filter":       1,
	"exclude":      0,
	"debug":        0,
	"config":       1,
	"metrics-file": 1,
}

// NormalizeArgs rewrites the classic single-dash command line into GNU-style
// flags: "-base FF0000" becomes "--base=FF0000" and "-range 0 3FFFFF" becomes
// "--range=0,3FFFFF". Values are joined with "=" so that values starting with
// a dash survive. Anything after "--" and anything unknown is left untouched.
func NormalizeArgs(args []string) []string {
	out := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if arg == "--" {
			return append(out, args[i:]...)
		}

		if len(arg) < 2 || arg[0] != '-' || arg[1] == '-' {
			out = append(out, arg)

			continue
		}

		name := arg[1:]

		arity, ok := legacyArity[name]
		if !ok || strings.Contains(name, "=") {
			out = append(out, arg)

			continue
		}

		if arity == 0 {
			if len(name) == 1 {
				out = append(out, arg)
			} else {
				out = append(out, "--"+name)
			}

			continue
		}

		if i+arity >= len(args) {
			// Missing values are reported by the flag parser.
			out = append(out, "--"+name)

			continue
		}

		values := args[i+1 : i+1+arity]
		out = append(out, "--"+name+"="+strings.Join(values, ","))
		i += arity
	}

	return out
}
